package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestUserLocalDates(t *testing.T) {
	// 2026-08-30 16:30 UTC is already 2026-08-31 01:30 in KST.
	c := FixedClock{T: time.Date(2026, 8, 30, 16, 30, 0, 0, time.UTC)}
	require.Equal(t, "2026-08-31", Today(c))
	require.Equal(t, "2026-09-01", Tomorrow(c))
	require.Equal(t, 1, CurrentHour(c))
	require.Equal(t, "2026-08", Month(c))
}

func TestDaysUntil(t *testing.T) {
	c := FixedClock{T: time.Date(2026, 8, 30, 5, 0, 0, 0, time.UTC)} // 14:00 KST
	require.Equal(t, 0, DaysUntil(c, "2026-08-30"))
	require.Equal(t, 1, DaysUntil(c, "2026-08-31"))
	require.Equal(t, -10, DaysUntil(c, "2026-08-20"))
	require.Equal(t, 1<<20, DaysUntil(c, "not-a-date"))
}

func TestMinutesOfDay(t *testing.T) {
	m, ok := MinutesOfDay("09:30")
	require.True(t, ok)
	require.Equal(t, 570, m)

	_, ok = MinutesOfDay("25:99")
	require.False(t, ok)
	_, ok = MinutesOfDay("")
	require.False(t, ok)
}
