// Package timeutil centralizes "today for the user". Every date
// comparison in the pipeline goes through this package so that all
// components agree on one zone instead of re-deriving the current date
// against the host's local time.
package timeutil

import "time"

// UserZone is the canonical zone for user-local dates. Fixed offset:
// the product's user base has no DST.
var UserZone = time.FixedZone("KST", 9*60*60)

// Clock provides the current time; injected so tests can pin it.
type Clock interface {
	Now() time.Time
}

// RealClock reads the wall clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// FixedClock always returns T. Test helper.
type FixedClock struct{ T time.Time }

func (f FixedClock) Now() time.Time { return f.T }

// Today returns the user-local date as YYYY-MM-DD.
func Today(c Clock) string {
	return c.Now().In(UserZone).Format("2006-01-02")
}

// Tomorrow returns the user-local date one day ahead as YYYY-MM-DD.
func Tomorrow(c Clock) string {
	return c.Now().In(UserZone).AddDate(0, 0, 1).Format("2006-01-02")
}

// CurrentHour returns the user-local hour of day.
func CurrentHour(c Clock) int {
	return c.Now().In(UserZone).Hour()
}

// Month returns the user-local month as YYYY-MM, used for budget keys.
func Month(c Clock) string {
	return c.Now().In(UserZone).Format("2006-01")
}

// DaysUntil returns whole user-local days from now until the given
// YYYY-MM-DD date. Negative means the date has passed. An unparseable
// date reports a far future so it never contributes pressure.
func DaysUntil(c Clock, date string) int {
	d, err := time.ParseInLocation("2006-01-02", date, UserZone)
	if err != nil {
		return 1 << 20
	}
	today, _ := time.ParseInLocation("2006-01-02", Today(c), UserZone)
	return int(d.Sub(today).Hours() / 24)
}

// MinutesOfDay parses HH:MM into minutes since midnight; ok is false when
// the value is malformed.
func MinutesOfDay(hhmm string) (int, bool) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}
