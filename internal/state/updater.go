// Package state derives the five bounded user-state scores from the
// event log and schedule data.
package state

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sagebot/sage/internal/core"
	"github.com/sagebot/sage/internal/observer"
	"github.com/sagebot/sage/internal/store"
	"github.com/sagebot/sage/internal/timeutil"
)

// Keywords marking a schedule as high stakes for deadline pressure.
var importantKeywords = []string{
	"시험", "발표", "마감", "면접", "제출",
	"exam", "deadline", "interview", "presentation",
}

// Updater computes and upserts one user_states row per user per cycle.
type Updater struct {
	db    *store.DB
	obs   *observer.Observer
	log   *zap.Logger
	clock timeutil.Clock
}

func NewUpdater(db *store.DB, obs *observer.Observer, log *zap.Logger, clock timeutil.Clock) *Updater {
	return &Updater{db: db, obs: obs, log: log.Named("state"), clock: clock}
}

// UpdateState recomputes the user's scores and upserts the state row.
// The profile is fetched exactly once and passed into every calculator;
// none of them re-query it.
func (u *Updater) UpdateState(ctx context.Context, user core.User) (*core.UserState, error) {
	profile, err := u.db.GetProfile(ctx, user.Email)
	if err != nil {
		return nil, err
	}
	today := timeutil.Today(u.clock)

	s := core.UserState{
		UserEmail:      user.Email,
		StateUpdatedAt: u.clock.Now(),
	}
	s.EnergyLevel = u.calcEnergy(ctx, user.Email)
	s.StressLevel = u.calcStress(ctx, user.Email, profile, today)

	// Free tier carries only the two base scores; the rest stay unknown.
	if user.Tier != core.TierFree {
		focus := u.calcFocusWindow(ctx, user.Email, profile.CustomGoals, today)
		routine := u.calcRoutineDeviation(ctx, user.Email)
		deadline := u.calcDeadlinePressure(profile, today)
		s.FocusWindowScore = &focus
		s.RoutineDeviation = &routine
		s.DeadlinePressure = &deadline
	}

	if err := u.db.UpsertState(ctx, s); err != nil {
		return nil, err
	}
	return &s, nil
}

// calcEnergy: clamp(70 + 5*completed - 10*missed, 0, 100) over 24h.
func (u *Updater) calcEnergy(ctx context.Context, userEmail string) int {
	completed := len(u.obs.RecentEvents(ctx, userEmail, 24, core.EventScheduleCompleted))
	missed := len(u.obs.RecentEvents(ctx, userEmail, 24, core.EventScheduleMissed))
	return clamp(70+5*completed-10*missed, 0, 100)
}

// calcStress sums booking density (0-40), recent misses (0-30) and
// overdue goals (0-30).
func (u *Updater) calcStress(ctx context.Context, userEmail string, profile core.Profile, today string) int {
	bookedMinutes := 0
	for _, sc := range profile.CustomGoals {
		if sc.Date == today {
			bookedMinutes += sc.DurationMinutes
		}
	}
	density := float64(bookedMinutes) / 60.0 / 16.0 * 40.0
	if density > 40 {
		density = 40
	}

	missed := len(u.obs.RecentEvents(ctx, userEmail, 48, core.EventScheduleMissed))
	missedScore := 10 * missed
	if missedScore > 30 {
		missedScore = 30
	}

	overdue := 0
	for _, g := range profile.LongTermGoals.All() {
		if !g.Completed && timeutil.DaysUntil(u.clock, g.DueDate) < 0 {
			overdue++
		}
	}
	overdueScore := 15 * overdue
	if overdueScore > 30 {
		overdueScore = 30
	}

	return clamp(int(density)+missedScore+overdueScore, 0, 100)
}

// calcFocusWindow scores how defensible the current moment is for deep
// work: longest free block today, historical completion-hour affinity,
// fragmentation penalty. No schedule today means a maximal, uncontended
// window.
func (u *Updater) calcFocusWindow(ctx context.Context, userEmail string, schedules []core.Schedule, today string) int {
	var todays []core.Schedule
	for _, sc := range schedules {
		if sc.Date == today {
			todays = append(todays, sc)
		}
	}
	if len(todays) == 0 {
		return 90
	}

	sort.Slice(todays, func(i, j int) bool { return todays[i].StartTime < todays[j].StartTime })
	longestGap, shortGaps := 0, 0
	for i := 0; i+1 < len(todays); i++ {
		start, ok1 := timeutil.MinutesOfDay(todays[i].StartTime)
		next, ok2 := timeutil.MinutesOfDay(todays[i+1].StartTime)
		if !ok1 || !ok2 {
			continue
		}
		gap := next - (start + todays[i].DurationMinutes)
		if gap <= 0 {
			continue
		}
		if gap > longestGap {
			longestGap = gap
		}
		if gap < 15 {
			shortGaps++
		}
	}

	gapScore := 5
	switch {
	case longestGap >= 120:
		gapScore = 50
	case longestGap >= 60:
		gapScore = 30
	case longestGap >= 30:
		gapScore = 15
	}

	penalty := 7 * shortGaps
	if penalty > 20 {
		penalty = 20
	}

	return clamp(gapScore+u.timeBonus(ctx, userEmail)-penalty, 0, 100)
}

// timeBonus: 30 if the current hour is one of the user's top-3 historical
// completion hours, 20 if within one hour of one, else 10.
func (u *Updater) timeBonus(ctx context.Context, userEmail string) int {
	events := u.obs.RecentEvents(ctx, userEmail, 30*24, core.EventScheduleCompleted)
	counts := make(map[int]int)
	for _, e := range events {
		counts[e.OccurredAt.In(timeutil.UserZone).Hour()]++
	}
	hours := make([]int, 0, len(counts))
	for h := range counts {
		hours = append(hours, h)
	}
	sort.Slice(hours, func(i, j int) bool {
		if counts[hours[i]] != counts[hours[j]] {
			return counts[hours[i]] > counts[hours[j]]
		}
		return hours[i] < hours[j]
	})
	if len(hours) > 3 {
		hours = hours[:3]
	}

	now := timeutil.CurrentHour(u.clock)
	near := false
	for _, h := range hours {
		if h == now {
			return 30
		}
		if diff := h - now; diff == 1 || diff == -1 {
			near = true
		}
	}
	if near {
		return 20
	}
	return 10
}

// calcRoutineDeviation: 40 per detected 3-in-a-row skip of the exercise
// and sleep categories, capped at 100.
func (u *Updater) calcRoutineDeviation(ctx context.Context, userEmail string) int {
	score := 0
	if u.obs.DetectConsecutiveSkips(ctx, userEmail, "exercise", 3) {
		score += 40
	}
	if u.obs.DetectConsecutiveSkips(ctx, userEmail, "sleep", 3) {
		score += 40
	}
	return clamp(score, 0, 100)
}

// calcDeadlinePressure weighs active long-term goals by due-date
// proximity, adds a lagging-progress penalty, and bumps for important
// schedules landing today or tomorrow.
func (u *Updater) calcDeadlinePressure(profile core.Profile, today string) int {
	score := 0
	for _, g := range profile.LongTermGoals.All() {
		if g.Completed {
			continue
		}
		days := timeutil.DaysUntil(u.clock, g.DueDate)
		switch {
		case days < 0:
			score += 30
		case days == 0:
			score += 25
		case days == 1:
			score += 20
		case days <= 3:
			score += 15
		case days <= 7:
			score += 8
		case days <= 14:
			score += 3
		}
		if days >= 0 && days <= 7 && g.Progress < 50 {
			score += 10
		}
	}

	tomorrow := timeutil.Tomorrow(u.clock)
	for _, sc := range profile.CustomGoals {
		if !isImportant(sc) {
			continue
		}
		switch sc.Date {
		case today:
			score += 15
		case tomorrow:
			score += 8
		}
	}
	return clamp(score, 0, 100)
}

func isImportant(sc core.Schedule) bool {
	if sc.Important {
		return true
	}
	title := strings.ToLower(sc.Title)
	for _, kw := range importantKeywords {
		if strings.Contains(title, kw) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
