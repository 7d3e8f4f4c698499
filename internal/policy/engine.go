// Package policy decides whether and how strongly to intervene. The
// engine is a pure decision function over stored state, preferences and
// history: it reads, it never writes.
package policy

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sagebot/sage/internal/core"
	"github.com/sagebot/sage/internal/store"
	"github.com/sagebot/sage/internal/timeutil"
)

const (
	// HighThreshold is the score above which stress, routine deviation
	// and deadline pressure contribute to the weighted score.
	HighThreshold = 70
	// LowEnergyThreshold is the score below which energy contributes.
	LowEnergyThreshold = 40
	// InterventionThreshold is the minimum weighted score to intervene.
	InterventionThreshold = 60
	// reactSuppressionWindow suppresses the scheduled pipeline after the
	// interactive loop mutated the schedule, so the two decision-makers
	// don't fight over the same day.
	reactSuppressionWindow = 30 * time.Minute
)

// Engine evaluates the ordered suppression checks and the weighted score.
type Engine struct {
	db    *store.DB
	log   *zap.Logger
	clock timeutil.Clock
}

func NewEngine(db *store.DB, log *zap.Logger, clock timeutil.Clock) *Engine {
	return &Engine{db: db, log: log.Named("policy"), clock: clock}
}

// ShouldIntervene runs the suppression checks in their fixed order,
// short-circuiting on the first that applies, then scores the state.
// The order is observable through reason codes and must not change.
func (e *Engine) ShouldIntervene(ctx context.Context, user core.User) (core.Decision, error) {
	suppress := func(reasons ...string) core.Decision {
		return core.Decision{ShouldIntervene: false, ReasonCodes: reasons}
	}

	// 1. Subscription tier without agent support.
	if user.Tier == core.TierFree {
		return suppress(core.ReasonPlanNotSupported), nil
	}

	// 2. Monthly model-call budget.
	used, err := e.db.AIUsage(ctx, user.Email, timeutil.Month(e.clock))
	if err != nil {
		return core.Decision{}, err
	}
	if used >= user.Tier.AICallBudget() {
		return suppress(core.ReasonAILimitExceeded), nil
	}

	// 3. No state computed yet.
	state, err := e.db.GetState(ctx, user.Email)
	if err != nil {
		return core.Decision{}, err
	}
	if state == nil {
		return suppress(), nil
	}

	// 4. Feature disabled by the user.
	prefs, err := e.db.GetPreferences(ctx, user.Email)
	if err != nil {
		return core.Decision{}, err
	}
	if !prefs.Enabled {
		return suppress(), nil
	}

	// 5. Quiet hours (wrap-around when start > end).
	if inQuietHours(timeutil.CurrentHour(e.clock), prefs.QuietHoursStart, prefs.QuietHoursEnd) {
		return suppress(core.ReasonQuietHours), nil
	}

	// 6. Cooldown since the last intervention.
	if state.LastInterventionAt != nil {
		elapsed := e.clock.Now().Sub(*state.LastInterventionAt)
		if elapsed < time.Duration(prefs.CooldownMinutes)*time.Minute {
			return suppress(core.ReasonCooldown), nil
		}
	}

	// 7. The interactive loop touched the schedule recently.
	recent, err := e.db.HasRecentAgentAction(ctx, user.Email, "react", e.clock.Now().Add(-reactSuppressionWindow))
	if err != nil {
		return core.Decision{}, err
	}
	if recent {
		return suppress(core.ReasonRecentReactAction), nil
	}

	// 8. Weighted score.
	weights, err := e.db.FeedbackWeights(ctx, user.Email)
	if err != nil {
		return core.Decision{}, err
	}
	score, reasons := scoreState(state, weights)
	if score < InterventionThreshold {
		return core.Decision{ShouldIntervene: false, ReasonCodes: reasons, Score: score}, nil
	}

	// 9. Level, capped by tier and by the user's own ceiling. A direct
	// (L3) decision is promoted to auto when the user explicitly opted
	// into automatic actions and both caps allow it.
	level := determineLevel(score, reasons)
	if level == core.LevelDirect && prefs.AutoActionOptIn &&
		user.Tier.MaxLevel() >= core.LevelAuto && prefs.MaxLevel >= core.LevelAuto {
		level = core.LevelAuto
	}
	if tierMax := user.Tier.MaxLevel(); level > tierMax {
		level = tierMax
	}
	if level > prefs.MaxLevel {
		level = prefs.MaxLevel
	}
	e.log.Debug("intervention decided",
		zap.String("user", user.Email),
		zap.Float64("score", score),
		zap.Strings("reasons", reasons),
		zap.Stringer("level", level))
	return core.Decision{ShouldIntervene: true, Level: level, ReasonCodes: reasons, Score: score}, nil
}

// scoreState accumulates the four threshold-crossing terms, each weighted
// by the feedback multiplier of the reason's associated action type.
// Unknown (nil) scores never fire their condition.
func scoreState(state *core.UserState, weights map[core.ActionType]float64) (float64, []string) {
	weightFor := func(reason string) float64 {
		action, ok := core.ReasonAction(reason)
		if !ok {
			return 1.0
		}
		if w, ok := weights[action]; ok {
			return w
		}
		return 1.0
	}

	score := 0.0
	var reasons []string
	if state.StressLevel > HighThreshold {
		score += float64(state.StressLevel) * 0.3 * weightFor(core.ReasonHighStress)
		reasons = append(reasons, core.ReasonHighStress)
	}
	if state.RoutineDeviation != nil && *state.RoutineDeviation > HighThreshold {
		score += float64(*state.RoutineDeviation) * 0.2 * weightFor(core.ReasonRoutineDeviation)
		reasons = append(reasons, core.ReasonRoutineDeviation)
	}
	if state.DeadlinePressure != nil && *state.DeadlinePressure > HighThreshold {
		score += float64(*state.DeadlinePressure) * 0.4 * weightFor(core.ReasonDeadlinePressure)
		reasons = append(reasons, core.ReasonDeadlinePressure)
	}
	if state.EnergyLevel < LowEnergyThreshold {
		score += float64(100-state.EnergyLevel) * 0.2 * weightFor(core.ReasonLowEnergy)
		reasons = append(reasons, core.ReasonLowEnergy)
	}
	if score > 100 {
		score = 100
	}
	return score, reasons
}

func determineLevel(score float64, reasons []string) core.Level {
	if score > 90 && hasReason(reasons, core.ReasonDeadlinePressure) && hasReason(reasons, core.ReasonHighStress) {
		return core.LevelDirect
	}
	if score > 85 {
		return core.LevelSoft
	}
	return core.LevelSilent
}

func hasReason(reasons []string, want string) bool {
	for _, r := range reasons {
		if r == want {
			return true
		}
	}
	return false
}

// inQuietHours handles both plain ranges (9..17) and wrap-around ranges
// (22..7 spans midnight). start == end disables the window.
func inQuietHours(hour, start, end int) bool {
	if start == end {
		return false
	}
	if start < end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}
