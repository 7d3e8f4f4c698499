// Package brain turns an intervention decision into a concrete plan via
// one guarded structured-output model call. Guardrails can veto a plan
// before or after the call regardless of score; every failure path
// returns a nil plan that callers treat as "do nothing this cycle".
package brain

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/sagebot/sage/internal/core"
	"github.com/sagebot/sage/internal/store"
	"github.com/sagebot/sage/internal/timeutil"
)

const planTemperature = 0.2

// Brain plans interventions.
type Brain struct {
	llm   core.LLMClient
	db    *store.DB
	log   *zap.Logger
	clock timeutil.Clock
}

func New(llm core.LLMClient, db *store.DB, log *zap.Logger, clock timeutil.Clock) *Brain {
	return &Brain{llm: llm, db: db, log: log.Named("brain"), clock: clock}
}

// PlanIntervention makes one model call and validates the result.
// Returns (nil, nil) on guardrail rejection or invalid output, and
// (nil, err) on infrastructure failure; either way the caller skips the
// cycle and must never escalate it into an error.
func (b *Brain) PlanIntervention(ctx context.Context, user core.User, prefs core.Preferences, decision core.Decision, state *core.UserState) (*core.Plan, error) {
	if !b.guardrailsPass(user, prefs, decision) {
		return nil, nil
	}

	raw, err := b.llm.CompleteStructured(ctx, core.StructuredRequest{
		System:      systemPrompt(),
		User:        userPrompt(user, decision, state),
		SchemaName:  "intervention_plan",
		Schema:      planSchema(),
		Temperature: planTemperature,
	})
	// The call happened (or was attempted); it counts against the budget
	// either way.
	if uerr := b.db.IncrementAIUsage(ctx, user.Email, timeutil.Month(b.clock)); uerr != nil {
		b.log.Warn("usage increment failed", zap.String("user", user.Email), zap.Error(uerr))
	}
	if err != nil {
		return nil, err
	}

	var plan core.Plan
	if err := json.Unmarshal(raw, &plan); err != nil {
		b.log.Warn("discarding unparseable plan", zap.String("user", user.Email), zap.Error(err))
		return nil, nil
	}
	if !b.validate(user.Email, decision, &plan) {
		return nil, nil
	}
	return &plan, nil
}

// guardrailsPass vetoes the call before it is made: confirmation-required
// actions below L3, and fully automatic execution without explicit opt-in.
func (b *Brain) guardrailsPass(user core.User, prefs core.Preferences, decision core.Decision) bool {
	if decision.Level < core.LevelDirect {
		for _, reason := range decision.ReasonCodes {
			if action, ok := core.ReasonAction(reason); ok && action.RequiresConfirmation() {
				b.log.Info("guardrail: confirmation-required action below L3",
					zap.String("user", user.Email), zap.String("reason", reason))
				return false
			}
		}
	}
	if decision.Level == core.LevelAuto && !prefs.AutoActionOptIn {
		b.log.Info("guardrail: auto level without opt-in", zap.String("user", user.Email))
		return false
	}
	return true
}

// validate discards plans with forbidden wording, unknown action types,
// or auto-level plans carrying a confirmation-required action. Logged
// distinctly from infrastructure failures so quality regressions stay
// visible.
func (b *Brain) validate(userEmail string, decision core.Decision, plan *core.Plan) bool {
	for _, w := range forbiddenWords {
		if strings.Contains(plan.Message, w) {
			b.log.Warn("validation: forbidden word in message",
				zap.String("user", userEmail), zap.String("word", w))
			return false
		}
	}
	if !plan.ActionType.Known() {
		b.log.Warn("validation: unknown action type",
			zap.String("user", userEmail), zap.String("action", string(plan.ActionType)))
		return false
	}
	if decision.Level == core.LevelAuto && plan.ActionType.RequiresConfirmation() {
		b.log.Warn("validation: confirmation-required action at auto level",
			zap.String("user", userEmail), zap.String("action", string(plan.ActionType)))
		return false
	}
	return true
}
