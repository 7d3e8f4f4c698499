// Package agent ties the pipeline together: the orchestrator runs the
// scheduled observe-update-decide-plan-act cycle per user, and the loop
// serves interactive requests through the tool catalog.
package agent

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sagebot/sage/internal/brain"
	"github.com/sagebot/sage/internal/core"
	"github.com/sagebot/sage/internal/hands"
	"github.com/sagebot/sage/internal/policy"
	"github.com/sagebot/sage/internal/state"
	"github.com/sagebot/sage/internal/store"
	"github.com/sagebot/sage/internal/timeutil"
)

// maxConcurrentCycles bounds how many users are processed at once during
// a batch run.
const maxConcurrentCycles = 8

// Orchestrator runs the five-stage cycle for one user at a time. Stages
// are strictly sequential; any stage failure ends the user's cycle with
// a log line and nothing else, because the cycle runs unattended and
// must never take a half-decided action.
type Orchestrator struct {
	db      *store.DB
	updater *state.Updater
	policy  *policy.Engine
	brain   *brain.Brain
	hands   *hands.Hands
	log     *zap.Logger
	clock   timeutil.Clock
}

func NewOrchestrator(db *store.DB, updater *state.Updater, pol *policy.Engine, br *brain.Brain, h *hands.Hands, log *zap.Logger, clock timeutil.Clock) *Orchestrator {
	return &Orchestrator{db: db, updater: updater, policy: pol, brain: br, hands: h, log: log.Named("orchestrator"), clock: clock}
}

// RunCycle executes one full cycle for the user. It never returns an
// error: every failure is terminal for this cycle only.
func (o *Orchestrator) RunCycle(ctx context.Context, user core.User) {
	log := o.log.With(zap.String("user", user.Email))

	userState, err := o.updater.UpdateState(ctx, user)
	if err != nil {
		log.Error("state update failed, skipping cycle", zap.Error(err))
		return
	}

	decision, err := o.policy.ShouldIntervene(ctx, user)
	if err != nil {
		log.Error("policy evaluation failed, skipping cycle", zap.Error(err))
		return
	}
	if !decision.ShouldIntervene {
		log.Debug("no intervention", zap.Strings("reasons", decision.ReasonCodes), zap.Float64("score", decision.Score))
		return
	}

	prefs, err := o.db.GetPreferences(ctx, user.Email)
	if err != nil {
		log.Error("preference load failed, skipping cycle", zap.Error(err))
		return
	}

	plan, err := o.brain.PlanIntervention(ctx, user, prefs, decision, userState)
	if err != nil {
		log.Error("planning failed, skipping cycle", zap.Error(err))
		return
	}
	if plan == nil {
		log.Info("plan vetoed or invalid, skipping cycle", zap.Strings("reasons", decision.ReasonCodes))
		return
	}

	res := o.hands.Execute(ctx, user, decision, *plan)
	if !res.Success {
		log.Error("execution failed", zap.String("error", res.Error))
		return
	}
	log.Info("intervention executed",
		zap.Stringer("level", decision.Level),
		zap.String("action", string(plan.ActionType)),
		zap.String("log_id", res.LogID))
}

// RunAll cycles every eligible user concurrently. Users are isolated:
// one user's failure or slowness never cancels another's cycle, so the
// group carries no shared cancellation beyond the caller's context.
func (o *Orchestrator) RunAll(ctx context.Context) error {
	users, err := o.db.ListUsersByTier(ctx, core.TierPlus, core.TierPro)
	if err != nil {
		return err
	}

	start := o.clock.Now()
	g := new(errgroup.Group)
	g.SetLimit(maxConcurrentCycles)
	for _, u := range users {
		u := u
		g.Go(func() error {
			o.RunCycle(ctx, u)
			return nil
		})
	}
	_ = g.Wait()
	o.log.Info("batch cycle finished",
		zap.Int("users", len(users)),
		zap.Duration("took", time.Since(start)))
	return nil
}

// Runner drives RunAll on a fixed interval until stopped.
type Runner struct {
	orch     *Orchestrator
	interval time.Duration
	log      *zap.Logger
	stop     chan struct{}
}

func NewRunner(orch *Orchestrator, interval time.Duration, log *zap.Logger) *Runner {
	return &Runner{orch: orch, interval: interval, log: log.Named("runner"), stop: make(chan struct{})}
}

// Start begins the background cycle loop.
func (r *Runner) Start() {
	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		r.log.Info("runner started", zap.Duration("interval", r.interval))
		for {
			select {
			case <-ticker.C:
				if err := r.orch.RunAll(context.Background()); err != nil {
					r.log.Error("batch cycle failed", zap.Error(err))
				}
			case <-r.stop:
				r.log.Info("runner stopped")
				return
			}
		}
	}()
}

// Stop halts the runner.
func (r *Runner) Stop() {
	close(r.stop)
}
