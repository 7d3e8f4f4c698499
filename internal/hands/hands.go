// Package hands executes a validated intervention plan at the decided
// level, from log-only observation up to automatic schedule mutation
// with rollback. Execute never lets a failure escape: it runs inside a
// background batch job, so callers need a result, not an exception.
package hands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sagebot/sage/internal/capability"
	"github.com/sagebot/sage/internal/core"
	"github.com/sagebot/sage/internal/observer"
	"github.com/sagebot/sage/internal/policy"
	"github.com/sagebot/sage/internal/store"
	"github.com/sagebot/sage/internal/timeutil"
)

// Result is the structured outcome of an execution or rollback. Callers
// branch on it; nothing is thrown.
type Result struct {
	Success bool
	Error   string
	LogID   string
}

// Hands executes intervention plans.
type Hands struct {
	db     *store.DB
	caps   capability.Provider
	obs    *observer.Observer
	policy *policy.Engine
	log    *zap.Logger
	clock  timeutil.Clock
}

func New(db *store.DB, caps capability.Provider, obs *observer.Observer, pol *policy.Engine, log *zap.Logger, clock timeutil.Clock) *Hands {
	return &Hands{db: db, caps: caps, obs: obs, policy: pol, log: log.Named("hands"), clock: clock}
}

// Execute dispatches the plan by intervention level.
func (h *Hands) Execute(ctx context.Context, user core.User, decision core.Decision, plan core.Plan) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("execution panic", zap.String("user", user.Email), zap.Any("panic", r))
			res = Result{Success: false, Error: fmt.Sprintf("execution panic: %v", r)}
		}
	}()

	var err error
	switch decision.Level {
	case core.LevelObserve:
		res, err = h.executeObserve(ctx, user, decision, plan)
	case core.LevelSilent:
		res, err = h.executeSilent(ctx, user, decision, plan)
	case core.LevelSoft:
		res, err = h.executeSoft(ctx, user, decision, plan)
	case core.LevelDirect:
		res, err = h.executeDirect(ctx, user, decision, plan)
	case core.LevelAuto:
		res, err = h.executeAuto(ctx, user, decision, plan)
	default:
		return Result{Success: false, Error: fmt.Sprintf("unknown level %d", decision.Level)}
	}
	if err != nil {
		h.log.Error("execution failed",
			zap.String("user", user.Email),
			zap.Stringer("level", decision.Level),
			zap.Error(err))
		return Result{Success: false, Error: err.Error()}
	}

	if terr := h.db.TouchLastIntervention(ctx, user.Email, h.clock.Now()); terr != nil {
		h.log.Warn("last-intervention touch failed", zap.String("user", user.Email), zap.Error(terr))
	}
	return res
}

// executeObserve only records that the decision happened.
func (h *Hands) executeObserve(ctx context.Context, user core.User, decision core.Decision, plan core.Plan) (Result, error) {
	logID, err := h.insertLog(ctx, user, decision, plan, "auto_executed")
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, LogID: logID}, nil
}

// executeSilent prepares an artifact without notifying anyone.
func (h *Hands) executeSilent(ctx context.Context, user core.User, decision core.Decision, plan core.Plan) (Result, error) {
	switch plan.ActionType {
	case core.ActionPrepareBriefing:
		content := h.withTimeout(ctx, func(cctx context.Context) (string, error) {
			profile, err := h.db.GetProfile(cctx, user.Email)
			if err != nil {
				return "", err
			}
			return h.caps.BriefingText(cctx, user, todaysSchedules(profile, timeutil.Today(h.clock)))
		})
		if content == "" {
			content = plan.Message
		}
		if _, err := h.db.InsertResource(ctx, user.Email, "briefing", "오늘의 준비", content, h.clock.Now()); err != nil {
			return Result{}, err
		}
	case core.ActionRecommendResources:
		topic, _ := plan.ActionPayload["topic"].(string)
		content := h.withTimeout(ctx, func(cctx context.Context) (string, error) {
			return h.caps.RecommendResources(cctx, user, topic)
		})
		if content == "" {
			content = plan.Message
		}
		if _, err := h.db.InsertResource(ctx, user.Email, "resource_list", topic, content, h.clock.Now()); err != nil {
			return Result{}, err
		}
	}

	logID, err := h.insertLog(ctx, user, decision, plan, "")
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, LogID: logID}, nil
}

// executeSoft writes a deduplicated notification, enriched best-effort.
func (h *Hands) executeSoft(ctx context.Context, user core.User, decision core.Decision, plan core.Plan) (Result, error) {
	typ, cooldown := notificationType(plan.ActionType)
	dup, err := h.db.HasRecentNotification(ctx, user.Email, typ, h.clock.Now().Add(-cooldown))
	if err != nil {
		return Result{}, err
	}
	if dup {
		h.log.Debug("notification deduplicated", zap.String("user", user.Email), zap.String("type", typ))
		return Result{Success: true}, nil
	}

	body := plan.Message
	for _, extra := range h.enrich(ctx, user, plan) {
		body += "\n\n" + extra
	}
	if _, err := h.db.InsertNotification(ctx, user.Email, typ, notificationTitle(plan.ActionType), body, h.clock.Now()); err != nil {
		return Result{}, err
	}

	logID, err := h.insertLog(ctx, user, decision, plan, "")
	if err != nil {
		return Result{}, err
	}
	if err := h.db.InsertAgentAction(ctx, user.Email, "scheduled", string(plan.ActionType), h.clock.Now()); err != nil {
		h.log.Warn("agent action record failed", zap.String("user", user.Email), zap.Error(err))
	}
	return Result{Success: true, LogID: logID}, nil
}

// executeDirect records the plan and asks the user for confirmation; the
// payload is executed by whoever resolves the request, not here.
func (h *Hands) executeDirect(ctx context.Context, user core.User, decision core.Decision, plan core.Plan) (Result, error) {
	logID, err := h.insertLog(ctx, user, decision, plan, "")
	if err != nil {
		return Result{}, err
	}
	payload, _ := json.Marshal(plan.ActionPayload)
	if _, err := h.db.InsertConfirmationRequest(ctx, user.Email, logID, plan.ActionType, string(payload), plan.Message, h.clock.Now()); err != nil {
		return Result{}, err
	}
	return Result{Success: true, LogID: logID}, nil
}

func (h *Hands) insertLog(ctx context.Context, user core.User, decision core.Decision, plan core.Plan, feedback string) (string, error) {
	l := core.InterventionLog{
		ID:            uuid.NewString(),
		UserEmail:     user.Email,
		Level:         decision.Level,
		ReasonCodes:   decision.ReasonCodes,
		ActionType:    plan.ActionType,
		ActionPayload: plan.ActionPayload,
		UserFeedback:  feedback,
		IntervenedAt:  h.clock.Now(),
	}
	if err := h.db.InsertIntervention(ctx, l); err != nil {
		return "", err
	}
	return l.ID, nil
}

// notificationType maps an action to its notification type and dedup
// cooldown window.
func notificationType(a core.ActionType) (string, time.Duration) {
	switch a {
	case core.ActionPrepareBriefing:
		return "briefing", 12 * time.Hour
	case core.ActionRecommendResources:
		return "resource", 24 * time.Hour
	default:
		return "nudge", 6 * time.Hour
	}
}

func notificationTitle(a core.ActionType) string {
	switch a {
	case core.ActionPrepareBriefing:
		return "오늘의 준비를 도와드릴게요"
	case core.ActionRecommendResources:
		return "도움이 될 자료를 찾았어요"
	default:
		return "잠깐 쉬어가도 괜찮아요"
	}
}

func todaysSchedules(profile core.Profile, today string) []core.Schedule {
	var out []core.Schedule
	for _, s := range profile.CustomGoals {
		if s.Date == today {
			out = append(out, s)
		}
	}
	return out
}
