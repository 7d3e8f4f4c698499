package hands

import (
	"context"
	"encoding/json"
	"reflect"

	"go.uber.org/zap"

	"github.com/sagebot/sage/internal/core"
)

// Rollback restores the schedule snapshot embedded in an intervention
// log and marks the log rolled back. Idempotent: a second call, or a
// call when the state already reverted, is a no-op success. A rollback
// either fully applies or not at all.
func (h *Hands) Rollback(ctx context.Context, logID string) Result {
	entry, err := h.db.GetIntervention(ctx, logID)
	if err != nil {
		return Result{Success: false, Error: "기록을 불러오지 못했어요. 다시 시도해 주세요."}
	}
	if entry == nil {
		return Result{Success: false, Error: "해당 개입 기록을 찾을 수 없어요."}
	}
	if entry.UserFeedback == "rolled_back" {
		return Result{Success: true, LogID: logID}
	}

	snapshot, ok := decodeSnapshot(entry.ActionPayload)
	if !ok {
		return Result{Success: false, Error: "복원할 이전 상태가 없어요."}
	}

	profile, err := h.db.GetProfile(ctx, entry.UserEmail)
	if err != nil {
		return Result{Success: false, Error: "일정을 불러오지 못했어요. 다시 시도해 주세요."}
	}
	if !reflect.DeepEqual(profile.CustomGoals, snapshot) {
		profile.CustomGoals = snapshot
		if err := h.db.UpdateProfile(ctx, entry.UserEmail, profile); err != nil {
			return Result{Success: false, Error: "복원에 실패했어요. 다시 시도해 주세요."}
		}
	}

	if err := h.UpdateFeedback(ctx, logID, "rolled_back"); err != nil {
		h.log.Error("rollback feedback update failed", zap.String("log_id", logID), zap.Error(err))
		return Result{Success: false, Error: "복원은 됐지만 기록 갱신에 실패했어요."}
	}
	return Result{Success: true, LogID: logID}
}

// UpdateFeedback stores the user's reaction on the log row and
// immediately recomputes that user's feedback weights, so the next
// policy evaluation already reflects it.
func (h *Hands) UpdateFeedback(ctx context.Context, logID, feedback string) error {
	entry, err := h.db.GetIntervention(ctx, logID)
	if err != nil {
		return err
	}
	if entry == nil {
		return errNoSuchLog(logID)
	}
	if err := h.db.UpdateInterventionFeedback(ctx, logID, feedback, h.clock.Now()); err != nil {
		return err
	}
	return h.policy.RecomputeFeedbackWeights(ctx, entry.UserEmail)
}

type errNoSuchLog string

func (e errNoSuchLog) Error() string { return "no such intervention log: " + string(e) }

// decodeSnapshot extracts _originalState, which JSON round-tripping has
// turned into []any, back into a schedule list.
func decodeSnapshot(payload map[string]any) ([]core.Schedule, bool) {
	raw, ok := payload["_originalState"]
	if !ok {
		return nil, false
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, false
	}
	var out []core.Schedule
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, false
	}
	return out, true
}
