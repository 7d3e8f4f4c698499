package hands

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sagebot/sage/internal/core"
	"github.com/sagebot/sage/internal/timeutil"
)

// executeAuto mutates the schedule on the user's behalf. The affected
// schedule list is snapshotted into the log's payload before anything
// changes, making the log row both audit trail and rollback source.
func (h *Hands) executeAuto(ctx context.Context, user core.User, decision core.Decision, plan core.Plan) (Result, error) {
	profile, err := h.db.GetProfile(ctx, user.Email)
	if err != nil {
		return Result{}, err
	}
	snapshot := make([]core.Schedule, len(profile.CustomGoals))
	copy(snapshot, profile.CustomGoals)

	desc, err := applyMutation(&profile, plan)
	if err != nil {
		return Result{}, err
	}

	if plan.ActionPayload == nil {
		plan.ActionPayload = make(map[string]any)
	}
	plan.ActionPayload["_originalState"] = snapshot

	if err := h.db.UpdateProfile(ctx, user.Email, profile); err != nil {
		return Result{}, err
	}
	logID, err := h.insertLog(ctx, user, decision, plan, "")
	if err != nil {
		return Result{}, err
	}
	if _, err := h.db.InsertNotification(ctx, user.Email, "auto_action", "일정을 조정했어요", plan.Message+"\n\n"+desc, h.clock.Now()); err != nil {
		h.log.Warn("result notification failed", zap.String("user", user.Email), zap.Error(err))
	}
	if err := h.db.InsertAgentAction(ctx, user.Email, "scheduled", string(plan.ActionType), h.clock.Now()); err != nil {
		h.log.Warn("agent action record failed", zap.String("user", user.Email), zap.Error(err))
	}
	return Result{Success: true, LogID: logID}, nil
}

// applyMutation applies one of the three automatic operations to the
// profile's schedule list and describes what changed.
func applyMutation(profile *core.Profile, plan core.Plan) (string, error) {
	switch plan.ActionType {
	case core.ActionMoveSchedule:
		id, _ := plan.ActionPayload["schedule_id"].(string)
		idx := findSchedule(profile.CustomGoals, id)
		if idx < 0 {
			return "", fmt.Errorf("move_schedule: schedule %q not found", id)
		}
		moved := false
		if d, ok := plan.ActionPayload["new_date"].(string); ok && d != "" {
			profile.CustomGoals[idx].Date = d
			moved = true
		}
		if t, ok := plan.ActionPayload["new_start_time"].(string); ok && t != "" {
			profile.CustomGoals[idx].StartTime = t
			moved = true
		}
		if !moved {
			return "", fmt.Errorf("move_schedule: no target date or time given")
		}
		s := profile.CustomGoals[idx]
		return fmt.Sprintf("'%s' 일정을 %s %s로 옮겼어요.", s.Title, s.Date, s.StartTime), nil

	case core.ActionAddBufferTime:
		id, _ := plan.ActionPayload["schedule_id"].(string)
		idx := findSchedule(profile.CustomGoals, id)
		if idx < 0 {
			return "", fmt.Errorf("add_buffer_time: schedule %q not found", id)
		}
		minutes := 15
		if m, ok := plan.ActionPayload["minutes"].(float64); ok && m > 0 {
			minutes = int(m)
		}
		target := profile.CustomGoals[idx]
		buffer := core.Schedule{
			ID:              uuid.NewString(),
			Title:           "버퍼 타임",
			Category:        "buffer",
			Date:            target.Date,
			StartTime:       addMinutes(target.StartTime, target.DurationMinutes),
			DurationMinutes: minutes,
		}
		profile.CustomGoals = append(profile.CustomGoals, core.Schedule{})
		copy(profile.CustomGoals[idx+2:], profile.CustomGoals[idx+1:])
		profile.CustomGoals[idx+1] = buffer
		return fmt.Sprintf("'%s' 뒤에 %d분의 여유를 넣었어요.", target.Title, minutes), nil

	case core.ActionSuggestSchedule:
		title, _ := plan.ActionPayload["title"].(string)
		date, _ := plan.ActionPayload["date"].(string)
		if title == "" || date == "" {
			return "", fmt.Errorf("suggest_schedule: title and date are required")
		}
		start, _ := plan.ActionPayload["start_time"].(string)
		duration := 30
		if d, ok := plan.ActionPayload["duration_minutes"].(float64); ok && d > 0 {
			duration = int(d)
		}
		profile.CustomGoals = append(profile.CustomGoals, core.Schedule{
			ID:              uuid.NewString(),
			Title:           title,
			Date:            date,
			StartTime:       start,
			DurationMinutes: duration,
		})
		return fmt.Sprintf("'%s' 일정을 %s에 추가했어요.", title, date), nil
	}
	return "", fmt.Errorf("action %q cannot run automatically", plan.ActionType)
}

func findSchedule(schedules []core.Schedule, id string) int {
	for i, s := range schedules {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// addMinutes shifts an HH:MM time forward, clamping within the day.
func addMinutes(hhmm string, minutes int) string {
	base, ok := timeutil.MinutesOfDay(hhmm)
	if !ok {
		return hhmm
	}
	total := base + minutes
	if total >= 24*60 {
		total = 24*60 - 1
	}
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
