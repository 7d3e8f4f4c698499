package tools

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/sagebot/sage/internal/capability"
	"github.com/sagebot/sage/internal/core"
	"github.com/sagebot/sage/internal/observer"
	"github.com/sagebot/sage/internal/store"
	"github.com/sagebot/sage/internal/timeutil"
)

// profileCacheSize bounds the per-user profile cache. Profiles are small
// JSON blobs; 256 covers every concurrently active user comfortably.
const profileCacheSize = 256

const transientFailure = "일시적인 오류가 발생했어요. 잠시 후 다시 시도할 수 있어요."

// Executor dispatches tool calls against storage and capabilities. Every
// call resolves to a ToolResult; neither errors nor panics escape, since
// results are fed straight back into a model conversation.
type Executor struct {
	db       *store.DB
	caps     capability.Provider
	obs      *observer.Observer
	log      *zap.Logger
	clock    timeutil.Clock
	profiles *lru.Cache[string, core.Profile]
}

func NewExecutor(db *store.DB, caps capability.Provider, obs *observer.Observer, log *zap.Logger, clock timeutil.Clock) *Executor {
	cache, _ := lru.New[string, core.Profile](profileCacheSize)
	return &Executor{db: db, caps: caps, obs: obs, log: log.Named("tools"), clock: clock, profiles: cache}
}

// Execute runs one tool call for the user. Authorization happened when
// the catalog was filtered; an unknown name here means the model invented
// a tool or named one outside the user's tier.
func (e *Executor) Execute(ctx context.Context, user core.User, call core.ToolCall) (res core.ToolResult) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("tool panic",
				zap.String("user", user.Email),
				zap.String("tool", call.Name),
				zap.Any("panic", r))
			res = failure(fmt.Sprintf("tool panic: %v", r), transientFailure)
		}
	}()

	switch call.Name {
	case "get_today_schedules":
		return e.getTodaySchedules(ctx, user)
	case "get_user_state":
		return e.getUserState(ctx, user)
	case "get_long_term_goals":
		return e.getLongTermGoals(ctx, user)
	case "add_schedule":
		return e.addSchedule(ctx, user, call.Arguments)
	case "update_schedule":
		return e.updateSchedule(ctx, user, call.Arguments)
	case "delete_schedule":
		return e.deleteSchedule(ctx, user, call.Arguments)
	case "recommend_resources":
		return e.recommendResources(ctx, user, call.Arguments)
	case "get_recent_events":
		return e.getRecentEvents(ctx, user, call.Arguments)
	case RespondTool:
		msg, _ := call.Arguments["message"].(string)
		return core.ToolResult{Success: true, Data: msg, Summary: "응답을 전달했어요."}
	}
	return failure(fmt.Sprintf("unknown tool %q", call.Name), "사용할 수 없는 기능이에요.")
}

func (e *Executor) getTodaySchedules(ctx context.Context, user core.User) core.ToolResult {
	profile, err := e.profile(ctx, user.Email)
	if err != nil {
		return failure(err.Error(), transientFailure)
	}
	today := timeutil.Today(e.clock)
	var out []core.Schedule
	for _, s := range profile.CustomGoals {
		if s.Date == today {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return core.ToolResult{Success: true, Data: []core.Schedule{}, Summary: "오늘은 등록된 일정이 없어요."}
	}
	return core.ToolResult{Success: true, Data: out, Summary: fmt.Sprintf("오늘 일정 %d개를 찾았어요.", len(out))}
}

func (e *Executor) getUserState(ctx context.Context, user core.User) core.ToolResult {
	state, err := e.db.GetState(ctx, user.Email)
	if err != nil {
		return failure(err.Error(), transientFailure)
	}
	if state == nil {
		return core.ToolResult{Success: true, Summary: "아직 분석된 상태 정보가 없어요."}
	}
	return core.ToolResult{Success: true, Data: state,
		Summary: fmt.Sprintf("에너지 %d, 스트레스 %d 상태예요.", state.EnergyLevel, state.StressLevel)}
}

func (e *Executor) getLongTermGoals(ctx context.Context, user core.User) core.ToolResult {
	profile, err := e.profile(ctx, user.Email)
	if err != nil {
		return failure(err.Error(), transientFailure)
	}
	goals := profile.LongTermGoals
	n := len(goals.All())
	if n == 0 {
		return core.ToolResult{Success: true, Data: goals, Summary: "등록된 장기 목표가 없어요."}
	}
	return core.ToolResult{Success: true, Data: goals, Summary: fmt.Sprintf("장기 목표 %d개를 찾았어요.", n)}
}

func (e *Executor) addSchedule(ctx context.Context, user core.User, args map[string]any) core.ToolResult {
	title, _ := args["title"].(string)
	date, _ := args["date"].(string)
	if title == "" || date == "" {
		return failure("title and date are required", "일정 제목과 날짜가 필요해요.")
	}
	start, _ := args["start_time"].(string)
	category, _ := args["category"].(string)
	duration := 30
	if d, ok := args["duration_minutes"].(float64); ok && d > 0 {
		duration = int(d)
	}

	entry := core.Schedule{
		ID:              uuid.NewString(),
		Title:           title,
		Category:        category,
		Date:            date,
		StartTime:       start,
		DurationMinutes: duration,
	}
	res := e.mutateSchedules(ctx, user, "add_schedule", func(schedules []core.Schedule) ([]core.Schedule, string, error) {
		return append(schedules, entry), fmt.Sprintf("'%s' 일정을 %s에 추가했어요.", title, date), nil
	})
	if res.Success {
		res.Data = entry
	}
	return res
}

func (e *Executor) updateSchedule(ctx context.Context, user core.User, args map[string]any) core.ToolResult {
	id, _ := args["schedule_id"].(string)
	if id == "" {
		return failure("schedule_id is required", "수정할 일정을 찾을 수 없어요.")
	}
	return e.mutateSchedules(ctx, user, "update_schedule", func(schedules []core.Schedule) ([]core.Schedule, string, error) {
		idx := indexOf(schedules, id)
		if idx < 0 {
			return nil, "", fmt.Errorf("schedule %q not found", id)
		}
		s := &schedules[idx]
		if v, ok := args["title"].(string); ok && v != "" {
			s.Title = v
		}
		if v, ok := args["date"].(string); ok && v != "" {
			s.Date = v
		}
		if v, ok := args["start_time"].(string); ok && v != "" {
			s.StartTime = v
		}
		if v, ok := args["duration_minutes"].(float64); ok && v > 0 {
			s.DurationMinutes = int(v)
		}
		if v, ok := args["completed"].(bool); ok {
			s.Completed = v
		}
		return schedules, fmt.Sprintf("'%s' 일정을 수정했어요.", s.Title), nil
	})
}

func (e *Executor) deleteSchedule(ctx context.Context, user core.User, args map[string]any) core.ToolResult {
	id, _ := args["schedule_id"].(string)
	if id == "" {
		return failure("schedule_id is required", "삭제할 일정을 찾을 수 없어요.")
	}
	return e.mutateSchedules(ctx, user, "delete_schedule", func(schedules []core.Schedule) ([]core.Schedule, string, error) {
		idx := indexOf(schedules, id)
		if idx < 0 {
			return nil, "", fmt.Errorf("schedule %q not found", id)
		}
		title := schedules[idx].Title
		out := append(schedules[:idx:idx], schedules[idx+1:]...)
		return out, fmt.Sprintf("'%s' 일정을 삭제했어요.", title), nil
	})
}

func (e *Executor) recommendResources(ctx context.Context, user core.User, args map[string]any) core.ToolResult {
	topic, _ := args["topic"].(string)
	if topic == "" {
		return failure("topic is required", "어떤 주제의 자료가 필요한지 알려 주세요.")
	}
	text, err := e.caps.RecommendResources(ctx, user, topic)
	if err != nil {
		e.log.Warn("resource recommendation failed", zap.String("user", user.Email), zap.Error(err))
		return failure(err.Error(), transientFailure)
	}
	if _, err := e.db.InsertResource(ctx, user.Email, "resource_list", topic, text, e.clock.Now()); err != nil {
		e.log.Warn("resource persist failed", zap.String("user", user.Email), zap.Error(err))
	}
	return core.ToolResult{Success: true, Data: text, Summary: fmt.Sprintf("'%s' 관련 자료를 찾았어요.", topic)}
}

func (e *Executor) getRecentEvents(ctx context.Context, user core.User, args map[string]any) core.ToolResult {
	hours := 24
	if h, ok := args["window_hours"].(float64); ok && h > 0 {
		hours = int(h)
	}
	events := e.obs.RecentEvents(ctx, user.Email, hours)
	if len(events) == 0 {
		return core.ToolResult{Success: true, Data: []map[string]any{}, Summary: "최근 활동 기록이 없어요."}
	}
	now := e.clock.Now()
	data := make([]map[string]any, 0, len(events))
	for _, ev := range events {
		data = append(data, map[string]any{
			"type":    string(ev.Type),
			"payload": ev.Payload,
			"when":    humanize.RelTime(ev.OccurredAt, now, "ago", "from now"),
		})
	}
	return core.ToolResult{Success: true, Data: data, Summary: fmt.Sprintf("최근 %d시간 동안의 활동 %d건이에요.", hours, len(events))}
}

// mutateSchedules reads the profile once, lets fn rewrite the schedule
// list on a copy, writes the whole profile back atomically, then
// invalidates the cache and records the action for suppression checks by
// the scheduled pipeline.
func (e *Executor) mutateSchedules(ctx context.Context, user core.User, action string, fn func([]core.Schedule) ([]core.Schedule, string, error)) core.ToolResult {
	profile, err := e.profile(ctx, user.Email)
	if err != nil {
		return failure(err.Error(), transientFailure)
	}
	schedules := make([]core.Schedule, len(profile.CustomGoals))
	copy(schedules, profile.CustomGoals)

	updated, desc, err := fn(schedules)
	if err != nil {
		return failure(err.Error(), "요청한 일정을 찾지 못했어요. 일정 목록을 먼저 확인해 주세요.")
	}
	profile.CustomGoals = updated

	if err := e.db.UpdateProfile(ctx, user.Email, profile); err != nil {
		return failure(err.Error(), transientFailure)
	}
	e.profiles.Remove(user.Email)

	if err := e.db.InsertAgentAction(ctx, user.Email, "react", action, e.clock.Now()); err != nil {
		e.log.Warn("agent action record failed", zap.String("user", user.Email), zap.Error(err))
	}
	return core.ToolResult{Success: true, Summary: desc}
}

// profile returns the cached profile or loads and caches it.
func (e *Executor) profile(ctx context.Context, userEmail string) (core.Profile, error) {
	if p, ok := e.profiles.Get(userEmail); ok {
		return p, nil
	}
	p, err := e.db.GetProfile(ctx, userEmail)
	if err != nil {
		return core.Profile{}, err
	}
	e.profiles.Add(userEmail, p)
	return p, nil
}

func indexOf(schedules []core.Schedule, id string) int {
	for i, s := range schedules {
		if s.ID == id {
			return i
		}
	}
	return -1
}

func failure(errMsg, summary string) core.ToolResult {
	return core.ToolResult{Success: false, Error: errMsg, Summary: summary}
}
