package core

import "time"

// Tier is a subscription level. It gates tool availability, intervention
// levels, durable event logging, and the monthly model-call budget.
type Tier string

const (
	TierFree Tier = "free"
	TierPlus Tier = "plus"
	TierPro  Tier = "pro"
)

// ParseTier maps a stored string to a Tier, defaulting to free.
func ParseTier(s string) Tier {
	switch Tier(s) {
	case TierPlus:
		return TierPlus
	case TierPro:
		return TierPro
	default:
		return TierFree
	}
}

// MaxLevel is the highest intervention level the tier permits.
func (t Tier) MaxLevel() Level {
	switch t {
	case TierPro:
		return LevelAuto
	case TierPlus:
		return LevelSoft
	default:
		return LevelObserve
	}
}

// HasDurableMemory reports whether event logging persists for the tier.
func (t Tier) HasDurableMemory() bool {
	return t == TierPlus || t == TierPro
}

// AICallBudget is the monthly model-call cap for scheduled interventions.
func (t Tier) AICallBudget() int {
	switch t {
	case TierPro:
		return 500
	case TierPlus:
		return 100
	default:
		return 0
	}
}

// LoopIterations is the tool-loop cap for interactive requests.
func (t Tier) LoopIterations() int {
	switch t {
	case TierPro:
		return 5
	case TierPlus:
		return 4
	default:
		return 3
	}
}

// Level is an intervention autonomy level, from silent logging (L0) to
// fully automatic execution with rollback (L4).
type Level int

const (
	LevelObserve Level = iota // L0: log only
	LevelSilent               // L1: non-notifying preparation
	LevelSoft                 // L2: deduplicated notification
	LevelDirect               // L3: confirmation request, user executes
	LevelAuto                 // L4: automatic execution, rollbackable
)

func (l Level) String() string {
	switch l {
	case LevelObserve:
		return "L0"
	case LevelSilent:
		return "L1"
	case LevelSoft:
		return "L2"
	case LevelDirect:
		return "L3"
	case LevelAuto:
		return "L4"
	}
	return "L?"
}

// ActionType is the closed set of intervention actions the brain may plan.
type ActionType string

const (
	ActionPrepareBriefing    ActionType = "prepare_briefing"
	ActionRecommendResources ActionType = "recommend_resources"
	ActionNudge              ActionType = "nudge"
	ActionMoveSchedule       ActionType = "move_schedule"
	ActionAddBufferTime      ActionType = "add_buffer_time"
	ActionSuggestSchedule    ActionType = "suggest_schedule"
)

// ActionTypes lists every known action type.
func ActionTypes() []ActionType {
	return []ActionType{
		ActionPrepareBriefing,
		ActionRecommendResources,
		ActionNudge,
		ActionMoveSchedule,
		ActionAddBufferTime,
		ActionSuggestSchedule,
	}
}

// Known reports whether a is one of the six planned action types.
func (a ActionType) Known() bool {
	for _, t := range ActionTypes() {
		if a == t {
			return true
		}
	}
	return false
}

// RequiresConfirmation reports whether the action mutates the schedule and
// therefore needs the user's explicit approval below L4.
func (a ActionType) RequiresConfirmation() bool {
	switch a {
	case ActionMoveSchedule, ActionAddBufferTime, ActionSuggestSchedule:
		return true
	}
	return false
}

// Reason codes accumulated by the policy engine.
const (
	ReasonHighStress       = "high_stress"
	ReasonRoutineDeviation = "routine_deviation"
	ReasonDeadlinePressure = "deadline_pressure"
	ReasonLowEnergy        = "low_energy"

	ReasonPlanNotSupported  = "plan_not_supported"
	ReasonAILimitExceeded   = "ai_limit_exceeded"
	ReasonQuietHours        = "quiet_hours"
	ReasonCooldown          = "cooldown"
	ReasonRecentReactAction = "recent_react_action"
)

// ReasonAction maps a scoring reason to the action type the agent would
// most likely take for it. The policy engine weights each score term by
// the feedback multiplier of this action, and the brain's guardrails
// check it against the decision level.
func ReasonAction(reason string) (ActionType, bool) {
	switch reason {
	case ReasonHighStress:
		return ActionAddBufferTime, true
	case ReasonRoutineDeviation:
		return ActionNudge, true
	case ReasonDeadlinePressure:
		return ActionPrepareBriefing, true
	case ReasonLowEnergy:
		return ActionMoveSchedule, true
	}
	return "", false
}

// EventType classifies a logged user activity.
type EventType string

const (
	EventScheduleCompleted EventType = "schedule_completed"
	EventScheduleMissed    EventType = "schedule_missed"
	EventScheduleSnoozed   EventType = "schedule_snoozed"
	EventScheduleCreated   EventType = "schedule_created"
	EventQuizCompleted     EventType = "quiz_completed"
	EventMaterialViewed    EventType = "material_viewed"
	EventDrawingSaved      EventType = "drawing_saved"
	EventSessionStarted    EventType = "session_started"
)

// Event is one append-only record of user activity.
type Event struct {
	ID         int64          `json:"id"`
	UserEmail  string         `json:"user_email"`
	Type       EventType      `json:"event_type"`
	Payload    map[string]any `json:"payload"`
	Source     string         `json:"source"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Schedule is one entry of a user's daily plan (profile.customGoals).
type Schedule struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Category        string `json:"category"`
	Date            string `json:"date"`      // YYYY-MM-DD, user-local
	StartTime       string `json:"startTime"` // HH:MM
	DurationMinutes int    `json:"durationMinutes"`
	Completed       bool   `json:"completed"`
	Important       bool   `json:"important"`
}

// LongTermGoal is a weekly/monthly/yearly goal with a due date.
type LongTermGoal struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	DueDate   string `json:"dueDate"` // YYYY-MM-DD
	Progress  int    `json:"progress"`
	Completed bool   `json:"completed"`
}

// LongTermGoals groups goals by horizon.
type LongTermGoals struct {
	Weekly  []LongTermGoal `json:"weekly"`
	Monthly []LongTermGoal `json:"monthly"`
	Yearly  []LongTermGoal `json:"yearly"`
}

// All returns every goal across horizons.
func (g LongTermGoals) All() []LongTermGoal {
	out := make([]LongTermGoal, 0, len(g.Weekly)+len(g.Monthly)+len(g.Yearly))
	out = append(out, g.Weekly...)
	out = append(out, g.Monthly...)
	out = append(out, g.Yearly...)
	return out
}

// Profile is the JSON blob stored per user.
type Profile struct {
	CustomGoals   []Schedule    `json:"customGoals"`
	LongTermGoals LongTermGoals `json:"longTermGoals"`
}

// User is a row of the users table.
type User struct {
	Email string
	Name  string
	Tier  Tier
}

// UserState is the singleton per-user derived state. The three tier-gated
// scores are pointers: nil means "unknown", never zero.
type UserState struct {
	UserEmail          string
	EnergyLevel        int
	StressLevel        int
	FocusWindowScore   *int
	RoutineDeviation   *int
	DeadlinePressure   *int
	LastActiveAt       *time.Time
	LastInterventionAt *time.Time
	StateUpdatedAt     time.Time
}

// Decision is the policy engine's output. Ephemeral; produced fresh each
// call and never persisted.
type Decision struct {
	ShouldIntervene bool
	Level           Level
	ReasonCodes     []string
	Score           float64
}

// Plan is the brain's validated intervention plan, consumed once by hands.
type Plan struct {
	ActionType    ActionType     `json:"action_type"`
	ActionPayload map[string]any `json:"action_payload"`
	Message       string         `json:"message"`
	Reasoning     string         `json:"reasoning"`
}

// InterventionLog is a persisted record of a decision acted upon. The
// action payload may carry an embedded _originalState snapshot used for
// rollback, so rows are never deleted while rollback is possible.
type InterventionLog struct {
	ID            string
	UserEmail     string
	Level         Level
	ReasonCodes   []string
	ActionType    ActionType
	ActionPayload map[string]any
	UserFeedback  string
	IntervenedAt  time.Time
	FeedbackAt    *time.Time
}

// Preferences is the per-user agent configuration.
type Preferences struct {
	Enabled           bool
	MaxLevel          Level
	NotificationStyle string
	QuietHoursStart   int // hour of day, user-local
	QuietHoursEnd     int // wrap-around supported (start > end spans midnight)
	CooldownMinutes   int
	AutoActionOptIn   bool
}

// ToolCall is one tool selection made by the interactive loop.
type ToolCall struct {
	Name      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
}

// ToolResult is the uniform envelope every tool handler returns. Summary
// is always populated, including on failure, because the loop surfaces it
// directly when no other rendering is available.
type ToolResult struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Summary string `json:"summary"`
}
