// Package tools is the interactive execution surface: a fixed catalog of
// named operations gated by subscription tier, dispatched by an executor
// that always answers with the same result envelope.
package tools

import "github.com/sagebot/sage/internal/core"

// Definition is one static catalog entry. Immutable configuration, not
// user data.
type Definition struct {
	Name                 string
	Description          string
	Parameters           map[string]any // JSON Schema
	RequiresConfirmation bool
	PlanGate             map[core.Tier]bool
}

// RespondTool is the terminal tool: selecting it ends the loop and its
// message argument becomes the user-visible response, unmodified.
const RespondTool = "respond"

func allTiers() map[core.Tier]bool {
	return map[core.Tier]bool{core.TierFree: true, core.TierPlus: true, core.TierPro: true}
}

func paidTiers() map[core.Tier]bool {
	return map[core.Tier]bool{core.TierPlus: true, core.TierPro: true}
}

func proOnly() map[core.Tier]bool {
	return map[core.Tier]bool{core.TierPro: true}
}

// Definitions returns the full tool catalog.
func Definitions() []Definition {
	return []Definition{
		{
			Name:        "get_today_schedules",
			Description: "Read today's schedule entries for the user.",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
			PlanGate: allTiers(),
		},
		{
			Name:        "get_user_state",
			Description: "Read the user's current derived state scores.",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
			PlanGate: allTiers(),
		},
		{
			Name:        "get_long_term_goals",
			Description: "Read the user's weekly, monthly and yearly goals.",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
			PlanGate: allTiers(),
		},
		{
			Name:        "add_schedule",
			Description: "Add a schedule entry to the user's plan.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title":            map[string]any{"type": "string", "description": "Schedule title"},
					"date":             map[string]any{"type": "string", "description": "YYYY-MM-DD"},
					"start_time":       map[string]any{"type": "string", "description": "HH:MM"},
					"duration_minutes": map[string]any{"type": "integer", "description": "Length in minutes"},
					"category":         map[string]any{"type": "string", "description": "Category tag (optional)"},
				},
				"required": []string{"title", "date"},
			},
			RequiresConfirmation: true,
			PlanGate:             paidTiers(),
		},
		{
			Name:        "update_schedule",
			Description: "Update fields of an existing schedule entry.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"schedule_id":      map[string]any{"type": "string", "description": "Schedule id"},
					"title":            map[string]any{"type": "string"},
					"date":             map[string]any{"type": "string", "description": "YYYY-MM-DD"},
					"start_time":       map[string]any{"type": "string", "description": "HH:MM"},
					"duration_minutes": map[string]any{"type": "integer"},
					"completed":        map[string]any{"type": "boolean"},
				},
				"required": []string{"schedule_id"},
			},
			RequiresConfirmation: true,
			PlanGate:             paidTiers(),
		},
		{
			Name:        "delete_schedule",
			Description: "Delete a schedule entry.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"schedule_id": map[string]any{"type": "string", "description": "Schedule id"},
				},
				"required": []string{"schedule_id"},
			},
			RequiresConfirmation: true,
			PlanGate:             paidTiers(),
		},
		{
			Name:        "recommend_resources",
			Description: "Suggest learning resources for a topic.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"topic": map[string]any{"type": "string", "description": "Topic to find resources for"},
				},
				"required": []string{"topic"},
			},
			PlanGate: paidTiers(),
		},
		{
			Name:        "get_recent_events",
			Description: "Read recent activity events for the user.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"window_hours": map[string]any{"type": "integer", "description": "Lookback window (default 24)"},
				},
			},
			PlanGate: proOnly(),
		},
		{
			Name:        RespondTool,
			Description: "Finish the request and reply to the user with the given message.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"message": map[string]any{"type": "string", "description": "Final reply for the user"},
				},
				"required": []string{"message"},
			},
			PlanGate: allTiers(),
		},
	}
}

// AvailableTools filters the catalog by tier membership. This is the
// sole authorization mechanism: the executor does not re-check.
func AvailableTools(tier core.Tier) []Definition {
	var out []Definition
	for _, d := range Definitions() {
		if d.PlanGate[tier] {
			out = append(out, d)
		}
	}
	return out
}
