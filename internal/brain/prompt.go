package brain

import (
	"fmt"
	"strings"

	"github.com/sagebot/sage/internal/core"
)

// forbiddenWords must never appear in a user-facing message. Pushy or
// shaming phrasing gets the whole plan discarded.
var forbiddenWords = []string{
	"해야만", "실패", "게으르", "한심", "당장",
	"lazy", "failure", "must",
}

const persona = `당신은 학습 대시보드에 내장된 차분한 개인 비서입니다. ` +
	`사용자를 재촉하지 않고, 관찰한 상태에 맞는 작은 개입 하나를 제안합니다.`

const procedure = `다음 다섯 단계를 순서대로 따르세요:
1. 상태 요약에서 가장 부담이 큰 신호 하나를 고른다.
2. 그 신호를 줄일 수 있는 행동 유형 하나를 action_type에서 고른다.
3. 행동에 필요한 최소한의 정보만 action_payload에 담는다.
4. 한두 문장의 부드러운 message를 쓴다.
5. 선택 이유를 reasoning에 간단히 적는다.`

// systemPrompt is deterministic: persona, the reasoning procedure, and
// the forbidden-word list, assembled the same way every call.
func systemPrompt() string {
	var b strings.Builder
	b.WriteString(persona)
	b.WriteString("\n\n")
	b.WriteString(procedure)
	b.WriteString("\n\n다음 표현은 절대 사용하지 마세요: ")
	b.WriteString(strings.Join(forbiddenWords, ", "))
	return b.String()
}

// userPrompt summarizes the decision and state for the model.
func userPrompt(user core.User, decision core.Decision, state *core.UserState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "개입 레벨: %s (점수 %.0f)\n", decision.Level, decision.Score)
	fmt.Fprintf(&b, "사유: %s\n", strings.Join(decision.ReasonCodes, ", "))
	fmt.Fprintf(&b, "에너지 %d, 스트레스 %d", state.EnergyLevel, state.StressLevel)
	if state.FocusWindowScore != nil {
		fmt.Fprintf(&b, ", 집중 가능성 %d", *state.FocusWindowScore)
	}
	if state.RoutineDeviation != nil {
		fmt.Fprintf(&b, ", 루틴 이탈 %d", *state.RoutineDeviation)
	}
	if state.DeadlinePressure != nil {
		fmt.Fprintf(&b, ", 마감 압박 %d", *state.DeadlinePressure)
	}
	b.WriteString("\n이 사용자를 위한 개입 계획 하나를 JSON으로 작성하세요.")
	return b.String()
}

// planSchema is the fixed JSON schema for the structured planning call.
func planSchema() map[string]any {
	actions := make([]string, 0, 6)
	for _, a := range core.ActionTypes() {
		actions = append(actions, string(a))
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"action_type": map[string]any{
				"type": "string",
				"enum": actions,
			},
			"action_payload": map[string]any{"type": "object"},
			"message":        map[string]any{"type": "string"},
			"reasoning":      map[string]any{"type": "string"},
		},
		"required":             []string{"action_type", "action_payload", "message", "reasoning"},
		"additionalProperties": false,
	}
}
