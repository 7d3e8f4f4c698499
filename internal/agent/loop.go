package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sagebot/sage/internal/core"
	"github.com/sagebot/sage/internal/tools"
)

const loopTemperature = 0.3

const loopFallback = "요청을 끝까지 처리하지 못했어요. 조금 더 구체적으로 다시 물어봐 주시겠어요?"

const loopPersona = `당신은 학습 대시보드에 내장된 차분한 개인 비서입니다. ` +
	`사용자의 요청을 처리하기 위해 주어진 도구 중 하나를 한 번에 하나씩 고릅니다. ` +
	`필요한 정보를 모두 모았으면 respond 도구로 최종 답변을 전달하세요.`

// Loop answers one interactive request by repeatedly asking the model to
// pick a tool from the user's tier catalog, executing it, and feeding the
// result back. The respond tool terminates the loop; hitting the tier's
// iteration cap yields a fixed fallback instead of a half answer.
type Loop struct {
	llm  core.LLMClient
	exec *tools.Executor
	log  *zap.Logger
}

func NewLoop(llm core.LLMClient, exec *tools.Executor, log *zap.Logger) *Loop {
	return &Loop{llm: llm, exec: exec, log: log.Named("loop")}
}

// Run processes one user message and returns the reply text.
func (l *Loop) Run(ctx context.Context, user core.User, message string) string {
	catalog := tools.AvailableTools(user.Tier)
	var steps []string

	for i := 0; i < user.Tier.LoopIterations(); i++ {
		call, err := l.selectTool(ctx, catalog, message, steps)
		if err != nil {
			l.log.Warn("tool selection failed",
				zap.String("user", user.Email), zap.Int("iteration", i), zap.Error(err))
			return loopFallback
		}

		res := l.exec.Execute(ctx, user, call)
		if call.Name == tools.RespondTool && res.Success {
			if msg, ok := res.Data.(string); ok && msg != "" {
				return msg
			}
			return loopFallback
		}

		steps = append(steps, renderStep(call, res))
	}

	l.log.Info("iteration cap reached",
		zap.String("user", user.Email), zap.Int("cap", user.Tier.LoopIterations()))
	return loopFallback
}

// selectTool makes one structured model call constrained to the catalog.
func (l *Loop) selectTool(ctx context.Context, catalog []tools.Definition, message string, steps []string) (core.ToolCall, error) {
	raw, err := l.llm.CompleteStructured(ctx, core.StructuredRequest{
		System:      loopSystemPrompt(catalog),
		User:        loopUserPrompt(message, steps),
		SchemaName:  "tool_call",
		Schema:      toolCallSchema(catalog),
		Temperature: loopTemperature,
	})
	if err != nil {
		return core.ToolCall{}, err
	}
	var call core.ToolCall
	if err := json.Unmarshal(raw, &call); err != nil {
		return core.ToolCall{}, fmt.Errorf("unparseable tool call: %w", err)
	}
	return call, nil
}

func loopSystemPrompt(catalog []tools.Definition) string {
	var b strings.Builder
	b.WriteString(loopPersona)
	b.WriteString("\n\n사용 가능한 도구:\n")
	for _, d := range catalog {
		params, _ := json.Marshal(d.Parameters)
		fmt.Fprintf(&b, "- %s: %s\n  parameters: %s\n", d.Name, d.Description, params)
	}
	return b.String()
}

func loopUserPrompt(message string, steps []string) string {
	var b strings.Builder
	b.WriteString("사용자 요청: ")
	b.WriteString(message)
	if len(steps) > 0 {
		b.WriteString("\n\n지금까지 실행한 도구와 결과:\n")
		for i, s := range steps {
			fmt.Fprintf(&b, "%d. %s\n", i+1, s)
		}
	}
	b.WriteString("\n다음에 실행할 도구 하나를 JSON으로 고르세요.")
	return b.String()
}

// toolCallSchema constrains the tool name to the catalog; arguments stay
// an open object validated by each handler.
func toolCallSchema(catalog []tools.Definition) map[string]any {
	names := make([]string, 0, len(catalog))
	for _, d := range catalog {
		names = append(names, d.Name)
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"tool": map[string]any{
				"type": "string",
				"enum": names,
			},
			"arguments": map[string]any{"type": "object"},
		},
		"required":             []string{"tool", "arguments"},
		"additionalProperties": false,
	}
}

// renderStep flattens one executed call into transcript text the next
// model call can read.
func renderStep(call core.ToolCall, res core.ToolResult) string {
	var b strings.Builder
	b.WriteString(call.Name)
	if !res.Success {
		b.WriteString(" (실패)")
	}
	b.WriteString(": ")
	b.WriteString(res.Summary)
	if res.Data != nil {
		if data, err := json.Marshal(res.Data); err == nil && len(data) > 2 {
			b.WriteString(" ")
			b.Write(data)
		}
	}
	return b.String()
}
