// Package capability wraps the domain enrichment functions the executor
// calls as black boxes: schedule-prep text, resource recommendation and
// habit insight. Callers own the timeout; a slow provider is abandoned,
// never waited out.
package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sagebot/sage/internal/core"
)

// Provider produces optional, best-effort enrichment content.
type Provider interface {
	BriefingText(ctx context.Context, user core.User, schedules []core.Schedule) (string, error)
	RecommendResources(ctx context.Context, user core.User, topic string) (string, error)
	HabitInsight(ctx context.Context, user core.User, events []core.Event) (string, error)
}

// LLMProvider backs every capability with one small structured model call.
type LLMProvider struct {
	llm core.LLMClient
}

func NewLLMProvider(llm core.LLMClient) *LLMProvider {
	return &LLMProvider{llm: llm}
}

var textSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"text": map[string]any{"type": "string"},
	},
	"required":             []string{"text"},
	"additionalProperties": false,
}

func (p *LLMProvider) complete(ctx context.Context, system, user string) (string, error) {
	raw, err := p.llm.CompleteStructured(ctx, core.StructuredRequest{
		System:      system,
		User:        user,
		SchemaName:  "text",
		Schema:      textSchema,
		Temperature: 0.4,
	})
	if err != nil {
		return "", err
	}
	var out struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("capability: decode: %w", err)
	}
	return out.Text, nil
}

func (p *LLMProvider) BriefingText(ctx context.Context, user core.User, schedules []core.Schedule) (string, error) {
	var b strings.Builder
	for _, s := range schedules {
		fmt.Fprintf(&b, "- %s %s %s (%d분)\n", s.Date, s.StartTime, s.Title, s.DurationMinutes)
	}
	return p.complete(ctx,
		"오늘 일정을 준비하는 짧은 체크리스트를 한국어로 작성하세요. 3개 항목 이내.",
		b.String())
}

func (p *LLMProvider) RecommendResources(ctx context.Context, user core.User, topic string) (string, error) {
	return p.complete(ctx,
		"주어진 주제의 학습에 도움이 될 자료 유형을 두세 가지 추천하세요. 짧게.",
		topic)
}

func (p *LLMProvider) HabitInsight(ctx context.Context, user core.User, events []core.Event) (string, error) {
	var b strings.Builder
	for _, e := range events {
		fmt.Fprintf(&b, "- %s %s\n", e.OccurredAt.Format("01-02 15:04"), e.Type)
	}
	return p.complete(ctx,
		"최근 활동 기록에서 눈에 띄는 습관 하나를 한 문장으로 짚어주세요.",
		b.String())
}
