// Package llm is the OpenRouter-backed implementation of core.LLMClient.
// One structured-output round trip per call, no streaming.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sagebot/sage/internal/core"
)

const BaseURL = "https://openrouter.ai/api/v1"

// Client calls the OpenRouter API with a JSON-schema response format.
type Client struct {
	APIKey  string
	Model   string
	BaseURL string
	HTTP    *http.Client
	Timeout time.Duration
}

// NewClient creates a client with the given API key and model. The
// timeout bounds every call; callers only stop waiting, they never need
// to cancel the underlying request beyond that.
func NewClient(apiKey, model string) *Client {
	return &Client{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: BaseURL,
		HTTP:    &http.Client{},
		Timeout: 20 * time.Second,
	}
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type       string     `json:"type"`
	JSONSchema jsonSchema `json:"json_schema"`
}

type jsonSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// CompleteStructured sends one structured-output request and returns the
// raw JSON content. Any malformed reply is the caller's problem to
// discard; this layer only guarantees valid transport and non-empty
// content.
func (c *Client) CompleteStructured(ctx context.Context, req core.StructuredRequest) (json.RawMessage, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("openrouter: API key not set")
	}
	if c.Model == "" {
		return nil, fmt.Errorf("openrouter: model not set")
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	name := req.SchemaName
	if name == "" {
		name = "response"
	}
	body := chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		Temperature: req.Temperature,
		ResponseFormat: &responseFormat{
			Type:       "json_schema",
			JSONSchema: jsonSchema{Name: name, Strict: true, Schema: req.Schema},
		},
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	// Exponential backoff for rate limits and server errors.
	var resp *http.Response
	backoff := 1 * time.Second
	maxRetries := 2
	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
		}
		httpReq, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(raw))
		if reqErr != nil {
			return nil, reqErr
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)

		resp, err = c.HTTP.Do(httpReq)
		if err != nil {
			continue
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			resp = nil
			continue
		}
		break
	}
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("openrouter: request failed after retries")
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openrouter: HTTP %d: %s", resp.StatusCode, string(bodyBytes))
	}
	var out chatResponse
	if err := json.Unmarshal(bodyBytes, &out); err != nil {
		return nil, fmt.Errorf("openrouter: decode: %w", err)
	}
	if out.Error != nil {
		return nil, fmt.Errorf("openrouter: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("openrouter: empty response")
	}
	return json.RawMessage(out.Choices[0].Message.Content), nil
}
