// Package providers implements HTTP clients for the hosted LLM APIs.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/maitred-ai/maitred/internal/schema"
	"github.com/maitred-ai/maitred/internal/shared/llmutils"
)

const defaultAPIBase = "https://api.mistral.ai"

// MistralProvider makes direct HTTP calls to the Mistral chat-completion and
// agents APIs. It implements schema.LLMProvider and schema.SearchProvider.
type MistralProvider struct {
	apiKey       string
	apiBase      string
	defaultModel string
	httpClient   *http.Client
}

// NewMistralProvider constructs a provider from raw config values.
// apiBase defaults to the public Mistral endpoint when empty.
func NewMistralProvider(apiKey, apiBase, defaultModel string) *MistralProvider {
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	if defaultModel == "" {
		defaultModel = "mistral-large-latest"
	}
	return &MistralProvider{
		apiKey:       apiKey,
		apiBase:      strings.TrimRight(apiBase, "/"),
		defaultModel: defaultModel,
		httpClient:   &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *MistralProvider) DefaultModel() string { return p.defaultModel }

// Complete sends one chat completion request and returns the text payload.
func (p *MistralProvider) Complete(ctx context.Context, prompt string, opts schema.CompleteOptions) (string, error) {
	model := opts.Model
	if model == "" {
		model = p.defaultModel
	}

	body := map[string]any{
		"model": model,
		"messages": []map[string]any{
			{"role": "user", "content": prompt},
		},
	}
	if opts.ForceJSON {
		body["response_format"] = map[string]any{"type": "json_object"}
	}
	if opts.Temperature > 0 {
		body["temperature"] = opts.Temperature
	}

	raw, err := p.post(ctx, "/v1/chat/completions", body)
	if err != nil {
		return "", err
	}

	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("parse completion response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty choices in completion response")
	}
	return resp.Choices[0].Message.Content, nil
}

// CreateAgent registers a short-lived agent and returns its id.
func (p *MistralProvider) CreateAgent(ctx context.Context, spec schema.AgentSpec) (string, error) {
	model := spec.Model
	if model == "" {
		model = p.defaultModel
	}

	body := map[string]any{
		"model":        model,
		"name":         spec.Name,
		"description":  spec.Description,
		"instructions": spec.Instructions,
	}
	if spec.WebSearch {
		body["tools"] = []map[string]any{{"type": "web_search"}}
	}

	raw, err := p.post(ctx, "/v1/agents", body)
	if err != nil {
		return "", err
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("parse agent response: %w", err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("agent response missing id")
	}
	return resp.ID, nil
}

// StartConversation runs one conversation turn against an agent and returns
// its output entries in order.
func (p *MistralProvider) StartConversation(ctx context.Context, agentID, input string) ([]schema.ConversationOutput, error) {
	body := map[string]any{
		"agent_id": agentID,
		"inputs":   input,
	}

	raw, err := p.post(ctx, "/v1/conversations", body)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Outputs []struct {
			Type    string          `json:"type"`
			Content json.RawMessage `json:"content"`
		} `json:"outputs"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("parse conversation response: %w", err)
	}

	out := make([]schema.ConversationOutput, 0, len(resp.Outputs))
	for _, o := range resp.Outputs {
		out = append(out, schema.ConversationOutput{
			Type:    o.Type,
			Content: flattenContent(o.Content),
		})
	}
	return out, nil
}

// flattenContent accepts either a plain string or an array of text chunks
// ({"type":"text","text":…}) and returns the concatenated text.
func flattenContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var chunks []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if json.Unmarshal(raw, &chunks) == nil {
		var sb strings.Builder
		for _, c := range chunks {
			if c.Type == "text" || c.Type == "" {
				sb.WriteString(c.Text)
			}
		}
		return sb.String()
	}
	return string(raw)
}

func (p *MistralProvider) post(ctx context.Context, path string, body map[string]any) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiBase+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, friendlyHTTPError(resp.StatusCode, raw))
	}
	return raw, nil
}

func friendlyHTTPError(code int, body []byte) string {
	if code == http.StatusTooManyRequests {
		return "rate limit exceeded"
	}
	return llmutils.Truncate(strings.TrimSpace(string(body)), 300)
}
