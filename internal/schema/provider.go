package schema

import "context"

// CompleteOptions configures a single completion request.
type CompleteOptions struct {
	Model       string
	ForceJSON   bool // ask the provider for a strict JSON object response
	Temperature float64
}

// AgentSpec describes a short-lived web-search agent.
type AgentSpec struct {
	Model        string
	Name         string
	Description  string
	Instructions string
	WebSearch    bool
}

// ConversationOutput is one entry of a conversation response. The final
// answer carries Type "message.output"; tool execution traces use other types.
type ConversationOutput struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// LLMProvider is the single-shot completion interface used for extraction.
type LLMProvider interface {
	Complete(ctx context.Context, prompt string, opts CompleteOptions) (string, error)
	DefaultModel() string
}

// SearchProvider is the agentic web-search interface. An agent is created
// once per search and a conversation started against it; the caller scans
// the outputs for the final message entry.
type SearchProvider interface {
	CreateAgent(ctx context.Context, spec AgentSpec) (string, error)
	StartConversation(ctx context.Context, agentID, input string) ([]ConversationOutput, error)
}
