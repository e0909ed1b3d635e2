package llmadapter

import (
	"context"

	"github.com/genflow/genflow/engine/event"
)

// Role constants for conversation messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// LLMRequest represents a request to the model, independent of provider.
type LLMRequest struct {
	SystemPrompt string
	Messages     []Message
	Tools        []ToolDefinition
	Options      CallOptions
}

// Message represents one conversation turn.
type Message struct {
	Role    string
	Content string
}

// ToolDefinition describes a tool offered to the model.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON Schema
}

// CallOptions represents per-call generation options.
type CallOptions struct {
	Temperature float64
	MaxTokens   int
	StopWords   []string
}

// LLMResponse represents the complete response from the model.
type LLMResponse struct {
	Content string
	Usage   *event.Usage
}

// StreamFunc receives each content delta as the provider produces it.
// Returning an error aborts the stream.
type StreamFunc func(ctx context.Context, chunk string) error

// LLMClient is the model invocation boundary consumed by the agent loop and
// the plain chat/completion producers.
type LLMClient interface {
	// GenerateContent performs a one-shot call.
	GenerateContent(ctx context.Context, req *LLMRequest) (*LLMResponse, error)
	// StreamContent performs a streaming call, invoking fn per delta before
	// returning the aggregated response.
	StreamContent(ctx context.Context, req *LLMRequest, fn StreamFunc) (*LLMResponse, error)
	// Close cleans up any resources held by the client.
	Close() error
}

// ProviderConfig selects and authenticates a model provider.
type ProviderConfig struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// Factory creates LLMClient instances for a provider configuration.
type Factory interface {
	CreateClient(ctx context.Context, config *ProviderConfig) (LLMClient, error)
}
