package llmadapter

import (
	"context"
	"fmt"

	"github.com/genflow/genflow/engine/event"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// LangChainAdapter adapts langchaingo models to the LLMClient interface.
type LangChainAdapter struct {
	model    llms.Model
	provider ProviderConfig
	parser   *ErrorParser
}

func NewLangChainAdapter(config *ProviderConfig) (*LangChainAdapter, error) {
	if config == nil {
		return nil, NewError(CategoryNotInitialized, "", "provider config is required", nil)
	}
	model, err := buildModel(config)
	if err != nil {
		return nil, NewError(CategoryNotInitialized, config.Provider, err.Error(), err)
	}
	return &LangChainAdapter{
		model:    model,
		provider: *config,
		parser:   NewErrorParser(config.Provider),
	}, nil
}

func buildModel(config *ProviderConfig) (llms.Model, error) {
	switch config.Provider {
	case "openai":
		opts := []openai.Option{openai.WithModel(config.Model)}
		if config.APIKey != "" {
			opts = append(opts, openai.WithToken(config.APIKey))
		}
		if config.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(config.BaseURL))
		}
		return openai.New(opts...)
	case "anthropic":
		opts := []anthropic.Option{anthropic.WithModel(config.Model)}
		if config.APIKey != "" {
			opts = append(opts, anthropic.WithToken(config.APIKey))
		}
		return anthropic.New(opts...)
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(config.Model)}
		if config.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(config.BaseURL))
		}
		return ollama.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", config.Provider)
	}
}

// GenerateContent implements LLMClient.
func (a *LangChainAdapter) GenerateContent(ctx context.Context, req *LLMRequest) (*LLMResponse, error) {
	response, err := a.model.GenerateContent(ctx, a.convertMessages(req), a.buildCallOptions(req)...)
	if err != nil {
		return nil, a.parser.ParseError(err)
	}
	return a.convertResponse(response)
}

// StreamContent implements LLMClient.
func (a *LangChainAdapter) StreamContent(
	ctx context.Context,
	req *LLMRequest,
	fn StreamFunc,
) (*LLMResponse, error) {
	options := a.buildCallOptions(req)
	options = append(options, llms.WithStreamingFunc(func(cbCtx context.Context, chunk []byte) error {
		return fn(cbCtx, string(chunk))
	}))
	response, err := a.model.GenerateContent(ctx, a.convertMessages(req), options...)
	if err != nil {
		return nil, a.parser.ParseError(err)
	}
	return a.convertResponse(response)
}

func (a *LangChainAdapter) convertMessages(req *LLMRequest) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.SystemPrompt))
	}
	for _, msg := range req.Messages {
		messages = append(messages, llms.TextParts(mapMessageRole(msg.Role), msg.Content))
	}
	return messages
}

func mapMessageRole(role string) llms.ChatMessageType {
	switch role {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

func (a *LangChainAdapter) buildCallOptions(req *LLMRequest) []llms.CallOption {
	var options []llms.CallOption
	if req.Options.Temperature > 0 {
		options = append(options, llms.WithTemperature(req.Options.Temperature))
	}
	if req.Options.MaxTokens > 0 {
		options = append(options, llms.WithMaxTokens(req.Options.MaxTokens))
	}
	if len(req.Options.StopWords) > 0 {
		options = append(options, llms.WithStopWords(req.Options.StopWords))
	}
	if len(req.Tools) > 0 {
		options = append(options, llms.WithTools(convertTools(req.Tools)))
	}
	return options
}

func convertTools(defs []ToolDefinition) []llms.Tool {
	tools := make([]llms.Tool, len(defs))
	for i, def := range defs {
		tools[i] = llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		}
	}
	return tools
}

func (a *LangChainAdapter) convertResponse(response *llms.ContentResponse) (*LLMResponse, error) {
	if response == nil || len(response.Choices) == 0 {
		return nil, NewError(CategoryUnknown, a.provider.Provider, "empty response from model", nil)
	}
	choice := response.Choices[0]
	out := &LLMResponse{Content: choice.Content}
	if choice.GenerationInfo != nil {
		usage := &event.Usage{}
		if v, ok := choice.GenerationInfo["PromptTokens"].(int); ok {
			usage.PromptTokens = v
		}
		if v, ok := choice.GenerationInfo["CompletionTokens"].(int); ok {
			usage.CompletionTokens = v
		}
		if v, ok := choice.GenerationInfo["TotalTokens"].(int); ok {
			usage.TotalTokens = v
		}
		if usage.TotalTokens == 0 {
			usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
		}
		out.Usage = usage
	}
	return out, nil
}

// Close implements LLMClient.
func (a *LangChainAdapter) Close() error {
	return nil
}
