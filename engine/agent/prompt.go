package agent

import (
	"fmt"
	"strings"

	llmadapter "github.com/genflow/genflow/engine/llm/adapter"
)

// PromptStyle selects how the reasoning prompt is rendered: as a chat-style
// multi-message request or as one completion-style string. Both renderers
// share the same contract.
type PromptStyle int

const (
	StyleChat PromptStyle = iota
	StyleCompletion
)

const reactFormatInstructions = `Use the following format:

Thought: reason about what to do next
Action: a JSON blob with "action" (one of the tool names) and "action_input"
Observation: the result of the action
... (Thought/Action/Observation can repeat)
Thought: I know the final answer
Final Answer: the answer to the original question`

func renderToolDescriptions(tools []Tool) string {
	if len(tools) == 0 {
		return "You have no tools available."
	}
	var b strings.Builder
	b.WriteString("You have access to the following tools:\n")
	for _, t := range tools {
		fmt.Fprintf(&b, "- %s: %s\n", t.Name, t.Description)
	}
	return b.String()
}

// toolDefinitions converts the loop's tools into the adapter's request shape
// so providers with native tool support receive them alongside the prompt.
func toolDefinitions(tools []Tool) []llmadapter.ToolDefinition {
	if len(tools) == 0 {
		return nil
	}
	defs := make([]llmadapter.ToolDefinition, len(tools))
	for i, t := range tools {
		defs[i] = llmadapter.ToolDefinition{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		}
	}
	return defs
}

type promptRenderer interface {
	Render(cfg *Config, scratchpad []ScratchpadUnit) *llmadapter.LLMRequest
}

func rendererFor(style PromptStyle) promptRenderer {
	if style == StyleCompletion {
		return completionRenderer{}
	}
	return chatRenderer{}
}

// chatRenderer builds a multi-message request: instructions and tool usage in
// the system prompt, conversation history as-is, then the query, then the
// scratchpad so far as an assistant turn.
type chatRenderer struct{}

func (chatRenderer) Render(cfg *Config, scratchpad []ScratchpadUnit) *llmadapter.LLMRequest {
	system := strings.Join([]string{
		cfg.Instruction,
		renderToolDescriptions(cfg.Tools),
		reactFormatInstructions,
	}, "\n\n")
	messages := make([]llmadapter.Message, 0, len(cfg.History)+2)
	messages = append(messages, cfg.History...)
	messages = append(messages, llmadapter.Message{Role: llmadapter.RoleUser, Content: cfg.Query})
	if len(scratchpad) > 0 {
		messages = append(messages, llmadapter.Message{
			Role:    llmadapter.RoleAssistant,
			Content: serializeScratchpad(scratchpad),
		})
	}
	return &llmadapter.LLMRequest{
		SystemPrompt: system,
		Messages:     messages,
		Tools:        toolDefinitions(cfg.Tools),
		Options: llmadapter.CallOptions{
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			StopWords:   []string{"Observation:"},
		},
	}
}

// completionRenderer flattens everything into one prompt string for
// completion-only models.
type completionRenderer struct{}

func (completionRenderer) Render(cfg *Config, scratchpad []ScratchpadUnit) *llmadapter.LLMRequest {
	var b strings.Builder
	b.WriteString(cfg.Instruction)
	b.WriteString("\n\n")
	b.WriteString(renderToolDescriptions(cfg.Tools))
	b.WriteString("\n")
	b.WriteString(reactFormatInstructions)
	b.WriteString("\n\nBegin!\n\n")
	for _, msg := range cfg.History {
		fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Content)
	}
	fmt.Fprintf(&b, "Question: %s\n", cfg.Query)
	b.WriteString(serializeScratchpad(scratchpad))
	return &llmadapter.LLMRequest{
		Messages: []llmadapter.Message{{Role: llmadapter.RoleUser, Content: b.String()}},
		Tools:    toolDefinitions(cfg.Tools),
		Options: llmadapter.CallOptions{
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			StopWords:   []string{"Observation:"},
		},
	}
}
