package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/genflow/genflow/engine/core"
	"github.com/genflow/genflow/engine/event"
	llmadapter "github.com/genflow/genflow/engine/llm/adapter"
	"github.com/genflow/genflow/engine/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedClient struct {
	replies []string
	errs    []error
	calls   int
	usage   *event.Usage
}

func (c *scriptedClient) GenerateContent(_ context.Context, _ *llmadapter.LLMRequest) (*llmadapter.LLMResponse, error) {
	idx := c.calls
	c.calls++
	if idx < len(c.errs) && c.errs[idx] != nil {
		return nil, c.errs[idx]
	}
	if idx >= len(c.replies) {
		return nil, errors.New("no scripted reply left")
	}
	return &llmadapter.LLMResponse{Content: c.replies[idx], Usage: c.usage}, nil
}

func (c *scriptedClient) StreamContent(
	ctx context.Context,
	req *llmadapter.LLMRequest,
	fn llmadapter.StreamFunc,
) (*llmadapter.LLMResponse, error) {
	resp, err := c.GenerateContent(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := fn(ctx, resp.Content); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *scriptedClient) Close() error { return nil }

type scriptedTools struct {
	calls int
}

func (s *scriptedTools) Invoke(_ context.Context, name, _ string) (string, error) {
	s.calls++
	return fmt.Sprintf("%s-observation-%d", name, s.calls), nil
}

func testQueue(t *testing.T) *queue.Manager {
	t.Helper()
	return queue.NewMessageManager(
		core.MustNewID(), "user-1", core.InvokeFromDebugger, core.AppModeAgentChat,
		core.MustNewID(), core.MustNewID(), nil, nil,
	)
}

func drainQueue(t *testing.T, qm *queue.Manager) []event.Message {
	t.Helper()
	msgs, err := qm.Listen(context.Background())
	require.NoError(t, err)
	var out []event.Message
	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				return out
			}
			out = append(out, msg)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out draining queue")
		}
	}
}

func TestCotRunner_Run(t *testing.T) {
	t.Run("Should finish on a final answer and publish the terminal", func(t *testing.T) {
		client := &scriptedClient{
			replies: []string{"Thought: I know the final answer\nFinal Answer: 42"},
			usage:   &event.Usage{PromptTokens: 20, CompletionTokens: 22, TotalTokens: 42},
		}
		qm := testQueue(t)
		runner := NewCotRunner(client, &scriptedTools{}, qm, Config{Query: "what is the answer"})

		answer, err := runner.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "42", answer)
		assert.Equal(t, StateFinal, runner.State())

		got := drainQueue(t, qm)
		require.Len(t, got, 3)
		assert.IsType(t, event.AgentThought{}, got[0].Event)
		assert.Equal(t, event.TextDelta{Text: "42"}, got[1].Event)
		end, ok := got[2].Event.(event.MessageEnd)
		require.True(t, ok)
		assert.Equal(t, 42, end.Metadata.Usage.TotalTokens)
	})

	t.Run("Should iterate through tool calls and publish each thought", func(t *testing.T) {
		client := &scriptedClient{replies: []string{
			"Thought: need the weather\nAction: {\"action\": \"search\", \"action_input\": \"weather\"}",
			"Thought: done\nFinal Answer: It is sunny.",
		}}
		tools := &scriptedTools{}
		qm := testQueue(t)
		runner := NewCotRunner(client, tools, qm, Config{Query: "weather?"})

		answer, err := runner.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "It is sunny.", answer)
		assert.Equal(t, 1, tools.calls)
		require.Len(t, runner.Scratchpad(), 2)
		assert.Equal(t, "search-observation-1", runner.Scratchpad()[0].Observation)

		got := drainQueue(t, qm)
		require.Len(t, got, 5)
		first, ok := got[0].Event.(event.AgentThought)
		require.True(t, ok)
		assert.Equal(t, 1, first.Position)
		assert.Equal(t, "search", first.Action)
		assert.Equal(t, event.ToolInvoked{
			Tool:        "search",
			Input:       "weather",
			Observation: "search-observation-1",
		}, got[1].Event)
	})

	t.Run("Should force a synthetic final at the iteration budget", func(t *testing.T) {
		client := &scriptedClient{replies: []string{
			"Thought: step one\nAction: {\"action\": \"search\", \"action_input\": \"a\"}",
			"Thought: step two\nAction: {\"action\": \"search\", \"action_input\": \"b\"}",
			"Thought: never reached\nAction: {\"action\": \"search\", \"action_input\": \"c\"}",
		}}
		qm := testQueue(t)
		runner := NewCotRunner(client, &scriptedTools{}, qm, Config{Query: "q", MaxIterations: 2})

		answer, err := runner.Run(context.Background())
		require.NoError(t, err)
		// Exactly two model calls: the budget never buys a third iteration.
		assert.Equal(t, 2, client.calls)
		assert.Equal(t, "search-observation-2", answer)
		assert.Equal(t, StateFinal, runner.State())

		got := drainQueue(t, qm)
		require.NotEmpty(t, got)
		assert.IsType(t, event.MessageEnd{}, got[len(got)-1].Event)
	})

	t.Run("Should retry transient provider failures", func(t *testing.T) {
		client := &scriptedClient{
			replies: []string{"", "Final Answer: ok"},
			errs: []error{
				llmadapter.NewError(llmadapter.CategoryConnection, "openai", "connection reset", nil),
				nil,
			},
		}
		qm := testQueue(t)
		runner := NewCotRunner(client, &scriptedTools{}, qm, Config{Query: "q"})

		answer, err := runner.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "ok", answer)
		assert.Equal(t, 2, client.calls)
	})

	t.Run("Should surface non-retryable provider failures", func(t *testing.T) {
		client := &scriptedClient{
			errs: []error{llmadapter.NewError(llmadapter.CategoryAuthorization, "openai", "invalid api key", nil)},
		}
		qm := testQueue(t)
		runner := NewCotRunner(client, &scriptedTools{}, qm, Config{Query: "q"})

		_, err := runner.Run(context.Background())
		require.Error(t, err)
		llmErr, ok := llmadapter.AsError(err)
		require.True(t, ok)
		assert.Equal(t, llmadapter.CategoryAuthorization, llmErr.Category)
	})
}
