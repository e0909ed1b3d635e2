package converter_test

import (
	"encoding/json"
	"testing"

	"github.com/genflow/genflow/engine/converter"
	"github.com/genflow/genflow/engine/core"
	"github.com/genflow/genflow/engine/event"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatMessage(ev event.Event) event.Message {
	return event.Message{
		TaskID:         "task-1",
		AppMode:        core.AppModeChat,
		ConversationID: "conv-1",
		MessageID:      "msg-1",
		Event:          ev,
	}
}

func TestForAppMode(t *testing.T) {
	t.Run("Should pick the converter matching the app mode", func(t *testing.T) {
		assert.IsType(t, converter.ChatConverter{}, converter.ForAppMode(core.AppModeChat))
		assert.IsType(t, converter.ChatConverter{}, converter.ForAppMode(core.AppModeAgentChat))
		assert.IsType(t, converter.CompletionConverter{}, converter.ForAppMode(core.AppModeCompletion))
		assert.IsType(t, converter.WorkflowConverter{}, converter.ForAppMode(core.AppModeWorkflow))
	})
}

func TestChatConverter_ConvertChunk(t *testing.T) {
	conv := converter.ChatConverter{}

	t.Run("Should shape text deltas with full identity", func(t *testing.T) {
		chunk, ok := conv.ConvertChunk(chatMessage(event.TextDelta{Text: "hi"}), converter.ModeSimple)
		require.True(t, ok)
		assert.Equal(t, "message", chunk.Data["event"])
		assert.Equal(t, "task-1", chunk.Data["task_id"])
		assert.Equal(t, "conv-1", chunk.Data["conversation_id"])
		assert.Equal(t, "msg-1", chunk.Data["message_id"])
		assert.Equal(t, "hi", chunk.Data["answer"])
	})

	t.Run("Should map pings to the bare sentinel", func(t *testing.T) {
		chunk, ok := conv.ConvertChunk(chatMessage(event.Ping{}), converter.ModeSimple)
		require.True(t, ok)
		assert.True(t, chunk.Ping)
		assert.Nil(t, chunk.Data)
	})

	t.Run("Should map Stop to a message_end with empty metadata", func(t *testing.T) {
		chunk, ok := conv.ConvertChunk(chatMessage(event.Stop{Reason: event.StopReasonUserRequest}), converter.ModeSimple)
		require.True(t, ok)
		assert.Equal(t, "message_end", chunk.Data["event"])
		assert.Equal(t, map[string]any{}, chunk.Data["metadata"])
	})

	t.Run("Should surface agent thoughts", func(t *testing.T) {
		chunk, ok := conv.ConvertChunk(chatMessage(event.AgentThought{
			ID:          "th-1",
			Position:    2,
			Thought:     "look it up",
			Action:      "search",
			ActionInput: "weather",
			Observation: "sunny",
		}), converter.ModeSimple)
		require.True(t, ok)
		assert.Equal(t, "agent_thought", chunk.Data["event"])
		assert.Equal(t, 2, chunk.Data["position"])
		assert.Equal(t, "search", chunk.Data["tool"])
		assert.Equal(t, "sunny", chunk.Data["observation"])
	})

	t.Run("Should hide retriever resources in simple mode", func(t *testing.T) {
		msg := chatMessage(event.RetrieverResources{Resources: []event.RetrieverResource{{Position: 1}}})
		_, ok := conv.ConvertChunk(msg, converter.ModeSimple)
		assert.False(t, ok)
		chunk, ok := conv.ConvertChunk(msg, converter.ModeFull)
		require.True(t, ok)
		assert.Equal(t, "retriever_resources", chunk.Data["event"])
	})

	t.Run("Should drop workflow events for message-scoped apps", func(t *testing.T) {
		_, ok := conv.ConvertChunk(chatMessage(event.NodeStarted{NodeID: "n1"}), converter.ModeFull)
		assert.False(t, ok)
		_, ok = conv.ConvertChunk(chatMessage(event.WorkflowSucceeded{}), converter.ModeFull)
		assert.False(t, ok)
	})

	t.Run("Should map errors through the fixed error shape", func(t *testing.T) {
		msg := chatMessage(event.Error{Err: core.NewError(nil, core.ErrCodeInvokeRateLimit, nil)})
		chunk, ok := conv.ConvertChunk(msg, converter.ModeSimple)
		require.True(t, ok)
		assert.Equal(t, "error", chunk.Data["event"])
		assert.Equal(t, core.ErrCodeInvokeRateLimit, chunk.Data["code"])
		assert.Equal(t, 429, chunk.Data["status"])
	})

	t.Run("Should yield byte-identical output when converting twice", func(t *testing.T) {
		msg := chatMessage(event.MessageEnd{Metadata: event.Metadata{
			Usage: &event.Usage{TotalTokens: 42, TotalPrice: decimal.RequireFromString("0.1"), Currency: "USD"},
			RetrieverResources: []event.RetrieverResource{
				{Position: 1, DatasetID: "ds", DocumentID: "doc", Score: 0.8},
			},
		}})
		first, ok := conv.ConvertChunk(msg, converter.ModeFull)
		require.True(t, ok)
		second, ok := conv.ConvertChunk(msg, converter.ModeFull)
		require.True(t, ok)
		a, err := json.Marshal(first.Data)
		require.NoError(t, err)
		b, err := json.Marshal(second.Data)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})
}

func TestChatConverter_ConvertBlocking(t *testing.T) {
	t.Run("Should strip internal metadata in simple mode", func(t *testing.T) {
		resp := &converter.BlockingResponse{
			TaskID:         "task-1",
			ConversationID: "conv-1",
			MessageID:      "msg-1",
			Answer:         "Hello!",
			Metadata: event.Metadata{Usage: &event.Usage{
				TotalTokens: 42,
				TotalPrice:  decimal.RequireFromString("0.2"),
				Currency:    "USD",
			}},
			CreatedAt: 1700000000,
		}
		out := converter.ChatConverter{}.ConvertBlocking(resp, converter.ModeSimple)
		assert.Equal(t, "message", out["event"])
		assert.Equal(t, "chat", out["mode"])
		assert.Equal(t, "Hello!", out["answer"])
		usage := out["metadata"].(map[string]any)["usage"].(map[string]any)
		assert.Equal(t, 42, usage["total_tokens"])
		assert.NotContains(t, usage, "total_price")
		assert.NotContains(t, usage, "currency")
	})

	t.Run("Should keep prices in full mode", func(t *testing.T) {
		resp := &converter.BlockingResponse{
			TaskID: "task-1",
			Metadata: event.Metadata{Usage: &event.Usage{
				TotalTokens: 10,
				TotalPrice:  decimal.RequireFromString("0.2"),
				Currency:    "USD",
			}},
		}
		out := converter.ChatConverter{}.ConvertBlocking(resp, converter.ModeFull)
		usage := out["metadata"].(map[string]any)["usage"].(map[string]any)
		assert.Equal(t, "0.2", usage["total_price"])
		assert.Equal(t, "USD", usage["currency"])
	})
}
