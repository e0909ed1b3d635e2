package converter

import "github.com/genflow/genflow/engine/event"

// ChatConverter shapes chat and agent-chat app responses: chunks carry
// conversation and message identity, and agent reasoning surfaces as
// agent_thought chunks.
type ChatConverter struct{}

func (ChatConverter) identity(msg event.Message) map[string]any {
	return map[string]any{
		"task_id":         msg.TaskID.String(),
		"conversation_id": msg.ConversationID.String(),
		"message_id":      msg.MessageID.String(),
	}
}

// ConvertChunk implements StreamConverter.
func (c ChatConverter) ConvertChunk(msg event.Message, mode Mode) (Chunk, bool) {
	switch ev := msg.Event.(type) {
	case event.Ping:
		return Chunk{Ping: true}, true
	case event.TextDelta:
		data := c.identity(msg)
		data["event"] = string(event.TypeTextDelta)
		data["answer"] = ev.Text
		return Chunk{Data: data}, true
	case event.MessageReplace:
		data := c.identity(msg)
		data["event"] = string(event.TypeMessageReplace)
		data["answer"] = ev.Text
		return Chunk{Data: data}, true
	case event.AgentThought:
		data := c.identity(msg)
		data["event"] = string(event.TypeAgentThought)
		data["id"] = ev.ID.String()
		data["position"] = ev.Position
		data["thought"] = ev.Thought
		data["tool"] = ev.Action
		data["tool_input"] = ev.ActionInput
		data["observation"] = ev.Observation
		return Chunk{Data: data}, true
	case event.ToolInvoked:
		data := c.identity(msg)
		data["event"] = string(event.TypeToolInvoked)
		data["tool"] = ev.Tool
		data["tool_input"] = ev.Input
		data["observation"] = ev.Observation
		return Chunk{Data: data}, true
	case event.RetrieverResources:
		if mode == ModeSimple {
			return Chunk{}, false
		}
		data := c.identity(msg)
		data["event"] = string(event.TypeRetrieverResources)
		data["retriever_resources"] = resourcesList(ev.Resources, mode)
		return Chunk{Data: data}, true
	case event.MessageEnd:
		data := c.identity(msg)
		data["event"] = string(event.TypeMessageEnd)
		data["metadata"] = metadataMap(ev.Metadata, mode)
		return Chunk{Data: data}, true
	case event.Stop:
		data := c.identity(msg)
		data["event"] = string(event.TypeMessageEnd)
		data["metadata"] = map[string]any{}
		return Chunk{Data: data}, true
	case event.Error:
		return Chunk{Data: errorChunk(msg, ev)}, true
	case event.NodeStarted, event.NodeFinished, event.WorkflowSucceeded, event.WorkflowFailed:
		// Workflow events never reach message-scoped apps.
		return Chunk{}, false
	default:
		return Chunk{}, false
	}
}

func resourcesList(resources []event.RetrieverResource, mode Mode) []map[string]any {
	out := make([]map[string]any, 0, len(resources))
	for _, r := range resources {
		entry := map[string]any{
			"position":      r.Position,
			"dataset_id":    r.DatasetID,
			"dataset_name":  r.DatasetName,
			"document_name": r.DocumentName,
			"content":       r.Content,
		}
		if mode == ModeFull {
			entry["document_id"] = r.DocumentID
			entry["score"] = r.Score
		}
		out = append(out, entry)
	}
	return out
}

// BlockingResponse is the aggregated one-shot result for message-scoped apps.
type BlockingResponse struct {
	TaskID         string
	ConversationID string
	MessageID      string
	Answer         string
	Metadata       event.Metadata
	CreatedAt      int64
}

// ConvertBlocking shapes the aggregated blocking result.
func (ChatConverter) ConvertBlocking(resp *BlockingResponse, mode Mode) map[string]any {
	return map[string]any{
		"event":           string(event.TypeTextDelta),
		"task_id":         resp.TaskID,
		"conversation_id": resp.ConversationID,
		"message_id":      resp.MessageID,
		"mode":            "chat",
		"answer":          resp.Answer,
		"metadata":        metadataMap(resp.Metadata, mode),
		"created_at":      resp.CreatedAt,
	}
}
