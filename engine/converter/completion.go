package converter

import "github.com/genflow/genflow/engine/event"

// CompletionConverter shapes completion app responses. Completion apps have
// no conversation: chunks carry only task and message identity, and agent
// events never occur.
type CompletionConverter struct{}

func (CompletionConverter) identity(msg event.Message) map[string]any {
	return map[string]any{
		"task_id":    msg.TaskID.String(),
		"message_id": msg.MessageID.String(),
	}
}

// ConvertChunk implements StreamConverter.
func (c CompletionConverter) ConvertChunk(msg event.Message, mode Mode) (Chunk, bool) {
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
	default:
		return Chunk{}, false
	}
}

// ConvertBlocking shapes the aggregated blocking result.
func (CompletionConverter) ConvertBlocking(resp *BlockingResponse, mode Mode) map[string]any {
	return map[string]any{
		"event":      string(event.TypeTextDelta),
		"task_id":    resp.TaskID,
		"message_id": resp.MessageID,
		"mode":       "completion",
		"answer":     resp.Answer,
		"metadata":   metadataMap(resp.Metadata, mode),
		"created_at": resp.CreatedAt,
	}
}
