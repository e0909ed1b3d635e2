package converter

import (
	"github.com/genflow/genflow/engine/core"
	"github.com/genflow/genflow/engine/event"
)

// Mode selects the payload shape: Full keeps internal detail for trusted
// surfaces (debugger, service API with owner credentials), Simple trims
// internal-only metadata before it reaches untrusted clients.
type Mode int

const (
	ModeFull Mode = iota
	ModeSimple
)

// Chunk is one wire-level unit of a streaming response. Ping chunks serialize
// as the bare sentinel token "ping" instead of a JSON object; all other
// chunks serialize Data as one JSON line.
type Chunk struct {
	Ping bool
	Data map[string]any
}

// PingSentinel is the literal heartbeat token written to the transport.
const PingSentinel = "ping"

// StreamConverter shapes internal queue messages into wire chunks. Converters
// are pure: converting the same message twice yields identical output.
type StreamConverter interface {
	// ConvertChunk maps one queue message to a wire chunk. The second return
	// is false for events this app type never surfaces to clients.
	ConvertChunk(msg event.Message, mode Mode) (Chunk, bool)
}

// ForAppMode returns the converter for an app mode.
func ForAppMode(mode core.AppMode) StreamConverter {
	switch mode {
	case core.AppModeWorkflow:
		return WorkflowConverter{}
	case core.AppModeCompletion:
		return CompletionConverter{}
	default:
		return ChatConverter{}
	}
}

// errorChunk is the fixed error-to-stream-response shape shared by all app
// types.
func errorChunk(msg event.Message, ev event.Error) map[string]any {
	code := core.ErrCodeUnknown
	message := "internal server error"
	if ev.Err != nil {
		code = ev.Err.Code
		message = ev.Err.Message
	}
	data := map[string]any{
		"event":   string(event.TypeError),
		"task_id": msg.TaskID.String(),
		"status":  errorStatus(code),
		"code":    code,
		"message": message,
	}
	if !msg.MessageID.IsZero() {
		data["message_id"] = msg.MessageID.String()
	}
	return data
}

func errorStatus(code string) int {
	switch code {
	case core.ErrCodeInvokeBadRequest:
		return 400
	case core.ErrCodeInvokeAuthorization:
		return 401
	case core.ErrCodeInvokeRateLimit, core.ErrCodeProviderQuotaExceeded:
		return 429
	default:
		return 500
	}
}

func usageMap(u *event.Usage, mode Mode) map[string]any {
	if u == nil {
		return nil
	}
	out := map[string]any{
		"prompt_tokens":     u.PromptTokens,
		"completion_tokens": u.CompletionTokens,
		"total_tokens":      u.TotalTokens,
		"latency":           u.LatencySecs,
	}
	if mode == ModeFull {
		out["prompt_unit_price"] = u.PromptUnitPrice.String()
		out["completion_unit_price"] = u.CompletionUnitPrice.String()
		out["total_price"] = u.TotalPrice.String()
		out["currency"] = u.Currency
	}
	return out
}

func metadataMap(m event.Metadata, mode Mode) map[string]any {
	if mode == ModeSimple {
		m = m.Simple()
	}
	out := map[string]any{}
	if usage := usageMap(m.Usage, mode); usage != nil {
		out["usage"] = usage
	}
	if len(m.RetrieverResources) > 0 {
		resources := make([]map[string]any, 0, len(m.RetrieverResources))
		for _, r := range m.RetrieverResources {
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
			resources = append(resources, entry)
		}
		out["retriever_resources"] = resources
	}
	return out
}
