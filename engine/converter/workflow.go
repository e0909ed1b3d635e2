package converter

import (
	"github.com/genflow/genflow/engine/core"
	"github.com/genflow/genflow/engine/event"
)

// WorkflowConverter shapes workflow app responses: chunks carry the workflow
// run identity and node lifecycle events. Simple mode collapses node payloads
// to their identity so internal node I/O never reaches clients.
type WorkflowConverter struct{}

func (WorkflowConverter) identity(msg event.Message) map[string]any {
	return map[string]any{
		"task_id":         msg.TaskID.String(),
		"workflow_run_id": msg.WorkflowRunID.String(),
	}
}

// ConvertChunk implements StreamConverter.
func (c WorkflowConverter) ConvertChunk(msg event.Message, mode Mode) (Chunk, bool) {
	switch ev := msg.Event.(type) {
	case event.Ping:
		return Chunk{Ping: true}, true
	case event.TextDelta:
		data := c.identity(msg)
		data["event"] = "text_chunk"
		data["text"] = ev.Text
		return Chunk{Data: data}, true
	case event.NodeStarted:
		data := c.identity(msg)
		data["event"] = string(event.TypeNodeStarted)
		node := map[string]any{
			"node_id":   ev.NodeID,
			"node_type": ev.NodeType,
			"title":     ev.Title,
			"index":     ev.Index,
		}
		if mode == ModeFull {
			node["inputs"] = ev.Inputs
		}
		data["data"] = node
		return Chunk{Data: data}, true
	case event.NodeFinished:
		data := c.identity(msg)
		data["event"] = string(event.TypeNodeFinished)
		node := map[string]any{
			"node_id":      ev.NodeID,
			"node_type":    ev.NodeType,
			"title":        ev.Title,
			"index":        ev.Index,
			"status":       string(ev.Status),
			"elapsed_time": ev.ElapsedSecs,
		}
		if mode == ModeFull {
			node["inputs"] = ev.Inputs
			node["outputs"] = ev.Outputs
			if ev.Error != "" {
				node["error"] = ev.Error
			}
		}
		data["data"] = node
		return Chunk{Data: data}, true
	case event.WorkflowSucceeded:
		data := c.identity(msg)
		data["event"] = string(event.TypeWorkflowFinished)
		data["data"] = map[string]any{
			"status":       string(core.StatusSuccess),
			"outputs":      ev.Outputs,
			"elapsed_time": ev.ElapsedSecs,
		}
		return Chunk{Data: data}, true
	case event.WorkflowFailed:
		data := c.identity(msg)
		data["event"] = string(event.TypeWorkflowFinished)
		data["data"] = map[string]any{
			"status":       string(core.StatusFailed),
			"error":        ev.Reason,
			"elapsed_time": ev.ElapsedSecs,
		}
		return Chunk{Data: data}, true
	case event.Stop:
		data := c.identity(msg)
		data["event"] = string(event.TypeWorkflowFinished)
		data["data"] = map[string]any{
			"status": string(core.StatusStopped),
			"reason": string(ev.Reason),
		}
		return Chunk{Data: data}, true
	case event.Error:
		return Chunk{Data: errorChunk(msg, ev)}, true
	default:
		return Chunk{}, false
	}
}

// WorkflowBlockingResponse is the aggregated one-shot result for workflow
// apps.
type WorkflowBlockingResponse struct {
	TaskID        string
	WorkflowRunID string
	Status        core.StatusType
	Outputs       map[string]any
	Error         string
	ElapsedSecs   float64
	CreatedAt     int64
}

// ConvertBlocking shapes the aggregated blocking result. Workflow outputs are
// the client deliverable, so both modes keep them.
func (WorkflowConverter) ConvertBlocking(resp *WorkflowBlockingResponse, _ Mode) map[string]any {
	data := map[string]any{
		"task_id":         resp.TaskID,
		"workflow_run_id": resp.WorkflowRunID,
		"data": map[string]any{
			"status":       string(resp.Status),
			"outputs":      resp.Outputs,
			"elapsed_time": resp.ElapsedSecs,
		},
		"created_at": resp.CreatedAt,
	}
	if resp.Error != "" {
		inner := data["data"].(map[string]any)
		inner["error"] = resp.Error
	}
	return data
}
