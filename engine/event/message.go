package event

import "github.com/genflow/genflow/engine/core"

// Message wraps an Event with the routing identity the consumer needs to
// shape client payloads. Exactly one scoped identity is populated: either
// ConversationID/MessageID (message-scoped apps) or WorkflowRunID (workflow
// apps). The queue manager subtype fixes which.
type Message struct {
	TaskID         core.ID      `json:"task_id"`
	AppMode        core.AppMode `json:"app_mode"`
	ConversationID core.ID      `json:"conversation_id,omitempty"`
	MessageID      core.ID      `json:"message_id,omitempty"`
	WorkflowRunID  core.ID      `json:"workflow_run_id,omitempty"`
	Event          Event        `json:"-"`
}
