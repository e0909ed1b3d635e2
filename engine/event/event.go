package event

import "github.com/genflow/genflow/engine/core"

// Type names the wire-level event category for each variant.
type Type string

const (
	TypeTextDelta          Type = "message"
	TypeMessageReplace     Type = "message_replace"
	TypeAgentThought       Type = "agent_thought"
	TypeToolInvoked        Type = "tool_invoked"
	TypeRetrieverResources Type = "retriever_resources"
	TypeNodeStarted        Type = "node_started"
	TypeNodeFinished       Type = "node_finished"
	TypeMessageEnd         Type = "message_end"
	TypeWorkflowFinished   Type = "workflow_finished"
	TypeError              Type = "error"
	TypeStop               Type = "stop"
	TypePing               Type = "ping"
)

// StopReason explains why a task terminated with a Stop event.
type StopReason string

const (
	StopReasonUserRequest      StopReason = "user-request"
	StopReasonOutputModeration StopReason = "output-moderation"
	StopReasonUpstreamError    StopReason = "upstream-error"
)

// Event is one immutable unit of generation progress. The marker method seals
// the union so every consumer can switch exhaustively over the variants below.
type Event interface {
	isEvent()
	Type() Type
}

// TextDelta carries one incremental chunk of generated answer text.
type TextDelta struct {
	Text string
}

// MessageReplace substitutes the whole in-flight answer, e.g. after an
// output-moderation hit redacts what was already streamed.
type MessageReplace struct {
	Text string
}

// AgentThought records one reasoning-loop iteration as it is produced.
type AgentThought struct {
	ID          core.ID
	Position    int
	Thought     string
	Action      string
	ActionInput string
	Observation string
}

// ToolInvoked reports a completed tool call outside the agent loop.
type ToolInvoked struct {
	Tool        string
	Input       string
	Observation string
}

// RetrieverResource is one retrieved context document attached to an answer.
type RetrieverResource struct {
	Position     int     `json:"position"`
	DatasetID    string  `json:"dataset_id"`
	DatasetName  string  `json:"dataset_name"`
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name"`
	Score        float64 `json:"score"`
	Content      string  `json:"content"`
}

type RetrieverResources struct {
	Resources []RetrieverResource
}

// NodeStarted marks a workflow node beginning execution.
type NodeStarted struct {
	NodeID   string
	NodeType string
	Title    string
	Index    int
	Inputs   map[string]any
}

// NodeFinished marks a workflow node completing, with its outputs.
type NodeFinished struct {
	NodeID      string
	NodeType    string
	Title       string
	Index       int
	Status      core.StatusType
	Inputs      map[string]any
	Outputs     map[string]any
	Error       string
	ElapsedSecs float64
}

// MessageEnd is the successful terminal event for message-scoped apps. It
// carries the aggregated usage and retrieval metadata for the whole answer.
type MessageEnd struct {
	Metadata Metadata
}

// WorkflowSucceeded is the successful terminal event for workflow apps.
type WorkflowSucceeded struct {
	Outputs     map[string]any
	ElapsedSecs float64
}

// WorkflowFailed is the failure terminal event for workflow apps.
type WorkflowFailed struct {
	Reason      string
	ElapsedSecs float64
}

// Error is the terminal event for producer-side failures, already translated
// into the domain taxonomy.
type Error struct {
	Err *core.Error
}

// Stop terminates a task without treating it as a failure.
type Stop struct {
	Reason StopReason
}

// Ping is a consumer-injected heartbeat. It carries no payload and must be
// filtered before persistence or accounting.
type Ping struct{}

func (TextDelta) isEvent()          {}
func (MessageReplace) isEvent()     {}
func (AgentThought) isEvent()       {}
func (ToolInvoked) isEvent()        {}
func (RetrieverResources) isEvent() {}
func (NodeStarted) isEvent()        {}
func (NodeFinished) isEvent()       {}
func (MessageEnd) isEvent()         {}
func (WorkflowSucceeded) isEvent()  {}
func (WorkflowFailed) isEvent()     {}
func (Error) isEvent()              {}
func (Stop) isEvent()               {}
func (Ping) isEvent()               {}

func (TextDelta) Type() Type          { return TypeTextDelta }
func (MessageReplace) Type() Type     { return TypeMessageReplace }
func (AgentThought) Type() Type       { return TypeAgentThought }
func (ToolInvoked) Type() Type        { return TypeToolInvoked }
func (RetrieverResources) Type() Type { return TypeRetrieverResources }
func (NodeStarted) Type() Type        { return TypeNodeStarted }
func (NodeFinished) Type() Type       { return TypeNodeFinished }
func (MessageEnd) Type() Type         { return TypeMessageEnd }
func (WorkflowSucceeded) Type() Type  { return TypeWorkflowFinished }
func (WorkflowFailed) Type() Type     { return TypeWorkflowFinished }
func (Error) Type() Type              { return TypeError }
func (Stop) Type() Type               { return TypeStop }
func (Ping) Type() Type               { return TypePing }

// Scope selects which variants terminate a task's queue.
type Scope int

const (
	// ScopeMessage covers chat, agent-chat, and completion apps.
	ScopeMessage Scope = iota
	// ScopeWorkflow additionally treats workflow success/failure as terminal.
	ScopeWorkflow
)

// ScopeOf maps an app mode to its terminality scope.
func ScopeOf(mode core.AppMode) Scope {
	if mode.IsWorkflow() {
		return ScopeWorkflow
	}
	return ScopeMessage
}

// IsTerminal reports whether ev closes the queue under the given scope.
func IsTerminal(ev Event, scope Scope) bool {
	switch ev.(type) {
	case MessageEnd, Stop, Error:
		return true
	case WorkflowSucceeded, WorkflowFailed:
		return scope == ScopeWorkflow
	case TextDelta, MessageReplace, AgentThought, ToolInvoked,
		RetrieverResources, NodeStarted, NodeFinished, Ping:
		return false
	default:
		return false
	}
}
