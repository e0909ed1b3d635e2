package core

// -----------------------------------------------------------------------------
// App Mode
// -----------------------------------------------------------------------------

// AppMode selects which generation pipeline an app runs through and which
// identity fields its queue messages carry.
type AppMode string

const (
	AppModeChat       AppMode = "chat"
	AppModeAgentChat  AppMode = "agent-chat"
	AppModeCompletion AppMode = "completion"
	AppModeWorkflow   AppMode = "workflow"
)

func (m AppMode) String() string {
	return string(m)
}

// IsWorkflow reports whether queue messages for this mode are scoped to a
// workflow run rather than a conversation message.
func (m AppMode) IsWorkflow() bool {
	return m == AppModeWorkflow
}

// -----------------------------------------------------------------------------
// Invoke Source
// -----------------------------------------------------------------------------

// InvokeFrom identifies the surface a generation request originated from.
// It participates in the stop-flag key so a stop issued from one surface
// cannot cancel a task started from another.
type InvokeFrom string

const (
	InvokeFromWebApp     InvokeFrom = "web-app"
	InvokeFromServiceAPI InvokeFrom = "service-api"
	InvokeFromDebugger   InvokeFrom = "debugger"
	InvokeFromExplore    InvokeFrom = "explore"
)

func (f InvokeFrom) String() string {
	return string(f)
}

// -----------------------------------------------------------------------------
// Run Status
// -----------------------------------------------------------------------------

type StatusType string

const (
	StatusRunning StatusType = "running"
	StatusSuccess StatusType = "success"
	StatusFailed  StatusType = "failed"
	StatusStopped StatusType = "stopped"
)
