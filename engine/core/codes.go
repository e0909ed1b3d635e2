package core

// Error codes for generation task failures. Producer-side invocation errors
// are mapped 1:1 onto these before they reach a terminal Error event or a
// persisted message/run record.
const (
	ErrCodeProviderNotInitialized    = "PROVIDER_NOT_INITIALIZED"
	ErrCodeProviderQuotaExceeded     = "PROVIDER_QUOTA_EXCEEDED"
	ErrCodeModelCurrentlyUnsupported = "MODEL_CURRENTLY_UNSUPPORTED"
	ErrCodeInvokeBadRequest          = "INVOKE_BAD_REQUEST"
	ErrCodeInvokeConnection          = "INVOKE_CONNECTION"
	ErrCodeInvokeRateLimit           = "INVOKE_RATE_LIMIT"
	ErrCodeInvokeAuthorization       = "INVOKE_AUTHORIZATION"
	ErrCodeInvokeServerUnavailable   = "INVOKE_SERVER_UNAVAILABLE"
	ErrCodeModerationRejected        = "MODERATION_REJECTED"
	ErrCodeTaskStopped               = "TASK_STOPPED"
	ErrCodeIterationTimeout          = "ITERATION_TIMEOUT"
	ErrCodeUnknown                   = "UNKNOWN"
)
