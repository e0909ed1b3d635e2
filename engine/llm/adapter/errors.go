package llmadapter

import (
	"errors"
	"fmt"

	"github.com/genflow/genflow/engine/core"
)

// Category classifies a provider failure. The task pipeline maps these 1:1
// into the domain error codes in engine/core.
type Category string

const (
	CategoryAuthorization     Category = "authorization"
	CategoryRateLimit         Category = "rate-limit"
	CategoryQuotaExceeded     Category = "quota-exceeded"
	CategoryConnection        Category = "connection"
	CategoryBadRequest        Category = "bad-request"
	CategoryServerUnavailable Category = "server-unavailable"
	CategoryNotInitialized    Category = "not-initialized"
	CategoryUnsupported       Category = "unsupported"
	CategoryUnknown           Category = "unknown"
)

// Error is a classified provider failure surfaced by the invocation boundary.
type Error struct {
	Category Category
	Provider string
	Message  string
	Err      error
}

func NewError(category Category, provider, message string, err error) *Error {
	return &Error{Category: category, Provider: provider, Message: message, Err: err}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s provider error (%s): %s", e.Provider, e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCode translates a classified category into the domain error code.
func (c Category) ErrorCode() string {
	switch c {
	case CategoryAuthorization:
		return core.ErrCodeInvokeAuthorization
	case CategoryRateLimit:
		return core.ErrCodeInvokeRateLimit
	case CategoryQuotaExceeded:
		return core.ErrCodeProviderQuotaExceeded
	case CategoryConnection:
		return core.ErrCodeInvokeConnection
	case CategoryBadRequest:
		return core.ErrCodeInvokeBadRequest
	case CategoryServerUnavailable:
		return core.ErrCodeInvokeServerUnavailable
	case CategoryNotInitialized:
		return core.ErrCodeProviderNotInitialized
	case CategoryUnsupported:
		return core.ErrCodeModelCurrentlyUnsupported
	default:
		return core.ErrCodeUnknown
	}
}

// AsError extracts a classified adapter error from an error chain.
func AsError(err error) (*Error, bool) {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr, true
	}
	return nil, false
}

// IsRetryable reports whether a failure is transient enough to retry the
// invocation: connection drops, rate limits, and unavailable backends.
func IsRetryable(err error) bool {
	llmErr, ok := AsError(err)
	if !ok {
		return false
	}
	switch llmErr.Category {
	case CategoryConnection, CategoryRateLimit, CategoryServerUnavailable:
		return true
	default:
		return false
	}
}
