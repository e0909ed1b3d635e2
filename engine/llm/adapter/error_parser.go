package llmadapter

import "strings"

// ErrorParser classifies raw provider errors into categories by inspecting
// HTTP status hints and well-known provider message patterns.
type ErrorParser struct {
	provider string
}

func NewErrorParser(provider string) *ErrorParser {
	return &ErrorParser{provider: provider}
}

// ParseError classifies err. A nil input returns nil; an unclassifiable error
// comes back as CategoryUnknown so callers never lose the cause.
func (p *ErrorParser) ParseError(err error) *Error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	lower := strings.ToLower(msg)
	if category := p.matchStatusCode(lower); category != "" {
		return NewError(category, p.provider, msg, err)
	}
	if category := p.matchPatterns(lower); category != "" {
		return NewError(category, p.provider, msg, err)
	}
	return NewError(CategoryUnknown, p.provider, msg, err)
}

func (p *ErrorParser) matchStatusCode(lower string) Category {
	switch {
	case strings.Contains(lower, "401") || strings.Contains(lower, "403"):
		return CategoryAuthorization
	case strings.Contains(lower, "429"):
		return CategoryRateLimit
	case strings.Contains(lower, "400") || strings.Contains(lower, "404"):
		return CategoryBadRequest
	case strings.Contains(lower, "502") || strings.Contains(lower, "503") || strings.Contains(lower, "504"):
		return CategoryServerUnavailable
	}
	return ""
}

var patternCategories = []struct {
	category Category
	patterns []string
}{
	{CategoryQuotaExceeded, []string{
		"quota exceeded", "quota_exceeded", "insufficient quota", "insufficient_quota", "billing",
	}},
	{CategoryRateLimit, []string{
		"rate limit", "rate-limit", "ratelimit", "too many requests", "throttled", "throttling",
	}},
	{CategoryAuthorization, []string{
		"unauthorized", "invalid api key", "invalid_api_key", "authentication", "permission denied", "forbidden",
	}},
	{CategoryConnection, []string{
		"connection refused", "connection reset", "no such host", "dial tcp", "timeout", "deadline exceeded", "eof",
	}},
	{CategoryServerUnavailable, []string{
		"service unavailable", "server unavailable", "bad gateway", "overloaded", "internal server error",
	}},
	{CategoryUnsupported, []string{
		"model not found", "unsupported model", "model_not_found", "does not exist",
	}},
	{CategoryBadRequest, []string{
		"bad request", "invalid request", "context length", "maximum context", "invalid_request_error",
	}},
}

func (p *ErrorParser) matchPatterns(lower string) Category {
	for _, entry := range patternCategories {
		for _, pattern := range entry.patterns {
			if strings.Contains(lower, pattern) {
				return entry.category
			}
		}
	}
	return ""
}
