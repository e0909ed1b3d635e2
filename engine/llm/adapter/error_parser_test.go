package llmadapter_test

import (
	"errors"
	"testing"

	llmadapter "github.com/genflow/genflow/engine/llm/adapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorParser_ParseError(t *testing.T) {
	parser := llmadapter.NewErrorParser("openai")

	t.Run("Should return nil for nil input", func(t *testing.T) {
		assert.Nil(t, parser.ParseError(nil))
	})

	t.Run("Should classify by HTTP status hints first", func(t *testing.T) {
		cases := map[string]llmadapter.Category{
			"status 401: nope":        llmadapter.CategoryAuthorization,
			"status 429: slow down":   llmadapter.CategoryRateLimit,
			"status 400: bad payload": llmadapter.CategoryBadRequest,
			"status 503: down":        llmadapter.CategoryServerUnavailable,
		}
		for msg, want := range cases {
			got := parser.ParseError(errors.New(msg))
			require.NotNil(t, got)
			assert.Equal(t, want, got.Category, msg)
		}
	})

	t.Run("Should classify by provider message patterns", func(t *testing.T) {
		cases := map[string]llmadapter.Category{
			"you exceeded your current quota, insufficient_quota": llmadapter.CategoryQuotaExceeded,
			"rate limit reached for requests":                     llmadapter.CategoryRateLimit,
			"incorrect api key provided: invalid_api_key":         llmadapter.CategoryAuthorization,
			"dial tcp 10.0.0.1: connection refused":               llmadapter.CategoryConnection,
			"the model gpt-x does not exist":                      llmadapter.CategoryUnsupported,
			"this model's maximum context length is exceeded":     llmadapter.CategoryBadRequest,
		}
		for msg, want := range cases {
			got := parser.ParseError(errors.New(msg))
			require.NotNil(t, got)
			assert.Equal(t, want, got.Category, msg)
		}
	})

	t.Run("Should fall back to unknown without losing the cause", func(t *testing.T) {
		cause := errors.New("something inscrutable")
		got := parser.ParseError(cause)
		require.NotNil(t, got)
		assert.Equal(t, llmadapter.CategoryUnknown, got.Category)
		assert.ErrorIs(t, got, cause)
		assert.Equal(t, "openai", got.Provider)
	})
}

func TestCategory_ErrorCode(t *testing.T) {
	t.Run("Should map every category onto the domain taxonomy", func(t *testing.T) {
		assert.Equal(t, "INVOKE_AUTHORIZATION", llmadapter.CategoryAuthorization.ErrorCode())
		assert.Equal(t, "INVOKE_RATE_LIMIT", llmadapter.CategoryRateLimit.ErrorCode())
		assert.Equal(t, "PROVIDER_QUOTA_EXCEEDED", llmadapter.CategoryQuotaExceeded.ErrorCode())
		assert.Equal(t, "INVOKE_CONNECTION", llmadapter.CategoryConnection.ErrorCode())
		assert.Equal(t, "INVOKE_BAD_REQUEST", llmadapter.CategoryBadRequest.ErrorCode())
		assert.Equal(t, "INVOKE_SERVER_UNAVAILABLE", llmadapter.CategoryServerUnavailable.ErrorCode())
		assert.Equal(t, "PROVIDER_NOT_INITIALIZED", llmadapter.CategoryNotInitialized.ErrorCode())
		assert.Equal(t, "MODEL_CURRENTLY_UNSUPPORTED", llmadapter.CategoryUnsupported.ErrorCode())
		assert.Equal(t, "UNKNOWN", llmadapter.CategoryUnknown.ErrorCode())
	})
}

func TestIsRetryable(t *testing.T) {
	t.Run("Should retry only transient categories", func(t *testing.T) {
		assert.True(t, llmadapter.IsRetryable(llmadapter.NewError(llmadapter.CategoryConnection, "p", "m", nil)))
		assert.True(t, llmadapter.IsRetryable(llmadapter.NewError(llmadapter.CategoryRateLimit, "p", "m", nil)))
		assert.True(t, llmadapter.IsRetryable(llmadapter.NewError(llmadapter.CategoryServerUnavailable, "p", "m", nil)))
		assert.False(t, llmadapter.IsRetryable(llmadapter.NewError(llmadapter.CategoryAuthorization, "p", "m", nil)))
		assert.False(t, llmadapter.IsRetryable(errors.New("plain error")))
	})
}
