package llmadapter_test

import (
	"context"
	"sync"
	"testing"

	llmadapter "github.com/genflow/genflow/engine/llm/adapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingClient struct {
	mu     sync.Mutex
	closed bool
}

func (c *countingClient) GenerateContent(context.Context, *llmadapter.LLMRequest) (*llmadapter.LLMResponse, error) {
	return &llmadapter.LLMResponse{}, nil
}

func (c *countingClient) StreamContent(
	context.Context,
	*llmadapter.LLMRequest,
	llmadapter.StreamFunc,
) (*llmadapter.LLMResponse, error) {
	return &llmadapter.LLMResponse{}, nil
}

func (c *countingClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

type countingFactory struct {
	created []*countingClient
}

func (f *countingFactory) CreateClient(context.Context, *llmadapter.ProviderConfig) (llmadapter.LLMClient, error) {
	client := &countingClient{}
	f.created = append(f.created, client)
	return client, nil
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	cfg := &llmadapter.ProviderConfig{Provider: "openai", Model: "gpt-4o-mini"}

	t.Run("Should reuse a cached client for the same provider and model", func(t *testing.T) {
		factory := &countingFactory{}
		registry, err := llmadapter.NewRegistry(factory, 4)
		require.NoError(t, err)
		first, err := registry.Client(ctx, cfg)
		require.NoError(t, err)
		second, err := registry.Client(ctx, cfg)
		require.NoError(t, err)
		assert.Same(t, first, second)
		assert.Len(t, factory.created, 1)
	})

	t.Run("Should recreate after invalidation", func(t *testing.T) {
		factory := &countingFactory{}
		registry, err := llmadapter.NewRegistry(factory, 4)
		require.NoError(t, err)
		_, err = registry.Client(ctx, cfg)
		require.NoError(t, err)
		registry.Invalidate(cfg)
		_, err = registry.Client(ctx, cfg)
		require.NoError(t, err)
		assert.Len(t, factory.created, 2)
	})

	t.Run("Should close evicted clients", func(t *testing.T) {
		factory := &countingFactory{}
		registry, err := llmadapter.NewRegistry(factory, 1)
		require.NoError(t, err)
		_, err = registry.Client(ctx, cfg)
		require.NoError(t, err)
		_, err = registry.Client(ctx, &llmadapter.ProviderConfig{Provider: "anthropic", Model: "claude"})
		require.NoError(t, err)
		require.Len(t, factory.created, 2)
		assert.True(t, factory.created[0].closed)
	})

	t.Run("Should reject a nil provider config", func(t *testing.T) {
		registry, err := llmadapter.NewRegistry(&countingFactory{}, 4)
		require.NoError(t, err)
		_, err = registry.Client(ctx, nil)
		require.Error(t, err)
		llmErr, ok := llmadapter.AsError(err)
		require.True(t, ok)
		assert.Equal(t, llmadapter.CategoryNotInitialized, llmErr.Category)
	})

	t.Run("Should require a factory", func(t *testing.T) {
		_, err := llmadapter.NewRegistry(nil, 4)
		assert.Error(t, err)
	})
}
