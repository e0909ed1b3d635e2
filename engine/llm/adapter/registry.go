package llmadapter

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultFactory builds langchaingo-backed clients.
type DefaultFactory struct{}

func NewDefaultFactory() Factory {
	return &DefaultFactory{}
}

func (f *DefaultFactory) CreateClient(_ context.Context, config *ProviderConfig) (LLMClient, error) {
	return NewLangChainAdapter(config)
}

// Registry memoizes clients per provider+model with a bounded LRU so repeated
// generations reuse connections without growing without limit. It is an
// explicit dependency injected into the producers, never ambient state.
type Registry struct {
	mu      sync.Mutex
	factory Factory
	cache   *lru.Cache[string, LLMClient]
}

func NewRegistry(factory Factory, size int) (*Registry, error) {
	if factory == nil {
		return nil, fmt.Errorf("factory is required")
	}
	if size <= 0 {
		size = 32
	}
	cache, err := lru.NewWithEvict(size, func(_ string, client LLMClient) {
		client.Close()
	})
	if err != nil {
		return nil, fmt.Errorf("creating client cache: %w", err)
	}
	return &Registry{factory: factory, cache: cache}, nil
}

func cacheKey(config *ProviderConfig) string {
	return config.Provider + "/" + config.Model + "/" + config.BaseURL
}

// Client returns a cached client for the provider config, creating one on
// miss.
func (r *Registry) Client(ctx context.Context, config *ProviderConfig) (LLMClient, error) {
	if config == nil {
		return nil, NewError(CategoryNotInitialized, "", "provider config is required", nil)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := cacheKey(config)
	if client, ok := r.cache.Get(key); ok {
		return client, nil
	}
	client, err := r.factory.CreateClient(ctx, config)
	if err != nil {
		return nil, err
	}
	r.cache.Add(key, client)
	return client, nil
}

// Invalidate drops the cached client for a provider config, e.g. after a
// credential rotation.
func (r *Registry) Invalidate(config *ProviderConfig) {
	if config == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Remove(cacheKey(config))
}

// Close evicts every cached client.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Purge()
}
