// Package llm holds the hosted model backends used for generation and embeddings.
package llm

import (
	"context"
	"errors"
	"feedbacklens/internal/config"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrProviderDisabled = errors.New("model provider is not configured")
	ErrEmptyResponse    = errors.New("model returned no content")
)

// Request is a single generation call
type Request struct {
	Model       string
	Prompt      string
	MaxTokens   int
	Temperature float64
	// JSON asks the backend for a JSON-only response where the provider supports it
	JSON bool
}

// Backend generates text from a prompt
type Backend interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Embedder turns texts into dense vectors
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Factory hands out backends by provider
type Factory interface {
	Backend(provider config.Provider) (Backend, error)
}

// Clients is the process-wide Factory. Provider clients are built on first use
// and shared; they are safe for concurrent use.
type Clients struct {
	cfg    *config.AIConfig
	logger *zap.Logger

	mu       sync.Mutex
	backends map[config.Provider]Backend
	openai   *OpenAIBackend
	limits   *limiter
}

// NewClients creates the backend factory
func NewClients(cfg *config.AIConfig, logger *zap.Logger) *Clients {
	return &Clients{
		cfg:      cfg,
		logger:   logger,
		backends: make(map[config.Provider]Backend),
		limits:   newLimiter(cfg.MaxConcurrentGenerations),
	}
}

// Backend returns the backend for provider, wrapped with the per-model limiter
func (c *Clients) Backend(provider config.Provider) (Backend, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if b, ok := c.backends[provider]; ok {
		return b, nil
	}
	if !c.cfg.IsEnabled(provider) {
		return nil, fmt.Errorf("%s: %w", provider, ErrProviderDisabled)
	}

	var inner Backend
	switch provider {
	case config.ProviderGemini:
		gb, err := NewGeminiBackend(context.Background(), c.cfg.Gemini)
		if err != nil {
			return nil, err
		}
		inner = gb
	case config.ProviderOpenAI:
		inner = c.openAILocked()
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}

	b := &limitedBackend{inner: inner, limits: c.limits}
	c.backends[provider] = b
	c.logger.Info("model backend ready", zap.String("provider", string(provider)))
	return b, nil
}

// Embedder returns the OpenAI-compatible embeddings client
func (c *Clients) Embedder() (Embedder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.cfg.IsEnabled(config.ProviderOpenAI) {
		return nil, fmt.Errorf("embeddings: %w", ErrProviderDisabled)
	}
	return c.openAILocked(), nil
}

func (c *Clients) openAILocked() *OpenAIBackend {
	if c.openai == nil {
		c.openai = NewOpenAIBackend(c.cfg.OpenAI, c.cfg.EmbeddingModel)
	}
	return c.openai
}

// limitedBackend queues generations so at most n run per model at once
type limitedBackend struct {
	inner  Backend
	limits *limiter
}

func (b *limitedBackend) Generate(ctx context.Context, req Request) (string, error) {
	release, err := b.limits.acquire(ctx, req.Model)
	if err != nil {
		return "", err
	}
	defer release()
	return b.inner.Generate(ctx, req)
}

type limiter struct {
	size int

	mu    sync.Mutex
	slots map[string]chan struct{}
}

func newLimiter(size int) *limiter {
	if size < 1 {
		size = 1
	}
	return &limiter{size: size, slots: make(map[string]chan struct{})}
}

func (l *limiter) acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, l.size)
		l.slots[key] = ch
	}
	l.mu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
