package service

import (
	"context"
	"encoding/json"
	"feedbacklens/internal/cache"
	"feedbacklens/internal/config"
	"feedbacklens/internal/llm"
	"feedbacklens/internal/model"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

// GenerateOptions override the model defaults for a single call
type GenerateOptions struct {
	MaxTokens   *int
	Temperature *float64
	JSON        bool
}

// ModelService wraps one registry model for its whole lifetime
type ModelService struct {
	key      string
	cfg      config.ModelConfig
	registry map[string]config.ModelConfig
	timeout  time.Duration

	backend llm.Backend
	cache   cache.GenerationCache
	logger  *zap.Logger
}

// NewModelService selects the registry model named key. Unknown keys fail.
func NewModelService(ai *config.AIConfig, key string, backends llm.Factory, logger *zap.Logger) (*ModelService, error) {
	mc, ok := ai.Lookup(key)
	if !ok {
		return nil, fmt.Errorf("%w: model %s not found in configurations", ErrConfiguration, key)
	}
	backend, err := backends.Backend(mc.Provider)
	if err != nil {
		return nil, fmt.Errorf("%w: model %s: %v", ErrConfiguration, key, err)
	}
	return &ModelService{
		key:      key,
		cfg:      mc,
		registry: ai.Registry(),
		timeout:  ai.Timeout,
		backend:  backend,
		logger:   logger.With(zap.String("model", key)),
	}, nil
}

// SetCache enables the generation cache
func (s *ModelService) SetCache(c cache.GenerationCache) {
	s.cache = c
}

// Key is the registry key of the selected model
func (s *ModelService) Key() string { return s.key }

// Name is the provider-side model identifier
func (s *ModelService) Name() string { return s.cfg.Name }

// Config returns the selected registry entry
func (s *ModelService) Config() config.ModelConfig { return s.cfg }

// AvailableModels returns the whole registry
func (s *ModelService) AvailableModels() map[string]config.ModelConfig {
	out := make(map[string]config.ModelConfig, len(s.registry))
	for k, v := range s.registry {
		out[k] = v
	}
	return out
}

// Generate runs the prompt through the model
func (s *ModelService) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	req := llm.Request{
		Model:       s.cfg.Name,
		Prompt:      prompt,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
		JSON:        opts.JSON,
	}
	if opts.MaxTokens != nil {
		req.MaxTokens = *opts.MaxTokens
	}
	if opts.Temperature != nil {
		req.Temperature = *opts.Temperature
	}

	if est := estimateTokens(prompt); s.cfg.ContextLength > 0 && est > s.cfg.ContextLength {
		s.logger.Warn("prompt may exceed model context",
			zap.Int("estimatedTokens", est),
			zap.Int("contextLength", s.cfg.ContextLength),
		)
	}

	var cacheKey string
	if s.cache != nil {
		cacheKey = cache.GenerationKey(req.Model, prompt, req.MaxTokens, req.Temperature, req.JSON)
		gen, err := s.cache.Get(ctx, cacheKey)
		if err != nil {
			s.logger.Warn("generation cache read failed", zap.Error(err))
		} else if gen != nil {
			s.logger.Debug("generation cache hit")
			return gen.Text, nil
		}
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := s.backend.Generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("generate with %s: %w", s.key, err)
	}
	s.logger.Debug("generation done",
		zap.Duration("took", time.Since(start)),
		zap.Int("chars", len(text)),
	)

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, &model.Generation{Model: req.Model, Text: text}); err != nil {
			s.logger.Warn("generation cache write failed", zap.Error(err))
		}
	}
	return text, nil
}

// analyze renders p, generates and parses the reply as a JSON object
func (s *ModelService) analyze(ctx context.Context, p Prompt) (map[string]any, error) {
	prompt, err := p.render()
	if err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}
	text, err := s.Generate(ctx, prompt, GenerateOptions{JSON: true})
	if err != nil {
		return nil, err
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &out); err != nil {
		return nil, &ResponseParseError{Raw: text, Err: err}
	}
	if out == nil {
		return nil, &ResponseParseError{Raw: text, Err: fmt.Errorf("expected a JSON object")}
	}

	var missing []string
	for _, k := range p.Keys() {
		if _, ok := out[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		s.logger.Warn("model response is missing sections", zap.Strings("keys", missing))
	}
	return out, nil
}

// AnalyzeClass analyzes the whole aggregate
func (s *ModelService) AnalyzeClass(ctx context.Context, agg model.Aggregate) (map[string]any, error) {
	return s.analyze(ctx, ClassPrompt{Data: agg})
}

// AnalyzeGroup analyzes one group's students
func (s *ModelService) AnalyzeGroup(ctx context.Context, group model.Group) (map[string]any, error) {
	return s.analyze(ctx, GroupPrompt{Data: group})
}

// AnalyzeStudent analyzes one student under framework
func (s *ModelService) AnalyzeStudent(ctx context.Context, data model.StudentData, framework string) (map[string]any, error) {
	return s.analyze(ctx, StudentPrompt{Data: data, Framework: framework})
}

// EvaluateFeedback asks the model to judge the quality of a feedback text
func (s *ModelService) EvaluateFeedback(ctx context.Context, text string) (map[string]any, error) {
	return s.analyze(ctx, EvaluationPrompt{FeedbackText: text})
}

// SummarizeFeedback returns a free-text summary of one student's feedback
func (s *ModelService) SummarizeFeedback(ctx context.Context, text string) (string, error) {
	out, err := s.Generate(ctx, renderSummary(text), GenerateOptions{})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// estimateTokens is a rough count, about four characters per token
func estimateTokens(s string) int {
	return (utf8.RuneCountInString(s) + 3) / 4
}
