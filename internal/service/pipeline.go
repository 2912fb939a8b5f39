package service

import (
	"feedbacklens/internal/cache"
	"feedbacklens/internal/config"
	"feedbacklens/internal/llm"

	"go.uber.org/zap"
)

// Pipeline holds the long-lived dependencies and builds one analyzer per request
type Pipeline struct {
	ai       *config.AIConfig
	backends llm.Factory
	loader   *Loader
	logger   *zap.Logger

	cache       cache.GenerationCache
	scorer      SimilarityScorer
	broadcaster Broadcaster
	reports     *ReportService
	merge       MergeStrategy
	explain     ExplainOptions
}

// NewPipeline creates a pipeline over the shared loader and model backends
func NewPipeline(ai *config.AIConfig, backends llm.Factory, loader *Loader, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		ai:       ai,
		backends: backends,
		loader:   loader,
		logger:   logger,
		merge:    MergeDeep,
		explain:  DefaultExplainOptions,
	}
}

// SetCache enables the generation cache for every analyzer
func (p *Pipeline) SetCache(c cache.GenerationCache) { p.cache = c }

// SetScorer replaces the default lexical similarity scorer
func (p *Pipeline) SetScorer(s SimilarityScorer) { p.scorer = s }

// SetBroadcaster enables progress events
func (p *Pipeline) SetBroadcaster(b Broadcaster) { p.broadcaster = b }

// SetReportService enables persistence of finished analyses
func (p *Pipeline) SetReportService(r *ReportService) { p.reports = r }

// SetMergeStrategy changes how multi-file aggregates combine
func (p *Pipeline) SetMergeStrategy(m MergeStrategy) { p.merge = m }

// SetExplainOptions sizes the explanation metrics of every analyzer
func (p *Pipeline) SetExplainOptions(opts ExplainOptions) { p.explain = opts }

// Loader returns the shared loader
func (p *Pipeline) Loader() *Loader { return p.loader }

// DefaultModel is the registry key used when a request names none
func (p *Pipeline) DefaultModel() string { return p.ai.DefaultModel }

// AvailableModels returns the model registry
func (p *Pipeline) AvailableModels() map[string]config.ModelConfig { return p.ai.Registry() }

// Model builds a model service for key, or the default model when key is empty
func (p *Pipeline) Model(key string) (*ModelService, error) {
	if key == "" {
		key = p.ai.DefaultModel
	}
	svc, err := NewModelService(p.ai, key, p.backends, p.logger)
	if err != nil {
		return nil, err
	}
	if p.cache != nil {
		svc.SetCache(p.cache)
	}
	return svc, nil
}

// Analyzer builds an analyzer bound to the model named key
func (p *Pipeline) Analyzer(key string) (*AnalyzerService, error) {
	modelSvc, err := p.Model(key)
	if err != nil {
		return nil, err
	}
	evaluator := NewEvaluatorService(modelSvc, p.scorer, p.logger)
	evaluator.SetExplainOptions(p.explain)
	a := NewAnalyzerService(p.loader, modelSvc, evaluator, p.logger)
	a.SetMergeStrategy(p.merge)
	if p.broadcaster != nil {
		a.SetBroadcaster(p.broadcaster)
	}
	if p.reports != nil {
		a.SetReportService(p.reports)
	}
	return a, nil
}
