package service

import (
	"context"
	"feedbacklens/internal/model"
	"fmt"
	"strconv"

	"go.uber.org/zap"
)

// FeedbackJudge scores a feedback text with a language model
type FeedbackJudge interface {
	EvaluateFeedback(ctx context.Context, text string) (map[string]any, error)
}

// EvaluateInput carries the optional inputs that switch metrics on
type EvaluateInput struct {
	// Reference enables similarity
	Reference string
	// Model enables the explanation; with Background it also enables attribution
	Model      Classifier
	Background []string
}

// EvaluatorService computes quality metrics for feedback texts
type EvaluatorService struct {
	judge  FeedbackJudge
	scorer SimilarityScorer
	opts   ExplainOptions
	logger *zap.Logger
}

// NewEvaluatorService creates an evaluator. A nil scorer means lexical similarity.
func NewEvaluatorService(judge FeedbackJudge, scorer SimilarityScorer, logger *zap.Logger) *EvaluatorService {
	if scorer == nil {
		scorer = LexicalScorer{}
	}
	return &EvaluatorService{
		judge:  judge,
		scorer: scorer,
		opts:   DefaultExplainOptions,
		logger: logger,
	}
}

// SetExplainOptions overrides the explanation defaults
func (s *EvaluatorService) SetExplainOptions(opts ExplainOptions) {
	s.opts = opts
}

// Evaluate runs every metric whose inputs are present. Failures are recorded
// on the metric, never dropped.
func (s *EvaluatorService) Evaluate(ctx context.Context, text string, in EvaluateInput) model.EvaluationBundle {
	var b model.EvaluationBundle

	if in.Reference != "" {
		sim, err := s.scorer.Score(ctx, text, in.Reference)
		if err != nil {
			s.logger.Warn("similarity failed", zap.String("scorer", s.scorer.Name()), zap.Error(err))
			sim = &model.SimilarityMetric{Scorer: s.scorer.Name(), Error: err.Error()}
		}
		b.Similarity = sim
	}

	if in.Model != nil {
		exp, err := explainOcclusion(ctx, in.Model, text, s.opts.NumFeatures)
		if err != nil {
			s.logger.Warn("explanation failed", zap.Error(err))
			exp = &model.Explanation{Error: err.Error()}
		}
		b.Explanation = exp

		if len(in.Background) > 0 {
			attr, err := attributeShapley(ctx, in.Model, text, in.Background, s.opts)
			if err != nil {
				s.logger.Warn("attribution failed", zap.Error(err))
				attr = &model.Attribution{Error: err.Error()}
			}
			b.Attribution = attr
		}
	}

	b.LLMEvaluation = s.judgeFeedback(ctx, text)
	return b
}

func (s *EvaluatorService) judgeFeedback(ctx context.Context, text string) *model.LLMEvaluation {
	raw, err := s.judge.EvaluateFeedback(ctx, text)
	if err != nil {
		s.logger.Warn("llm evaluation failed", zap.Error(err))
		return &model.LLMEvaluation{Error: err.Error()}
	}

	ev := &model.LLMEvaluation{Raw: raw, CriterionScores: map[string]float64{}}
	score, ok := toFloat(raw["score"])
	if !ok {
		ev.Error = fmt.Sprintf("response has no numeric score: %v", raw["score"])
		return ev
	}
	ev.Score = score

	switch j := raw["justification"].(type) {
	case string:
		ev.Justification = j
	case nil:
	default:
		ev.Justification = fmt.Sprint(j)
	}
	if crit, ok := raw["criterion_scores"].(map[string]any); ok {
		for k, v := range crit {
			if f, ok := toFloat(v); ok {
				ev.CriterionScores[k] = f
			}
		}
	}
	return ev
}

// Compare lines up metrics across bundles. A section appears only when every
// bundle has that metric and it succeeded.
func (s *EvaluatorService) Compare(bundles []model.EvaluationBundle) model.ComparisonSummary {
	return CompareBundles(bundles)
}

// CompareBundles is Compare without an evaluator
func CompareBundles(bundles []model.EvaluationBundle) model.ComparisonSummary {
	var out model.ComparisonSummary
	if len(bundles) == 0 {
		return out
	}

	allSim, allLLM := true, true
	for _, b := range bundles {
		allSim = allSim && b.HasSimilarity()
		allLLM = allLLM && b.HasLLMEvaluation()
	}

	if allSim {
		sim := &model.SimilarityComparison{}
		for _, b := range bundles {
			sim.Precision = append(sim.Precision, b.Similarity.Precision)
			sim.Recall = append(sim.Recall, b.Similarity.Recall)
			sim.F1 = append(sim.F1, b.Similarity.F1)
		}
		out.Similarity = sim
	}
	if allLLM {
		for _, b := range bundles {
			out.LLMScores = append(out.LLMScores, b.LLMEvaluation.Score)
		}
	}
	return out
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
