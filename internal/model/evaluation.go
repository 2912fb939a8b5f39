package model

// SimilarityMetric compares a feedback text with a reference text
type SimilarityMetric struct {
	Scorer    string  `json:"scorer"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Error     string  `json:"error,omitempty"`
}

// FeatureWeight is one token and its contribution to the predicted class
type FeatureWeight struct {
	Feature string  `json:"feature"`
	Weight  float64 `json:"weight"`
}

// Explanation is a local, occlusion-based explanation of a classifier prediction
type Explanation struct {
	Class        string          `json:"class"`
	Explanations []FeatureWeight `json:"explanations"`
	TopFeatures  []FeatureWeight `json:"top_features"`
	Error        string          `json:"error,omitempty"`
}

// Attribution holds sampled Shapley values for each token
type Attribution struct {
	Class             string          `json:"class"`
	ShapValues        []FeatureWeight `json:"shap_values"`
	FeatureImportance []FeatureWeight `json:"feature_importance"`
	BaseValue         float64         `json:"base_value"`
	Error             string          `json:"error,omitempty"`
}

// LLMEvaluation is the model-judged quality of a feedback text
type LLMEvaluation struct {
	Score           float64            `json:"score"`
	Justification   string             `json:"justification"`
	CriterionScores map[string]float64 `json:"criterion_scores"`
	Raw             map[string]any     `json:"raw,omitempty"`
	Error           string             `json:"error,omitempty"`
}

// EvaluationBundle collects the metrics computed for one feedback text.
// A nil member was not requested; a member with Error set was attempted and failed.
type EvaluationBundle struct {
	Similarity    *SimilarityMetric `json:"similarity,omitempty"`
	Explanation   *Explanation      `json:"explanation,omitempty"`
	Attribution   *Attribution      `json:"attribution,omitempty"`
	LLMEvaluation *LLMEvaluation    `json:"llm_evaluation,omitempty"`
}

// HasSimilarity reports a successful similarity metric
func (b EvaluationBundle) HasSimilarity() bool {
	return b.Similarity != nil && b.Similarity.Error == ""
}

// HasLLMEvaluation reports a successful model evaluation
func (b EvaluationBundle) HasLLMEvaluation() bool {
	return b.LLMEvaluation != nil && b.LLMEvaluation.Error == ""
}

// SimilarityComparison lines up similarity scores across bundles
type SimilarityComparison struct {
	Precision []float64 `json:"precision"`
	Recall    []float64 `json:"recall"`
	F1        []float64 `json:"f1"`
}

// ComparisonSummary aggregates several bundles. A section is present only
// when every bundle carries that metric.
type ComparisonSummary struct {
	Similarity *SimilarityComparison `json:"similarity,omitempty"`
	LLMScores  []float64             `json:"llm_scores,omitempty"`
}
