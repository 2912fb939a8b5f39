package model

import "time"

// ClassAnalysis is the result of a class-level analysis
type ClassAnalysis struct {
	Statistics  ClassSummary   `json:"statistics"`
	LLMAnalysis map[string]any `json:"llm_analysis"`
	ModelUsed   string         `json:"model_used"`
}

// GroupAnalysis is the result of a group-level analysis
type GroupAnalysis struct {
	Statistics  GroupSummary   `json:"statistics"`
	LLMAnalysis map[string]any `json:"llm_analysis"`
	ModelUsed   string         `json:"model_used"`
}

// StudentAnalysis is the result of a student-level analysis
type StudentAnalysis struct {
	StudentData       StudentData        `json:"student_data"`
	LLMAnalysis       map[string]any     `json:"llm_analysis"`
	EvaluationResults []EvaluationBundle `json:"evaluation_results"`
	ModelUsed         string             `json:"model_used"`
}

// Comparison is a student analysis plus the cross-bundle summary
type Comparison struct {
	StudentAnalysis *StudentAnalysis  `json:"student_analysis"`
	Comparison      ComparisonSummary `json:"comparison"`
	ModelUsed       string            `json:"model_used"`
}

// ProgressEvent is pushed to progress subscribers while an analysis runs
type ProgressEvent struct {
	ProgressID string `json:"progressId"`
	Stage      string `json:"stage"`
	Detail     string `json:"detail,omitempty"`
	Step       int    `json:"step"`
	Total      int    `json:"total"`
}

// Generation is a cached model output
type Generation struct {
	Model     string    `json:"model"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Dataset is a CSV file available in the raw data directory
type Dataset struct {
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	ModifiedAt int64  `json:"modifiedAt"`
}
