package service

import (
	"context"
	"errors"
	"feedbacklens/internal/model"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []model.ProgressEvent
}

func (r *recordingBroadcaster) BroadcastProgress(event model.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingBroadcaster) stages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		out = append(out, e.Stage)
	}
	return out
}

func newTestAnalyzer(t *testing.T, backend *fakeBackend) *AnalyzerService {
	t.Helper()
	loader := newTestLoader(t, map[string]string{"a.csv": scenarioCSV})
	modelSvc := newTestModelService(t, backend)
	evaluator := NewEvaluatorService(modelSvc, nil, zap.NewNop())
	return NewAnalyzerService(loader, modelSvc, evaluator, zap.NewNop())
}

var scenarioRequest = Request{Files: []string{"a.csv"}, Columns: Columns{Date: "date"}}

func TestAnalyzeClass(t *testing.T) {
	a := newTestAnalyzer(t, scriptedBackend())

	res, err := a.AnalyzeClass(context.Background(), scenarioRequest)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Statistics.TotalGroups)
	assert.Equal(t, 3, res.Statistics.TotalStudents)
	assert.Equal(t, 3, res.Statistics.TotalFeedback)
	assert.Equal(t, 1.0, res.Statistics.AverageFeedbackPerStudent)
	assert.Contains(t, res.LLMAnalysis, "overall_trends")
	assert.Equal(t, "meta-llama/Llama-3.1-8B-Instruct", res.ModelUsed)
}

func TestAnalyzeGroup(t *testing.T) {
	a := newTestAnalyzer(t, scriptedBackend())

	res, err := a.AnalyzeGroup(context.Background(), scenarioRequest, "A")
	require.NoError(t, err)
	assert.Equal(t, "A", res.Statistics.GroupName)
	assert.Equal(t, 2, res.Statistics.StudentCount)
	assert.Equal(t, 2, res.Statistics.FeedbackCount)
	assert.Contains(t, res.LLMAnalysis, "group_dynamics")
}

func TestAnalyzeGroup_NotFound(t *testing.T) {
	backend := scriptedBackend()
	a := newTestAnalyzer(t, backend)

	_, err := a.AnalyzeGroup(context.Background(), scenarioRequest, "C")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, backend.Calls())
}

func TestAnalyzeStudent(t *testing.T) {
	a := newTestAnalyzer(t, scriptedBackend())

	res, err := a.AnalyzeStudent(context.Background(), scenarioRequest, "A", "1", StudentOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, res.StudentData.Feedback)
	assert.Equal(t, 1, res.StudentData.FeedbackCount)
	assert.Contains(t, res.LLMAnalysis, "framework_analysis")
	require.Len(t, res.EvaluationResults, 1)
	assert.Equal(t, 82.0, res.EvaluationResults[0].LLMEvaluation.Score)
	assert.Nil(t, res.EvaluationResults[0].Similarity)
}

func TestAnalyzeStudent_DefaultFramework(t *testing.T) {
	backend := scriptedBackend()
	a := newTestAnalyzer(t, backend)

	_, err := a.AnalyzeStudent(context.Background(), scenarioRequest, "A", "1", StudentOptions{})
	require.NoError(t, err)
	var found bool
	for _, c := range backend.Calls() {
		if containsAll(c.Prompt, "for a specific student", "ICAP") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestAnalyzeStudent_ReferenceAndExplain(t *testing.T) {
	a := newTestAnalyzer(t, scriptedBackend())

	res, err := a.AnalyzeStudent(context.Background(), scenarioRequest, "A", "1", StudentOptions{
		Reference: "x",
		Explain:   true,
	})
	require.NoError(t, err)
	b := res.EvaluationResults[0]
	require.NotNil(t, b.Similarity)
	assert.InDelta(t, 1.0, b.Similarity.F1, 1e-9)
	assert.NotNil(t, b.Explanation)
	assert.NotNil(t, b.Attribution)
}

func TestAnalyzeStudent_NotFound(t *testing.T) {
	a := newTestAnalyzer(t, scriptedBackend())

	_, err := a.AnalyzeStudent(context.Background(), scenarioRequest, "B", "1", StudentOptions{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAnalyze_NotJSON(t *testing.T) {
	a := newTestAnalyzer(t, &fakeBackend{fallback: "I think the class did well."})

	res, err := a.AnalyzeClass(context.Background(), scenarioRequest)
	assert.Nil(t, res)
	var perr *ResponseParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "I think the class did well.", perr.Raw)
	assert.ErrorIs(t, err, ErrResponseParse)
}

func TestAnalyze_MissingFile(t *testing.T) {
	a := newTestAnalyzer(t, scriptedBackend())

	_, err := a.AnalyzeClass(context.Background(), Request{Files: []string{"nope.csv"}})
	assert.ErrorIs(t, err, ErrFileNotFound)

	_, err = a.AnalyzeClass(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestAnalyze_SchemaError(t *testing.T) {
	a := newTestAnalyzer(t, scriptedBackend())

	_, err := a.AnalyzeClass(context.Background(), Request{Files: []string{"a.csv"}, Columns: Columns{Feedback: "comment"}})
	var serr *SchemaError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, []string{"comment"}, serr.Missing)
}

func TestCompare(t *testing.T) {
	a := newTestAnalyzer(t, scriptedBackend())

	res, err := a.Compare(context.Background(), scenarioRequest, "A", "2", StudentOptions{Reference: "y"})
	require.NoError(t, err)
	require.NotNil(t, res.StudentAnalysis)
	require.NotNil(t, res.Comparison.Similarity)
	assert.Equal(t, []float64{1}, res.Comparison.Similarity.F1)
	assert.Equal(t, []float64{82}, res.Comparison.LLMScores)
}

func TestCompare_WithoutReference(t *testing.T) {
	a := newTestAnalyzer(t, scriptedBackend())

	res, err := a.Compare(context.Background(), scenarioRequest, "A", "2", StudentOptions{})
	require.NoError(t, err)
	assert.Nil(t, res.Comparison.Similarity)
	assert.Equal(t, []float64{82}, res.Comparison.LLMScores)
}

func TestAnalyze_Progress(t *testing.T) {
	a := newTestAnalyzer(t, scriptedBackend())
	rec := &recordingBroadcaster{}
	a.SetBroadcaster(rec)

	req := scenarioRequest
	req.ProgressID = "p1"
	_, err := a.AnalyzeStudent(context.Background(), req, "A", "1", StudentOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"loading", "statistics", "analyzing", "evaluating", "evaluating", "done"}, rec.stages())
	for _, e := range rec.events {
		assert.Equal(t, "p1", e.ProgressID)
	}
}

func TestAnalyze_ProgressFailure(t *testing.T) {
	a := newTestAnalyzer(t, scriptedBackend())
	rec := &recordingBroadcaster{}
	a.SetBroadcaster(rec)

	req := scenarioRequest
	req.ProgressID = "p2"
	_, err := a.AnalyzeGroup(context.Background(), req, "C")
	require.Error(t, err)
	stages := rec.stages()
	assert.Equal(t, "failed", stages[len(stages)-1])
}

func TestAnalyze_NoProgressIDIsSilent(t *testing.T) {
	a := newTestAnalyzer(t, scriptedBackend())
	rec := &recordingBroadcaster{}
	a.SetBroadcaster(rec)

	_, err := a.AnalyzeClass(context.Background(), scenarioRequest)
	require.NoError(t, err)
	assert.Empty(t, rec.stages())
}

func TestAnalyze_PersistsReports(t *testing.T) {
	a := newTestAnalyzer(t, scriptedBackend())
	repo := newMemoryReportRepo()
	a.SetReportService(NewReportService(repo))

	_, err := a.AnalyzeGroup(context.Background(), scenarioRequest, "B")
	require.NoError(t, err)
	require.Len(t, repo.reports, 1)
	for _, r := range repo.reports {
		assert.Equal(t, model.ReportGroup, r.Kind)
		assert.Equal(t, "B", r.Params["group_name"])
		assert.Equal(t, "llama-3.1-8b", r.ModelKey)
	}
}

func TestAnalyze_PersistFailureIsNotFatal(t *testing.T) {
	a := newTestAnalyzer(t, scriptedBackend())
	repo := newMemoryReportRepo()
	repo.err = errors.New("mongo down")
	a.SetReportService(NewReportService(repo))

	res, err := a.AnalyzeClass(context.Background(), scenarioRequest)
	require.NoError(t, err)
	assert.NotNil(t, res)
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
