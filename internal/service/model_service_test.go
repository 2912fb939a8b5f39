package service

import (
	"context"
	"errors"
	"feedbacklens/internal/config"
	"feedbacklens/internal/llm"
	"feedbacklens/internal/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewModelService_UnknownKey(t *testing.T) {
	_, err := NewModelService(config.DefaultAIConfig(), "gpt-17", fakeFactory{backend: &fakeBackend{}}, zap.NewNop())
	require.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), "gpt-17")
}

func TestNewModelService_ProviderDisabled(t *testing.T) {
	_, err := NewModelService(config.DefaultAIConfig(), "gemini-2.0-flash",
		fakeFactory{err: llm.ErrProviderDisabled}, zap.NewNop())
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestModelService_RegistryRoundTrip(t *testing.T) {
	ai := config.DefaultAIConfig()
	for key := range ai.Registry() {
		svc, err := NewModelService(ai, key, fakeFactory{backend: &fakeBackend{}}, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, svc.AvailableModels()[key], svc.Config(), key)
	}
}

func TestGenerate_Overrides(t *testing.T) {
	backend := &fakeBackend{fallback: "ok"}
	svc := newTestModelService(t, backend)

	maxTokens, temp := 42, 0.0
	_, err := svc.Generate(context.Background(), "p", GenerateOptions{MaxTokens: &maxTokens, Temperature: &temp})
	require.NoError(t, err)
	_, err = svc.Generate(context.Background(), "p", GenerateOptions{})
	require.NoError(t, err)

	calls := backend.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, 42, calls[0].MaxTokens)
	assert.Equal(t, 0.0, calls[0].Temperature)
	// the override does not stick
	assert.Equal(t, 512, calls[1].MaxTokens)
	assert.Equal(t, 0.7, calls[1].Temperature)
	assert.Equal(t, "meta-llama/Llama-3.1-8B-Instruct", calls[1].Model)
}

type blockingBackend struct{}

func (blockingBackend) Generate(ctx context.Context, _ llm.Request) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestGenerate_Timeout(t *testing.T) {
	ai := config.DefaultAIConfig()
	ai.Timeout = 20 * time.Millisecond
	svc, err := NewModelService(ai, "llama-3.1-8b", fakeFactory{backend: blockingBackend{}}, zap.NewNop())
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), "p", GenerateOptions{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGenerate_Cache(t *testing.T) {
	backend := &fakeBackend{fallback: "cached text"}
	svc := newTestModelService(t, backend)
	svc.SetCache(&memoryCache{})

	for i := 0; i < 3; i++ {
		out, err := svc.Generate(context.Background(), "same prompt", GenerateOptions{})
		require.NoError(t, err)
		assert.Equal(t, "cached text", out)
	}
	assert.Len(t, backend.Calls(), 1)

	_, err := svc.Generate(context.Background(), "other prompt", GenerateOptions{})
	require.NoError(t, err)
	assert.Len(t, backend.Calls(), 2)
}

func TestModelService_AnalyzeNotJSON(t *testing.T) {
	svc := newTestModelService(t, &fakeBackend{fallback: "not json"})
	ctx := context.Background()

	agg := model.Aggregate{}
	agg.Student("A", "1").Add("x", nil)

	calls := map[string]func() (map[string]any, error){
		"class":    func() (map[string]any, error) { return svc.AnalyzeClass(ctx, agg) },
		"group":    func() (map[string]any, error) { return svc.AnalyzeGroup(ctx, agg["A"]) },
		"student":  func() (map[string]any, error) { return svc.AnalyzeStudent(ctx, model.StudentData{}, "ICAP") },
		"evaluate": func() (map[string]any, error) { return svc.EvaluateFeedback(ctx, "x") },
	}
	for name, call := range calls {
		out, err := call()
		assert.Nil(t, out, name)
		require.ErrorIs(t, err, ErrResponseParse, name)

		var pe *ResponseParseError
		require.True(t, errors.As(err, &pe), name)
		assert.Equal(t, "not json", pe.Raw)
	}
}

func TestAnalyze_NonObjectJSON(t *testing.T) {
	svc := newTestModelService(t, &fakeBackend{fallback: "[1, 2]"})
	_, err := svc.EvaluateFeedback(context.Background(), "x")
	require.ErrorIs(t, err, ErrResponseParse)
}

func TestAnalyzeStudent_RendersFramework(t *testing.T) {
	backend := scriptedBackend()
	svc := newTestModelService(t, backend)

	out, err := svc.AnalyzeStudent(context.Background(), model.StudentData{
		GroupName: "A", StudentName: "1", Feedback: []string{"great <work> & more"}, FeedbackCount: 1,
	}, "SOLO")
	require.NoError(t, err)
	assert.Equal(t, []any{"clear"}, out["strengths"])

	calls := backend.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, "using the SOLO framework")
	assert.Contains(t, calls[0].Prompt, `"great <work> & more"`)
	assert.Contains(t, calls[0].Prompt, `"student_name": "1"`)
	assert.True(t, calls[0].JSON)
}

func TestAnalyzeClass_PromptContainsData(t *testing.T) {
	backend := scriptedBackend()
	svc := newTestModelService(t, backend)

	agg := model.Aggregate{}
	agg.Student("A", "1").Add("x", nil)
	out, err := svc.AnalyzeClass(context.Background(), agg)
	require.NoError(t, err)
	assert.Contains(t, out, "overall_trends")

	prompt := backend.Calls()[0].Prompt
	assert.Contains(t, prompt, `"feedback_count": 1`)
	assert.Contains(t, prompt, `"challenge_needed": {}`)
}

func TestSummarizeFeedback(t *testing.T) {
	backend := (&fakeBackend{}).on("Technical Skills", "  Technical: solid.\n")
	svc := newTestModelService(t, backend)

	out, err := svc.SummarizeFeedback(context.Background(), "writes clean code")
	require.NoError(t, err)
	assert.Equal(t, "Technical: solid.", out)
	assert.Contains(t, backend.Calls()[0].Prompt, "Feedback: writes clean code")
}

func TestPromptKeys(t *testing.T) {
	prompts := []Prompt{ClassPrompt{}, GroupPrompt{}, StudentPrompt{}, EvaluationPrompt{}}
	for _, p := range prompts {
		text, err := p.render()
		require.NoError(t, err)
		for _, k := range p.Keys() {
			assert.Contains(t, text, `"`+k+`"`)
		}
	}
}
