package service

import (
	"context"
	"feedbacklens/internal/config"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestPipeline(t *testing.T, backend *fakeBackend) *Pipeline {
	t.Helper()
	loader := newTestLoader(t, map[string]string{"a.csv": scenarioCSV})
	return NewPipeline(config.DefaultAIConfig(), fakeFactory{backend: backend}, loader, zap.NewNop())
}

func TestPipeline_DefaultModel(t *testing.T) {
	p := newTestPipeline(t, scriptedBackend())

	svc, err := p.Model("")
	require.NoError(t, err)
	assert.Equal(t, p.DefaultModel(), svc.Key())
	assert.Equal(t, p.AvailableModels(), svc.AvailableModels())
}

func TestPipeline_UnknownModel(t *testing.T) {
	p := newTestPipeline(t, scriptedBackend())

	_, err := p.Analyzer("gpt-17")
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestPipeline_AnalyzerSharesCacheAndReports(t *testing.T) {
	backend := scriptedBackend()
	p := newTestPipeline(t, backend)
	repo := newMemoryReportRepo()
	p.SetReportService(NewReportService(repo))
	p.SetCache(&memoryCache{})

	for i := 0; i < 2; i++ {
		a, err := p.Analyzer("llama-3.1-8b")
		require.NoError(t, err)
		_, err = a.AnalyzeClass(context.Background(), scenarioRequest)
		require.NoError(t, err)
	}

	// second run is served from the cache
	assert.Len(t, backend.Calls(), 1)
	assert.Len(t, repo.reports, 2)
}

func TestPipeline_ExplainOptions(t *testing.T) {
	p := newTestPipeline(t, scriptedBackend())

	a, err := p.Analyzer("")
	require.NoError(t, err)
	assert.Equal(t, DefaultExplainOptions, a.evaluator.opts)

	opts := ExplainOptions{NumFeatures: 2, Permutations: 4, MaxBackground: 10, Seed: 7}
	p.SetExplainOptions(opts)
	a, err = p.Analyzer("")
	require.NoError(t, err)
	assert.Equal(t, opts, a.evaluator.opts)
}
