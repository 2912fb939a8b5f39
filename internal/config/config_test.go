package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATA_DIR", "/tmp/fl")
	t.Setenv("PORT", "")
	t.Setenv("MODELS_FILE", "")
	t.Setenv("AUTH_ENABLED", "")
	t.Setenv("DEFAULT_MODEL", "")
	t.Setenv("SIMILARITY_SCORER", "")
	t.Setenv("MERGE_STRATEGY", "")
	t.Setenv("EXPLAIN_NUM_FEATURES", "")
	t.Setenv("EXPLAIN_PERMUTATIONS", "")
	t.Setenv("EXPLAIN_MAX_BACKGROUND", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.HTTPPort)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, filepath.Join("/tmp/fl", "raw"), cfg.RawDataDir)
	assert.Equal(t, filepath.Join("/tmp/fl", "processed"), cfg.ProcessedDataDir)
	assert.Equal(t, "utf-8", cfg.CSVEncoding)
	assert.Equal(t, "ICAP", cfg.DefaultFramework)
	assert.Equal(t, "llama-3.1-8b", cfg.AI.DefaultModel)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "lexical", cfg.SimilarityScorer)
	assert.Equal(t, "deep", cfg.MergeStrategy)
	assert.Equal(t, ExplainConfig{NumFeatures: 10, Permutations: 32, MaxBackground: 100}, cfg.Explain)
}

func TestLoad_ExplainSettings(t *testing.T) {
	t.Setenv("MODELS_FILE", "")
	t.Setenv("DEFAULT_MODEL", "")
	t.Setenv("SIMILARITY_SCORER", "")
	t.Setenv("MERGE_STRATEGY", "")
	t.Setenv("EXPLAIN_NUM_FEATURES", "5")
	t.Setenv("EXPLAIN_PERMUTATIONS", "8")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Explain.NumFeatures)
	assert.Equal(t, 8, cfg.Explain.Permutations)

	t.Setenv("EXPLAIN_PERMUTATIONS", "0")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EXPLAIN_PERMUTATIONS")
}

func TestLoad_RejectsUnknownStrategies(t *testing.T) {
	t.Setenv("MODELS_FILE", "")
	t.Setenv("DEFAULT_MODEL", "")
	t.Setenv("SIMILARITY_SCORER", "bleu")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("SIMILARITY_SCORER", "Embedding")
	t.Setenv("MERGE_STRATEGY", "zip")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MERGE_STRATEGY")
}

func TestLoad_AuthRequiresSecret(t *testing.T) {
	t.Setenv("AUTH_ENABLED", "true")
	t.Setenv("HOST_PASSWORD", "")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_UnknownDefaultModel(t *testing.T) {
	t.Setenv("DEFAULT_MODEL", "gpt-nope")
	t.Setenv("MODELS_FILE", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gpt-nope")
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("FL_INT", "7")
	t.Setenv("FL_BAD_INT", "seven")
	t.Setenv("FL_DUR", "3s")
	t.Setenv("FL_LIST", " a, b ,,c ")
	t.Setenv("FL_MISSING", "")
	t.Setenv("FL_SECOND", "v")

	assert.Equal(t, 7, getEnvInt("FL_INT", 1))
	assert.Equal(t, 1, getEnvInt("FL_BAD_INT", 1))
	assert.Equal(t, 3*time.Second, getEnvDuration("FL_DUR", time.Second))
	assert.Equal(t, []string{"a", "b", "c"}, getEnvList("FL_LIST", nil))
	assert.Equal(t, "v", firstEnv("FL_MISSING", "FL_SECOND"))
}

func TestLoadModelsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
default_model: local-mistral
models:
  local-mistral:
    name: mistralai/Mistral-7B-Instruct-v0.3
    max_tokens: 1024
    temperature: 0.2
    context_length: 8192
`), 0o644))

	cfg := DefaultAIConfig()
	require.NoError(t, cfg.LoadModelsFile(path))

	mc, ok := cfg.Lookup("local-mistral")
	require.True(t, ok)
	assert.Equal(t, "mistralai/Mistral-7B-Instruct-v0.3", mc.Name)
	assert.Equal(t, 1024, mc.MaxTokens)
	assert.Equal(t, ProviderOpenAI, mc.Provider)
	assert.Equal(t, "local-mistral", cfg.DefaultModel)

	// built-in entries survive the merge
	_, ok = cfg.Lookup("llama-3.1-8b")
	assert.True(t, ok)
}

func TestLoadModelsFile_MissingName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yaml")
	require.NoError(t, os.WriteFile(path, []byte("models:\n  broken:\n    max_tokens: 10\n"), 0o644))

	err := DefaultAIConfig().LoadModelsFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestRegistryIsACopy(t *testing.T) {
	cfg := DefaultAIConfig()
	reg := cfg.Registry()
	delete(reg, "llama-3.1-8b")

	_, ok := cfg.Lookup("llama-3.1-8b")
	assert.True(t, ok)
}
