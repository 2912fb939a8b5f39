package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process-wide configuration. Built once in main and passed down.
type Config struct {
	HTTPPort    string
	APIPrefix   string
	Environment string
	LogLevel    string

	DataDir          string
	RawDataDir       string
	ProcessedDataDir string
	CSVEncoding      string

	DefaultFramework string
	// SimilarityScorer is "lexical" or "embedding"
	SimilarityScorer string
	// MergeStrategy is "deep" or "replace"
	MergeStrategy string

	MongoURI      string
	MongoDatabase string
	RedisAddr     string
	CacheTTL      time.Duration

	EnableWatcher bool

	Explain ExplainConfig
	Auth    AuthConfig
	CORS CORSConfig
	AI   *AIConfig
}

// ExplainConfig sizes the word-level explanation metrics
type ExplainConfig struct {
	NumFeatures   int
	Permutations  int
	MaxBackground int
}

// AuthConfig configures the optional host login that guards uploads
type AuthConfig struct {
	Enabled   bool
	Username  string
	Password  string
	JWTSecret string
	TokenTTL  time.Duration
}

// CORSConfig configures cross-origin access for the API
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// Load reads configuration from the environment and an optional .env file
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir := getEnv("DATA_DIR", "./data")
	cfg := &Config{
		HTTPPort:    getEnv("PORT", "8000"),
		APIPrefix:   "/api/v1",
		Environment: getEnv("ENVIRONMENT", "local"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		DataDir:          dataDir,
		RawDataDir:       getEnv("RAW_DATA_DIR", filepath.Join(dataDir, "raw")),
		ProcessedDataDir: getEnv("PROCESSED_DATA_DIR", filepath.Join(dataDir, "processed")),
		CSVEncoding:      getEnv("CSV_ENCODING", "utf-8"),

		DefaultFramework: getEnv("DEFAULT_FRAMEWORK", "ICAP"),
		SimilarityScorer: strings.ToLower(getEnv("SIMILARITY_SCORER", "lexical")),
		MergeStrategy:    strings.ToLower(getEnv("MERGE_STRATEGY", "deep")),

		MongoURI:      os.Getenv("MONGO_URI"),
		MongoDatabase: getEnv("MONGO_DATABASE", "feedbacklens"),
		RedisAddr:     strings.TrimPrefix(os.Getenv("REDIS_URI"), "redis://"),
		CacheTTL:      getEnvDuration("CACHE_TTL", 0),

		EnableWatcher: getEnvBool("ENABLE_WATCHER", true),

		Explain: ExplainConfig{
			NumFeatures:   getEnvInt("EXPLAIN_NUM_FEATURES", 10),
			Permutations:  getEnvInt("EXPLAIN_PERMUTATIONS", 32),
			MaxBackground: getEnvInt("EXPLAIN_MAX_BACKGROUND", 100),
		},

		Auth: AuthConfig{
			Enabled:   getEnvBool("AUTH_ENABLED", false),
			Username:  getEnv("HOST_USERNAME", "admin"),
			Password:  os.Getenv("HOST_PASSWORD"),
			JWTSecret: os.Getenv("JWT_SECRET"),
			TokenTTL:  getEnvDuration("TOKEN_TTL", 12*time.Hour),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvList("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
			AllowedHeaders: getEnvList("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		AI: DefaultAIConfig(),
	}

	if path := os.Getenv("MODELS_FILE"); path != "" {
		if err := cfg.AI.LoadModelsFile(path); err != nil {
			return nil, err
		}
	}
	if _, ok := cfg.AI.Lookup(cfg.AI.DefaultModel); !ok {
		return nil, fmt.Errorf("default model %q is not in the registry", cfg.AI.DefaultModel)
	}
	switch cfg.SimilarityScorer {
	case "lexical", "embedding":
	default:
		return nil, fmt.Errorf("unknown SIMILARITY_SCORER %q", cfg.SimilarityScorer)
	}
	switch cfg.MergeStrategy {
	case "deep", "replace":
	default:
		return nil, fmt.Errorf("unknown MERGE_STRATEGY %q", cfg.MergeStrategy)
	}
	if cfg.Explain.NumFeatures <= 0 || cfg.Explain.Permutations <= 0 || cfg.Explain.MaxBackground <= 0 {
		return nil, fmt.Errorf("EXPLAIN_NUM_FEATURES, EXPLAIN_PERMUTATIONS and EXPLAIN_MAX_BACKGROUND must be positive")
	}
	if cfg.Auth.Enabled && (cfg.Auth.Password == "" || cfg.Auth.JWTSecret == "") {
		return nil, fmt.Errorf("AUTH_ENABLED requires HOST_PASSWORD and JWT_SECRET")
	}
	return cfg, nil
}

// EnsureDirs creates the data directories if they don't exist
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.RawDataDir, c.ProcessedDataDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	return ""
}

func getEnvInt(key string, defaultVal int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvBool(key string, defaultVal bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return d
}

func getEnvList(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
