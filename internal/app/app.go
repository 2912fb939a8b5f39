// Package app wires the shared dependencies used by the server and the batch CLI.
package app

import (
	"context"
	"feedbacklens/internal/cache"
	"feedbacklens/internal/config"
	"feedbacklens/internal/llm"
	"feedbacklens/internal/repository"
	"feedbacklens/internal/service"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Clients  *llm.Clients
	Loader   *service.Loader
	Pipeline *service.Pipeline
	// Reports is nil when MONGO_URI is unset
	Reports *service.ReportService

	closers []func(context.Context) error
}

// New connects the optional stores and builds the analysis pipeline.
// Mongo and Redis are used only when configured; a configured store that
// cannot be reached is an error.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	loader, err := service.NewLoader(cfg.RawDataDir, cfg.CSVEncoding, logger)
	if err != nil {
		return nil, err
	}
	a.Loader = loader
	a.Clients = llm.NewClients(cfg.AI, logger)
	a.Pipeline = service.NewPipeline(cfg.AI, a.Clients, loader, logger)

	if cfg.MergeStrategy == "replace" {
		a.Pipeline.SetMergeStrategy(service.MergeReplace)
	}

	explain := service.DefaultExplainOptions
	if cfg.Explain.NumFeatures > 0 {
		explain.NumFeatures = cfg.Explain.NumFeatures
	}
	if cfg.Explain.Permutations > 0 {
		explain.Permutations = cfg.Explain.Permutations
	}
	if cfg.Explain.MaxBackground > 0 {
		explain.MaxBackground = cfg.Explain.MaxBackground
	}
	a.Pipeline.SetExplainOptions(explain)

	if cfg.SimilarityScorer == "embedding" {
		embedder, err := a.Clients.Embedder()
		if err != nil {
			return nil, fmt.Errorf("%w: embedding scorer: %v", service.ErrConfiguration, err)
		}
		a.Pipeline.SetScorer(service.NewEmbeddingScorer(embedder))
	}

	if cfg.MongoURI != "" {
		if err := a.connectMongo(ctx); err != nil {
			a.Close(ctx)
			return nil, err
		}
	}
	if cfg.RedisAddr != "" {
		if err := a.connectRedis(ctx); err != nil {
			a.Close(ctx)
			return nil, err
		}
	}
	return a, nil
}

func (a *App) connectMongo(ctx context.Context) error {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(a.Config.MongoURI))
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	a.closers = append(a.closers, client.Disconnect)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return fmt.Errorf("ping mongo: %w", err)
	}

	reports := service.NewReportService(repository.NewReportRepo(client.Database(a.Config.MongoDatabase)))
	a.Reports = reports
	a.Pipeline.SetReportService(reports)
	a.Logger.Info("connected to MongoDB", zap.String("database", a.Config.MongoDatabase))
	return nil
}

func (a *App) connectRedis(ctx context.Context) error {
	rdb := redis.NewClient(&redis.Options{Addr: a.Config.RedisAddr})
	a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}

	a.Pipeline.SetCache(cache.NewGenerationCache(rdb, a.Config.CacheTTL))
	a.Logger.Info("connected to Redis", zap.String("addr", a.Config.RedisAddr))
	return nil
}

// Close releases the store connections in reverse order
func (a *App) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.Logger.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
}
