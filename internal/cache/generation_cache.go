package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"feedbacklens/internal/model"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// GenerationCache stores model outputs keyed by everything that shapes them
type GenerationCache interface {
	Get(ctx context.Context, key string) (*model.Generation, error)
	Set(ctx context.Context, key string, gen *model.Generation) error
}

type generationCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewGenerationCache creates a Redis-backed generation cache. A zero ttl defaults to 24h.
func NewGenerationCache(client *redis.Client, ttl time.Duration) GenerationCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &generationCache{
		client: client,
		ttl:    ttl,
	}
}

// GenerationKey hashes the inputs of one generation call
func GenerationKey(modelName, prompt string, maxTokens int, temperature float64, jsonMode bool) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%d\x00%s\x00%t\x00", modelName, maxTokens,
		strconv.FormatFloat(temperature, 'g', -1, 64), jsonMode)
	h.Write([]byte(prompt))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *generationCache) key(key string) string {
	return fmt.Sprintf("gen:%s", key)
}

func (c *generationCache) Get(ctx context.Context, key string) (*model.Generation, error) {
	data, err := c.client.Get(ctx, c.key(key)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var gen model.Generation
	if err := json.Unmarshal([]byte(data), &gen); err != nil {
		return nil, err
	}
	return &gen, nil
}

func (c *generationCache) Set(ctx context.Context, key string, gen *model.Generation) error {
	gen.CreatedAt = time.Now()
	data, err := json.Marshal(gen)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(key), data, c.ttl).Err()
}
