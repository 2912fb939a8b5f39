package cache

import (
	"context"
	"feedbacklens/internal/model"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerationKey(t *testing.T) {
	base := GenerationKey("m", "prompt", 100, 0.7, true)

	assert.Equal(t, base, GenerationKey("m", "prompt", 100, 0.7, true))
	assert.NotEqual(t, base, GenerationKey("m2", "prompt", 100, 0.7, true))
	assert.NotEqual(t, base, GenerationKey("m", "prompt!", 100, 0.7, true))
	assert.NotEqual(t, base, GenerationKey("m", "prompt", 101, 0.7, true))
	assert.NotEqual(t, base, GenerationKey("m", "prompt", 100, 0.75, true))
	assert.NotEqual(t, base, GenerationKey("m", "prompt", 100, 0.7, false))
	assert.Len(t, base, 64)
}

// Runs against a real Redis when REDIS_TEST_ADDR is set
func TestGenerationCache_Redis(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	require.NoError(t, rdb.Ping(ctx).Err())

	c := NewGenerationCache(rdb, time.Minute)
	key := GenerationKey("m", t.Name(), 1, 0, false)
	defer rdb.Del(ctx, "gen:"+key)

	got, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.Set(ctx, key, &model.Generation{Model: "m", Text: "hello"}))
	got, err = c.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "hello", got.Text)
	assert.False(t, got.CreatedAt.IsZero())
}
