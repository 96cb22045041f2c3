package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-sticker/internal/cache"
	"github.com/feral-file/ff-sticker/internal/logger"
)

func init() {
	_ = logger.Initialize(logger.Config{
		Debug: true,
	})
}

func newCache(t *testing.T, ttl time.Duration) cache.Cache {
	t.Helper()
	c, err := cache.NewBadgerCache(cache.Config{TTL: ttl})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = c.Close()
	})
	return c
}

func TestKey(t *testing.T) {
	a := cache.Key([]byte("source"), "320/224/15")
	assert.Len(t, a, 64)
	assert.Equal(t, a, cache.Key([]byte("source"), "320/224/15"))
	assert.NotEqual(t, a, cache.Key([]byte("source"), "512/224/15"))
	assert.NotEqual(t, a, cache.Key([]byte("other"), "320/224/15"))

	// The separator keeps data and variant boundaries distinct
	assert.NotEqual(t, cache.Key([]byte("ab"), "c"), cache.Key([]byte("a"), "bc"))
}

func TestBadgerCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newCache(t, 0)

	entry, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, entry)

	want := &cache.Entry{Backend: "ffmpeg", Data: []byte("RIFF....WEBP")}
	require.NoError(t, c.Put(ctx, "k1", want))

	got, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Overwrite
	require.NoError(t, c.Put(ctx, "k1", &cache.Entry{Backend: "native", Data: []byte("x")}))
	got, err = c.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "native", got.Backend)
	assert.Equal(t, []byte("x"), got.Data)
}

func TestBadgerCacheEmptyData(t *testing.T) {
	ctx := context.Background()
	c := newCache(t, time.Hour)

	require.NoError(t, c.Put(ctx, "k", &cache.Entry{Backend: "ffmpeg"}))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "ffmpeg", got.Backend)
	assert.Empty(t, got.Data)
}
