package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddingCacheLRU(t *testing.T) {
	c := NewEmbeddingCache(2, time.Minute)

	c.Put("m", "a", []float32{1})
	c.Put("m", "b", []float32{2})
	_, ok := c.Get("m", "a") // a becomes most recent
	require.True(t, ok)

	c.Put("m", "c", []float32{3})
	assert.Equal(t, 2, c.Size())

	_, ok = c.Get("m", "b")
	assert.False(t, ok, "least recently used entry is evicted")
	v, ok := c.Get("m", "a")
	assert.True(t, ok)
	assert.Equal(t, []float32{1}, v)
}

func TestEmbeddingCacheKeyIncludesModel(t *testing.T) {
	c := NewEmbeddingCache(10, time.Minute)
	c.Put("model-a", "query", []float32{1})

	_, ok := c.Get("model-b", "query")
	assert.False(t, ok)
}

func TestEmbeddingCacheTTL(t *testing.T) {
	c := NewEmbeddingCache(10, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Put("m", "q", []float32{1})
	now = now.Add(30 * time.Second)
	_, ok := c.Get("m", "q")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("m", "q")
	assert.False(t, ok)
	assert.Zero(t, c.Size())

	hits, misses := c.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
}

func TestEmbeddingCacheInvalidate(t *testing.T) {
	c := NewEmbeddingCache(10, time.Minute)
	c.Put("m", "q", []float32{1})
	c.Invalidate()
	assert.Zero(t, c.Size())
}

type stubEmbedder struct {
	calls int
	err   error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []float32{float32(len(text))}, nil
}

func (s *stubEmbedder) ModelName() string { return "stub" }

func TestCachedEmbedder(t *testing.T) {
	inner := &stubEmbedder{}
	e := NewCachedEmbedder(inner, NewEmbeddingCache(10, time.Minute))
	ctx := context.Background()

	v1, err := e.Embed(ctx, "hello")
	require.NoError(t, err)
	v2, err := e.Embed(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, "stub", e.ModelName())
}

func TestCachedEmbedderDoesNotCacheErrors(t *testing.T) {
	inner := &stubEmbedder{err: errors.New("backend down")}
	e := NewCachedEmbedder(inner, NewEmbeddingCache(10, time.Minute))

	_, err := e.Embed(context.Background(), "hello")
	require.Error(t, err)
	_, err = e.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, 2, inner.calls)
}
