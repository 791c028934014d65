package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func newCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestGetOrLoadJSONReadThrough(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()
	var loads int32
	load := func(context.Context) (*item, error) {
		atomic.AddInt32(&loads, 1)
		return &item{ID: "b1", Title: "Dune"}, nil
	}

	got, err := GetOrLoadJSON(c, ctx, "book:b1", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, "Dune", got.Title)

	got, err = GetOrLoadJSON(c, ctx, "book:b1", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, "Dune", got.Title)
	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
	assert.True(t, mr.Exists("library:book:b1"))

	c.Invalidate(ctx, "book:b1")
	assert.False(t, mr.Exists("library:book:b1"))
	_, err = GetOrLoadJSON(c, ctx, "book:b1", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&loads))
}

func TestGetOrLoadErrorNotCached(t *testing.T) {
	c, mr := newCache(t)
	boom := errors.New("boom")
	_, err := GetOrLoadJSON(c, context.Background(), "book:x", time.Minute, func(context.Context) (*item, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("library:book:x"))
}

func TestGetOrLoadTTL(t *testing.T) {
	c, mr := newCache(t)
	_, err := c.GetOrLoad(context.Background(), "k", 30*time.Second, func(context.Context) ([]byte, error) {
		return []byte("v"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, mr.TTL("library:k"))
}

func TestNilCachePassesThrough(t *testing.T) {
	var c *Cache
	got, err := GetOrLoadJSON(c, context.Background(), "book:b1", time.Minute, func(context.Context) (*item, error) {
		return &item{ID: "b1"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "b1", got.ID)
	c.Invalidate(context.Background(), "book:b1")
	assert.NoError(t, c.Ping(context.Background()))
}

func TestRedisDownFallsBackToLoad(t *testing.T) {
	c, mr := newCache(t)
	mr.Close()
	got, err := c.GetOrLoad(context.Background(), "k", time.Minute, func(context.Context) ([]byte, error) {
		return []byte("fresh"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(got))
}

func TestInvalidateDuringLoadSkipsWriteBack(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()
	var loads int32
	load := func(context.Context) (*item, error) {
		if atomic.AddInt32(&loads, 1) == 1 {
			// 读到旧值后，写入方提交并失效
			c.Invalidate(ctx, "book:b1")
			return &item{ID: "b1", Title: "stale"}, nil
		}
		return &item{ID: "b1", Title: "fresh"}, nil
	}

	got, err := GetOrLoadJSON(c, ctx, "book:b1", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, "stale", got.Title)
	assert.False(t, mr.Exists("library:book:b1"))

	got, err = GetOrLoadJSON(c, ctx, "book:b1", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, "fresh", got.Title)
	assert.True(t, mr.Exists("library:book:b1"))

	got, err = GetOrLoadJSON(c, ctx, "book:b1", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, "fresh", got.Title)
	assert.Equal(t, int32(2), atomic.LoadInt32(&loads))
}

func TestInvalidateBumpsGeneration(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()
	c.Invalidate(ctx, "book:b1", "book:b2")
	c.Invalidate(ctx, "book:b1")

	v, err := mr.Get("library:book:b1:gen")
	require.NoError(t, err)
	assert.Equal(t, "2", v)
	v, err = mr.Get("library:book:b2:gen")
	require.NoError(t, err)
	assert.Equal(t, "1", v)
	assert.Equal(t, genTTL, mr.TTL("library:book:b1:gen"))
}
