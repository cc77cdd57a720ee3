package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *PlaybackCache {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewPlaybackCache(rdb)
}

func TestPlaybackCache_DisabledIsMiss(t *testing.T) {
	var c *PlaybackCache
	ctx := context.Background()

	c.Put(ctx, Entry{Key: "playback:0:tv_1:09:05"}, []byte("x"))
	_, ok := c.Get(ctx, "tv_1", "09:05")
	assert.False(t, ok)
	assert.True(t, c.ClaimHeartbeat(ctx, "tv_1"))

	c = NewPlaybackCache(nil)
	_, ok = c.Get(ctx, "tv_1", "09:05")
	assert.False(t, ok)
	c.Invalidate(ctx)
}

func TestETag(t *testing.T) {
	a := ETag([]byte(`{"content":null}`))
	assert.Equal(t, a, ETag([]byte(`{"content":null}`)))
	assert.NotEqual(t, a, ETag([]byte(`{"content":{}}`)))
	assert.Len(t, a, 18)
}

func TestPlaybackCache_Redis(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	e, ok := c.Get(ctx, "tv_1", "09:05")
	require.False(t, ok)
	require.NotEmpty(t, e.Key)
	c.Put(ctx, e, []byte("body"))

	e, ok = c.Get(ctx, "tv_1", "09:05")
	require.True(t, ok)
	assert.Equal(t, "body", string(e.Body))
	assert.Equal(t, ETag([]byte("body")), e.ETag)

	c.Invalidate(ctx)
	_, ok = c.Get(ctx, "tv_1", "09:05")
	assert.False(t, ok)

	c.ForgetHeartbeat(ctx, "tv_1")
	assert.True(t, c.ClaimHeartbeat(ctx, "tv_1"))
	assert.False(t, c.ClaimHeartbeat(ctx, "tv_1"))
}

func TestPlaybackCache_PutAfterInvalidateIsNotServed(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	miss, ok := c.Get(ctx, "tv_1", "09:05")
	require.False(t, ok)

	// a schedule change lands while the miss is being resolved
	c.Invalidate(ctx)
	c.Put(ctx, miss, []byte(`{"content":{"type":"video","url":"OLD"}}`))

	e, ok := c.Get(ctx, "tv_1", "09:05")
	assert.False(t, ok, "served %s", e.Body)
	assert.NotEqual(t, miss.Key, e.Key)
}
