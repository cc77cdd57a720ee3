package endpoints

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/prontotv/internal/content"
	"github.com/Nixie-Tech-LLC/prontotv/internal/db/memstore"
	"github.com/Nixie-Tech-LLC/prontotv/internal/http/api"
	"github.com/Nixie-Tech-LLC/prontotv/internal/model"
	"github.com/Nixie-Tech-LLC/prontotv/internal/redis"
	"github.com/Nixie-Tech-LLC/prontotv/internal/resolver"
)

// Monday 10:30 UTC
var monday = time.Date(2026, 10, 12, 10, 30, 0, 0, time.UTC)

type memCache struct {
	gen         int
	bodies      map[string][]byte
	heartbeats  map[string]bool
	invalidated int
}

func newMemCache() *memCache {
	return &memCache{bodies: map[string][]byte{}, heartbeats: map[string]bool{}}
}

func (m *memCache) Get(_ context.Context, deviceID, minute string) (redis.Entry, bool) {
	key := fmt.Sprintf("%d|%s|%s", m.gen, deviceID, minute)
	body, ok := m.bodies[key]
	if !ok {
		return redis.Entry{Key: key}, false
	}
	return redis.Entry{Key: key, Body: body, ETag: `"cached"`}, true
}

func (m *memCache) Put(_ context.Context, e redis.Entry, body []byte) {
	m.bodies[e.Key] = body
}

func (m *memCache) Invalidate(context.Context) {
	m.invalidated++
	m.gen++
}

func (m *memCache) ClaimHeartbeat(_ context.Context, deviceID string) bool {
	if m.heartbeats[deviceID] {
		return false
	}
	m.heartbeats[deviceID] = true
	return true
}

func setup(t *testing.T, cache Cache) (*gin.Engine, *memstore.Store, *ClientController) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := memstore.New()
	store.SetClock(func() time.Time { return monday })

	ctl := NewClientController(store, resolver.NewService(store, nil, time.UTC), cache, time.UTC)
	ctl.now = func() time.Time { return monday }

	r := gin.New()
	api.MountGroup(r, api.GroupConfig{Prefix: "/api"}, ClientModule(ctl))
	return r, store, ctl
}

func send(r *gin.Engine, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r, _, _ := setup(t, nil)
	w := send(r, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestRegister(t *testing.T) {
	r, store, _ := setup(t, nil)

	assert.Equal(t, http.StatusBadRequest, send(r, http.MethodPost, "/api/tvs/register", map[string]any{}).Code)
	assert.Equal(t, http.StatusBadRequest, send(r, http.MethodPost, "/api/tvs/register", map[string]any{"device_id": "  "}).Code)

	w := send(r, http.MethodPost, "/api/tvs/register", map[string]any{"device_id": "tv_1700000000000_abcdef123"})
	require.Equal(t, http.StatusOK, w.Code)
	var tv model.TV
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tv))
	assert.Equal(t, "TV-def123", tv.Name)
	assert.Equal(t, model.StatusOnline, tv.Status)
	assert.Equal(t, model.AspectLandscape, tv.AspectRatio)

	require.NoError(t, store.UpdateTV(tv.ID, strp("Lobby"), nil))
	w = send(r, http.MethodPost, "/api/tvs/register", map[string]any{"device_id": "tv_1700000000000_abcdef123", "name": "Other", "version": "1.4.0"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tv))
	assert.Equal(t, "Lobby", tv.Name, "existing name wins")
	require.NotNil(t, tv.Version)
	assert.Equal(t, "1.4.0", *tv.Version)
}

func strp(s string) *string { return &s }

func TestPlaybackNullForUnknownOrIdle(t *testing.T) {
	r, store, _ := setup(t, nil)

	w := send(r, http.MethodGet, "/api/client/playback/tv_missing", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"content":null}`, w.Body.String())

	_, err := store.RegisterTV("tv_idle", "Idle", nil)
	require.NoError(t, err)
	w = send(r, http.MethodGet, "/api/client/playback/tv_idle", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"content":null}`, w.Body.String())
}

func TestPlaybackResolvesAndSupportsETag(t *testing.T) {
	r, store, _ := setup(t, nil)

	tv, err := store.RegisterTV("tv_lobby", "Lobby", nil)
	require.NoError(t, err)
	v := model.Video{Name: "Promo", URL: "https://cdn.example.com/promo.mp4", Type: model.TypeVideo, Images: []string{}}
	require.NoError(t, store.CreateVideo(&v))
	end := "11:00"
	_, err = store.CreateSchedules([]model.Schedule{{TVID: tv.ID, VideoID: v.ID, StartTime: "10:00", EndTime: &end, IsActive: 1, IsLoop: 1}})
	require.NoError(t, err)

	w := send(r, http.MethodGet, "/api/client/playback/tv_lobby", nil)
	require.Equal(t, http.StatusOK, w.Code)
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	var pb content.Playback
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pb))
	video, ok := pb.Content.(*content.Video)
	require.True(t, ok, "got %T", pb.Content)
	assert.Equal(t, "https://cdn.example.com/promo.mp4", video.URL)
	assert.True(t, video.Loop)
	require.NotNil(t, pb.Schedule)
	assert.Equal(t, "10:00", pb.Schedule.StartTime)

	w = send(r, http.MethodGet, "/api/client/playback/tv_lobby", nil, "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, w.Code)
	assert.Empty(t, w.Body.String())

	w = send(r, http.MethodGet, "/api/client/playback/tv_lobby", nil, "If-None-Match", `"stale"`)
	assert.Equal(t, http.StatusOK, w.Code)

	rec, ok := store.CurrentPlayback(tv.ID)
	require.True(t, ok)
	require.NotNil(t, rec.VideoID)
	assert.Equal(t, v.ID, *rec.VideoID)
}

func TestPlaybackUsesCacheAndThrottlesHeartbeat(t *testing.T) {
	cache := newMemCache()
	r, store, ctl := setup(t, cache)

	_, err := store.RegisterTV("tv_lobby", "Lobby", nil)
	require.NoError(t, err)

	w := send(r, http.MethodGet, "/api/client/playback/tv_lobby", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, cache.bodies, 1)
	assert.True(t, cache.heartbeats["tv_lobby"])

	w = send(r, http.MethodGet, "/api/client/playback/tv_lobby", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `"cached"`, w.Header().Get("ETag"))

	// next minute misses the cache
	ctl.now = func() time.Time { return monday.Add(time.Minute) }
	w = send(r, http.MethodGet, "/api/client/playback/tv_lobby", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, cache.bodies, 2)
}

// changeDuringResolve stands in for an admin edit that lands while a poll is
// resolving: the store changes and the cache is invalidated before the
// resolved body is written back.
type changeDuringResolve struct {
	inner  Resolver
	change func()
	done   bool
}

func (c *changeDuringResolve) ResolveDevice(deviceID string, now time.Time) (*resolver.Result, error) {
	res, err := c.inner.ResolveDevice(deviceID, now)
	if !c.done {
		c.done = true
		c.change()
	}
	return res, err
}

func TestPlaybackBodyResolvedBeforeInvalidateIsNotServed(t *testing.T) {
	cache := newMemCache()
	r, store, ctl := setup(t, cache)

	tv, err := store.RegisterTV("tv_lobby", "Lobby", nil)
	require.NoError(t, err)
	v := model.Video{Name: "Promo", URL: "https://cdn.example.com/promo.mp4", Type: model.TypeVideo, Images: []string{}}
	require.NoError(t, store.CreateVideo(&v))

	ctl.resolver = &changeDuringResolve{
		inner: ctl.resolver,
		change: func() {
			_, err := store.CreateSchedules([]model.Schedule{{TVID: tv.ID, VideoID: v.ID, StartTime: "10:00", IsActive: 1}})
			require.NoError(t, err)
			cache.Invalidate(context.Background())
		},
	}

	w := send(r, http.MethodGet, "/api/client/playback/tv_lobby", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"content":null}`, w.Body.String())

	// the poll that follows the content-update push sees the new schedule
	w = send(r, http.MethodGet, "/api/client/playback/tv_lobby", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "promo.mp4")
	assert.NotEqual(t, `"cached"`, w.Header().Get("ETag"))
}

type countingResolver struct {
	inner Resolver
	calls int
}

func (c *countingResolver) ResolveDevice(deviceID string, now time.Time) (*resolver.Result, error) {
	c.calls++
	return c.inner.ResolveDevice(deviceID, now)
}

func TestPlaybackCacheHitSkipsResolution(t *testing.T) {
	cache := newMemCache()
	r, store, ctl := setup(t, cache)
	counter := &countingResolver{inner: ctl.resolver}
	ctl.resolver = counter

	tv, err := store.RegisterTV("tv_lobby", "Lobby", nil)
	require.NoError(t, err)
	v := model.Video{Name: "Promo", URL: "https://cdn.example.com/promo.mp4", Type: model.TypeVideo, Images: []string{}}
	require.NoError(t, store.CreateVideo(&v))
	_, err = store.CreateSchedules([]model.Schedule{{TVID: tv.ID, VideoID: v.ID, StartTime: "10:00", IsActive: 1}})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, send(r, http.MethodGet, "/api/client/playback/tv_lobby", nil).Code)
	}
	assert.Equal(t, 1, counter.calls, "current playback is recorded once per minute")
	_, ok := store.CurrentPlayback(tv.ID)
	assert.True(t, ok)

	cache.Invalidate(context.Background())
	require.Equal(t, http.StatusOK, send(r, http.MethodGet, "/api/client/playback/tv_lobby", nil).Code)
	assert.Equal(t, 2, counter.calls)
}

func TestReportDuration(t *testing.T) {
	cache := newMemCache()
	r, store, _ := setup(t, cache)

	v := model.Video{Name: "Promo", URL: "https://cdn.example.com/promo.mp4", Images: []string{}}
	require.NoError(t, store.CreateVideo(&v))

	w := send(r, http.MethodPost, "/api/client/videos/duration", map[string]any{"video_url": v.URL, "duration": 31.9})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"updated":1}`, w.Body.String())
	assert.Equal(t, 1, cache.invalidated)

	got, err := store.GetVideoByID(v.ID)
	require.NoError(t, err)
	assert.Equal(t, 31, *got.Duration)

	// known durations are never overwritten
	w = send(r, http.MethodPost, "/api/client/videos/duration", map[string]any{"video_url": v.URL, "duration": 50})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"updated":0}`, w.Body.String())

	assert.Equal(t, http.StatusBadRequest, send(r, http.MethodPost, "/api/client/videos/duration", map[string]any{"video_url": v.URL, "duration": 0.5}).Code)
	assert.Equal(t, http.StatusBadRequest, send(r, http.MethodPost, "/api/client/videos/duration", map[string]any{"duration": 10}).Code)
}
