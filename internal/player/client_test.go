package player

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/prontotv/internal/content"
)

func TestClient_FetchPlayback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/client/playback/tv_1", r.URL.Path)
		if r.Header.Get("If-None-Match") == `"abc"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"abc"`)
		_, _ = w.Write([]byte(`{"content":{"type":"video","url":"v.mp4","loop":true},"schedule":{"start_time":"09:00","end_time":null}}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL+"/", time.Second)
	require.NoError(t, err)

	got, err := c.FetchPlayback(context.Background(), "tv_1", "")
	require.NoError(t, err)
	assert.Equal(t, `"abc"`, got.ETag)
	v, ok := got.Playback.Content.(*content.Video)
	require.True(t, ok)
	assert.True(t, v.Loop)
	assert.Equal(t, "09:00", got.Playback.Schedule.StartTime)

	got, err = c.FetchPlayback(context.Background(), "tv_1", `"abc"`)
	require.NoError(t, err)
	assert.True(t, got.NotModified)
}

func TestClient_ErrorsCarryStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"database unavailable"}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, 0)
	require.NoError(t, err)

	_, err = c.FetchPlayback(context.Background(), "tv_1", "")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Code)
	assert.Equal(t, "database unavailable", se.Message)

	assert.Error(t, c.Health(context.Background()))
}

func TestClient_RegisterAndReportDuration(t *testing.T) {
	var bodies []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		body["path"] = r.URL.Path
		bodies = append(bodies, body)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, time.Second)
	require.NoError(t, err)

	require.NoError(t, c.Register(context.Background(), "tv_1", "Lobby", "1.2.0"))
	require.NoError(t, c.ReportDuration(context.Background(), "https://cdn/v.mp4", 42))
	assert.Error(t, c.ReportDuration(context.Background(), "https://cdn/v.mp4", 0))

	require.Len(t, bodies, 2)
	assert.Equal(t, "/api/tvs/register", bodies[0]["path"])
	assert.Equal(t, "tv_1", bodies[0]["device_id"])
	assert.Equal(t, "1.2.0", bodies[0]["version"])
	assert.Equal(t, "/api/client/videos/duration", bodies[1]["path"])
	assert.Equal(t, float64(42), bodies[1]["duration"])
}

func TestNewClient_RejectsRelativeURL(t *testing.T) {
	_, err := NewClient("localhost", 0)
	assert.Error(t, err)
}
