// Package player holds the device side of ProntoTV: the HTTP client for the
// server API, the push channels (websocket and MQTT), a headless media
// binding and the persistent device identity.
package player

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Nixie-Tech-LLC/prontotv/internal/content"
	"github.com/Nixie-Tech-LLC/prontotv/internal/http/api/tv/packets"
	"github.com/Nixie-Tech-LLC/prontotv/internal/playback"
)

const (
	defaultTimeout  = 8 * time.Second
	registerTimeout = 3 * time.Second
)

// StatusError is a non-2xx answer from the server.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Code)
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

// Client calls the device endpoints of the server.
type Client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
}

// NewClient builds a client for the server at baseURL. A zero timeout means 8s.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("server url %q needs a scheme and host", baseURL)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{base: base, http: &http.Client{}, timeout: timeout}, nil
}

func (c *Client) endpoint(path string) string {
	return c.base.String() + "/api" + path
}

func (c *Client) do(ctx context.Context, timeout time.Duration, method, path string, body any, hdr http.Header) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(raw)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), rd)
	if err != nil {
		cancel()
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header[k] = v
	}

	resp, err := c.http.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

func statusError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(raw, &body)
	return &StatusError{Code: resp.StatusCode, Message: body.Error}
}

// Register announces the device. It uses a shorter timeout than polls so a
// slow server does not hold up the first render.
func (c *Client) Register(ctx context.Context, deviceID, name, version string) error {
	req := packets.RegisterRequest{DeviceID: deviceID, Name: name}
	if version != "" {
		req.Version = &version
	}
	resp, err := c.do(ctx, registerTimeout, http.MethodPost, "/tvs/register", req, nil)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("register: %w", statusError(resp))
	}
	return nil
}

// FetchPlayback polls what to show. A matching etag yields NotModified.
func (c *Client) FetchPlayback(ctx context.Context, deviceID, etag string) (playback.Fetched, error) {
	hdr := http.Header{}
	if etag != "" {
		hdr.Set("If-None-Match", etag)
	}
	resp, err := c.do(ctx, c.timeout, http.MethodGet, "/client/playback/"+url.PathEscape(deviceID), nil, hdr)
	if err != nil {
		return playback.Fetched{}, fmt.Errorf("fetch playback: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		return playback.Fetched{ETag: etag, NotModified: true}, nil
	case resp.StatusCode/100 != 2:
		return playback.Fetched{}, fmt.Errorf("fetch playback: %w", statusError(resp))
	}

	var pb content.Playback
	if err := json.NewDecoder(resp.Body).Decode(&pb); err != nil {
		return playback.Fetched{}, fmt.Errorf("decode playback: %w", err)
	}
	return playback.Fetched{Playback: pb, ETag: resp.Header.Get("ETag")}, nil
}

func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, c.timeout, http.MethodGet, "/health", nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	return nil
}

// ReportDuration sends the measured duration of a video URL.
func (c *Client) ReportDuration(ctx context.Context, videoURL string, seconds int) error {
	if seconds <= 0 {
		return errors.New("duration must be positive")
	}
	req := packets.DurationRequest{VideoURL: videoURL, Duration: float64(seconds)}
	resp, err := c.do(ctx, c.timeout, http.MethodPost, "/client/videos/duration", req, nil)
	if err != nil {
		return fmt.Errorf("report duration: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("report duration: %w", statusError(resp))
	}
	return nil
}
