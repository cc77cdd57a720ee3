package player

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/prontotv/internal/model"
	"github.com/Nixie-Tech-LLC/prontotv/internal/telemetry"
)

const (
	socketWriteWait  = 10 * time.Second
	socketPongWait   = 60 * time.Second
	socketPingPeriod = (socketPongWait * 9) / 10
	socketBuffer     = 32
	minBackoff       = time.Second
	maxBackoff       = 30 * time.Second
)

// Socket keeps a websocket session with the server open: it registers the
// device, forwards pushed commands and carries playback reports.
type Socket struct {
	url      string
	deviceID string
	dialer   *websocket.Dialer
	send     chan []byte

	mu        sync.Mutex
	connected bool
}

func NewSocket(url, deviceID string) *Socket {
	return &Socket{
		url:      url,
		deviceID: deviceID,
		dialer:   &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		send:     make(chan []byte, socketBuffer),
	}
}

// Report queues a playback-update. Reports are dropped while disconnected or
// when the queue is full; the next one supersedes them anyway.
func (s *Socket) Report(state model.PlaybackState) {
	if !s.Connected() {
		return
	}
	env, err := telemetry.NewEnvelope(telemetry.EventPlaybackUpdate, state)
	if err != nil {
		return
	}
	frame, err := json.Marshal(env)
	if err != nil {
		return
	}
	select {
	case s.send <- frame:
	default:
		log.Debug().Msg("socket queue full, dropping playback report")
	}
}

func (s *Socket) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *Socket) setConnected(ok bool) {
	s.mu.Lock()
	s.connected = ok
	s.mu.Unlock()
}

// Run connects and reconnects with backoff until ctx is done.
func (s *Socket) Run(ctx context.Context, cmds Commands) {
	backoff := minBackoff
	for {
		start := time.Now()
		err := s.session(ctx, cmds)
		if ctx.Err() != nil {
			return
		}
		if time.Since(start) > maxBackoff {
			backoff = minBackoff
		}
		log.Warn().Err(err).Dur("retry_in", backoff).Msg("telemetry socket closed")

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (s *Socket) session(ctx context.Context, cmds Commands) error {
	ws, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	hello, err := telemetry.NewEnvelope(telemetry.EventTVRegister, map[string]string{"device_id": s.deviceID})
	if err != nil {
		return err
	}
	_ = ws.SetWriteDeadline(time.Now().Add(socketWriteWait))
	if err := ws.WriteJSON(hello); err != nil {
		return err
	}

	s.setConnected(true)
	defer s.setConnected(false)
	log.Info().Str("url", s.url).Str("device_id", s.deviceID).Msg("telemetry socket connected")

	readErr := make(chan error, 1)
	go func() { readErr <- s.readPump(ws, cmds) }()
	return s.writePump(ctx, ws, readErr)
}

func (s *Socket) readPump(ws *websocket.Conn, cmds Commands) error {
	_ = ws.SetReadDeadline(time.Now().Add(socketPongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(socketPongWait))
	})
	for {
		var env telemetry.Envelope
		if err := ws.ReadJSON(&env); err != nil {
			return err
		}
		_ = ws.SetReadDeadline(time.Now().Add(socketPongWait))
		Dispatch(env.Event, cmds)
	}
}

func (s *Socket) writePump(ctx context.Context, ws *websocket.Conn, readErr <-chan error) error {
	ticker := time.NewTicker(socketPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			return ctx.Err()
		case err := <-readErr:
			return err
		case frame := <-s.send:
			_ = ws.SetWriteDeadline(time.Now().Add(socketWriteWait))
			if err := ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return err
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(socketWriteWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}
		}
	}
}
