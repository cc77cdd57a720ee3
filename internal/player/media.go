package player

import (
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/prontotv/internal/playback"
)

// UnknownDuration is how long LogMedia lets a video run when the server has
// not learned its duration yet.
const UnknownDuration = 30 * time.Second

// LogMedia is a headless media binding: it renders nothing and logs what a
// screen would show. Playback is simulated on the clock: a known duration is
// reported as metadata right away and the video ends once the rest of it has
// elapsed. Events go to whatever was passed to Bind.
type LogMedia struct {
	clock playback.Clock

	mu      sync.Mutex
	events  playback.Events
	current playback.VideoSource
	started time.Time
	offset  float64
	playing bool
	end     playback.Timer
}

// NewLogMedia returns a binding driven by clock, or the wall clock when nil.
func NewLogMedia(clock playback.Clock) *LogMedia {
	if clock == nil {
		clock = playback.SystemClock()
	}
	return &LogMedia{clock: clock}
}

// Bind sets the receiver of media events, normally the playback controller.
func (m *LogMedia) Bind(events playback.Events) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = events
}

func (m *LogMedia) PlayVideo(src playback.VideoSource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelEnd()
	m.current, m.started, m.offset, m.playing = src, m.clock.Now(), src.Start, true
	log.Info().Str("url", src.URL).Str("name", src.Name).Bool("muted", src.Muted).
		Float64("start", src.Start).Float64("duration", src.Duration).Msg("play video")

	token := src.Token
	if err := checkSource(src.URL); err != nil {
		m.playing = false
		m.deliver(0, func(ev playback.Events) { ev.VideoFailed(token, err) })
		return
	}
	if src.Duration > 0 {
		dur := src.Duration
		m.deliver(0, func(ev playback.Events) { ev.MetadataLoaded(token, dur) })
	}
	m.armEnd()
}

func (m *LogMedia) Restart() {
	m.Seek(0)
}

func (m *LogMedia) Seek(seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current.URL == "" {
		return
	}
	m.cancelEnd()
	m.started, m.offset, m.playing = m.clock.Now(), seconds, true
	log.Debug().Float64("position", seconds).Msg("seek")
	m.armEnd()
}

func (m *LogMedia) Resume() {}

func (m *LogMedia) Paused() bool { return false }

func (m *LogMedia) Position() (float64, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.playing {
		return 0, m.current.Duration
	}
	return m.offset + m.clock.Now().Sub(m.started).Seconds(), m.current.Duration
}

func (m *LogMedia) ShowImage(url, name string) {
	m.stopVideo()
	log.Info().Str("url", url).Str("name", name).Msg("show image")
}

func (m *LogMedia) ShowCarouselImage(index int, url string, total int) {
	m.stopVideo()
	log.Info().Str("url", url).Int("slide", index+1).Int("of", total).Msg("show carousel image")
}

func (m *LogMedia) ShowWaiting(msg string) {
	log.Info().Str("screen", "waiting").Msg(msg)
}

func (m *LogMedia) ShowError(msg string) {
	log.Warn().Str("screen", "error").Msg(msg)
}

func (m *LogMedia) HideError() {}

func (m *LogMedia) SetConnected(ok bool) {
	log.Info().Bool("connected", ok).Msg("connection indicator")
}

func (m *LogMedia) Stop() {
	m.stopVideo()
}

func (m *LogMedia) stopVideo() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelEnd()
	m.playing = false
	m.current = playback.VideoSource{}
}

// armEnd schedules the ended event for the current source. Callers hold mu.
func (m *LogMedia) armEnd() {
	total := m.current.Duration
	if total <= 0 {
		total = UnknownDuration.Seconds()
	}
	remaining := total - m.offset
	if remaining < 0 {
		remaining = 0
	}

	token := m.current.Token
	m.end = m.clock.AfterFunc(time.Duration(remaining*float64(time.Second)), func() {
		m.mu.Lock()
		if m.current.Token != token || !m.playing {
			m.mu.Unlock()
			return
		}
		m.playing = false
		m.end = nil
		ev := m.events
		m.mu.Unlock()

		if ev != nil {
			log.Debug().Uint64("token", token).Msg("video ended")
			ev.VideoEnded(token)
		}
	})
}

func (m *LogMedia) cancelEnd() {
	if m.end != nil {
		m.end.Stop()
		m.end = nil
	}
}

// deliver hands an event to the bound receiver from a timer, never from
// inside the Media call that caused it.
func (m *LogMedia) deliver(d time.Duration, fire func(playback.Events)) {
	m.clock.AfterFunc(d, func() {
		m.mu.Lock()
		ev := m.events
		m.mu.Unlock()
		if ev != nil {
			fire(ev)
		}
	})
}

func checkSource(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid source: %w", err)
	}
	switch u.Scheme {
	case "http", "https", "file":
		return nil
	}
	return fmt.Errorf("unsupported source %q", raw)
}
