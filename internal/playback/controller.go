// Package playback is the player's state machine: it polls the server for
// what to show, drives a Media binding through the five content kinds and
// reacts to push commands. Every event is applied under one lock.
package playback

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/prontotv/internal/content"
)

type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseRegistering Phase = "registering"
	PhaseWaiting     Phase = "waiting"
	PhasePlaying     Phase = "playing"
	PhaseError       Phase = "error"
)

const (
	DefaultSyncInterval      = 10 * time.Second
	DefaultIdleSyncInterval  = 120 * time.Second
	DefaultFastCheckInterval = 10 * time.Second
	DefaultHealthInterval    = 5 * time.Second
	DefaultWatchdogInterval  = 2 * time.Second
	DefaultMaxRetries        = 3

	PreviewSyncInterval     = 30 * time.Second
	PreviewIdleSyncInterval = 60 * time.Second

	mediaRetryDelay   = time.Second
	sequenceEndDelay  = 2 * time.Second
	resumeAfterStop   = 5 * time.Second
	defaultImageDwell = 10 * time.Second
)

const (
	MsgNoContent    = "No content scheduled right now"
	MsgStopped      = "Playback stopped by administrator"
	MsgSequenceDone = "Sequence completed. Looking for the next schedule..."
	MsgConnection   = "Connection error. Retrying..."
	MsgNoImages     = "No images to show"
	MsgSequenceFail = "None of the sequence videos could be played"
)

type Options struct {
	DeviceID   string
	Name       string
	Version    string
	AllowAudio bool
	// Preview renders like a TV would right now without registering or
	// reporting, seeking into the schedule by wall-clock time.
	Preview bool

	SyncInterval      time.Duration
	IdleSyncInterval  time.Duration
	FastCheckInterval time.Duration
	HealthInterval    time.Duration
	WatchdogInterval  time.Duration
	MaxRetries        int

	Clock Clock
	Rand  func(n int) int
}

func (o Options) withDefaults() Options {
	if o.SyncInterval <= 0 {
		o.SyncInterval = DefaultSyncInterval
		if o.Preview {
			o.SyncInterval = PreviewSyncInterval
		}
	}
	if o.IdleSyncInterval <= 0 {
		o.IdleSyncInterval = DefaultIdleSyncInterval
		if o.Preview {
			o.IdleSyncInterval = PreviewIdleSyncInterval
		}
	}
	if o.FastCheckInterval <= 0 {
		o.FastCheckInterval = DefaultFastCheckInterval
	}
	if o.HealthInterval <= 0 {
		o.HealthInterval = DefaultHealthInterval
	}
	if o.WatchdogInterval <= 0 {
		o.WatchdogInterval = DefaultWatchdogInterval
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.Clock == nil {
		o.Clock = SystemClock()
	}
	if o.Rand == nil {
		o.Rand = rand.Intn
	}
	return o
}

// State is a snapshot of what the controller is doing.
type State struct {
	Phase         Phase
	Content       content.Descriptor
	Window        *content.Window
	Connected     bool
	Playing       bool
	RetryCount    int
	SequenceIndex int
	SlideIndex    int
	Message       string
	ETag          string
}

type Controller struct {
	opts     Options
	api      API
	media    Media
	reporter Reporter
	clock    Clock
	sched    *Scheduler
	spawn    func(func())

	mu           sync.Mutex
	ctx          context.Context
	state        State
	gen          uint64 // bumped on every content switch
	token        uint64 // bumped on every video source
	syncEvery    time.Duration
	held         bool // stopped by an administrator, waiting to resume
	closed       bool
	videoRetried bool
	seqFailures  int
	pendingSeek  float64
	reported     map[string]bool
}

// NewController wires a controller. reporter may be nil.
func NewController(api API, media Media, reporter Reporter, opts Options) *Controller {
	opts = opts.withDefaults()
	return &Controller{
		opts:     opts,
		api:      api,
		media:    media,
		reporter: reporter,
		clock:    opts.Clock,
		sched:    NewScheduler(opts.Clock),
		spawn:    func(f func()) { go f() },
		ctx:      context.Background(),
		state:    State{Phase: PhaseIdle},
		reported: map[string]bool{},
	}
}

// Start registers the device, arms the background cadences and polls once.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	c.ctx = ctx
	c.state.Phase = PhaseRegistering
	c.mu.Unlock()

	if !c.opts.Preview {
		c.register(ctx)
	}

	c.mu.Lock()
	c.state.Connected = true
	c.media.SetConnected(true)
	c.sched.Every(SlotHealth, c.opts.HealthInterval, c.checkHealth)
	c.sched.Every(SlotWatchdog, c.opts.WatchdogInterval, c.watchdog)
	c.armCadence()
	c.mu.Unlock()

	c.Poll(ctx)
}

// Close stops every timer and the media.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.sched.StopAll()
	c.media.Stop()
}

func (c *Controller) register(ctx context.Context) {
	if err := c.api.Register(ctx, c.opts.DeviceID, c.opts.Name, c.opts.Version); err != nil {
		log.Warn().Err(err).Str("device_id", c.opts.DeviceID).Msg("registration failed, continuing")
		return
	}
	log.Info().Str("device_id", c.opts.DeviceID).Msg("device registered")
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	if s.Content != nil {
		s.Content = content.Clone(s.Content)
	}
	if s.Window != nil {
		w := *s.Window
		s.Window = &w
	}
	return s
}

// Poll fetches what to show and applies it. The request runs without the
// lock; whatever arrives last wins.
func (c *Controller) Poll(ctx context.Context) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	etag := ""
	if c.state.Content != nil {
		etag = c.state.ETag
	}
	c.mu.Unlock()

	res, err := c.api.FetchPlayback(ctx, c.opts.DeviceID, etag)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.held {
		return
	}
	if err != nil {
		c.pollFailed(err)
		return
	}

	c.state.RetryCount = 0
	c.setConnected(true)
	c.media.HideError()

	switch {
	case res.NotModified:
		if c.state.Content != nil {
			c.refresh()
		}
	case res.Playback.Content == nil:
		c.state.ETag = res.ETag
		c.state.Window = nil
		c.idle()
	default:
		c.state.ETag = res.ETag
		c.state.Window = res.Playback.Schedule
		if content.Same(c.state.Content, res.Playback.Content) {
			c.refresh()
		} else {
			c.play(res.Playback.Content)
		}
	}
	c.report()
}

func (c *Controller) pollFailed(err error) {
	c.state.RetryCount++
	log.Warn().Err(err).Int("retry", c.state.RetryCount).Msg("playback poll failed")
	if c.state.RetryCount < c.opts.MaxRetries {
		return
	}
	c.setConnected(false)
	c.state.Phase = PhaseError
	c.state.Message = MsgConnection
	c.media.ShowError(MsgConnection)
}

// Retry is the manual retry from the error screen.
func (c *Controller) Retry() {
	c.mu.Lock()
	c.media.HideError()
	c.state.RetryCount = 0
	ctx := c.ctx
	c.mu.Unlock()

	if !c.opts.Preview {
		c.register(ctx)
	}
	c.Poll(ctx)
}

// ContentUpdate is the server asking for an immediate poll.
func (c *Controller) ContentUpdate() {
	c.mu.Lock()
	if c.held {
		c.held = false
		c.sched.Stop(SlotResume)
		c.armCadence()
	}
	ctx := c.ctx
	c.mu.Unlock()

	c.Poll(ctx)
}

// StopPlayback halts everything on screen and shows the waiting screen.
// Polling resumes on its own after a short pause.
func (c *Controller) StopPlayback() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopContent()
	c.sched.Stop(SlotSync, SlotFastCheck)
	c.syncEvery = 0
	c.held = true
	c.state.ETag = ""
	c.state.Window = nil
	c.state.Phase = PhaseWaiting
	c.state.Message = MsgStopped
	c.media.ShowWaiting(MsgStopped)
	c.sched.After(SlotResume, resumeAfterStop, c.resume)

	log.Info().Str("device_id", c.opts.DeviceID).Msg("playback stopped by administrator")
	c.report()
}

func (c *Controller) resume() {
	c.mu.Lock()
	if !c.held || c.closed {
		c.mu.Unlock()
		return
	}
	c.held = false
	c.armCadence()
	ctx := c.ctx
	c.mu.Unlock()

	c.Poll(ctx)
}

// PlaybackReport emits a telemetry report now.
func (c *Controller) PlaybackReport() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.report()
}

// cadences

func (c *Controller) armCadence() {
	c.armSync(c.opts.SyncInterval)
	if !c.opts.Preview {
		c.sched.Every(SlotFastCheck, c.opts.FastCheckInterval, c.fastCheck)
	}
}

func (c *Controller) armSync(every time.Duration) {
	if c.held || (c.syncEvery == every && c.sched.Armed(SlotSync)) {
		return
	}
	c.syncEvery = every
	c.sched.Every(SlotSync, every, c.syncTick)
}

func (c *Controller) syncTick() {
	c.mu.Lock()
	connected, ctx := c.state.Connected, c.ctx
	c.mu.Unlock()
	if connected {
		c.Poll(ctx)
	}
}

// fastCheck polls in the first seconds of each quarter hour, when schedules
// usually start.
func (c *Controller) fastCheck() {
	now := c.clock.Now()
	if now.Second() < 5 && now.Minute()%15 == 0 {
		c.syncTick()
	}
}

func (c *Controller) checkHealth() {
	c.mu.Lock()
	ctx := c.ctx
	c.mu.Unlock()

	err := c.api.Health(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.setConnected(err == nil)
	}
}

func (c *Controller) watchdog() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.Playing || !playsVideo(c.state.Content) || c.onImageItem() {
		return
	}
	if c.media.Paused() {
		log.Debug().Msg("video paused unexpectedly, resuming")
		c.media.Resume()
	}
}

func (c *Controller) setConnected(ok bool) {
	if c.state.Connected == ok {
		return
	}
	c.state.Connected = ok
	c.media.SetConnected(ok)
}

// pollLater polls after d unless the content changes first.
func (c *Controller) pollLater(slot Slot, d time.Duration) {
	gen, ctx := c.gen, c.ctx
	c.sched.After(slot, d, func() {
		c.mu.Lock()
		stale := gen != c.gen
		c.mu.Unlock()
		if !stale {
			c.Poll(ctx)
		}
	})
}

// guarded wraps fn so it runs under the lock and only while the content it
// was armed for is still current.
func (c *Controller) guarded(fn func()) func() {
	gen := c.gen
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if gen != c.gen || c.closed {
			return
		}
		fn()
	}
}

func playsVideo(d content.Descriptor) bool {
	switch d.(type) {
	case *content.Video, *content.Sequence:
		return true
	}
	return false
}
