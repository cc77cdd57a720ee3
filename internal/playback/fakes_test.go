package playback

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Nixie-Tech-LLC/prontotv/internal/content"
	"github.com/Nixie-Tech-LLC/prontotv/internal/model"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*fakeTimer
}

type fakeTimer struct {
	at   time.Time
	seq  int
	f    func()
	done bool
	c    *fakeClock
}

func newFakeClock(now time.Time) *fakeClock { return &fakeClock{now: now} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &fakeTimer{at: c.now.Add(d), seq: c.seq, f: f, c: c}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	was := !t.done
	t.done = true
	return was
}

// Advance moves time forward, firing due timers in deadline order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var due []*fakeTimer
		for _, t := range c.timers {
			if !t.done && !t.at.After(target) {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			c.now = target
			c.mu.Unlock()
			return
		}
		sort.Slice(due, func(i, j int) bool {
			if due[i].at.Equal(due[j].at) {
				return due[i].seq < due[j].seq
			}
			return due[i].at.Before(due[j].at)
		})
		t := due[0]
		t.done = true
		if t.at.After(c.now) {
			c.now = t.at
		}
		c.mu.Unlock()
		t.f()
	}
}

type fakeAPI struct {
	mu         sync.Mutex
	playback   content.Playback
	etag       string
	err        error
	healthErr  error
	fetches    int
	etags      []string
	registered int
	durations  map[string]int
}

func newFakeAPI() *fakeAPI { return &fakeAPI{durations: map[string]int{}} }

func (a *fakeAPI) set(d content.Descriptor, etag string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.playback = content.Playback{Content: d}
	if d != nil {
		a.playback.Schedule = &content.Window{StartTime: "10:00"}
	}
	a.etag = etag
}

func (a *fakeAPI) fail(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = err
}

func (a *fakeAPI) fetchCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fetches
}

func (a *fakeAPI) Register(ctx context.Context, deviceID, name, version string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.registered++
	return nil
}

func (a *fakeAPI) FetchPlayback(ctx context.Context, deviceID, etag string) (Fetched, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fetches++
	a.etags = append(a.etags, etag)
	if a.err != nil {
		return Fetched{}, a.err
	}
	if a.etag != "" && etag == a.etag {
		return Fetched{ETag: etag, NotModified: true}, nil
	}
	return Fetched{Playback: a.playback, ETag: a.etag}, nil
}

func (a *fakeAPI) Health(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.healthErr
}

func (a *fakeAPI) ReportDuration(ctx context.Context, url string, seconds int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.durations[url] = seconds
	return nil
}

type fakeMedia struct {
	videos    []VideoSource
	images    []string
	slides    []int
	seeks     []float64
	restarts  int
	resumes   int
	stops     int
	waiting   []string
	errors    []string
	paused    bool
	position  [2]float64
	connected bool
}

func (m *fakeMedia) PlayVideo(src VideoSource) { m.videos = append(m.videos, src) }
func (m *fakeMedia) Restart()                  { m.restarts++ }
func (m *fakeMedia) Seek(s float64)            { m.seeks = append(m.seeks, s) }
func (m *fakeMedia) Resume()                   { m.resumes++; m.paused = false }
func (m *fakeMedia) Paused() bool              { return m.paused }
func (m *fakeMedia) Position() (float64, float64) {
	return m.position[0], m.position[1]
}
func (m *fakeMedia) ShowImage(url, name string) { m.images = append(m.images, url) }
func (m *fakeMedia) ShowCarouselImage(i int, url string, total int) {
	m.slides = append(m.slides, i)
}
func (m *fakeMedia) ShowWaiting(msg string) { m.waiting = append(m.waiting, msg) }
func (m *fakeMedia) ShowError(msg string)   { m.errors = append(m.errors, msg) }
func (m *fakeMedia) HideError()             {}
func (m *fakeMedia) SetConnected(ok bool)   { m.connected = ok }
func (m *fakeMedia) Stop()                  { m.stops++ }

func (m *fakeMedia) last() VideoSource { return m.videos[len(m.videos)-1] }

type fakeReporter struct {
	states []model.PlaybackState
}

func (r *fakeReporter) Report(s model.PlaybackState) { r.states = append(r.states, s) }
