package playback

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/prontotv/internal/content"
	"github.com/Nixie-Tech-LLC/prontotv/internal/model"
)

// reset forgets the current content and kills its timers.
func (c *Controller) reset() {
	c.gen++
	c.sched.StopContentTimers()
	c.state.Content = nil
	c.state.Playing = false
	c.state.SequenceIndex = 0
	c.state.SlideIndex = 0
	c.videoRetried = false
	c.seqFailures = 0
	c.pendingSeek = 0
}

func (c *Controller) stopContent() {
	c.reset()
	c.media.Stop()
}

func (c *Controller) idle() {
	if c.state.Content != nil || c.state.Playing {
		c.stopContent()
	}
	c.state.Phase = PhaseWaiting
	c.state.Message = MsgNoContent
	c.media.ShowWaiting(MsgNoContent)
	c.armSync(c.opts.IdleSyncInterval)
}

// refresh handles a poll that returned what is already on screen. Nothing
// restarts unless playback has stopped.
func (c *Controller) refresh() {
	d := c.state.Content
	switch d.(type) {
	case *content.Video, *content.Sequence:
		if !c.state.Playing {
			c.play(d)
			return
		}
	}
	if c.state.Phase == PhaseError && c.state.Playing {
		c.state.Phase = PhasePlaying
		c.state.Message = ""
	}
	c.armSync(c.opts.SyncInterval)
}

func (c *Controller) play(d content.Descriptor) {
	d = content.Clone(d)
	c.reset()
	c.state.Content = d
	c.state.Phase = PhasePlaying
	c.state.Message = ""
	c.state.Playing = true

	log.Info().Str("type", string(d.Kind())).Str("url", content.PrimaryURL(d)).Msg("playing content")

	switch v := d.(type) {
	case *content.Video:
		c.playVideo(v)
	case *content.Image:
		c.playImage(v)
	case *content.Carousel:
		c.playCarousel(v)
	case *content.Random:
		c.playRandom(v)
	case *content.Sequence:
		c.playSequence(v)
	}
	c.armSync(c.opts.SyncInterval)
}

// elapsed is how far into the current window the wall clock is. Only preview
// mode seeks; a TV always starts from the top.
func (c *Controller) elapsed() float64 {
	if !c.opts.Preview || c.state.Window == nil {
		return 0
	}
	return Elapsed(c.clock.Now(), c.state.Window.StartTime)
}

func seconds(d *int) float64 {
	if d == nil {
		return 0
	}
	return float64(*d)
}

func (c *Controller) startVideo(url, name string, duration *int, start float64) {
	c.token++
	c.media.PlayVideo(VideoSource{
		Token:    c.token,
		URL:      url,
		Name:     name,
		Muted:    !c.opts.AllowAudio,
		Start:    start,
		Duration: seconds(duration),
	})
}

func (c *Controller) playVideo(v *content.Video) {
	start := 0.0
	if el := c.elapsed(); el > 0 {
		if dur := seconds(v.Duration); dur > 0 {
			start = VideoOffset(el, dur, v.Loop)
		} else {
			c.pendingSeek = el
		}
	}
	c.startVideo(v.URL, v.Name, v.Duration, start)
}

func (c *Controller) playImage(v *content.Image) {
	c.media.ShowImage(v.URL, v.Name)
	if dur := seconds(v.Duration); dur > 0 {
		c.pollLater(SlotDwell, time.Duration(dur*float64(time.Second)))
	}
}

func interval(ms, fallback int) time.Duration {
	if ms <= 0 {
		ms = fallback
	}
	return time.Duration(ms) * time.Millisecond
}

func (c *Controller) playCarousel(v *content.Carousel) {
	if len(v.Images) == 0 {
		c.state.Playing = false
		c.state.Phase = PhaseWaiting
		c.state.Message = MsgNoImages
		c.media.ShowWaiting(MsgNoImages)
		return
	}
	show := func() {
		s := v.Images[c.state.SlideIndex]
		c.media.ShowCarouselImage(c.state.SlideIndex, s.URL, len(v.Images))
	}
	show()
	if len(v.Images) > 1 {
		c.sched.Every(SlotRotation, interval(v.Interval, content.DefaultCarouselInterval), c.guarded(func() {
			c.state.SlideIndex = (c.state.SlideIndex + 1) % len(v.Images)
			show()
		}))
	}
}

// playRandom never shows the same image twice in a row.
func (c *Controller) playRandom(v *content.Random) {
	n := len(v.Images)
	if n == 0 {
		c.state.Playing = false
		c.state.Phase = PhaseWaiting
		c.state.Message = MsgNoImages
		c.media.ShowWaiting(MsgNoImages)
		return
	}
	c.state.SlideIndex = c.opts.Rand(n)
	s := v.Images[c.state.SlideIndex]
	c.media.ShowImage(s.URL, s.Name)
	if n == 1 {
		return
	}
	c.sched.Every(SlotRotation, interval(v.Interval, content.DefaultRandomInterval), c.guarded(func() {
		next := c.opts.Rand(n)
		for next == c.state.SlideIndex {
			next = c.opts.Rand(n)
		}
		c.state.SlideIndex = next
		s := v.Images[next]
		c.media.ShowImage(s.URL, s.Name)
	}))
}

func (c *Controller) playSequence(v *content.Sequence) {
	if len(v.Videos) == 0 {
		c.finishSequence()
		return
	}
	idx, off := 0, 0.0
	if el := c.elapsed(); el > 0 {
		durations := make([]float64, len(v.Videos))
		for i, it := range v.Videos {
			durations[i] = seconds(it.Duration)
		}
		var done bool
		idx, off, done = SequencePosition(durations, el, v.Loop)
		if done {
			c.finishSequence()
			return
		}
	}
	c.playItem(idx, off)
}

func isImageItem(it content.Item) bool {
	return it.Type == string(content.KindImage)
}

func (c *Controller) onImageItem() bool {
	seq, ok := c.state.Content.(*content.Sequence)
	if !ok || c.state.SequenceIndex >= len(seq.Videos) {
		return false
	}
	return isImageItem(seq.Videos[c.state.SequenceIndex])
}

// playItem starts sequence item i, offset seconds in.
func (c *Controller) playItem(i int, offset float64) {
	seq := c.state.Content.(*content.Sequence)
	c.state.SequenceIndex = i
	c.pendingSeek = 0
	it := seq.Videos[i]

	if isImageItem(it) {
		c.media.ShowImage(it.URL, it.Name)
		dwell := defaultImageDwell
		if d := seconds(it.Duration); d > 0 {
			dwell = time.Duration((d - math.Min(offset, d)) * float64(time.Second))
		}
		c.sched.After(SlotDwell, dwell, c.guarded(c.advance))
		return
	}

	start := offset
	if offset > 0 && seconds(it.Duration) <= 0 {
		c.pendingSeek = offset
		start = 0
	}
	c.startVideo(it.URL, it.Name, it.Duration, start)
}

// advance moves to the next sequence item, wrapping or finishing at the end.
func (c *Controller) advance() {
	seq := c.state.Content.(*content.Sequence)
	next := c.state.SequenceIndex + 1
	if next >= len(seq.Videos) {
		if !seq.Loop {
			c.finishSequence()
			return
		}
		next = 0
	}
	c.playItem(next, 0)
}

// finishSequence shows the waiting screen and polls once shortly after, so
// the next schedule takes over.
func (c *Controller) finishSequence() {
	c.stopContent()
	c.state.ETag = ""
	c.state.Phase = PhaseWaiting
	c.state.Message = MsgSequenceDone
	c.media.ShowWaiting(MsgSequenceDone)
	c.pollLater(SlotSequenceEnd, sequenceEndDelay)
	log.Info().Msg("sequence completed")
}

// VideoEnded is reported by the media binding when a source plays to its end.
func (c *Controller) VideoEnded(token uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if token != c.token || c.state.Content == nil {
		return
	}
	switch v := c.state.Content.(type) {
	case *content.Video:
		if v.Loop {
			c.media.Restart()
			return
		}
		c.state.Playing = false
		c.pollLater(SlotDwell, 0)
	case *content.Sequence:
		c.seqFailures = 0
		c.advance()
	}
}

// VideoFailed is reported when a source cannot be played.
func (c *Controller) VideoFailed(token uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if token != c.token || c.state.Content == nil {
		return
	}
	switch v := c.state.Content.(type) {
	case *content.Video:
		if !c.videoRetried {
			c.videoRetried = true
			log.Warn().Err(err).Str("url", v.URL).Msg("video failed, retrying")
			c.sched.After(SlotMediaRetry, mediaRetryDelay, c.guarded(func() {
				c.startVideo(v.URL, v.Name, v.Duration, 0)
			}))
			return
		}
		c.fail(fmt.Sprintf("Error playing %s: %v", displayName(v.Name, v.URL), err))
	case *content.Sequence:
		it := v.Videos[c.state.SequenceIndex]
		log.Warn().Err(err).Str("url", it.URL).Int("index", c.state.SequenceIndex).Msg("sequence item failed, skipping")
		c.seqFailures++
		if c.seqFailures >= len(v.Videos) {
			c.fail(MsgSequenceFail)
			return
		}
		c.advance()
	}
}

func displayName(name, url string) string {
	if name != "" {
		return name
	}
	return url
}

func (c *Controller) fail(msg string) {
	c.state.Playing = false
	c.state.Phase = PhaseError
	c.state.Message = msg
	c.media.ShowError(msg)
	log.Error().Str("device_id", c.opts.DeviceID).Msg(msg)
}

// MetadataLoaded is reported once the binding knows a source's duration.
func (c *Controller) MetadataLoaded(token uint64, duration float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if token != c.token || c.state.Content == nil || duration <= 0 {
		return
	}

	url := ""
	loop := false
	switch v := c.state.Content.(type) {
	case *content.Video:
		url, loop = v.URL, v.Loop
	case *content.Sequence:
		url = v.Videos[c.state.SequenceIndex].URL
		loop = v.Loop
	default:
		return
	}

	if !c.opts.Preview && !c.reported[url] {
		c.reported[url] = true
		ctx, secs := c.ctx, int(math.Floor(duration))
		c.spawn(func() {
			if err := c.api.ReportDuration(ctx, url, secs); err != nil {
				log.Warn().Err(err).Str("url", url).Msg("failed to report duration")
			}
		})
	}

	if c.pendingSeek <= 0 {
		return
	}
	pending := c.pendingSeek
	c.pendingSeek = 0

	if seq, ok := c.state.Content.(*content.Sequence); ok && pending >= duration {
		// the wall clock is already past this item
		rest := pending - duration
		next := c.state.SequenceIndex + 1
		if next >= len(seq.Videos) {
			if !seq.Loop {
				c.finishSequence()
				return
			}
			next = 0
		}
		c.playItem(next, rest)
		return
	}
	c.media.Seek(VideoOffset(pending, duration, loop && !isSequence(c.state.Content)))
}

func isSequence(d content.Descriptor) bool {
	_, ok := d.(*content.Sequence)
	return ok
}

// report publishes the playback state. Reporter calls happen under the lock
// and must not block.
func (c *Controller) report() {
	if c.opts.Preview || c.reporter == nil {
		return
	}
	st := model.PlaybackState{DeviceID: c.opts.DeviceID, Timestamp: c.clock.Now().UnixMilli()}

	switch v := c.state.Content.(type) {
	case *content.Video:
		cur, dur := c.media.Position()
		if dur <= 0 {
			dur = seconds(v.Duration)
		}
		st.VideoURL, st.VideoName = v.URL, v.Name
		st.CurrentTime, st.Duration = math.Floor(cur), math.Floor(dur)
		st.IsPlaying = c.state.Playing && !c.media.Paused()
		st.TotalVideos = 1
	case *content.Sequence:
		it := v.Videos[c.state.SequenceIndex]
		cur, dur := 0.0, seconds(it.Duration)
		if !isImageItem(it) {
			var d float64
			cur, d = c.media.Position()
			if d > 0 {
				dur = d
			}
		}
		st.VideoURL, st.VideoName = it.URL, it.Name
		st.CurrentTime, st.Duration = math.Floor(cur), math.Floor(dur)
		st.IsPlaying = c.state.Playing && (isImageItem(it) || !c.media.Paused())
		st.VideoIndex = c.state.SequenceIndex
		st.TotalVideos = len(v.Videos)
		st.SequenceLoop = v.Loop
	default:
		return
	}
	c.reporter.Report(st)
}
