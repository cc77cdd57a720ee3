// Package sweeper resumes schedules paused by an immediate play once the
// pause runs out.
package sweeper

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// PauseWindow is how long an immediate play overrides the regular schedule.
const PauseWindow = time.Hour

type Store interface {
	ReactivatePausedSchedules(now time.Time) ([]string, error)
	ExpireImmediateSchedules(createdBefore time.Time) ([]string, error)
}

// Notifier is told which TVs should poll again.
type Notifier interface {
	ContentUpdate(deviceIDs ...string)
}

// Invalidator drops cached playback responses.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

type Sweeper struct {
	store    Store
	notifier Notifier
	cache    Invalidator
	cron     *cron.Cron
	now      func() time.Time
}

func New(store Store, notifier Notifier, cache Invalidator) *Sweeper {
	return &Sweeper{
		store:    store,
		notifier: notifier,
		cache:    cache,
		cron:     cron.New(),
		now:      time.Now,
	}
}

// Start runs Sweep every minute until Stop.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc("@every 1m", s.Sweep); err != nil {
		return err
	}
	s.cron.Start()
	log.Info().Msg("schedule sweeper started")
	return nil
}

func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep reactivates expired pauses, then retires stale immediate plays, and
// notifies every TV whose schedule changed.
func (s *Sweeper) Sweep() {
	now := s.now()
	changed := map[string]bool{}

	resumed, err := s.store.ReactivatePausedSchedules(now)
	if err != nil {
		log.Error().Err(err).Msg("sweep: failed to reactivate paused schedules")
	}
	for _, id := range resumed {
		changed[id] = true
	}

	expired, err := s.store.ExpireImmediateSchedules(now.Add(-PauseWindow))
	if err != nil {
		log.Error().Err(err).Msg("sweep: failed to expire immediate schedules")
	}
	for _, id := range expired {
		changed[id] = true
	}

	if len(changed) == 0 {
		return
	}
	if s.cache != nil {
		s.cache.Invalidate(context.Background())
	}
	devices := make([]string, 0, len(changed))
	for id := range changed {
		devices = append(devices, id)
	}
	log.Info().Strs("devices", devices).Msg("sweep: schedules resumed")
	if s.notifier != nil {
		s.notifier.ContentUpdate(devices...)
	}
}
