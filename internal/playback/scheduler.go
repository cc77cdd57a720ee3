package playback

import (
	"sync"
	"time"
)

// Slot names one timer owned by the Scheduler. Arming a slot replaces
// whatever was armed there before.
type Slot string

const (
	SlotSync        Slot = "sync"
	SlotFastCheck   Slot = "fast-check"
	SlotHealth      Slot = "health"
	SlotWatchdog    Slot = "watchdog"
	SlotRotation    Slot = "rotation"
	SlotDwell       Slot = "dwell"
	SlotMediaRetry  Slot = "media-retry"
	SlotSequenceEnd Slot = "sequence-end"
	SlotResume      Slot = "resume"
)

// contentSlots belong to whatever is on screen and die with it.
var contentSlots = []Slot{SlotRotation, SlotDwell, SlotMediaRetry, SlotSequenceEnd}

type handle struct {
	timer   Timer
	stopped bool
}

// Scheduler owns every timer of a player. Callbacks run on the clock's
// goroutine without any scheduler lock held; a callback whose slot was
// stopped or re-armed in the meantime is dropped.
type Scheduler struct {
	clock  Clock
	mu     sync.Mutex
	timers map[Slot]*handle
}

func NewScheduler(clock Clock) *Scheduler {
	return &Scheduler{clock: clock, timers: map[Slot]*handle{}}
}

// After runs fn once after d.
func (s *Scheduler) After(slot Slot, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked(slot)

	h := &handle{}
	s.timers[slot] = h
	h.timer = s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		live := !h.stopped && s.timers[slot] == h
		if live {
			delete(s.timers, slot)
		}
		s.mu.Unlock()
		if live {
			fn()
		}
	})
}

// Every runs fn every d until the slot is stopped.
func (s *Scheduler) Every(slot Slot, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked(slot)

	h := &handle{}
	s.timers[slot] = h
	var arm func()
	arm = func() {
		h.timer = s.clock.AfterFunc(d, func() {
			s.mu.Lock()
			live := !h.stopped && s.timers[slot] == h
			if live {
				arm()
			}
			s.mu.Unlock()
			if live {
				fn()
			}
		})
	}
	arm()
}

// Armed reports whether slot has a pending timer.
func (s *Scheduler) Armed(slot Slot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[slot]
	return ok
}

func (s *Scheduler) Stop(slots ...Slot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, slot := range slots {
		s.stopLocked(slot)
	}
}

// StopContentTimers tears down every timer tied to the current content.
func (s *Scheduler) StopContentTimers() {
	s.Stop(contentSlots...)
}

// StopAll tears down every timer.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for slot := range s.timers {
		s.stopLocked(slot)
	}
}

func (s *Scheduler) stopLocked(slot Slot) {
	h, ok := s.timers[slot]
	if !ok {
		return
	}
	h.stopped = true
	if h.timer != nil {
		h.timer.Stop()
	}
	delete(s.timers, slot)
}
