package sweeper

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeStore struct {
	resumed, expired []string
	err              error
	expiredBefore    time.Time
}

func (f *fakeStore) ReactivatePausedSchedules(now time.Time) ([]string, error) {
	return f.resumed, f.err
}

func (f *fakeStore) ExpireImmediateSchedules(before time.Time) ([]string, error) {
	f.expiredBefore = before
	return f.expired, nil
}

type fakeNotifier struct{ devices []string }

func (f *fakeNotifier) ContentUpdate(ids ...string) { f.devices = append(f.devices, ids...) }

type fakeCache struct{ n int }

func (f *fakeCache) Invalidate(context.Context) { f.n++ }

func TestSweep(t *testing.T) {
	now := time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)
	store := &fakeStore{resumed: []string{"tv_1", "tv_2"}, expired: []string{"tv_2"}}
	notifier := &fakeNotifier{}
	cache := &fakeCache{}

	s := New(store, notifier, cache)
	s.now = func() time.Time { return now }
	s.Sweep()

	sort.Strings(notifier.devices)
	assert.Equal(t, []string{"tv_1", "tv_2"}, notifier.devices)
	assert.Equal(t, 1, cache.n)
	assert.Equal(t, now.Add(-time.Hour), store.expiredBefore)
}

func TestSweep_NothingChanged(t *testing.T) {
	notifier := &fakeNotifier{}
	cache := &fakeCache{}
	s := New(&fakeStore{err: errors.New("db down")}, notifier, cache)
	s.Sweep()

	assert.Empty(t, notifier.devices)
	assert.Zero(t, cache.n)
}

func TestStartStop(t *testing.T) {
	s := New(&fakeStore{}, nil, nil)
	assert.NoError(t, s.Start())
	s.Stop()
}
