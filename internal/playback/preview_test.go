package playback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestElapsed(t *testing.T) {
	now := time.Date(2026, 10, 12, 10, 31, 20, 0, time.UTC)
	assert.InDelta(t, 1880, Elapsed(now, "10:00"), 0.001)
	assert.InDelta(t, 0, Elapsed(now, "bogus"), 0.001)

	early := time.Date(2026, 10, 12, 0, 10, 0, 0, time.UTC)
	assert.InDelta(t, 20*60, Elapsed(early, "23:50"), 0.001)
}

func TestVideoOffset(t *testing.T) {
	assert.InDelta(t, 80, VideoOffset(1880, 600, true), 0.001)
	assert.InDelta(t, 600, VideoOffset(1880, 600, false), 0.001)
	assert.InDelta(t, 1880, VideoOffset(1880, 0, true), 0.001)
}

func TestSequencePosition(t *testing.T) {
	tests := []struct {
		name      string
		durations []float64
		elapsed   float64
		loop      bool
		index     int
		offset    float64
		done      bool
	}{
		{"first item", []float64{10, 20}, 5, false, 0, 5, false},
		{"second item", []float64{10, 20}, 15, false, 1, 5, false},
		{"finished", []float64{10, 20}, 40, false, 1, 20, true},
		{"wraps when looping", []float64{10, 20}, 35, true, 0, 5, false},
		{"stops at unknown duration", []float64{10, 0, 20}, 50, true, 1, 40, false},
		{"empty", nil, 5, true, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			index, offset, done := SequencePosition(tt.durations, tt.elapsed, tt.loop)
			assert.Equal(t, tt.index, index)
			assert.InDelta(t, tt.offset, offset, 0.001)
			assert.Equal(t, tt.done, done)
		})
	}
}
