package playback

import (
	"math"
	"time"

	"github.com/Nixie-Tech-LLC/prontotv/internal/content"
)

// Elapsed returns the seconds since the schedule started at start ("HH:MM"),
// wrapping midnight when start is later than now.
func Elapsed(now time.Time, start string) float64 {
	m, ok := content.ParseClock(start)
	if !ok {
		return 0
	}
	nowSec := float64(now.Hour()*3600+now.Minute()*60+now.Second()) + float64(now.Nanosecond())/1e9
	startSec := float64(m * 60)
	if nowSec >= startSec {
		return nowSec - startSec
	}
	return 24*3600 - startSec + nowSec
}

// VideoOffset maps an elapsed offset onto a single video of the given
// duration. Unknown durations (<= 0) leave the offset untouched.
func VideoOffset(elapsed, duration float64, loop bool) float64 {
	if duration <= 0 {
		return elapsed
	}
	if loop {
		return math.Mod(elapsed, duration)
	}
	return math.Min(elapsed, duration)
}

// SequencePosition finds the item and in-item offset a sequence started
// elapsed seconds ago would be at. When any duration is unknown the walk
// stops there and the rest of the offset is attributed to that item; the
// player corrects it once the real duration is known. done reports a
// non-looping sequence that has already finished.
func SequencePosition(durations []float64, elapsed float64, loop bool) (index int, offset float64, done bool) {
	if len(durations) == 0 {
		return 0, 0, true
	}
	total := 0.0
	for _, d := range durations {
		if d <= 0 {
			return walk(durations, elapsed)
		}
		total += d
	}
	if loop {
		elapsed = math.Mod(elapsed, total)
	} else if elapsed >= total {
		return len(durations) - 1, durations[len(durations)-1], true
	}
	return walk(durations, elapsed)
}

func walk(durations []float64, elapsed float64) (int, float64, bool) {
	for i, d := range durations {
		if d <= 0 || elapsed < d {
			return i, elapsed, false
		}
		elapsed -= d
	}
	last := len(durations) - 1
	return last, durations[last], true
}
