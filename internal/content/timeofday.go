package content

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MinutesPerDay bounds every time-of-day value.
const MinutesPerDay = 24 * 60

// ParseClock parses "H:M" or "HH:MM" into minutes since midnight.
func ParseClock(s string) (int, bool) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, false
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, false
	}
	return hour*60 + minute, true
}

// FormatClock renders minutes since midnight as zero-padded "HH:MM".
func FormatClock(minutes int) string {
	minutes = ((minutes % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// NormalizeClock zero-pads a time of day ("9:5" becomes "09:05").
func NormalizeClock(s string) (string, bool) {
	m, ok := ParseClock(s)
	if !ok {
		return "", false
	}
	return FormatClock(m), true
}

// ClockOf returns the local time of day of t in minutes.
func ClockOf(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// EndAfter returns start plus totalSeconds, rounded up to the next whole
// minute and clamped to 23:59.
func EndAfter(start string, totalSeconds int) (string, bool) {
	m, ok := ParseClock(start)
	if !ok || totalSeconds <= 0 {
		return "", false
	}
	end := m + (totalSeconds+59)/60
	if end > MinutesPerDay-1 {
		end = MinutesPerDay - 1
	}
	return FormatClock(end), true
}
