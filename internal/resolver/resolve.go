// Package resolver decides what a TV should be showing at a given moment.
package resolver

import (
	"fmt"
	"sort"
	"time"

	"github.com/Nixie-Tech-LLC/prontotv/internal/content"
	"github.com/Nixie-Tech-LLC/prontotv/internal/model"
)

// Rewriter maps a stored asset URL to the URL handed to devices.
type Rewriter func(string) string

func identity(s string) string { return s }

// Result is the resolved content plus what is needed to record it.
type Result struct {
	Content  content.Descriptor
	Window   content.Window
	Schedule model.Schedule
	VideoID  int
	Items    []model.SequenceItem
}

// Resolve picks the content for now out of a TV's schedule rows. It returns
// nil when no active row covers now or the winning row's asset is missing.
func Resolve(rows []model.Schedule, assets map[int]model.Video, now time.Time, rewrite Rewriter) *Result {
	if rewrite == nil {
		rewrite = identity
	}
	today := int(now.Weekday())
	clock := content.ClockOf(now)

	var active, matches []model.Schedule
	for _, row := range rows {
		if row.IsActive != 1 {
			continue
		}
		if row.DayOfWeek != nil && *row.DayOfWeek != today {
			continue
		}
		active = append(active, row)
		if covers(row, clock) {
			matches = append(matches, row)
		}
	}
	if len(matches) == 0 {
		return nil
	}

	sort.SliceStable(matches, func(i, j int) bool { return precedes(matches[i], matches[j]) })
	winner := matches[0]

	if winner.InSequence() {
		if res := sequence(winner, active, assets, rewrite); res != nil {
			return res
		}
	}
	return single(winner, assets, rewrite)
}

// covers reports whether clock falls in [start, end). An open end runs to
// the end of the day.
func covers(row model.Schedule, clock int) bool {
	start, ok := content.ParseClock(row.StartTime)
	if !ok || clock < start {
		return false
	}
	if row.EndTime == nil || *row.EndTime == "" {
		return true
	}
	end, ok := content.ParseClock(*row.EndTime)
	if !ok {
		return false
	}
	return clock < end
}

// precedes orders candidate rows: immediate plays first, then higher
// priority, then sequence members by order, then earlier start. Two
// immediate rows prefer the most recent start.
func precedes(a, b model.Schedule) bool {
	if a.IsImmediate != b.IsImmediate {
		return a.IsImmediate > b.IsImmediate
	}
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if a.InSequence() != b.InSequence() {
		return a.InSequence()
	}
	if a.InSequence() && *a.SequenceOrder != *b.SequenceOrder {
		return *a.SequenceOrder < *b.SequenceOrder
	}
	as, _ := content.ParseClock(a.StartTime)
	bs, _ := content.ParseClock(b.StartTime)
	if a.IsImmediate == 1 && b.IsImmediate == 1 {
		return as > bs
	}
	return as < bs
}

func sequence(winner model.Schedule, active []model.Schedule, assets map[int]model.Video, rewrite Rewriter) *Result {
	key := winner.GroupKey()
	var group []model.Schedule
	for _, row := range active {
		if row.InSequence() && row.GroupKey() == key {
			group = append(group, row)
		}
	}
	sort.SliceStable(group, func(i, j int) bool { return *group[i].SequenceOrder < *group[j].SequenceOrder })

	seq := &content.Sequence{Loop: winner.IsLoop == 1}
	var items []model.SequenceItem
	for _, row := range group {
		v, ok := assets[row.VideoID]
		if !ok {
			continue
		}
		url := rewrite(v.URL)
		seq.Videos = append(seq.Videos, content.Item{
			URL:      url,
			Name:     v.Name,
			Duration: v.Duration,
			Type:     v.EffectiveType(),
		})
		items = append(items, model.SequenceItem{ID: v.ID, URL: url, Name: v.Name, Duration: v.Duration})
	}
	if len(seq.Videos) == 0 {
		return nil
	}
	return &Result{
		Content:  seq,
		Window:   window(winner),
		Schedule: winner,
		VideoID:  items[0].ID,
		Items:    items,
	}
}

func single(row model.Schedule, assets map[int]model.Video, rewrite Rewriter) *Result {
	v, ok := assets[row.VideoID]
	if !ok {
		return nil
	}
	return &Result{
		Content:  describe(v, row.IsLoop == 1, rewrite),
		Window:   window(row),
		Schedule: row,
		VideoID:  v.ID,
	}
}

// describe turns one asset into its descriptor.
func describe(v model.Video, loop bool, rewrite Rewriter) content.Descriptor {
	url := rewrite(v.URL)
	if v.EffectiveType() == model.TypeImage {
		if v.DisplayMode != nil && len(v.Images) > 0 {
			slides := make([]content.Slide, 0, len(v.Images))
			for i, img := range v.Images {
				slides = append(slides, content.Slide{URL: rewrite(img), Name: fmt.Sprintf("%s %d", v.Name, i+1)})
			}
			switch *v.DisplayMode {
			case model.DisplayCarousel:
				return &content.Carousel{URL: url, Name: v.Name, Loop: loop, Images: slides, Interval: interval(v, content.DefaultCarouselInterval)}
			case model.DisplayRandom:
				return &content.Random{URL: url, Name: v.Name, Loop: loop, Images: slides, Interval: interval(v, content.DefaultRandomInterval)}
			}
		}
		return &content.Image{URL: url, Name: v.Name, Loop: loop, Duration: v.Duration}
	}
	return &content.Video{URL: url, Name: v.Name, Loop: loop, Duration: v.Duration}
}

func interval(v model.Video, def int) int {
	if v.Interval != nil && *v.Interval > 0 {
		return *v.Interval
	}
	return def
}

func window(row model.Schedule) content.Window {
	w := content.Window{StartTime: row.StartTime}
	if s, ok := content.NormalizeClock(row.StartTime); ok {
		w.StartTime = s
	}
	if row.EndTime != nil {
		end := *row.EndTime
		if s, ok := content.NormalizeClock(end); ok {
			end = s
		}
		w.EndTime = &end
	}
	return w
}
