package resolver

import (
	"database/sql"
	"errors"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/prontotv/internal/content"
	"github.com/Nixie-Tech-LLC/prontotv/internal/model"
)

var errNoRows = sql.ErrNoRows

// Wednesday.
var base = time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)

func at(hhmm string) time.Time {
	m, _ := content.ParseClock(hhmm)
	return base.Add(time.Duration(m) * time.Minute)
}

func intp(i int) *int       { return &i }
func strp(s string) *string { return &s }

func assets() map[int]model.Video {
	return map[int]model.Video{
		1: {ID: 1, Name: "A", URL: "https://cdn/a.mp4", Type: model.TypeVideo, Duration: intp(30)},
		2: {ID: 2, Name: "B", URL: "https://cdn/b.mp4", Type: model.TypeVideo},
		3: {ID: 3, Name: "C", URL: "https://cdn/c.mp4", Type: model.TypeVideo, Duration: intp(12)},
		4: {ID: 4, Name: "Poster", URL: "https://cdn/poster.JPG", Duration: intp(8)},
		5: {ID: 5, Name: "Gallery", URL: "https://cdn/g1.png", Type: model.TypeImage,
			DisplayMode: strp(model.DisplayCarousel), Images: []string{"https://cdn/g1.png", "https://cdn/g2.png"}},
		6: {ID: 6, Name: "Shuffle", URL: "https://cdn/s1.png", Type: model.TypeImage,
			DisplayMode: strp(model.DisplayRandom), Interval: intp(2500), Images: []string{"https://cdn/s1.png", "https://cdn/s2.png"}},
	}
}

func row(id, video int, start string) model.Schedule {
	return model.Schedule{ID: id, TVID: 1, VideoID: video, StartTime: start, IsActive: 1}
}

func TestResolve_SingleVideoAnyDay(t *testing.T) {
	rows := []model.Schedule{row(1, 1, "09:00")}

	for day := 0; day < 7; day++ {
		now := at("09:05").AddDate(0, 0, day)
		res := Resolve(rows, assets(), now, nil)
		require.NotNil(t, res, "weekday %s", now.Weekday())

		v, ok := res.Content.(*content.Video)
		require.True(t, ok)
		assert.Equal(t, "https://cdn/a.mp4", v.URL)
		require.NotNil(t, v.Duration)
		assert.Equal(t, 30, *v.Duration)
		assert.Equal(t, "09:00", res.Window.StartTime)
		assert.Nil(t, res.Window.EndTime)
	}
}

func TestResolve_SequenceGroup(t *testing.T) {
	a, b := row(1, 1, "09:00"), row(2, 2, "09:00")
	a.SequenceOrder, b.SequenceOrder = intp(0), intp(1)

	res := Resolve([]model.Schedule{b, a}, assets(), at("09:05"), nil)
	require.NotNil(t, res)

	seq, ok := res.Content.(*content.Sequence)
	require.True(t, ok)
	require.Len(t, seq.Videos, 2)
	assert.Equal(t, "https://cdn/a.mp4", seq.Videos[0].URL)
	assert.Equal(t, "https://cdn/b.mp4", seq.Videos[1].URL)
	assert.False(t, seq.Loop)
	assert.Len(t, res.Items, 2)
}

func TestResolve_SequenceOrderedBySequenceOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for n := 0; n < 50; n++ {
		var rows []model.Schedule
		orders := rng.Perm(6)
		for i, o := range orders {
			r := row(i+1, (i%3)+1, "10:00")
			r.SequenceOrder = intp(o * 10)
			r.IsLoop = 1
			rows = append(rows, r)
		}

		res := Resolve(rows, assets(), at("10:30"), nil)
		require.NotNil(t, res)
		seq := res.Content.(*content.Sequence)
		assert.True(t, seq.Loop)

		byOrder := append([]model.Schedule(nil), rows...)
		sort.Slice(byOrder, func(i, j int) bool { return *byOrder[i].SequenceOrder < *byOrder[j].SequenceOrder })
		for i, r := range byOrder {
			assert.Equal(t, assets()[r.VideoID].URL, seq.Videos[i].URL)
		}
	}
}

func TestResolve_SequenceGroupKeyIncludesDay(t *testing.T) {
	wed, thu := 3, 4
	a, b := row(1, 1, "09:00"), row(2, 2, "09:00")
	a.SequenceOrder, b.SequenceOrder = intp(0), intp(1)
	a.DayOfWeek, b.DayOfWeek = &wed, &thu

	res := Resolve([]model.Schedule{a, b}, assets(), at("09:05"), nil)
	require.NotNil(t, res)
	assert.Len(t, res.Content.(*content.Sequence).Videos, 1)
}

func TestResolve_NullIffNoWindowContainsNow(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for n := 0; n < 500; n++ {
		var rows []model.Schedule
		covered := false
		now := at(content.FormatClock(rng.Intn(content.MinutesPerDay))).AddDate(0, 0, rng.Intn(7))
		clock := content.ClockOf(now)

		for i := 0; i < 1+rng.Intn(4); i++ {
			start := rng.Intn(content.MinutesPerDay)
			r := row(i+1, 1+rng.Intn(3), content.FormatClock(start))
			if rng.Intn(4) == 0 {
				r.IsActive = 0
			}
			var end = -1
			if rng.Intn(2) == 0 {
				end = start + 1 + rng.Intn(180)
				if end >= content.MinutesPerDay {
					end = content.MinutesPerDay - 1
				}
				r.EndTime = strp(content.FormatClock(end))
			}
			if rng.Intn(3) == 0 {
				d := rng.Intn(7)
				r.DayOfWeek = &d
			}
			rows = append(rows, r)

			dayOK := r.DayOfWeek == nil || *r.DayOfWeek == int(now.Weekday())
			inWindow := clock >= start && (end < 0 || clock < end)
			if r.IsActive == 1 && dayOK && inWindow {
				covered = true
			}
		}

		res := Resolve(rows, assets(), now, nil)
		assert.Equal(t, covered, res != nil, "rows=%+v now=%s", rows, now)
	}
}

func TestResolve_HalfOpenWindow(t *testing.T) {
	r := row(1, 1, "09:00")
	r.EndTime = strp("09:30")
	rows := []model.Schedule{r}

	assert.NotNil(t, Resolve(rows, assets(), at("09:00"), nil))
	assert.NotNil(t, Resolve(rows, assets(), at("09:29"), nil))
	assert.Nil(t, Resolve(rows, assets(), at("09:30"), nil))
	assert.Nil(t, Resolve(rows, assets(), at("08:59"), nil))
}

func TestResolve_UnpaddedTimes(t *testing.T) {
	r := row(1, 1, "9:5")
	r.EndTime = strp("9:30")

	res := Resolve([]model.Schedule{r}, assets(), at("09:10"), nil)
	require.NotNil(t, res)
	assert.Equal(t, "09:05", res.Window.StartTime)
	assert.Equal(t, "09:30", *res.Window.EndTime)
}

func TestResolve_InactiveAndOtherDayIgnored(t *testing.T) {
	off := row(1, 1, "09:00")
	off.IsActive = 0
	mon := 1
	other := row(2, 2, "09:00")
	other.DayOfWeek = &mon

	assert.Nil(t, Resolve([]model.Schedule{off, other}, assets(), at("09:05"), nil))
}

func TestResolve_ImmediateBeatsSchedule(t *testing.T) {
	regular := row(1, 1, "08:00")
	immediate := row(2, 3, "09:04")
	immediate.IsImmediate = 1
	immediate.Priority = 999

	res := Resolve([]model.Schedule{regular, immediate}, assets(), at("09:05"), nil)
	require.NotNil(t, res)
	assert.Equal(t, "https://cdn/c.mp4", res.Content.(*content.Video).URL)
	assert.Equal(t, 2, res.Schedule.ID)
}

func TestResolve_LatestImmediateWins(t *testing.T) {
	first := row(1, 1, "09:00")
	second := row(2, 2, "09:03")
	for _, r := range []*model.Schedule{&first, &second} {
		r.IsImmediate = 1
		r.Priority = 999
	}

	res := Resolve([]model.Schedule{first, second}, assets(), at("09:05"), nil)
	require.NotNil(t, res)
	assert.Equal(t, 2, res.Schedule.ID)
}

func TestResolve_FirstEncounteredOnTie(t *testing.T) {
	res := Resolve([]model.Schedule{row(1, 2, "09:00"), row(2, 1, "09:00")}, assets(), at("09:05"), nil)
	require.NotNil(t, res)
	assert.Equal(t, 1, res.Schedule.ID)
}

func TestResolve_ImagesAndSets(t *testing.T) {
	res := Resolve([]model.Schedule{row(1, 4, "09:00")}, assets(), at("09:05"), nil)
	require.NotNil(t, res)
	img, ok := res.Content.(*content.Image)
	require.True(t, ok)
	assert.Equal(t, 8, *img.Duration)

	res = Resolve([]model.Schedule{row(1, 5, "09:00")}, assets(), at("09:05"), nil)
	car, ok := res.Content.(*content.Carousel)
	require.True(t, ok)
	assert.Equal(t, content.DefaultCarouselInterval, car.Interval)
	assert.Len(t, car.Images, 2)

	res = Resolve([]model.Schedule{row(1, 6, "09:00")}, assets(), at("09:05"), nil)
	rnd, ok := res.Content.(*content.Random)
	require.True(t, ok)
	assert.Equal(t, 2500, rnd.Interval)
}

func TestResolve_MissingAssets(t *testing.T) {
	a, b := row(1, 1, "09:00"), row(2, 99, "09:00")
	a.SequenceOrder, b.SequenceOrder = intp(0), intp(1)

	res := Resolve([]model.Schedule{a, b}, assets(), at("09:05"), nil)
	require.NotNil(t, res)
	assert.Len(t, res.Content.(*content.Sequence).Videos, 1)

	assert.Nil(t, Resolve([]model.Schedule{row(1, 99, "09:00")}, assets(), at("09:05"), nil))
}

func TestResolve_Rewrite(t *testing.T) {
	rewrite := func(s string) string { return "https://bunny/" + s[len("https://cdn/"):] }

	res := Resolve([]model.Schedule{row(1, 1, "09:00")}, assets(), at("09:05"), rewrite)
	require.NotNil(t, res)
	assert.Equal(t, "https://bunny/a.mp4", res.Content.(*content.Video).URL)
}

type fakeSource struct {
	tv       *model.TV
	rows     []model.Schedule
	videos   []model.Video
	err      error
	recorded []int
}

func (f *fakeSource) GetTVByDeviceID(deviceID string) (*model.TV, error) {
	if f.tv == nil || f.tv.DeviceID != deviceID {
		return nil, errNoRows
	}
	return f.tv, nil
}

func (f *fakeSource) ListActiveSchedulesForTV(tvID int) ([]model.Schedule, error) {
	return f.rows, f.err
}

func (f *fakeSource) GetVideosByIDs(ids []int) ([]model.Video, error) {
	return f.videos, nil
}

func (f *fakeSource) RecordCurrentPlayback(tvID int, videoID *int, sequence []byte) error {
	f.recorded = append(f.recorded, *videoID)
	return nil
}

func TestService_ResolveDevice(t *testing.T) {
	var videos []model.Video
	for _, v := range assets() {
		videos = append(videos, v)
	}
	src := &fakeSource{
		tv:     &model.TV{ID: 1, DeviceID: "tv_1"},
		rows:   []model.Schedule{row(1, 1, "09:00")},
		videos: videos,
	}
	svc := NewService(src, nil, time.UTC)

	res, err := svc.ResolveDevice("tv_1", at("09:05"))
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, []int{1}, src.recorded)

	res, err = svc.ResolveDevice("tv_unknown", at("09:05"))
	require.NoError(t, err)
	assert.Nil(t, res)

	res, err = svc.ResolveDevice("tv_1", at("08:05"))
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Equal(t, []int{1}, src.recorded)

	src.err = errors.New("connection refused")
	_, err = svc.ResolveDevice("tv_1", at("09:05"))
	assert.Error(t, err)
}
