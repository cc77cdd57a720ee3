// Package memstore is an in-memory db.Store for tests and database-less
// demo runs. It follows the Postgres store's ordering and not-found rules.
package memstore

import (
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Nixie-Tech-LLC/prontotv/internal/db"
	"github.com/Nixie-Tech-LLC/prontotv/internal/model"
)

// Playback is a recorded current_playback row.
type Playback struct {
	VideoID  *int
	Sequence []byte
}

type Store struct {
	mu        sync.Mutex
	now       func() time.Time
	seq       int
	users     map[int]model.User
	tvs       map[int]model.TV
	videos    map[int]model.Video
	schedules map[int]model.Schedule
	playback  map[int]Playback
}

var _ db.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		now:       time.Now,
		users:     map[int]model.User{},
		tvs:       map[int]model.TV{},
		videos:    map[int]model.Video{},
		schedules: map[int]model.Schedule{},
		playback:  map[int]Playback{},
	}
}

// SetClock replaces the clock used for timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) nextID() int {
	s.seq++
	return s.seq
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// users

func (s *Store) CreateUser(email, hashedPassword string, name *string, role string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return 0, db.ErrDuplicate
		}
	}
	now := s.now()
	id := s.nextID()
	s.users[id] = model.User{ID: id, Email: email, HashedPassword: hashedPassword, Name: name, Role: role, CreatedAt: now, UpdatedAt: now}
	return id, nil
}

func (s *Store) GetUserByEmail(email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range sortedKeys(s.users) {
		if u := s.users[id]; u.Email == email {
			return &u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *Store) GetUserByID(id int) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &u, nil
}

func (s *Store) UpdateUserProfile(id int, email string, name *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.Email, u.Name, u.UpdatedAt = email, name, s.now()
	s.users[id] = u
	return nil
}

func (s *Store) ListUsers() ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.User{}
	for _, id := range sortedKeys(s.users) {
		out = append(out, s.users[id])
	}
	return out, nil
}

func (s *Store) UpdateUserRole(id int, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.Role, u.UpdatedAt = role, s.now()
	s.users[id] = u
	return nil
}

// tvs

func (s *Store) findTV(deviceID string) (model.TV, bool) {
	for _, tv := range s.tvs {
		if tv.DeviceID == deviceID {
			return tv, true
		}
	}
	return model.TV{}, false
}

func (s *Store) RegisterTV(deviceID, name string, version *string) (*model.TV, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	tv, ok := s.findTV(deviceID)
	if !ok {
		tv = model.TV{ID: s.nextID(), DeviceID: deviceID, Name: name, AspectRatio: model.AspectLandscape, CreatedAt: now}
	}
	if tv.Name == "" {
		tv.Name = name
	}
	if version != nil {
		tv.Version = version
	}
	tv.Status = model.StatusOnline
	tv.LastSeen = &now
	tv.UpdatedAt = now
	s.tvs[tv.ID] = tv
	return &tv, nil
}

func (s *Store) GetTVByID(id int) (*model.TV, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tv, ok := s.tvs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &tv, nil
}

func (s *Store) GetTVByDeviceID(deviceID string) (*model.TV, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tv, ok := s.findTV(deviceID)
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &tv, nil
}

func (s *Store) ListTVs() ([]model.TV, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := sortedKeys(s.tvs)
	out := make([]model.TV, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		out = append(out, s.tvs[keys[i]])
	}
	return out, nil
}

func (s *Store) UpdateTV(id int, name, aspectRatio *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tv, ok := s.tvs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if name != nil {
		tv.Name = *name
	}
	if aspectRatio != nil {
		tv.AspectRatio = *aspectRatio
	}
	tv.UpdatedAt = s.now()
	s.tvs[id] = tv
	return nil
}

func (s *Store) DeleteTV(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tvs[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.tvs, id)
	delete(s.playback, id)
	for sid, sc := range s.schedules {
		if sc.TVID == id {
			delete(s.schedules, sid)
		}
	}
	return nil
}

func (s *Store) TouchTVByDeviceID(deviceID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tv, ok := s.findTV(deviceID)
	if !ok {
		return false, nil
	}
	now := s.now()
	tv.Status, tv.LastSeen = model.StatusOnline, &now
	s.tvs[tv.ID] = tv
	return true, nil
}

// videos

func (s *Store) CreateVideo(v *model.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	v.ID = s.nextID()
	v.CreatedAt, v.UpdatedAt = now, now
	s.videos[v.ID] = *v
	return nil
}

func (s *Store) GetVideoByID(id int) (*model.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &v, nil
}

func (s *Store) GetVideosByIDs(ids []int) ([]model.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[int]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := []model.Video{}
	for _, id := range sortedKeys(s.videos) {
		if want[id] {
			out = append(out, s.videos[id])
		}
	}
	return out, nil
}

func (s *Store) ListVideos() ([]model.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := sortedKeys(s.videos)
	out := make([]model.Video, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		out = append(out, s.videos[keys[i]])
	}
	return out, nil
}

func (s *Store) UpdateVideo(id int, name, url *string, duration *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[id]
	if !ok {
		return sql.ErrNoRows
	}
	if name != nil {
		v.Name = *name
	}
	if url != nil {
		v.URL = *url
	}
	if duration != nil {
		d := *duration
		v.Duration = &d
	}
	v.UpdatedAt = s.now()
	s.videos[id] = v
	return nil
}

func (s *Store) DeleteVideo(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.videos[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.videos, id)
	for sid, sc := range s.schedules {
		if sc.VideoID == id {
			delete(s.schedules, sid)
		}
	}
	return nil
}

func (s *Store) SetDurationByURL(url string, duration int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, v := range s.videos {
		matches := v.URL == url || (v.CDNURL != nil && *v.CDNURL == url) || (v.B2URL != nil && *v.B2URL == url)
		if !matches || (v.Duration != nil && *v.Duration != 0) {
			continue
		}
		d := duration
		v.Duration = &d
		v.UpdatedAt = s.now()
		s.videos[id] = v
		n++
	}
	return n, nil
}

// schedules

func (s *Store) CreateSchedules(rows []model.Schedule) ([]model.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		if _, ok := s.tvs[r.TVID]; !ok {
			return nil, db.ErrForeignKey
		}
		if _, ok := s.videos[r.VideoID]; !ok {
			return nil, db.ErrForeignKey
		}
	}
	now := s.now()
	out := make([]model.Schedule, 0, len(rows))
	for _, r := range rows {
		r.ID = s.nextID()
		r.CreatedAt = now
		s.schedules[r.ID] = r
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) GetSchedule(id int) (*model.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.schedules[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &sc, nil
}

func (s *Store) detail(sc model.Schedule) model.ScheduleDetail {
	d := model.ScheduleDetail{Schedule: sc}
	if tv, ok := s.tvs[sc.TVID]; ok {
		name := tv.Name
		d.TVName = &name
	}
	if v, ok := s.videos[sc.VideoID]; ok {
		name, url := v.Name, v.URL
		d.VideoName, d.VideoURL = &name, &url
	}
	return d
}

func (s *Store) ListSchedules() ([]model.ScheduleDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := sortedKeys(s.schedules)
	out := make([]model.ScheduleDetail, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		out = append(out, s.detail(s.schedules[keys[i]]))
	}
	return out, nil
}

func (s *Store) ListTVSchedules(tvID int) ([]model.ScheduleDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.ScheduleDetail{}
	for _, id := range sortedKeys(s.schedules) {
		if sc := s.schedules[id]; sc.TVID == tvID && sc.IsActive == 1 {
			out = append(out, s.detail(sc))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		if (a.SequenceOrder == nil) != (b.SequenceOrder == nil) {
			return a.SequenceOrder != nil
		}
		if a.SequenceOrder != nil && *a.SequenceOrder != *b.SequenceOrder {
			return *a.SequenceOrder < *b.SequenceOrder
		}
		return false
	})
	return out, nil
}

func (s *Store) ListActiveSchedulesForTV(tvID int) ([]model.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Schedule{}
	for _, id := range sortedKeys(s.schedules) {
		if sc := s.schedules[id]; sc.TVID == tvID && sc.IsActive == 1 {
			out = append(out, sc)
		}
	}
	return out, nil
}

func (s *Store) ListScheduleGroups() ([]model.ScheduleGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	index := map[model.GroupKey]int{}
	out := []model.ScheduleGroup{}
	for _, id := range sortedKeys(s.schedules) {
		sc := s.schedules[id]
		if !sc.InSequence() {
			continue
		}
		i, ok := index[sc.GroupKey()]
		if !ok {
			index[sc.GroupKey()] = len(out)
			out = append(out, model.ScheduleGroup{TVID: sc.TVID, StartTime: sc.StartTime, DayOfWeek: sc.DayOfWeek, FirstID: sc.ID})
			i = len(out) - 1
		}
		g := &out[i]
		g.Count++
		if sc.IsLoop > g.IsLoop {
			g.IsLoop = sc.IsLoop
		}
		if sc.EndTime != nil && (g.EndTime == nil || *sc.EndTime > *g.EndTime) {
			end := *sc.EndTime
			g.EndTime = &end
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.TVID != b.TVID {
			return a.TVID < b.TVID
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return day(a.DayOfWeek) < day(b.DayOfWeek)
	})
	return out, nil
}

func day(d *int) int {
	if d == nil {
		return -1
	}
	return *d
}

func (s *Store) DeleteSchedule(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.schedules[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.schedules, id)
	return nil
}

func (s *Store) DeleteScheduleGroup(id int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.schedules[id]
	if !ok {
		return 0, sql.ErrNoRows
	}
	if !sc.InSequence() {
		delete(s.schedules, id)
		return 1, nil
	}
	var n int64
	for sid, other := range s.schedules {
		if other.InSequence() && other.GroupKey() == sc.GroupKey() {
			delete(s.schedules, sid)
			n++
		}
	}
	return n, nil
}

func (s *Store) PlayNow(tvID, videoID int, startTime string, pausedUntil time.Time) (*model.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tvs[tvID]; !ok {
		return nil, db.ErrForeignKey
	}
	if _, ok := s.videos[videoID]; !ok {
		return nil, db.ErrForeignKey
	}
	for id, sc := range s.schedules {
		if sc.TVID != tvID || sc.IsActive != 1 {
			continue
		}
		sc.IsActive = 0
		if sc.IsImmediate == 1 {
			sc.PausedUntil = nil
		} else {
			until := pausedUntil
			sc.PausedUntil = &until
		}
		s.schedules[id] = sc
	}
	sc := model.Schedule{
		ID:          s.nextID(),
		TVID:        tvID,
		VideoID:     videoID,
		StartTime:   startTime,
		IsActive:    1,
		IsImmediate: 1,
		Priority:    999,
		CreatedAt:   s.now(),
	}
	s.schedules[sc.ID] = sc
	return &sc, nil
}

func (s *Store) devices(tvIDs map[int]bool) []string {
	out := []string{}
	for _, id := range sortedKeys(s.tvs) {
		if tvIDs[id] {
			out = append(out, s.tvs[id].DeviceID)
		}
	}
	return out
}

func (s *Store) ReactivatePausedSchedules(now time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	touched := map[int]bool{}
	for id, sc := range s.schedules {
		if sc.PausedUntil == nil || sc.PausedUntil.After(now) {
			continue
		}
		sc.IsActive, sc.PausedUntil = 1, nil
		s.schedules[id] = sc
		touched[sc.TVID] = true
	}
	return s.devices(touched), nil
}

func (s *Store) ExpireImmediateSchedules(createdBefore time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	touched := map[int]bool{}
	for id, sc := range s.schedules {
		if sc.IsImmediate != 1 || sc.IsActive != 1 || !sc.CreatedAt.Before(createdBefore) {
			continue
		}
		sc.IsActive = 0
		s.schedules[id] = sc
		touched[sc.TVID] = true
	}
	return s.devices(touched), nil
}

// playback

func (s *Store) RecordCurrentPlayback(tvID int, videoID *int, sequence []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tvs[tvID]; !ok {
		return db.ErrForeignKey
	}
	s.playback[tvID] = Playback{VideoID: videoID, Sequence: sequence}
	return nil
}

// CurrentPlayback returns the last recorded playback of a TV.
func (s *Store) CurrentPlayback(tvID int) (Playback, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.playback[tvID]
	return p, ok
}
