package telemetry

import (
	"sort"
	"sync"

	"github.com/Nixie-Tech-LLC/prontotv/internal/model"
)

// StateStore keeps the latest playback state reported by each TV. Records
// outlive the connection that reported them.
type StateStore struct {
	mu     sync.RWMutex
	states map[string]model.PlaybackState
}

func NewStateStore() *StateStore {
	return &StateStore{states: make(map[string]model.PlaybackState)}
}

func (s *StateStore) Put(st model.PlaybackState) {
	s.mu.Lock()
	s.states[st.DeviceID] = st
	s.mu.Unlock()
}

func (s *StateStore) Get(deviceID string) (model.PlaybackState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[deviceID]
	return st, ok
}

// All returns every record ordered by device id.
func (s *StateStore) All() []model.PlaybackState {
	s.mu.RLock()
	out := make([]model.PlaybackState, 0, len(s.states))
	for _, st := range s.states {
		out = append(out, st)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out
}

// playbackUpdate is the inbound shape; missing fields take their defaults.
type playbackUpdate struct {
	DeviceID     string   `json:"device_id"`
	CurrentTime  *float64 `json:"currentTime"`
	VideoURL     *string  `json:"videoUrl"`
	VideoName    *string  `json:"videoName"`
	Duration     *float64 `json:"duration"`
	IsPlaying    *bool    `json:"isPlaying"`
	VideoIndex   *int     `json:"videoIndex"`
	TotalVideos  *int     `json:"totalVideos"`
	SequenceLoop *bool    `json:"sequenceLoop"`
}

func (u playbackUpdate) normalize(timestamp int64) model.PlaybackState {
	st := model.PlaybackState{DeviceID: u.DeviceID, TotalVideos: 1, Timestamp: timestamp}
	if u.CurrentTime != nil {
		st.CurrentTime = *u.CurrentTime
	}
	if u.VideoURL != nil {
		st.VideoURL = *u.VideoURL
	}
	if u.VideoName != nil {
		st.VideoName = *u.VideoName
	}
	if u.Duration != nil {
		st.Duration = *u.Duration
	}
	if u.IsPlaying != nil {
		st.IsPlaying = *u.IsPlaying
	}
	if u.VideoIndex != nil {
		st.VideoIndex = *u.VideoIndex
	}
	if u.TotalVideos != nil && *u.TotalVideos > 0 {
		st.TotalVideos = *u.TotalVideos
	}
	if u.SequenceLoop != nil {
		st.SequenceLoop = *u.SequenceLoop
	}
	return st
}
