package model

import (
	"encoding/json"
	"time"
)

// PlaybackState is the live telemetry record a TV reports about what it is
// currently playing. Field names follow the wire format used by admin clients.
type PlaybackState struct {
	DeviceID     string  `json:"device_id"`
	CurrentTime  float64 `json:"currentTime"`
	VideoURL     string  `json:"videoUrl"`
	VideoName    string  `json:"videoName"`
	Duration     float64 `json:"duration"`
	IsPlaying    bool    `json:"isPlaying"`
	VideoIndex   int     `json:"videoIndex"`
	TotalVideos  int     `json:"totalVideos"`
	SequenceLoop bool    `json:"sequenceLoop"`
	Timestamp    int64   `json:"timestamp"`
}

// CurrentPlayback is the server-side record of the last content handed to a TV.
type CurrentPlayback struct {
	TVID      int             `db:"tv_id"      json:"tv_id"`
	VideoID   *int            `db:"video_id"   json:"video_id"`
	StartedAt time.Time       `db:"started_at" json:"started_at"`
	Sequence  json.RawMessage `db:"sequence"   json:"sequence"`
}

// SequenceItem is one entry of CurrentPlayback.Sequence.
type SequenceItem struct {
	ID       int    `json:"id"`
	URL      string `json:"url"`
	Name     string `json:"name"`
	Duration *int   `json:"duration"`
}
