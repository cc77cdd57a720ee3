package resolver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/prontotv/internal/model"
)

// Source is the slice of the store the resolver needs.
type Source interface {
	GetTVByDeviceID(deviceID string) (*model.TV, error)
	ListActiveSchedulesForTV(tvID int) ([]model.Schedule, error)
	GetVideosByIDs(ids []int) ([]model.Video, error)
	RecordCurrentPlayback(tvID int, videoID *int, sequence []byte) error
}

type Service struct {
	src      Source
	rewrite  Rewriter
	location *time.Location
}

func NewService(src Source, rewrite Rewriter, location *time.Location) *Service {
	if location == nil {
		location = time.Local
	}
	return &Service{src: src, rewrite: rewrite, location: location}
}

// ResolveDevice loads the device's schedules and resolves them at now. An
// unknown device resolves to nil without error. Heartbeats are recorded by
// the caller.
func (s *Service) ResolveDevice(deviceID string, now time.Time) (*Result, error) {
	tv, err := s.src.GetTVByDeviceID(deviceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load tv: %w", err)
	}

	rows, err := s.src.ListActiveSchedulesForTV(tv.ID)
	if err != nil {
		return nil, fmt.Errorf("load schedules: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]int, 0, len(rows))
	seen := make(map[int]bool, len(rows))
	for _, r := range rows {
		if !seen[r.VideoID] {
			seen[r.VideoID] = true
			ids = append(ids, r.VideoID)
		}
	}
	videos, err := s.src.GetVideosByIDs(ids)
	if err != nil {
		return nil, fmt.Errorf("load videos: %w", err)
	}
	assets := make(map[int]model.Video, len(videos))
	for _, v := range videos {
		assets[v.ID] = v
	}

	res := Resolve(rows, assets, now.In(s.location), s.rewrite)
	if res == nil {
		return nil, nil
	}

	var seq []byte
	if res.Items != nil {
		if seq, err = json.Marshal(res.Items); err != nil {
			return nil, fmt.Errorf("encode sequence: %w", err)
		}
	}
	videoID := res.VideoID
	if err := s.src.RecordCurrentPlayback(tv.ID, &videoID, seq); err != nil {
		log.Warn().Err(err).Int("tv_id", tv.ID).Msg("failed to record current playback")
	}

	return res, nil
}
