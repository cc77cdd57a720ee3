package db

import (
	"github.com/rs/zerolog/log"
)

// RecordCurrentPlayback remembers what was last handed to a TV.
func (s *pgStore) RecordCurrentPlayback(tvID int, videoID *int, sequence []byte) error {
	var seq any
	if sequence != nil {
		seq = string(sequence)
	}
	_, err := s.db.Exec(`
	INSERT INTO current_playback (tv_id, video_id, started_at, sequence)
	VALUES ($1, $2, now(), $3::jsonb)
	ON CONFLICT (tv_id) DO UPDATE
	SET started_at = CASE
	        WHEN current_playback.video_id IS DISTINCT FROM EXCLUDED.video_id
	          OR current_playback.sequence IS DISTINCT FROM EXCLUDED.sequence
	        THEN now() ELSE current_playback.started_at END,
	    video_id = EXCLUDED.video_id,
	    sequence = EXCLUDED.sequence;`, tvID, videoID, seq)
	if err != nil {
		log.Error().Err(err).Int("tv_id", tvID).Msg("failed to record current playback")
	}
	return err
}
