package db

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/prontotv/internal/model"
)

const videoColumns = `id, name, url, b2_url, cdn_url, original_url, duration, type, display_mode, "interval", images, created_at, updated_at`

func (s *pgStore) CreateVideo(v *model.Video) error {
	if v.Images == nil {
		v.Images = pq.StringArray{}
	}
	err := s.db.Get(v, `
	INSERT INTO videos (name, url, b2_url, cdn_url, original_url, duration, type, display_mode, "interval", images, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
	RETURNING `+videoColumns+`;`,
		v.Name, v.URL, v.B2URL, v.CDNURL, v.OriginalURL, v.Duration, v.Type, v.DisplayMode, v.Interval, v.Images)
	if err != nil {
		log.Error().Err(err).Str("name", v.Name).Msg("failed to create video")
	}
	return err
}

func (s *pgStore) GetVideoByID(id int) (*model.Video, error) {
	var v model.Video
	if err := s.db.Get(&v, `SELECT `+videoColumns+` FROM videos WHERE id = $1;`, id); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Error().Err(err).Int("video_id", id).Msg("failed to get video")
		}
		return nil, err
	}
	return &v, nil
}

func (s *pgStore) GetVideosByIDs(ids []int) ([]model.Video, error) {
	videos := []model.Video{}
	if len(ids) == 0 {
		return videos, nil
	}
	if err := s.db.Select(&videos, `SELECT `+videoColumns+` FROM videos WHERE id = ANY($1);`, pq.Array(ids)); err != nil {
		log.Error().Err(err).Ints("video_ids", ids).Msg("failed to get videos")
		return nil, err
	}
	return videos, nil
}

// newest first
func (s *pgStore) ListVideos() ([]model.Video, error) {
	videos := []model.Video{}
	if err := s.db.Select(&videos, `SELECT `+videoColumns+` FROM videos ORDER BY created_at DESC, id DESC;`); err != nil {
		log.Error().Err(err).Msg("failed to list videos")
		return nil, err
	}
	return videos, nil
}

func (s *pgStore) UpdateVideo(id int, name, url *string, duration *int) error {
	res, err := s.db.Exec(`
	UPDATE videos
	SET name = COALESCE($2, name),
	url = COALESCE($3, url),
	duration = COALESCE($4, duration),
	updated_at = now()
	WHERE id = $1;`, id, name, url, duration)
	if err != nil {
		log.Error().Err(err).Int("video_id", id).Msg("failed to update video")
		return err
	}
	return expectRow(res)
}

func (s *pgStore) DeleteVideo(id int) error {
	res, err := s.db.Exec(`DELETE FROM videos WHERE id = $1;`, id)
	if err != nil {
		log.Error().Err(err).Int("video_id", id).Msg("failed to delete video")
		return err
	}
	return expectRow(res)
}

// SetDurationByURL fills in the duration of assets served from url that do
// not have one yet. Known durations are never overwritten.
func (s *pgStore) SetDurationByURL(url string, duration int) (int64, error) {
	res, err := s.db.Exec(`
	UPDATE videos
	SET duration = $2, updated_at = now()
	WHERE (url = $1 OR cdn_url = $1 OR b2_url = $1)
	  AND (duration IS NULL OR duration = 0);`, url, duration)
	if err != nil {
		log.Error().Err(err).Str("url", url).Msg("failed to set video duration")
		return 0, err
	}
	return res.RowsAffected()
}
