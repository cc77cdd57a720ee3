package db

import (
	"database/sql"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/prontotv/internal/model"
)

const tvColumns = `id, device_id, name, status, last_seen, aspect_ratio, version, created_at, updated_at`

// RegisterTV inserts a new device or heartbeats an existing one. An existing
// non-empty name always wins over the one sent by the device.
func (s *pgStore) RegisterTV(deviceID, name string, version *string) (*model.TV, error) {
	var tv model.TV
	err := s.db.Get(&tv, `
	INSERT INTO tvs (device_id, name, status, last_seen, version, created_at, updated_at)
	VALUES ($1, $2, 'online', now(), $3, now(), now())
	ON CONFLICT (device_id) DO UPDATE
	SET name = CASE WHEN tvs.name IS NULL OR tvs.name = '' THEN EXCLUDED.name ELSE tvs.name END,
	    status = 'online',
	    last_seen = now(),
	    version = COALESCE(EXCLUDED.version, tvs.version),
	    updated_at = now()
	RETURNING `+tvColumns+`;`, deviceID, name, version)
	if err != nil {
		log.Error().Err(err).Str("device_id", deviceID).Msg("failed to register tv")
		return nil, err
	}
	return &tv, nil
}

func (s *pgStore) GetTVByID(id int) (*model.TV, error) {
	var tv model.TV
	if err := s.db.Get(&tv, `SELECT `+tvColumns+` FROM tvs WHERE id = $1;`, id); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Error().Err(err).Int("tv_id", id).Msg("failed to get tv by id")
		}
		return nil, err
	}
	return &tv, nil
}

func (s *pgStore) GetTVByDeviceID(deviceID string) (*model.TV, error) {
	var tv model.TV
	if err := s.db.Get(&tv, `SELECT `+tvColumns+` FROM tvs WHERE device_id = $1;`, deviceID); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Error().Err(err).Str("device_id", deviceID).Msg("failed to get tv by device id")
		}
		return nil, err
	}
	return &tv, nil
}

// newest first
func (s *pgStore) ListTVs() ([]model.TV, error) {
	tvs := []model.TV{}
	if err := s.db.Select(&tvs, `SELECT `+tvColumns+` FROM tvs ORDER BY created_at DESC, id DESC;`); err != nil {
		log.Error().Err(err).Msg("failed to list tvs")
		return nil, err
	}
	return tvs, nil
}

func (s *pgStore) UpdateTV(id int, name, aspectRatio *string) error {
	res, err := s.db.Exec(`
	UPDATE tvs
	SET name = COALESCE($2, name),
	aspect_ratio = COALESCE($3, aspect_ratio),
	updated_at = now()
	WHERE id = $1;`, id, name, aspectRatio)
	if err != nil {
		log.Error().Err(err).Int("tv_id", id).Msg("failed to update tv")
		return err
	}
	return expectRow(res)
}

// schedules and current playback go with it via ON DELETE CASCADE
func (s *pgStore) DeleteTV(id int) error {
	res, err := s.db.Exec(`DELETE FROM tvs WHERE id = $1;`, id)
	if err != nil {
		log.Error().Err(err).Int("tv_id", id).Msg("failed to delete tv")
		return err
	}
	return expectRow(res)
}

// TouchTVByDeviceID records a heartbeat. It reports false for unknown devices.
func (s *pgStore) TouchTVByDeviceID(deviceID string) (bool, error) {
	res, err := s.db.Exec(`UPDATE tvs SET status = 'online', last_seen = now() WHERE device_id = $1;`, deviceID)
	if err != nil {
		log.Error().Err(err).Str("device_id", deviceID).Msg("failed to record heartbeat")
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
