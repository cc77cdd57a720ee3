package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/prontotv/internal/model"
)

const scheduleColumns = `id, tv_id, video_id, start_time, end_time, day_of_week, is_active, sequence_order, is_loop, is_immediate, priority, paused_until, created_at`

const scheduleDetailColumns = `s.id, s.tv_id, s.video_id, s.start_time, s.end_time, s.day_of_week, s.is_active,
	s.sequence_order, s.is_loop, s.is_immediate, s.priority, s.paused_until, s.created_at,
	t.name AS tv_name, v.name AS video_name, v.url AS video_url`

// CreateSchedules inserts rows in one transaction so a sequence group is
// never half written.
func (s *pgStore) CreateSchedules(rows []model.Schedule) ([]model.Schedule, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	out := make([]model.Schedule, 0, len(rows))
	for _, r := range rows {
		var created model.Schedule
		err := tx.Get(&created, `
		INSERT INTO schedules (tv_id, video_id, start_time, end_time, day_of_week, is_active,
		                       sequence_order, is_loop, is_immediate, priority, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		RETURNING `+scheduleColumns+`;`,
			r.TVID, r.VideoID, r.StartTime, r.EndTime, r.DayOfWeek, r.IsActive,
			r.SequenceOrder, r.IsLoop, r.IsImmediate, r.Priority)
		if err != nil {
			log.Error().Err(err).Int("tv_id", r.TVID).Int("video_id", r.VideoID).Msg("failed to create schedule")
			return nil, translate(err)
		}
		out = append(out, created)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return out, nil
}

func (s *pgStore) GetSchedule(id int) (*model.Schedule, error) {
	var sc model.Schedule
	if err := s.db.Get(&sc, `SELECT `+scheduleColumns+` FROM schedules WHERE id = $1;`, id); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Error().Err(err).Int("schedule_id", id).Msg("failed to get schedule")
		}
		return nil, err
	}
	return &sc, nil
}

// newest first, with tv and video names
func (s *pgStore) ListSchedules() ([]model.ScheduleDetail, error) {
	out := []model.ScheduleDetail{}
	err := s.db.Select(&out, `
	SELECT `+scheduleDetailColumns+`
	  FROM schedules s
	  LEFT JOIN tvs t ON t.id = s.tv_id
	  LEFT JOIN videos v ON v.id = s.video_id
	 ORDER BY s.created_at DESC, s.id DESC;`)
	if err != nil {
		log.Error().Err(err).Msg("failed to list schedules")
		return nil, err
	}
	return out, nil
}

// active rows of one TV ordered by start time
func (s *pgStore) ListTVSchedules(tvID int) ([]model.ScheduleDetail, error) {
	out := []model.ScheduleDetail{}
	err := s.db.Select(&out, `
	SELECT `+scheduleDetailColumns+`
	  FROM schedules s
	  LEFT JOIN tvs t ON t.id = s.tv_id
	  LEFT JOIN videos v ON v.id = s.video_id
	 WHERE s.tv_id = $1 AND s.is_active = 1
	 ORDER BY s.start_time, s.sequence_order NULLS LAST, s.id;`, tvID)
	if err != nil {
		log.Error().Err(err).Int("tv_id", tvID).Msg("failed to list tv schedules")
		return nil, err
	}
	return out, nil
}

// rows come back in id order so ties resolve to the oldest row
func (s *pgStore) ListActiveSchedulesForTV(tvID int) ([]model.Schedule, error) {
	out := []model.Schedule{}
	err := s.db.Select(&out, `SELECT `+scheduleColumns+` FROM schedules WHERE tv_id = $1 AND is_active = 1 ORDER BY id;`, tvID)
	if err != nil {
		log.Error().Err(err).Int("tv_id", tvID).Msg("failed to list active schedules")
		return nil, err
	}
	return out, nil
}

func (s *pgStore) ListScheduleGroups() ([]model.ScheduleGroup, error) {
	out := []model.ScheduleGroup{}
	err := s.db.Select(&out, `
	SELECT tv_id, start_time, MAX(end_time) AS end_time, day_of_week,
	       MAX(is_loop) AS is_loop, COUNT(*) AS count, MIN(id) AS first_id
	  FROM schedules
	 WHERE sequence_order IS NOT NULL
	 GROUP BY tv_id, start_time, day_of_week
	 ORDER BY tv_id, start_time, day_of_week NULLS FIRST;`)
	if err != nil {
		log.Error().Err(err).Msg("failed to list schedule groups")
		return nil, err
	}
	return out, nil
}

func (s *pgStore) DeleteSchedule(id int) error {
	res, err := s.db.Exec(`DELETE FROM schedules WHERE id = $1;`, id)
	if err != nil {
		log.Error().Err(err).Int("schedule_id", id).Msg("failed to delete schedule")
		return err
	}
	return expectRow(res)
}

// DeleteScheduleGroup deletes the row and, if it belongs to a sequence,
// every other row of its group.
func (s *pgStore) DeleteScheduleGroup(id int) (int64, error) {
	sc, err := s.GetSchedule(id)
	if err != nil {
		return 0, err
	}
	if !sc.InSequence() {
		if err := s.DeleteSchedule(id); err != nil {
			return 0, err
		}
		return 1, nil
	}

	res, err := s.db.Exec(`
	DELETE FROM schedules
	 WHERE tv_id = $1
	   AND start_time = $2
	   AND day_of_week IS NOT DISTINCT FROM $3
	   AND sequence_order IS NOT NULL;`, sc.TVID, sc.StartTime, sc.DayOfWeek)
	if err != nil {
		log.Error().Err(err).Int("schedule_id", id).Msg("failed to delete schedule group")
		return 0, err
	}
	return res.RowsAffected()
}

// PlayNow pauses a TV's schedule and inserts an immediate row on top of it.
// Earlier immediate rows are retired rather than paused.
func (s *pgStore) PlayNow(tvID, videoID int, startTime string, pausedUntil time.Time) (*model.Schedule, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
	UPDATE schedules SET is_active = 0, paused_until = NULL
	 WHERE tv_id = $1 AND is_immediate = 1 AND is_active = 1;`, tvID); err != nil {
		return nil, fmt.Errorf("retire immediate schedules: %w", err)
	}
	if _, err := tx.Exec(`
	UPDATE schedules SET is_active = 0, paused_until = $2
	 WHERE tv_id = $1 AND is_active = 1;`, tvID, pausedUntil); err != nil {
		return nil, fmt.Errorf("pause schedules: %w", err)
	}

	var sc model.Schedule
	err = tx.Get(&sc, `
	INSERT INTO schedules (tv_id, video_id, start_time, end_time, day_of_week, is_active,
	                       sequence_order, is_loop, is_immediate, priority, created_at)
	VALUES ($1, $2, $3, NULL, NULL, 1, NULL, 0, 1, 999, now())
	RETURNING `+scheduleColumns+`;`, tvID, videoID, startTime)
	if err != nil {
		return nil, fmt.Errorf("insert immediate schedule: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &sc, nil
}

// ReactivatePausedSchedules resumes schedules whose pause has run out and
// returns the affected device ids.
func (s *pgStore) ReactivatePausedSchedules(now time.Time) ([]string, error) {
	devices := []string{}
	err := s.db.Select(&devices, `
	WITH resumed AS (
	    UPDATE schedules SET is_active = 1, paused_until = NULL
	     WHERE paused_until IS NOT NULL AND paused_until <= $1
	    RETURNING tv_id
	)
	SELECT DISTINCT t.device_id FROM tvs t JOIN resumed r ON r.tv_id = t.id;`, now)
	if err != nil {
		log.Error().Err(err).Msg("failed to reactivate paused schedules")
		return nil, err
	}
	return devices, nil
}

// ExpireImmediateSchedules retires immediate rows created before the cutoff
// and returns the affected device ids.
func (s *pgStore) ExpireImmediateSchedules(createdBefore time.Time) ([]string, error) {
	devices := []string{}
	err := s.db.Select(&devices, `
	WITH expired AS (
	    UPDATE schedules SET is_active = 0
	     WHERE is_immediate = 1 AND is_active = 1 AND created_at < $1
	    RETURNING tv_id
	)
	SELECT DISTINCT t.device_id FROM tvs t JOIN expired e ON e.tv_id = t.id;`, createdBefore)
	if err != nil {
		log.Error().Err(err).Msg("failed to expire immediate schedules")
		return nil, err
	}
	return devices, nil
}
