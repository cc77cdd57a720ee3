package model

import "time"

// Schedule places a video on a TV for a daily time window.
type Schedule struct {
	ID            int        `db:"id"             json:"id"`
	TVID          int        `db:"tv_id"          json:"tv_id"`
	VideoID       int        `db:"video_id"       json:"video_id"`
	StartTime     string     `db:"start_time"     json:"start_time"`
	EndTime       *string    `db:"end_time"       json:"end_time"`
	DayOfWeek     *int       `db:"day_of_week"    json:"day_of_week"`
	IsActive      int        `db:"is_active"      json:"is_active"`
	SequenceOrder *int       `db:"sequence_order" json:"sequence_order"`
	IsLoop        int        `db:"is_loop"        json:"is_loop"`
	IsImmediate   int        `db:"is_immediate"   json:"is_immediate"`
	Priority      int        `db:"priority"       json:"priority"`
	PausedUntil   *time.Time `db:"paused_until"   json:"paused_until"`
	CreatedAt     time.Time  `db:"created_at"     json:"created_at"`
}

// ScheduleDetail is a schedule joined with the names shown in listings.
type ScheduleDetail struct {
	Schedule
	TVName    *string `db:"tv_name"    json:"tv_name,omitempty"`
	VideoName *string `db:"video_name" json:"video_name"`
	VideoURL  *string `db:"video_url"  json:"video_url"`
}

// GroupKey identifies the sequence group a row belongs to.
type GroupKey struct {
	TVID      int
	StartTime string
	DayOfWeek int // -1 when the row applies to every day
}

func (s Schedule) GroupKey() GroupKey {
	day := -1
	if s.DayOfWeek != nil {
		day = *s.DayOfWeek
	}
	return GroupKey{TVID: s.TVID, StartTime: s.StartTime, DayOfWeek: day}
}

func (s Schedule) InSequence() bool {
	return s.SequenceOrder != nil
}

// ScheduleGroup summarises one sequence group for listings.
type ScheduleGroup struct {
	TVID      int     `db:"tv_id"       json:"tv_id"`
	StartTime string  `db:"start_time"  json:"start_time"`
	EndTime   *string `db:"end_time"    json:"end_time"`
	DayOfWeek *int    `db:"day_of_week" json:"day_of_week"`
	IsLoop    int     `db:"is_loop"     json:"is_loop"`
	Count     int     `db:"count"       json:"count"`
	FirstID   int     `db:"first_id"    json:"first_id"`
}
