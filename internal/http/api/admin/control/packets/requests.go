package packets

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Flag is a 0/1 column that clients may also send as a JSON boolean.
type Flag int

func (f *Flag) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "true", "1":
		*f = 1
	case "false", "0", "null":
		*f = 0
	default:
		var n int
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("expected boolean or 0/1, got %s", data)
		}
		if n != 0 {
			*f = 1
		} else {
			*f = 0
		}
	}
	return nil
}

type UpdateTVRequest struct {
	Name        *string `json:"name"`
	AspectRatio *string `json:"aspect_ratio"`
}

type CreateVideoRequest struct {
	Name        string   `json:"name" binding:"required"`
	URL         string   `json:"url" binding:"required"`
	Duration    *int     `json:"duration" binding:"omitempty,min=0"`
	Type        *string  `json:"type" binding:"omitempty,oneof=video image"`
	Images      []string `json:"images"`
	DisplayMode *string  `json:"display_mode" binding:"omitempty,oneof=carousel random"`
	Interval    *int     `json:"interval" binding:"omitempty,min=1"`
}

type UpdateVideoRequest struct {
	Name     *string `json:"name"`
	URL      *string `json:"url"`
	Duration *int    `json:"duration" binding:"omitempty,min=0"`
}

type CreateScheduleRequest struct {
	TVID          int     `json:"tv_id" binding:"required"`
	VideoID       int     `json:"video_id" binding:"required"`
	StartTime     string  `json:"start_time" binding:"required"`
	EndTime       *string `json:"end_time"`
	DayOfWeek     *int    `json:"day_of_week" binding:"omitempty,min=0,max=6"`
	Days          []int   `json:"days" binding:"omitempty,dive,min=0,max=6"`
	IsActive      *Flag   `json:"is_active"`
	SequenceOrder *int    `json:"sequence_order" binding:"omitempty,min=0"`
	IsLoop        *Flag   `json:"is_loop"`
}

type CreateSequenceRequest struct {
	TVID      int     `json:"tv_id" binding:"required"`
	VideoIDs  []int   `json:"video_ids" binding:"required,min=1"`
	StartTime string  `json:"start_time" binding:"required"`
	EndTime   *string `json:"end_time"`
	Days      []int   `json:"days" binding:"omitempty,dive,min=0,max=6"`
	IsActive  *Flag   `json:"is_active"`
	IsLoop    *Flag   `json:"is_loop"`
}
