package packets

import (
	"time"

	"github.com/Nixie-Tech-LLC/prontotv/internal/model"
)

// TVResponse mirrors model.TV with the status derived from last_seen.
type TVResponse struct {
	ID          int        `json:"id"`
	DeviceID    string     `json:"device_id"`
	Name        string     `json:"name"`
	Status      string     `json:"status"`
	LastSeen    *time.Time `json:"last_seen"`
	AspectRatio string     `json:"aspect_ratio"`
	Version     *string    `json:"version,omitempty"`
	CreatedAt   string     `json:"created_at"`
	UpdatedAt   string     `json:"updated_at"`
}

func NewTVResponse(tv model.TV, now time.Time) TVResponse {
	return TVResponse{
		ID:          tv.ID,
		DeviceID:    tv.DeviceID,
		Name:        tv.Name,
		Status:      tv.EffectiveStatus(now),
		LastSeen:    tv.LastSeen,
		AspectRatio: tv.AspectRatio,
		Version:     tv.Version,
		CreatedAt:   tv.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   tv.UpdatedAt.Format(time.RFC3339),
	}
}

type ScheduleBatchResponse struct {
	Success   bool             `json:"success"`
	Count     int              `json:"count"`
	Schedules []model.Schedule `json:"schedules"`
}

type UploadResponse struct {
	Success bool    `json:"success"`
	URL     string  `json:"url"`
	B2URL   string  `json:"b2Url"`
	CDNURL  *string `json:"cdnUrl"`
	Key     string  `json:"key"`
	Name    string  `json:"name"`
	Size    int64   `json:"size"`
	Message string  `json:"message"`
}

type PlayResponse struct {
	Success    bool        `json:"success"`
	Video      model.Video `json:"video"`
	ScheduleID int         `json:"schedule_id"`
}
