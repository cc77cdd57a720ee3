package packets

// REQUESTS FOR /api/tvs/register and /api/client/*
type RegisterRequest struct {
	DeviceID string  `json:"device_id" binding:"required"`
	Name     string  `json:"name"`
	Version  *string `json:"version"`
}

type DurationRequest struct {
	VideoURL string  `json:"video_url" binding:"required"`
	Duration float64 `json:"duration" binding:"required,gt=0"`
}
