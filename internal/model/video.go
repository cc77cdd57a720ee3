package model

import (
	"regexp"
	"time"

	"github.com/lib/pq"
)

const (
	TypeVideo = "video"
	TypeImage = "image"

	DisplayCarousel = "carousel"
	DisplayRandom   = "random"
)

var imageExt = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|webp|svg)$`)

// Video is a playable asset. Despite the name it also covers still images
// and image sets shown as a carousel or in random order.
type Video struct {
	ID          int            `db:"id"           json:"id"`
	Name        string         `db:"name"         json:"name"`
	URL         string         `db:"url"          json:"url"`
	B2URL       *string        `db:"b2_url"       json:"b2_url"`
	CDNURL      *string        `db:"cdn_url"      json:"cdn_url"`
	OriginalURL *string        `db:"original_url" json:"original_url"`
	Duration    *int           `db:"duration"     json:"duration"`
	Type        string         `db:"type"         json:"type"`
	DisplayMode *string        `db:"display_mode" json:"display_mode"`
	Interval    *int           `db:"interval"     json:"interval"`
	Images      pq.StringArray `db:"images"       json:"images"`
	CreatedAt   time.Time      `db:"created_at"   json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"   json:"updated_at"`
}

// InferType guesses the asset type from the URL extension.
func InferType(url string) string {
	if imageExt.MatchString(url) {
		return TypeImage
	}
	return TypeVideo
}

// EffectiveType returns the stored type, falling back to the URL extension.
func (v Video) EffectiveType() string {
	if v.Type == TypeVideo || v.Type == TypeImage {
		return v.Type
	}
	return InferType(v.URL)
}
