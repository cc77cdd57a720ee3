package model

import "time"

const (
	StatusOnline  = "online"
	StatusOffline = "offline"

	AspectLandscape = "16:9"
	AspectPortrait  = "9:16"
)

// OnlineWindow is how long after its last heartbeat a TV still counts as online.
const OnlineWindow = 2 * time.Minute

// TV represents a registered display device.
type TV struct {
	ID          int        `db:"id"           json:"id"`
	DeviceID    string     `db:"device_id"    json:"device_id"`
	Name        string     `db:"name"         json:"name"`
	Status      string     `db:"status"       json:"status"`
	LastSeen    *time.Time `db:"last_seen"    json:"last_seen"`
	AspectRatio string     `db:"aspect_ratio" json:"aspect_ratio"`
	Version     *string    `db:"version"      json:"version,omitempty"`
	CreatedAt   time.Time  `db:"created_at"   json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"   json:"updated_at"`
}

// EffectiveStatus derives online/offline from last_seen instead of trusting
// the stored status, which is never flipped back to offline by the server.
func (t TV) EffectiveStatus(now time.Time) string {
	if t.LastSeen == nil {
		return StatusOffline
	}
	if now.Sub(*t.LastSeen) < OnlineWindow {
		return StatusOnline
	}
	return StatusOffline
}

// DefaultTVName is the name given to a device that registers without one.
func DefaultTVName(deviceID string) string {
	suffix := deviceID
	if len(suffix) > 6 {
		suffix = suffix[len(suffix)-6:]
	}
	return "TV-" + suffix
}

func ValidAspectRatio(ratio string) bool {
	return ratio == AspectLandscape || ratio == AspectPortrait
}
