// Package telemetry relays live playback state between TVs and admin
// sessions over websockets, and pushes commands to TVs.
package telemetry

import "encoding/json"

const (
	EventTVRegister               = "tv-register"
	EventPlaybackUpdate           = "playback-update"
	EventPlaybackState            = "playback-state"
	EventAdminConnect             = "admin-connect"
	EventAllPlaybackStates        = "all-playback-states"
	EventRequestAllPlaybackStates = "request-all-playback-states"
	EventRequestPlaybackState     = "request-playback-state"
	EventTVPlaybackUpdate         = "tv-playback-update"
	EventStopPlayback             = "stop-playback"
	EventContentUpdate            = "content-update"
)

// RoomAdmins holds every admin session.
const RoomAdmins = "admins"

// TVRoom is the room a TV joins on tv-register.
func TVRoom(deviceID string) string {
	return "tv-" + deviceID
}

// Envelope is the frame exchanged on the socket.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope encodes data into an envelope for event.
func NewEnvelope(event string, data any) (Envelope, error) {
	env := Envelope{Event: event}
	if data == nil {
		return env, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	env.Data = raw
	return env, nil
}

type deviceRef struct {
	DeviceID string `json:"device_id"`
}

type adminHello struct {
	Token string `json:"token"`
}
