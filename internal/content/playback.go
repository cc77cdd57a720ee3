package content

import (
	"encoding/json"
)

// Window is the time range of the schedule that produced the content.
type Window struct {
	StartTime string  `json:"start_time"`
	EndTime   *string `json:"end_time"`
}

// Playback is the response to a device poll.
type Playback struct {
	Content  Descriptor
	Schedule *Window
}

type playbackWire struct {
	Content  json.RawMessage `json:"content"`
	Schedule *Window         `json:"schedule,omitempty"`
}

func (p Playback) MarshalJSON() ([]byte, error) {
	body, err := Marshal(p.Content)
	if err != nil {
		return nil, err
	}
	return json.Marshal(playbackWire{Content: body, Schedule: p.Schedule})
}

func (p *Playback) UnmarshalJSON(data []byte) error {
	var w playbackWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	d, err := Unmarshal(w.Content)
	if err != nil {
		return err
	}
	p.Content = d
	p.Schedule = w.Schedule
	return nil
}
