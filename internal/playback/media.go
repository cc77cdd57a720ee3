package playback

import (
	"context"

	"github.com/Nixie-Tech-LLC/prontotv/internal/content"
	"github.com/Nixie-Tech-LLC/prontotv/internal/model"
)

// VideoSource is one video handed to the media binding. Token identifies the
// source in the events the binding reports back.
type VideoSource struct {
	Token    uint64
	URL      string
	Name     string
	Muted    bool
	Start    float64 // seconds
	Duration float64 // seconds, 0 when the server does not know it yet
}

// Events receives what a media binding observes about the current source.
// *Controller implements it.
type Events interface {
	VideoEnded(token uint64)
	VideoFailed(token uint64, err error)
	MetadataLoaded(token uint64, duration float64)
}

// Media renders content. Calls are made with the controller lock held and
// must not block; events (ended, failed, metadata) are delivered later
// through the Controller's methods, never from inside a Media call.
type Media interface {
	PlayVideo(src VideoSource)
	Restart()
	Seek(seconds float64)
	Resume()
	Paused() bool
	Position() (current, duration float64)

	ShowImage(url, name string)
	ShowCarouselImage(index int, url string, total int)

	ShowWaiting(msg string)
	ShowError(msg string)
	HideError()
	SetConnected(ok bool)
	Stop()
}

// Fetched is the result of a playback poll. NotModified means the server
// confirmed the ETag the player sent.
type Fetched struct {
	Playback    content.Playback
	ETag        string
	NotModified bool
}

// API is the server the player talks to.
type API interface {
	Register(ctx context.Context, deviceID, name, version string) error
	FetchPlayback(ctx context.Context, deviceID, etag string) (Fetched, error)
	Health(ctx context.Context) error
	ReportDuration(ctx context.Context, url string, seconds int) error
}

// Reporter publishes live playback state.
type Reporter interface {
	Report(state model.PlaybackState)
}

var _ Events = (*Controller)(nil)
