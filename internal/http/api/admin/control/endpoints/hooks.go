package endpoints

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/prontotv/internal/db"
	"github.com/Nixie-Tech-LLC/prontotv/internal/http/api"
)

// Notifier pushes commands to connected TVs.
type Notifier interface {
	ContentUpdate(deviceIDs ...string)
	StopPlayback(deviceID string)
}

// Invalidator drops cached playback responses.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// Rewriter maps stored asset URLs to the URLs players should fetch.
type Rewriter interface {
	Rewrite(raw string) string
}

// Hooks bundles the side effects of content mutations.
type Hooks struct {
	Notifier Notifier
	Cache    Invalidator
}

// changed invalidates cached playback and tells the given TVs to poll. With
// no device ids every connected TV is told.
func (h Hooks) changed(ctx context.Context, deviceIDs ...string) {
	if h.Cache != nil {
		h.Cache.Invalidate(ctx)
	}
	if h.Notifier != nil {
		h.Notifier.ContentUpdate(deviceIDs...)
	}
}

// storeError maps a store failure to 404 for missing rows and 500 otherwise.
func storeError(err error, what string) *api.APIError {
	if errors.Is(err, sql.ErrNoRows) {
		return api.NotFound(what + " not found")
	}
	if errors.Is(err, db.ErrForeignKey) {
		return api.BadRequest("referenced tv or video does not exist")
	}
	log.Error().Err(err).Str("entity", what).Msg("store failure")
	return api.Internal("internal server error")
}
