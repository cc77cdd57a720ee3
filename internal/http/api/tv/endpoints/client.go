package endpoints

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/prontotv/internal/content"
	"github.com/Nixie-Tech-LLC/prontotv/internal/http/api"
	"github.com/Nixie-Tech-LLC/prontotv/internal/http/api/tv/packets"
	"github.com/Nixie-Tech-LLC/prontotv/internal/model"
	"github.com/Nixie-Tech-LLC/prontotv/internal/redis"
	"github.com/Nixie-Tech-LLC/prontotv/internal/resolver"
)

// Store is the slice of the store the device endpoints need.
type Store interface {
	RegisterTV(deviceID, name string, version *string) (*model.TV, error)
	TouchTVByDeviceID(deviceID string) (bool, error)
	SetDurationByURL(url string, duration int) (int64, error)
}

// Resolver answers what a device should show at a given time.
type Resolver interface {
	ResolveDevice(deviceID string, now time.Time) (*resolver.Result, error)
}

// Cache holds rendered playback responses and throttles heartbeats.
type Cache interface {
	Get(ctx context.Context, deviceID, minute string) (redis.Entry, bool)
	Put(ctx context.Context, e redis.Entry, body []byte)
	Invalidate(ctx context.Context)
	ClaimHeartbeat(ctx context.Context, deviceID string) bool
}

type ClientController struct {
	store    Store
	resolver Resolver
	cache    Cache
	loc      *time.Location
	now      func() time.Time
}

func NewClientController(store Store, res Resolver, cache Cache, loc *time.Location) *ClientController {
	if loc == nil {
		loc = time.Local
	}
	return &ClientController{store: store, resolver: res, cache: cache, loc: loc, now: time.Now}
}

// ClientModule mounts the public endpoints players call.
func ClientModule(ctl *ClientController) api.Module {
	return api.ModuleFunc(func(c *api.Controller) {
		c.PUBLIC_GET("/health", ctl.health)
		c.PUBLIC_POST("/tvs/register", ctl.register)
		c.PUBLIC_GET("/client/playback/:device_id", ctl.playback)
		c.PUBLIC_POST("/client/videos/duration", ctl.reportDuration)
	})
}

// GET /api/health
func (c *ClientController) health(ctx *gin.Context) (any, *api.APIError) {
	return packets.HealthResponse{Status: "ok", Time: c.now().UTC().Format(time.RFC3339)}, nil
}

// GET /api/client/playback/:device_id
//
// Responses are cached per device for the current minute and carry an ETag;
// a matching If-None-Match gets 304. Every poll also counts as a heartbeat.
func (c *ClientController) playback(ctx *gin.Context) (any, *api.APIError) {
	deviceID := ctx.Param("device_id")
	reqCtx := ctx.Request.Context()
	now := c.now().In(c.loc)
	minute := now.Format("200601021504")

	c.heartbeat(reqCtx, deviceID)

	var entry redis.Entry
	hit := false
	if c.cache != nil {
		entry, hit = c.cache.Get(reqCtx, deviceID, minute)
	}
	body, etag := entry.Body, entry.ETag
	if !hit {
		res, err := c.resolver.ResolveDevice(deviceID, now)
		if err != nil {
			log.Error().Err(err).Str("device_id", deviceID).Msg("failed to resolve playback")
			return nil, api.Internal("failed to resolve playback")
		}
		var pb content.Playback
		if res != nil {
			w := res.Window
			pb = content.Playback{Content: res.Content, Schedule: &w}
		}
		if body, err = json.Marshal(pb); err != nil {
			log.Error().Err(err).Str("device_id", deviceID).Msg("failed to encode playback")
			return nil, api.Internal("failed to encode playback")
		}
		etag = redis.ETag(body)
		if c.cache != nil {
			c.cache.Put(reqCtx, entry, body)
		}
	}

	ctx.Header("ETag", etag)
	ctx.Header("Cache-Control", "no-cache")
	if match := ctx.GetHeader("If-None-Match"); match != "" && match == etag {
		ctx.Status(http.StatusNotModified)
		ctx.Writer.WriteHeaderNow()
		return nil, nil
	}
	ctx.Data(http.StatusOK, "application/json; charset=utf-8", body)
	return nil, nil
}

func (c *ClientController) heartbeat(ctx context.Context, deviceID string) {
	if c.cache != nil && !c.cache.ClaimHeartbeat(ctx, deviceID) {
		return
	}
	if _, err := c.store.TouchTVByDeviceID(deviceID); err != nil {
		log.Warn().Err(err).Str("device_id", deviceID).Msg("failed to record heartbeat")
	}
}

// POST /api/client/videos/duration stores a duration detected by a player
// for assets that have none yet.
func (c *ClientController) reportDuration(ctx *gin.Context) (any, *api.APIError) {
	var request packets.DurationRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	seconds := int(math.Floor(request.Duration))
	if seconds <= 0 {
		return nil, api.BadRequest("duration must be at least one second")
	}

	n, err := c.store.SetDurationByURL(request.VideoURL, seconds)
	if err != nil {
		log.Error().Err(err).Str("url", request.VideoURL).Msg("failed to store duration")
		return nil, api.Internal("failed to store duration")
	}
	if n > 0 {
		log.Info().Str("url", request.VideoURL).Int("duration", seconds).Int64("updated", n).Msg("video duration detected")
		if c.cache != nil {
			c.cache.Invalidate(ctx.Request.Context())
		}
	}
	return packets.DurationResponse{Success: true, Updated: n}, nil
}
