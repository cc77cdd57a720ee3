package endpoints

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/prontotv/internal/content"
	"github.com/Nixie-Tech-LLC/prontotv/internal/db"
	"github.com/Nixie-Tech-LLC/prontotv/internal/http/api"
	"github.com/Nixie-Tech-LLC/prontotv/internal/http/api/admin/control/packets"
	"github.com/Nixie-Tech-LLC/prontotv/internal/model"
	"github.com/Nixie-Tech-LLC/prontotv/internal/sweeper"
)

// StateSource exposes the last playback report of every TV.
type StateSource interface {
	All() []model.PlaybackState
}

type LiveController struct {
	store  db.Store
	states StateSource
	hooks  Hooks
	loc    *time.Location
	now    func() time.Time
}

// LiveModule mounts live view and remote control endpoints.
func LiveModule(store db.Store, states StateSource, hooks Hooks, loc *time.Location) api.Module {
	if loc == nil {
		loc = time.Local
	}
	ctl := &LiveController{store: store, states: states, hooks: hooks, loc: loc, now: time.Now}
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/live/states", ctl.listStates)
		c.POST("/client/play/:device_id", ctl.playNow)
		c.POST("/client/stop/:device_id", ctl.stop)
	})
}

// GET /api/live/states
func (l *LiveController) listStates(ctx *gin.Context, _ *model.User) (any, *api.APIError) {
	if l.states == nil {
		return []model.PlaybackState{}, nil
	}
	return l.states.All(), nil
}

type playRequest struct {
	VideoID int `json:"video_id" binding:"required"`
}

// POST /api/client/play/:device_id
func (l *LiveController) playNow(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	deviceID := ctx.Param("device_id")
	var request playRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, api.BadRequest(err.Error())
	}

	tv, err := l.store.GetTVByDeviceID(deviceID)
	if err != nil {
		return nil, storeError(err, "tv")
	}
	video, err := l.store.GetVideoByID(request.VideoID)
	if err != nil {
		return nil, storeError(err, "video")
	}

	now := l.now().In(l.loc)
	sc, err := l.store.PlayNow(tv.ID, video.ID, content.FormatClock(content.ClockOf(now)), now.Add(sweeper.PauseWindow))
	if err != nil {
		return nil, storeError(err, "schedule")
	}
	l.hooks.changed(ctx.Request.Context(), tv.DeviceID)

	log.Info().Str("device_id", deviceID).Int("video_id", video.ID).Int("schedule_id", sc.ID).Int("user_id", user.ID).Msg("play now")
	return packets.PlayResponse{Success: true, Video: *video, ScheduleID: sc.ID}, nil
}

// POST /api/client/stop/:device_id
func (l *LiveController) stop(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	deviceID := ctx.Param("device_id")
	if _, err := l.store.GetTVByDeviceID(deviceID); err != nil {
		return nil, storeError(err, "tv")
	}
	if l.hooks.Notifier != nil {
		l.hooks.Notifier.StopPlayback(deviceID)
	}
	log.Info().Str("device_id", deviceID).Int("user_id", user.ID).Msg("stop playback")
	return gin.H{"success": true}, nil
}
