package endpoints

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/prontotv/internal/db"
	"github.com/Nixie-Tech-LLC/prontotv/internal/http/api"
	"github.com/Nixie-Tech-LLC/prontotv/internal/http/api/admin/control/packets"
	"github.com/Nixie-Tech-LLC/prontotv/internal/model"
)

type TvController struct {
	store db.Store
	hooks Hooks
	now   func() time.Time
}

// TVModule mounts the authenticated /tvs endpoints. Registration is public
// and lives with the client endpoints.
func TVModule(store db.Store, hooks Hooks) api.Module {
	ctl := &TvController{store: store, hooks: hooks, now: time.Now}
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/tvs", ctl.listTVs)
		c.GET("/tvs/:id", ctl.getTV)
		c.PATCH("/tvs/:id", ctl.updateTV)
		c.DELETE("/tvs/:id", ctl.deleteTV)
	})
}

// GET /api/tvs
func (t *TvController) listTVs(ctx *gin.Context, _ *model.User) (any, *api.APIError) {
	tvs, err := t.store.ListTVs()
	if err != nil {
		return nil, storeError(err, "tv")
	}
	now := t.now()
	out := make([]packets.TVResponse, 0, len(tvs))
	for _, tv := range tvs {
		out = append(out, packets.NewTVResponse(tv, now))
	}
	return out, nil
}

// GET /api/tvs/:id
func (t *TvController) getTV(ctx *gin.Context, _ *model.User) (any, *api.APIError) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return nil, api.BadRequest("invalid tv id")
	}
	tv, err := t.store.GetTVByID(id)
	if err != nil {
		return nil, storeError(err, "tv")
	}
	return packets.NewTVResponse(*tv, t.now()), nil
}

// PATCH /api/tvs/:id
func (t *TvController) updateTV(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return nil, api.BadRequest("invalid tv id")
	}
	var request packets.UpdateTVRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	if request.Name == nil && request.AspectRatio == nil {
		return nil, api.BadRequest("name or aspect_ratio is required")
	}
	if request.Name != nil {
		name := strings.TrimSpace(*request.Name)
		if name == "" {
			return nil, api.BadRequest("name must not be empty")
		}
		request.Name = &name
	}
	if request.AspectRatio != nil && !model.ValidAspectRatio(*request.AspectRatio) {
		return nil, api.BadRequest("aspect_ratio must be 16:9 or 9:16")
	}

	if err := t.store.UpdateTV(id, request.Name, request.AspectRatio); err != nil {
		return nil, storeError(err, "tv")
	}
	tv, err := t.store.GetTVByID(id)
	if err != nil {
		return nil, storeError(err, "tv")
	}
	log.Info().Int("tv_id", id).Int("user_id", user.ID).Msg("tv updated")
	return packets.NewTVResponse(*tv, t.now()), nil
}

// DELETE /api/tvs/:id
func (t *TvController) deleteTV(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return nil, api.BadRequest("invalid tv id")
	}
	tv, err := t.store.GetTVByID(id)
	if err != nil {
		return nil, storeError(err, "tv")
	}
	if err := t.store.DeleteTV(id); err != nil {
		return nil, storeError(err, "tv")
	}
	t.hooks.changed(ctx.Request.Context(), tv.DeviceID)

	log.Info().Int("tv_id", id).Str("device_id", tv.DeviceID).Int("user_id", user.ID).Msg("tv deleted")
	return gin.H{"success": true}, nil
}
