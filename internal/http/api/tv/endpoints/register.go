package endpoints

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/prontotv/internal/http/api"
	"github.com/Nixie-Tech-LLC/prontotv/internal/http/api/tv/packets"
	"github.com/Nixie-Tech-LLC/prontotv/internal/model"
)

// POST /api/tvs/register
func (c *ClientController) register(ctx *gin.Context) (any, *api.APIError) {
	var request packets.RegisterRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, api.BadRequest("device_id is required")
	}
	deviceID := strings.TrimSpace(request.DeviceID)
	if deviceID == "" {
		return nil, api.BadRequest("device_id is required")
	}
	name := strings.TrimSpace(request.Name)
	if name == "" {
		name = model.DefaultTVName(deviceID)
	}

	tv, err := c.store.RegisterTV(deviceID, name, request.Version)
	if err != nil {
		log.Error().Err(err).Str("device_id", deviceID).Msg("registration failed")
		return nil, api.Internal("registration failed")
	}
	log.Info().Str("device_id", deviceID).Int("tv_id", tv.ID).Str("name", tv.Name).Msg("tv registered")

	tv.Status = tv.EffectiveStatus(c.now())
	return tv, nil
}
