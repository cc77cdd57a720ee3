package endpoints

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/prontotv/internal/db"
	"github.com/Nixie-Tech-LLC/prontotv/internal/http/api"
	"github.com/Nixie-Tech-LLC/prontotv/internal/http/api/admin/control/packets"
	"github.com/Nixie-Tech-LLC/prontotv/internal/model"
)

type VideoController struct {
	store db.Store
	cdn   Rewriter
	hooks Hooks
}

func VideoModule(store db.Store, cdn Rewriter, hooks Hooks) api.Module {
	ctl := &VideoController{store: store, cdn: cdn, hooks: hooks}
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/videos", ctl.listVideos)
		c.POST("/videos", ctl.createVideo)
		c.GET("/videos/:id", ctl.getVideo)
		c.PATCH("/videos/:id", ctl.updateVideo)
		c.DELETE("/videos/:id", ctl.deleteVideo)
	})
}

// links fills the audit trail for url: the submitted url, the B2 origin and
// the CDN url when one applies. The returned url is what players fetch.
func links(cdn Rewriter, raw string) (url string, b2, cdnURL, original *string) {
	original = &raw
	b2 = &raw
	url = raw
	if cdn != nil {
		if rewritten := cdn.Rewrite(raw); rewritten != raw {
			cdnURL = &rewritten
			url = rewritten
		}
	}
	return url, b2, cdnURL, original
}

func (v *VideoController) present(video model.Video) model.Video {
	if v.cdn == nil {
		return video
	}
	video.URL = v.cdn.Rewrite(video.URL)
	if len(video.Images) > 0 {
		images := make([]string, len(video.Images))
		for i, u := range video.Images {
			images[i] = v.cdn.Rewrite(u)
		}
		video.Images = images
	}
	return video
}

// GET /api/videos
func (v *VideoController) listVideos(ctx *gin.Context, _ *model.User) (any, *api.APIError) {
	videos, err := v.store.ListVideos()
	if err != nil {
		return nil, storeError(err, "video")
	}
	out := make([]model.Video, 0, len(videos))
	for _, video := range videos {
		out = append(out, v.present(video))
	}
	return out, nil
}

// GET /api/videos/:id
func (v *VideoController) getVideo(ctx *gin.Context, _ *model.User) (any, *api.APIError) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return nil, api.BadRequest("invalid video id")
	}
	video, err := v.store.GetVideoByID(id)
	if err != nil {
		return nil, storeError(err, "video")
	}
	return v.present(*video), nil
}

// POST /api/videos
func (v *VideoController) createVideo(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	var request packets.CreateVideoRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, api.BadRequest(err.Error())
	}

	video := model.Video{
		Name:        request.Name,
		Duration:    request.Duration,
		DisplayMode: request.DisplayMode,
		Interval:    request.Interval,
		Images:      request.Images,
	}
	video.URL, video.B2URL, video.CDNURL, video.OriginalURL = links(v.cdn, request.URL)
	if request.Type != nil {
		video.Type = *request.Type
	} else {
		video.Type = model.InferType(request.URL)
	}
	if video.Images == nil {
		video.Images = []string{}
	}

	if err := v.store.CreateVideo(&video); err != nil {
		return nil, storeError(err, "video")
	}
	log.Info().Int("video_id", video.ID).Str("type", video.Type).Int("user_id", user.ID).Msg("video created")
	return video, nil
}

// PATCH /api/videos/:id
func (v *VideoController) updateVideo(ctx *gin.Context, _ *model.User) (any, *api.APIError) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return nil, api.BadRequest("invalid video id")
	}
	var request packets.UpdateVideoRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	if request.Name == nil && request.URL == nil && request.Duration == nil {
		return nil, api.BadRequest("nothing to update")
	}

	if err := v.store.UpdateVideo(id, request.Name, request.URL, request.Duration); err != nil {
		return nil, storeError(err, "video")
	}
	video, err := v.store.GetVideoByID(id)
	if err != nil {
		return nil, storeError(err, "video")
	}
	v.hooks.changed(ctx.Request.Context())
	return v.present(*video), nil
}

// DELETE /api/videos/:id
func (v *VideoController) deleteVideo(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return nil, api.BadRequest("invalid video id")
	}
	if err := v.store.DeleteVideo(id); err != nil {
		return nil, storeError(err, "video")
	}
	// schedules cascade, so any TV may be affected
	v.hooks.changed(ctx.Request.Context())

	log.Info().Int("video_id", id).Int("user_id", user.ID).Msg("video deleted")
	return gin.H{"success": true}, nil
}
