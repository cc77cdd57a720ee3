package endpoints

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/prontotv/internal/http/api"
	"github.com/Nixie-Tech-LLC/prontotv/internal/http/api/admin/control/packets"
	"github.com/Nixie-Tech-LLC/prontotv/internal/model"
	"github.com/Nixie-Tech-LLC/prontotv/internal/storage"
)

type UploadController struct {
	storage storage.Storage
	cdn     Rewriter
	now     func() time.Time
}

func UploadModule(store storage.Storage, cdn Rewriter) api.Module {
	ctl := &UploadController{storage: store, cdn: cdn, now: time.Now}
	return api.ModuleFunc(func(c *api.Controller) {
		c.POST("/upload", ctl.upload)
		c.GET("/b2/files", ctl.listFiles)
		c.DELETE("/b2/files/*key", ctl.deleteFile)
	})
}

// POST /api/upload
func (u *UploadController) upload(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, storage.MaxUploadSize+(1<<20))

	fh, err := ctx.FormFile("video")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &api.APIError{Code: http.StatusRequestEntityTooLarge, Message: "file exceeds 500MB limit"}
		}
		return nil, api.BadRequest("no file uploaded")
	}
	if fh.Size > storage.MaxUploadSize {
		return nil, &api.APIError{Code: http.StatusRequestEntityTooLarge, Message: "file exceeds 500MB limit"}
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = storage.ContentType(fh.Filename)
	}
	if !storage.Allowed(contentType) {
		return nil, api.BadRequest(storage.ErrUnsupportedType.Error())
	}

	file, err := fh.Open()
	if err != nil {
		return nil, api.Internal("could not read upload")
	}
	defer file.Close()

	name := ctx.PostForm("name")
	key := storage.ObjectKey(ctx.DefaultPostForm("folder", "videos"), name, fh.Filename, u.now())

	obj, err := u.storage.Upload(ctx.Request.Context(), key, file, fh.Size, contentType)
	if err != nil {
		log.Error().Err(err).Str("key", key).Int("user_id", user.ID).Msg("upload failed")
		return nil, api.Internal("failed to upload file")
	}

	resp := packets.UploadResponse{
		Success: true,
		URL:     obj.URL,
		B2URL:   obj.URL,
		Key:     obj.Key,
		Name:    name,
		Size:    obj.Size,
		Message: "File uploaded successfully",
	}
	if resp.Name == "" {
		resp.Name = fh.Filename
	}
	if u.cdn != nil {
		if rewritten := u.cdn.Rewrite(obj.URL); rewritten != obj.URL {
			resp.URL = rewritten
			resp.CDNURL = &rewritten
		}
	}

	log.Info().Str("key", obj.Key).Int64("size", obj.Size).Str("content_type", contentType).Int("user_id", user.ID).Msg("file uploaded")
	return resp, nil
}

// GET /api/b2/files?folder=
func (u *UploadController) listFiles(ctx *gin.Context, _ *model.User) (any, *api.APIError) {
	objects, err := u.storage.List(ctx.Request.Context(), ctx.Query("folder"))
	if err != nil {
		log.Error().Err(err).Msg("failed to list files")
		return nil, api.Internal("failed to list files")
	}
	if objects == nil {
		objects = []storage.Object{}
	}
	return objects, nil
}

// DELETE /api/b2/files/:key where key may contain slashes or be URL-encoded.
func (u *UploadController) deleteFile(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	key, err := url.PathUnescape(strings.TrimPrefix(ctx.Param("key"), "/"))
	if err != nil || key == "" {
		return nil, api.BadRequest("invalid key")
	}
	if err := u.storage.Delete(ctx.Request.Context(), key); err != nil {
		log.Error().Err(err).Str("key", key).Msg("failed to delete file")
		return nil, api.Internal("failed to delete file")
	}
	log.Info().Str("key", key).Int("user_id", user.ID).Msg("file deleted")
	return gin.H{"success": true, "key": key}, nil
}
