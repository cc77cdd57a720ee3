package main

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Nixie-Tech-LLC/prontotv/internal/db"
	"github.com/Nixie-Tech-LLC/prontotv/internal/http/api"
	authapi "github.com/Nixie-Tech-LLC/prontotv/internal/http/api/admin/auth/endpoints"
	adminapi "github.com/Nixie-Tech-LLC/prontotv/internal/http/api/admin/control/endpoints"
	clientapi "github.com/Nixie-Tech-LLC/prontotv/internal/http/api/tv/endpoints"
	"github.com/Nixie-Tech-LLC/prontotv/internal/storage"
	"github.com/Nixie-Tech-LLC/prontotv/internal/telemetry"
)

// Services is everything the routes are built from.
type Services struct {
	Store   db.Store
	Storage storage.Storage
	CDN     storage.CDN
	Hooks   adminapi.Hooks
	Hub     *telemetry.Hub
	Client  *clientapi.ClientController
}

// RegisterRoutes sets up all application routes
func RegisterRoutes(r *gin.Engine, env Environment, svc Services) {
	// CORS
	r.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool { return true },
		AllowMethods: []string{
			"GET",
			"POST",
			"PUT",
			"PATCH",
			"DELETE",
			"OPTIONS",
			"HEAD",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Authorization",
			"Accept",
			"If-None-Match",
		},
		ExposeHeaders: []string{
			"Content-Length",
			"ETag",
		},
		AllowCredentials: false,
	}))

	api.MountGroup(r, api.GroupConfig{
		Prefix: "/api/admin",
		Auth:   false,
	},
		authapi.AuthPublicModule(env.SecretKey, env.SuperAdmins, svc.Store),
	)

	api.MountGroup(r, api.GroupConfig{
		Prefix:    "/api/admin",
		Auth:      true,
		SecretKey: env.SecretKey,
		Users:     svc.Store,
	},
		authapi.AuthSessionModule(env.SecretKey, svc.Store),
	)

	api.MountGroup(r, api.GroupConfig{
		Prefix:    "/api",
		Auth:      true,
		SecretKey: env.SecretKey,
		Users:     svc.Store,
	},
		authapi.UserModule(svc.Store),
		adminapi.TVModule(svc.Store, svc.Hooks),
		adminapi.VideoModule(svc.Store, svc.CDN, svc.Hooks),
		adminapi.ScheduleModule(svc.Store, svc.Hooks),
		adminapi.UploadModule(svc.Storage, svc.CDN),
		adminapi.LiveModule(svc.Store, svc.Hub.States(), svc.Hooks, env.Timezone),
	)

	// device endpoints
	api.MountGroup(r, api.GroupConfig{
		Prefix: "/api",
	},
		clientapi.ClientModule(svc.Client),
	)

	r.GET("/ws", svc.Hub.Handler())

	// Static content
	if env.StorageBackend == "local" {
		r.Static("/uploads", env.UploadDir)
	}
}
