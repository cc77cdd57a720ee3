package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/prontotv/internal/http/middleware"
)

// Module is a pluggable feature that attaches its endpoints to a Controller (a gin group).
type Module interface {
	Mount(c *Controller)
}

// ModuleFunc lets you define a Module with a simple function.
type ModuleFunc func(c *Controller)

func (f ModuleFunc) Mount(c *Controller) { f(c) }

// GroupConfig tells the api package how to mount a group.
type GroupConfig struct {
	Prefix     string
	Auth       bool
	SecretKey  string               // required if Auth == true
	Users      middleware.UserLookup // required if Auth == true
	Middleware []gin.HandlerFunc    // optional additional middleware
}

// Controller registers module endpoints on one gin group. The unprefixed
// verbs require an authenticated user; PUBLIC_ verbs do not.
type Controller struct {
	Group *gin.RouterGroup
}

func (c *Controller) GET(path string, h HandlerFuncWithAuth, mw ...gin.HandlerFunc) {
	c.Group.GET(path, append(mw, ResolveEndpointWithAuth(h))...)
}

func (c *Controller) POST(path string, h HandlerFuncWithAuth, mw ...gin.HandlerFunc) {
	c.Group.POST(path, append(mw, ResolveEndpointWithAuth(h))...)
}

func (c *Controller) PUT(path string, h HandlerFuncWithAuth, mw ...gin.HandlerFunc) {
	c.Group.PUT(path, append(mw, ResolveEndpointWithAuth(h))...)
}

func (c *Controller) PATCH(path string, h HandlerFuncWithAuth, mw ...gin.HandlerFunc) {
	c.Group.PATCH(path, append(mw, ResolveEndpointWithAuth(h))...)
}

func (c *Controller) DELETE(path string, h HandlerFuncWithAuth, mw ...gin.HandlerFunc) {
	c.Group.DELETE(path, append(mw, ResolveEndpointWithAuth(h))...)
}

func (c *Controller) PUBLIC_GET(path string, h HandlerFunc) {
	c.Group.GET(path, ResolveEndpoint(h))
}

func (c *Controller) PUBLIC_POST(path string, h HandlerFunc) {
	c.Group.POST(path, ResolveEndpoint(h))
}

// MountGroup mounts one or more Modules under a prefix with optional auth.
func MountGroup(parent gin.IRoutes, cfg GroupConfig, modules ...Module) {
	var grp *gin.RouterGroup

	switch v := parent.(type) {
	case *gin.Engine:
		grp = v.Group(cfg.Prefix)
	case *gin.RouterGroup:
		if cfg.Prefix != "" {
			grp = v.Group(cfg.Prefix)
		} else {
			grp = v
		}
	default:
		log.Fatal().Str("type", fmt.Sprintf("%T", parent)).Msg("api.MountGroup: unsupported router type")
	}

	// Apply middleware in a deterministic order.
	for _, mw := range cfg.Middleware {
		grp.Use(mw)
	}
	if cfg.Auth {
		if cfg.SecretKey == "" || cfg.Users == nil {
			log.Fatal().Msg("api.MountGroup: Auth enabled but SecretKey or Users is missing")
		}
		grp.Use(middleware.JWTMiddleware(cfg.SecretKey, cfg.Users))
	}

	controller := &Controller{Group: grp}

	for _, m := range modules {
		m.Mount(controller)
	}
}
