// Package api serves the read-side HTTP surface next to the game protocol:
// auth endpoints, the open-room list and the leaderboard.
package api

import (
	"github.com/beka-birhanu/gridhunt-server/api/i"
	"github.com/gin-gonic/gin"
)

// Router owns the gin engine and mounts every controller twice: once on the
// public group and once behind the authorization middleware.
type Router struct {
	addr                    string
	baseURL                 string
	mode                    string
	controllers             []i.Controller
	authorizationMiddleware gin.HandlerFunc
}

// Config holds configuration settings for creating a new Router instance.
type Config struct {
	Addr                    string // Address to listen on
	BaseURL                 string // Base URL for API routes
	Mode                    string // gin mode: release, debug or test
	Controllers             []i.Controller
	AuthorizationMiddleware gin.HandlerFunc
}

// NewRouter creates a new Router instance with the given configuration.
func NewRouter(config Config) *Router {
	return &Router{
		addr:                    config.Addr,
		baseURL:                 config.BaseURL,
		mode:                    config.Mode,
		controllers:             config.Controllers,
		authorizationMiddleware: config.AuthorizationMiddleware,
	}
}

// Run starts the HTTP server. Routes live under <baseURL>/v1; a controller
// decides per route whether it registers publicly or behind authorization.
func (r *Router) Run() error {
	if r.mode != "" {
		gin.SetMode(r.mode)
	}
	gin.ForceConsoleColor()
	engine := gin.Default()

	public := engine.Group(r.baseURL + "/v1")
	for _, c := range r.controllers {
		c.RegisterPublic(public)
	}

	protected := engine.Group(r.baseURL + "/v1")
	protected.Use(r.authorizationMiddleware)
	for _, c := range r.controllers {
		c.RegisterProtected(protected)
	}

	return engine.Run(r.addr)
}
