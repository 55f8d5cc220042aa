// Package api assembles the HTTP surface hosts talk to.
package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kasuganosora/codepals/api/rest"
	"github.com/kasuganosora/codepals/api/sse"
	"github.com/kasuganosora/codepals/cache"
	"github.com/kasuganosora/codepals/config"
	"github.com/kasuganosora/codepals/engine"
	mw "github.com/kasuganosora/codepals/middleware"
	"github.com/kasuganosora/codepals/scheduler"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Engine    *engine.Engine
	Scheduler *scheduler.Scheduler
	Cache     cache.Cache
	PubSub    cache.PubSub
	Security  config.SecurityConfig
	Channel   string
	Logger    *zap.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	r := gin.New()
	r.Use(mw.TraceID())
	r.Use(mw.Recovery(d.Logger))
	r.Use(mw.Logger(d.Logger))
	r.Use(mw.IPWhitelist(d.Security.AllowedIPs))
	r.Use(mw.RateLimit(rate.Limit(d.Security.RateLimitRPS), d.Security.RateLimitBurst))

	admin := rest.NewAdminHandler(d.Scheduler, d.Cache, d.Security, d.Logger)
	r.GET("/api/health", admin.Health)

	game := rest.NewGameHandler(d.Engine, d.Logger)
	saves := rest.NewSaveHandler(d.Engine, d.Logger)
	notes := sse.NewHandler(d.PubSub, d.Cache, d.Security, d.Channel, d.Logger)

	// The SSE endpoint authenticates on its own so tokens can come in the query.
	r.GET("/api/notifications", notes.ServeSSE)

	authed := r.Group("/api", mw.Auth(d.Security, d.Cache))
	{
		authed.GET("/snapshot", game.Snapshot)
		authed.GET("/companions", game.Companions)
		authed.POST("/companions", game.Catch)
		authed.PUT("/companions/active", game.SetActive)
		authed.GET("/zones", game.Zones)
		authed.PUT("/zone", game.ChangeZone)
		authed.GET("/achievements", game.Achievements)
		authed.POST("/events/:kind", game.Event)

		authed.POST("/save", saves.Save)
		authed.GET("/save/info", saves.Info)
		authed.GET("/save/export", saves.Export)
		authed.POST("/save/import", saves.Import)
		authed.POST("/save/reset", saves.Reset)
		authed.GET("/journal", saves.Journal)

		authed.POST("/token/revoke", admin.Revoke)
	}
	return r
}
