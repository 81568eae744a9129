// Package http is the query surface: room listing, session endpoints, the
// login flow and the websocket upgrade route.
package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/skyrc/skyrc/internal/adapters/signal"
	"github.com/skyrc/skyrc/internal/app"
	"github.com/skyrc/skyrc/internal/auth"
	"github.com/skyrc/skyrc/internal/config"
)

type Deps struct {
	Sessions  *app.SessionStore
	Directory *app.Directory
	Provider  auth.Provider
	Signal    *signal.Controller
	Metrics   http.Handler
}

func SetupRouter(ctx context.Context, cfg *config.Config, d Deps) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("skyrc", store))

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	// Any other path is a room page; the client joins over the websocket.
	r.NoRoute(func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	api.GET("/rooms", handleListRooms(d.Directory))

	ah := &authHandler{
		sessions:   d.Sessions,
		provider:   d.Provider,
		sessionTTL: cfg.Session.AbsoluteTTL,
		secureMode: cfg.Mode == "release",
	}
	authAPI := api.Group("/auth")
	authAPI.GET("/login", ah.login)
	authAPI.GET("/callback", ah.callback)
	authAPI.GET("/session/:id", ah.getSession)
	authAPI.POST("/session/:id/refresh", ah.refreshSession)
	authAPI.POST("/logout/:id", ah.logout)

	api.GET("/ws", func(c *gin.Context) {
		d.Signal.HandleChat(ctx, c)
	})

	return r
}

func handleListRooms(dir *app.Directory) gin.HandlerFunc {
	return func(c *gin.Context) {
		rooms := dir.ListForClients()
		c.JSON(http.StatusOK, gin.H{
			"rooms": rooms,
			"count": len(rooms),
		})
	}
}
