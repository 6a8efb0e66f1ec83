package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/kvchat/internal/config"
	"github.com/vovakirdan/kvchat/internal/core"
	"github.com/vovakirdan/kvchat/internal/state"
)

// NewServer builds the local UI gateway: REST endpoints for session and
// bookkeeping operations plus a websocket that streams poll snapshots.
func NewServer(session *core.Session, st state.Store, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	handlers := NewAPIHandlers(session, st, logger)

	router.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})

	api := router.Group("/api")
	{
		api.GET("/status", handlers.Status)
		api.GET("/messages", handlers.Messages)
		api.POST("/messages", handlers.Send)
		api.POST("/share", handlers.Share)
		api.GET("/rooms", handlers.ListRooms)
		api.POST("/rooms", handlers.CreateRoom)
		api.POST("/rooms/join", handlers.JoinRoom)
		api.POST("/rooms/switch", handlers.SwitchRoom)
		api.DELETE("/rooms/:id", handlers.RemoveRoom)
		api.GET("/username", handlers.Username)
		api.PUT("/username", handlers.SetUsername)
	}

	router.GET("/ws", gin.WrapH(NewWSHandler(session, logger)))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
