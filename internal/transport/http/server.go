package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/murmur/internal/config"
	"github.com/vovakirdan/murmur/internal/core"
	"github.com/vovakirdan/murmur/internal/store"
)

// Deps are the collaborators the request layer needs.
type Deps struct {
	Chat  *core.Chat
	Rooms store.RoomStore
}

// NewServer builds an HTTP server serving the REST API and the WebSocket endpoint.
func NewServer(deps Deps, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(deps, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewRouter registers all routes on a fresh gin engine.
func NewRouter(deps Deps, cfg *config.Config, logger *zerolog.Logger) *gin.Engine {
	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		logger.Warn().Err(err).Strs("trusted_proxies", cfg.TrustedProxies).Msg("invalid trusted proxies, trusting none")
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(gin.Recovery(), LoggerMiddleware(logger), CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler)

	messages := NewMessageHandlers(deps.Chat, deps.Rooms, logger)
	rooms := NewRoomHandlers(deps.Rooms, logger)
	ws := NewWSHandler(deps.Chat, WSOptions{
		AllowedOrigins: cfg.AllowedOrigins,
		InboundRate:    cfg.Chat.InboundRate,
		InboundBurst:   cfg.Chat.InboundBurst,
		MaxFrameBytes:  cfg.Chat.MaxFrameBytes,
	}, logger)

	api := r.Group("/api", SessionMiddleware())
	{
		api.GET("/messages", messages.ListMessages)
		api.GET("/messages/:roomId", messages.ListRoomMessages)
		api.POST("/messages", messages.CreateMessage)
		api.GET("/ip", messages.ShowIP)
		api.GET("/rooms", rooms.ListRooms)
		api.POST("/rooms", rooms.CreateRoom)
	}

	r.GET("/ws", ws.Handle)

	return r
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
