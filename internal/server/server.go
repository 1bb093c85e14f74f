package server

import (
	"net/http"
	"sync"

	"make24/internal/config"
	"make24/internal/game"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	engine   *game.Engine
	cfg      config.Config
	sessions *sessionStore
	limiter  *rateLimiter
	upgrader websocket.Upgrader
	stop     chan struct{}
	stopOnce sync.Once
}

// New wires a server to engine and starts the timer heartbeat. Close stops it.
func New(engine *game.Engine, cfg config.Config) *Server {
	registerValidators()
	s := &Server{
		engine:   engine,
		cfg:      cfg,
		sessions: newSessionStore(),
		limiter:  newRateLimiter(cfg.CreateRoomRate, cfg.CreateRoomBurst),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		stop: make(chan struct{}),
	}
	engine.OnTransition(s.handleTransition)
	go s.runHeartbeat()
	return s
}

func (s *Server) Handler() http.Handler {
	if s.cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger())

	router.GET("/healthz", s.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.POST("/rooms", s.handleCreateRoom)
	api.GET("/rooms/:code", s.handleGetRoom)
	api.GET("/ws", s.handleWebsocket)
	return router
}

// Close stops the heartbeat and disconnects every client.
func (s *Server) Close() {
	s.stopOnce.Do(func() {
		close(s.stop)
		s.sessions.closeAll()
	})
}

// handleTransition fans out transitions the engine made on its own, such as
// a round ending on time.
func (s *Server) handleTransition(code, reason string, state *game.GameState) {
	s.broadcastState(code, state.Version, msgGameStateUpdate, state)
}
