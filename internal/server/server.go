package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ambassador-chat/config"
	"ambassador-chat/internal/handler"
	"ambassador-chat/internal/middleware"
	"ambassador-chat/internal/services"
	"ambassador-chat/internal/transport/httpdto"
	"ambassador-chat/internal/websocket"
	"ambassador-chat/pkg/database"
	"ambassador-chat/pkg/logger"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
	db         *gorm.DB
}

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

type Handlers struct {
	Rooms    *handler.RoomHandler
	Messages *handler.MessageHandler
	Presence *handler.PresenceHandler
	Socket   *websocket.Handler
}

func New(cfg *config.Config, l *logger.Logger, db *gorm.DB) *Server {
	if cfg.AppMode == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.AppMode == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%s", cfg.AppPort),
			Handler: engine,
		},
		engine: engine,
		config: cfg,
		logger: l,
		db:     db,
	}
}

func (s *Server) SetupRoutes(handlers *Handlers, tokens *services.TokenVerifier) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.CORSMiddleware())
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})

	s.engine.GET("/health", func(c *gin.Context) {
		if err := database.HealthCheck(s.db); err != nil {
			c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse(err.Error(), "UNHEALTHY"))
			return
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "healthy"}))
	})

	auth := middleware.AuthMiddleware(tokens)

	rooms := s.engine.Group("/v1/rooms", auth)
	{
		rooms.POST("/private", handlers.Rooms.CreatePrivate)
		rooms.POST("/group", handlers.Rooms.CreateGroup)
		rooms.GET("", handlers.Rooms.List)
		rooms.GET("/:id", handlers.Rooms.GetByID)
		rooms.DELETE("/:id", handlers.Rooms.Delete)
		rooms.GET("/:id/membership", handlers.Rooms.Membership)
		rooms.POST("/:id/participants", handlers.Rooms.AddParticipant)
		rooms.DELETE("/:id/participants/:userId", handlers.Rooms.RemoveParticipant)
		rooms.POST("/:id/messages", handlers.Messages.Send)
		rooms.GET("/:id/messages", handlers.Messages.List)
		rooms.POST("/:id/typing", handlers.Presence.Heartbeat)
	}

	// The socket authenticates with a token query parameter because
	// browsers cannot set headers on websocket upgrades.
	s.engine.GET("/ws", handlers.Socket.Connect)
}

func (s *Server) Start() error {
	go func() {
		if s.logger != nil {
			s.logger.Infof("Starting the server on port %s...", s.config.AppPort)
		}
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Errorf("Error in starting the server: %s", err)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	if s.logger != nil {
		s.logger.Infof("Server is running on :%s", s.config.AppPort)
	}

	<-quit

	if s.logger != nil {
		s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		if s.logger != nil {
			s.logger.Infof("Error in the graceful shutdown of the server: %s", err)
		}
		return err
	}

	if s.logger != nil {
		s.logger.Infof("Server stopped gracefully")
	}

	return nil
}
