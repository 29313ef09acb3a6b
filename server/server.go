// Package server is the request/response bridge between the UI and the core:
// every route maps 1:1 to a repository or gamification call.
package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/existflow/tasknest/internal/gamify"
	"github.com/existflow/tasknest/internal/logger"
	"github.com/existflow/tasknest/internal/notify"
	"github.com/existflow/tasknest/internal/repo"
	"github.com/existflow/tasknest/internal/storage"
)

// Server is the command/query facade
type Server struct {
	repo   *repo.Repository
	engine *gamify.Engine
	files  storage.Store
	hub    *notify.Hub
	echo   *echo.Echo
}

// New creates a server over the core components
func New(r *repo.Repository, engine *gamify.Engine, files storage.Store, hub *notify.Hub) *Server {
	s := &Server{
		repo:   r,
		engine: engine,
		files:  files,
		hub:    hub,
	}
	s.setupEcho()
	return s
}

func (s *Server) setupEcho() {
	e := echo.New()
	e.HideBanner = true

	// Custom logging middleware
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			err := next(c)

			res := c.Response()
			logger.Info("HTTP request",
				logger.F("method", req.Method),
				logger.F("uri", req.RequestURI),
				logger.F("status", res.Status),
				logger.F("duration", time.Since(start).String()))

			return err
		}
	})

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORS())

	// Health check
	e.GET("/health", s.handleHealth)

	// API v1
	api := e.Group("/api/v1")

	api.GET("/tasks", s.handleListTasks)
	api.GET("/tasks/search", s.handleSearchTasks)
	api.POST("/tasks", s.handleCreateTask)
	api.GET("/tasks/:id", s.handleGetTask)
	api.PATCH("/tasks/:id", s.handleUpdateTask)
	api.DELETE("/tasks/:id", s.handleDeleteTask)

	api.POST("/tasks/:id/entries", s.handleAddEntry)
	api.PATCH("/entries/:id", s.handleEditEntry)
	api.DELETE("/entries/:id", s.handleDeleteEntry)

	api.POST("/tasks/:id/attachments", s.handleAttachFile)
	api.POST("/tasks/:id/paste-image", s.handlePasteImage)

	api.GET("/stats", s.handleStats)
	api.GET("/events", s.handleEvents)

	s.echo = e
}

// Router returns the HTTP handler
func (s *Server) Router() http.Handler {
	return s.echo
}

// Start starts the server
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Close shuts the listener down
func (s *Server) Close() error {
	return s.echo.Close()
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
