// Package httpapi exposes the task services as a JSON API next to the gRPC
// server.
package httpapi

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gurkanbulca/teamportal/internal/middleware"
	"github.com/gurkanbulca/teamportal/internal/models"
	"github.com/gurkanbulca/teamportal/internal/service"
	"github.com/gurkanbulca/teamportal/pkg/auth"
)

// Server provides the HTTP handlers of the portal.
type Server struct {
	engine   *gin.Engine
	services *service.Services
	tokens   *auth.TokenManager
}

// New constructs the HTTP server with routes and middleware configured.
func New(services *service.Services, tokens *auth.TokenManager) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithWriter(gin.DefaultWriter, "/api/healthz"))

	srv := &Server{
		engine:   router,
		services: services,
		tokens:   tokens,
	}

	srv.registerRoutes()
	return srv
}

// Handler exposes the router.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	api.GET("/healthz", s.handleHealth)

	authed := api.Group("", s.requireAuth)
	{
		tasks := authed.Group("/tasks")
		{
			tasks.GET("", s.handleListTasks)
			tasks.POST("", s.handleCreateTask)
			tasks.GET(":id", s.handleGetTask)
			tasks.PUT(":id", s.handleUpdateTask)
			tasks.DELETE(":id", s.handleDeleteTask)
			tasks.POST(":id/status", s.handleTransition)
			tasks.GET(":id/completions", s.handleTaskCompletions)
		}

		users := authed.Group("/users")
		{
			users.GET(":id/statistics", s.handleUserStatistics)
			users.GET(":id/completions", s.handleUserCompletions)
		}

		authed.GET("/leaderboard", s.handleLeaderboard)
		authed.GET("/notifications", s.handleListNotifications)
		authed.POST("/notifications/:id/read", s.handleMarkRead)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// requireAuth validates the bearer token and stores the caller in the
// request context.
func (s *Server) requireAuth(c *gin.Context) {
	token, err := auth.ExtractTokenFromHeader(c.GetHeader("Authorization"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	c.Request = c.Request.WithContext(middleware.WithClaims(c.Request.Context(), claims))
	c.Next()
}

func actor(c *gin.Context) models.Actor {
	a, _ := middleware.ActorFromContext(c.Request.Context())
	return a
}

// queryInt reads an optional integer query parameter.
func queryInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return n, true
}

// respondError maps a domain error to an HTTP status.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, service.ErrInvalidTransition):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		log.Printf("[ERROR] %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
