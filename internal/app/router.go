// internal/app/router.go
package app

import (
	"context"
	"net/http"
	"time"

	authHandler "calvino-service/internal/handlers/auth"
	wsHandler "calvino-service/internal/handlers/websocket"
	"calvino-service/internal/middleware"
	"calvino-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handlers struct {
	AuthHandler    *authHandler.AuthHandler
	WSHandler      *wsHandler.WebSocketHandler
	AuthMiddleware *middleware.AuthMiddleware
	DB             Pinger
}

func SetupRouter(r *gin.Engine, h *Handlers) {
	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "route not found")
	})

	api := r.Group("/api/v1")

	// ==================== Health Check ====================
	api.GET("/health", healthCheck(h.DB))

	// ==================== WebSocket ====================
	r.GET("/ws", h.WSHandler.HandleConnection)

	// ==================== Public Auth Routes ====================
	authPublic := api.Group("/auth")
	{
		authPublic.POST("/register", h.AuthHandler.Register)
		authPublic.POST("/login", h.AuthHandler.Login)
		authPublic.POST("/refresh", h.AuthHandler.Refresh)
	}

	// ==================== Authenticated Auth Routes ====================
	authProtected := api.Group("/auth")
	authProtected.Use(h.AuthMiddleware.Auth())
	{
		authProtected.GET("/me", h.AuthHandler.Me)
		authProtected.POST("/logout", h.AuthHandler.Logout)
		authProtected.POST("/logout-others", h.AuthHandler.LogoutOthers)
		authProtected.GET("/sessions", h.AuthHandler.Sessions)
	}

	// ==================== ADMIN ROUTES ====================
	admin := api.Group("/admin")
	admin.Use(h.AuthMiddleware.AdminOnly()...)
	{
		admin.GET("/ws/stats", h.WSHandler.GetStats)
	}
}

func healthCheck(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				response.Error(c, http.StatusServiceUnavailable, "database unavailable", err)
				return
			}
		}
		response.Success(c, http.StatusOK, "ok", gin.H{"status": "ok", "version": "1.0.0"})
	}
}
