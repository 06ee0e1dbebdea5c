// internal/handlers/websocket/websocket.go
package websocket

import (
	"errors"
	"net/http"
	"time"

	"calvino-service/internal/middleware"
	"calvino-service/internal/pkg/response"
	ws "calvino-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type WebSocketHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWebSocketHandler accepts upgrades from allowedOrigins; an empty list or "*"
// accepts any origin.
func NewWebSocketHandler(hub *ws.Hub, allowedOrigins []string, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 || (len(allowed) == 1 && allowed[0] == "*") {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// HandleConnection authenticates with the same bearer rules as the REST API,
// falling back to a ?token= query parameter for browsers.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	token := middleware.ExtractBearerToken(c.Request.Header)
	if token == "" {
		token = c.Query("token")
	}
	if token == "" {
		response.Unauthorized(c, middleware.MsgUnauthenticated)
		return
	}

	auth, err := h.hub.AuthenticateClient(c.Request.Context(), token)
	if errors.Is(err, ws.ErrUnauthorized) {
		h.logger.Info("websocket authentication failed", zap.String("ip", c.ClientIP()))
		response.Unauthorized(c, middleware.MsgUnauthenticated)
		return
	}
	if err != nil {
		h.logger.Error("websocket authentication unavailable", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, middleware.MsgAuthUnavailable, nil)
		return
	}
	auth.IPAddress = c.ClientIP()
	auth.UserAgent = c.GetHeader("User-Agent")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err), zap.String("ip", c.ClientIP()))
		return
	}

	client := ws.NewClient(h.hub, conn, auth)
	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}

// GetStats returns WebSocket connection statistics (admin only)
func (h *WebSocketHandler) GetStats(c *gin.Context) {
	response.Success(c, http.StatusOK, "WebSocket stats", gin.H{
		"stats":     h.hub.Stats(),
		"timestamp": time.Now(),
	})
}
