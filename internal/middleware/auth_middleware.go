// internal/middleware/auth_middleware.go
package middleware

import (
	"net/http"

	authDomain "calvino-service/internal/domain/auth"
	"calvino-service/internal/pkg/response"
	"calvino-service/internal/service/auth"

	"github.com/gin-gonic/gin"
)

const (
	ctxGuard     = "auth_guard"
	ctxUserID    = "user_id"
	ctxSessionID = "session_id"
	ctxRole      = "role"
)

// MsgUnauthenticated is the single message sent for any authentication failure.
const MsgUnauthenticated = "unauthenticated or invalid token"

// MsgAuthUnavailable is sent when the token could not be checked against storage.
const MsgAuthUnavailable = "authentication temporarily unavailable"

type AuthMiddleware struct {
	authService *auth.AuthService
}

func NewAuthMiddleware(authService *auth.AuthService) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
	}
}

// Auth resolves the caller and aborts with 401 when it is anonymous, or with 500
// when storage failed while checking the token.
func (m *AuthMiddleware) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		guard := m.attach(c)
		if err := guard.Err(ctx); err != nil {
			_ = c.Error(err)
			response.Error(c, http.StatusInternalServerError, MsgAuthUnavailable, nil)
			return
		}
		if !guard.Check(ctx) {
			response.Unauthorized(c, MsgUnauthenticated)
			return
		}
		setIdentity(c, guard)
		c.Next()
	}
}

// RequireRole requires the caller's role to be one of roles.
// MUST be used after Auth() middleware
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := GetRole(c)
		if !ok {
			response.Error(c, http.StatusForbidden, "authentication required", nil)
			return
		}
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		response.Forbidden(c, "insufficient permissions")
	}
}

// AdminOnly returns middlewares for admin-only routes (Auth + RequireRole)
func (m *AuthMiddleware) AdminOnly() []gin.HandlerFunc {
	return []gin.HandlerFunc{
		m.Auth(),
		m.RequireRole(authDomain.RoleAdmin),
	}
}

func (m *AuthMiddleware) attach(c *gin.Context) *auth.Guard {
	guard := m.authService.NewGuard(ExtractBearerToken(c.Request.Header))
	c.Set(ctxGuard, guard)
	return guard
}

func setIdentity(c *gin.Context, guard *auth.Guard) {
	ctx := c.Request.Context()
	user := guard.User(ctx)
	c.Set(ctxUserID, user.ID)
	c.Set(ctxRole, user.Role)
	if sess := guard.CurrentSession(ctx); sess != nil {
		c.Set(ctxSessionID, sess.SessionID)
	}
}
