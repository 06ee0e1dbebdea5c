// internal/middleware/helpers.go
package middleware

import (
	authDomain "calvino-service/internal/domain/auth"
	"calvino-service/internal/service/auth"

	"github.com/gin-gonic/gin"
)

// GetGuard returns the request's guard set by Auth
func GetGuard(c *gin.Context) (*auth.Guard, bool) {
	v, exists := c.Get(ctxGuard)
	if !exists {
		return nil, false
	}
	g, ok := v.(*auth.Guard)
	return g, ok
}

// MustGetGuard gets the guard from context or panics
func MustGetGuard(c *gin.Context) *auth.Guard {
	g, ok := GetGuard(c)
	if !ok {
		panic("auth guard not found in context")
	}
	return g
}

// GetUserID returns the authenticated user's id
func GetUserID(c *gin.Context) (int64, bool) {
	v, exists := c.Get(ctxUserID)
	if !exists {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// MustGetUserID gets user ID from context or panics
func MustGetUserID(c *gin.Context) int64 {
	id, ok := GetUserID(c)
	if !ok {
		panic("user_id not found in context")
	}
	return id
}

// GetSessionID returns the current session id; empty for tokens without sid
func GetSessionID(c *gin.Context) string {
	return c.GetString(ctxSessionID)
}

func GetRole(c *gin.Context) (string, bool) {
	v, exists := c.Get(ctxRole)
	if !exists {
		return "", false
	}
	role, ok := v.(string)
	return role, ok
}

// IsAdmin checks if user is an admin
func IsAdmin(c *gin.Context) bool {
	role, _ := GetRole(c)
	return role == authDomain.RoleAdmin
}
