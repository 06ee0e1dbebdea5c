// internal/pkg/jwt/claims.go
package jwt

import (
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// TypeRefresh marks the payload of a refresh token.
	TypeRefresh = "refresh"
)

// Claims is the payload shared by access and refresh tokens. Access tokens carry
// the denormalized display fields (name, email, role); refresh tokens carry Type
// instead.
type Claims struct {
	UserID    int64            `json:"sub"`
	Name      string           `json:"name,omitempty"`
	Email     string           `json:"email,omitempty"`
	Role      string           `json:"role,omitempty"`
	Type      string           `json:"type,omitempty"`
	SessionID string           `json:"sid,omitempty"`
	IssuedAt  *jwt.NumericDate `json:"iat,omitempty"`
	ExpiresAt *jwt.NumericDate `json:"exp,omitempty"`
}

var _ jwt.Claims = (*Claims)(nil)

// IsRefresh reports whether the claims belong to a refresh token.
func (c *Claims) IsRefresh() bool {
	return c.Type == TypeRefresh
}

// HasSession reports whether the token is bound to a server-side session.
func (c *Claims) HasSession() bool {
	return c.SessionID != ""
}

func (c *Claims) GetExpirationTime() (*jwt.NumericDate, error) { return c.ExpiresAt, nil }
func (c *Claims) GetIssuedAt() (*jwt.NumericDate, error)       { return c.IssuedAt, nil }
func (c *Claims) GetNotBefore() (*jwt.NumericDate, error)      { return nil, nil }
func (c *Claims) GetIssuer() (string, error)                   { return "", nil }
func (c *Claims) GetAudience() (jwt.ClaimStrings, error)       { return nil, nil }

func (c *Claims) GetSubject() (string, error) {
	return strconv.FormatInt(c.UserID, 10), nil
}
