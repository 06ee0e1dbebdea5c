// internal/pkg/jwt/generator.go
package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the subset of a user embedded in an access token.
type Identity struct {
	ID    int64
	Name  string
	Email string
	Role  string
}

type Generator struct {
	accessKey  []byte
	refreshKey []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	now        func() time.Time
}

func NewGenerator(accessKey, refreshKey []byte, accessTTL, refreshTTL time.Duration) *Generator {
	return &Generator{
		accessKey:  accessKey,
		refreshKey: refreshKey,
		AccessTTL:  accessTTL,
		RefreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// CreateToken issues an access token bound to sessionID. An empty sessionID yields
// a token without a sid claim.
func (g *Generator) CreateToken(id Identity, sessionID string) (string, error) {
	token, _, err := g.IssueToken(id, sessionID)
	return token, err
}

// IssueToken is CreateToken that also returns the signed claims.
func (g *Generator) IssueToken(id Identity, sessionID string) (string, *Claims, error) {
	now := g.now()
	claims := &Claims{
		UserID:    id.ID,
		Name:      id.Name,
		Email:     id.Email,
		Role:      id.Role,
		SessionID: sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(g.AccessTTL)),
	}
	token, err := g.sign(claims, g.accessKey)
	if err != nil {
		return "", nil, err
	}
	return token, claims, nil
}

// CreateRefreshToken issues a refresh token signed with the derived refresh key.
func (g *Generator) CreateRefreshToken(userID int64, sessionID string) (string, error) {
	now := g.now()
	claims := &Claims{
		UserID:    userID,
		Type:      TypeRefresh,
		SessionID: sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(g.RefreshTTL)),
	}
	return g.sign(claims, g.refreshKey)
}

func (g *Generator) sign(claims *Claims, key []byte) (string, error) {
	if len(key) == 0 {
		return "", fmt.Errorf("jwt generator has empty signing key")
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(key)
}
