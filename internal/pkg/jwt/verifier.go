// internal/pkg/jwt/verifier.go
package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Verifier struct {
	accessKey  []byte
	refreshKey []byte
	now        func() time.Time
}

func NewVerifier(accessKey, refreshKey []byte) *Verifier {
	return &Verifier{
		accessKey:  accessKey,
		refreshKey: refreshKey,
		now:        time.Now,
	}
}

// Decode verifies an access token. Every failure (bad structure, undecodable
// payload, expired, wrong signature) returns ok=false with no further detail.
func (v *Verifier) Decode(token string) (*Claims, bool) {
	return v.parse(token, v.accessKey)
}

// DecodeRefresh verifies a refresh token against the refresh key and requires
// the refresh type marker.
func (v *Verifier) DecodeRefresh(token string) (*Claims, bool) {
	claims, ok := v.parse(token, v.refreshKey)
	if !ok || !claims.IsRefresh() {
		return nil, false
	}
	return claims, true
}

func (v *Verifier) parse(token string, key []byte) (*Claims, bool) {
	if token == "" || len(key) == 0 {
		return nil, false
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
	)

	claims := &Claims{}
	tok, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return key, nil
	})
	if err != nil || !tok.Valid {
		return nil, false
	}
	return claims, true
}
