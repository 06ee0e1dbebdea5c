// internal/pkg/jwt/loader.go
package jwt

import (
	"errors"
	"time"
)

// RefreshSecretSuffix is appended to the base secret to derive the refresh signing key.
const RefreshSecretSuffix = "_refresh"

// DefaultTTL is the lifetime of both access and refresh tokens.
const DefaultTTL = 24 * time.Hour

// ErrMissingSecret is returned when no signing secret is configured.
var ErrMissingSecret = errors.New("jwt: signing secret is not configured")

type Config struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type Manager struct {
	Generator *Generator
	Verifier  *Verifier
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock replaces the time source used for iat/exp and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.Generator.now = now
		m.Verifier.now = now
	}
}

// NewManager builds the generator/verifier pair. An empty secret is a configuration
// error rather than a silent fallback.
func NewManager(cfg Config, opts ...Option) (*Manager, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultTTL
	}

	accessKey := []byte(cfg.Secret)
	refreshKey := []byte(cfg.Secret + RefreshSecretSuffix)

	m := &Manager{
		Generator: NewGenerator(accessKey, refreshKey, cfg.AccessTTL, cfg.RefreshTTL),
		Verifier:  NewVerifier(accessKey, refreshKey),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}
