// internal/service/auth/guard.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"calvino-service/internal/domain/auth"
	xerrors "calvino-service/internal/pkg/errors"
	"calvino-service/internal/pkg/jwt"
	pkgsession "calvino-service/internal/pkg/session"

	"go.uber.org/zap"
)

var newSessionID = pkgsession.NewSessionID

// Guard identifies the caller of a single request. It starts unresolved, and the
// first accessor call settles it as either anonymous or authenticated. The outcome
// is cached for the guard's lifetime.
type Guard struct {
	svc   *AuthService
	token string

	once    sync.Once
	user    *auth.User
	session *auth.UserSession
	claims  *jwt.Claims
	err     error
}

// NewGuard creates an unresolved guard for the given bearer token. An empty
// token yields an anonymous guard.
func (s *AuthService) NewGuard(token string) *Guard {
	return &Guard{svc: s, token: token}
}

// User returns the authenticated user, or nil for an anonymous caller.
func (g *Guard) User(ctx context.Context) *auth.User {
	g.once.Do(func() { g.resolve(ctx) })
	return g.user
}

// Check reports whether the caller is authenticated.
func (g *Guard) Check(ctx context.Context) bool {
	return g.User(ctx) != nil
}

// CurrentSession returns the session bound to the token, or nil when the caller
// is anonymous or the token carries no sid.
func (g *Guard) CurrentSession(ctx context.Context) *auth.UserSession {
	g.once.Do(func() { g.resolve(ctx) })
	return g.session
}

// Err returns the storage error that stopped resolution, if any. A guard with a
// non-nil Err is anonymous, but the caller could not be checked rather than
// being rejected.
func (g *Guard) Err(ctx context.Context) error {
	g.once.Do(func() { g.resolve(ctx) })
	return g.err
}

// Claims returns the verified token claims of an authenticated caller.
func (g *Guard) Claims(ctx context.Context) *jwt.Claims {
	g.once.Do(func() { g.resolve(ctx) })
	return g.claims
}

func (g *Guard) resolve(ctx context.Context) {
	if g.token == "" {
		return
	}

	claims, ok := g.svc.jwtManager.Verifier.Decode(g.token)
	if !ok {
		return
	}

	log := g.svc.logger.With(zap.Int64("user_id", claims.UserID), zap.String("session_id", claims.SessionID))

	user, err := g.svc.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if !errors.Is(err, xerrors.ErrNotFound) {
			log.Error("failed to load token user", zap.Error(err))
			g.err = fmt.Errorf("failed to load token user: %w", err)
		}
		return
	}

	if g.svc.cfg.RejectInactiveUsers && !user.IsActive {
		return
	}

	var sess *auth.UserSession
	if claims.HasSession() {
		sess, err = g.svc.sessions.FindBySessionID(ctx, claims.SessionID)
		if err != nil {
			if !errors.Is(err, xerrors.ErrNotFound) {
				log.Error("failed to load token session", zap.Error(err))
				g.err = fmt.Errorf("failed to load token session: %w", err)
			}
			return
		}
		if !sess.IsActive || sess.UserID != user.ID {
			log.Debug("token bound to revoked session")
			return
		}
		if err := g.svc.sessions.UpdateActivity(ctx, sess); err != nil {
			log.Warn("failed to update session activity", zap.Error(err))
		}
	}

	g.user = user
	g.session = sess
	g.claims = claims
}
