// internal/service/session/session.go
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"calvino-service/internal/domain/auth"
	xerrors "calvino-service/internal/pkg/errors"
	pkgsession "calvino-service/internal/pkg/session"

	"go.uber.org/zap"
)

// Locator resolves a client IP into a display location. An empty result means unknown.
type Locator interface {
	FormattedLocation(ctx context.Context, ip string) string
}

// Notifier is told about revoked sessions so connected clients can be signed out.
type Notifier interface {
	SessionRevoked(userID int64, sessionID, reason string)
}

const (
	ReasonLogout       = "logout"
	ReasonLogoutOthers = "logged out from another session"
)

type SessionService struct {
	repo     auth.SessionRepository
	locator  Locator
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewSessionService(repo auth.SessionRepository, locator Locator, notifier Notifier, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		repo:     repo,
		locator:  locator,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateSession records a new active session. An empty sessionID gets a fresh
// random one. Location comes from extra.Location when set, otherwise from the
// locator, falling back to auth.DefaultLocation.
func (s *SessionService) CreateSession(
	ctx context.Context,
	userID int64,
	token, refreshToken, sessionID string,
	extra auth.SessionExtra,
) (*auth.UserSession, error) {
	if sessionID == "" {
		id, err := pkgsession.NewSessionID()
		if err != nil {
			return nil, fmt.Errorf("failed to generate session id: %w", err)
		}
		sessionID = id
	}

	device := pkgsession.ParseUserAgent(extra.UserAgent)

	location := extra.Location
	if location == "" && s.locator != nil {
		location = s.locator.FormattedLocation(ctx, extra.IPAddress)
	}
	if location == "" {
		location = auth.DefaultLocation
	}

	sess := &auth.UserSession{
		UserID:       userID,
		SessionID:    sessionID,
		Token:        token,
		RefreshToken: refreshToken,
		IPAddress:    extra.IPAddress,
		UserAgent:    extra.UserAgent,
		DeviceName:   device.Name,
		DeviceType:   device.Type,
		Location:     location,
		LastActivity: s.now(),
		IsActive:     true,
	}

	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, err
	}

	s.logger.Debug("session created",
		zap.Int64("user_id", userID),
		zap.String("session_id", sessionID),
		zap.String("device_type", device.Type),
	)
	return sess, nil
}

// FindBySessionID returns xerrors.ErrNotFound when no row carries the id.
func (s *SessionService) FindBySessionID(ctx context.Context, sessionID string) (*auth.UserSession, error) {
	if sessionID == "" {
		return nil, xerrors.ErrNotFound
	}
	return s.repo.FindBySessionID(ctx, sessionID)
}

func (s *SessionService) UpdateActivity(ctx context.Context, sess *auth.UserSession) error {
	if err := s.repo.UpdateActivity(ctx, sess.ID); err != nil {
		return err
	}
	sess.LastActivity = s.now()
	return nil
}

// UpdateToken stores a newly issued access token on sess.
func (s *SessionService) UpdateToken(ctx context.Context, sess *auth.UserSession, token string) error {
	if err := s.repo.UpdateToken(ctx, sess.ID, token); err != nil {
		return err
	}
	sess.Token = token
	sess.LastActivity = s.now()
	return nil
}

// Deactivate soft-revokes sess. The row is kept for audit.
func (s *SessionService) Deactivate(ctx context.Context, sess *auth.UserSession, reason string) error {
	if err := s.repo.Deactivate(ctx, sess.ID); err != nil {
		return err
	}
	sess.IsActive = false

	if s.notifier != nil {
		s.notifier.SessionRevoked(sess.UserID, sess.SessionID, reason)
	}
	return nil
}

// LogoutOtherSessions revokes every active session of userID except
// currentSessionID and returns how many were revoked.
func (s *SessionService) LogoutOtherSessions(ctx context.Context, userID int64, currentSessionID string) (int64, error) {
	revoked, err := s.repo.DeactivateOthers(ctx, userID, currentSessionID)
	if err != nil {
		return 0, err
	}

	if s.notifier != nil {
		for _, id := range revoked {
			s.notifier.SessionRevoked(userID, id, ReasonLogoutOthers)
		}
	}

	s.logger.Info("other sessions revoked",
		zap.Int64("user_id", userID),
		zap.String("kept_session_id", currentSessionID),
		zap.Int("revoked", len(revoked)),
	)
	return int64(len(revoked)), nil
}

// ActiveSessions lists the user's active sessions, most recent activity first.
func (s *SessionService) ActiveSessions(ctx context.Context, userID int64) ([]*auth.UserSession, error) {
	sessions, err := s.repo.ListActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []*auth.UserSession{}
	}
	return sessions, nil
}

// IsNotFound reports whether err means the session does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, xerrors.ErrNotFound)
}
