// internal/service/auth/auth.go
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"calvino-service/internal/domain/auth"
	xerrors "calvino-service/internal/pkg/errors"
	"calvino-service/internal/pkg/jwt"
	sessionsvc "calvino-service/internal/service/session"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// MsgInvalidCredentials is the only failure message Attempt reports for bad
// credentials, whatever the cause.
const MsgInvalidCredentials = "invalid credentials"

const defaultBcryptCost = 12

// RateLimiter throttles login attempts per ip and email.
type RateLimiter interface {
	CheckLoginAttempt(ctx context.Context, ip, email string) (bool, int64, error)
	ResetLoginAttempts(ctx context.Context, ip, email string) error
}

type Config struct {
	// RejectInactiveUsers makes Attempt, Refresh and the Guard refuse users whose
	// is_active flag is false.
	RejectInactiveUsers bool
	BcryptCost          int
}

type AuthService struct {
	users       auth.UserRepository
	activity    auth.ActivityRepository
	sessions    *sessionsvc.SessionService
	jwtManager  *jwt.Manager
	rateLimiter RateLimiter
	cfg         Config
	logger      *zap.Logger
}

func NewAuthService(
	users auth.UserRepository,
	activity auth.ActivityRepository,
	sessions *sessionsvc.SessionService,
	jwtManager *jwt.Manager,
	rateLimiter RateLimiter,
	cfg Config,
	logger *zap.Logger,
) *AuthService {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = defaultBcryptCost
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:       users,
		activity:    activity,
		sessions:    sessions,
		jwtManager:  jwtManager,
		rateLimiter: rateLimiter,
		cfg:         cfg,
		logger:      logger,
	}
}

// ========== Login ==========

// Attempt verifies credentials and, on success, opens a new session bound to a
// fresh access/refresh token pair. Unknown email and wrong password produce the
// same failed result. Storage errors are returned as errors; a throttled caller
// gets xerrors.ErrRateLimited.
func (s *AuthService) Attempt(ctx context.Context, req *auth.LoginRequest) (*auth.AttemptResult, error) {
	if s.rateLimiter != nil {
		allowed, _, err := s.rateLimiter.CheckLoginAttempt(ctx, req.IPAddress, req.Email)
		if err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}
		if !allowed {
			return nil, xerrors.ErrRateLimited
		}
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if errors.Is(err, xerrors.ErrNotFound) {
		return failed(), nil
	}
	if err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		return failed(), nil
	}

	if s.cfg.RejectInactiveUsers && !user.IsActive {
		s.logger.Info("login refused for inactive user", zap.Int64("user_id", user.ID))
		return failed(), nil
	}

	if s.rateLimiter != nil {
		if err := s.rateLimiter.ResetLoginAttempts(ctx, req.IPAddress, req.Email); err != nil {
			s.logger.Warn("failed to reset login attempts", zap.Error(err))
		}
	}

	result, err := s.openSession(ctx, user, req.IPAddress, req.UserAgent)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, &user.ID, auth.ActionLogin, "user logged in", req.IPAddress, req.UserAgent)
	return result, nil
}

func failed() *auth.AttemptResult {
	return &auth.AttemptResult{Success: false, Message: MsgInvalidCredentials}
}

func (s *AuthService) openSession(ctx context.Context, user *auth.User, ip, userAgent string) (*auth.AttemptResult, error) {
	sessionID, err := newSessionID()
	if err != nil {
		return nil, err
	}

	token, err := s.jwtManager.Generator.CreateToken(identityOf(user), sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refreshToken, err := s.jwtManager.Generator.CreateRefreshToken(user.ID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	if _, err := s.sessions.CreateSession(ctx, user.ID, token, refreshToken, sessionID, auth.SessionExtra{
		IPAddress: ip,
		UserAgent: userAgent,
	}); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &auth.AttemptResult{
		Success:      true,
		Token:        token,
		RefreshToken: refreshToken,
		SessionID:    sessionID,
		User:         user,
		Message:      "login successful",
	}, nil
}

func identityOf(u *auth.User) jwt.Identity {
	return jwt.Identity{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// ========== Registration ==========

// Register creates a user with the default role and logs them in.
func (s *AuthService) Register(ctx context.Context, req *auth.RegisterRequest) (*auth.AttemptResult, error) {
	exists, err := s.users.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, xerrors.ErrDuplicateEntry
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &auth.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: string(hash),
		Role:     auth.RoleUser,
		IsActive: true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.audit(ctx, &user.ID, auth.ActionRegister, "account created", req.IPAddress, req.UserAgent)

	result, err := s.openSession(ctx, user, req.IPAddress, req.UserAgent)
	if err != nil {
		return nil, err
	}
	result.Message = "registration successful"
	return result, nil
}

// ========== Refresh ==========

// Refresh issues a new access token for the session the refresh token is bound
// to. The session must still be active and must hold this exact refresh token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*auth.RefreshResponse, error) {
	claims, ok := s.jwtManager.Verifier.DecodeRefresh(refreshToken)
	if !ok || !claims.HasSession() {
		return nil, xerrors.ErrUnauthorized
	}

	sess, err := s.sessions.FindBySessionID(ctx, claims.SessionID)
	if sessionsvc.IsNotFound(err) {
		return nil, xerrors.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if !sess.IsActive || sess.UserID != claims.UserID ||
		subtle.ConstantTimeCompare([]byte(sess.RefreshToken), []byte(refreshToken)) != 1 {
		return nil, xerrors.ErrUnauthorized
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if errors.Is(err, xerrors.ErrNotFound) {
		return nil, xerrors.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if s.cfg.RejectInactiveUsers && !user.IsActive {
		return nil, xerrors.ErrUnauthorized
	}

	token, issued, err := s.jwtManager.Generator.IssueToken(identityOf(user), sess.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	if err := s.sessions.UpdateToken(ctx, sess, token); err != nil {
		return nil, err
	}

	return &auth.RefreshResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int(issued.ExpiresAt.Sub(issued.IssuedAt.Time).Seconds()),
		ExpiresAt: issued.ExpiresAt.Time,
		SessionID: sess.SessionID,
	}, nil
}

// ========== Logout ==========

// Logout deactivates the session the guard resolved to.
func (s *AuthService) Logout(ctx context.Context, g *Guard, ip, userAgent string) error {
	sess := g.CurrentSession(ctx)
	if sess == nil {
		return xerrors.ErrSessionExpired
	}
	if err := s.sessions.Deactivate(ctx, sess, sessionsvc.ReasonLogout); err != nil {
		return err
	}
	s.audit(ctx, &sess.UserID, auth.ActionLogout, "user logged out", ip, userAgent)
	return nil
}

// LogoutOtherSessions revokes every session of the guard's user except the
// current one and returns how many were revoked.
func (s *AuthService) LogoutOtherSessions(ctx context.Context, g *Guard, ip, userAgent string) (int64, error) {
	user := g.User(ctx)
	if user == nil {
		return 0, xerrors.ErrUnauthorized
	}

	return s.RevokeOtherSessions(ctx, user.ID, guardSessionID(ctx, g), ip, userAgent)
}

// RevokeOtherSessions revokes every session of userID except currentSessionID
// and records a LOGOUT_OTHERS entry.
func (s *AuthService) RevokeOtherSessions(ctx context.Context, userID int64, currentSessionID, ip, userAgent string) (int64, error) {
	n, err := s.sessions.LogoutOtherSessions(ctx, userID, currentSessionID)
	if err != nil {
		return 0, err
	}
	s.audit(ctx, &userID, auth.ActionLogoutOthers, fmt.Sprintf("%d other sessions revoked", n), ip, userAgent)
	return n, nil
}

// ActiveSessions lists the guard user's active sessions, flagging the current one.
func (s *AuthService) ActiveSessions(ctx context.Context, g *Guard) ([]auth.SessionView, error) {
	user := g.User(ctx)
	if user == nil {
		return nil, xerrors.ErrUnauthorized
	}

	return s.SessionsOf(ctx, user.ID, guardSessionID(ctx, g))
}

// SessionsOf lists userID's active sessions, flagging currentSessionID.
func (s *AuthService) SessionsOf(ctx context.Context, userID int64, currentSessionID string) ([]auth.SessionView, error) {
	sessions, err := s.sessions.ActiveSessions(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]auth.SessionView, 0, len(sessions))
	for _, sess := range sessions {
		views = append(views, auth.SessionView{UserSession: *sess, Current: sess.SessionID == currentSessionID})
	}
	return views, nil
}

func guardSessionID(ctx context.Context, g *Guard) string {
	if sess := g.CurrentSession(ctx); sess != nil {
		return sess.SessionID
	}
	return ""
}

// audit writes an activity log entry. Failures are logged and ignored.
func (s *AuthService) audit(ctx context.Context, userID *int64, action, description, ip, userAgent string) {
	if s.activity == nil {
		return
	}
	entry := &auth.ActivityLog{
		UserID:      userID,
		Action:      action,
		Module:      auth.ModuleAuth,
		Description: description,
		IPAddress:   ip,
		UserAgent:   userAgent,
	}
	if err := s.activity.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to write activity log", zap.String("action", action), zap.Error(err))
	}
}
