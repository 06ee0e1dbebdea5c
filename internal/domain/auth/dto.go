// internal/domain/auth/dto.go
package auth

import "time"

// RegisterRequest for user registration
type RegisterRequest struct {
	Name      string `json:"name" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginRequest for user login
type LoginRequest struct {
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password" binding:"required"`
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

// RefreshRequest exchanges a refresh token for a new access token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// AttemptResult is the outcome of a credential check. Message is always set;
// the token fields are only populated on success.
type AttemptResult struct {
	Success      bool   `json:"success"`
	Token        string `json:"token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	SessionID    string `json:"session_id,omitempty"`
	User         *User  `json:"user,omitempty"`
	Message      string `json:"message"`
}

// RefreshResponse carries a freshly issued access token
type RefreshResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresIn int       `json:"expires_in"`
	ExpiresAt time.Time `json:"expires_at"`
	SessionID string    `json:"session_id"`
}

// MeResponse describes the authenticated principal and its current session
type MeResponse struct {
	User    *User        `json:"user"`
	Session *UserSession `json:"session,omitempty"`
}

// SessionView is an active session as listed to its owner
type SessionView struct {
	UserSession
	Current bool `json:"current"`
}

// LogoutOthersResponse reports how many sessions were revoked
type LogoutOthersResponse struct {
	Revoked int64 `json:"revoked"`
}

// SessionExtra carries client metadata recorded on a new session
type SessionExtra struct {
	IPAddress string
	UserAgent string
	Location  string
}
