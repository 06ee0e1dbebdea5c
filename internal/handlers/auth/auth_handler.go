// internal/handlers/auth/auth_handler.go
package auth

import (
	"errors"
	"net/http"

	"calvino-service/internal/domain/auth"
	"calvino-service/internal/middleware"
	xerrors "calvino-service/internal/pkg/errors"
	"calvino-service/internal/pkg/response"
	authUsecase "calvino-service/internal/service/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService *authUsecase.AuthService
	logger      *zap.Logger
}

func NewAuthHandler(authService *authUsecase.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// ========== Registration ==========

// Register handles user registration (public endpoint)
func (h *AuthHandler) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	req.IPAddress = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	result, err := h.authService.Register(c.Request.Context(), &req)
	if errors.Is(err, xerrors.ErrDuplicateEntry) {
		response.Error(c, http.StatusConflict, "email already registered", nil)
		return
	}
	if err != nil {
		h.logger.Error("registration failed", zap.String("email", req.Email), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "registration failed", nil)
		return
	}

	response.Success(c, http.StatusCreated, result.Message, result)
}

// ========== Login ==========

// Login checks credentials and opens a new session
func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	req.IPAddress = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	result, err := h.authService.Attempt(c.Request.Context(), &req)
	if errors.Is(err, xerrors.ErrRateLimited) {
		response.Error(c, http.StatusTooManyRequests, "too many login attempts, please try again later", nil)
		return
	}
	if err != nil {
		h.logger.Error("login failed",
			zap.String("email", req.Email),
			zap.String("ip", req.IPAddress),
			zap.Error(err),
		)
		response.Error(c, http.StatusInternalServerError, "login failed", nil)
		return
	}
	if !result.Success {
		response.Unauthorized(c, result.Message)
		return
	}

	h.logger.Info("user logged in",
		zap.Int64("user_id", result.User.ID),
		zap.String("session_id", result.SessionID),
	)

	response.Success(c, http.StatusOK, result.Message, result)
}

// Refresh exchanges a refresh token for a new access token
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req auth.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	out, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if errors.Is(err, xerrors.ErrUnauthorized) {
		response.Unauthorized(c, middleware.MsgUnauthenticated)
		return
	}
	if err != nil {
		h.logger.Error("token refresh failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "token refresh failed", nil)
		return
	}

	response.Success(c, http.StatusOK, "token refreshed", out)
}

// ========== Current user ==========

// Me returns the authenticated user and the session the token is bound to
func (h *AuthHandler) Me(c *gin.Context) {
	guard := middleware.MustGetGuard(c)
	ctx := c.Request.Context()

	response.Success(c, http.StatusOK, "current user", auth.MeResponse{
		User:    guard.User(ctx),
		Session: guard.CurrentSession(ctx),
	})
}

// ========== Logout ==========

// Logout deactivates the current session (requires auth)
func (h *AuthHandler) Logout(c *gin.Context) {
	guard := middleware.MustGetGuard(c)

	err := h.authService.Logout(c.Request.Context(), guard, c.ClientIP(), c.GetHeader("User-Agent"))
	if errors.Is(err, xerrors.ErrSessionExpired) {
		response.Error(c, http.StatusBadRequest, "token is not bound to a session", nil)
		return
	}
	if err != nil {
		h.logger.Error("logout failed", zap.Int64("user_id", middleware.MustGetUserID(c)), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "logout failed", nil)
		return
	}

	response.Success(c, http.StatusOK, "logout successful", nil)
}

// LogoutOthers revokes every other session of the caller (requires auth)
func (h *AuthHandler) LogoutOthers(c *gin.Context) {
	guard := middleware.MustGetGuard(c)

	n, err := h.authService.LogoutOtherSessions(c.Request.Context(), guard, c.ClientIP(), c.GetHeader("User-Agent"))
	if err != nil {
		h.logger.Error("logout other sessions failed", zap.Int64("user_id", middleware.MustGetUserID(c)), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "logout other sessions failed", nil)
		return
	}

	response.Success(c, http.StatusOK, "other sessions logged out", auth.LogoutOthersResponse{Revoked: n})
}

// Sessions lists the caller's active sessions (requires auth)
func (h *AuthHandler) Sessions(c *gin.Context) {
	guard := middleware.MustGetGuard(c)

	sessions, err := h.authService.ActiveSessions(c.Request.Context(), guard)
	if err != nil {
		h.logger.Error("list sessions failed", zap.Int64("user_id", middleware.MustGetUserID(c)), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "failed to list sessions", nil)
		return
	}

	response.Success(c, http.StatusOK, "active sessions", sessions)
}
