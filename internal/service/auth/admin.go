// internal/service/auth/admin.go
package auth

import (
	"context"
	"fmt"

	"calvino-service/internal/domain/auth"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minAdminPasswordLength = 8

// EnsureAdminExists creates an admin account if none exists (called on startup)
func (s *AuthService) EnsureAdminExists(ctx context.Context, email, password, name string) error {
	exists, err := s.users.AdminExists(ctx)
	if err != nil {
		return fmt.Errorf("failed to check admin existence: %w", err)
	}
	if exists {
		s.logger.Info("admin already exists, skipping creation")
		return nil
	}

	if email == "" || password == "" || name == "" {
		return fmt.Errorf("admin email, password, and name must be provided via environment variables")
	}
	if len(password) < minAdminPasswordLength {
		return fmt.Errorf("admin password must be at least %d characters", minAdminPasswordLength)
	}

	emailExists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to check email: %w", err)
	}
	if emailExists {
		return fmt.Errorf("email %s already exists but is not an admin", email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &auth.User{
		Name:     name,
		Email:    email,
		Password: string(hash),
		Role:     auth.RoleAdmin,
		IsActive: true,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}

	s.logger.Info("admin account created", zap.Int64("user_id", admin.ID), zap.String("email", email))
	return nil
}
