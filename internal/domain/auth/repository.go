// internal/domain/auth/repository.go
package auth

import "context"

type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	AdminExists(ctx context.Context) (bool, error)
	Create(ctx context.Context, user *User) error
}

type SessionRepository interface {
	Create(ctx context.Context, s *UserSession) error
	FindBySessionID(ctx context.Context, sessionID string) (*UserSession, error)
	UpdateActivity(ctx context.Context, id int64) error
	UpdateToken(ctx context.Context, id int64, token string) error
	Deactivate(ctx context.Context, id int64) error
	DeactivateOthers(ctx context.Context, userID int64, keepSessionID string) ([]string, error)
	ListActive(ctx context.Context, userID int64) ([]*UserSession, error)
}

type ActivityRepository interface {
	Create(ctx context.Context, log *ActivityLog) error
}
