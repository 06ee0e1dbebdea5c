// internal/repository/postgres/activity_repo.go
package postgres

import (
	"context"
	"fmt"

	"calvino-service/internal/domain/auth"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ActivityRepository struct {
	db *pgxpool.Pool
}

func NewActivityRepository(db *pgxpool.Pool) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Create(ctx context.Context, l *auth.ActivityLog) error {
	query := `
		INSERT INTO activity_logs (user_id, action, module, description, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query, l.UserID, l.Action, l.Module, l.Description, l.IPAddress, l.UserAgent).
		Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to write activity log: %w", err)
	}
	return nil
}
