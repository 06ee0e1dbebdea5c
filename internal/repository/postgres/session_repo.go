// internal/repository/postgres/session_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"calvino-service/internal/domain/auth"
	xerrors "calvino-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SessionRepository struct {
	db *pgxpool.Pool
}

func NewSessionRepository(db *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `
	id, user_id, session_id, token, refresh_token, ip_address, user_agent,
	device_name, device_type, location, last_activity, is_active, created_at`

func scanSession(row pgx.Row) (*auth.UserSession, error) {
	var s auth.UserSession
	err := row.Scan(
		&s.ID, &s.UserID, &s.SessionID, &s.Token, &s.RefreshToken, &s.IPAddress, &s.UserAgent,
		&s.DeviceName, &s.DeviceType, &s.Location, &s.LastActivity, &s.IsActive, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepository) Create(ctx context.Context, s *auth.UserSession) error {
	query := `
		INSERT INTO user_sessions (
			user_id, session_id, token, refresh_token, ip_address, user_agent,
			device_name, device_type, location, last_activity, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query,
		s.UserID, s.SessionID, s.Token, s.RefreshToken, s.IPAddress, s.UserAgent,
		s.DeviceName, s.DeviceType, s.Location, s.LastActivity, s.IsActive,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *SessionRepository) FindBySessionID(ctx context.Context, sessionID string) (*auth.UserSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM user_sessions WHERE session_id = $1`

	s, err := scanSession(r.db.QueryRow(ctx, query, sessionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return s, nil
}

func (r *SessionRepository) UpdateActivity(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `UPDATE user_sessions SET last_activity = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to update session activity: %w", err)
	}
	return nil
}

// UpdateToken records a newly issued access token on the session.
func (r *SessionRepository) UpdateToken(ctx context.Context, id int64, token string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE user_sessions SET token = $1, last_activity = NOW() WHERE id = $2`, token, id)
	if err != nil {
		return fmt.Errorf("failed to update session token: %w", err)
	}
	return nil
}

func (r *SessionRepository) Deactivate(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `UPDATE user_sessions SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate session: %w", err)
	}
	return nil
}

// DeactivateOthers soft-revokes every active session of userID except keepSessionID
// and returns the revoked session ids.
func (r *SessionRepository) DeactivateOthers(ctx context.Context, userID int64, keepSessionID string) ([]string, error) {
	query := `
		UPDATE user_sessions SET is_active = FALSE
		WHERE user_id = $1 AND session_id <> $2 AND is_active = TRUE
		RETURNING session_id
	`
	rows, err := r.db.Query(ctx, query, userID, keepSessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to deactivate sessions: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to read deactivated sessions: %w", err)
	}
	return ids, nil
}

// ListActive returns the user's active sessions, most recently used first.
func (r *SessionRepository) ListActive(ctx context.Context, userID int64) ([]*auth.UserSession, error) {
	query := `SELECT ` + sessionColumns + `
		FROM user_sessions
		WHERE user_id = $1 AND is_active = TRUE
		ORDER BY last_activity DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*auth.UserSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
