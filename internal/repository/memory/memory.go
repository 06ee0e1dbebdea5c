// Package memory provides map-backed implementations of the auth repositories.
// They are used by tests and by local runs without a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"calvino-service/internal/domain/auth"
	xerrors "calvino-service/internal/pkg/errors"
)

type UserRepository struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]*auth.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[int64]*auth.User)}
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, xerrors.ErrNotFound
}

func (r *UserRepository) FindByID(_ context.Context, id int64) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.FindByEmail(ctx, email)
	if err == xerrors.ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (r *UserRepository) AdminExists(_ context.Context) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Role == auth.RoleAdmin {
			return true, nil
		}
	}
	return false, nil
}

func (r *UserRepository) Create(_ context.Context, u *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return xerrors.ErrDuplicateEntry
		}
	}
	r.nextID++
	now := time.Now()
	u.ID = r.nextID
	u.CreatedAt, u.UpdatedAt = now, now
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

type SessionRepository struct {
	mu       sync.RWMutex
	nextID   int64
	sessions map[string]*auth.UserSession
	now      func() time.Time
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{sessions: make(map[string]*auth.UserSession), now: time.Now}
}

func (r *SessionRepository) Create(_ context.Context, s *auth.UserSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[s.SessionID]; exists {
		return xerrors.ErrDuplicateEntry
	}
	r.nextID++
	s.ID = r.nextID
	s.CreatedAt = r.now()
	cp := *s
	r.sessions[s.SessionID] = &cp
	return nil
}

func (r *SessionRepository) FindBySessionID(_ context.Context, sessionID string) (*auth.UserSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *SessionRepository) byID(id int64) *auth.UserSession {
	for _, s := range r.sessions {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func (r *SessionRepository) UpdateActivity(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s := r.byID(id); s != nil {
		s.LastActivity = r.now()
	}
	return nil
}

func (r *SessionRepository) UpdateToken(_ context.Context, id int64, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s := r.byID(id); s != nil {
		s.Token = token
		s.LastActivity = r.now()
	}
	return nil
}

func (r *SessionRepository) Deactivate(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s := r.byID(id); s != nil {
		s.IsActive = false
	}
	return nil
}

func (r *SessionRepository) DeactivateOthers(_ context.Context, userID int64, keepSessionID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for _, s := range r.sessions {
		if s.UserID == userID && s.SessionID != keepSessionID && s.IsActive {
			s.IsActive = false
			ids = append(ids, s.SessionID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *SessionRepository) ListActive(_ context.Context, userID int64) ([]*auth.UserSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*auth.UserSession
	for _, s := range r.sessions {
		if s.UserID == userID && s.IsActive {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActivity.After(out[j].LastActivity)
	})
	return out, nil
}

// Put stores s as-is, overwriting any session with the same SessionID.
func (r *SessionRepository) Put(s *auth.UserSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == 0 {
		r.nextID++
		s.ID = r.nextID
	}
	cp := *s
	r.sessions[s.SessionID] = &cp
}

type ActivityRepository struct {
	mu   sync.Mutex
	logs []auth.ActivityLog
}

func NewActivityRepository() *ActivityRepository {
	return &ActivityRepository{}
}

func (r *ActivityRepository) Create(_ context.Context, l *auth.ActivityLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l.ID = int64(len(r.logs) + 1)
	l.CreatedAt = time.Now()
	r.logs = append(r.logs, *l)
	return nil
}

// Logs returns a copy of everything recorded so far.
func (r *ActivityRepository) Logs() []auth.ActivityLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]auth.ActivityLog(nil), r.logs...)
}
