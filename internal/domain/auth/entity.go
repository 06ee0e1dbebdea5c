// internal/domain/auth/entity.go
package auth

import "time"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// DefaultLocation is stored on a session whose location could not be resolved.
const DefaultLocation = "Inconnue"

// User is an account that can authenticate
type User struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Password  string    `json:"-" db:"password"`
	Role      string    `json:"role" db:"role"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// UserSession is a server-side login record bound to issued tokens by SessionID
type UserSession struct {
	ID           int64     `json:"id" db:"id"`
	UserID       int64     `json:"user_id" db:"user_id"`
	SessionID    string    `json:"session_id" db:"session_id"`
	Token        string    `json:"-" db:"token"`
	RefreshToken string    `json:"-" db:"refresh_token"`
	IPAddress    string    `json:"ip_address" db:"ip_address"`
	UserAgent    string    `json:"user_agent" db:"user_agent"`
	DeviceName   string    `json:"device_name" db:"device_name"`
	DeviceType   string    `json:"device_type" db:"device_type"`
	Location     string    `json:"location" db:"location"`
	LastActivity time.Time `json:"last_activity" db:"last_activity"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Activity log actions
const (
	ActionLogin        = "LOGIN"
	ActionLogout       = "LOGOUT"
	ActionLogoutOthers = "LOGOUT_OTHERS"
	ActionRegister     = "REGISTER"

	ModuleAuth = "AUTH"
)

// ActivityLog is an audit trail entry
type ActivityLog struct {
	ID          int64     `json:"id" db:"id"`
	UserID      *int64    `json:"user_id,omitempty" db:"user_id"`
	Action      string    `json:"action" db:"action"`
	Module      string    `json:"module" db:"module"`
	Description string    `json:"description" db:"description"`
	IPAddress   string    `json:"ip_address" db:"ip_address"`
	UserAgent   string    `json:"user_agent" db:"user_agent"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
