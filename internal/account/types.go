package account

import (
	"time"

	"loquia.org/internal/rbac"
)

// User is a registered account record. PasswordHash never leaves the package
// boundary in API responses.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         rbac.Role `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Session is the authenticated identity snapshot: the user record minus any
// secret material. It is an explicit value handed to callers, never ambient
// process state, so multiple concurrent sessions are representable.
type Session struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      rbac.Role `json:"role"`
	StartedAt time.Time `json:"started_at"`
}

// Active reports whether the session identifies a user.
func (s *Session) Active() bool {
	return s != nil && s.UserID != ""
}
