package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"loquia.org/internal/ids"
	"loquia.org/internal/rbac"
)

// Service provides account lifecycle and session operations. Privileged
// mutations enforce the permission gate themselves so the check cannot be
// bypassed by a client that skips the UI.
type Service struct {
	store Store
	now   func() time.Time
}

// Option configures Service behavior.
type Option func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs a Service backed by the given store.
func NewService(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("account store is required")
	}
	svc := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Authorize is the single authorization primitive: nil or inactive sessions
// are denied, otherwise the decision delegates to the static role table.
func (s *Service) Authorize(sess *Session, perm rbac.Permission) bool {
	if !sess.Active() {
		return false
	}
	return rbac.HasPermission(sess.Role, perm)
}

// Signup registers a new user. The first user ever registered becomes admin;
// everyone after that starts as a regular user. Returns the fresh session.
func (s *Service) Signup(ctx context.Context, email, password, name string) (Session, error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	if email == "" || !strings.Contains(email, "@") {
		return Session{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	if password == "" {
		return Session{}, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	if name == "" {
		return Session{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	if _, err := s.store.FindUserByEmail(ctx, email); err == nil {
		return Session{}, ErrDuplicateEmail
	} else if !errors.Is(err, ErrUserNotFound) {
		return Session{}, err
	}

	count, err := s.store.CountUsers(ctx)
	if err != nil {
		return Session{}, err
	}
	role := rbac.RoleUser
	if count == 0 {
		role = rbac.RoleAdmin
	}

	hash, err := HashPassword(password)
	if err != nil {
		return Session{}, err
	}
	user := &User{
		ID:           ids.New(),
		Email:        email,
		Name:         name,
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return Session{}, err
	}
	return s.session(user), nil
}

// Login verifies credentials and opens a session. Any mismatch, including an
// unknown email, surfaces as ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return Session{}, ErrInvalidCredentials
	}
	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	return s.session(user), nil
}

// Logout clears the session identity. Safe to call on an already cleared or
// nil session.
func (s *Service) Logout(sess *Session) {
	if sess == nil {
		return
	}
	*sess = Session{}
}

// UpdateProfile changes the display name of the session user and refreshes
// the session snapshot.
func (s *Service) UpdateProfile(ctx context.Context, sess *Session, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	user, err := s.sessionUser(ctx, sess)
	if err != nil {
		return err
	}
	user.Name = name
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return err
	}
	*sess = s.session(user)
	return nil
}

// UpdateEmail changes the email of the session user. Collisions with a
// different user fail with ErrEmailInUse.
func (s *Service) UpdateEmail(ctx context.Context, sess *Session, email string) error {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	user, err := s.sessionUser(ctx, sess)
	if err != nil {
		return err
	}
	if other, err := s.store.FindUserByEmail(ctx, email); err == nil && other.ID != user.ID {
		return ErrEmailInUse
	} else if err != nil && !errors.Is(err, ErrUserNotFound) {
		return err
	}
	user.Email = email
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return err
	}
	*sess = s.session(user)
	return nil
}

// UpdatePassword rotates the password after verifying the current one.
func (s *Service) UpdatePassword(ctx context.Context, sess *Session, current, next string) error {
	if next == "" {
		return fmt.Errorf("%w: new password is required", ErrInvalidInput)
	}
	user, err := s.sessionUser(ctx, sess)
	if err != nil {
		return err
	}
	if err := VerifyPassword(user.PasswordHash, current); err != nil {
		return ErrIncorrectPassword
	}
	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return s.store.UpdateUser(ctx, user)
}

// ListUsers returns all users in registration order. Requires manage_users.
func (s *Service) ListUsers(ctx context.Context, actor *Session) ([]*User, error) {
	if !s.Authorize(actor, rbac.PermManageUsers) {
		return nil, ErrForbidden
	}
	return s.store.ListUsers(ctx)
}

// GetUser returns a single user record. Requires manage_users.
func (s *Service) GetUser(ctx context.Context, actor *Session, userID string) (*User, error) {
	if !s.Authorize(actor, rbac.PermManageUsers) {
		return nil, ErrForbidden
	}
	return s.store.FindUser(ctx, userID)
}

// UpdateUserRole overwrites the target user's role. Requires manage_roles.
// An admin cannot move themselves to a role without manage_roles, so the
// system cannot be locked out of role administration by accident.
func (s *Service) UpdateUserRole(ctx context.Context, actor *Session, userID string, role rbac.Role) (*User, error) {
	if !s.Authorize(actor, rbac.PermManageRoles) {
		return nil, ErrForbidden
	}
	if !rbac.Valid(role) {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	if actor.UserID == userID && !rbac.HasPermission(role, rbac.PermManageRoles) {
		return nil, fmt.Errorf("%w: cannot drop own role management", ErrForbidden)
	}
	user, err := s.store.FindUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Role = role
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Resume rebuilds a session snapshot from a stored user id, e.g. when a
// bearer token is presented on a later request.
func (s *Service) Resume(ctx context.Context, userID string) (Session, error) {
	user, err := s.store.FindUser(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	return s.session(user), nil
}

func (s *Service) sessionUser(ctx context.Context, sess *Session) (*User, error) {
	if !sess.Active() {
		return nil, ErrUserNotFound
	}
	return s.store.FindUser(ctx, sess.UserID)
}

func (s *Service) session(u *User) Session {
	return Session{
		UserID:    u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		StartedAt: s.now().UTC(),
	}
}
