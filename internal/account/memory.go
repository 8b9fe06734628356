package account

import (
	"context"
	"sync"
	"time"

	"loquia.org/internal/ids"
)

// InMemory implements Store with in-process concurrency safety. Users are
// kept in insertion order so "first registered user" is well defined.
type InMemory struct {
	mu    sync.RWMutex
	users map[string]*User
	order []string
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty user store.
func NewInMemory() *InMemory {
	return &InMemory{users: make(map[string]*User)}
}

func (s *InMemory) CreateUser(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.order {
		if s.users[id].Email == u.Email {
			return ErrDuplicateEmail
		}
	}
	if u.ID == "" {
		u.ID = ids.New()
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	cp := *u
	s.users[u.ID] = &cp
	s.order = append(s.order, u.ID)
	return nil
}

func (s *InMemory) CountUsers(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order), nil
}

func (s *InMemory) FindUser(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *InMemory) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		if s.users[id].Email == email {
			cp := *s.users[id]
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *InMemory) ListUsers(ctx context.Context) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*User, 0, len(s.order))
	for _, id := range s.order {
		cp := *s.users[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *InMemory) UpdateUser(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.users[u.ID]
	if !ok {
		return ErrUserNotFound
	}
	for _, id := range s.order {
		if id != u.ID && s.users[id].Email == u.Email {
			return ErrEmailInUse
		}
	}
	u.CreatedAt = stored.CreatedAt
	u.UpdatedAt = time.Now().UTC()

	cp := *u
	s.users[u.ID] = &cp
	return nil
}
