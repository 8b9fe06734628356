package pg

import (
	"context"
	"database/sql"
	"errors"

	"loquia.org/internal/account"
	"loquia.org/internal/rbac"
)

var _ account.Store = (*Store)(nil)

const userColumns = `id, email, name, role, password_hash, created_at, updated_at`

func (s *Store) CreateUser(ctx context.Context, u *account.User) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	err := s.db.QueryRowContext(ctx, `
		insert into users (id, email, name, role, password_hash)
		values ($1, $2, $3, $4, $5)
		returning created_at, updated_at
	`, u.ID, u.Email, u.Name, string(u.Role), u.PasswordHash).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return account.ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	if s.db == nil {
		return 0, errors.New("database connection unavailable")
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `select count(*) from users`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) FindUser(ctx context.Context, id string) (*account.User, error) {
	return s.userBy(ctx, `where id = $1`, id)
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*account.User, error) {
	// Exact, case-sensitive match.
	return s.userBy(ctx, `where email = $1`, email)
}

func (s *Store) userBy(ctx context.Context, where string, arg any) (*account.User, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	var (
		u    account.User
		role string
	)
	err := s.db.QueryRowContext(ctx, `select `+userColumns+` from users `+where, arg).
		Scan(&u.ID, &u.Email, &u.Name, &role, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, account.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Role = rbac.Role(role)
	return &u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]*account.User, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, `select `+userColumns+` from users order by created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*account.User
	for rows.Next() {
		var (
			u    account.User
			role string
		)
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &role, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		u.Role = rbac.Role(role)
		users = append(users, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUser(ctx context.Context, u *account.User) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	err := s.db.QueryRowContext(ctx, `
		update users
		set email = $2, name = $3, role = $4, password_hash = $5, updated_at = now()
		where id = $1
		returning updated_at
	`, u.ID, u.Email, u.Name, string(u.Role), u.PasswordHash).Scan(&u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return account.ErrUserNotFound
	}
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return account.ErrEmailInUse
		}
		return err
	}
	return nil
}
