package account

import "context"

// Store describes persistence operations required by the account subsystem.
// Implementations must keep email uniqueness (exact, case-sensitive match)
// and report it via ErrDuplicateEmail / ErrEmailInUse.
type Store interface {
	CreateUser(ctx context.Context, u *User) error
	CountUsers(ctx context.Context) (int, error)
	FindUser(ctx context.Context, id string) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
	UpdateUser(ctx context.Context, u *User) error
}
