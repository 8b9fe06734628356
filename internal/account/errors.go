package account

import "errors"

var (
	ErrDuplicateEmail     = errors.New("account: duplicate email")
	ErrInvalidCredentials = errors.New("account: invalid credentials")
	ErrUserNotFound       = errors.New("account: user not found")
	ErrEmailInUse         = errors.New("account: email in use")
	ErrIncorrectPassword  = errors.New("account: incorrect password")
	ErrForbidden          = errors.New("account: forbidden")
	ErrInvalidInput       = errors.New("account: invalid input")
	ErrCorruptState       = errors.New("account: corrupt state")
)
