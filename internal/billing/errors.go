package billing

import "errors"

var (
	ErrMethodNotFound       = errors.New("billing: payment method not found")
	ErrSoleDefaultMethod    = errors.New("billing: cannot remove the only default payment method")
	ErrAlreadySubscribed    = errors.New("billing: user already has an active subscription")
	ErrInvalidPaymentMethod = errors.New("billing: invalid payment method")
	ErrInvalidPlan          = errors.New("billing: invalid subscription plan")
	ErrEmptyCart            = errors.New("billing: checkout requires at least one item")
	ErrNoActiveSession      = errors.New("billing: no active checkout session")
	ErrInvalidInput         = errors.New("billing: invalid input")
	ErrCorruptState         = errors.New("billing: corrupt state")
)
