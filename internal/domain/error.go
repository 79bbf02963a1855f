package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrOperationFailed    = errors.New("database operation failed")
	ErrUnauthorized       = errors.New("unauthorized")

	// Token lifecycle
	ErrInvalidTokenFormat   = errors.New("invalid token format")
	ErrInvalidEmail         = errors.New("invalid email format")
	ErrInvalidPaymentHandle = errors.New("invalid payment handle")
	ErrNormalization        = errors.New("payment handle could not be normalized")
	ErrTagBlocked           = errors.New("token is blocked")
	ErrAlreadyActivated     = errors.New("token is already activated")
	ErrDuplicateActivation  = errors.New("this token has already been activated by this user")
	ErrNotAvailable         = errors.New("token is not available for activation")
	ErrIllegalTransition    = errors.New("illegal tag status transition")
	ErrInternal             = errors.New("internal error")
)

// IsValidation reports whether err is caused by caller input rather than by the system.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidTokenFormat) ||
		errors.Is(err, ErrInvalidEmail) ||
		errors.Is(err, ErrInvalidPaymentHandle) ||
		errors.Is(err, ErrInvalidArgument)
}
