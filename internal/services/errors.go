package services

import "errors"

// Business-rule violations surface as sentinel errors. Handlers map them
// to HTTP statuses in one place; nothing deeper in the stack knows about
// status codes.
var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrEmailTaken          = errors.New("email already registered")
	ErrSlugExhausted       = errors.New("could not allocate a unique slug")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")

	ErrResetTokenNotFound = errors.New("reset token not found")
	ErrResetTokenUsed     = errors.New("reset token already used")
	ErrResetTokenExpired  = errors.New("reset token expired")

	ErrUnknownPlan         = errors.New("unknown tier/billing cycle combination")
	ErrNotFound            = errors.New("not found")
	ErrProviderUnavailable = errors.New("payment provider unavailable")
)
