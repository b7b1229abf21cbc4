package identity

import "errors"

var (
	ErrNotFound            = errors.New("account not found")
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidEmail        = errors.New("a valid email is required")
	ErrWeakPassword        = errors.New("password must be at least 6 characters")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrEmailNotVerified    = errors.New("email not verified")
	ErrAlreadyVerified     = errors.New("email already verified")
	ErrInvalidVerification = errors.New("verification link is invalid or expired")
	ErrUnauthenticated     = errors.New("login required")

	ErrGoogleEmailUnverified = errors.New("google account email is not verified")
	ErrGoogleLinked          = errors.New("google account is linked to another email")
)
