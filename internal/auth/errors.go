package auth

import "errors"

var (
	// ErrInvalidCredentials covers unknown email and wrong password alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrWrongPortal means the password may be right but the account's role
	// does not match the portal the login came through.
	ErrWrongPortal = errors.New("account does not belong to this portal")
	// ErrAccountExists rejects registration with a taken email.
	ErrAccountExists = errors.New("user already exists with this email")
	// ErrNoRefreshToken means the refresh cookie was absent.
	ErrNoRefreshToken = errors.New("no refresh token provided")
	// ErrInvalidRefreshToken covers malformed, expired and wrongly signed
	// refresh tokens.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrSessionNotFound means the account has no stored refresh hash,
	// typically after logout.
	ErrSessionNotFound = errors.New("session not found")
	// ErrRefreshMismatch means the presented refresh token does not match
	// the stored hash; the session was superseded or revoked.
	ErrRefreshMismatch = errors.New("refresh token does not match current session")
)
