package auth

import "errors"

var (
	// ErrInvalidCredentials is returned when an email/password pair does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated is returned for missing, expired or revoked tokens.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrEmailTaken is returned by SignUp when the email is registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUnknownProvider is returned for OAuth providers that are not configured.
	ErrUnknownProvider = errors.New("unknown oauth provider")
	// ErrOAuthState is returned when the OAuth state is missing, expired or
	// belongs to another provider.
	ErrOAuthState = errors.New("invalid oauth state")
	// ErrInvalidSignUp is returned when the email or password is unusable.
	ErrInvalidSignUp = errors.New("invalid sign-up")
	// ErrProvider wraps failures talking to an upstream identity provider.
	ErrProvider = errors.New("auth provider error")
)
