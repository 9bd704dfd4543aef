// Package auth provides the identity provider used by guessr: password and
// OAuth sign-in, JWT access tokens, and SIGNED_IN/SIGNED_OUT notifications.
package auth

import (
	"context"
	"time"
)

// User is the identity behind a session.
type User struct {
	ID       string            `json:"id"`
	Email    string            `json:"email"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Session is an authenticated user together with its access token.
type Session struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        User      `json:"user"`
}

// EventType names an auth state change.
type EventType string

const (
	SignedIn  EventType = "SIGNED_IN"
	SignedOut EventType = "SIGNED_OUT"
)

// Event is delivered to listeners after a sign-in or sign-out. The same event
// may arrive more than once; ID identifies duplicates.
type Event struct {
	ID      string
	Type    EventType
	Session Session
}

// Listener receives auth events.
type Listener func(ctx context.Context, e Event)

// Provider is the contract the game service consumes.
type Provider interface {
	GetSession(ctx context.Context, token string) (Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (Session, error)
	// SignInWithOAuth returns the URL to send the user to and the state the
	// callback must echo.
	SignInWithOAuth(ctx context.Context, provider string) (authURL, state string, err error)
	CompleteOAuth(ctx context.Context, provider, state, code string) (Session, error)
	SignUp(ctx context.Context, email, password string, metadata map[string]string) (Session, error)
	SignOut(ctx context.Context, token string) error
	Subscribe(l Listener) (unsubscribe func())
}
