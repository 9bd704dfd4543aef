package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/guessr/internal/adapters/auth"
	"github.com/okian/guessr/internal/adapters/repository"
	service "github.com/okian/guessr/internal/app"
	"github.com/okian/guessr/internal/domain/game"
	"github.com/okian/guessr/internal/domain/points"
	"github.com/okian/guessr/internal/domain/types"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
)

// Error carries the operation that failed and the kind used for the
// response status.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error { return []error{e.Kind, e.Err} }

// NewKind returns an error of kind raised by op.
func NewKind(op string, kind error) error { return &Error{Op: op, Kind: kind} }

// WrapKind attaches kind and op to err.
func WrapKind(op string, kind, err error) error { return &Error{Op: op, Kind: kind, Err: err} }

// classify maps an error to its HTTP status and response code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, game.ErrInvalidGuess):
		return http.StatusBadRequest, "invalid_guess"
	case errors.Is(err, auth.ErrInvalidSignUp):
		return http.StatusBadRequest, "invalid_signup"
	case errors.Is(err, auth.ErrOAuthState):
		return http.StatusBadRequest, "invalid_state"
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, types.ErrInvalidOrder),
		errors.Is(err, repository.ErrInvalidLimit),
		errors.Is(err, points.ErrInvalidAmount):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, auth.ErrUnauthenticated), errors.Is(err, service.ErrNoPlayer):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, points.ErrInsufficientPoints):
		return http.StatusPaymentRequired, "insufficient_points"
	case errors.Is(err, auth.ErrUnknownProvider), errors.Is(err, points.ErrUnknownPackage):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, game.ErrNotPlaying):
		return http.StatusConflict, "game_over"
	case errors.Is(err, auth.ErrEmailTaken):
		return http.StatusConflict, "email_taken"
	case errors.Is(err, points.ErrPurchaseInProgress):
		return http.StatusConflict, "purchase_in_progress"
	case errors.Is(err, points.ErrPurchaseFailed), errors.Is(err, repository.ErrPersistence):
		return http.StatusBadGateway, "persistence_error"
	case errors.Is(err, auth.ErrProvider):
		return http.StatusBadGateway, "provider_error"
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, game.ErrClosed):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
