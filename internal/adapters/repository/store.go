// Package repository defines the profile and account store contracts and
// an in-memory implementation. SQL implementations live in sub-packages.
package repository

import (
	"context"

	"github.com/okian/guessr/internal/domain/model"
	"github.com/okian/guessr/internal/domain/types"
)

// ProfileStore is the remote home of player profiles.
type ProfileStore interface {
	// GetProfile returns ErrNotFound for unknown users.
	GetProfile(ctx context.Context, userID string) (model.ProfileRecord, error)

	// InsertProfileIfAbsent creates rec unless a row exists. created reports
	// whether this call inserted it.
	InsertProfileIfAbsent(ctx context.Context, rec model.ProfileRecord) (created bool, err error)

	// UpdateProfile applies the set fields of u. Returns ErrNotFound when
	// the profile is missing.
	UpdateProfile(ctx context.Context, u model.ProfileUpdate) error

	// AddPoints atomically increments purchased points and returns the new
	// total.
	AddPoints(ctx context.Context, userID string, n int) (model.AddPointsResult, error)

	// TopN returns up to n entries by score. Rank is position+1.
	TopN(ctx context.Context, n int, order types.Order) ([]types.Entry, error)

	// Count returns the number of stored profiles.
	Count(ctx context.Context) (int, error)
}

// AccountStore keeps locally registered identities.
type AccountStore interface {
	// CreateAccount returns ErrDuplicate if the id or email is taken.
	CreateAccount(ctx context.Context, a model.Account) error
	AccountByEmail(ctx context.Context, email string) (model.Account, error)
	AccountByID(ctx context.Context, id string) (model.Account, error)
}

// Store is what the service needs from a backend.
type Store interface {
	ProfileStore
	AccountStore
	Close() error
}
