package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/okian/guessr/internal/domain/points"
	"github.com/okian/guessr/pkg/logger"
	"github.com/okian/guessr/pkg/metrics"
)

// Purchase outcomes recorded in metrics.
const (
	purchaseOK        = "ok"
	purchaseDuplicate = "duplicate"
	purchaseFailed    = "failed"
	purchaseInFlight  = "in_flight"
)

// PurchaseResult is the outcome of a package purchase.
type PurchaseResult struct {
	Package   points.Package `json:"package"`
	Balance   int            `json:"balance"`
	Duplicate bool           `json:"duplicate"`
}

// Packages lists what can be bought.
func (s *Service) Packages() []points.Package { return s.catalog.List() }

// Purchase credits the points of packageID to userID. Retrying with the same
// key returns the first result without charging again. An empty key makes
// the request non-idempotent.
func (s *Service) Purchase(ctx context.Context, userID string, packageID int, key string) (PurchaseResult, error) {
	pkg, err := s.catalog.Lookup(packageID)
	if err != nil {
		return PurchaseResult{}, err
	}
	m, err := s.Player(userID)
	if err != nil {
		return PurchaseResult{}, err
	}
	label := strconv.Itoa(pkg.ID)

	if key == "" {
		key = uuid.NewString()
	}
	id := userID + ":" + key
	if v, done, seen := s.purchases.Claim(ctx, id); seen {
		if !done {
			metrics.RecordPurchase(label, purchaseInFlight)
			return PurchaseResult{}, points.ErrPurchaseInProgress
		}
		res := v.(PurchaseResult) //nolint:forcetypeassert // only PurchaseResult is remembered
		res.Duplicate = true
		metrics.RecordPurchase(label, purchaseDuplicate)
		return res, nil
	}

	out, err := s.store.AddPoints(ctx, userID, pkg.Points)
	if err != nil || !out.Success {
		s.purchases.Unrecord(ctx, id)
		metrics.RecordPurchase(label, purchaseFailed)
		reason := out.Error
		if reason == "" && err != nil {
			reason = err.Error()
		}
		s.logger.Error(ctx, "purchase failed",
			logger.UserID(userID), logger.Int("package_id", pkg.ID), logger.String("reason", reason))
		return PurchaseResult{}, fmt.Errorf("%w: %s", points.ErrPurchaseFailed, reason)
	}

	balance, err := m.CreditPoints(pkg.Points)
	if err != nil {
		// the store already holds the points; the next profile load picks them up
		s.logger.Warn(ctx, "local credit failed", logger.UserID(userID), logger.Error(err))
	}
	res := PurchaseResult{Package: pkg, Balance: balance}
	s.purchases.Remember(ctx, id, res)
	metrics.RecordPurchase(label, purchaseOK)
	s.logger.Info(ctx, "points purchased",
		logger.UserID(userID), logger.Int("package_id", pkg.ID), logger.Int("balance", balance))
	return res, nil
}
