package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/guessr/internal/adapters/auth"
	service "github.com/okian/guessr/internal/app"
	"github.com/okian/guessr/internal/domain/points"
)

const idempotencyHeader = "Idempotency-Key"

// PointsDependencies defines the interface for the point shop.
type PointsDependencies interface {
	Packages() []points.Package
	Purchase(ctx context.Context, userID string, packageID int, key string) (service.PurchaseResult, error)
}

type purchaseRequest struct {
	PackageID int `json:"package_id"`
}

// PointsHandler handles point package requests.
type PointsHandler struct {
	deps PointsDependencies
}

// NewPointsHandler creates a new points handler.
func NewPointsHandler(deps PointsDependencies) *PointsHandler {
	return &PointsHandler{deps: deps}
}

// HandlePackages handles GET /points/packages.
func (h *PointsHandler) HandlePackages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Packages())
}

// HandlePurchase handles POST /points/purchase. Requests repeating an
// Idempotency-Key get the first answer back.
func (h *PointsHandler) HandlePurchase(w http.ResponseWriter, r *http.Request, s auth.Session) {
	var req purchaseRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, err)
		return
	}
	key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	res, err := h.deps.Purchase(r.Context(), s.User.ID, req.PackageID, key)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
