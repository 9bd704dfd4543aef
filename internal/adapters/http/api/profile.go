package api

import (
	"context"
	"net/http"

	"github.com/okian/guessr/internal/adapters/auth"
	service "github.com/okian/guessr/internal/app"
)

// ProfileDependencies defines the interface for profile reads.
type ProfileDependencies interface {
	Profile(ctx context.Context, userID string) (service.ProfileView, error)
}

// ProfileHandler handles profile requests.
type ProfileHandler struct {
	deps ProfileDependencies
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(deps ProfileDependencies) *ProfileHandler {
	return &ProfileHandler{deps: deps}
}

// HandleProfile handles GET /profile.
func (h *ProfileHandler) HandleProfile(w http.ResponseWriter, r *http.Request, s auth.Session) {
	p, err := h.deps.Profile(r.Context(), s.User.ID)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
