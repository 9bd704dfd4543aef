// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/okian/guessr/internal/domain/types"
)

const defaultLeaderboardLimit = 10

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// LeaderboardDependencies defines the interface for leaderboard operations.
type LeaderboardDependencies interface {
	Leaderboard(ctx context.Context, limit int, order types.Order) ([]Entry, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps LeaderboardDependencies
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps}
}

// HandleGetLeaderboard handles GET /leaderboard?limit=N&order=desc|asc.
// limit defaults to 10 and is capped by the service.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	q := r.URL.Query()

	n := defaultLeaderboardLimit
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			fail(w, NewKind(op, ErrBadRequest))
			return
		}
		n = v
	}
	order, err := types.ParseOrder(q.Get("order"))
	if err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	entries, err := h.deps.Leaderboard(r.Context(), n, order)
	if err != nil {
		fail(w, err)
		return
	}
	if entries == nil {
		entries = []Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
