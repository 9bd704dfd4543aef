package api

import (
	"context"
	"net/http"

	"github.com/okian/guessr/internal/adapters/auth"
	"github.com/okian/guessr/internal/domain/game"
)

// GameDependencies defines the interface for game operations.
type GameDependencies interface {
	View(ctx context.Context, userID string) (game.View, error)
	NewGame(ctx context.Context, userID string) (game.View, error)
	Guess(ctx context.Context, userID, raw string) (game.Result, error)
	Hint(ctx context.Context, userID string) (game.HintResult, error)
}

// guessRequest carries the raw text typed by the player; validation is the
// game's job.
type guessRequest struct {
	Guess string `json:"guess"`
}

// GameHandler handles game requests.
type GameHandler struct {
	deps GameDependencies
}

// NewGameHandler creates a new game handler.
func NewGameHandler(deps GameDependencies) *GameHandler {
	return &GameHandler{deps: deps}
}

// HandleView handles GET /game.
func (h *GameHandler) HandleView(w http.ResponseWriter, r *http.Request, s auth.Session) {
	v, err := h.deps.View(r.Context(), s.User.ID)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// HandleNewGame handles POST /game/new.
func (h *GameHandler) HandleNewGame(w http.ResponseWriter, r *http.Request, s auth.Session) {
	v, err := h.deps.NewGame(r.Context(), s.User.ID)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// HandleGuess handles POST /game/guess.
func (h *GameHandler) HandleGuess(w http.ResponseWriter, r *http.Request, s auth.Session) {
	var req guessRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, err)
		return
	}
	res, err := h.deps.Guess(r.Context(), s.User.ID, req.Guess)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleHint handles POST /game/hint.
func (h *GameHandler) HandleHint(w http.ResponseWriter, r *http.Request, s auth.Session) {
	res, err := h.deps.Hint(r.Context(), s.User.ID)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
