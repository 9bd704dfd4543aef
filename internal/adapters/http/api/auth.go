package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/guessr/internal/adapters/auth"
	"github.com/okian/guessr/internal/adapters/sessioncache"
	"github.com/okian/guessr/internal/domain/profile"
)

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type meResponse struct {
	sessioncache.Record
	Cached bool `json:"cached"`
}

// AuthHandler handles sign-up, sign-in and sign-out.
type AuthHandler struct {
	provider auth.Provider
	players  PlayerDependencies
	cache    *sessioncache.Cache
	secure   bool
}

// NewAuthHandler creates a new auth handler. cache may be nil.
func NewAuthHandler(provider auth.Provider, players PlayerDependencies, cache *sessioncache.Cache, secure bool) *AuthHandler {
	return &AuthHandler{provider: provider, players: players, cache: cache, secure: secure}
}

// HandleSignUp handles POST /auth/signup.
func (h *AuthHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, err)
		return
	}
	var metadata map[string]string
	if name := strings.TrimSpace(req.Username); name != "" {
		metadata = map[string]string{"username": name}
	}
	s, err := h.provider.SignUp(r.Context(), req.Email, req.Password, metadata)
	if err != nil {
		fail(w, err)
		return
	}
	h.signedIn(w, s)
	writeJSON(w, http.StatusCreated, s)
}

// HandleSignIn handles POST /auth/signin.
func (h *AuthHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, err)
		return
	}
	s, err := h.provider.SignInWithPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		fail(w, err)
		return
	}
	h.signedIn(w, s)
	writeJSON(w, http.StatusOK, s)
}

// HandleOAuthStart handles GET /auth/oauth/{provider} by redirecting to the
// provider's consent page.
func (h *AuthHandler) HandleOAuthStart(w http.ResponseWriter, r *http.Request) {
	url, _, err := h.provider.SignInWithOAuth(r.Context(), r.PathValue("provider"))
	if err != nil {
		fail(w, err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// HandleOAuthCallback handles GET /auth/callback/{provider}?state&code.
func (h *AuthHandler) HandleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if errMsg := q.Get("error"); errMsg != "" {
		fail(w, WrapKind("api.oauth_callback", auth.ErrUnauthenticated, errors.New(errMsg)))
		return
	}
	s, err := h.provider.CompleteOAuth(r.Context(), r.PathValue("provider"), q.Get("state"), q.Get("code"))
	if err != nil {
		fail(w, err)
		return
	}
	h.signedIn(w, s)
	writeJSON(w, http.StatusOK, s)
}

// HandleSignOut handles POST /auth/signout. Local state is cleared even when
// the token is no longer valid.
func (h *AuthHandler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token := tokenFrom(r)
	if token != "" {
		if s, err := h.provider.GetSession(ctx, token); err == nil {
			h.players.Deactivate(ctx, s.User.ID, token)
		}
		if err := h.provider.SignOut(ctx, token); err != nil && !errors.Is(err, auth.ErrUnauthenticated) {
			fail(w, err)
			return
		}
	}
	clearSessionCookie(w, h.secure)
	if h.cache != nil {
		h.cache.Clear(w)
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe handles GET /auth/me. The cached identity cookie answers first;
// without it the provider is asked and the cache refreshed.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	if h.cache != nil {
		if rec, err := h.cache.Read(r); err == nil {
			writeJSON(w, http.StatusOK, meResponse{Record: rec, Cached: true})
			return
		}
	}
	s, err := h.session(r.Context(), r)
	if err != nil {
		fail(w, err)
		return
	}
	rec := recordOf(s.User)
	if h.cache != nil {
		_ = h.cache.Write(w, rec)
	}
	writeJSON(w, http.StatusOK, meResponse{Record: rec})
}

func (h *AuthHandler) session(ctx context.Context, r *http.Request) (auth.Session, error) {
	token := tokenFrom(r)
	if token == "" {
		return auth.Session{}, NewKind("api.me", auth.ErrUnauthenticated)
	}
	return h.provider.GetSession(ctx, token)
}

func (h *AuthHandler) signedIn(w http.ResponseWriter, s auth.Session) {
	setSessionCookie(w, s, h.secure)
	if h.cache != nil {
		_ = h.cache.Write(w, recordOf(s.User))
	}
}

func recordOf(u auth.User) sessioncache.Record {
	return sessioncache.Record{ID: u.ID, Email: u.Email, Username: profile.Username(u.Metadata, u.Email)}
}
