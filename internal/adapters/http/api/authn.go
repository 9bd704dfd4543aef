package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/guessr/internal/adapters/auth"
	"github.com/okian/guessr/pkg/logger"
)

const (
	sessionCookie = "session"
	bearerPrefix  = "Bearer "
)

// authedHandler is a handler that runs for a verified session.
type authedHandler func(w http.ResponseWriter, r *http.Request, s auth.Session)

type authenticator struct {
	provider auth.Provider
	players  PlayerDependencies
	log      logger.Logger
}

// tokenFrom reads the access token from the Authorization header, then the
// session cookie.
func tokenFrom(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, bearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(h, bearerPrefix))
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	return ""
}

func (a *authenticator) session(ctx context.Context, r *http.Request) (auth.Session, error) {
	token := tokenFrom(r)
	if token == "" {
		return auth.Session{}, NewKind("api.authenticate", auth.ErrUnauthenticated)
	}
	return a.provider.GetSession(ctx, token)
}

// require verifies the session and makes sure the user has a game. A
// profile that failed to load leaves the player on zero defaults.
func (a *authenticator) require(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		s, err := a.session(ctx, r)
		if err != nil {
			fail(w, err)
			return
		}
		m, err := a.players.Activate(ctx, s.User, s.AccessToken)
		if m == nil {
			fail(w, err)
			return
		}
		if err != nil {
			a.log.Warn(ctx, "playing with default profile", logger.UserID(s.User.ID), logger.Error(err))
		}
		next(w, r, s)
	}
}
