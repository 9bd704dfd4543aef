// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/okian/guessr/internal/adapters/auth"
	"github.com/okian/guessr/internal/adapters/sessioncache"
	"github.com/okian/guessr/internal/domain/game"
	"github.com/okian/guessr/pkg/logger"
)

const corsMaxAge = 15 * 60

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	PlayerDependencies
	GameDependencies
	PointsDependencies
	ProfileDependencies
	LeaderboardDependencies
	StatsProvider
}

// PlayerDependencies binds authenticated users to their games.
type PlayerDependencies interface {
	Activate(ctx context.Context, user auth.User, token string) (*game.Machine, error)
	Deactivate(ctx context.Context, userID, token string) bool
}

// Server wires HTTP routes for the game API.
type Server struct {
	authHandler        *AuthHandler
	gameHandler        *GameHandler
	pointsHandler      *PointsHandler
	profileHandler     *ProfileHandler
	leaderboardHandler *LeaderboardHandler
	statsHandler       *StatsHandler
	healthHandler      *HealthHandler
	authn              *authenticator

	origins []string
	secure  bool
	log     logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, provider auth.Provider, cache *sessioncache.Cache, opts ...Option) *Server {
	s := &Server{origins: []string{"*"}, log: logger.Nop(), healthHandler: NewHealthHandler()}
	for _, opt := range opts {
		opt(s)
	}
	s.authn = &authenticator{provider: provider, players: deps, log: s.log}
	s.authHandler = NewAuthHandler(provider, deps, cache, s.secure)
	s.gameHandler = NewGameHandler(deps)
	s.pointsHandler = NewPointsHandler(deps)
	s.profileHandler = NewProfileHandler(deps)
	s.leaderboardHandler = NewLeaderboardHandler(deps)
	s.statsHandler = NewStatsHandler(deps)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /auth/signup", MetricsMiddleware(s.authHandler.HandleSignUp, "auth_signup"))
	mux.HandleFunc("POST /auth/signin", MetricsMiddleware(s.authHandler.HandleSignIn, "auth_signin"))
	mux.HandleFunc("GET /auth/oauth/{provider}", MetricsMiddleware(s.authHandler.HandleOAuthStart, "auth_oauth"))
	mux.HandleFunc("GET /auth/callback/{provider}", MetricsMiddleware(s.authHandler.HandleOAuthCallback, "auth_callback"))
	mux.HandleFunc("POST /auth/signout", MetricsMiddleware(s.authHandler.HandleSignOut, "auth_signout"))
	mux.HandleFunc("GET /auth/me", MetricsMiddleware(s.authHandler.HandleMe, "auth_me"))

	mux.HandleFunc("GET /game", MetricsMiddleware(s.authn.require(s.gameHandler.HandleView), "game"))
	mux.HandleFunc("POST /game/new", MetricsMiddleware(s.authn.require(s.gameHandler.HandleNewGame), "game_new"))
	mux.HandleFunc("POST /game/guess", MetricsMiddleware(s.authn.require(s.gameHandler.HandleGuess), "game_guess"))
	mux.HandleFunc("POST /game/hint", MetricsMiddleware(s.authn.require(s.gameHandler.HandleHint), "game_hint"))

	mux.HandleFunc("GET /points/packages", MetricsMiddleware(s.pointsHandler.HandlePackages, "points_packages"))
	mux.HandleFunc("POST /points/purchase", MetricsMiddleware(s.authn.require(s.pointsHandler.HandlePurchase), "points_purchase"))

	mux.HandleFunc("GET /profile", MetricsMiddleware(s.authn.require(s.profileHandler.HandleProfile), "profile"))
	mux.HandleFunc("GET /leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
}

// Handler wraps h with the CORS policy.
func (s *Server) Handler(h http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", idempotencyHeader},
		AllowCredentials: !allowsAny(s.origins),
		MaxAge:           corsMaxAge,
	})(h)
}

func allowsAny(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// fail writes err with the status and code it maps to.
func fail(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}

// decode reads a JSON body of at most 64KiB into v.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return WrapKind("api.decode", ErrBadRequest, err)
	}
	return nil
}

// setSessionCookie stores the access token for browser clients.
func setSessionCookie(w http.ResponseWriter, s auth.Session, secure bool) {
	c := &http.Cookie{
		Name:     sessionCookie,
		Value:    s.AccessToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	if !s.ExpiresAt.IsZero() {
		c.Expires = s.ExpiresAt
		c.MaxAge = int(time.Until(s.ExpiresAt).Seconds())
	}
	http.SetCookie(w, c)
}

func clearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
