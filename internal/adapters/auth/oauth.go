package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	// GoogleProvider is the name the Google OAuth provider registers under.
	GoogleProvider   = "google"
	googleUserInfo   = "https://www.googleapis.com/oauth2/v2/userinfo"
	stateTTL         = 10 * time.Minute
	userInfoMaxBytes = 1 << 20
)

// OAuthProvider configures one external identity provider.
type OAuthProvider struct {
	Config      *oauth2.Config
	UserInfoURL string
}

// Google returns the Google provider configuration.
func Google(clientID, clientSecret, redirectURL string) OAuthProvider {
	return OAuthProvider{
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		UserInfoURL: googleUserInfo,
	}
}

func (p OAuthProvider) configured() bool {
	return p.Config != nil && p.Config.ClientID != "" && p.Config.ClientSecret != ""
}

type oauthUser struct {
	Subject string
	Email   string
	Name    string
}

// fetchUser reads the userinfo document with the exchanged token.
func (p OAuthProvider) fetchUser(ctx context.Context, tok *oauth2.Token) (oauthUser, error) {
	client := p.Config.Client(ctx, tok)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.UserInfoURL, nil)
	if err != nil {
		return oauthUser{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return oauthUser{}, fmt.Errorf("fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return oauthUser{}, fmt.Errorf("fetch user info: status %d", resp.StatusCode)
	}
	var payload struct {
		ID    string `json:"id"`
		Sub   string `json:"sub"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, userInfoMaxBytes)).Decode(&payload); err != nil {
		return oauthUser{}, fmt.Errorf("decode user info: %w", err)
	}
	u := oauthUser{Subject: payload.ID, Email: payload.Email, Name: payload.Name}
	if u.Subject == "" {
		u.Subject = payload.Sub
	}
	if u.Email == "" {
		return oauthUser{}, fmt.Errorf("user info has no email")
	}
	return u, nil
}

// states remembers issued OAuth state values until used or expired.
type states struct {
	mu      sync.Mutex
	pending map[string]pendingState
	now     func() time.Time
}

type pendingState struct {
	provider string
	expires  time.Time
}

func newStates(now func() time.Time) *states {
	return &states{pending: make(map[string]pendingState), now: now}
}

func (s *states) issue(provider string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, p := range s.pending {
		if now.After(p.expires) {
			delete(s.pending, k)
		}
	}
	state := uuid.NewString()
	s.pending[state] = pendingState{provider: provider, expires: now.Add(stateTTL)}
	return state
}

// consume validates state once; a second call with the same value fails.
func (s *states) consume(provider, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[state]
	if !ok {
		return ErrOAuthState
	}
	delete(s.pending, state)
	if p.provider != provider || s.now().After(p.expires) {
		return ErrOAuthState
	}
	return nil
}
