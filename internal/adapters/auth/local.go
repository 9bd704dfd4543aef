package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/okian/guessr/internal/adapters/repository"
	"github.com/okian/guessr/internal/domain/model"
	"github.com/okian/guessr/pkg/logger"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
)

const (
	minPasswordLength = 6
	defaultTokenTTL   = time.Hour
)

// Local is a self-hosted Provider: accounts live in an AccountStore and
// sessions are stateless JWTs.
type Local struct {
	accounts repository.AccountStore
	tokens   *Tokens
	hub      *Hub
	oauth    map[string]OAuthProvider
	states   *states

	ttl        time.Duration
	bcryptCost int
	now        func() time.Time
	log        logger.Logger
}

// NewLocal creates a provider that signs tokens with secret.
func NewLocal(accounts repository.AccountStore, secret []byte, opts ...Option) (*Local, error) {
	if accounts == nil {
		return nil, errors.New("account store is required")
	}
	if len(secret) == 0 {
		return nil, errors.New("token secret is required")
	}
	l := &Local{
		accounts:   accounts,
		hub:        NewHub(),
		oauth:      make(map[string]OAuthProvider),
		ttl:        defaultTokenTTL,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.tokens = NewTokens(secret, l.ttl, l.now)
	l.states = newStates(l.now)
	return l, nil
}

// Close stops event delivery.
func (l *Local) Close() { l.hub.Close() }

// Subscribe implements Provider.
func (l *Local) Subscribe(fn Listener) func() { return l.hub.Subscribe(fn) }

// GetSession implements Provider.
func (l *Local) GetSession(ctx context.Context, token string) (Session, error) {
	claims, err := l.tokens.Verify(token)
	if err != nil {
		return Session{}, err
	}
	acct, err := l.accounts.AccountByID(ctx, claims.Subject)
	if errors.Is(err, repository.ErrNotFound) {
		return Session{}, fmt.Errorf("%w: account %s is gone", ErrUnauthenticated, claims.Subject)
	}
	if err != nil {
		return Session{}, fmt.Errorf("%w: %w", ErrProvider, err)
	}
	s := Session{AccessToken: token, User: userOf(acct)}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}

// SignUp implements Provider. A successful sign-up is also a sign-in.
func (l *Local) SignUp(ctx context.Context, email, password string, metadata map[string]string) (Session, error) {
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return Session{}, fmt.Errorf("%w: email %q", ErrInvalidSignUp, email)
	}
	if len(password) < minPasswordLength {
		return Session{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidSignUp, minPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), l.bcryptCost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	acct := model.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Metadata:     metadata,
		CreatedAt:    l.now(),
	}
	if err := l.accounts.CreateAccount(ctx, acct); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return Session{}, ErrEmailTaken
		}
		return Session{}, fmt.Errorf("%w: %w", ErrProvider, err)
	}
	l.log.Info(ctx, "account created", logger.UserID(acct.ID))
	return l.signIn(ctx, acct)
}

// SignInWithPassword implements Provider.
func (l *Local) SignInWithPassword(ctx context.Context, email, password string) (Session, error) {
	acct, err := l.accounts.AccountByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, repository.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("%w: %w", ErrProvider, err)
	}
	if acct.PasswordHash == "" {
		return Session{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)) != nil {
		return Session{}, ErrInvalidCredentials
	}
	return l.signIn(ctx, acct)
}

// SignInWithOAuth implements Provider.
func (l *Local) SignInWithOAuth(_ context.Context, provider string) (string, string, error) {
	p, ok := l.oauth[provider]
	if !ok || !p.configured() {
		return "", "", fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
	state := l.states.issue(provider)
	return p.Config.AuthCodeURL(state, oauth2.AccessTypeOnline), state, nil
}

// CompleteOAuth implements Provider. Accounts are matched by email and
// created on first use.
func (l *Local) CompleteOAuth(ctx context.Context, provider, state, code string) (Session, error) {
	p, ok := l.oauth[provider]
	if !ok || !p.configured() {
		return Session{}, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
	if err := l.states.consume(provider, state); err != nil {
		return Session{}, err
	}
	if code == "" {
		return Session{}, fmt.Errorf("%w: missing authorization code", ErrProvider)
	}

	tok, err := p.Config.Exchange(ctx, code)
	if err != nil {
		return Session{}, fmt.Errorf("%w: exchange code: %w", ErrProvider, err)
	}
	info, err := p.fetchUser(ctx, tok)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %w", ErrProvider, err)
	}

	acct, err := l.accounts.AccountByEmail(ctx, info.Email)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		acct = model.Account{
			ID:        uuid.NewString(),
			Email:     info.Email,
			Metadata:  map[string]string{"provider": provider, "subject": info.Subject},
			CreatedAt: l.now(),
		}
		if info.Name != "" {
			acct.Metadata["full_name"] = info.Name
		}
		if err := l.accounts.CreateAccount(ctx, acct); err != nil {
			return Session{}, fmt.Errorf("%w: %w", ErrProvider, err)
		}
		l.log.Info(ctx, "oauth account created", logger.UserID(acct.ID), logger.String("provider", provider))
	default:
		return Session{}, fmt.Errorf("%w: %w", ErrProvider, err)
	}
	return l.signIn(ctx, acct)
}

// SignOut implements Provider. The token stops verifying immediately.
func (l *Local) SignOut(ctx context.Context, token string) error {
	claims, err := l.tokens.Verify(token)
	if err != nil {
		return err
	}
	l.tokens.Revoke(claims)

	user := User{ID: claims.Subject, Email: claims.Email}
	if acct, err := l.accounts.AccountByID(ctx, claims.Subject); err == nil {
		user = userOf(acct)
	}
	l.hub.Publish(ctx, Event{
		ID:      uuid.NewString(),
		Type:    SignedOut,
		Session: Session{AccessToken: token, User: user},
	})
	return nil
}

func (l *Local) signIn(ctx context.Context, acct model.Account) (Session, error) {
	u := userOf(acct)
	token, exp, err := l.tokens.Issue(u)
	if err != nil {
		return Session{}, err
	}
	s := Session{AccessToken: token, ExpiresAt: exp, User: u}
	l.hub.Publish(ctx, Event{ID: uuid.NewString(), Type: SignedIn, Session: s})
	return s, nil
}

func userOf(a model.Account) User {
	return User{ID: a.ID, Email: a.Email, Metadata: a.Metadata}
}

var _ Provider = (*Local)(nil)
