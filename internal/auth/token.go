package auth

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwt"
)

// TokenStore persists the bearer token between cycles.
type TokenStore interface {
	// AccessToken returns the stored token, or "" when none is stored.
	AccessToken(ctx context.Context) (string, error)
	SetAccessToken(ctx context.Context, token string) error
}

// Recoverer looks for a fresh token outside the store, e.g. one captured
// from a logged-in browser session.
type Recoverer interface {
	Recover(ctx context.Context) (string, error)
}

// TokenSource yields the bearer token used for portal calls.
type TokenSource struct {
	store     TokenStore
	recoverer Recoverer
	fallback  string
}

// NewTokenSource creates a TokenSource. fallback is used while the store
// holds no token; recoverer may be nil.
func NewTokenSource(store TokenStore, recoverer Recoverer, fallback string) *TokenSource {
	return &TokenSource{store: store, recoverer: recoverer, fallback: strings.TrimSpace(fallback)}
}

// Token returns the current token, or "" when there is none.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	token, err := s.store.AccessToken(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read access token: %w", err)
	}
	if token == "" {
		token = s.fallback
	}
	return token, nil
}

// Set stores a token supplied by the user.
func (s *TokenSource) Set(ctx context.Context, token string) error {
	return s.store.SetAccessToken(ctx, strings.TrimSpace(token))
}

// Recover asks the Recoverer for a token and stores it when it differs from
// stale and is not already expired. It reports whether a new token was stored.
func (s *TokenSource) Recover(ctx context.Context, stale string, now time.Time) bool {
	if s.recoverer == nil {
		return false
	}
	fresh, err := s.recoverer.Recover(ctx)
	if err != nil {
		log.Printf("Token recovery failed: %v", err)
		return false
	}
	fresh = strings.TrimSpace(fresh)
	if fresh == "" || fresh == stale || Expired(fresh, now) {
		return false
	}
	if err := s.store.SetAccessToken(ctx, fresh); err != nil {
		log.Printf("Failed to store recovered token: %v", err)
		return false
	}
	log.Println("Recovered a fresh access token.")
	return true
}

// Expired reports whether token is a JWT whose exp claim is at or before
// now. The signature is not checked; the portal does that. Opaque tokens
// and tokens without exp are never considered expired here.
func Expired(token string, now time.Time) bool {
	if token == "" {
		return true
	}
	parsed, err := jwt.ParseString(token, jwt.WithVerify(false), jwt.WithValidate(false))
	if err != nil {
		return false
	}
	exp := parsed.Expiration()
	if exp.IsZero() {
		return false
	}
	return !exp.After(now)
}
