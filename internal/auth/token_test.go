package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	token   string
	readErr error
	sets    int
}

func (m *memStore) AccessToken(ctx context.Context) (string, error) { return m.token, m.readErr }

func (m *memStore) SetAccessToken(ctx context.Context, token string) error {
	m.token = token
	m.sets++
	return nil
}

type recoverFunc func(ctx context.Context) (string, error)

func (f recoverFunc) Recover(ctx context.Context) (string, error) { return f(ctx) }

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewBuilder().Subject("employee-1").Expiration(exp).Build()
	require.NoError(t, err)
	raw, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte("portal-secret")))
	require.NoError(t, err)
	return string(raw)
}

func TestExpired(t *testing.T) {
	now := time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC)

	testCases := []struct {
		name     string
		token    string
		expected bool
	}{
		{name: "Empty", token: "", expected: true},
		{name: "Opaque token", token: "not-a-jwt", expected: false},
		{name: "Valid JWT", token: signed(t, now.Add(time.Hour)), expected: false},
		{name: "Expired JWT", token: signed(t, now.Add(-time.Minute)), expected: true},
		{name: "Expires exactly now", token: signed(t, now), expected: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Expired(tc.token, now))
		})
	}
}

func TestTokenSource_Token(t *testing.T) {
	store := &memStore{}
	src := NewTokenSource(store, nil, " env-token ")

	token, err := src.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "env-token", token, "fallback while nothing is stored")

	require.NoError(t, src.Set(context.Background(), "stored\n"))
	token, err = src.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "stored", token)

	store.readErr = errors.New("db down")
	_, err = src.Token(context.Background())
	assert.Error(t, err)
}

func TestTokenSource_Recover(t *testing.T) {
	now := time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC)
	fresh := signed(t, now.Add(8*time.Hour))

	testCases := []struct {
		name      string
		recoverer Recoverer
		stale     string
		expected  bool
	}{
		{name: "No recoverer", recoverer: nil, stale: "old", expected: false},
		{name: "Fresh token", recoverer: recoverFunc(func(context.Context) (string, error) { return fresh, nil }), stale: "old", expected: true},
		{name: "Same as stale", recoverer: recoverFunc(func(context.Context) (string, error) { return "old", nil }), stale: "old", expected: false},
		{name: "Recovered token already expired", recoverer: recoverFunc(func(context.Context) (string, error) { return signed(t, now.Add(-time.Hour)), nil }), stale: "", expected: false},
		{name: "Recoverer fails", recoverer: recoverFunc(func(context.Context) (string, error) { return "", ErrNoToken }), stale: "old", expected: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := &memStore{token: tc.stale}
			src := NewTokenSource(store, tc.recoverer, "")

			assert.Equal(t, tc.expected, src.Recover(context.Background(), tc.stale, now))
			if tc.expected {
				assert.Equal(t, fresh, store.token)
				assert.Equal(t, 1, store.sets)
			} else {
				assert.Equal(t, 0, store.sets)
			}
		})
	}
}

func TestFileRecoverer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token")

	_, err := FileRecoverer{Path: path}.Recover(context.Background())
	assert.ErrorIs(t, err, ErrNoToken, "missing file")

	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o600))
	_, err = FileRecoverer{Path: path}.Recover(context.Background())
	assert.ErrorIs(t, err, ErrNoToken, "blank file")

	require.NoError(t, os.WriteFile(path, []byte("abc.def.ghi\n"), 0o600))
	token, err := FileRecoverer{Path: path}.Recover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)

	_, err = FileRecoverer{}.Recover(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = FileRecoverer{Path: path}.Recover(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
