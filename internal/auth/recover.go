package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNoToken is returned when a Recoverer has nothing to offer.
var ErrNoToken = errors.New("auth: no token available")

// FileRecoverer reads a token from a file kept up to date by a browser
// helper that copies access_token out of an open portal tab.
type FileRecoverer struct {
	Path string
}

// Recover returns the file's trimmed contents.
func (f FileRecoverer) Recover(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.Path == "" {
		return "", ErrNoToken
	}
	raw, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}
	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}
