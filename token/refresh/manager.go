package refresh

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/jrsteele09/go-cellar-auth/internal/errors"
	"k8s.io/utils/clock"
)

const tokenLength = 32 // bytes, 256 bits

// Manager handles refresh token creation, validation, and revocation
type Manager struct {
	repo  Repo
	ttl   time.Duration
	clock clock.PassiveClock
}

type ManagerOption func(*Manager)

func WithClock(c clock.PassiveClock) ManagerOption {
	return func(m *Manager) {
		m.clock = c
	}
}

// NewManager creates a new refresh token manager issuing tokens valid for ttl
func NewManager(repo Repo, ttl time.Duration, options ...ManagerOption) *Manager {
	m := &Manager{
		repo:  repo,
		ttl:   ttl,
		clock: clock.RealClock{},
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Create generates a new refresh token for userID and stores it
func (m *Manager) Create(ctx context.Context, userID string) (string, error) {
	tokenBytes := make([]byte, tokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	token := hex.EncodeToString(tokenBytes)
	if err := m.repo.Upsert(ctx, token, StoredRefreshToken{UserID: userID, Iat: m.clock.Now().UTC()}); err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}
	return token, nil
}

// Get returns a live refresh token. Expired tokens are deleted on sight.
func (m *Manager) Get(ctx context.Context, token string) (*StoredRefreshToken, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.ErrInvalidRefreshToken
	}
	rt, err := m.repo.Get(ctx, token)
	if errors.Is(err, errors.ErrNotFound) {
		return nil, errors.ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, err
	}
	if m.IsExpired(rt) {
		_ = m.repo.Delete(ctx, token)
		return nil, errors.ErrRefreshTokenExpired
	}
	return rt, nil
}

// Delete removes a refresh token from storage
func (m *Manager) Delete(ctx context.Context, token string) error {
	return m.repo.Delete(ctx, token)
}

// IsExpired checks if a refresh token has outlived the configured ttl
func (m *Manager) IsExpired(rt *StoredRefreshToken) bool {
	return m.clock.Since(rt.Iat) > m.ttl
}
