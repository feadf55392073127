package token

import (
	"context"

	"github.com/jrsteele09/go-cellar-auth/token/jwt"
	"github.com/jrsteele09/go-cellar-auth/token/refresh"
	"github.com/jrsteele09/go-cellar-auth/users"
	"github.com/pkg/errors"
)

// Pair is what the token endpoints return. Refresh is nil when the refresh grant
// keeps the caller's existing refresh token.
type Pair struct {
	Access  string
	Refresh *string
}

// UserLookup resolves the user a refresh token was issued to
type UserLookup func(ctx context.Context, userID string) (*users.User, error)

// Manager issues access tokens and refresh tokens for the development backend
type Manager struct {
	creator *jwt.Creator
	refresh *refresh.Manager
	lookup  UserLookup
	rotate  bool
}

type ManagerOption func(*Manager)

// WithRotation makes the refresh grant revoke the presented refresh token and issue a new one
func WithRotation(rotate bool) ManagerOption {
	return func(m *Manager) {
		m.rotate = rotate
	}
}

func New(creator *jwt.Creator, refreshManager *refresh.Manager, lookup UserLookup, options ...ManagerOption) *Manager {
	m := &Manager{
		creator: creator,
		refresh: refreshManager,
		lookup:  lookup,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Issue creates a fresh pair for user
func (m *Manager) Issue(ctx context.Context, user *users.User) (*Pair, error) {
	access, err := m.creator.CreateAccessToken(*user)
	if err != nil {
		return nil, errors.Wrap(err, "Manager.Issue CreateAccessToken")
	}
	rt, err := m.refresh.Create(ctx, user.ID)
	if err != nil {
		return nil, errors.Wrap(err, "Manager.Issue CreateRefreshToken")
	}
	return &Pair{Access: access, Refresh: &rt}, nil
}

// Refresh exchanges a refresh token for a new access token. Errors from the refresh manager
// (invalid or expired token) are returned unwrapped so callers can match them.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (*Pair, error) {
	rt, err := m.refresh.Get(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := m.lookup(ctx, rt.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "user not found for refresh token")
	}

	access, err := m.creator.CreateAccessToken(*user)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create access token")
	}
	if !m.rotate {
		return &Pair{Access: access}, nil
	}

	// Rotate refresh token (delete old, create new)
	if err := m.refresh.Delete(ctx, refreshToken); err != nil {
		return nil, errors.Wrap(err, "failed to revoke refresh token")
	}
	newRefreshToken, err := m.refresh.Create(ctx, user.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create new refresh token")
	}
	return &Pair{Access: access, Refresh: &newRefreshToken}, nil
}

// AccessTTL is how long issued access tokens live
func (m *Manager) AccessTTL() int {
	return int(m.creator.TTL().Seconds())
}
