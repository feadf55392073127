package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jrsteele09/go-cellar-auth/cookie"
	"github.com/jrsteele09/go-cellar-auth/internal/errors"
	"github.com/jrsteele09/go-cellar-auth/storage"
	"github.com/jrsteele09/go-cellar-auth/token/jwt"
	"github.com/jrsteele09/go-cellar-auth/users"
	"github.com/rs/zerolog/log"
	"k8s.io/utils/clock"
)

// Store persists the session record and mirrors it into the cookies the route guard reads
type Store struct {
	repo    storage.Repo
	cookies cookie.Writer
	secure  bool
	clock   clock.PassiveClock
}

type StoreOption func(*Store)

// WithCookieWriter sets where auth.access and auth.roles are mirrored
func WithCookieWriter(w cookie.Writer) StoreOption {
	return func(s *Store) {
		s.cookies = w
	}
}

// WithSecureCookies marks mirrored cookies Secure
func WithSecureCookies(secure bool) StoreOption {
	return func(s *Store) {
		s.secure = secure
	}
}

func WithStoreClock(c clock.PassiveClock) StoreOption {
	return func(s *Store) {
		s.clock = c
	}
}

func NewStore(repo storage.Repo, options ...StoreOption) *Store {
	s := &Store{
		repo:    repo,
		cookies: cookie.Discard{},
		clock:   clock.RealClock{},
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Persist writes auth.tokens then auth.user and mirrors both cookies
func (s *Store) Persist(ctx context.Context, user users.User, tokens Tokens) error {
	record, err := json.Marshal(tokensRecord{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    jwt.FormatISO(tokens.ExpiresAt),
	})
	if err != nil {
		return fmt.Errorf("[Store Persist] marshal tokens: %w", err)
	}
	userRecord, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("[Store Persist] marshal user: %w", err)
	}

	if err := s.repo.Set(ctx, TokensKey, record); err != nil {
		return fmt.Errorf("[Store Persist] %w", err)
	}
	if err := s.repo.Set(ctx, UserKey, userRecord); err != nil {
		return fmt.Errorf("[Store Persist] %w", err)
	}

	s.MirrorCookies(user, tokens)
	return nil
}

// MirrorCookies writes auth.access and auth.roles without touching durable storage
func (s *Store) MirrorCookies(user users.User, tokens Tokens) {
	WriteCookies(s.cookies, user, tokens, s.clock.Now(), s.secure)
}

// Clear removes both records and expires both cookies, even when a delete fails
func (s *Store) Clear(ctx context.Context) error {
	err := errors.Join(
		s.repo.Delete(ctx, TokensKey),
		s.repo.Delete(ctx, UserKey),
	)
	ClearCookies(s.cookies)
	if err != nil {
		return fmt.Errorf("[Store Clear] %w", err)
	}
	return nil
}

// LoadStoredSession validates whatever durable storage holds. It never fails: unreadable or
// corrupt records are logged and reported as unauthenticated with HadStoredSession set, so the
// caller knows to scrub them.
func (s *Store) LoadStoredSession(ctx context.Context) Hydration {
	unauthenticated := Hydration{Status: StatusUnauthenticated}

	rawTokens, tokensFound := s.read(ctx, TokensKey)
	rawUser, userFound := s.read(ctx, UserKey)
	unauthenticated.HadStoredSession = tokensFound || userFound
	if rawTokens == nil {
		return unauthenticated
	}

	var record tokensRecord
	if err := json.Unmarshal(rawTokens, &record); err != nil {
		log.Warn().Err(err).Str("key", TokensKey).Msg("discarding corrupt stored session")
		return unauthenticated
	}
	if record.AccessToken == "" || record.RefreshToken == "" {
		return unauthenticated
	}

	now := s.clock.Now()
	if jwt.IsExpiredAt(record.AccessToken, now) {
		log.Debug().Msg("stored session has expired")
		return unauthenticated
	}

	tokens := Tokens{
		AccessToken:  record.AccessToken,
		RefreshToken: record.RefreshToken,
		ExpiresAt:    parseExpiry(record.ExpiresAt, record.AccessToken, now),
	}

	user := jwt.DeriveUser(record.AccessToken)
	if rawUser != nil {
		var stored users.User
		if err := json.Unmarshal(rawUser, &stored); err != nil {
			log.Warn().Err(err).Str("key", UserKey).Msg("discarding corrupt stored session")
			return unauthenticated
		}
		if len(stored.Roles) == 0 {
			stored.Roles = user.Roles
		}
		user = stored
	}

	return Hydration{
		User:             &user,
		Tokens:           &tokens,
		Status:           StatusAuthenticated,
		HadStoredSession: true,
	}
}

// read returns the raw record and whether anything (even unreadable) is stored under key
func (s *Store) read(ctx context.Context, key string) ([]byte, bool) {
	data, err := s.repo.Get(ctx, key)
	if errors.Is(err, errors.ErrNotFound) {
		return nil, false
	}
	if err != nil {
		log.Err(err).Str("key", key).Msg("reading stored session")
		return nil, true
	}
	return data, true
}

// Watch re-hydrates whenever another writer changes either record and hands the result to fn.
// fn runs on a single goroutine until ctx ends.
func (s *Store) Watch(ctx context.Context, fn func(Hydration)) error {
	changes, err := s.repo.Watch(ctx)
	if err != nil {
		return fmt.Errorf("[Store Watch] %w", err)
	}
	go func() {
		for change := range changes {
			if change.Key != TokensKey && change.Key != UserKey {
				continue
			}
			log.Debug().Str("key", change.Key).Str("origin", change.Origin).Msg("stored session changed")
			fn(s.LoadStoredSession(ctx))
		}
	}()
	return nil
}

// parseExpiry trusts a stored expiresAt only when it parses, otherwise reads it off the token
func parseExpiry(stored, accessToken string, now time.Time) time.Time {
	if t, err := time.Parse(time.RFC3339, stored); err == nil {
		return t.UTC()
	}
	return jwt.ExpiresAtFrom(accessToken, now)
}

// WriteCookies mirrors an access token and its roles with max-age set to the time left
func WriteCookies(w cookie.Writer, user users.User, tokens Tokens, now time.Time, secure bool) {
	maxAge := cookie.MaxAgeSeconds(tokens.ExpiresAt, now)
	w.SetCookie(cookie.New(cookie.AccessCookie, tokens.AccessToken, maxAge, secure))
	w.SetCookie(cookie.New(cookie.RolesCookie, users.JoinRoles(user.Roles), maxAge, secure))
}

// ClearCookies expires auth.access and auth.roles
func ClearCookies(w cookie.Writer) {
	cookie.Clear(w, cookie.AccessCookie)
	cookie.Clear(w, cookie.RolesCookie)
}
