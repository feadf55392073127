package session_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/go-cellar-auth/cookie"
	"github.com/jrsteele09/go-cellar-auth/session"
	"github.com/jrsteele09/go-cellar-auth/storage"
	"github.com/jrsteele09/go-cellar-auth/users"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"
)

func TestStore_Persist(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewMemoryRepo()
	rec := httptest.NewRecorder()
	store := session.NewStore(repo,
		session.WithCookieWriter(cookie.ResponseWriter{W: rec}),
		session.WithSecureCookies(true),
		session.WithStoreClock(testingclock.NewFakePassiveClock(start)),
	)

	access := signToken(t, start, 900*time.Second, "staff", "admin")
	user := users.User{ID: "u-42", Name: "Ada", Email: "a@b.com", Roles: []string{"staff", "admin"}}
	tokens := session.Tokens{AccessToken: access, RefreshToken: "r1", ExpiresAt: start.Add(900 * time.Second)}
	require.NoError(t, store.Persist(ctx, user, tokens))

	raw, err := repo.Get(ctx, session.TokensKey)
	require.NoError(t, err)
	var record map[string]string
	require.NoError(t, json.Unmarshal(raw, &record))
	require.Equal(t, map[string]string{
		"accessToken":  access,
		"refreshToken": "r1",
		"expiresAt":    "2026-03-01T12:15:00.000Z",
	}, record)

	raw, err = repo.Get(ctx, session.UserKey)
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"u-42","name":"Ada","email":"a@b.com","roles":["staff","admin"]}`, string(raw))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	for _, c := range cookies {
		require.Equal(t, 900, c.MaxAge)
		require.Equal(t, "/", c.Path)
		require.True(t, c.Secure)
	}
	require.Equal(t, access, cookies[0].Value)
	require.Equal(t, "staff,admin", cookies[1].Value)
}

func TestStore_PersistExpired(t *testing.T) {
	rec := httptest.NewRecorder()
	store := session.NewStore(storage.NewMemoryRepo(),
		session.WithCookieWriter(cookie.ResponseWriter{W: rec}),
		session.WithStoreClock(testingclock.NewFakePassiveClock(start)),
	)
	tokens := session.Tokens{AccessToken: "x", RefreshToken: "r1", ExpiresAt: start.Add(-time.Minute)}
	require.NoError(t, store.Persist(context.Background(), users.User{Roles: []string{"customer"}}, tokens))

	for _, c := range rec.Result().Cookies() {
		require.Equal(t, -1, c.MaxAge, "max-age is never negative on the wire")
	}
}

func TestStore_Clear(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewMemoryRepo()
	rec := httptest.NewRecorder()
	store := session.NewStore(repo, session.WithCookieWriter(cookie.ResponseWriter{W: rec}))

	require.NoError(t, repo.Set(ctx, session.TokensKey, []byte(`{}`)))
	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx))

	h := store.LoadStoredSession(ctx)
	require.False(t, h.HadStoredSession)
	require.Len(t, rec.Result().Cookies(), 4)
}

func TestStore_LoadStoredSession(t *testing.T) {
	ctx := context.Background()
	clock := testingclock.NewFakePassiveClock(start)
	access := signToken(t, start, 900*time.Second, "admin")

	seed := func(t *testing.T, tokens, user string) *session.Store {
		repo := storage.NewMemoryRepo()
		if tokens != "" {
			require.NoError(t, repo.Set(ctx, session.TokensKey, []byte(tokens)))
		}
		if user != "" {
			require.NoError(t, repo.Set(ctx, session.UserKey, []byte(user)))
		}
		return session.NewStore(repo, session.WithStoreClock(clock))
	}
	tokensJSON := func(access, refresh, expiresAt string) string {
		data, err := json.Marshal(map[string]string{"accessToken": access, "refreshToken": refresh, "expiresAt": expiresAt})
		require.NoError(t, err)
		return string(data)
	}

	t.Run("empty", func(t *testing.T) {
		h := seed(t, "", "").LoadStoredSession(ctx)
		require.Equal(t, session.StatusUnauthenticated, h.Status)
		require.False(t, h.HadStoredSession)
	})

	t.Run("valid", func(t *testing.T) {
		h := seed(t, tokensJSON(access, "r1", "2026-03-01T12:15:00.000Z"), `{"id":"7","name":"Ada","email":"a@b.com","roles":["admin"]}`).LoadStoredSession(ctx)
		require.Equal(t, session.StatusAuthenticated, h.Status)
		require.True(t, h.HadStoredSession)
		require.Equal(t, "7", h.User.ID)
		require.Equal(t, "r1", h.Tokens.RefreshToken)
	})

	t.Run("unparseable expiry is read from the token", func(t *testing.T) {
		h := seed(t, tokensJSON(access, "r1", "soon"), "").LoadStoredSession(ctx)
		require.Equal(t, session.StatusAuthenticated, h.Status)
		require.True(t, start.Add(900*time.Second).Equal(h.Tokens.ExpiresAt))
	})

	t.Run("missing user is derived from the token", func(t *testing.T) {
		h := seed(t, tokensJSON(access, "r1", ""), "").LoadStoredSession(ctx)
		require.Equal(t, session.StatusAuthenticated, h.Status)
		require.Equal(t, "a@b.com", h.User.Email)
		require.Equal(t, []string{"admin"}, h.User.Roles)
	})

	t.Run("missing refresh token", func(t *testing.T) {
		h := seed(t, tokensJSON(access, "", ""), "").LoadStoredSession(ctx)
		require.Equal(t, session.StatusUnauthenticated, h.Status)
		require.True(t, h.HadStoredSession)
		require.Nil(t, h.User)
		require.Nil(t, h.Tokens)
	})

	t.Run("expired", func(t *testing.T) {
		expired := signToken(t, start, -time.Second)
		h := seed(t, tokensJSON(expired, "r1", "2099-01-01T00:00:00.000Z"), "").LoadStoredSession(ctx)
		require.Equal(t, session.StatusUnauthenticated, h.Status)
		require.True(t, h.HadStoredSession)
	})

	t.Run("corrupt user record", func(t *testing.T) {
		h := seed(t, tokensJSON(access, "r1", ""), `{"id":`).LoadStoredSession(ctx)
		require.Equal(t, session.StatusUnauthenticated, h.Status)
		require.True(t, h.HadStoredSession)
	})

	t.Run("orphaned user record", func(t *testing.T) {
		h := seed(t, "", `{"id":"7"}`).LoadStoredSession(ctx)
		require.Equal(t, session.StatusUnauthenticated, h.Status)
		require.True(t, h.HadStoredSession)
	})
}

func TestStore_Watch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := storage.NewMemoryHub()
	clock := testingclock.NewFakePassiveClock(start)
	watcher := session.NewStore(hub.Open(), session.WithStoreClock(clock))
	writer := session.NewStore(hub.Open(), session.WithStoreClock(clock))

	seen := make(chan session.Hydration, 4)
	require.NoError(t, watcher.Watch(ctx, func(h session.Hydration) { seen <- h }))

	access := signToken(t, start, time.Hour)
	require.NoError(t, writer.Persist(ctx, users.User{ID: "1", Roles: []string{"customer"}}, session.Tokens{
		AccessToken: access, RefreshToken: "r1", ExpiresAt: start.Add(time.Hour),
	}))

	select {
	case h := <-seen:
		require.Equal(t, session.StatusAuthenticated, h.Status)
		require.Equal(t, access, h.Tokens.AccessToken)
	case <-time.After(time.Second):
		t.Fatal("watcher did not see the other writer")
	}
}
