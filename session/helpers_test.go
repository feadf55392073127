package session_test

import (
	"context"
	"net/http/cookiejar"
	"sync"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-cellar-auth/authapi"
	"github.com/jrsteele09/go-cellar-auth/cookie"
	"github.com/jrsteele09/go-cellar-auth/internal/config"
	"github.com/jrsteele09/go-cellar-auth/session"
	"github.com/jrsteele09/go-cellar-auth/storage"
	"github.com/jrsteele09/go-cellar-auth/token/jwt"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"
)

const shopURL = "http://shop.cellar.test/"

var start = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// signToken issues an access token expiring ttl after now
func signToken(t *testing.T, now time.Time, ttl time.Duration, roles ...string) string {
	t.Helper()
	claims := jwtlib.MapClaims{
		"sub":   "u-42",
		"email": "a@b.com",
		"name":  "Ada",
		"exp":   now.Add(ttl).Unix(),
	}
	if len(roles) > 0 {
		claims["roles"] = roles
	}
	token, err := jwt.NewCreator("session-test-secret").Sign(claims)
	require.NoError(t, err)
	return token
}

type fakeAPI struct {
	mu           sync.Mutex
	obtain       func(authapi.TokenRequest) (authapi.TokenResponse, error)
	refresh      func(string) (authapi.TokenResponse, error)
	register     func(authapi.RegisterRequest) (authapi.RegisterResponse, error)
	tokenReqs    []authapi.TokenRequest
	refreshReqs  []string
	registerReqs []authapi.RegisterRequest
}

var _ session.AuthAPI = (*fakeAPI)(nil)

func (f *fakeAPI) ObtainToken(_ context.Context, req authapi.TokenRequest) (authapi.TokenResponse, error) {
	f.mu.Lock()
	f.tokenReqs = append(f.tokenReqs, req)
	fn := f.obtain
	f.mu.Unlock()
	return fn(req)
}

func (f *fakeAPI) RefreshToken(_ context.Context, refreshToken string) (authapi.TokenResponse, error) {
	f.mu.Lock()
	f.refreshReqs = append(f.refreshReqs, refreshToken)
	fn := f.refresh
	f.mu.Unlock()
	return fn(refreshToken)
}

func (f *fakeAPI) Register(_ context.Context, req authapi.RegisterRequest) (authapi.RegisterResponse, error) {
	f.mu.Lock()
	f.registerReqs = append(f.registerReqs, req)
	fn := f.register
	f.mu.Unlock()
	return fn(req)
}

func (f *fakeAPI) refreshCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.refreshReqs)
}

// tab is one controller with its own clock and cookies, sharing storage through a hub
type tab struct {
	clock *testingclock.FakeClock
	repo  *storage.MemoryRepo
	jar   *cookie.Jar
	store *session.Store
	api   *fakeAPI
	ctrl  *session.Controller
}

func newTab(t *testing.T, hub *storage.MemoryHub) *tab {
	t.Helper()
	cj, err := cookiejar.New(nil)
	require.NoError(t, err)
	jar, err := cookie.NewJar(cj, shopURL)
	require.NoError(t, err)

	tb := &tab{
		clock: testingclock.NewFakeClock(start),
		repo:  hub.Open(),
		jar:   jar,
		api:   &fakeAPI{},
	}
	tb.store = session.NewStore(tb.repo, session.WithCookieWriter(jar), session.WithStoreClock(tb.clock))
	tb.ctrl = session.New(tb.api, tb.store, config.Session{}, session.WithClock(tb.clock))
	t.Cleanup(func() { _ = tb.ctrl.Close() })

	tb.api.obtain = func(authapi.TokenRequest) (authapi.TokenResponse, error) {
		refresh := "r1"
		return authapi.TokenResponse{Access: signToken(t, tb.clock.Now(), 900*time.Second, "customer"), Refresh: &refresh}, nil
	}
	tb.api.refresh = func(string) (authapi.TokenResponse, error) {
		return authapi.TokenResponse{Access: signToken(t, tb.clock.Now(), 900*time.Second, "customer")}, nil
	}
	return tb
}

func (tb *tab) cookieValues() map[string]string {
	values := map[string]string{}
	for _, c := range tb.jar.Cookies() {
		values[c.Name] = c.Value
	}
	return values
}

func (tb *tab) stored(t *testing.T, key string) bool {
	_, err := tb.repo.Get(context.Background(), key)
	return err == nil
}

// requireConsistent checks that an authenticated state carries a live token pair and user
func requireConsistent(t *testing.T, s session.State, now time.Time) {
	t.Helper()
	if s.Status != session.StatusAuthenticated {
		return
	}
	require.NotNil(t, s.User)
	require.NotNil(t, s.Tokens)
	require.False(t, jwt.IsExpiredAt(s.Tokens.AccessToken, now))
}

func requireLoggedOut(t *testing.T, tb *tab) {
	t.Helper()
	s := tb.ctrl.State()
	require.Equal(t, session.StatusUnauthenticated, s.Status)
	require.Nil(t, s.User)
	require.Nil(t, s.Tokens)
	require.False(t, tb.stored(t, session.TokensKey))
	require.False(t, tb.stored(t, session.UserKey))
	require.Empty(t, tb.cookieValues())
	require.Zero(t, tb.clock.Waiters())
}
