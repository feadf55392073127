package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/go-cellar-auth/authapi"
	"github.com/jrsteele09/go-cellar-auth/cookie"
	"github.com/jrsteele09/go-cellar-auth/internal/config"
	"github.com/jrsteele09/go-cellar-auth/internal/utils"
	"github.com/jrsteele09/go-cellar-auth/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"
)

type stubAPI struct {
	obtain   func(authapi.TokenRequest) (authapi.TokenResponse, error)
	register func(authapi.RegisterRequest) (authapi.RegisterResponse, error)
	requests []authapi.TokenRequest
}

func (s *stubAPI) ObtainToken(_ context.Context, req authapi.TokenRequest) (authapi.TokenResponse, error) {
	s.requests = append(s.requests, req)
	return s.obtain(req)
}

func (s *stubAPI) RefreshToken(context.Context, string) (authapi.TokenResponse, error) {
	return authapi.TokenResponse{}, authapi.NewError(http.StatusUnauthorized, nil)
}

func (s *stubAPI) Register(_ context.Context, req authapi.RegisterRequest) (authapi.RegisterResponse, error) {
	return s.register(req)
}

func newServer(t *testing.T, api *stubAPI) *server.Server {
	t.Helper()
	t.Setenv("ENV", "TEST")
	t.Setenv("GUARD_RULES_FILE", "")
	t.Setenv("ALLOWED_ORIGINS", "https://shop.cellar.test")

	srv, err := server.New(config.New(), api,
		server.WithClock(testingclock.NewFakePassiveClock(start)),
		server.WithRegistry(prometheus.NewRegistry()),
	)
	require.NoError(t, err)
	return srv
}

func postForm(srv http.Handler, target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		r.AddCookie(c)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)
	return w
}

func get(srv http.Handler, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, r)
	return w
}

func responseCookies(w *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range w.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

func TestNew_RequiresAPI(t *testing.T) {
	_, err := server.New(config.New(), nil)
	require.Error(t, err)
}

func TestLogin(t *testing.T) {
	api := &stubAPI{obtain: func(req authapi.TokenRequest) (authapi.TokenResponse, error) {
		if req.Password != "secret123" {
			return authapi.TokenResponse{}, authapi.NewError(http.StatusUnauthorized, []byte(`{"detail":"No active account found with the given credentials"}`))
		}
		return authapi.TokenResponse{Access: signToken(t, 900*time.Second, "admin"), Refresh: utils.Ptr("r1")}, nil
	}}
	srv := newServer(t, api)

	t.Run("guard sends the shopper to login", func(t *testing.T) {
		w := get(srv, "/admin/dashboard")
		require.Equal(t, http.StatusTemporaryRedirect, w.Code)
		require.Equal(t, "/login?redirectTo=%2Fadmin%2Fdashboard", w.Header().Get("Location"))
	})

	t.Run("login page keeps the redirect target", func(t *testing.T) {
		w := get(srv, "/login?redirectTo=%2Fadmin%2Fdashboard")
		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Body.String(), `name="redirectTo" value="/admin/dashboard"`)
	})

	t.Run("successful sign in sets cookies and returns", func(t *testing.T) {
		w := postForm(srv, "/auth/login", url.Values{
			"email":      {"ada@cellar.test"},
			"password":   {"secret123"},
			"redirectTo": {"/admin/dashboard"},
		})
		require.Equal(t, http.StatusSeeOther, w.Code)
		require.Equal(t, "/admin/dashboard", w.Header().Get("Location"))

		cookies := responseCookies(w)
		require.Contains(t, cookies, cookie.AccessCookie)
		require.Equal(t, 900, cookies[cookie.AccessCookie].MaxAge)
		require.Equal(t, "admin", cookies[cookie.RolesCookie].Value)
		require.Len(t, cookies, 2)
		for _, c := range cookies {
			require.NotEqual(t, "r1", c.Value, "refresh tokens never reach the browser")
		}

		last := api.requests[len(api.requests)-1]
		require.Equal(t, "ada@cellar.test", last.Email)
		require.Equal(t, "ada@cellar.test", last.Username)

		page := get(srv, "/admin/dashboard", cookies[cookie.AccessCookie])
		require.Equal(t, http.StatusOK, page.Code)
		require.Contains(t, page.Body.String(), "Dashboard")
	})

	t.Run("failed sign in shows the backend message", func(t *testing.T) {
		w := postForm(srv, "/auth/login", url.Values{"email": {"ada@cellar.test"}, "password": {"wrong"}})
		require.Equal(t, http.StatusUnauthorized, w.Code)
		require.Contains(t, w.Body.String(), "No active account found with the given credentials")
		require.Empty(t, responseCookies(w))
	})

	t.Run("missing fields", func(t *testing.T) {
		w := postForm(srv, "/auth/login", url.Values{"email": {"ada@cellar.test"}})
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("offsite redirect is ignored", func(t *testing.T) {
		w := postForm(srv, "/auth/login", url.Values{
			"email":      {"ada@cellar.test"},
			"password":   {"secret123"},
			"redirectTo": {"//evil.test/steal"},
		})
		require.Equal(t, http.StatusSeeOther, w.Code)
		require.Equal(t, "/", w.Header().Get("Location"))
	})
}

func TestLogin_ExpiredTokenFromBackend(t *testing.T) {
	api := &stubAPI{obtain: func(authapi.TokenRequest) (authapi.TokenResponse, error) {
		return authapi.TokenResponse{Access: signToken(t, -time.Minute)}, nil
	}}
	srv := newServer(t, api)

	w := postForm(srv, "/auth/login", url.Values{"email": {"ada"}, "password": {"secret123"}})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "expired token")
	require.Empty(t, responseCookies(w))
}

func TestRegister(t *testing.T) {
	t.Run("auto sign in lands on account", func(t *testing.T) {
		api := &stubAPI{register: func(req authapi.RegisterRequest) (authapi.RegisterResponse, error) {
			require.Equal(t, "customer", req.Role)
			access := signToken(t, time.Hour)
			return authapi.RegisterResponse{Access: &access}, nil
		}}
		srv := newServer(t, api)

		w := postForm(srv, "/auth/register", url.Values{"name": {"Ada"}, "email": {"ada@cellar.test"}, "password": {"secret123"}})
		require.Equal(t, http.StatusSeeOther, w.Code)
		require.Equal(t, "/account", w.Header().Get("Location"))
		require.Equal(t, "customer", responseCookies(w)[cookie.RolesCookie].Value)
	})

	t.Run("confirmation message shows on login", func(t *testing.T) {
		api := &stubAPI{register: func(authapi.RegisterRequest) (authapi.RegisterResponse, error) {
			return authapi.RegisterResponse{Message: "Check your email"}, nil
		}}
		srv := newServer(t, api)

		w := postForm(srv, "/auth/register", url.Values{"name": {"Ada"}, "email": {"ada@cellar.test"}, "password": {"secret123"}})
		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Body.String(), "Check your email")
		require.Empty(t, responseCookies(w))
	})

	t.Run("validation error", func(t *testing.T) {
		api := &stubAPI{register: func(authapi.RegisterRequest) (authapi.RegisterResponse, error) {
			return authapi.RegisterResponse{}, authapi.NewError(http.StatusBadRequest, []byte(`{"detail":"Email already registered"}`))
		}}
		srv := newServer(t, api)

		w := postForm(srv, "/auth/register", url.Values{"email": {"ada@cellar.test"}, "password": {"secret123"}})
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Contains(t, w.Body.String(), "Email already registered")
	})
}

func TestLogout(t *testing.T) {
	srv := newServer(t, &stubAPI{})
	access := &http.Cookie{Name: cookie.AccessCookie, Value: signToken(t, time.Hour, "staff")}

	w := postForm(srv, "/auth/logout", nil, access)
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, "/", w.Header().Get("Location"))

	cookies := responseCookies(w)
	require.Len(t, cookies, 2)
	for _, c := range cookies {
		require.Negative(t, c.MaxAge)
		require.Empty(t, c.Value)
	}
}

func TestSessionInfo(t *testing.T) {
	srv := newServer(t, &stubAPI{})

	t.Run("anonymous", func(t *testing.T) {
		w := get(srv, "/api/session")
		require.Equal(t, http.StatusOK, w.Code)
		require.JSONEq(t, `{"authenticated":false,"roles":[]}`, w.Body.String())
	})

	t.Run("signed in", func(t *testing.T) {
		w := get(srv, "/api/session", &http.Cookie{Name: cookie.AccessCookie, Value: signToken(t, 900*time.Second, "staff")})
		var info server.SessionInfo
		require.NoError(t, json.NewDecoder(w.Body).Decode(&info))
		require.True(t, info.Authenticated)
		require.Equal(t, []string{"staff"}, info.Roles)
		require.Equal(t, "a@b.com", info.User.Email)
		require.Equal(t, "2026-03-01T12:15:00.000Z", info.ExpiresAt)
	})

	t.Run("cors preflight", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodOptions, "/api/session", nil)
		r.Header.Set("Origin", "https://shop.cellar.test")
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, r)
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "https://shop.cellar.test", w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestPages(t *testing.T) {
	srv := newServer(t, &stubAPI{})

	t.Run("public page", func(t *testing.T) {
		w := get(srv, "/catalog")
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "no-store", w.Header().Get("Cache-Control"))
		require.Contains(t, w.Body.String(), `href="/login"`)
	})

	t.Run("forbidden page", func(t *testing.T) {
		w := get(srv, "/forbidden")
		require.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("customer is kept out of the till", func(t *testing.T) {
		w := get(srv, "/staff/pos", &http.Cookie{Name: cookie.AccessCookie, Value: signToken(t, time.Hour, "customer")})
		require.Equal(t, http.StatusTemporaryRedirect, w.Code)
		require.Equal(t, "/forbidden", w.Header().Get("Location"))
	})

	t.Run("stylesheet", func(t *testing.T) {
		w := get(srv, "/css/cellar.css")
		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Header().Get("Content-Type"), "text/css")
		require.Equal(t, http.StatusNotFound, get(srv, "/css/missing.css").Code)
	})

	t.Run("health", func(t *testing.T) {
		require.Equal(t, http.StatusOK, get(srv, "/healthz").Code)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newServer(t, &stubAPI{})
	get(srv, "/admin/dashboard")

	w := get(srv, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `cellar_guard_decisions_total{outcome="login"} 1`)
}
