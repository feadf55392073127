package cookie_test

import (
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/go-cellar-auth/cookie"
	"github.com/stretchr/testify/require"
)

func TestMaxAgeSeconds(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.Equal(t, 900, cookie.MaxAgeSeconds(now.Add(900*time.Second), now))
	require.Equal(t, 1, cookie.MaxAgeSeconds(now.Add(1999*time.Millisecond), now))
	require.Equal(t, 0, cookie.MaxAgeSeconds(now.Add(500*time.Millisecond), now))
	require.Equal(t, 0, cookie.MaxAgeSeconds(now, now))
	require.Equal(t, 0, cookie.MaxAgeSeconds(now.Add(-time.Hour), now))
}

func TestNew(t *testing.T) {
	c := cookie.New(cookie.AccessCookie, "token", 120, false)
	require.Equal(t, "/", c.Path)
	require.Equal(t, http.SameSiteLaxMode, c.SameSite)
	require.Equal(t, 120, c.MaxAge)

	expired := cookie.New(cookie.AccessCookie, "token", 0, false)
	require.Equal(t, -1, expired.MaxAge)
	require.Contains(t, expired.String(), "Max-Age=0")
}

func TestResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	w := cookie.ResponseWriter{W: rec}
	w.SetCookie(cookie.New(cookie.RolesCookie, "staff,admin", 60, true))
	cookie.Clear(w, cookie.AccessCookie)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	require.Equal(t, cookie.RolesCookie, cookies[0].Name)
	require.Equal(t, "staff,admin", cookies[0].Value)
	require.True(t, cookies[0].Secure)
	require.Equal(t, cookie.AccessCookie, cookies[1].Name)
	require.Equal(t, -1, cookies[1].MaxAge)
}

func TestJar(t *testing.T) {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	w, err := cookie.NewJar(jar, "http://shop.cellar.test/")
	require.NoError(t, err)

	w.SetCookie(cookie.New(cookie.AccessCookie, "token-1", 300, false))
	require.Len(t, w.Cookies(), 1)
	require.Equal(t, "token-1", w.Cookies()[0].Value)

	cookie.Clear(w, cookie.AccessCookie)
	require.Empty(t, w.Cookies())
}

func TestGet(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/admin", nil)
	r.AddCookie(&http.Cookie{Name: cookie.AccessCookie, Value: "abc"})

	access, err := cookie.GetAccess(r)
	require.NoError(t, err)
	require.Equal(t, "abc", access)

	_, err = cookie.GetRoles(r)
	require.ErrorIs(t, err, http.ErrNoCookie)
}
