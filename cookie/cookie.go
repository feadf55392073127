package cookie

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Cookies mirrored from the durable session record so the route guard can see them
const (
	AccessCookie = "auth.access"
	RolesCookie  = "auth.roles"
)

// Writer receives cookies. A response writer (server side) and a cookie jar
// (session clients such as the POS terminal) both satisfy it through the adapters below.
type Writer interface {
	SetCookie(c *http.Cookie)
}

// ResponseWriter sets cookies on an HTTP response
type ResponseWriter struct {
	W http.ResponseWriter
}

func (rw ResponseWriter) SetCookie(c *http.Cookie) {
	http.SetCookie(rw.W, c)
}

// Jar stores cookies for one origin, the way a browser keeps them for the storefront
type Jar struct {
	jar http.CookieJar
	url *url.URL
}

func NewJar(jar http.CookieJar, rawURL string) (*Jar, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("[cookie NewJar] invalid url %q: %w", rawURL, err)
	}
	return &Jar{jar: jar, url: u}, nil
}

func (j *Jar) SetCookie(c *http.Cookie) {
	j.jar.SetCookies(j.url, []*http.Cookie{c})
}

// Cookies returns what the jar would send to the origin
func (j *Jar) Cookies() []*http.Cookie {
	return j.jar.Cookies(j.url)
}

// Discard drops every cookie
type Discard struct{}

func (Discard) SetCookie(*http.Cookie) {}

// MaxAgeSeconds is the whole seconds left until expiresAt, never negative
func MaxAgeSeconds(expiresAt, now time.Time) int {
	remaining := expiresAt.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(remaining / time.Second)
}

// New builds a storefront cookie. A zero maxAge expires the cookie immediately.
func New(name, value string, maxAge int, secure bool) *http.Cookie {
	if maxAge <= 0 {
		// net/http renders MaxAge < 0 as "Max-Age=0"; MaxAge == 0 would mean a session cookie
		maxAge = -1
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
}

// Clear removes a cookie by setting MaxAge to -1
func Clear(w Writer, name string) {
	w.SetCookie(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// Get retrieves a cookie value from the request
func Get(r *http.Request, name string) (string, error) {
	c, err := r.Cookie(name)
	if err != nil {
		return "", err
	}
	return c.Value, nil
}

// GetAccess retrieves the access token cookie value
func GetAccess(r *http.Request) (string, error) {
	return Get(r, AccessCookie)
}

// GetRoles retrieves the comma-joined roles cookie value
func GetRoles(r *http.Request) (string, error) {
	return Get(r, RolesCookie)
}
