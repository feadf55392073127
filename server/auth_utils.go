package server

import (
	"net/http"
	"strings"

	"github.com/jrsteele09/go-cellar-auth/cookie"
	"github.com/jrsteele09/go-cellar-auth/session"
	"github.com/jrsteele09/go-cellar-auth/token/jwt"
	"github.com/jrsteele09/go-cellar-auth/users"
)

// currentUser reads the signed-in user from the auth.access cookie, or nil
func (s *Server) currentUser(r *http.Request) *users.User {
	access, err := cookie.GetAccess(r)
	if err != nil || jwt.IsExpiredAt(access, s.clock.Now()) {
		return nil
	}
	user := jwt.DeriveUser(access)
	return &user
}

// startSession mirrors a freshly issued access token into the guard's cookies. The storefront
// keeps no refresh token: a browser session ends when its access token expires.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request, access string) (users.User, error) {
	now := s.clock.Now()
	if jwt.IsExpiredAt(access, now) {
		return users.User{}, errExpiredToken
	}
	user := jwt.DeriveUser(access)
	tokens := session.Tokens{
		AccessToken: access,
		ExpiresAt:   jwt.ExpiresAtFrom(access, now),
	}
	session.WriteCookies(cookie.ResponseWriter{W: w}, user, tokens, now, getScheme(r) == "https")
	return user, nil
}

// safeRedirect keeps post-login redirects on this site
func safeRedirect(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return RouteIndex
	}
	return target
}
