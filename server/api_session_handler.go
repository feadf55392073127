package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/go-cellar-auth/cookie"
	"github.com/jrsteele09/go-cellar-auth/token/jwt"
	"github.com/jrsteele09/go-cellar-auth/users"
	"github.com/rs/zerolog/log"
)

// SessionInfo is what the route guard can tell from the request's cookies
type SessionInfo struct {
	Authenticated bool        `json:"authenticated"`
	User          *users.User `json:"user,omitempty"`
	ExpiresAt     string      `json:"expiresAt,omitempty"`
	Roles         []string    `json:"roles"`
}

// SessionInfoHandler reports the session as the guard sees it (GET /api/session)
func (s *Server) SessionInfoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		info := SessionInfo{Roles: []string{}}
		if user := s.currentUser(r); user != nil {
			access, _ := cookie.GetAccess(r)
			info.Authenticated = true
			info.User = user
			info.Roles = user.Roles
			info.ExpiresAt = jwt.FormatISO(jwt.ExpiresAtFrom(access, s.clock.Now()))
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(info); err != nil {
			log.Err(err).Msg("encoding session info")
		}
	}
}
