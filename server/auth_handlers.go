package server

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-cellar-auth/authapi"
	"github.com/jrsteele09/go-cellar-auth/cookie"
	"github.com/jrsteele09/go-cellar-auth/internal/utils"
	"github.com/jrsteele09/go-cellar-auth/session"
	"github.com/jrsteele09/go-cellar-auth/users"
	"github.com/rs/zerolog/log"
)

var errExpiredToken = &authapi.Error{Status: http.StatusOK, Message: "The authentication service issued an expired token"}

// LoginPageData contains data for rendering the login page
type LoginPageData struct {
	PageData
	RedirectTo string
	Email      string // Preserve email on error
	Error      string
	Notice     string
}

// RegisterPageData contains data for rendering the registration page
type RegisterPageData struct {
	PageData
	Name  string
	Email string
	Error string
}

// LoginPageHandler displays the login page (GET /login)
func (s *Server) LoginPageHandler(tmpl *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := LoginPageData{
			PageData:   s.pageData(r, page{Title: "Sign in"}),
			RedirectTo: safeRedirect(r.URL.Query().Get("redirectTo")),
			Email:      r.URL.Query().Get("email"),
			Notice:     r.URL.Query().Get("notice"),
		}
		s.render(w, tmpl, http.StatusOK, data)
	}
}

// LoginSubmissionHandler posts the credentials to the token endpoint and, on success, sets the
// session cookies and returns the shopper to where the guard stopped them.
func (s *Server) LoginSubmissionHandler(tmpl *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		identifier := strings.TrimSpace(r.FormValue("email"))
		password := r.FormValue("password")
		redirectTo := safeRedirect(r.FormValue("redirectTo"))

		data := LoginPageData{
			PageData:   s.pageData(r, page{Title: "Sign in"}),
			RedirectTo: redirectTo,
			Email:      identifier,
		}

		if identifier == "" || password == "" {
			data.Error = "Email and password are required"
			s.render(w, tmpl, http.StatusBadRequest, data)
			return
		}

		resp, err := s.api.ObtainToken(r.Context(), authapi.TokenRequest{
			Email:    identifier,
			Username: identifier,
			Password: password,
		})
		if err == nil {
			_, err = s.startSession(w, r, resp.Access)
		}
		if err != nil {
			log.Info().Err(err).Str("identifier", identifier).Msg("storefront sign in failed")
			s.metrics.AuthAttempts.WithLabelValues("login", "failed").Inc()
			data.Error = authapi.DisplayMessage(err)
			s.render(w, tmpl, http.StatusUnauthorized, data)
			return
		}

		s.metrics.AuthAttempts.WithLabelValues("login", "succeeded").Inc()
		http.Redirect(w, r, redirectTo, http.StatusSeeOther)
	}
}

// RegisterPageHandler displays the sign-up page (GET /register)
func (s *Server) RegisterPageHandler(tmpl *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, tmpl, http.StatusOK, RegisterPageData{PageData: s.pageData(r, page{Title: "Create an account"})})
	}
}

// RegisterSubmissionHandler creates a customer account. When the backend signs the account
// straight in the shopper lands on their account page, otherwise on the login page with the
// backend's message.
func (s *Server) RegisterSubmissionHandler(tmpl, loginTmpl *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		data := RegisterPageData{
			PageData: s.pageData(r, page{Title: "Create an account"}),
			Name:     strings.TrimSpace(r.FormValue("name")),
			Email:    strings.TrimSpace(r.FormValue("email")),
		}
		password := r.FormValue("password")

		resp, err := s.api.Register(r.Context(), authapi.RegisterRequest{
			Name:     data.Name,
			Email:    data.Email,
			Password: password,
			Role:     string(users.DefaultRole),
		})
		if err == nil && resp.AutoSignedIn() {
			_, err = s.startSession(w, r, *resp.Access)
		}
		if err != nil {
			log.Info().Err(err).Str("email", data.Email).Msg("storefront registration failed")
			s.metrics.AuthAttempts.WithLabelValues("register", "failed").Inc()
			data.Error = authapi.DisplayMessage(err)
			s.render(w, tmpl, http.StatusBadRequest, data)
			return
		}

		s.metrics.AuthAttempts.WithLabelValues("register", "succeeded").Inc()
		if resp.AutoSignedIn() {
			http.Redirect(w, r, RouteAccount, http.StatusSeeOther)
			return
		}

		s.render(w, loginTmpl, http.StatusOK, LoginPageData{
			PageData:   s.pageData(r, page{Title: "Sign in"}),
			RedirectTo: RouteAccount,
			Email:      data.Email,
			Notice:     utils.FirstNonEmpty(resp.Message, "Account created. Please sign in."),
		})
	}
}

// LogoutHandler expires the session cookies
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session.ClearCookies(cookie.ResponseWriter{W: w})
		http.Redirect(w, r, RouteIndex, http.StatusSeeOther)
	}
}
