package server

import (
	"html/template"
	"net/http"

	"github.com/jrsteele09/go-cellar-auth/users"
	"github.com/rs/zerolog/log"
)

const contentTypeHTML = "text/html; charset=utf-8"

// page describes a placeholder storefront surface
type page struct {
	Title       string
	Heading     string
	Description string
}

var (
	homePage      = page{"Home", "Welcome to the cellar", "Browse our wines, fill your cart and track your orders."}
	catalogPage   = page{"Catalog", "Catalog", "Search and filter the wine list."}
	cartPage      = page{"Cart", "Your cart", "Review your bottles and check out."}
	accountPage   = page{"Account", "Your account", "Profile and delivery details."}
	ordersPage    = page{"Orders", "Your orders", "Track deliveries and past purchases."}
	posPage       = page{"Point of sale", "Point of sale", "Ring up in-store purchases."}
	dashboardPage = page{"Dashboard", "Admin dashboard", "Sales and stock at a glance."}
	inventoryPage = page{"Inventory", "Inventory", "Manage stock levels and pricing."}
	forbiddenPage = page{"Forbidden", "Not allowed", "Your account does not have access to that page."}
)

// PageData is rendered by every page template
type PageData struct {
	AppName     string
	Title       string
	Heading     string
	Description string
	User        *users.User
}

func (s *Server) pageData(r *http.Request, p page) PageData {
	return PageData{
		AppName:     s.config.GetAppName(),
		Title:       p.Title,
		Heading:     p.Heading,
		Description: p.Description,
		User:        s.currentUser(r),
	}
}

// PageHandler renders a placeholder storefront page
func (s *Server) PageHandler(tmpl *template.Template, p page) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, tmpl, http.StatusOK, s.pageData(r, p))
	}
}

// ForbiddenHandler is where the guard sends signed-in users who lack a required role
func (s *Server) ForbiddenHandler(tmpl *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, tmpl, http.StatusForbidden, s.pageData(r, forbiddenPage))
	}
}

func (s *Server) render(w http.ResponseWriter, tmpl *template.Template, status int, data any) {
	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		log.Err(err).Msg("Failed to render template")
	}
}
