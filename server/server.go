package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-cellar-auth/internal/config"
	"github.com/jrsteele09/go-cellar-auth/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"k8s.io/utils/clock"
)

// Server is the storefront's page server. It signs shoppers in against the auth backend,
// mirrors the session into cookies and gates protected pages with the route guard.
type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	handler  http.HandlerFunc
	routes   []string
	config   config.Config
	api      session.AuthAPI
	guard    *Guard
	metrics  *Metrics
	registry *prometheus.Registry
	clock    clock.PassiveClock
}

type Option func(*Server)

// WithClock replaces the clock used for token expiry and cookie max-age
func WithClock(c clock.PassiveClock) Option {
	return func(s *Server) {
		s.clock = c
	}
}

// WithRegistry serves and registers metrics on reg instead of a fresh registry
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}

func New(cfg config.Config, api session.AuthAPI, options ...Option) (*Server, error) {
	if api == nil {
		return nil, fmt.Errorf("[Server New] an auth API client is required")
	}

	s := &Server{
		env:    cfg.GetEnv(),
		mux:    http.NewServeMux(),
		config: cfg,
		api:    api,
		clock:  clock.RealClock{},
	}
	for _, opt := range options {
		opt(s)
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
		s.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	s.metrics = NewMetrics(s.registry)
	s.guard = NewGuard(cfg, WithGuardClock(s.clock), WithGuardMetrics(s.metrics))

	if err := s.initRoutes(); err != nil {
		return nil, fmt.Errorf("[Server New] %w", err)
	}
	s.handler = s.guard.Middleware(s.mux.ServeHTTP)
	s.logRoutes()

	return s, nil
}

// ServeHTTP runs every request through the route guard before routing it
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler(w, r)
}

// Guard exposes the route guard so other handlers can be wrapped with it
func (s *Server) Guard() *Guard {
	return s.guard
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Debug().Msgf("[%-19s] %s", displayMethod, path)
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
