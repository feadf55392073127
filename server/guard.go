package server

import (
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/jrsteele09/go-cellar-auth/cookie"
	"github.com/jrsteele09/go-cellar-auth/internal/config"
	"github.com/jrsteele09/go-cellar-auth/token/jwt"
	"github.com/jrsteele09/go-cellar-auth/users"
	"github.com/rs/zerolog/log"
	"k8s.io/utils/clock"
)

// Guard gates protected pages on the auth.access cookie before they render. The token is
// decoded, never verified: the backend enforces authorization on every API call.
type Guard struct {
	rules         []config.GuardRule
	loginPath     string
	forbiddenPath string
	clock         clock.PassiveClock
	metrics       *Metrics
}

// Decision is the guard's verdict for one request. Location is set for redirects.
type Decision struct {
	Outcome  string
	Location string
	Rule     *config.GuardRule
}

type GuardOption func(*Guard)

func WithGuardClock(c clock.PassiveClock) GuardOption {
	return func(g *Guard) {
		g.clock = c
	}
}

func WithGuardMetrics(m *Metrics) GuardOption {
	return func(g *Guard) {
		g.metrics = m
	}
}

// NewGuard builds a guard over rules, evaluated in order
func NewGuard(cfg config.GuardConfig, options ...GuardOption) *Guard {
	g := &Guard{
		rules:         cfg.GetGuardRules(),
		loginPath:     cfg.GetLoginPath(),
		forbiddenPath: cfg.GetForbiddenPath(),
		clock:         clock.RealClock{},
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

// Match returns the first rule whose pattern covers urlPath
func (g *Guard) Match(urlPath string) (*config.GuardRule, bool) {
	cleaned := path.Clean("/" + urlPath)
	for i := range g.rules {
		if matchPattern(g.rules[i].Pattern, cleaned) {
			return &g.rules[i], true
		}
	}
	return nil, false
}

// matchPattern supports exact paths, path.Match globs and a trailing /** for a whole subtree
func matchPattern(pattern, urlPath string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/**"); ok {
		return urlPath == prefix || strings.HasPrefix(urlPath, prefix+"/")
	}
	if strings.ContainsAny(pattern, "*?[") {
		matched, err := path.Match(pattern, urlPath)
		return err == nil && matched
	}
	return pattern == urlPath
}

// Evaluate decides what happens to r without writing a response
func (g *Guard) Evaluate(r *http.Request) Decision {
	rule, ok := g.Match(r.URL.Path)
	if !ok {
		return Decision{Outcome: OutcomeUnprotected}
	}

	access, err := cookie.GetAccess(r)
	if err != nil || jwt.IsExpiredAt(access, g.clock.Now()) {
		return Decision{
			Outcome:  OutcomeLogin,
			Location: g.loginPath + "?redirectTo=" + url.QueryEscape(r.URL.RequestURI()),
			Rule:     rule,
		}
	}

	if !users.HasAnyRole(jwt.DeriveUser(access).Roles, rule.RequiredRoles) {
		return Decision{Outcome: OutcomeForbidden, Location: g.forbiddenPath, Rule: rule}
	}
	return Decision{Outcome: OutcomeGranted, Rule: rule}
}

// Middleware applies Evaluate, redirecting with 307 when access is refused
func (g *Guard) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		decision := g.Evaluate(r)
		if g.metrics != nil {
			g.metrics.GuardDecisions.WithLabelValues(decision.Outcome).Inc()
		}

		if decision.Location == "" {
			next(w, r)
			return
		}

		log.Info().
			Str("path", r.URL.Path).
			Str("rule", decision.Rule.Pattern).
			Str("outcome", decision.Outcome).
			Msg("route guard redirect")
		http.Redirect(w, r, decision.Location, http.StatusTemporaryRedirect)
	}
}
