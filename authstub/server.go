package authstub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-cellar-auth/auth"
	fakeuserrepo "github.com/jrsteele09/go-cellar-auth/auth/repofakes"
	"github.com/jrsteele09/go-cellar-auth/authapi"
	"github.com/jrsteele09/go-cellar-auth/internal/config"
	"github.com/jrsteele09/go-cellar-auth/storage"
	"github.com/jrsteele09/go-cellar-auth/token"
	"github.com/jrsteele09/go-cellar-auth/token/jwt"
	"github.com/jrsteele09/go-cellar-auth/token/keys"
	"github.com/jrsteele09/go-cellar-auth/token/refresh"
	"github.com/rs/zerolog/log"
)

// PathJWKS publishes the verification key when the stub signs with RS256
const PathJWKS = "/api/jwks/"

// Server is a development stand-in for the storefront REST backend. It serves the token,
// refresh and register endpoints with the same bodies and error shapes as the real one.
type Server struct {
	accounts *auth.AccountService
	signer   keys.Signer
	mux      *http.ServeMux
	store    storage.Repo
}

// New wires the stub from configuration: refresh tokens live in the configured storage
// backend, accounts in memory, seeded with one account per role.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	signer, err := newSigner(cfg)
	if err != nil {
		return nil, fmt.Errorf("[authstub New] %w", err)
	}

	store, err := storage.Open(ctx, cfg, "stub")
	if err != nil {
		return nil, fmt.Errorf("[authstub New] %w", err)
	}

	users := fakeuserrepo.NewFakeUserRepo()
	tokens := token.New(
		jwt.NewCreator(cfg.GetJWTSecret(), jwt.WithSigner(signer), jwt.WithTTL(cfg.GetAccessTokenTTL())),
		refresh.NewManager(refresh.NewStorageRepo(store), cfg.GetRefreshTokenTTL()),
		auth.LookupUser(users),
		token.WithRotation(cfg.GetRotateRefreshTokens()),
	)
	accounts, err := auth.NewAccountService(users, tokens, auth.WithAutoLogin(cfg.GetRegisterAutoLogin()))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("[authstub New] %w", err)
	}
	if err := accounts.Seed(ctx, cfg.GetSeedDomain(), cfg.GetSeedPassword()); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("[authstub New] %w", err)
	}

	s := NewWithService(accounts, signer)
	s.store = store
	return s, nil
}

// NewWithService serves an already assembled account service
func NewWithService(accounts *auth.AccountService, signer keys.Signer) *Server {
	s := &Server{
		accounts: accounts,
		signer:   signer,
		mux:      http.NewServeMux(),
	}
	s.initRoutes()
	return s
}

func newSigner(cfg config.StubConfig) (keys.Signer, error) {
	switch alg := cfg.GetSigningAlgorithm(); alg {
	case keys.HS256:
		return keys.NewHMACSigner(cfg.GetJWTSecret()), nil
	case keys.RS256:
		keyPair, err := keys.LoadOrGenerateKeyPair("cellar-stub", cfg.GetSigningKeyFile())
		if err != nil {
			return nil, err
		}
		return keys.NewKeyPairSigner(keyPair), nil
	default:
		return nil, fmt.Errorf("unsupported signing algorithm %q", alg)
	}
}

func (s *Server) initRoutes() {
	s.mux.HandleFunc("POST "+authapi.PathToken, s.withLogging(s.TokenHandler))
	s.mux.HandleFunc("POST "+authapi.PathTokenRefresh, s.withLogging(s.RefreshHandler))
	s.mux.HandleFunc("POST "+authapi.PathRegister, s.withLogging(s.RegisterHandler))
	s.mux.HandleFunc("GET "+PathJWKS, s.withLogging(s.JWKSHandler))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Close releases the refresh token storage
func (s *Server) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

func (s *Server) withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("authstub request")
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Err(err).Msg("authstub encoding response")
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, authapi.ErrorResponse{Detail: detail})
}
