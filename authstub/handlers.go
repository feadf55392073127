package authstub

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/go-cellar-auth/auth"
	"github.com/jrsteele09/go-cellar-auth/authapi"
	"github.com/jrsteele09/go-cellar-auth/internal/errors"
	"github.com/jrsteele09/go-cellar-auth/token/keys"
	"github.com/rs/zerolog/log"
)

const (
	maxBodyBytes       = 1 << 16
	invalidCredentials = "No active account found with the given credentials"
	invalidRefresh     = "Token is invalid or expired"
)

// TokenHandler exchanges credentials for a token pair (POST /api/token/)
func (s *Server) TokenHandler(w http.ResponseWriter, r *http.Request) {
	var req authapi.TokenRequest
	if !decode(w, r, &req) {
		return
	}

	pair, err := s.accounts.Login(r.Context(), req.Email, req.Username, req.Password)
	var invalid *auth.ValidationError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, authapi.TokenResponse{Access: pair.Access, Refresh: pair.Refresh})
	case errors.As(err, &invalid):
		writeDetail(w, http.StatusBadRequest, invalid.Error())
	case errors.Is(err, auth.UserNotFoundErr), errors.Is(err, auth.UserPasswordsDontMatchErr),
		errors.Is(err, auth.UserBlockedErr), errors.Is(err, auth.UserUnverifiedErr):
		log.Info().Str("email", req.Email).Str("username", req.Username).Err(err).Msg("authstub login refused")
		writeDetail(w, http.StatusUnauthorized, invalidCredentials)
	default:
		internalError(w, err)
	}
}

// RefreshHandler runs the refresh grant (POST /api/token/refresh/)
func (s *Server) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	var req authapi.RefreshRequest
	if !decode(w, r, &req) {
		return
	}

	pair, err := s.accounts.Refresh(r.Context(), req.Refresh)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, authapi.TokenResponse{Access: pair.Access, Refresh: pair.Refresh})
	case errors.Is(err, errors.ErrInvalidRefreshToken), errors.Is(err, errors.ErrRefreshTokenExpired),
		errors.Is(err, auth.UserNotFoundErr), errors.Is(err, auth.UserBlockedErr):
		writeDetail(w, http.StatusUnauthorized, invalidRefresh)
	default:
		internalError(w, err)
	}
}

// RegisterHandler creates a customer account (POST /api/register/)
func (s *Server) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req authapi.RegisterRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := s.accounts.Register(r.Context(), auth.RegisterRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	var invalid *auth.ValidationError
	switch {
	case err == nil:
	case errors.Is(err, auth.UserExistsErr):
		writeDetail(w, http.StatusBadRequest, "A user with that email already exists.")
		return
	case errors.As(err, &invalid):
		writeDetail(w, http.StatusBadRequest, invalid.Error())
		return
	default:
		internalError(w, err)
		return
	}

	if result.Tokens == nil {
		writeJSON(w, http.StatusCreated, authapi.RegisterResponse{Message: result.Message})
		return
	}
	writeJSON(w, http.StatusCreated, authapi.RegisterResponse{Access: &result.Tokens.Access, Refresh: result.Tokens.Refresh})
}

// JWKSHandler publishes the RS256 verification key (GET /api/jwks/)
func (s *Server) JWKSHandler(w http.ResponseWriter, _ *http.Request) {
	keyPairSigner, ok := s.signer.(*keys.KeyPairSigner)
	if !ok {
		writeDetail(w, http.StatusNotFound, "JWKS only supported for asymmetric signing")
		return
	}
	jwks, err := keyPairSigner.GetJWKS()
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jwks)
}

func decode(w http.ResponseWriter, r *http.Request, into any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(into); err != nil {
		writeDetail(w, http.StatusBadRequest, "Malformed JSON body")
		return false
	}
	return true
}

func internalError(w http.ResponseWriter, err error) {
	log.Err(err).Msg("authstub request failed")
	writeDetail(w, http.StatusInternalServerError, "Internal server error")
}
