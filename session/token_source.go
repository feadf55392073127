package session

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-cellar-auth/internal/errors"
	"github.com/jrsteele09/go-cellar-auth/token/jwt"
	"golang.org/x/oauth2"
)

type tokenSource struct {
	ctx  context.Context
	ctrl *Controller
}

var _ oauth2.TokenSource = tokenSource{}

// TokenSource lets consuming surfaces (cart, POS, inventory) attach the session's bearer token
// to their REST calls. An expired access token is refreshed first.
func (c *Controller) TokenSource(ctx context.Context) oauth2.TokenSource {
	return tokenSource{ctx: ctx, ctrl: c}
}

func (ts tokenSource) Token() (*oauth2.Token, error) {
	state := ts.ctrl.State()
	if state.Authenticated() && jwt.IsExpiredAt(state.Tokens.AccessToken, ts.ctrl.clock.Now()) {
		if err := ts.ctrl.Refresh(ts.ctx); err != nil {
			return nil, fmt.Errorf("[session TokenSource] %w", err)
		}
		state = ts.ctrl.State()
	}
	if !state.Authenticated() {
		return nil, fmt.Errorf("[session TokenSource] %w", errors.ErrNotAuthenticated)
	}
	return &oauth2.Token{
		AccessToken:  state.Tokens.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: state.Tokens.RefreshToken,
		Expiry:       state.Tokens.ExpiresAt,
	}, nil
}

// HTTPClient returns a client that sends the current access token on every request.
// Tokens are read per request, so a logout takes effect immediately.
func (c *Controller) HTTPClient(ctx context.Context) *http.Client {
	return &http.Client{
		Transport: &oauth2.Transport{
			Source: c.TokenSource(ctx),
			Base:   http.DefaultTransport,
		},
	}
}
