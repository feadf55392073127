package authapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/jrsteele09/go-cellar-auth/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 1 << 20

// Client calls the remote auth endpoints. Transient failures (connection errors, 5xx, 429)
// are retried by the underlying retryablehttp client; 4xx responses are returned at once.
type Client struct {
	baseURL string
	http    *retryablehttp.Client
}

type ClientOption func(*Client)

// WithHTTPClient replaces the transport used underneath the retry loop
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http.HTTPClient = hc
	}
}

func NewClient(baseURL string, cfg config.ClientConfig, options ...ClientOption) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.GetHTTPRetryMax()
	rc.RetryWaitMin = cfg.GetHTTPRetryWaitMin()
	rc.RetryWaitMax = cfg.GetHTTPRetryWaitMax()
	rc.HTTPClient.Timeout = cfg.GetHTTPTimeout()
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = NewLeveledLogger(log.Logger)

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    rc,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// ObtainToken posts credentials to the token endpoint
func (c *Client) ObtainToken(ctx context.Context, req TokenRequest) (TokenResponse, error) {
	var resp TokenResponse
	if err := c.post(ctx, PathToken, req, &resp); err != nil {
		return TokenResponse{}, err
	}
	if resp.Access == "" {
		return TokenResponse{}, &Error{Status: http.StatusOK, Message: "Token response did not include an access token"}
	}
	return resp, nil
}

// RefreshToken exchanges a refresh token for a new access token
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (TokenResponse, error) {
	var resp TokenResponse
	if err := c.post(ctx, PathTokenRefresh, RefreshRequest{Refresh: refreshToken}, &resp); err != nil {
		return TokenResponse{}, err
	}
	if resp.Access == "" {
		return TokenResponse{}, &Error{Status: http.StatusOK, Message: "Refresh response did not include an access token"}
	}
	return resp, nil
}

// Register creates an account
func (c *Client) Register(ctx context.Context, req RegisterRequest) (RegisterResponse, error) {
	var resp RegisterResponse
	if err := c.post(ctx, PathRegister, req, &resp); err != nil {
		return RegisterResponse{}, err
	}
	return resp, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("[authapi Client post] marshal %s: %w", path, err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("[authapi Client post] build %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Unreachable(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Unreachable(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return NewError(resp.StatusCode, data)
	}

	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Status: resp.StatusCode, Message: "Unexpected response from the authentication service", Err: err}
	}
	return nil
}

// LeveledLogger routes retryablehttp logging through zerolog
type LeveledLogger struct {
	logger zerolog.Logger
}

var _ retryablehttp.LeveledLogger = LeveledLogger{}

func NewLeveledLogger(logger zerolog.Logger) LeveledLogger {
	return LeveledLogger{logger: logger.With().Str("component", "authapi").Logger()}
}

func (l LeveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Fields(keysAndValues).Msg(msg)
}

func (l LeveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info().Fields(keysAndValues).Msg(msg)
}

func (l LeveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l LeveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}
