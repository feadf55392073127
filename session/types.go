package session

import (
	"errors"
	"time"

	"github.com/jrsteele09/go-cellar-auth/users"
)

// Status is the session state machine position
type Status string

const (
	StatusInitializing    Status = "initializing"
	StatusLoading         Status = "loading"
	StatusAuthenticated   Status = "authenticated"
	StatusUnauthenticated Status = "unauthenticated"
)

// Durable storage keys
const (
	UserKey   = "auth.user"
	TokensKey = "auth.tokens"
)

var ErrClosed = errors.New("session controller closed")

// Tokens is the bearer pair plus the access token's expiry
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// tokensRecord is the auth.tokens wire shape
type tokensRecord struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresAt    string `json:"expiresAt"`
}

// State is a snapshot of the controller. User and Tokens are set only while authenticated.
type State struct {
	Status Status
	User   *users.User
	Tokens *Tokens
	Error  string
}

// Authenticated is shorthand for Status == StatusAuthenticated
func (s State) Authenticated() bool {
	return s.Status == StatusAuthenticated
}

func (s State) clone() State {
	if s.User != nil {
		u := s.User.Clone()
		s.User = &u
	}
	if s.Tokens != nil {
		t := *s.Tokens
		s.Tokens = &t
	}
	return s
}

// Hydration is what LoadStoredSession found in durable storage
type Hydration struct {
	User             *users.User
	Tokens           *Tokens
	Status           Status
	HadStoredSession bool
}

// Credentials for Login. Username wins when both are set.
type Credentials struct {
	Username string
	Email    string
	Password string
}

// Registration for Register. Role defaults to customer.
type Registration struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// RegisterResult tells a sign-up form whether the account is already signed in
type RegisterResult struct {
	AutoSignedIn bool
	Message      string
}
