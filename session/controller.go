package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/go-cellar-auth/authapi"
	"github.com/jrsteele09/go-cellar-auth/internal/config"
	"github.com/jrsteele09/go-cellar-auth/internal/errors"
	"github.com/jrsteele09/go-cellar-auth/internal/utils"
	"github.com/jrsteele09/go-cellar-auth/token/jwt"
	"github.com/jrsteele09/go-cellar-auth/users"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
	"k8s.io/utils/clock"
)

// AuthAPI is the subset of the remote auth endpoints the controller drives
type AuthAPI interface {
	ObtainToken(ctx context.Context, req authapi.TokenRequest) (authapi.TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (authapi.TokenResponse, error)
	Register(ctx context.Context, req authapi.RegisterRequest) (authapi.RegisterResponse, error)
}

var _ AuthAPI = (*authapi.Client)(nil)

// Controller owns one storefront session: it talks to the auth endpoints, keeps the durable
// record in step with memory and refreshes the access token before it expires.
//
// Transitions (state, storage and timer together) are serialised; network calls are not.
// Overlapping Refresh calls for the same refresh token share one round trip, overlapping
// Login calls resolve last-write-wins.
type Controller struct {
	api      AuthAPI
	store    *Store
	clock    clock.WithDelayedExecution
	leadTime time.Duration
	minDelay time.Duration

	transition sync.Mutex // held across a state change and its storage write
	refreshes  singleflight.Group

	mu          sync.RWMutex
	state       State
	version     uint64
	timer       clock.Timer
	timerGen    uint64
	nextRefresh time.Time
	initialized bool
	closed      bool
	stopWatch   context.CancelFunc

	notifyMu    sync.Mutex
	delivered   uint64
	subscribers map[int]func(State)
	nextSubID   int
}

type Option func(*Controller)

// WithClock replaces the clock used for expiry checks and the refresh timer
func WithClock(c clock.WithDelayedExecution) Option {
	return func(ctrl *Controller) {
		ctrl.clock = c
	}
}

func New(api AuthAPI, store *Store, cfg config.SessionConfig, options ...Option) *Controller {
	c := &Controller{
		api:         api,
		store:       store,
		clock:       clock.RealClock{},
		leadTime:    cfg.GetRefreshLeadTime(),
		minDelay:    cfg.GetMinRefreshDelay(),
		state:       State{Status: StatusInitializing},
		subscribers: make(map[int]func(State)),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Init hydrates from durable storage and starts following changes made by other writers.
// A stored session that is no longer valid is scrubbed. Calling Init again is a no-op.
func (c *Controller) Init(ctx context.Context) error {
	c.transition.Lock()
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.transition.Unlock()
		return ErrClosed
	}
	if c.initialized {
		c.mu.Unlock()
		c.transition.Unlock()
		return nil
	}
	c.initialized = true
	c.mu.Unlock()

	h := c.store.LoadStoredSession(ctx)
	if h.Status == StatusAuthenticated {
		c.adoptLocked(*h.User, *h.Tokens, "")
		c.store.MirrorCookies(*h.User, *h.Tokens)
		log.Info().Str("user", h.User.Email).Msg("session restored")
	} else {
		c.setStateLocked(State{Status: StatusUnauthenticated})
		if h.HadStoredSession {
			log.Info().Msg("clearing invalid stored session")
			if err := c.store.Clear(ctx); err != nil {
				log.Err(err).Msg("clearing invalid stored session")
			}
		}
	}
	snapshot, version := c.snapshot()
	c.transition.Unlock()
	c.publish(snapshot, version)

	watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if err := c.store.Watch(watchCtx, c.onStorageChange); err != nil {
		cancel()
		log.Warn().Err(err).Msg("session storage changes will not be followed")
		return nil
	}
	c.mu.Lock()
	c.stopWatch = cancel
	c.mu.Unlock()
	return nil
}

// State returns a snapshot of the session
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.clone()
}

// NextRefresh reports when the pending refresh timer fires
func (c *Controller) NextRefresh() (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nextRefresh, c.timer != nil
}

// Subscribe calls fn with the current state and then after every change. fn runs on the
// goroutine that made the change. The returned func removes the subscription.
func (c *Controller) Subscribe(fn func(State)) func() {
	c.notifyMu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = fn
	c.notifyMu.Unlock()

	fn(c.State())

	return func() {
		c.notifyMu.Lock()
		defer c.notifyMu.Unlock()
		delete(c.subscribers, id)
	}
}

// Login exchanges credentials for tokens. The identifier is sent as both email and username.
// On failure the session is unauthenticated, the message is kept in State().Error and the
// error is returned for the form to show.
func (c *Controller) Login(ctx context.Context, creds Credentials) error {
	identifier := utils.FirstNonEmpty(creds.Username, creds.Email)
	c.beginLoading()

	resp, err := c.api.ObtainToken(ctx, authapi.TokenRequest{
		Email:    identifier,
		Username: identifier,
		Password: creds.Password,
	})
	if err != nil {
		log.Info().Err(err).Str("identifier", identifier).Msg("login failed")
		c.fail(ctx, err)
		return err
	}

	if err := c.applySession(ctx, c.tokensFrom(resp.Access, resp.Refresh, "")); err != nil {
		c.fail(ctx, err)
		return err
	}
	return nil
}

// Register creates an account. When the backend signs the account straight in the session is
// applied; otherwise the backend's message is returned and any previous session is cleared.
func (c *Controller) Register(ctx context.Context, reg Registration) (RegisterResult, error) {
	role := utils.FirstNonEmpty(reg.Role, string(users.DefaultRole))
	c.beginLoading()

	resp, err := c.api.Register(ctx, authapi.RegisterRequest{
		Name:     reg.Name,
		Email:    reg.Email,
		Password: reg.Password,
		Role:     role,
	})
	if err != nil {
		log.Info().Err(err).Str("email", reg.Email).Msg("registration failed")
		c.fail(ctx, err)
		return RegisterResult{}, err
	}

	if !resp.AutoSignedIn() {
		c.transition.Lock()
		if err := c.logoutLocked(ctx, ""); err != nil {
			log.Err(err).Msg("clearing session after registration")
		}
		snapshot, version := c.snapshot()
		c.transition.Unlock()
		c.publish(snapshot, version)
		return RegisterResult{AutoSignedIn: false, Message: resp.Message}, nil
	}

	if err := c.applySession(ctx, c.tokensFrom(*resp.Access, resp.Refresh, "")); err != nil {
		c.fail(ctx, err)
		return RegisterResult{}, err
	}
	return RegisterResult{AutoSignedIn: true, Message: resp.Message}, nil
}

// Refresh exchanges the refresh token for a new access token. Without a refresh token it does
// nothing. Any failure logs the session out; the error is still returned to direct callers.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.RLock()
	var previous string
	if c.state.Tokens != nil {
		previous = c.state.Tokens.RefreshToken
	}
	c.mu.RUnlock()
	if previous == "" {
		return nil
	}

	_, err, _ := c.refreshes.Do(previous, func() (any, error) {
		return nil, c.refreshWith(ctx, previous)
	})
	return err
}

func (c *Controller) refreshWith(ctx context.Context, previous string) error {
	resp, err := c.api.RefreshToken(ctx, previous)
	if err == nil {
		err = c.applySession(ctx, c.tokensFrom(resp.Access, resp.Refresh, previous))
	}
	if errors.Is(err, ErrClosed) {
		return err
	}
	if err != nil {
		log.Warn().Err(err).Msg("session refresh failed, logging out")
		if logoutErr := c.Logout(ctx); logoutErr != nil {
			log.Err(logoutErr).Msg("logout after failed refresh")
		}
		return fmt.Errorf("[Controller Refresh] %w", err)
	}
	log.Debug().Msg("session refreshed")
	return nil
}

// Logout cancels the refresh timer and clears memory and storage. It is safe to call repeatedly.
func (c *Controller) Logout(ctx context.Context) error {
	c.transition.Lock()
	err := c.logoutLocked(ctx, "")
	snapshot, version := c.snapshot()
	c.transition.Unlock()
	c.publish(snapshot, version)
	return err
}

// Close stops the refresh timer and storage watching. The stored session is left in place.
func (c *Controller) Close() error {
	c.transition.Lock()
	defer c.transition.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.stopTimerLocked()
	if c.stopWatch != nil {
		c.stopWatch()
	}
	c.mu.Unlock()

	c.notifyMu.Lock()
	c.subscribers = make(map[int]func(State))
	c.notifyMu.Unlock()
	return nil
}

// applySession is the only way into the authenticated state: derive the user, persist,
// arm the refresh timer.
func (c *Controller) applySession(ctx context.Context, tokens Tokens) error {
	if jwt.IsExpiredAt(tokens.AccessToken, c.clock.Now()) {
		return fmt.Errorf("[Controller applySession] %w", errors.ErrTokenExpired)
	}
	user := jwt.DeriveUser(tokens.AccessToken)

	c.transition.Lock()
	if c.isClosed() {
		c.transition.Unlock()
		return ErrClosed
	}
	c.adoptLocked(user, tokens, "")
	if err := c.store.Persist(ctx, user, tokens); err != nil {
		log.Err(err).Msg("persisting session")
	}
	snapshot, version := c.snapshot()
	c.transition.Unlock()

	c.publish(snapshot, version)
	log.Info().Str("user", user.Email).Strs("roles", user.Roles).Msg("session applied")
	return nil
}

// onStorageChange converges on whatever another writer left in storage
func (c *Controller) onStorageChange(h Hydration) {
	ctx := context.Background()

	c.transition.Lock()
	if c.isClosed() {
		c.transition.Unlock()
		return
	}
	current := c.State()

	if h.Status == StatusAuthenticated {
		if current.Tokens != nil && current.Tokens.AccessToken == h.Tokens.AccessToken &&
			current.Tokens.RefreshToken == h.Tokens.RefreshToken {
			c.transition.Unlock()
			return
		}
		user := jwt.DeriveUser(h.Tokens.AccessToken)
		c.adoptLocked(user, *h.Tokens, "")
		c.store.MirrorCookies(user, *h.Tokens)
		log.Info().Str("user", user.Email).Msg("session changed by another writer")
	} else {
		if current.Status == StatusUnauthenticated && current.Tokens == nil {
			c.transition.Unlock()
			return
		}
		log.Info().Msg("session ended by another writer")
		if err := c.logoutLocked(ctx, ""); err != nil {
			log.Err(err).Msg("logout after storage change")
		}
	}

	snapshot, version := c.snapshot()
	c.transition.Unlock()
	c.publish(snapshot, version)
}

// onTimer runs outside the clock's callback so the clock's lock is never held here
func (c *Controller) onTimer(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.timerGen {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	canRefresh := c.state.Tokens != nil && c.state.Tokens.RefreshToken != ""
	c.mu.Unlock()

	ctx := context.Background()
	if !canRefresh {
		log.Info().Msg("access token expired without a refresh token")
		if err := c.Logout(ctx); err != nil {
			log.Err(err).Msg("logout on expiry")
		}
		return
	}
	// Refresh logs out on failure; nothing escapes the timer
	_ = c.Refresh(ctx)
}

func (c *Controller) beginLoading() {
	c.transition.Lock()
	c.mu.Lock()
	c.state.Status = StatusLoading
	c.state.Error = ""
	c.version++
	c.mu.Unlock()
	snapshot, version := c.snapshot()
	c.transition.Unlock()
	c.publish(snapshot, version)
}

// fail ends a login or register attempt: no partial session survives it
func (c *Controller) fail(ctx context.Context, err error) {
	c.transition.Lock()
	if c.isClosed() {
		c.transition.Unlock()
		return
	}
	if logoutErr := c.logoutLocked(ctx, errorMessage(err)); logoutErr != nil {
		log.Err(logoutErr).Msg("clearing session after failed sign in")
	}
	snapshot, version := c.snapshot()
	c.transition.Unlock()
	c.publish(snapshot, version)
}

// logoutLocked clears storage before memory so anyone who sees unauthenticated also sees
// an empty store
func (c *Controller) logoutLocked(ctx context.Context, message string) error {
	c.mu.Lock()
	c.stopTimerLocked()
	c.mu.Unlock()

	err := c.store.Clear(ctx)

	c.mu.Lock()
	c.state = State{Status: StatusUnauthenticated, Error: message}
	c.version++
	c.mu.Unlock()
	return err
}

func (c *Controller) adoptLocked(user users.User, tokens Tokens, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = State{Status: StatusAuthenticated, User: &user, Tokens: &tokens, Error: message}
	c.version++
	c.armTimerLocked(tokens)
}

func (c *Controller) setStateLocked(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
	c.version++
}

// armTimerLocked replaces any pending refresh with one due leadTime before expiry, never
// sooner than minDelay. Without a refresh token the timer ends the session at expiry instead.
func (c *Controller) armTimerLocked(tokens Tokens) {
	c.stopTimerLocked()

	now := c.clock.Now()
	delay := tokens.ExpiresAt.Sub(now)
	if tokens.RefreshToken != "" {
		delay -= c.leadTime
	}
	if delay < c.minDelay {
		delay = c.minDelay
	}

	gen := c.timerGen
	c.timer = c.clock.AfterFunc(delay, func() { go c.onTimer(gen) })
	c.nextRefresh = now.Add(delay)
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.timerGen++
	c.nextRefresh = time.Time{}
}

func (c *Controller) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (c *Controller) snapshot() (State, uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.clone(), c.version
}

// publish delivers a snapshot unless a newer one has already gone out
func (c *Controller) publish(s State, version uint64) {
	c.notifyMu.Lock()
	if version <= c.delivered {
		c.notifyMu.Unlock()
		return
	}
	c.delivered = version
	subscribers := make([]func(State), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		subscribers = append(subscribers, fn)
	}
	c.notifyMu.Unlock()

	for _, fn := range subscribers {
		fn(s.clone())
	}
}

func (c *Controller) tokensFrom(access string, refresh *string, previousRefresh string) Tokens {
	return Tokens{
		AccessToken:  access,
		RefreshToken: utils.FirstNonEmpty(utils.Value(refresh), previousRefresh),
		ExpiresAt:    jwt.ExpiresAtFrom(access, c.clock.Now()),
	}
}

func errorMessage(err error) string {
	if errors.Is(err, errors.ErrTokenExpired) {
		return "The authentication service issued an expired token"
	}
	return authapi.DisplayMessage(err)
}
