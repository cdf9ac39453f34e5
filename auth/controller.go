package auth

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ctrlcompliance/admin-console/api"
	"github.com/ctrlcompliance/admin-console/devicetrust"
)

const (
	loginPath    = "/admin/login"
	logoutPath   = "/admin/logout"
	mfaSetupPath = "/admin/2fa/setup"
	mfaVerify    = "/admin/2fa/verify"

	// probePath is a deliberately cheap authenticated read used to classify
	// the caller on mount.
	probePath = "/admin/messages"
)

// Controller owns the authentication state machine for one console instance.
// All transitions flow through it; views observe via Subscribe. Login and
// code verification are single-flight: a second call while one is in flight
// joins the pending one instead of issuing another request.
type Controller struct {
	api     *api.Client
	trust   devicetrust.Store
	log     zerolog.Logger
	nowTime func() time.Time

	flight singleflight.Group

	mu      sync.Mutex
	state   State
	probed  bool
	subs    map[int]func(State)
	nextSub int
}

// Option modifies a Controller at construction time.
type Option func(*Controller)

// WithNowTime sets the clock (primarily for testing).
func WithNowTime(nowFunc func() time.Time) Option {
	return func(c *Controller) {
		c.nowTime = nowFunc
	}
}

// WithLogger sets the controller's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Controller) {
		c.log = log
	}
}

// New creates a Controller in the Unauthenticated state.
func New(apiClient *api.Client, trust devicetrust.Store, options ...Option) (*Controller, error) {
	if apiClient == nil {
		return nil, errors.New("[auth.New] api client is required")
	}
	if trust == nil {
		return nil, errors.New("[auth.New] device-trust store is required")
	}

	c := &Controller{
		api:     apiClient,
		trust:   trust,
		log:     zerolog.Nop(),
		nowTime: time.Now,
		state:   State{Status: StatusUnauthenticated},
		subs:    make(map[int]func(State)),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// State returns the current authentication state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers fn to be called after every state transition and
// returns a function that removes the subscription.
func (c *Controller) Subscribe(fn func(State)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Probe classifies the caller as authenticated or not via a harmless
// authenticated read. It runs at most once per controller; later calls
// return the current state without touching the network, and a failed probe
// is never retried automatically.
func (c *Controller) Probe(ctx context.Context) State {
	c.mu.Lock()
	if c.probed {
		state := c.state
		c.mu.Unlock()
		return state
	}
	c.probed = true
	c.mu.Unlock()

	query := url.Values{}
	query.Set("page", "1")
	query.Set("limit", "1")
	err := c.api.Get(ctx, probePath, query, nil)
	if err != nil {
		c.log.Debug().Err(err).Msg("session probe rejected")
		return c.transition(State{Status: StatusUnauthenticated})
	}
	return c.transition(State{Status: StatusAuthenticated})
}

type loginRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	DeviceMarker string `json:"deviceMarker,omitempty"`
}

type loginResponse struct {
	MfaRequired bool `json:"mfaRequired"`
	Enrolled    bool `json:"enrolled"`
}

// Login posts credentials plus any unexpired trusted-device marker. Outcomes:
// plain success lands Authenticated, an MFA challenge lands MfaPending, and a
// rejection returns to Unauthenticated carrying the server's reason verbatim
// (plus the remaining-minutes hint on a lockout).
func (c *Controller) Login(ctx context.Context, email, password string) (State, error) {
	c.transition(State{Status: StatusAuthenticating})

	result, err, _ := c.flight.Do("login", func() (any, error) {
		req := loginRequest{Email: email, Password: password}
		if marker := c.validMarker(); marker != nil {
			req.DeviceMarker = marker.Value
		}

		var res loginResponse
		if err := c.api.Mutate(ctx, "POST", loginPath, req, &res); err != nil {
			return nil, err
		}
		return res, nil
	})
	if err != nil {
		return c.loginRejected(err), err
	}

	res := result.(loginResponse)
	if res.MfaRequired {
		c.log.Debug().Bool("enrolled", res.Enrolled).Msg("login challenged for MFA")
		return c.transition(State{Status: StatusMfaPending, MfaEnrolled: res.Enrolled}), nil
	}

	c.api.InvalidateCsrf()
	return c.transition(State{Status: StatusAuthenticated}), nil
}

// SetupMfa begins enrollment for an account without a configured
// authenticator, returning the QR URL and secret to display.
func (c *Controller) SetupMfa(ctx context.Context) (*MfaEnrollment, error) {
	var enrollment MfaEnrollment
	if err := c.api.Mutate(ctx, "POST", mfaSetupPath, nil, &enrollment); err != nil {
		return nil, errors.Wrap(err, "[Controller.SetupMfa] begin enrollment")
	}
	return &enrollment, nil
}

type verifyRequest struct {
	Token    string `json:"token"`
	Remember bool   `json:"remember"`
}

type verifyResponse struct {
	DeviceMarker string `json:"deviceMarker"`
}

// VerifyMfa posts the 6-digit code. On success the state lands Authenticated;
// if remember was set and the server returned a device marker it is persisted
// with the 14-day validity window. On rejection the state stays MfaPending
// with the server's reason.
func (c *Controller) VerifyMfa(ctx context.Context, code string, remember bool) (State, error) {
	result, err, _ := c.flight.Do("verify", func() (any, error) {
		var res verifyResponse
		if err := c.api.Mutate(ctx, "POST", mfaVerify, verifyRequest{Token: code, Remember: remember}, &res); err != nil {
			return nil, err
		}
		return res, nil
	})
	if err != nil {
		c.mu.Lock()
		state := c.state
		state.Reason = err.Error()
		c.mu.Unlock()
		return c.transition(state), err
	}

	res := result.(verifyResponse)
	if remember && res.DeviceMarker != "" {
		marker := devicetrust.Marker{
			Value:  res.DeviceMarker,
			Expiry: c.nowTime().Add(devicetrust.Validity),
		}
		if err := c.trust.Set(marker); err != nil {
			// Trust persistence is an optimization; verification still stands.
			c.log.Warn().Err(err).Msg("failed to persist trusted-device marker")
		}
	}

	c.api.InvalidateCsrf()
	return c.transition(State{Status: StatusAuthenticated}), nil
}

// RequireMfaMidSession reroutes an authenticated session into MfaPending when
// a downstream mutation was refused pending a fresh verification. The failed
// mutation is abandoned, not queued; the operator retries it after
// re-verifying. Enrollment is known to exist or the challenge could not have
// been raised.
func (c *Controller) RequireMfaMidSession() {
	c.mu.Lock()
	if c.state.Status != StatusAuthenticated {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.log.Info().Msg("mid-session MFA challenge")
	c.transition(State{Status: StatusMfaPending, MfaEnrolled: true})
}

// SessionLost forces Unauthenticated after a downstream call found the
// session cookie no longer valid.
func (c *Controller) SessionLost() {
	c.api.InvalidateCsrf()
	c.transition(State{Status: StatusUnauthenticated})
}

// Logout notifies the server best-effort, then unconditionally lands
// Unauthenticated and discards the CSRF token so the next mount refetches.
func (c *Controller) Logout(ctx context.Context) State {
	if err := c.api.Mutate(ctx, "POST", logoutPath, nil, nil); err != nil {
		c.log.Debug().Err(err).Msg("logout notification failed")
	}
	c.api.InvalidateCsrf()
	return c.transition(State{Status: StatusUnauthenticated})
}

// validMarker loads the stored trusted-device marker, treating expiry or any
// storage failure as absence.
func (c *Controller) validMarker() *devicetrust.Marker {
	marker, err := c.trust.Get()
	if err != nil {
		c.log.Warn().Err(err).Msg("device-trust store read failed")
		return nil
	}
	if marker == nil {
		return nil
	}
	if marker.Expired(c.nowTime()) {
		_ = c.trust.Clear()
		return nil
	}
	return marker
}

func (c *Controller) loginRejected(err error) State {
	state := State{Status: StatusUnauthenticated, Reason: err.Error()}
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Kind == api.KindLocked {
		state.LockedMinutes = apiErr.LockedMinutes
	}
	return c.transition(state)
}

// transition swaps the state and notifies subscribers outside the lock.
func (c *Controller) transition(next State) State {
	c.mu.Lock()
	c.state = next
	subs := make([]func(State), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
	return next
}
