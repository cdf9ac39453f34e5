package api

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// csrfPath serves the double-submit token: GET /admin/csrf -> { csrf }.
const csrfPath = "/admin/csrf"

// ErrNoCsrfToken means a mutation was attempted while no token could be
// obtained. Sending the request anyway would be a contract violation, so the
// caller gets this instead of a server round-trip.
var ErrNoCsrfToken = errors.New("no CSRF token available")

// csrfCache lazily fetches and holds the anti-forgery token for the current
// admin session context. The token is refetched after invalidate, which the
// auth controller triggers on login/logout transitions.
type csrfCache struct {
	mu    sync.Mutex
	value string
}

func (cc *csrfCache) token(ctx context.Context, c *Client) (string, error) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	if cc.value != "" {
		return cc.value, nil
	}

	var body struct {
		Csrf string `json:"csrf"`
	}
	if err := c.do(ctx, "GET", csrfPath, nil, nil, "", &body); err != nil {
		return "", errors.Wrap(err, "[csrfCache.token] fetch")
	}
	if body.Csrf == "" {
		return "", ErrNoCsrfToken
	}
	cc.value = body.Csrf
	return cc.value, nil
}

func (cc *csrfCache) invalidate() {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.value = ""
}
