package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const defaultTimeout = 15 * time.Second

// Client issues credentialed JSON requests against the admin API origin.
// The session lives in a server-set cookie held by the client's cookie jar;
// no credential material is ever cached client-side. State-changing requests
// carry the X-CSRF-Token header and are refused outright when no token could
// be obtained.
type Client struct {
	base string
	http *http.Client
	log  zerolog.Logger
	csrf csrfCache
}

// Option modifies a Client at construction time.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. The replacement should
// carry a cookie jar or the session cookie will be lost between calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger sets the logger used for request-level diagnostics.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// New creates a Client for the given API origin, e.g. "https://api.ctrlcompliance.co.uk".
func New(baseURL string, options ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("[api.New] API base URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, errors.Wrap(err, "[api.New] invalid API base URL")
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "[api.New] cookiejar.New")
	}

	client := &Client{
		base: baseURL,
		http: &http.Client{Jar: jar, Timeout: defaultTimeout},
		log:  zerolog.Nop(),
	}
	for _, opt := range options {
		opt(client)
	}
	return client, nil
}

// Get issues an authenticated (cookie-credentialed) read. query may be nil.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, "", out)
}

// Mutate issues a state-changing admin request. The current CSRF token is
// fetched lazily and attached as X-CSRF-Token; if no token can be obtained
// the request is not sent.
func (c *Client) Mutate(ctx context.Context, method, path string, body, out any) error {
	token, err := c.csrf.token(ctx, c)
	if err != nil {
		return err
	}
	return c.do(ctx, method, path, nil, body, token, out)
}

// Submit issues an anonymous POST against a public endpoint (no CSRF, no
// admin session expected).
func (c *Client) Submit(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, "", out)
}

// InvalidateCsrf discards the cached CSRF token so the next mutation fetches
// a fresh one. Called after login/logout transitions.
func (c *Client) InvalidateCsrf() {
	c.csrf.invalidate()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, csrfToken string, out any) error {
	target := c.base + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "[Client.do] marshal request body")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return errors.Wrap(err, "[Client.do] build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if csrfToken != "" {
		req.Header.Set("X-CSRF-Token", csrfToken)
	}

	res, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("method", method).Str("path", path).Msg("request failed")
		return &Error{Kind: KindTransport, Message: err.Error()}
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return &Error{Kind: KindTransport, Message: err.Error()}
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		var eb errorBody
		_ = json.Unmarshal(raw, &eb) // tolerate non-JSON error bodies
		apiErr := classify(res.StatusCode, eb)
		c.log.Debug().Str("method", method).Str("path", path).
			Int("status", res.StatusCode).Str("kind", string(apiErr.Kind)).Msg("api error")
		return apiErr
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return errors.Wrap(err, "[Client.do] decode response body")
		}
	}
	return nil
}
