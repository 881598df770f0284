// Package rest talks to the hosted backend through its client libraries:
// postgrest-go for table rows under /rest/v1 and gotrue-go for identity
// under /auth/v1.
package rest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/postgrest-go"

	"github.com/alexanderramin/feedlog/internal/backend"
	"github.com/alexanderramin/feedlog/internal/domain"
)

const (
	restPrefix = "/rest/v1"
	authPrefix = "/auth/v1"
	schema     = "public"
)

// Config holds the connection settings for the hosted backend.
type Config struct {
	URL     string
	AnonKey string
	Timeout time.Duration
}

// TokenSource yields the bearer token for table requests.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Client holds the transport and settings shared by the table and identity
// clients. Library clients are built per call so that each call carries its
// own context, bearer token and response capture.
type Client struct {
	cfg       Config
	transport *http.Transport
	observer  Observer

	mu     sync.RWMutex
	tokens TokenSource
}

// New creates a Client. A zero timeout falls back to backend.DefaultTimeout.
func New(cfg Config, observer Observer) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("hosted backend url is not configured")
	}
	if cfg.AnonKey == "" {
		return nil, fmt.Errorf("hosted backend anon key is not configured")
	}
	if _, err := url.ParseRequestURI(cfg.URL); err != nil {
		return nil, fmt.Errorf("hosted backend url: %w", err)
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = backend.DefaultTimeout
	}
	if observer == nil {
		observer = NoopObserver{}
	}
	return &Client{
		cfg: cfg,
		transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: 5 * time.Second,
			}).DialContext,
		},
		observer: observer,
	}, nil
}

// UseTokens sets where table requests take their bearer token from.
// Without one, requests carry only the anon key.
func (c *Client) UseTokens(ts TokenSource) {
	c.mu.Lock()
	c.tokens = ts
	c.mu.Unlock()
}

// Service exposes the client through the backend contract.
func (c *Client) Service() *backend.Service {
	return &backend.Service{
		Kind:     backend.KindREST,
		Sessions: &SessionTable{c: c},
		Profiles: &ProfileTable{c: c},
		Auth:     &Auth{c: c},
		Close: func(context.Context) error {
			c.transport.CloseIdleConnections()
			return nil
		},
	}
}

// tableToken returns the bearer for table calls: the signed-in user's
// access token, or the anon key for anonymous pings.
func (c *Client) tableToken(ctx context.Context, anonymous bool) (string, error) {
	if anonymous {
		return c.cfg.AnonKey, nil
	}
	c.mu.RLock()
	ts := c.tokens
	c.mu.RUnlock()
	if ts == nil {
		return "", fmt.Errorf("%w: not signed in", domain.ErrUnauthenticated)
	}
	return ts.AccessToken(ctx)
}

// tables runs fn against a postgrest client bound to ctx.
func (c *Client) tables(ctx context.Context, anonymous bool, fn func(*postgrest.Client) error) error {
	token, err := c.tableToken(ctx, anonymous)
	if err != nil {
		return err
	}
	return c.run(ctx, func(rt http.RoundTripper) error {
		pc := postgrest.NewClient(c.cfg.URL+restPrefix, schema, nil).
			SetApiKey(c.cfg.AnonKey).
			SetAuthToken(token)
		pc.Transport.Parent = rt
		return fn(pc)
	})
}

// identity runs fn against a gotrue client bound to ctx. An empty token
// makes anonymous requests.
func (c *Client) identity(ctx context.Context, token string, fn func(gotrue.Client) error) error {
	return c.run(ctx, func(rt http.RoundTripper) error {
		gc := gotrue.New("", c.cfg.AnonKey).
			WithCustomGoTrueURL(c.cfg.URL + authPrefix).
			WithClient(http.Client{Transport: rt})
		if token != "" {
			gc = gc.WithToken(token)
		}
		return fn(gc)
	})
}

// run performs one library call under the configured timeout, classifies
// its outcome and reports it to the observer.
func (c *Client) run(ctx context.Context, fn func(http.RoundTripper) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	rec := &roundTrip{ctx: ctx, base: c.transport}
	err := rec.classify(fn(rec))

	event := CallEvent{
		Method:    rec.method,
		Path:      rec.path,
		Status:    rec.status,
		LatencyMs: time.Since(start).Milliseconds(),
		Success:   err == nil,
	}
	if err != nil {
		event.ErrorCode = backend.ErrorCode(err)
	}
	c.observer.OnCallComplete(event)
	return err
}

// roundTrip binds library requests to a context and keeps what classify
// needs: the status and, for failures, the response body. The libraries
// only surface those as formatted strings.
type roundTrip struct {
	ctx  context.Context
	base http.RoundTripper

	method string
	path   string
	status int
	body   []byte
	err    error
}

func (rt *roundTrip) RoundTrip(req *http.Request) (*http.Response, error) {
	rt.method, rt.path = req.Method, req.URL.Path
	resp, err := rt.base.RoundTrip(req.WithContext(rt.ctx))
	if err != nil {
		rt.err = err
		return nil, err
	}
	rt.status = resp.StatusCode
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			rt.err = err
			return nil, err
		}
		rt.body = data
		resp.Body = io.NopCloser(bytes.NewReader(data))
	}
	return resp, nil
}

// classify prefers the recorded response over the library's error string.
func (rt *roundTrip) classify(err error) error {
	switch {
	case rt.status != 0 && (rt.status < 200 || rt.status > 299):
		return decodeAPIError(rt.status, rt.body)
	case rt.err != nil:
		if err == nil {
			err = rt.err
		}
		return transportError(err)
	case err != nil:
		return fmt.Errorf("hosted backend: %w", err)
	}
	return nil
}
