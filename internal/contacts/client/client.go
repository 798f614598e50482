// Package client talks to the paginated, rate-limited contact API.
//
// Every call goes through the same exchange loop: a response whose body is a
// throttle envelope is decoded into a ThrottledError, the client sleeps for
// the advertised wait plus a safety margin, and the identical request is
// issued again. There is no retry ceiling. Everything else is either a
// successful response or a categorized *Error.
package client

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"contactsync/internal/orchestration"
)

//go:generate mockgen -source=client.go -destination=mocks/mocks.go -package=mocks HTTPDoer,DeadLetterSink

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DeadLetterSink receives upserts the API acknowledged without persisting.
type DeadLetterSink interface {
	Record(ctx context.Context, payload, response []byte) error
}

// ThrottleHook observes every throttle wait, mainly for metrics.
type ThrottleHook func(op string, wait time.Duration)

// Config configures the contact API client.
type Config struct {
	BaseURL        string        // e.g. http://localhost:8000/api/v2
	Token          string        // API token, sent as "Authorization: Token <token>"
	Timeout        time.Duration // per-request timeout, default 30s
	ThrottleMargin time.Duration // added to every wait hint, default 5ms
}

// Client is the contact API client.
type Client struct {
	baseURL    string
	token      string
	margin     time.Duration
	httpClient HTTPDoer
	logger     *slog.Logger
	sleep      Sleeper
	deadLetter DeadLetterSink
	onThrottle ThrottleHook
	detailed   bool
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client (for testing).
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.httpClient = doer
		}
	}
}

// WithLogger sets the logger used for throttle and anomaly reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSleeper replaces the throttle backoff sleep (for testing).
func WithSleeper(s Sleeper) Option {
	return func(c *Client) {
		if s != nil {
			c.sleep = s
		}
	}
}

// WithDeadLetter sets where unpersisted upserts are recorded.
func WithDeadLetter(sink DeadLetterSink) Option {
	return func(c *Client) {
		c.deadLetter = sink
	}
}

// WithThrottleHook registers an observer for throttle waits.
func WithThrottleHook(hook ThrottleHook) Option {
	return func(c *Client) {
		c.onThrottle = hook
	}
}

// WithDetailedOrchestrations records an orchestration for every page fetch
// and every upsert. Off by default because trails grow with the contact count.
func WithDetailedOrchestrations(enabled bool) Option {
	return func(c *Client) {
		c.detailed = enabled
	}
}

// New creates a contact API client.
func New(cfg Config, opts ...Option) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ThrottleMargin == 0 {
		cfg.ThrottleMargin = DefaultThrottleMargin
	}
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		margin:  cfg.ThrottleMargin,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: slog.Default(),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ContactsURL returns the contact listing URL, optionally scoped to a group.
func (c *Client) ContactsURL(groupUUID string) string {
	u := c.baseURL + "/contacts"
	if groupUUID != "" {
		u += "?" + url.Values{"group_uuids": {groupUUID}}.Encode()
	}
	return u
}

func (c *Client) groupsURL(name string) string {
	return c.baseURL + "/groups?" + url.Values{"name": {name}}.Encode()
}

// response is a completed, non-throttled exchange.
type response struct {
	status  int
	header  http.Header
	body    []byte
	started time.Time
}

func (r *response) ok() bool {
	return r.status >= 200 && r.status < 300
}

// exchange issues the request and replays it for as long as the API answers
// with a throttle envelope. Only the final, non-throttled response is returned.
func (c *Client) exchange(ctx context.Context, op, method, rawURL string, payload []byte) (*response, error) {
	for {
		started := time.Now()
		status, header, body, err := c.send(ctx, op, method, rawURL, payload)
		if err != nil {
			return nil, err
		}

		throttled, ok := parseThrottle(body, c.margin)
		if !ok {
			return &response{status: status, header: header, body: body, started: started}, nil
		}

		c.logger.Warn("contact API throttled request, waiting before retry",
			"op", op,
			"url", rawURL,
			"wait_ms", throttled.Wait.Milliseconds(),
		)
		if c.onThrottle != nil {
			c.onThrottle(op, throttled.Wait)
		}
		if err := c.sleep(ctx, throttled.Wait); err != nil {
			return nil, NewError(ErrorTransport, op, "interrupted while waiting out throttle", err)
		}
	}
}

func (c *Client) send(ctx context.Context, op, method, rawURL string, payload []byte) (int, http.Header, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return 0, nil, nil, NewError(ErrorInternal, op, "failed to create request", err)
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, nil, NewError(ErrorTransport, op, "failed to execute request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, NewError(ErrorTransport, op, "failed to read response body", err)
	}
	return resp.StatusCode, resp.Header, body, nil
}

func (c *Client) record(trail orchestration.Trail, name, method, rawURL string, reqBody []byte, r *response) orchestration.Trail {
	return trail.Append(orchestration.Build(name, r.started, method, rawURL, string(reqBody), r.status, r.header, string(r.body)))
}
