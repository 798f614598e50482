package directory

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

// UpdatedLayout is the timestamp format the provider-search function expects.
const UpdatedLayout = "2006-01-02T15:04:05"

const (
	opFetch = "fetch_providers"
	opClear = "clear_directory"
	opLoad  = "load_providers"

	providerSearch = "urn:ihe:iti:csd:2014:stored-function:provider-search"
	providerCreate = "urn:openhie.org:openinfoman:provider_create"
)

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config configures the directory client.
type Config struct {
	BaseURL          string // e.g. http://localhost:8984
	Username         string
	Password         string
	QueryDocument    string // document providers are read from
	ContactsDocument string // document contacts are written back to
	Timeout          time.Duration
}

// Client talks to the directory's care services endpoints over Basic auth.
type Client struct {
	cfg        Config
	httpClient HTTPDoer
	logger     *slog.Logger
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

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a directory client.
func New(cfg Config, opts ...Option) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchProviders runs the provider-search function for entries updated after
// lastSync, or for every entry when reset is set, and returns the raw CSD
// document.
func (c *Client) FetchProviders(ctx context.Context, lastSync time.Time, reset bool) ([]byte, orchestration.Trail, error) {
	updated := lastSync
	if reset {
		updated = time.Unix(0, 0)
	}
	body := `<csd:requestParams xmlns:csd="` + Namespace + `"><csd:record updated="` +
		updated.UTC().Format(UpdatedLayout) + `"/></csd:requestParams>`

	target := c.endpoint("CSD", "csr", c.cfg.QueryDocument, "careServicesRequest", providerSearch)
	status, header, respBody, started, err := c.do(ctx, opFetch, http.MethodPost, target, []byte(body))
	if err != nil {
		return nil, nil, err
	}
	trail := orchestration.Trail{}.Append(orchestration.Build(
		"Fetch OpenInfoMan Entities", started, http.MethodPost, target, body, status, header, string(respBody)))

	if status < 200 || status >= 300 {
		return nil, trail, newStatusError(opFetch, status)
	}
	if len(bytes.TrimSpace(respBody)) == 0 {
		return nil, trail, newError(ErrorBadData, opFetch, "no CSD document returned", nil)
	}
	return respBody, trail, nil
}

// LoadProviders replaces the contacts document: it empties it and then
// creates every given provider in one request.
func (c *Client) LoadProviders(ctx context.Context, providers [][]byte) (orchestration.Trail, error) {
	var trail orchestration.Trail

	clearURL := c.endpoint("CSD", "emptyDirectory", c.cfg.ContactsDocument)
	status, header, respBody, started, err := c.do(ctx, opClear, http.MethodGet, clearURL, nil)
	if err != nil {
		return trail, err
	}
	trail = trail.Append(orchestration.Build(
		"Clear OpenInfoMan RapidPro Directory", started, http.MethodGet, clearURL, "", status, header, string(respBody)))
	if status < 200 || status >= 300 {
		return trail, newStatusError(opClear, status)
	}

	var buf bytes.Buffer
	buf.WriteString(`<requestParams xmlns="` + Namespace + `" xmlns:csd="` + Namespace + `">`)
	for i, p := range providers {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.Write(p)
	}
	buf.WriteString(`</requestParams>`)

	loadURL := c.endpoint("CSD", "csr", c.cfg.ContactsDocument, "careServicesRequest", "update", providerCreate)
	status, header, respBody, started, err = c.do(ctx, opLoad, http.MethodPost, loadURL, buf.Bytes())
	if err != nil {
		return trail, err
	}
	trail = trail.Append(orchestration.Build(
		"Load OpenInfoMan RapidPro Directory", started, http.MethodPost, loadURL, buf.String(), status, header, string(respBody)))
	if status < 200 || status >= 300 {
		return trail, newStatusError(opLoad, status)
	}

	c.logger.Info("loaded providers into directory", "document", c.cfg.ContactsDocument, "providers", len(providers))
	return trail, nil
}

func (c *Client) endpoint(segments ...string) string {
	escaped := make([]string, 0, len(segments))
	for _, s := range segments {
		escaped = append(escaped, url.PathEscape(strings.Trim(s, "/")))
	}
	return c.cfg.BaseURL + "/" + strings.Join(escaped, "/")
}

func (c *Client) do(ctx context.Context, op, method, target string, payload []byte) (int, http.Header, []byte, time.Time, error) {
	started := time.Now()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, nil, nil, started, newError(ErrorInternal, op, "failed to create request", err)
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	if payload != nil {
		req.Header.Set("Content-Type", "text/xml")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, nil, started, newError(ErrorTransport, op, "failed to execute request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, started, newError(ErrorTransport, op, "failed to read response body", err)
	}
	return resp.StatusCode, resp.Header, body, started, nil
}
