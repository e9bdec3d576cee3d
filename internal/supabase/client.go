package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smarta/server/internal/metrics"
)

// Config configures the managed backend clients
type Config struct {
	URL        string
	AnonKey    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
}

// Client holds the shared transport for the auth, query and functions APIs
type Client struct {
	baseURL *url.URL
	anonKey string
	http    *http.Client
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New validates cfg and returns a Client
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("supabase url is required")
	}
	if cfg.AnonKey == "" {
		return nil, fmt.Errorf("supabase anon key is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid supabase url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid supabase url %q", cfg.URL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		baseURL: base,
		anonKey: cfg.AnonKey,
		http:    httpClient,
		timeout: timeout,
		logger:  logger,
		metrics: cfg.Metrics,
	}, nil
}

// Auth returns a new auth client. Each client instance needs its own, since
// the auth client holds that instance's session.
func (c *Client) Auth() *AuthClient {
	return newAuthClient(c)
}

// Rest returns the query client
func (c *Client) Rest() *RestClient {
	return &RestClient{api: c}
}

// Functions returns the edge functions client
func (c *Client) Functions() *FunctionsClient {
	return &FunctionsClient{api: c}
}

type tokenKey struct{}

// WithAccessToken returns a context whose backend requests are made as the
// user holding token, so row-level security applies.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// AccessTokenFrom returns the token attached by WithAccessToken, or ""
func AccessTokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// request describes one call to the backend
type request struct {
	service string // auth, rest, functions; used for metrics
	method  string
	path    string
	query   url.Values
	body    any
	token   string
	header  http.Header
}

// do sends req and decodes a 2xx JSON response into dest (if non-nil).
// Non-2xx responses become *APIError.
func (c *Client) do(ctx context.Context, req request, dest any) error {
	u := *c.baseURL
	u.Path = u.Path + req.path
	if len(req.query) > 0 {
		u.RawQuery = req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		buf, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", req.service, err)
		}
		body = bytes.NewReader(buf)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u.String(), body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", req.service, err)
	}
	httpReq.Header.Set("apikey", c.anonKey)
	token := req.token
	if token == "" {
		token = c.anonKey
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.header {
		httpReq.Header[k] = v
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.metrics.ObserveUpstream(req.service, "error")
		return fmt.Errorf("%s request failed: %w", req.service, err)
	}
	defer resp.Body.Close()
	c.metrics.ObserveUpstream(req.service, fmt.Sprintf("%dxx", resp.StatusCode/100))

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read %s response: %w", req.service, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := parseAPIError(resp.StatusCode, payload)
		c.logger.Debug("backend request rejected",
			"service", req.service,
			"path", req.path,
			"status", resp.StatusCode,
			"code", apiErr.Code,
		)
		return apiErr
	}

	if dest == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return fmt.Errorf("decode %s response: %w", req.service, err)
	}
	return nil
}
