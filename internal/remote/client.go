// Package remote provides an HTTP client for a livesearch endpoint. It
// implements search.QueryService.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/wesm/livesearch/internal/search"
	"golang.org/x/time/rate"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 8 << 20

// Client issues lookups against a search endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	idField    string
	fields     []string
	logger     *slog.Logger
}

// Compile-time check.
var _ search.QueryService = (*Client)(nil)

// Config holds configuration for creating a client.
type Config struct {
	URL           string
	AllowInsecure bool          // Allow plain http to non-loopback hosts
	Timeout       time.Duration // Per-request timeout (default 10s)
	RateLimit     float64       // Requests per second, 0 = unlimited
	Burst         int           // Limiter burst (default 1)
	IDField       string        // JSON key holding the item ID (default "id")
	Fields        []string      // Display field order; empty keeps the response's key order
	Logger        *slog.Logger
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("search URL is required")
	}

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("URL scheme must be http or https, got: %s", parsedURL.Scheme)
	}

	if parsedURL.Host == "" {
		return nil, fmt.Errorf("search URL must include a host (e.g., http://localhost:8888)")
	}

	// Plain http is fine for a local endpoint; anything else needs opting in.
	if parsedURL.Scheme == "http" && !cfg.AllowInsecure && !isLoopback(parsedURL.Hostname()) {
		return nil, fmt.Errorf("HTTPS required for non-local search endpoints\n\n" +
			"Options:\n" +
			"  1. Use HTTPS: [search] url = \"https://host:8888\"\n" +
			"  2. For trusted networks: add 'allow_insecure = true' to [search] in config.toml")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	idField := cfg.IDField
	if idField == "" {
		idField = "id"
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.URL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: limiter,
		idField: idField,
		fields:  cfg.Fields,
		logger:  logger,
	}, nil
}

// isLoopback reports whether host names the local machine.
func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// SearchURL returns the request URL for query.
func (c *Client) SearchURL(query string) string {
	return c.baseURL + "/?q=" + url.QueryEscape(query)
}

// Search starts an asynchronous lookup for query.
func (c *Client) Search(query string) search.PendingRequest {
	ctx, cancel := context.WithCancel(context.Background())
	p := &pendingRequest{query: query, cancel: cancel}

	go func() {
		defer cancel()
		var (
			items []search.Item
			err   error
		)
		func() {
			defer func() {
				if r := recover(); r != nil {
					err = search.NetworkError(query, fmt.Errorf("search panic: %v", r))
				}
			}()
			items, err = c.Do(ctx, query)
		}()
		p.settle(items, err)
	}()

	return p
}

// Do performs a synchronous lookup for query.
func (c *Client) Do(ctx context.Context, query string) ([]search.Item, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, search.CancelledError(query, ctx.Err())
			}
			return nil, search.NetworkError(query, fmt.Errorf("rate limit: %w", err))
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.SearchURL(query), nil)
	if err != nil {
		return nil, search.NetworkError(query, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, search.CancelledError(query, ctx.Err())
		}
		return nil, search.NetworkError(query, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, search.NetworkError(query, handleErrorResponse(resp))
	}

	items, err := c.decodeItems(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if ctx.Err() != nil {
			return nil, search.CancelledError(query, ctx.Err())
		}
		return nil, search.ProtocolError(query, err)
	}

	c.logger.Debug("search response",
		"query", query,
		"status", resp.StatusCode,
		"items", len(items),
		"duration", time.Since(start),
	)
	return items, nil
}

// apiError represents an error response from the endpoint.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// handleErrorResponse reads an error response and returns an appropriate error.
func handleErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiErr.Message)
	}

	return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

// pendingRequest is the handle returned by Search.
type pendingRequest struct {
	query  string
	cancel context.CancelFunc

	mu        sync.Mutex
	cancelled bool
	done      bool // result has arrived
	fired     bool // callback has been started
	items     []search.Item
	err       error
	cb        func([]search.Item, error)
}

func (p *pendingRequest) Query() string { return p.query }

// Cancel aborts the request. A callback that has not started by the time
// Cancel returns never runs.
func (p *pendingRequest) Cancel() {
	p.mu.Lock()
	p.cancelled = true
	p.cb = nil
	p.mu.Unlock()
	p.cancel()
}

// OnSettled registers cb. Only the first registration counts.
func (p *pendingRequest) OnSettled(cb func([]search.Item, error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancelled || p.fired || p.cb != nil {
		return
	}
	p.cb = cb
	if p.done {
		p.fired = true
		items, err := p.items, p.err
		go cb(items, err)
	}
}

func (p *pendingRequest) settle(items []search.Item, err error) {
	p.mu.Lock()
	if p.done {
		p.mu.Unlock()
		return
	}
	p.done = true
	p.items, p.err = items, err
	cb := p.cb
	if p.cancelled || cb == nil {
		p.mu.Unlock()
		return
	}
	p.fired = true
	p.mu.Unlock()

	cb(items, err)
}
