// Package graph implements the HTTP client for the remote workspace
// knowledge graph endpoint. The client fetches raw edge records and never
// caches; snapshot caching belongs to the memory service.
package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// RawEdge is one edge record as served by the remote endpoint.
// The wire field for the relation is "type".
type RawEdge struct {
	Source   string         `json:"source"`
	Target   string         `json:"target"`
	Relation string         `json:"type"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Valid reports whether the record carries the required fields.
func (e RawEdge) Valid() bool {
	return e.Source != "" && e.Target != "" && e.Relation != ""
}

// TransportError describes a failed fetch. Permanent errors (4xx,
// misconfiguration) are never retried.
type TransportError struct {
	URL       string
	Status    int
	Permanent bool
	Err       error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("remote graph %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("remote graph %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client fetches graph edges from a remote memory server.
type Client struct {
	httpClient *http.Client
	retries    int
	backoff    time.Duration
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithRetries sets the number of additional attempts after a transient
// failure.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// WithBackoff sets the base delay between retries.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.backoff = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a remote graph client.
func NewClient(logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		httpClient: &http.Client{},
		retries:    2,
		backoff:    250 * time.Millisecond,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchEdges retrieves the full edge set from endpoint. Records missing a
// required field are skipped and counted rather than failing the fetch.
// The whole body is decoded before returning, so callers never see a
// partially transferred edge set. Deadlines come from ctx.
func (c *Client) FetchEdges(ctx context.Context, endpoint string) (edges []RawEdge, skipped int, err error) {
	if _, err := parseEndpoint(endpoint); err != nil {
		return nil, 0, err
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			c.logger.Debug("retrying remote graph fetch",
				zap.Int("attempt", attempt), zap.String("url", endpoint))
			select {
			case <-ctx.Done():
				return nil, 0, &TransportError{URL: endpoint, Err: ctx.Err()}
			case <-time.After(c.backoff * time.Duration(attempt)):
			}
		}

		edges, skipped, lastErr = c.fetchOnce(ctx, endpoint)
		if lastErr == nil {
			return edges, skipped, nil
		}

		var te *TransportError
		if errors.As(lastErr, &te) && te.Permanent {
			return nil, 0, lastErr
		}
		if ctx.Err() != nil {
			return nil, 0, &TransportError{URL: endpoint, Err: ctx.Err()}
		}
	}
	return nil, 0, lastErr
}

func (c *Client) fetchOnce(ctx context.Context, endpoint string) ([]RawEdge, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, &TransportError{URL: endpoint, Permanent: true, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, &TransportError{URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// fall through to decode
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		io.Copy(io.Discard, resp.Body)
		return nil, 0, &TransportError{URL: endpoint, Status: resp.StatusCode, Permanent: true}
	default:
		io.Copy(io.Discard, resp.Body)
		return nil, 0, &TransportError{URL: endpoint, Status: resp.StatusCode}
	}

	var raw []RawEdge
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, 0, &TransportError{URL: endpoint, Permanent: true,
			Err: fmt.Errorf("remote payload is not an edge list: %w", err)}
	}

	edges := make([]RawEdge, 0, len(raw))
	skipped := 0
	for _, e := range raw {
		if !e.Valid() {
			skipped++
			continue
		}
		edges = append(edges, e)
	}

	c.logger.Debug("remote graph fetched",
		zap.String("url", endpoint),
		zap.Int("edges", len(edges)),
		zap.Int("skipped", skipped))
	return edges, skipped, nil
}

// Probe performs a single reachability check against endpoint and returns
// the round-trip latency. No retries: a probe answers "is it up right now".
func (c *Client) Probe(ctx context.Context, endpoint string) (time.Duration, error) {
	if _, err := parseEndpoint(endpoint); err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, &TransportError{URL: endpoint, Permanent: true, Err: err}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		return latency, &TransportError{URL: endpoint, Err: err}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode >= 400 {
		return latency, &TransportError{URL: endpoint, Status: resp.StatusCode,
			Permanent: resp.StatusCode < 500}
	}
	return latency, nil
}

func parseEndpoint(endpoint string) (*url.URL, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, &TransportError{URL: endpoint, Permanent: true, Err: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &TransportError{URL: endpoint, Permanent: true,
			Err: fmt.Errorf("unsupported scheme %q", u.Scheme)}
	}
	return u, nil
}
