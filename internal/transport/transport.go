// Package transport issues JSON calls to the LinkForty API with retry,
// exponential backoff and failure classification.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/LinkForty/linkforty-go/internal/sdkerr"
)

// API paths, relative to the configured base URL.
const (
	PathInstall       = "/api/sdk/v1/install"
	PathEvent         = "/api/sdk/v1/event"
	PathResolve       = "/api/sdk/v1/resolve"
	PathLinks         = "/api/sdk/v1/links"
	PathTemplateLinks = "/api/links"
)

const (
	// MaxAttempts is the total number of tries per request.
	MaxAttempts = 3
	// ClientTimeout is the total request timeout.
	ClientTimeout = 30 * time.Second
	// DialTimeout is the connection timeout.
	DialTimeout = 10 * time.Second
	// TLSHandshakeTimeout is the TLS negotiation timeout.
	TLSHandshakeTimeout = 10 * time.Second
	// ResponseHeaderTimeout is time to wait for response headers.
	ResponseHeaderTimeout = 15 * time.Second

	// maxResponseBytes bounds how much of a response body is read.
	maxResponseBytes = 1 << 20
)

// NewHTTPClient creates an HTTP client configured for API calls.
// It has appropriate timeouts and does not follow redirects.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout: ClientTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   TLSHandshakeTimeout,
			ResponseHeaderTimeout: ResponseHeaderTimeout,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// Client is a stateless API client bound to a base URL and optional key.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger

	// sleep is swapped out in tests to observe backoff without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Client. Trailing slashes are stripped from baseURL once
// here; httpClient and logger may be nil for defaults.
func New(baseURL, apiKey string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    httpClient,
		logger:  logger.With("component", "transport"),
		sleep:   sleepCtx,
	}
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Request performs method against path with an optional JSON body,
// decoding a 2xx response into out (out may be nil).
//
// Classification: 4xx responses and undecodable bodies surface
// immediately; 5xx responses and transport-level failures are retried
// with 1s/2s waits and surface as a NETWORK_ERROR wrapping the last
// cause once attempts are exhausted.
func (c *Client) Request(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return sdkerr.Wrap(sdkerr.CodeDecodingError, "encode request body", err)
		}
	}

	var lastErr error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		err := c.do(ctx, method, path, payload, out)
		if err == nil {
			return nil
		}

		var se *sdkerr.Error
		if errors.As(err, &se) {
			// 4xx and decode failures are permanent.
			return err
		}
		lastErr = err

		if attempt == MaxAttempts {
			break
		}
		delay := time.Duration(1<<(attempt-1)) * time.Second
		c.logger.Warn("request failed, retrying",
			"method", method,
			"path", path,
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
		if serr := c.sleep(ctx, delay); serr != nil {
			lastErr = serr
			break
		}
	}
	return sdkerr.Wrap(sdkerr.CodeNetworkError, "request failed", lastErr)
}

// do performs a single attempt. Retryable failures are returned as plain
// errors; permanent ones as *sdkerr.Error.
func (c *Client) do(ctx context.Context, method, path string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return sdkerr.InvalidResponse(resp.StatusCode, serverMessage(data))
		}
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return sdkerr.Wrap(sdkerr.CodeDecodingError, "decode response", err)
	}
	return nil
}

// serverMessage extracts an error message from a JSON error body, if one
// can be parsed.
func serverMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
