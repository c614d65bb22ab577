// Package bauplan is a thin Go client for the Bauplan commander API.
// It covers the catalog, query, import and job surfaces the MCP tools
// need, speaking JSON over HTTP with bearer authentication.
package bauplan

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultEndpoint is the commander API base URL.
	DefaultEndpoint = "https://api.bauplanlabs.com"

	// DefaultCallTimeout bounds a single API round-trip when the caller
	// does not supply a client_timeout.
	DefaultCallTimeout = 120 * time.Second
)

// Client is a handle bound to one credential. A fresh Client is built per
// tool invocation; it is never shared, pooled or cached.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithEndpoint overrides the commander API base URL.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = strings.TrimRight(endpoint, "/") }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient builds a client bound to the given API key.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		endpoint: DefaultEndpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: DefaultCallTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx response from the commander API.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether the error is a not-found style API error.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// call performs one JSON round-trip against the API. A zero timeout uses
// the client default; otherwise the context is bounded to timeout seconds.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, body, out any, timeoutSeconds int) error {
	if timeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeoutSeconds)*time.Second)
		defer cancel()
	}

	u := c.endpoint + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if jsonErr := json.Unmarshal(data, apiErr); jsonErr != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
			if apiErr.Message == "" {
				apiErr.Message = http.StatusText(resp.StatusCode)
			}
		}
		return apiErr
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.call(ctx, http.MethodGet, path, query, nil, out, 0)
}

func (c *Client) post(ctx context.Context, path string, body, out any, timeoutSeconds int) error {
	return c.call(ctx, http.MethodPost, path, nil, body, out, timeoutSeconds)
}

func (c *Client) delete(ctx context.Context, path string, query url.Values) error {
	return c.call(ctx, http.MethodDelete, path, query, nil, nil, 0)
}

// Info returns details about the authenticated user.
func (c *Client) Info(ctx context.Context) (*InfoState, error) {
	var info InfoState
	if err := c.get(ctx, "/v0/info", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}
