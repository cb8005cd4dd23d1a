// Package nexus is a client for the FlowMinds generation API.
//
// The client mirrors the quota the server reports and refuses to send a
// generation request once the local count reaches zero, so an exhausted
// user gets an immediate answer instead of a round trip.
package nexus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ErrDailyLimit is returned by Generate when the local quota is spent.
var ErrDailyLimit = errors.New("daily generation limit exceeded")

// DailyLimitMessage is the user-facing text for ErrDailyLimit.
const DailyLimitMessage = "Daily Limit Exceeded. Please try again tomorrow."

// DefaultFailureMessage is used when a failed call yields no better text.
const DefaultFailureMessage = "Connection to Nexus failed."

// UpstreamError is a failed API call.
type UpstreamError struct {
	// Status is the HTTP status, zero for transport failures.
	Status  int
	Message string
	Err     error
}

func (e *UpstreamError) Error() string { return e.Message }

func (e *UpstreamError) Unwrap() error { return e.Err }

// Quota is the server's view of the caller's allowance.
type Quota struct {
	Remaining int       `json:"remaining"`
	Limit     int       `json:"limit"`
	ResetAt   time.Time `json:"resetAt"`
}

// Client calls the generation and quota endpoints.
type Client struct {
	baseURL string
	http    *http.Client

	mu        sync.Mutex
	remaining int
	known     bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New returns a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Remaining returns the locally tracked allowance and whether it has been
// fetched yet.
func (c *Client) Remaining() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining, c.known
}

// Quota fetches the allowance and refreshes the local count.
func (c *Client) Quota(ctx context.Context) (Quota, error) {
	var q Quota
	if err := c.do(ctx, http.MethodGet, "/v1/flowminds/quota", nil, &q); err != nil {
		return Quota{}, err
	}
	c.mu.Lock()
	c.remaining, c.known = q.Remaining, true
	c.mu.Unlock()
	return q, nil
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Mermaid string `json:"mermaid"`
	} `json:"data"`
}

// Generate requests a diagram for prompt and returns its Mermaid source.
// The quota is fetched first if it has never been.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if _, known := c.Remaining(); !known {
		if _, err := c.Quota(ctx); err != nil {
			return "", err
		}
	}
	if n, _ := c.Remaining(); n <= 0 {
		return "", ErrDailyLimit
	}

	var resp generateResponse
	if err := c.do(ctx, http.MethodPost, "/v1/flowminds/generate", generateRequest{Prompt: prompt}, &resp); err != nil {
		return "", err
	}
	if !resp.Success {
		return "", &UpstreamError{Status: http.StatusOK, Message: DefaultFailureMessage}
	}

	c.mu.Lock()
	c.remaining = max(0, c.remaining-1)
	c.mu.Unlock()
	return resp.Data.Mermaid, nil
}

type errorBody struct {
	Error string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &UpstreamError{Message: transportMessage(err), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &UpstreamError{Status: resp.StatusCode, Message: transportMessage(err), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := DefaultFailureMessage
		var eb errorBody
		if json.Unmarshal(data, &eb) == nil && eb.Error != "" {
			msg = eb.Error
		}
		return &UpstreamError{Status: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &UpstreamError{Status: resp.StatusCode, Message: DefaultFailureMessage, Err: err}
	}
	return nil
}

func transportMessage(err error) string {
	if err == nil || err.Error() == "" {
		return DefaultFailureMessage
	}
	return err.Error()
}
