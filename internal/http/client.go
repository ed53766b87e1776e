// Package http executes scenario tasks against the system under test and
// classifies each response as a pass or a fail.
package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/niuniu-server/niuniu-load/internal/scenario"
)

// Client sends task requests to a single target host.
type Client struct {
	httpClient *http.Client
	baseURL    string
	headers    map[string]string
}

// ClientOption is a function that configures a Client
type ClientOption func(*Client)

// NewClient creates a client for the host. The transport is sized for many
// concurrent simulated users sharing connections.
func NewClient(host string, options ...ClientOption) *Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        1000,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
	}
	client := &Client{
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		baseURL: strings.TrimRight(host, "/"),
		headers: map[string]string{
			"User-Agent": "niuniu-load",
		},
	}

	for _, option := range options {
		option(client)
	}

	return client
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// WithInsecureSkipVerify disables TLS certificate verification.
func WithInsecureSkipVerify() ClientOption {
	return func(c *Client) {
		if t, ok := c.httpClient.Transport.(*http.Transport); ok {
			t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
		}
	}
}

// WithHTTPClient replaces the underlying client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// BaseURL returns the target host.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Execute runs one task for the session and returns its outcome.
//
// The outcome is a failure when the request could not be sent or read, when
// the status code is outside the task's accepted set, or when the task's
// response handler rejects the body.
func (c *Client) Execute(ctx context.Context, task *scenario.Task, s *scenario.Session) Outcome {
	req := task.Build(s)
	out := Outcome{
		Method: req.Method,
		Name:   req.Name,
		Path:   req.Path,
		Task:   task.Name,
		Start:  time.Now(),
	}

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		out.Duration = time.Since(out.Start)
		out.Err = fmt.Errorf("failed to build request: %w", err)
		out.Transport = true
		return out
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		out.Duration = time.Since(out.Start)
		out.Transport = true
		if ctx.Err() != nil {
			out.Canceled = true
			out.Err = err
			return out
		}
		out.Err = transportFailure(task, err)
		return out
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	out.Duration = time.Since(out.Start)
	out.StatusCode = resp.StatusCode
	out.Length = int64(len(body))
	if err != nil {
		if ctx.Err() != nil {
			out.Canceled = true
		}
		out.Err = fmt.Errorf("failed to read response body: %w", err)
		out.Transport = true
		return out
	}

	if !task.Accept.Allows(resp.StatusCode) {
		out.Err = &StatusError{Code: resp.StatusCode, Message: task.Rejection(resp.StatusCode)}
		return out
	}

	if task.Handle != nil {
		if err := task.Handle(s, body); err != nil {
			out.Err = err
		}
	}

	return out
}

func (c *Client) newRequest(ctx context.Context, req scenario.Request) (*http.Request, error) {
	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL+req.Path, body)
	if err != nil {
		return nil, err
	}

	for key, value := range c.headers {
		httpReq.Header.Set(key, value)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")

	return httpReq, nil
}

// transportFailure reports a request that got no response. Tasks with a
// failure format record it as status 0, so it groups with their other
// rejections; the transport error is kept as the cause.
func transportFailure(task *scenario.Task, err error) error {
	if task.FailFormat == "" {
		return err
	}
	return &StatusError{Code: 0, Message: task.Rejection(0), Cause: err}
}

// StatusError is the failure recorded for an unaccepted status code.
type StatusError struct {
	Code    int
	Message string
	// Cause is set when no response was received.
	Cause error
}

func (e *StatusError) Error() string {
	return e.Message
}

func (e *StatusError) Unwrap() error {
	return e.Cause
}

// IsStatusError reports whether err was classified with a status code,
// including status 0 for a formatted task that got no response.
func IsStatusError(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}
