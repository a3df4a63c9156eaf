package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cascade-ml/cascade-ui/pkg/logger"
)

// RequestIDHeader carries the id of each backend call.
const RequestIDHeader = "X-Request-ID"

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 4096

// Client is an HTTP Provider for the tracking backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient = &http.Client{Timeout: timeout}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new backend client.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do performs req and returns the response body.
func (c *Client) Do(ctx context.Context, req Request) (json.RawMessage, error) {
	method := req.Method
	if method == "" {
		method = http.MethodPost
	}

	var body io.Reader
	if method != http.MethodGet {
		payload := []byte("{}")
		if req.Body != nil {
			var err error
			payload, err = json.Marshal(req.Body)
			if err != nil {
				return nil, fmt.Errorf("encoding %s request: %w", req.Endpoint, err)
			}
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+string(req.Endpoint), body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	requestID := logger.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.New().String()
	}
	httpReq.Header.Set(RequestIDHeader, requestID)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn("backend call failed",
			"endpoint", req.Endpoint,
			"request_id", requestID,
			"error", err,
		)
		return nil, &TransportError{Endpoint: req.Endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn("backend returned an error",
			"endpoint", req.Endpoint,
			"request_id", requestID,
			"status", resp.StatusCode,
		)
		return nil, &StatusError{Endpoint: req.Endpoint, StatusCode: resp.StatusCode, Body: string(data)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Endpoint: req.Endpoint, Err: fmt.Errorf("reading response: %w", err)}
	}
	if !json.Valid(data) {
		return nil, &TransportError{Endpoint: req.Endpoint, Err: fmt.Errorf("decoding response: invalid JSON")}
	}

	c.logger.Debug("backend call completed",
		"endpoint", req.Endpoint,
		"request_id", requestID,
		"duration", time.Since(start).String(),
		"bytes", len(data),
	)
	return json.RawMessage(data), nil
}

// Ping checks that the backend answers its version endpoint.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Do(ctx, Get(EndpointVersion))
	return err
}
