// Package provider fetches raw JSON from the experiment-tracking backend.
//
// The rest of the client only depends on the Provider interface; Client is
// the HTTP implementation, and Fallback and Dedup wrap any Provider.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Endpoint is a backend route.
type Endpoint string

const (
	EndpointWorkspace     Endpoint = "/v1/workspace"
	EndpointRepo          Endpoint = "/v1/repo"
	EndpointLine          Endpoint = "/v1/line"
	EndpointLineItemTable Endpoint = "/v1/line_item_table"
	EndpointModel         Endpoint = "/v1/model"
	EndpointDataset       Endpoint = "/v1/dataset"
	EndpointRunConfig     Endpoint = "/v1/run_config"
	EndpointRunLog        Endpoint = "/v1/run_log"
	EndpointAddComment    Endpoint = "/v1/add_comment"
	EndpointVersion       Endpoint = "/v1/version"
)

// Mutates reports whether calls to e change backend state.
func (e Endpoint) Mutates() bool {
	return e == EndpointAddComment
}

// Request is one backend call. Body is encoded as JSON for POST requests.
type Request struct {
	Method   string
	Endpoint Endpoint
	Body     any
}

// Post returns a POST request carrying body.
func Post(endpoint Endpoint, body any) Request {
	return Request{Method: http.MethodPost, Endpoint: endpoint, Body: body}
}

// Get returns a GET request.
func Get(endpoint Endpoint) Request {
	return Request{Method: http.MethodGet, Endpoint: endpoint}
}

// Key returns a stable identity for the request, used to cache and
// deduplicate identical calls.
func (r Request) Key() (string, error) {
	body := []byte("null")
	if r.Body != nil {
		var err error
		body, err = json.Marshal(r.Body)
		if err != nil {
			return "", fmt.Errorf("encoding request body: %w", err)
		}
	}
	return r.Method + " " + string(r.Endpoint) + " " + string(body), nil
}

// Provider performs backend calls and returns the raw JSON response.
type Provider interface {
	Do(ctx context.Context, req Request) (json.RawMessage, error)
}

// ErrNoData is matched by every error meaning "the backend did not give us
// data": transport failures and non-OK responses alike.
var ErrNoData = errors.New("no data")

// TransportError reports a failure to reach the backend or read its reply.
type TransportError struct {
	Endpoint Endpoint
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("calling %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is makes TransportError match ErrNoData.
func (e *TransportError) Is(target error) bool { return target == ErrNoData }

// StatusError reports a non-OK backend response.
type StatusError struct {
	Endpoint   Endpoint
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error (%d) from %s: %s", e.StatusCode, e.Endpoint, e.Body)
}

// Is makes StatusError match ErrNoData.
func (e *StatusError) Is(target error) bool { return target == ErrNoData }

// Temporary reports whether the backend failed rather than refused.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

// Recoverable reports whether a cached response may stand in for the one
// that failed: the backend was unreachable or failed on its side.
func Recoverable(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return !errors.Is(err, context.Canceled)
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return false
}
