// Package gateway is the client for the TaskFlow REST backend. Every response is wrapped
// in the backend's {"success", "data", "error"} envelope; each method unwraps it into a
// value or an error.
package gateway

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

	"github.com/moses-Dera/TaskFlow-sub000/internal/logger"
	"github.com/moses-Dera/TaskFlow-sub000/internal/metrics"
	"golang.org/x/time/rate"
)

var (
	// ErrUnauthenticated is returned, without contacting the backend, by calls that
	// need a credential when none is present.
	ErrUnauthenticated = errors.New("gateway: not signed in")
	// ErrNotFound matches an *APIError with status 404 under errors.Is.
	ErrNotFound = errors.New("gateway: not found")
)

// APIError is a failure reported by the backend: a non-2xx status or success=false.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gateway: backend returned %d", e.Status)
	}
	return fmt.Sprintf("gateway: backend returned %d: %s", e.Status, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// transportError marks failures that never produced a backend response.
type transportError struct{ err error }

func (e *transportError) Error() string { return "gateway: transport: " + e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

// Retryable reports whether repeating the call may succeed: the request never got a
// response, or the backend answered 5xx or 429.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, ErrUnauthenticated) || errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 || apiErr.Status == http.StatusTooManyRequests
	}
	var te *transportError
	return errors.As(err, &te)
}

// IsAuthRejected reports whether the backend refused the credential.
func IsAuthRejected(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden)
}

// Credentials supplies the bearer credential; *session.Session implements it.
type Credentials interface {
	Credential() (string, bool)
}

type staticCredential string

func (s staticCredential) Credential() (string, bool) { return string(s), s != "" }

type Options struct {
	BaseURL     string
	HTTPClient  *http.Client
	Credentials Credentials
	// Limiter paces outgoing requests; nil means unpaced.
	Limiter       *rate.Limiter
	MaxUploadSize int64
}

type Client struct {
	base      string
	http      *http.Client
	creds     Credentials
	limiter   *rate.Limiter
	maxUpload int64
}

func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	maxUpload := opts.MaxUploadSize
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	return &Client{
		base:      strings.TrimSuffix(opts.BaseURL, "/"),
		http:      hc,
		creds:     opts.Credentials,
		limiter:   opts.Limiter,
		maxUpload: maxUpload,
	}
}

// WithCredential returns a copy of c that authenticates with token instead of c's source.
func (c *Client) WithCredential(token string) *Client {
	cp := *c
	cp.creds = staticCredential(token)
	return &cp
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

// request describes one backend call. body is JSON-encoded unless it is already a
// *bytes.Buffer, in which case contentType must be set.
type request struct {
	op          string
	method      string
	path        string
	query       url.Values
	body        any
	contentType string
	anonymous   bool
}

func (c *Client) do(ctx context.Context, r request, out any) (err error) {
	start := time.Now()
	defer logger.DeferLogDuration("gateway."+r.op, start)()
	defer func() { metrics.ObserveRequest(r.op, outcome(err), time.Since(start)) }()

	var token string
	if !r.anonymous {
		tok, ok := "", false
		if c.creds != nil {
			tok, ok = c.creds.Credential()
		}
		if !ok {
			return fmt.Errorf("gateway.%s: %w", r.op, ErrUnauthenticated)
		}
		token = tok
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("gateway.%s: %w", r.op, err)
		}
	}

	u := c.base + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	var body io.Reader
	contentType := r.contentType
	switch b := r.body.(type) {
	case nil:
	case *bytes.Buffer:
		body = b
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("gateway.%s: encode: %w", r.op, err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return fmt.Errorf("gateway.%s: %w", r.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("gateway.%s: %w", r.op, ctx.Err())
		}
		return fmt.Errorf("gateway.%s: %w", r.op, &transportError{err: err})
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("gateway.%s: %w", r.op, &transportError{err: err})
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("gateway.%s: %w", r.op, &APIError{Status: resp.StatusCode, Message: msg})
	}
	if decodeErr != nil {
		return fmt.Errorf("gateway.%s: decode envelope: %w", r.op, decodeErr)
	}
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		return fmt.Errorf("gateway.%s: %w", r.op, &APIError{Status: resp.StatusCode, Message: msg})
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("gateway.%s: decode data: %w", r.op, err)
	}
	return nil
}

func outcome(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.As(err, &apiErr):
		return "api_error"
	default:
		return "transport_error"
	}
}
