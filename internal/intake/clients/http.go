// Package clients holds the HTTP clients of the external collaborators used
// by an intake session: document scanning, risk prediction, feedback and the
// credential endpoints.
package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"medinauts/internal/platform/tracing"
	"medinauts/pkg/platform/circuit"
)

//go:generate mockgen -source=http.go -destination=mocks/http_mock.go -package=mocks

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

const (
	defaultTimeout  = 10 * time.Second
	maxResponseBody = 1 << 20
)

// Option configures any of the collaborator clients.
type Option func(*base)

// WithHTTPDoer replaces the default *http.Client (tests, custom transports).
func WithHTTPDoer(d HTTPDoer) Option {
	return func(b *base) {
		if d != nil {
			b.doer = d
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(b *base) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithTracer sets the tracer used for collaborator spans.
func WithTracer(t tracing.Tracer) Option {
	return func(b *base) {
		if t != nil {
			b.tracer = t
		}
	}
}

// WithBreaker guards the client with b. Transport failures and 5xx
// responses count as failures; while b is open calls fail as unreachable
// without reaching the collaborator.
func WithBreaker(b *circuit.Breaker) Option {
	return func(c *base) {
		c.breaker = b
	}
}

// ErrCircuitOpen is the underlying error of calls refused by an open breaker.
var ErrCircuitOpen = errors.New("circuit open")

type base struct {
	name    string
	baseURL string
	timeout time.Duration
	doer    HTTPDoer
	tracer  tracing.Tracer
	breaker *circuit.Breaker
}

func newBase(name, baseURL string, opts []Option) base {
	b := base{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: defaultTimeout,
		tracer:  tracing.NewNoop(),
	}
	for _, opt := range opts {
		opt(&b)
	}
	if b.doer == nil {
		b.doer = &http.Client{Timeout: b.timeout}
	}
	return b
}

func (b *base) url(path string) string {
	return b.baseURL + path
}

// response is a fully read collaborator response.
type response struct {
	status int
	body   []byte
}

// do executes req and reads the body. Transport failures are classified as
// timeout or unreachable; status codes are left to the caller.
func (b *base) do(ctx context.Context, req *http.Request) (*response, error) {
	if b.breaker == nil {
		return b.send(ctx, req)
	}
	if !b.breaker.Allow() {
		return nil, NewError(CategoryUnreachable, b.name, 0, "collaborator unavailable", ErrCircuitOpen)
	}
	resp, err := b.send(ctx, req)
	if err != nil || resp.status >= 500 {
		b.breaker.RecordFailure()
	} else {
		b.breaker.RecordSuccess()
	}
	return resp, err
}

func (b *base) send(ctx context.Context, req *http.Request) (*response, error) {
	resp, err := b.doer.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, NewError(CategoryTimeout, b.name, 0, "request timeout", err)
		}
		return nil, NewError(CategoryUnreachable, b.name, 0, "failed to execute request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, NewError(CategoryTimeout, b.name, resp.StatusCode, "timeout reading response body", err)
		}
		return nil, NewError(CategoryUnreachable, b.name, resp.StatusCode, "failed to read response body", err)
	}
	return &response{status: resp.StatusCode, body: body}, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// errorResponse is the error body of the backend: {"detail": "..."}.
type errorResponse struct {
	Detail  string `json:"detail"`
	Message string `json:"message"`
}

// statusError classifies a non-2xx response.
func (b *base) statusError(r *response) *CollaboratorError {
	msg := http.StatusText(r.status)
	var er errorResponse
	if json.Unmarshal(r.body, &er) == nil {
		switch {
		case er.Detail != "":
			msg = er.Detail
		case er.Message != "":
			msg = er.Message
		}
	}

	switch {
	case r.status == http.StatusUnauthorized:
		return NewError(CategoryAuthentication, b.name, r.status, msg, nil)
	case r.status >= 500:
		return NewError(CategoryOutage, b.name, r.status, msg, nil)
	case r.status >= 400:
		return NewError(CategoryRejected, b.name, r.status, msg, nil)
	default:
		return NewError(CategoryContractMismatch, b.name, r.status, fmt.Sprintf("unexpected status code: %d", r.status), nil)
	}
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
