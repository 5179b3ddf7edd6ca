// package services implements the HTTP clients for the course backend.
package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/desertthunder/coursex/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// FetchError reports a failed read of course data.
type FetchError struct {
	Resource   string // "course", "sections", "courses" or "analytics"
	StatusCode int    // zero when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("failed to fetch %s", e.Resource)
	}
	return fmt.Sprintf("failed to fetch %s: %v", e.Resource, e.Err)
}

// Unwrap exposes both [shared.ErrFetch] and the underlying cause to [errors.Is].
func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{shared.ErrFetch}
	}
	return []error{shared.ErrFetch, e.Err}
}

// MutationError reports a failed write (section completion or course deletion).
//
// Message carries the server's explanation when it sent one.
type MutationError struct {
	Operation  string
	StatusCode int
	Message    string
	Err        error
}

func (e *MutationError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("failed to %s: %s", e.Operation, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
	default:
		return fmt.Sprintf("failed to %s", e.Operation)
	}
}

// Unwrap exposes both [shared.ErrMutation] and the underlying cause to [errors.Is].
func (e *MutationError) Unwrap() []error {
	if e.Err == nil {
		return []error{shared.ErrMutation}
	}
	return []error{shared.ErrMutation, e.Err}
}

// ServerMessage returns the explanation the server gave for err, if err is a [MutationError] carrying one.
func ServerMessage(err error) string {
	var me *MutationError
	if errors.As(err, &me) {
		return me.Message
	}
	return ""
}

// statusError is a non-2xx response. Message is taken from the body's message, error or detail field.
type statusError struct {
	StatusCode int
	Message    string
}

func (e *statusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("status %d", e.StatusCode)
}

// NewHTTPClient returns a client with the given timeout. When token is set,
// every request carries it as a bearer token.
func NewHTTPClient(ctx context.Context, token string, timeout time.Duration) *http.Client {
	client := &http.Client{Timeout: timeout}
	if token == "" {
		return client
	}

	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	ctx = context.WithValue(ctx, oauth2.HTTPClient, client)
	authed := oauth2.NewClient(ctx, src)
	authed.Timeout = timeout
	return authed
}

// NewLimiter builds the client-side request limiter. A non-positive rate disables limiting.
func NewLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 || math.IsInf(rps, 1) {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// ServerMessage returns the server's explanation, if it sent one.
func (e *MutationError) ServerMessage() string { return e.Message }
