// Package identity wraps the remote identity service's REST API.
package identity

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// Sentinel errors classifying identity service failures. Handlers map
// these onto user-facing messages; none of them is retried automatically.
var (
	// ErrTimeout indicates the remote call did not complete within its bound.
	ErrTimeout = errors.New("identity service timeout")
	// ErrUnauthorized indicates invalid credentials or an invalid/expired token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrConflict indicates a duplicate username or email on register.
	ErrConflict = errors.New("duplicate username or email")
	// ErrValidation indicates the remote service rejected malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates the requested user does not exist.
	ErrNotFound = errors.New("user not found")
	// ErrServer indicates a remote 5xx failure.
	ErrServer = errors.New("identity service error")
)

// classifyStatus maps an HTTP status code onto the error taxonomy.
func classifyStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrUnauthorized
	case status == http.StatusConflict:
		return ErrConflict
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return ErrValidation
	case status >= 500:
		return ErrServer
	default:
		return ErrServer
	}
}

// classifyTransport maps transport-level failures. Deadline expiry in any
// shape becomes ErrTimeout so callers never observe a hung call.
func classifyTransport(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	return ErrServer
}
