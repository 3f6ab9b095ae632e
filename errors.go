package gridfetch

import (
	"context"
	"errors"
	"net"
	"syscall"
)

var (
	// ErrNotFound is returned when no stored object matches a lookup key
	ErrNotFound = errors.New("not found")
	// ErrMalformedInput is returned when a request key has an invalid percent-escape
	ErrMalformedInput = errors.New("malformed input")
	// ErrInvalidInput is returned when configuration or command input validation fails
	ErrInvalidInput = errors.New("invalid input")
	// ErrAllocation is returned when a stream would need an unbounded buffer
	ErrAllocation = errors.New("allocation failure")
	// ErrTransport is returned when writing to the client fails mid-stream
	ErrTransport = errors.New("transport error")
	// ErrCorruptObject is returned when stored chunks disagree with the object metadata
	ErrCorruptObject = errors.New("corrupt object")
)

// ConnectReason distinguishes why a backend connection could not be established.
type ConnectReason string

const (
	ReasonBadArguments   ConnectReason = "bad-arguments"
	ReasonNoSocket       ConnectReason = "no-socket"
	ReasonConnectFailure ConnectReason = "connect-failure"
	ReasonNotPrimary     ConnectReason = "not-primary"
	ReasonUnknown        ConnectReason = "unknown"
)

// ConnectError is returned by Conn.EnsureConnected when the backend is
// unreachable, misconfigured, or not accepting writes as primary.
type ConnectError struct {
	Backend string
	Reason  ConnectReason
	Err     error
}

func (e *ConnectError) Error() string {
	msg := "connect " + e.Backend + ": " + string(e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// NewConnectError wraps err with an explicit reason.
func NewConnectError(reason ConnectReason, err error) *ConnectError {
	return &ConnectError{Reason: reason, Err: err}
}

// ClassifyConnectError returns err as a *ConnectError, inferring the reason
// from the underlying network error when the backend did not set one.
func ClassifyConnectError(backend string, err error) *ConnectError {
	if err == nil {
		return nil
	}

	var ce *ConnectError
	if errors.As(err, &ce) {
		if ce.Backend == "" {
			ce.Backend = backend
		}
		return ce
	}

	reason := ReasonUnknown
	var netErr net.Error
	switch {
	case errors.Is(err, syscall.EMFILE), errors.Is(err, syscall.ENFILE), errors.Is(err, syscall.ENOBUFS):
		reason = ReasonNoSocket
	case errors.As(err, &netErr), errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, context.DeadlineExceeded):
		reason = ReasonConnectFailure
	}

	return &ConnectError{Backend: backend, Reason: reason, Err: err}
}
