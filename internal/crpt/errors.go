package crpt

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"

	"crptapi/internal/ratelimit"
)

// ErrorKind classifies a failed API call.
type ErrorKind int

const (
	// KindConnection means the server could not be reached.
	KindConnection ErrorKind = iota + 1
	// KindHTTPStatus means the server answered with a failure status.
	KindHTTPStatus
	// KindFormat means a response body could not be decoded.
	KindFormat
	// KindIO covers other transport and read failures.
	KindIO
	// KindInterrupted means the caller's context ended before the call finished.
	KindInterrupted
)

func (k ErrorKind) String() string {
	switch k {
	case KindConnection:
		return "connection_error"
	case KindHTTPStatus:
		return "http_status_error"
	case KindFormat:
		return "format_error"
	case KindIO:
		return "io_error"
	case KindInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// NoStatus is the StatusCode of errors that did not come from an HTTP status.
const NoStatus = -1

// APIError is returned by every failed call except signer faults, which are
// passed through unchanged.
type APIError struct {
	StatusCode int
	Kind       ErrorKind
	Err        error
}

func (e *APIError) Error() string {
	msg := "crpt: " + e.Kind.String()
	if e.StatusCode != NoStatus {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is an *APIError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

// StatusCode returns the HTTP status carried by err, or NoStatus.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return NoStatus
}

// Error constructors

func NewStatusError(code int, body string) *APIError {
	var err error
	if body != "" {
		err = errors.New(body)
	}
	return &APIError{StatusCode: code, Kind: KindHTTPStatus, Err: err}
}

func NewFormatError(err error) *APIError {
	return &APIError{StatusCode: NoStatus, Kind: KindFormat, Err: err}
}

func NewInterruptedError(err error) *APIError {
	return &APIError{StatusCode: NoStatus, Kind: KindInterrupted, Err: err}
}

// transportError classifies a failure returned by the transport or while
// reading a response body.
func transportError(err error) *APIError {
	switch {
	case isInterruption(err):
		return NewInterruptedError(err)
	case isConnectionFailure(err):
		return &APIError{StatusCode: NoStatus, Kind: KindConnection, Err: err}
	default:
		return &APIError{StatusCode: NoStatus, Kind: KindIO, Err: err}
	}
}

func isInterruption(err error) bool {
	return errors.Is(err, ratelimit.ErrInterrupted) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func isConnectionFailure(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
