package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	"task-agent/internal/domain/entity"
)

// OracleError is a non-fatal failure of a generation call.
type OracleError struct {
	Op         string
	StatusCode int
	Retryable  bool
	Err        error
}

func (e *OracleError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OracleError) Unwrap() error {
	return e.Err
}

func IsRetryable(err error) bool {
	var oe *OracleError
	return errors.As(err, &oe) && oe.Retryable
}

// ClassifyStatus maps an HTTP status from the provider onto the error
// taxonomy: rejected credentials are fatal, throttling and server errors are
// retryable, everything else is a plain oracle error.
func ClassifyStatus(op string, status int, err error) error {
	switch {
	case status == 401 || status == 403:
		return entity.NewFatalError(op, err)
	case status == 408 || status == 429 || status >= 500:
		return &OracleError{Op: op, StatusCode: status, Retryable: true, Err: err}
	default:
		return &OracleError{Op: op, StatusCode: status, Err: err}
	}
}

// ClassifyTransport handles errors that carry no HTTP status. parent is the
// caller's context, before any per-call timeout was applied.
func ClassifyTransport(parent context.Context, op string, err error) error {
	if parent.Err() != nil {
		return entity.NewFatalError(op, parent.Err())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &OracleError{Op: op, Retryable: true, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &OracleError{Op: op, Retryable: true, Err: err}
	}
	var urlErr *url.Error
	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &urlErr) || errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return entity.NewFatalError(op, err)
	}
	return &OracleError{Op: op, Err: err}
}
