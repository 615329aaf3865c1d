package remote

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
)

// Classifier reports whether a failure is transient and worth retrying.
type Classifier func(err error) bool

// Permanent marks err as non-retryable regardless of what it wraps.
//
// Verifiers wrap parse failures with Permanent so a malformed token that
// happens to wrap io.EOF is not mistaken for a dropped connection.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// IsPermanent reports whether err is wrapped with Permanent.
func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

type permanentError struct{ err error }

func (e permanentError) Error() string { return fmt.Sprintf("permanent: %v", e.err) }
func (e permanentError) Unwrap() error { return e.err }

// transientMarkers catch errors that lost their type on the way up, e.g.
// SDK errors flattened into strings.
var transientMarkers = []string{
	"connection reset",
	"connection aborted",
	"connection refused",
	"broken pipe",
	"remote disconnected",
	"eof occurred",
	"max retries exceeded",
	"tls handshake",
	"handshake failure",
}

// IsTransient is the default classifier: connection resets and aborts,
// TLS failures, timeouts, 5xx responses and exhausted-retry messages are
// transient; everything else is terminal.
func IsTransient(err error) bool {
	if err == nil || IsPermanent(err) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	for _, errno := range []syscall.Errno{syscall.ECONNRESET, syscall.ECONNABORTED, syscall.ECONNREFUSED, syscall.EPIPE} {
		if errors.Is(err, errno) {
			return true
		}
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var (
		netErr    net.Error
		opErr     *net.OpError
		recordErr tls.RecordHeaderError
		alertErr  tls.AlertError
		certErr   *tls.CertificateVerificationError
		statusErr *StatusError
	)
	switch {
	case errors.As(err, &opErr):
		return true
	case errors.As(err, &netErr) && netErr.Timeout():
		return true
	case errors.As(err, &recordErr), errors.As(err, &alertErr), errors.As(err, &certErr):
		return true
	case errors.As(err, &statusErr):
		return statusErr.Code >= 500
	}

	msg := strings.ToLower(err.Error())
	for _, m := range transientMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
