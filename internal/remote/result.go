package remote

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind tags the outcome of a single attempt.
type Kind int

const (
	KindOK Kind = iota
	// KindRemoteError is a well-formed error reported by the remote service.
	// The transport worked, so it is never retried.
	KindRemoteError
	// KindFailure is a transport or SDK failure; the classifier decides
	// whether it is retried.
	KindFailure
)

// Result is what an Attempt returns. Exactly one of Body, Message or Err is
// meaningful depending on Kind.
type Result struct {
	Kind    Kind
	Body    []byte
	Message string
	Err     error
}

func OK(body []byte) Result { return Result{Kind: KindOK, Body: body} }

func RemoteError(message string) Result {
	if message == "" {
		message = "API error"
	}
	return Result{Kind: KindRemoteError, Message: message}
}

func Failure(err error) Result { return Result{Kind: KindFailure, Err: err} }

// Class is the normalized failure class surfaced to callers.
type Class int

const (
	// ClassTerminal is a failure retrying would not resolve.
	ClassTerminal Class = iota
	// ClassRemote is an application-level error reported by the remote service.
	ClassRemote
	// ClassUnavailable means transient failures persisted through the last attempt.
	ClassUnavailable
)

func (c Class) String() string {
	switch c {
	case ClassRemote:
		return "remote"
	case ClassUnavailable:
		return "unavailable"
	default:
		return "terminal"
	}
}

// Error is the single failure type returned by Executor.Execute.
type Error struct {
	Op       string
	Class    Class
	Message  string
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s (%s): %v", e.Op, e.Message, e.Class, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s (%s)", e.Op, e.Message, e.Class)
	default:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Class, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Status maps the class to the HTTP status a handler should answer with.
func (e *Error) Status() int {
	if e.Class == ClassUnavailable {
		return http.StatusServiceUnavailable
	}
	return http.StatusBadRequest
}

// ClassOf extracts the class of an executor error.
func ClassOf(err error) (Class, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Class, true
	}
	return ClassTerminal, false
}

// IsUnavailable reports whether err is an exhausted transient failure.
func IsUnavailable(err error) bool {
	c, ok := ClassOf(err)
	return ok && c == ClassUnavailable
}

// StatusError is a non-2xx HTTP response without an error payload.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}
