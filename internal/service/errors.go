package service

import (
	"errors"
	"fmt"
	"net/http"

	"venue_control/internal/remote"
)

// AppError is a failure with a client-facing status and message.
type AppError struct {
	Status  int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func newAppError(status int, message string, err error) *AppError {
	return &AppError{Status: status, Message: message, Err: err}
}

const msgUpstreamUnavailable = "External service unreachable (network/SSL)"

// StatusOf maps err to the status and message a handler renders.
func StatusOf(err error) (int, string) {
	var app *AppError
	if errors.As(err, &app) {
		return app.Status, app.Message
	}
	var re *remote.Error
	if errors.As(err, &re) {
		switch re.Class {
		case remote.ClassUnavailable:
			return http.StatusServiceUnavailable, msgUpstreamUnavailable
		case remote.ClassRemote:
			return http.StatusBadRequest, re.Message
		default:
			return http.StatusBadRequest, "External request failed"
		}
	}
	return http.StatusInternalServerError, "Internal Server Error"
}

// fromRemote converts an executor error into an AppError, keeping the remote
// message for application-level failures.
func fromRemote(err error) error {
	status, msg := StatusOf(err)
	return newAppError(status, msg, err)
}
