package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"venue_control/internal/remote"

	"github.com/stretchr/testify/require"
)

// quickExec retries like production but never sleeps.
func quickExec() *remote.Executor {
	return remote.New(remote.Config{}, nil, nil).WithSleep(func(context.Context, time.Duration) error { return nil })
}

type fakeVerifier struct {
	calls  int
	verify func(token string) (string, error)
}

func (f *fakeVerifier) Verify(_ context.Context, token string) (string, error) {
	f.calls++
	return f.verify(token)
}

// requireAppError asserts err renders as status and message.
func requireAppError(t *testing.T, err error, status int, message string) {
	t.Helper()
	require.Error(t, err)
	var app *AppError
	require.True(t, errors.As(err, &app), "want *AppError, got %T: %v", err, err)
	require.Equal(t, status, app.Status)
	if message != "" {
		require.Equal(t, message, app.Message)
	}
}

