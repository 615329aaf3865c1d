package remote

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"connection reset", fmt.Errorf("post: %w", syscall.ECONNRESET), true},
		{"connection aborted", syscall.ECONNABORTED, true},
		{"op error", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("no route")}, true},
		{"unexpected eof", io.ErrUnexpectedEOF, true},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"tls record header", tls.RecordHeaderError{Msg: "first record does not look like a TLS handshake"}, true},
		{"tls alert", tls.AlertError(40), true},
		{"max retries text", errors.New("HTTPSConnectionPool: Max retries exceeded with url"), true},
		{"aborted text", errors.New("('Connection aborted.', RemoteDisconnected())"), true},
		{"server error", &StatusError{Code: 502}, true},
		{"client error", &StatusError{Code: 404}, false},
		{"permanent", Permanent(io.EOF), false},
		{"generic", errors.New("invalid credential"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsTransient(tc.err))
		})
	}
}

func TestPermanent_Nil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
	assert.False(t, IsPermanent(errors.New("x")))
	assert.True(t, IsPermanent(fmt.Errorf("wrap: %w", Permanent(errors.New("x")))))
}
