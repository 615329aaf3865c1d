package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noSleep() *Executor {
	return New(Config{}, nil, nil).WithSleep(func(context.Context, time.Duration) error { return nil })
}

func TestPostJSON_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "key=abc", r.Header.Get("Authorization"))
		var in map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "a@b.c", in["email"])
		_, _ = w.Write([]byte(`{"idToken":"t1"}`))
	}))
	defer srv.Close()

	body, err := noSleep().Execute(context.Background(), "login",
		PostJSON(srv.Client(), srv.URL, map[string]any{"email": "a@b.c"}, map[string]string{"Authorization": "key=abc"}))

	require.NoError(t, err)
	assert.JSONEq(t, `{"idToken":"t1"}`, string(body))
}

func TestPostJSON_ErrorPayloadOn200IsRemoteError(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"EMAIL_NOT_FOUND"}}`))
	}))
	defer srv.Close()

	_, err := noSleep().Execute(context.Background(), "login", PostJSON(srv.Client(), srv.URL, map[string]any{}, nil))

	var re *Error
	require.True(t, errors.As(err, &re))
	assert.Equal(t, ClassRemote, re.Class)
	assert.Equal(t, "EMAIL_NOT_FOUND", re.Message)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestPostJSON_ErrorPayloadOn400IsRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"INVALID_PASSWORD"}}`))
	}))
	defer srv.Close()

	_, err := noSleep().Execute(context.Background(), "login", PostJSON(srv.Client(), srv.URL, nil, nil))

	var re *Error
	require.True(t, errors.As(err, &re))
	assert.Equal(t, ClassRemote, re.Class)
	assert.Equal(t, "INVALID_PASSWORD", re.Message)
}

func TestPostJSON_ServerErrorsRetriedThenSucceed(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream down"))
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := noSleep().Execute(context.Background(), "refresh", PostJSON(srv.Client(), srv.URL, nil, nil))

	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestPostJSON_ClientStatusWithoutPayloadIsTerminal(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := noSleep().Execute(context.Background(), "push", PostJSON(srv.Client(), srv.URL, nil, nil))

	class, ok := ClassOf(err)
	require.True(t, ok)
	assert.Equal(t, ClassTerminal, class)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestPostJSON_UnreachableIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := noSleep().Execute(context.Background(), "login", PostJSON(http.DefaultClient, url, nil, nil))

	assert.True(t, IsUnavailable(err))
}

func TestErrorPayload(t *testing.T) {
	cases := []struct {
		body    string
		wantMsg string
		wantOK  bool
	}{
		{``, "", false},
		{`not json`, "", false},
		{`[1,2]`, "", false},
		{`{"data":1}`, "", false},
		{`{"error":null}`, "", false},
		{`{"error":{"message":"boom"}}`, "boom", true},
		{`{"error":"invalid_grant"}`, "invalid_grant", true},
		{`{"error":{"code":7}}`, "", true},
	}
	for _, tc := range cases {
		msg, ok := errorPayload([]byte(tc.body))
		assert.Equal(t, tc.wantOK, ok, tc.body)
		assert.Equal(t, tc.wantMsg, msg, tc.body)
	}
}
