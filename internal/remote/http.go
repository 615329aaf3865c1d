package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 4 << 20

// PostJSON builds an Attempt that POSTs payload as JSON to url.
//
// A body carrying a top-level "error" member is a RemoteError whatever the
// HTTP status. Otherwise 2xx is OK, 5xx is a transient failure and any
// other status is terminal.
func PostJSON(client *http.Client, url string, payload any, headers map[string]string) Attempt {
	return func(ctx context.Context) Result {
		b, err := json.Marshal(payload)
		if err != nil {
			return Failure(Permanent(fmt.Errorf("marshal payload: %w", err)))
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
		if err != nil {
			return Failure(Permanent(fmt.Errorf("build request: %w", err)))
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return do(client, req)
	}
}

// Get builds an Attempt issuing a GET to url with the same response rules as PostJSON.
func Get(client *http.Client, url string) Attempt {
	return func(ctx context.Context) Result {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return Failure(Permanent(fmt.Errorf("build request: %w", err)))
		}
		return do(client, req)
	}
}

func do(client *http.Client, req *http.Request) Result {
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Failure(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Failure(fmt.Errorf("read response: %w", err))
	}

	if msg, ok := errorPayload(body); ok {
		return RemoteError(msg)
	}
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return OK(body)
	case resp.StatusCode >= 500:
		return Failure(&StatusError{Code: resp.StatusCode, Body: string(body)})
	default:
		return Failure(Permanent(&StatusError{Code: resp.StatusCode, Body: string(body)}))
	}
}

// errorPayload extracts the message of a {"error": {...}} body.
func errorPayload(body []byte) (string, bool) {
	if len(bytes.TrimSpace(body)) == 0 {
		return "", false
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", false
	}
	raw, ok := envelope["error"]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return "", false
	}

	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Message, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	return "", true
}
