package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// TreeStore is a JSON tree addressed by "/"-delimited paths. The empty path
// is the root.
type TreeStore interface {
	// Get returns the subtree at path, or nil if nothing is stored there.
	Get(ctx context.Context, path string) (any, error)
	// Set replaces the subtree at path. A nil value deletes it.
	Set(ctx context.Context, path string, value any) error
	// Update merges fields into the object at path; each field replaces the
	// matching child.
	Update(ctx context.Context, path string, fields map[string]any) error
	// Delete removes the subtree at path.
	Delete(ctx context.Context, path string) error
}

var ErrInvalidPath = errors.New("invalid store path")

const reservedPathChars = ".#$[]"

// SplitPath validates p and returns its segments. Leading and trailing
// slashes are ignored.
func SplitPath(p string) ([]string, error) {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil, nil
	}
	segs := strings.Split(p, "/")
	for _, s := range segs {
		if s == "" || strings.ContainsAny(s, reservedPathChars) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, p)
		}
	}
	return segs, nil
}

func JoinPath(segs ...string) string { return strings.Join(segs, "/") }

// normalize converts v into the shapes the store hands back: objects as
// map[string]any, numbers as json.Number. Empty objects and nulls are
// pruned, so the result may be nil.
func normalize(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	out, err := decodeJSON(b)
	if err != nil {
		return nil, err
	}
	return prune(out), nil
}

func decodeJSON(b []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return out, nil
}

func prune(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	for k, child := range m {
		if child = prune(child); child == nil {
			delete(m, k)
		} else {
			m[k] = child
		}
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

// flatten lists the leaves of an already normalized value keyed by full path.
func flatten(prefix string, v any, out map[string]any) {
	m, ok := v.(map[string]any)
	if !ok {
		if v != nil {
			out[prefix] = v
		}
		return
	}
	for k, child := range m {
		p := k
		if prefix != "" {
			p = prefix + "/" + k
		}
		flatten(p, child, out)
	}
}

func validateFields(fields map[string]any) error {
	for k := range fields {
		if _, err := SplitPath(k); err != nil || strings.Contains(strings.Trim(k, "/"), "/") || strings.Trim(k, "/") == "" {
			return fmt.Errorf("%w: field %q", ErrInvalidPath, k)
		}
	}
	return nil
}
