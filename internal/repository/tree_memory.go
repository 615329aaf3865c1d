package repository

import (
	"context"
	"strings"
	"sync"
)

// MemoryTree is an in-process TreeStore. Values are normalized on write and
// copied on read, so callers never share maps with the store.
type MemoryTree struct {
	mu   sync.RWMutex
	root map[string]any
}

func NewMemoryTree() *MemoryTree {
	return &MemoryTree{root: map[string]any{}}
}

func (m *MemoryTree) Get(ctx context.Context, path string) (any, error) {
	segs, err := SplitPath(path)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var cur any = m.root
	for _, s := range segs {
		node, ok := cur.(map[string]any)
		if !ok {
			return nil, nil
		}
		if cur, ok = node[s]; !ok {
			return nil, nil
		}
	}
	if node, ok := cur.(map[string]any); ok && len(node) == 0 {
		return nil, nil
	}
	return deepCopy(cur), nil
}

func (m *MemoryTree) Set(ctx context.Context, path string, value any) error {
	segs, err := SplitPath(path)
	if err != nil {
		return err
	}
	norm, err := normalize(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(segs, norm)
	return nil
}

func (m *MemoryTree) Update(ctx context.Context, path string, fields map[string]any) error {
	segs, err := SplitPath(path)
	if err != nil {
		return err
	}
	if err := validateFields(fields); err != nil {
		return err
	}
	norms := make(map[string]any, len(fields))
	for k, v := range fields {
		n, err := normalize(v)
		if err != nil {
			return err
		}
		norms[strings.Trim(k, "/")] = n
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, n := range norms {
		m.put(append(append([]string{}, segs...), k), n)
	}
	return nil
}

func (m *MemoryTree) Delete(ctx context.Context, path string) error {
	segs, err := SplitPath(path)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(segs, nil)
	return nil
}

// put replaces the node at segs; nil removes it and prunes emptied parents.
// Callers hold the write lock.
func (m *MemoryTree) put(segs []string, value any) {
	if len(segs) == 0 {
		root, _ := value.(map[string]any)
		if root == nil {
			root = map[string]any{}
		}
		m.root = root
		return
	}
	parents := make([]map[string]any, 0, len(segs))
	cur := m.root
	for _, s := range segs[:len(segs)-1] {
		next, ok := cur[s].(map[string]any)
		if !ok {
			if value == nil {
				return
			}
			next = map[string]any{}
			cur[s] = next
		}
		parents = append(parents, cur)
		cur = next
	}
	last := segs[len(segs)-1]
	if value != nil {
		cur[last] = value
		return
	}
	delete(cur, last)
	for i := len(parents) - 1; i >= 0 && len(cur) == 0; i-- {
		delete(parents[i], segs[i])
		cur = parents[i]
	}
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, c := range t {
			out[k] = deepCopy(c)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, c := range t {
			out[i] = deepCopy(c)
		}
		return out
	default:
		return v
	}
}
