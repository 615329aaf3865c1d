package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// TreeSQLite stores one row per leaf in tree_nodes.
type TreeSQLite struct {
	db *sql.DB
}

func NewTreeSQLite(db *sql.DB) *TreeSQLite {
	return &TreeSQLite{db: db}
}

const (
	selectAllNodesSQL     = `SELECT path, value FROM tree_nodes`
	selectSubtreeSQL      = `SELECT path, value FROM tree_nodes WHERE path = ? OR (path >= ? AND path < ?)`
	deleteAllNodesSQL     = `DELETE FROM tree_nodes`
	deleteSubtreeSQL      = `DELETE FROM tree_nodes WHERE path = ? OR (path >= ? AND path < ?)`
	deleteNodeSQL         = `DELETE FROM tree_nodes WHERE path = ?`
	insertOrUpdateNodeSQL = `
		INSERT INTO tree_nodes (path, value) VALUES (?, ?)
		ON CONFLICT(path) DO UPDATE SET value=excluded.value
	`
)

// subtreeBounds returns the range arguments matching p and its descendants.
// '0' is the byte after '/'.
func subtreeBounds(p string) []any {
	return []any{p, p + "/", p + "0"}
}

// Get rebuilds the subtree at path from its leaf rows.
func (r *TreeSQLite) Get(ctx context.Context, path string) (any, error) {
	segs, err := SplitPath(path)
	if err != nil {
		return nil, err
	}
	p := JoinPath(segs...)

	var rows *sql.Rows
	if p == "" {
		rows, err = r.db.QueryContext(ctx, selectAllNodesSQL)
	} else {
		rows, err = r.db.QueryContext(ctx, selectSubtreeSQL, subtreeBounds(p)...)
	}
	if err != nil {
		return nil, fmt.Errorf("select %q: %w", p, err)
	}
	defer rows.Close()

	var root any
	for rows.Next() {
		var nodePath, raw string
		if err := rows.Scan(&nodePath, &raw); err != nil {
			return nil, fmt.Errorf("scan %q: %w", p, err)
		}
		val, err := decodeJSON([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", nodePath, err)
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(nodePath, p), "/")
		root = insertLeaf(root, rel, val)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %q: %w", p, err)
	}
	return root, nil
}

// insertLeaf places val at the relative path rel inside root.
func insertLeaf(root any, rel string, val any) any {
	if rel == "" {
		return val
	}
	m, ok := root.(map[string]any)
	if !ok {
		m = map[string]any{}
	}
	segs := strings.Split(rel, "/")
	cur := m
	for _, s := range segs[:len(segs)-1] {
		next, ok := cur[s].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[s] = next
		}
		cur = next
	}
	cur[segs[len(segs)-1]] = val
	return m
}

func (r *TreeSQLite) Set(ctx context.Context, path string, value any) error {
	segs, err := SplitPath(path)
	if err != nil {
		return err
	}
	norm, err := normalize(value)
	if err != nil {
		return err
	}
	return r.inTx(ctx, func(tx *sql.Tx) error {
		return writeSubtree(ctx, tx, segs, norm)
	})
}

func (r *TreeSQLite) Update(ctx context.Context, path string, fields map[string]any) error {
	segs, err := SplitPath(path)
	if err != nil {
		return err
	}
	if err := validateFields(fields); err != nil {
		return err
	}
	keys := make([]string, 0, len(fields))
	norms := make(map[string]any, len(fields))
	for k, v := range fields {
		n, err := normalize(v)
		if err != nil {
			return fmt.Errorf("field %q: %w", k, err)
		}
		k = strings.Trim(k, "/")
		keys = append(keys, k)
		norms[k] = n
	}
	sort.Strings(keys)

	return r.inTx(ctx, func(tx *sql.Tx) error {
		for _, k := range keys {
			child := append(append([]string{}, segs...), k)
			if err := writeSubtree(ctx, tx, child, norms[k]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *TreeSQLite) Delete(ctx context.Context, path string) error {
	segs, err := SplitPath(path)
	if err != nil {
		return err
	}
	p := JoinPath(segs...)
	if p == "" {
		_, err = r.db.ExecContext(ctx, deleteAllNodesSQL)
	} else {
		_, err = r.db.ExecContext(ctx, deleteSubtreeSQL, subtreeBounds(p)...)
	}
	if err != nil {
		return fmt.Errorf("delete %q: %w", p, err)
	}
	return nil
}

// writeSubtree replaces everything at segs with value. Ancestor leaves are
// removed so the path can become an object.
func writeSubtree(ctx context.Context, tx *sql.Tx, segs []string, value any) error {
	p := JoinPath(segs...)
	var err error
	if p == "" {
		_, err = tx.ExecContext(ctx, deleteAllNodesSQL)
	} else {
		_, err = tx.ExecContext(ctx, deleteSubtreeSQL, subtreeBounds(p)...)
	}
	if err != nil {
		return fmt.Errorf("clear %q: %w", p, err)
	}
	if value == nil {
		return nil
	}
	for i := 1; i < len(segs); i++ {
		if _, err := tx.ExecContext(ctx, deleteNodeSQL, JoinPath(segs[:i]...)); err != nil {
			return fmt.Errorf("clear ancestor of %q: %w", p, err)
		}
	}

	leaves := map[string]any{}
	flatten(p, value, leaves)
	paths := make([]string, 0, len(leaves))
	for lp := range leaves {
		paths = append(paths, lp)
	}
	sort.Strings(paths)
	for _, lp := range paths {
		b, err := json.Marshal(leaves[lp])
		if err != nil {
			return fmt.Errorf("encode %q: %w", lp, err)
		}
		if _, err := tx.ExecContext(ctx, insertOrUpdateNodeSQL, lp, string(b)); err != nil {
			return fmt.Errorf("write %q: %w", lp, err)
		}
	}
	return nil
}

func (r *TreeSQLite) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tree transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tree transaction: %w", err)
	}
	return nil
}
