package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"venue_control/internal/models"

	"github.com/google/uuid"
)

type AccessTokenSQLite struct {
	db *sql.DB
}

func NewAccessTokenSQLite(db *sql.DB) *AccessTokenSQLite { return &AccessTokenSQLite{db: db} }

const (
	insertAccessTokenSQL = `INSERT INTO access_tokens (token, created_at) VALUES (?, ?) ON CONFLICT(token) DO NOTHING`
	selectAccessTokenSQL = `SELECT token, created_at FROM access_tokens ORDER BY created_at ASC, token ASC`
	existsAccessTokenSQL = `SELECT 1 FROM access_tokens WHERE token = ?`
	deleteAccessTokenSQL = `DELETE FROM access_tokens WHERE token = ?`
)

// Add stores a license token. An empty token gets a generated UUID. Adding
// an existing token is a no-op.
func (r *AccessTokenSQLite) Add(ctx context.Context, token string) (models.AccessToken, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		token = uuid.NewString()
	}
	at := models.AccessToken{Token: token, CreatedAt: time.Now().UTC()}

	// Insert with SQLite TIMESTAMP format "YYYY-MM-DD HH:MM:SS"
	if _, err := r.db.ExecContext(ctx, insertAccessTokenSQL, at.Token, at.CreatedAt.Format("2006-01-02 15:04:05")); err != nil {
		return models.AccessToken{}, fmt.Errorf("insert access token: %w", err)
	}
	return at, nil
}

// List returns all tokens, oldest first.
func (r *AccessTokenSQLite) List(ctx context.Context) ([]models.AccessToken, error) {
	rows, err := r.db.QueryContext(ctx, selectAccessTokenSQL)
	if err != nil {
		return nil, fmt.Errorf("select access tokens: %w", err)
	}
	defer rows.Close()

	out := make([]models.AccessToken, 0, 16)
	for rows.Next() {
		var at models.AccessToken
		if err := rows.Scan(&at.Token, &at.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan access token: %w", err)
		}
		at.CreatedAt = at.CreatedAt.UTC()
		out = append(out, at)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *AccessTokenSQLite) Exists(ctx context.Context, token string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, existsAccessTokenSQL, token).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("lookup access token: %w", err)
	}
	return true, nil
}

// Delete removes token. It reports whether a row was removed.
func (r *AccessTokenSQLite) Delete(ctx context.Context, token string) (bool, error) {
	res, err := r.db.ExecContext(ctx, deleteAccessTokenSQL, token)
	if err != nil {
		return false, fmt.Errorf("delete access token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
