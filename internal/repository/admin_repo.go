package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"venue_control/internal/models"
)

type AdminRepository struct {
	db *sql.DB
}

func NewAdminRepository(db *sql.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

// Ensure implementation of Admins interface at compile time.
var _ Admins = (*AdminRepository)(nil)

const (
	insertAdminSQL           = `INSERT INTO admins (username, password_hash) VALUES (?, ?)`
	selectAdminByUsernameSQL = `SELECT id, username, password_hash FROM admins WHERE username = ?`
)

// Create inserts a new admin and returns its ID.
func (r *AdminRepository) Create(ctx context.Context, username, passwordHash string) (int, error) {
	res, err := r.db.ExecContext(ctx, insertAdminSQL, username, passwordHash)
	if err != nil {
		return 0, fmt.Errorf("insert admin %q: %w", username, err)
	}
	lastID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id for admin %q: %w", username, err)
	}
	return int(lastID), nil
}

// GetByUsername fetches an admin by username. Returns (nil, nil) if not found.
func (r *AdminRepository) GetByUsername(ctx context.Context, username string) (*models.Admin, error) {
	var a models.Admin
	err := r.db.QueryRowContext(ctx, selectAdminByUsernameSQL, username).Scan(&a.ID, &a.Username, &a.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select admin %q: %w", username, err)
	}
	return &a, nil
}
