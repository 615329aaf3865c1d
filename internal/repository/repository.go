package repository

import (
	"context"
	"database/sql"

	"venue_control/internal/models"
)

type Admins interface {
	Create(ctx context.Context, username, hash string) (int, error)
	GetByUsername(ctx context.Context, username string) (*models.Admin, error)
}

// AccessTokens holds the license keys that allow sign-up.
type AccessTokens interface {
	Add(ctx context.Context, token string) (models.AccessToken, error)
	List(ctx context.Context) ([]models.AccessToken, error)
	Exists(ctx context.Context, token string) (bool, error)
	Delete(ctx context.Context, token string) (bool, error)
}

type Repository struct {
	Tree         TreeStore
	Admins       Admins
	AccessTokens AccessTokens
}

// NewRepository backs every store with db. Pass a non-nil tree to use a
// different tree backend.
func NewRepository(db *sql.DB, tree TreeStore) *Repository {
	if tree == nil {
		tree = NewTreeSQLite(db)
	}
	return &Repository{
		Tree:         tree,
		Admins:       NewAdminRepository(db),
		AccessTokens: NewAccessTokenSQLite(db),
	}
}
