package repository

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockTree(t *testing.T) (*TreeSQLite, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	cleanup := func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("unmet sqlmock expectations: %v", err)
		}
		_ = db.Close()
	}
	return NewTreeSQLite(db), mock, cleanup
}

func TestTreeSQLite_GetUsesRangeQuery(t *testing.T) {
	repo, mock, cleanup := newMockTree(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"path", "value"}).
		AddRow("users/u1/name", `"A"`).
		AddRow("users/u1/venues/Hall/Fan", `"on"`)
	mock.ExpectQuery(regexp.QuoteMeta(selectSubtreeSQL)).
		WithArgs("users/u1", "users/u1/", "users/u10").
		WillReturnRows(rows)

	got, err := repo.Get(context.Background(), "users/u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	m, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("expected object, got %#v", got)
	}
	if m["name"] != "A" {
		t.Fatalf("unexpected name: %#v", m["name"])
	}
	hall := m["venues"].(map[string]any)["Hall"].(map[string]any)
	if hall["Fan"] != "on" {
		t.Fatalf("unexpected device state: %#v", hall)
	}
}

func TestTreeSQLite_GetRootSelectsAll(t *testing.T) {
	repo, mock, cleanup := newMockTree(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(selectAllNodesSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"path", "value"}))

	got, err := repo.Get(context.Background(), "")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for empty tree, got %#v", got)
	}
}

func TestTreeSQLite_GetBadJSON(t *testing.T) {
	repo, mock, cleanup := newMockTree(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(selectSubtreeSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"path", "value"}).AddRow("users/u1", `{broken`))

	if _, err := repo.Get(context.Background(), "users/u1"); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestTreeSQLite_SetWritesLeavesInTransaction(t *testing.T) {
	repo, mock, cleanup := newMockTree(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(deleteSubtreeSQL)).
		WithArgs("users/u1/venues/Hall", "users/u1/venues/Hall/", "users/u1/venues/Hall0").
		WillReturnResult(sqlmock.NewResult(0, 2))
	for _, anc := range []string{"users", "users/u1", "users/u1/venues"} {
		mock.ExpectExec(regexp.QuoteMeta(deleteNodeSQL)).WithArgs(anc).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectExec(regexp.QuoteMeta(insertOrUpdateNodeSQL)).
		WithArgs("users/u1/venues/Hall/Fan", `"on"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(insertOrUpdateNodeSQL)).
		WithArgs("users/u1/venues/Hall/__created", `true`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Set(context.Background(), "users/u1/venues/Hall", map[string]any{"Fan": "on", "__created": true})
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
}

func TestTreeSQLite_SetRollsBackOnError(t *testing.T) {
	repo, mock, cleanup := newMockTree(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(deleteSubtreeSQL)).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.Set(context.Background(), "users/u1/name", "A")
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestTreeSQLite_DeleteSubtree(t *testing.T) {
	repo, mock, cleanup := newMockTree(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(deleteSubtreeSQL)).
		WithArgs("users/u1/venues/Hall", "users/u1/venues/Hall/", "users/u1/venues/Hall0").
		WillReturnResult(sqlmock.NewResult(0, 3))

	if err := repo.Delete(context.Background(), "users/u1/venues/Hall"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestTreeSQLite_InvalidPathNeverHitsDB(t *testing.T) {
	repo, _, cleanup := newMockTree(t)
	defer cleanup()

	if err := repo.Delete(context.Background(), "users/a.b"); !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("expected ErrInvalidPath, got %v", err)
	}
}
