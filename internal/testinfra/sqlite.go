// Package testinfra builds real stores for tests.
package testinfra

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"

	"github.com/example/foodshare/internal/database"
	"github.com/example/foodshare/internal/store/sqlstore"
)

// NewSQLiteStore returns a migrated store over a private in-memory database.
func NewSQLiteStore(t testing.TB) *sqlstore.Store {
	t.Helper()

	conn, err := database.Open(sqlite.Open("file::memory:"), "silent")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	s := sqlstore.New(conn)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}
