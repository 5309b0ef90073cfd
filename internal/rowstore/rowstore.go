// Package rowstore adapts the external spreadsheet service as a
// row-oriented store for users and databases. Record payloads are not
// persisted; they live only in process memory.
package rowstore

import (
	"context"

	"github.com/vynaa/vbase/internal/model"
)

// Store is the external row-store contract. Load operations re-fetch the
// entire row set and rebuild the in-memory shape from scratch. SaveUser
// patches the row matched by email or appends a new one; SaveDatabase
// upserts by database id.
type Store interface {
	// EnsureSheets creates the Users and Databases tabs with their
	// header rows when missing.
	EnsureSheets(ctx context.Context) error

	LoadUsers(ctx context.Context) (map[string]*model.User, error)
	SaveUser(ctx context.Context, u *model.User) error

	LoadDatabases(ctx context.Context) (map[string][]*model.Database, error)
	SaveDatabase(ctx context.Context, db *model.Database) error
}
