// Package testutil provides test helpers for building in-memory rule
// stores with proper isolation and cleanup.
package testutil

import (
	"context"
	"testing"

	"github.com/sejin-p/ledger-sense/internal/model"
	"github.com/sejin-p/ledger-sense/internal/storage"
)

// SetupTestDB creates a migrated in-memory SQLite store. Cleanup is
// registered automatically.
func SetupTestDB(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

// SetupTestDBWithRules creates a migrated in-memory store pre-loaded
// with the given rules. Rule IDs are assigned by the store and written
// back into the slice.
func SetupTestDBWithRules(t *testing.T, rules []model.ClassificationRule) *storage.SQLiteStorage {
	t.Helper()

	store := SetupTestDB(t)
	ctx := context.Background()
	for i := range rules {
		if err := store.CreateRule(ctx, &rules[i]); err != nil {
			t.Fatalf("failed to seed rule %q: %v", rules[i].Name, err)
		}
	}
	return store
}
