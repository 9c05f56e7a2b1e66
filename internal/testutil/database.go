// Package testutil provides test helpers: an in-memory SQLite store seeded
// with a known category catalog and transaction builders.
package testutil

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/spice-sort/internal/model"
	"github.com/Veraticus/spice-sort/internal/storage"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
	ids     map[string]int
}

// SetupTestDB creates a migrated in-memory database seeded with cats.
// The database is closed when the test ends.
//
// Example:
//
//	db := testutil.SetupTestDB(t, testutil.StandardCategories()...)
//	groceries := db.CategoryID("Groceries")
func SetupTestDB(t *testing.T, cats ...model.CategoryInput) *TestDB {
	t.Helper()
	ctx := context.Background()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	db := &TestDB{Storage: store, t: t, ids: make(map[string]int)}

	unknown, err := store.GetUnknownCategory(ctx)
	if err != nil {
		t.Fatalf("failed to load %s category: %v", model.UnknownCategoryName, err)
	}
	db.ids[unknown.Name] = unknown.ID

	for _, in := range cats {
		cat, err := store.CreateCategory(ctx, in)
		if err != nil {
			t.Fatalf("failed to seed category %q: %v", in.Name, err)
		}
		db.ids[cat.Name] = cat.ID
	}

	return db
}

// CategoryID returns the id of a seeded category or fails the test.
func (db *TestDB) CategoryID(name string) int {
	db.t.Helper()
	id, ok := db.ids[name]
	if !ok {
		db.t.Fatalf("category %q was not seeded", name)
	}
	return id
}

// SaveTransactions stores txns or fails the test.
func (db *TestDB) SaveTransactions(txns ...model.Transaction) {
	db.t.Helper()
	if err := db.Storage.SaveTransactions(context.Background(), txns); err != nil {
		db.t.Fatalf("failed to save transactions: %v", err)
	}
}

// MainCategory returns a transaction's main category id, or 0 when unset.
func (db *TestDB) MainCategory(transactionID string) int {
	db.t.Helper()
	txn, err := db.Storage.GetTransactionByID(context.Background(), transactionID)
	if err != nil {
		db.t.Fatalf("failed to load transaction %s: %v", transactionID, err)
	}
	if txn.MainCategoryID == nil {
		return 0
	}
	return *txn.MainCategoryID
}

// StandardCategories is the catalog most tests use.
func StandardCategories() []model.CategoryInput {
	return []model.CategoryInput{
		{Name: "Groceries", Keywords: []string{"supermarket", "5411"}},
		{Name: "Restaurants", Keywords: []string{"restaurant", "5812"}},
		{Name: "Transport", Keywords: []string{"uber"}},
	}
}

// NewTransaction builds a posted transaction dated 2024-05-01. enrichment
// is raw JSON and may be empty.
func NewTransaction(id, description, enrichment string) model.Transaction {
	txn := model.Transaction{
		ID:          id,
		AccountID:   "acc1",
		Description: description,
		Amount:      decimal.RequireFromString("-12.34"),
		Date:        time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Status:      "posted",
	}
	if enrichment != "" {
		txn.Enrichment = json.RawMessage(enrichment)
	}
	return txn
}
