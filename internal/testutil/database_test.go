package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-sort/internal/model"
)

func TestSetupTestDB(t *testing.T) {
	db := SetupTestDB(t, StandardCategories()...)

	cats, err := db.Storage.GetCategories(context.Background())
	require.NoError(t, err)
	assert.Len(t, cats, 4)
	assert.NotZero(t, db.CategoryID(model.UnknownCategoryName))
	assert.NotEqual(t, db.CategoryID("Groceries"), db.CategoryID("Transport"))
}

func TestSaveAndMainCategory(t *testing.T) {
	db := SetupTestDB(t, StandardCategories()...)
	db.SaveTransactions(NewTransaction("txn-1", "uber trip", `{"sector_code":"4121"}`))

	assert.Equal(t, 0, db.MainCategory("txn-1"))

	_, err := db.Storage.AssignManual(context.Background(), "txn-1", db.CategoryID("Transport"))
	require.NoError(t, err)
	assert.Equal(t, db.CategoryID("Transport"), db.MainCategory("txn-1"))
}
