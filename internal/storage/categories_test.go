package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-sort/internal/common"
	"github.com/Veraticus/spice-sort/internal/model"
)

func TestCreateCategory(t *testing.T) {
	s := createTestStorage(t)
	ctx := context.Background()

	cat, err := s.CreateCategory(ctx, model.CategoryInput{
		Name:     "  Groceries ",
		Keywords: []string{"supermarket", " ", "Walmart", "walmart", " 5411 "},
	})
	require.NoError(t, err)
	assert.Equal(t, "Groceries", cat.Name)
	assert.Equal(t, []string{"supermarket", "Walmart", "5411"}, cat.Keywords)
	assert.False(t, cat.CreatedAt.IsZero())

	byName, err := s.GetCategoryByName(ctx, "Groceries")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, cat.ID, byName.ID)

	// Names are case-sensitive.
	missing, err := s.GetCategoryByName(ctx, "groceries")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCreateCategory_Errors(t *testing.T) {
	s := createTestStorage(t)
	ctx := context.Background()
	createCategory(t, s, "Groceries")

	_, err := s.CreateCategory(ctx, model.CategoryInput{Name: " Groceries"})
	assert.ErrorIs(t, err, common.ErrDuplicateCategory)

	_, err = s.CreateCategory(ctx, model.CategoryInput{Name: model.UnknownCategoryName})
	assert.ErrorIs(t, err, common.ErrDuplicateCategory)

	lower, err := s.CreateCategory(ctx, model.CategoryInput{Name: "groceries"})
	require.NoError(t, err)
	assert.Equal(t, "groceries", lower.Name)

	_, err = s.CreateCategory(ctx, model.CategoryInput{Name: ""})
	assert.ErrorIs(t, err, ErrInvalidCategory)

	missingParent := 999
	_, err = s.CreateCategory(ctx, model.CategoryInput{Name: "Child", ParentID: &missingParent})
	assert.ErrorIs(t, err, common.ErrCategoryNotFound)
}

func TestUpdateCategory(t *testing.T) {
	s := createTestStorage(t)
	ctx := context.Background()
	parent := createCategory(t, s, "Food")
	cat := createCategory(t, s, "Dining", "restaurant")

	updated, err := s.UpdateCategory(ctx, cat.ID, model.CategoryInput{
		Name:     "Restaurants",
		ParentID: &parent.ID,
		Keywords: []string{"restaurant", "diner"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Restaurants", updated.Name)
	require.NotNil(t, updated.ParentID)
	assert.Equal(t, parent.ID, *updated.ParentID)
	assert.Equal(t, []string{"restaurant", "diner"}, updated.Keywords)

	_, err = s.UpdateCategory(ctx, cat.ID, model.CategoryInput{Name: "Food"})
	assert.ErrorIs(t, err, common.ErrDuplicateCategory)

	_, err = s.UpdateCategory(ctx, cat.ID, model.CategoryInput{Name: "Restaurants", ParentID: &cat.ID})
	assert.ErrorIs(t, err, ErrInvalidCategory)

	_, err = s.UpdateCategory(ctx, 12345, model.CategoryInput{Name: "Nope"})
	assert.ErrorIs(t, err, common.ErrCategoryNotFound)
}

func TestUnknownCategory_Protected(t *testing.T) {
	s := createTestStorage(t)
	ctx := context.Background()

	unknown, err := s.GetUnknownCategory(ctx)
	require.NoError(t, err)

	_, err = s.UpdateCategory(ctx, unknown.ID, model.CategoryInput{Name: "Misc"})
	assert.ErrorIs(t, err, common.ErrProtectedCategory)

	err = s.DeleteCategory(ctx, unknown.ID)
	assert.ErrorIs(t, err, common.ErrProtectedCategory)

	updated, err := s.UpdateCategory(ctx, unknown.ID, model.CategoryInput{
		Name:     model.UnknownCategoryName,
		Keywords: []string{"misc"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"misc"}, updated.Keywords)
}

func TestDeleteCategory_CascadesLinks(t *testing.T) {
	s := createTestStorage(t)
	ctx := context.Background()
	groceries := createCategory(t, s, "Groceries")
	dining := createCategory(t, s, "Dining")

	txns := createTestTransactions(1)
	require.NoError(t, s.SaveTransactions(ctx, txns))
	_, err := s.Attach(ctx, txns[0].ID, groceries.ID, false, true)
	require.NoError(t, err)
	_, err = s.Attach(ctx, txns[0].ID, dining.ID, false, false)
	require.NoError(t, err)

	require.NoError(t, s.DeleteCategory(ctx, groceries.ID))

	links, err := s.GetLinks(ctx, txns[0].ID)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, dining.ID, links[0].CategoryID)

	txn, err := s.GetTransactionByID(ctx, txns[0].ID)
	require.NoError(t, err)
	assert.Nil(t, txn.MainCategoryID, "main pointer must be cleared with its category")

	_, err = s.GetCategoryByID(ctx, groceries.ID)
	assert.ErrorIs(t, err, common.ErrCategoryNotFound)
	assert.ErrorIs(t, s.DeleteCategory(ctx, groceries.ID), common.ErrCategoryNotFound)
}
