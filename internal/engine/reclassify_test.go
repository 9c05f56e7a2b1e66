package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-sort/internal/model"
)

func TestReclassifyOne_NoLinks(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())
	ctx := context.Background()
	txn := env.save(t, "txn-1", "supermarket uber", "")

	updated, err := env.engine.ReclassifyOne(ctx, txn, nil)
	require.NoError(t, err)
	assert.True(t, updated)

	assert.Equal(t, env.id("Groceries"), env.mainOf(t, txn.ID))
	links := env.links(t, txn.ID)
	assert.Len(t, links, 2)
	assert.True(t, links.Contains(env.id("Transport")))
	assert.False(t, links.HasManual())
}

func TestReclassifyOne_UnknownFallback(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())
	ctx := context.Background()
	txn := env.save(t, "txn-1", "starbucks 1234", "")

	updated, err := env.engine.ReclassifyOne(ctx, txn, nil)
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, env.id(model.UnknownCategoryName), env.mainOf(t, txn.ID))

	// Running again without new information changes nothing.
	updated, err = env.engine.ReclassifyOne(ctx, txn, nil)
	require.NoError(t, err)
	assert.False(t, updated)

	// A new category that matches upgrades the Unknown assignment.
	coffee, err := env.store.CreateCategory(ctx, model.CategoryInput{Name: "Coffee", Keywords: []string{"starbucks"}})
	require.NoError(t, err)
	_, err = env.engine.Reload(ctx)
	require.NoError(t, err)

	updated, err = env.engine.ReclassifyOne(ctx, txn, nil)
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, coffee.ID, env.mainOf(t, txn.ID))
	assert.False(t, env.links(t, txn.ID).Contains(env.id(model.UnknownCategoryName)))
}

func TestReclassifyOne_UnknownDecisionWithAlternatives(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())
	ctx := context.Background()
	txn := env.save(t, "txn-1", "super market", "")

	result, err := env.engine.Evaluate(ctx, txn)
	require.NoError(t, err)
	require.True(t, result.Decision.IsUnknown(), "score must fall below the description threshold")
	require.Equal(t, []int{env.id("Groceries")}, result.CategoryIDs)

	updated, err := env.engine.ReclassifyOne(ctx, txn, nil)
	require.NoError(t, err)
	assert.True(t, updated)

	links := env.links(t, txn.ID)
	assert.Equal(t, env.id("Groceries"), env.mainOf(t, txn.ID))
	assert.False(t, links.Contains(env.id(model.UnknownCategoryName)), "Unknown is only a fallback for an empty match list")
	assert.Len(t, links, 1)
}

func TestReclassifyOne_UnknownMainUpgradedByAlternative(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())
	ctx := context.Background()
	txn := env.save(t, "txn-1", "super market", "")

	unknownID := env.id(model.UnknownCategoryName)
	require.NoError(t, env.store.ReplaceAutomatic(ctx, txn.ID, []int{unknownID}, &unknownID))

	updated, err := env.engine.ReclassifyOne(ctx, txn, nil)
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, env.id("Groceries"), env.mainOf(t, txn.ID))
	assert.False(t, env.links(t, txn.ID).Contains(unknownID))
}

func TestReclassifyOne_ForcedMain(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())
	ctx := context.Background()
	txn := env.save(t, "txn-1", "supermarket restaurant", "")

	result, err := env.engine.Evaluate(ctx, txn)
	require.NoError(t, err)
	require.Equal(t, env.id("Groceries"), result.Decision.CategoryID, "Groceries must score higher")
	require.Equal(t, []int{env.id("Groceries"), env.id("Restaurants")}, result.CategoryIDs)

	updated, err := env.engine.ReclassifyOne(ctx, txn, env.idPtr("Restaurants"))
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, env.id("Restaurants"), env.mainOf(t, txn.ID))
	assert.Len(t, env.links(t, txn.ID), 2)
}

func TestReclassifyOne_ForceIgnoredWhenNotMatched(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())
	ctx := context.Background()
	txn := env.save(t, "txn-1", "supermarket deli", "")

	_, err := env.engine.ReclassifyOne(ctx, txn, env.idPtr("Transport"))
	require.NoError(t, err)
	assert.Equal(t, env.id("Groceries"), env.mainOf(t, txn.ID))
	assert.False(t, env.links(t, txn.ID).Contains(env.id("Transport")))
}

func TestReclassifyOne_ManualLinksUntouched(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())
	ctx := context.Background()
	txn := env.save(t, "txn-1", "supermarket deli", "")

	require.NoError(t, env.engine.SetMainCategory(ctx, txn.ID, env.id("Transport"), "alice", ""))
	before := env.links(t, txn.ID)

	updated, err := env.engine.ReclassifyOne(ctx, txn, env.idPtr("Groceries"))
	require.NoError(t, err)
	assert.False(t, updated)
	assert.Equal(t, before, env.links(t, txn.ID))
	assert.Equal(t, env.id("Transport"), env.mainOf(t, txn.ID))
}

func TestReclassifyOne_PromotesWhenNoMain(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())
	ctx := context.Background()
	txn := env.save(t, "txn-1", "supermarket deli", "")

	_, err := env.store.Attach(ctx, txn.ID, env.id("Transport"), false, false)
	require.NoError(t, err)

	updated, err := env.engine.ReclassifyOne(ctx, txn, nil)
	require.NoError(t, err)
	assert.True(t, updated)

	assert.Equal(t, env.id("Groceries"), env.mainOf(t, txn.ID))
	assert.True(t, env.links(t, txn.ID).Contains(env.id("Transport")), "existing automatic links are kept")
}

func TestReclassifyOne_ConservativeWithExistingMain(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())
	ctx := context.Background()
	txn := env.save(t, "txn-1", "supermarket deli", "")

	_, err := env.engine.ReclassifyOne(ctx, txn, nil)
	require.NoError(t, err)
	require.Equal(t, env.id("Groceries"), env.mainOf(t, txn.ID))

	// Restaurants now matches too, but does not outrank the current main.
	_, err = env.store.UpdateCategory(ctx, env.id("Restaurants"), model.CategoryInput{
		Name:     "Restaurants",
		Keywords: []string{"restaurant", "5812", "deli"},
	})
	require.NoError(t, err)
	_, err = env.engine.Reload(ctx)
	require.NoError(t, err)

	updated, err := env.engine.ReclassifyOne(ctx, txn, nil)
	require.NoError(t, err)
	assert.True(t, updated, "new match must be attached")
	assert.Equal(t, env.id("Groceries"), env.mainOf(t, txn.ID))
	assert.True(t, env.links(t, txn.ID).Contains(env.id("Restaurants")))

	// Nothing new: no change reported.
	updated, err = env.engine.ReclassifyOne(ctx, txn, nil)
	require.NoError(t, err)
	assert.False(t, updated)

	// Forcing the matched category promotes it.
	updated, err = env.engine.ReclassifyOne(ctx, txn, env.idPtr("Restaurants"))
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, env.id("Restaurants"), env.mainOf(t, txn.ID))
}

func TestReclassifyByID(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())
	ctx := context.Background()
	env.save(t, "txn-1", "uber trip", "")

	updated, err := env.engine.ReclassifyByID(ctx, "txn-1", nil)
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, env.id("Transport"), env.mainOf(t, "txn-1"))

	_, err = env.engine.ReclassifyByID(ctx, "missing", nil)
	assert.Error(t, err)
}

func TestReclassifyAll_BulkResilience(t *testing.T) {
	env := newTestEnv(t, Config{
		Thresholds: DefaultConfig().Thresholds,
		BatchSize:  2,
		Workers:    2,
	})
	ctx := context.Background()

	env.save(t, "txn-1", "supermarket deli", "")
	env.save(t, "txn-2", "random payment xyz", `{"sector_code":"5812"}`)
	env.save(t, "txn-3", "uber trip", "")
	env.save(t, "txn-4", "supermarket", `"not an object"`)

	var calls [][2]int
	result, err := env.engine.ReclassifyAllWithProgress(ctx, nil, func(done, total int) {
		calls = append(calls, [2]int{done, total})
	})
	require.NoError(t, err)

	assert.Equal(t, model.ReclassifyResult{Processed: 3, Updated: 3, Failed: 1}, result)
	assert.Equal(t, [][2]int{{2, 4}, {4, 4}}, calls)

	assert.Equal(t, env.id("Groceries"), env.mainOf(t, "txn-1"))
	assert.Equal(t, env.id("Restaurants"), env.mainOf(t, "txn-2"))
	assert.Equal(t, env.id("Transport"), env.mainOf(t, "txn-3"))
	assert.Empty(t, env.links(t, "txn-4"))

	// A second run finds nothing to change.
	result, err = env.engine.ReclassifyAll(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, model.ReclassifyResult{Processed: 3, Updated: 0, Failed: 1}, result)
}

func TestReclassifyAll_Cancelled(t *testing.T) {
	env := newTestEnv(t, DefaultConfig())
	env.save(t, "txn-1", "supermarket deli", "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.engine.ReclassifyAll(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConcurrentOverrideAndSweep(t *testing.T) {
	env := newTestEnv(t, Config{
		Thresholds: DefaultConfig().Thresholds,
		BatchSize:  10,
		Workers:    4,
	})
	ctx := context.Background()
	for _, id := range []string{"t1", "t2", "t3", "t4", "t5"} {
		env.save(t, id, "supermarket uber", "")
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 3; i++ {
			_, err := env.engine.ReclassifyAll(ctx, env.idPtr("Transport"))
			assert.NoError(t, err)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 3; i++ {
			assert.NoError(t, env.engine.SetMainCategory(ctx, "t3", env.id("Restaurants"), "bob", ""))
		}
	}()
	wg.Wait()

	for _, id := range []string{"t1", "t2", "t4", "t5"} {
		assert.Equal(t, env.id("Transport"), env.mainOf(t, id))
	}
	assert.Equal(t, env.id("Restaurants"), env.mainOf(t, "t3"), "manual choice must survive sweeps")
}
