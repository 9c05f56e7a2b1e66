package storage

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-sort/internal/common"
	"github.com/Veraticus/spice-sort/internal/model"
)

type linkFixture struct {
	s         *SQLiteStorage
	txnID     string
	groceries *model.Category
	dining    *model.Category
	transport *model.Category
}

func newLinkFixture(t *testing.T) *linkFixture {
	t.Helper()
	s := createTestStorage(t)
	txns := createTestTransactions(1)
	require.NoError(t, s.SaveTransactions(context.Background(), txns))
	return &linkFixture{
		s:         s,
		txnID:     txns[0].ID,
		groceries: createCategory(t, s, "Groceries"),
		dining:    createCategory(t, s, "Dining"),
		transport: createCategory(t, s, "Transport"),
	}
}

// assertMain checks the single-main invariant and that the transaction's
// pointer agrees with the main link.
func (f *linkFixture) assertMain(t *testing.T, want *int) model.CategoryLinks {
	t.Helper()
	ctx := context.Background()

	links, err := f.s.GetLinks(ctx, f.txnID)
	require.NoError(t, err)
	assert.LessOrEqual(t, links.MainCount(), 1)

	txn, err := f.s.GetTransactionByID(ctx, f.txnID)
	require.NoError(t, err)

	if want == nil {
		assert.Nil(t, links.Main())
		assert.Nil(t, txn.MainCategoryID)
		return links
	}
	require.NotNil(t, links.Main())
	assert.Equal(t, *want, links.Main().CategoryID)
	require.NotNil(t, txn.MainCategoryID)
	assert.Equal(t, *want, *txn.MainCategoryID)
	return links
}

func TestAttach(t *testing.T) {
	f := newLinkFixture(t)
	ctx := context.Background()

	link, err := f.s.Attach(ctx, f.txnID, f.groceries.ID, false, false)
	require.NoError(t, err)
	assert.NotZero(t, link.ID)
	f.assertMain(t, nil)

	_, err = f.s.Attach(ctx, f.txnID, f.dining.ID, true, true)
	require.NoError(t, err)
	f.assertMain(t, &f.dining.ID)

	_, err = f.s.Attach(ctx, f.txnID, f.transport.ID, false, true)
	require.NoError(t, err)
	links := f.assertMain(t, &f.transport.ID)
	assert.Len(t, links, 3)
	assert.True(t, links.HasManual())
}

func TestAttach_Errors(t *testing.T) {
	f := newLinkFixture(t)
	ctx := context.Background()

	_, err := f.s.Attach(ctx, f.txnID, f.groceries.ID, false, true)
	require.NoError(t, err)

	_, err = f.s.Attach(ctx, f.txnID, f.groceries.ID, true, false)
	assert.ErrorIs(t, err, common.ErrDuplicateLink)

	_, err = f.s.Attach(ctx, f.txnID, 9999, false, false)
	assert.ErrorIs(t, err, common.ErrCategoryNotFound)

	_, err = f.s.Attach(ctx, "no-such-txn", f.groceries.ID, false, false)
	assert.ErrorIs(t, err, common.ErrNotFound)

	f.assertMain(t, &f.groceries.ID)
}

func TestSetAsMain(t *testing.T) {
	f := newLinkFixture(t)
	ctx := context.Background()

	_, err := f.s.Attach(ctx, f.txnID, f.groceries.ID, false, true)
	require.NoError(t, err)
	_, err = f.s.Attach(ctx, f.txnID, f.dining.ID, false, false)
	require.NoError(t, err)

	require.NoError(t, f.s.SetAsMain(ctx, f.txnID, f.dining.ID))
	f.assertMain(t, &f.dining.ID)

	err = f.s.SetAsMain(ctx, f.txnID, f.transport.ID)
	assert.ErrorIs(t, err, common.ErrLinkNotFound)
	f.assertMain(t, &f.dining.ID)
}

func TestReplaceAutomatic(t *testing.T) {
	f := newLinkFixture(t)
	ctx := context.Background()

	require.NoError(t, f.s.ReplaceAutomatic(ctx, f.txnID, []int{f.groceries.ID, f.dining.ID}, nil))
	links := f.assertMain(t, &f.groceries.ID)
	assert.Len(t, links, 2)

	require.NoError(t, f.s.ReplaceAutomatic(ctx, f.txnID, []int{f.dining.ID, f.transport.ID, f.dining.ID}, &f.transport.ID))
	links = f.assertMain(t, &f.transport.ID)
	assert.Len(t, links, 2)
	assert.False(t, links.Contains(f.groceries.ID))

	// A forced main outside the set falls back to the first ID.
	require.NoError(t, f.s.ReplaceAutomatic(ctx, f.txnID, []int{f.groceries.ID}, &f.transport.ID))
	f.assertMain(t, &f.groceries.ID)
}

func TestReplaceAutomatic_PreservesManual(t *testing.T) {
	f := newLinkFixture(t)
	ctx := context.Background()

	_, err := f.s.AssignManual(ctx, f.txnID, f.dining.ID)
	require.NoError(t, err)

	require.NoError(t, f.s.ReplaceAutomatic(ctx, f.txnID, []int{f.groceries.ID, f.dining.ID}, &f.groceries.ID))

	links := f.assertMain(t, &f.dining.ID)
	assert.Len(t, links, 2)
	for _, link := range links {
		if link.CategoryID == f.dining.ID {
			assert.True(t, link.IsManual)
		} else {
			assert.False(t, link.IsManual)
		}
	}
}

func TestReplaceAutomatic_UnknownCategory(t *testing.T) {
	f := newLinkFixture(t)
	ctx := context.Background()

	require.NoError(t, f.s.ReplaceAutomatic(ctx, f.txnID, []int{f.groceries.ID}, nil))

	err := f.s.ReplaceAutomatic(ctx, f.txnID, []int{f.dining.ID, 4242}, nil)
	assert.ErrorIs(t, err, common.ErrCategoryNotFound)

	// Failed replacement must leave the previous state intact.
	links := f.assertMain(t, &f.groceries.ID)
	assert.Len(t, links, 1)
}

func TestAssignManual(t *testing.T) {
	f := newLinkFixture(t)
	ctx := context.Background()

	prev, err := f.s.AssignManual(ctx, f.txnID, f.groceries.ID)
	require.NoError(t, err)
	assert.Nil(t, prev)
	f.assertMain(t, &f.groceries.ID)

	_, err = f.s.Attach(ctx, f.txnID, f.dining.ID, false, false)
	require.NoError(t, err)

	prev, err = f.s.AssignManual(ctx, f.txnID, f.dining.ID)
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, f.groceries.ID, *prev)

	links := f.assertMain(t, &f.dining.ID)
	require.Len(t, links, 2)
	assert.True(t, links.Main().IsManual, "existing automatic link must become manual")

	_, err = f.s.AssignManual(ctx, f.txnID, 31337)
	assert.ErrorIs(t, err, common.ErrCategoryNotFound)
	f.assertMain(t, &f.dining.ID)
}

// checkLinkState verifies the single-main invariant, the main pointer on the
// transaction row, and that every manual category is still linked manually.
func (f *linkFixture) checkLinkState(t *testing.T, step int, manual map[int]bool) model.CategoryLinks {
	t.Helper()
	ctx := context.Background()

	links, err := f.s.GetLinks(ctx, f.txnID)
	require.NoError(t, err)
	require.LessOrEqual(t, links.MainCount(), 1, "step %d", step)

	txn, err := f.s.GetTransactionByID(ctx, f.txnID)
	require.NoError(t, err)
	if main := links.Main(); main == nil {
		require.Nil(t, txn.MainCategoryID, "step %d", step)
	} else {
		require.NotNil(t, txn.MainCategoryID, "step %d", step)
		require.Equal(t, main.CategoryID, *txn.MainCategoryID, "step %d", step)
	}

	for id := range manual {
		found := false
		for _, link := range links {
			if link.CategoryID == id {
				found = link.IsManual
			}
		}
		require.True(t, found, "step %d: manual link %d lost", step, id)
	}
	return links
}

func TestLinkOperations_RandomSequences(t *testing.T) {
	for _, seed := range []uint64{1, 7, 42} {
		f := newLinkFixture(t)
		ctx := context.Background()
		rng := rand.New(rand.NewPCG(seed, seed*31+1))
		pool := []int{f.groceries.ID, f.dining.ID, f.transport.ID}
		manual := make(map[int]bool)

		pick := func() int { return pool[rng.IntN(len(pool))] }

		for step := range 300 {
			before := f.checkLinkState(t, step, manual)

			switch rng.IntN(4) {
			case 0:
				id, isManual := pick(), rng.IntN(2) == 0
				_, err := f.s.Attach(ctx, f.txnID, id, isManual, rng.IntN(2) == 0)
				if err != nil {
					require.True(t, errors.Is(err, common.ErrDuplicateLink), "step %d: %v", step, err)
				} else if isManual {
					manual[id] = true
				}

			case 1:
				err := f.s.SetAsMain(ctx, f.txnID, pick())
				if err != nil {
					require.True(t, errors.Is(err, common.ErrLinkNotFound), "step %d: %v", step, err)
				}

			case 2:
				ids := make([]int, 0, len(pool))
				for _, i := range rng.Perm(len(pool))[:rng.IntN(len(pool)+1)] {
					ids = append(ids, pool[i])
				}
				var force *int
				if rng.IntN(2) == 0 {
					id := pick()
					force = &id
				}
				require.NoError(t, f.s.ReplaceAutomatic(ctx, f.txnID, ids, force), "step %d", step)

				after := f.checkLinkState(t, step, manual)
				if prev := before.Main(); prev != nil && prev.IsManual {
					require.NotNil(t, after.Main(), "step %d", step)
					require.Equal(t, prev.CategoryID, after.Main().CategoryID, "step %d: manual main moved", step)
				} else if len(ids) > 0 {
					want := ids[0]
					if force != nil && containsID(ids, *force) {
						want = *force
					}
					require.NotNil(t, after.Main(), "step %d", step)
					require.Equal(t, want, after.Main().CategoryID, "step %d", step)
				}

			case 3:
				id := pick()
				_, err := f.s.AssignManual(ctx, f.txnID, id)
				require.NoError(t, err, "step %d", step)
				manual[id] = true
			}
		}
		f.checkLinkState(t, 300, manual)
	}
}
