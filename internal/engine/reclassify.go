package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/spice-sort/internal/common"
	"github.com/Veraticus/spice-sort/internal/model"
	"github.com/Veraticus/spice-sort/internal/service"
)

// assignmentPlan is what a fresh classification wants committed.
type assignmentPlan struct {
	main    *int
	ids     []int // Ranked, main included
	matched []int // Categories the scoring actually supports
	forced  bool
}

// planAssignment turns a classification into the links to write. The first
// ranked category is main unless the forced category was matched. The Unknown
// category is used only when nothing was matched at all.
func planAssignment(catalog *Catalog, result *model.ClassificationResult, forceMain *int) assignmentPlan {
	plan := assignmentPlan{matched: result.CategoryIDs}
	if forceMain != nil && containsID(plan.matched, *forceMain) {
		plan.forced = true
	}

	switch {
	case plan.forced:
		plan.ids = plan.matched
		main := *forceMain
		plan.main = &main
	case !result.Decision.IsUnknown():
		plan.ids = plan.matched
		main := result.Decision.CategoryID
		plan.main = &main
	case len(plan.matched) > 0:
		plan.ids = plan.matched
		main := plan.matched[0]
		plan.main = &main
	default:
		if unknownID, ok := catalog.UnknownID(); ok {
			plan.ids = []int{unknownID}
			plan.main = &unknownID
		}
	}
	return plan
}

// ReclassifyByID loads a transaction and re-derives its categories.
func (e *Engine) ReclassifyByID(ctx context.Context, transactionID string, forceMain *int) (bool, error) {
	txn, err := e.store.GetTransactionByID(ctx, transactionID)
	if err != nil {
		return false, err
	}
	return e.ReclassifyOne(ctx, *txn, forceMain)
}

// ReclassifyOne re-derives categories for one transaction and commits them.
// It reports whether any link changed. Rules, in order:
//   - any manual link: untouched
//   - no links: the ranked set is written and its main promoted
//   - main is the automatic Unknown: upgraded when a real category is found
//   - automatic links without a main: new matches attached, one promoted
//   - automatic main present: new matches attached, main changed only when
//     forceMain was matched
func (e *Engine) ReclassifyOne(ctx context.Context, txn model.Transaction, forceMain *int) (bool, error) {
	unlock := e.locks.Lock(txn.ID)
	defer unlock()

	catalog, err := e.Catalog(ctx)
	if err != nil {
		return false, err
	}

	links, err := e.store.GetLinks(ctx, txn.ID)
	if err != nil {
		return false, fmt.Errorf("failed to load links: %w", err)
	}
	if links.HasManual() {
		slog.Debug("Skipping manually categorized transaction", "transaction_id", txn.ID)
		return false, nil
	}

	result, err := e.Classify(ctx, txn)
	if err != nil {
		return false, err
	}
	plan := planAssignment(catalog, result, forceMain)

	unknownID, hasUnknown := catalog.UnknownID()
	main := links.Main()

	switch {
	case len(links) == 0:
		if len(plan.ids) == 0 {
			return false, nil
		}
		return true, e.replace(ctx, txn.ID, plan)

	case main != nil && hasUnknown && main.CategoryID == unknownID:
		if plan.main == nil || *plan.main == unknownID {
			return false, nil
		}
		return true, e.replace(ctx, txn.ID, plan)

	case main == nil:
		added, err := e.attachMissing(ctx, txn.ID, links, plan.ids)
		if err != nil {
			return false, err
		}
		if plan.main == nil {
			return added, nil
		}
		if err := e.store.SetAsMain(ctx, txn.ID, *plan.main); err != nil {
			return false, fmt.Errorf("failed to promote main category: %w", err)
		}
		return true, nil

	default:
		added, err := e.attachMissing(ctx, txn.ID, links, without(plan.matched, unknownID))
		if err != nil {
			return false, err
		}
		if !plan.forced || main.CategoryID == *plan.main {
			return added, nil
		}
		if err := e.store.SetAsMain(ctx, txn.ID, *plan.main); err != nil {
			return false, fmt.Errorf("failed to promote forced category: %w", err)
		}
		return true, nil
	}
}

func (e *Engine) replace(ctx context.Context, transactionID string, plan assignmentPlan) error {
	if err := e.store.ReplaceAutomatic(ctx, transactionID, plan.ids, plan.main); err != nil {
		return fmt.Errorf("failed to replace automatic links: %w", err)
	}
	return nil
}

func (e *Engine) attachMissing(ctx context.Context, transactionID string, links model.CategoryLinks, ids []int) (bool, error) {
	added := false
	for _, id := range ids {
		if links.Contains(id) {
			continue
		}
		if _, err := e.store.Attach(ctx, transactionID, id, false, false); err != nil {
			return added, fmt.Errorf("failed to attach category %d: %w", id, err)
		}
		added = true
	}
	return added, nil
}

// ReclassifyAll re-runs categorization over every stored transaction.
func (e *Engine) ReclassifyAll(ctx context.Context, forceMain *int) (model.ReclassifyResult, error) {
	return e.ReclassifyAllWithProgress(ctx, forceMain, nil)
}

// ReclassifyAllWithProgress re-runs categorization in fixed-size batches.
// A failing transaction is logged and counted in Failed; it never aborts the
// run. Processed counts transactions that were handled successfully. The run
// yields between batches and stops early only when ctx is cancelled.
func (e *Engine) ReclassifyAllWithProgress(ctx context.Context, forceMain *int, progress ProgressFunc) (model.ReclassifyResult, error) {
	var result model.ReclassifyResult

	if _, err := e.Reload(ctx); err != nil {
		return result, err
	}

	total, err := e.store.CountTransactions(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to count transactions: %w", err)
	}

	slog.Info("Starting re-classification",
		"transactions", total,
		"batch_size", e.batchSize,
		"workers", e.workers,
		"force_main", forceMain)

	var mu sync.Mutex
	done := 0
	for offset := 0; ; offset += e.batchSize {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		batch, err := e.store.GetTransactions(ctx, service.TransactionFilter{
			Limit:  e.batchSize,
			Offset: offset,
		})
		if err != nil {
			return result, fmt.Errorf("failed to load transactions: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		var g errgroup.Group
		g.SetLimit(e.workers)
		for _, txn := range batch {
			g.Go(func() error {
				updated, err := e.ReclassifyOne(ctx, txn, forceMain)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					result.Failed++
					common.LogError(ctx, err, "Failed to re-classify transaction", common.Fields{
						"transaction_id": txn.ID,
					})
					return nil
				}
				result.Processed++
				if updated {
					result.Updated++
				}
				return nil
			})
		}
		_ = g.Wait()

		done += len(batch)
		if progress != nil {
			progress(done, total)
		}

		if len(batch) < e.batchSize {
			break
		}
		runtime.Gosched()
	}

	slog.Info("Re-classification complete",
		"processed", result.Processed,
		"updated", result.Updated,
		"failed", result.Failed)
	return result, nil
}

func containsID(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func without(ids []int, id int) []int {
	out := make([]int, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
