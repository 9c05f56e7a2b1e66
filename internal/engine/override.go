package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/spice-sort/internal/common"
	"github.com/Veraticus/spice-sort/internal/model"
)

// SetMainCategory records a human decision: categoryID becomes the manual
// main category of the transaction. An unknown category is an error. When
// the main category actually changes, an override record is appended on a
// best-effort basis.
func (e *Engine) SetMainCategory(ctx context.Context, transactionID string, categoryID int, userID, reason string) error {
	if _, err := e.store.GetCategoryByID(ctx, categoryID); err != nil {
		return err
	}

	unlock := e.locks.Lock(transactionID)
	defer unlock()

	previous, err := e.store.AssignManual(ctx, transactionID, categoryID)
	if err != nil {
		return fmt.Errorf("failed to assign category: %w", err)
	}

	if previous != nil && *previous == categoryID {
		return nil
	}

	record := &model.OverrideRecord{
		TransactionID:      transactionID,
		PreviousCategoryID: previous,
		NewCategoryID:      categoryID,
		UserID:             userID,
		Reason:             reason,
	}
	if err := e.store.RecordOverride(ctx, record); err != nil {
		common.LogError(ctx, err, "Failed to record override", common.Fields{
			"transaction_id": transactionID,
			"category_id":    categoryID,
		})
	}

	slog.Info("Main category overridden",
		"transaction_id", transactionID,
		"previous", previous,
		"category_id", categoryID,
		"user", userID)
	return nil
}

// AttachManual links a category to a transaction as a manual, non-main link.
func (e *Engine) AttachManual(ctx context.Context, transactionID string, categoryID int) (*model.CategoryLink, error) {
	unlock := e.locks.Lock(transactionID)
	defer unlock()

	link, err := e.store.Attach(ctx, transactionID, categoryID, true, false)
	if err != nil {
		return nil, fmt.Errorf("failed to attach category: %w", err)
	}
	return link, nil
}
