package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/spice-sort/internal/common"
	"github.com/Veraticus/spice-sort/internal/fuzzy"
	"github.com/Veraticus/spice-sort/internal/model"
	"github.com/Veraticus/spice-sort/internal/policy"
)

// maxAlternatives caps the description alternatives kept beside the main category.
const maxAlternatives = 2

// Evaluate scores a transaction and decides its category without any side
// effects.
func (e *Engine) Evaluate(ctx context.Context, txn model.Transaction) (*model.ClassificationResult, error) {
	catalog, err := e.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return e.evaluate(catalog, txn)
}

func (e *Engine) evaluate(catalog *Catalog, txn model.Transaction) (*model.ClassificationResult, error) {
	label, err := ExtractVendorLabel(txn.Enrichment)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", txn.ID, err)
	}

	candidates := fuzzy.ScoreDescription(txn.Description, catalog.Categories)

	var vendor *model.VendorMatch
	if label != "" {
		v := fuzzy.ScoreVendorLabel(label, catalog.Categories)
		vendor = &v
	}

	decision := policy.Decide(candidates, vendor, e.Thresholds())

	return &model.ClassificationResult{
		VendorLabel: label,
		Decision:    decision,
		CategoryIDs: resolveCategoryIDs(decision),
	}, nil
}

// Classify evaluates a transaction and appends the decision to the audit
// log. Audit failures are logged and never returned.
func (e *Engine) Classify(ctx context.Context, txn model.Transaction) (*model.ClassificationResult, error) {
	catalog, err := e.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	result, err := e.evaluate(catalog, txn)
	if err != nil {
		return nil, err
	}

	e.recordDecision(ctx, catalog, txn, result)

	slog.Debug("Classified transaction",
		"transaction_id", txn.ID,
		"source", result.Decision.Source,
		"category", catalog.Name(result.Decision.CategoryID),
		"score", result.Decision.Score,
		"confidence", result.Decision.Confidence)
	return result, nil
}

// MatchKeywords is the lightweight path: case-insensitive substring matching
// of keywords, one entry per category, unranked.
func (e *Engine) MatchKeywords(ctx context.Context, description string) ([]int, error) {
	catalog, err := e.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return fuzzy.MatchKeywords(description, catalog.Categories), nil
}

// resolveCategoryIDs ranks the categories a decision supports: the decided
// category, up to two further description candidates at or above the
// minimum valid score, then the vendor category.
func resolveCategoryIDs(decision model.Decision) []int {
	var ids []int
	seen := make(map[int]bool)
	add := func(id int) bool {
		if id == 0 || seen[id] {
			return false
		}
		seen[id] = true
		ids = append(ids, id)
		return true
	}

	if !decision.IsUnknown() {
		add(decision.CategoryID)
	}

	alternatives := 0
	for _, c := range decision.Candidates {
		if alternatives == maxAlternatives || c.FinalScore < fuzzy.MinValidScore {
			break
		}
		if add(c.CategoryID) {
			alternatives++
		}
	}

	if decision.Vendor != nil && decision.Vendor.HasCategory() {
		add(*decision.Vendor.CategoryID)
	}
	return ids
}

func (e *Engine) recordDecision(ctx context.Context, catalog *Catalog, txn model.Transaction, result *model.ClassificationResult) {
	d := result.Decision
	record := &model.AuditRecord{
		TransactionID: txn.ID,
		AccountID:     txn.AccountID,
		VendorLabel:   result.VendorLabel,
		Description:   txn.Description,
		Source:        d.Source,
		Confidence:    d.Confidence,
		DecisionScore: d.Score,
		Justification: d.Justification,
		Thresholds:    d.Thresholds,
	}

	if top := d.Candidates.Top(); top != nil && top.FinalScore > 0 {
		id := top.CategoryID
		record.DescriptionScore = top.FinalScore
		record.DescriptionCategoryID = &id
	}
	if d.Vendor != nil {
		record.VendorScore = d.Vendor.Score
		record.VendorCategoryID = d.Vendor.CategoryID
	}

	switch {
	case !d.IsUnknown():
		id := d.CategoryID
		record.MainCategoryID = &id
	default:
		if id, ok := catalog.UnknownID(); ok {
			record.MainCategoryID = &id
		}
	}

	if err := e.store.RecordCategorization(ctx, record); err != nil {
		common.LogError(ctx, err, "Failed to record categorization", common.Fields{
			"transaction_id": txn.ID,
		})
	}
}
