package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-sort/internal/model"
)

func auditRecord(txnID string, mainID *int, score int) *model.AuditRecord {
	return &model.AuditRecord{
		TransactionID:  txnID,
		AccountID:      "acc1",
		Description:    "WALMART SUPERCENTER",
		VendorLabel:    "5411",
		Source:         model.SourceVendor,
		Confidence:     model.ConfidenceHigh,
		MainCategoryID: mainID,
		VendorScore:    score,
		DecisionScore:  score,
		Justification:  "vendor label matched",
		Thresholds:     model.Thresholds{DescriptionThreshold: 75, VendorThreshold: 60, DescriptionAdvantage: 1.1},
	}
}

func TestRecordCategorization(t *testing.T) {
	s := createTestStorage(t)
	ctx := context.Background()
	groceries := createCategory(t, s, "Groceries")

	first := auditRecord("txn-1", &groceries.ID, 90)
	first.DescriptionScore = 40
	first.VendorCategoryID = &groceries.ID
	require.NoError(t, s.RecordCategorization(ctx, first))
	assert.NotZero(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	second := auditRecord("txn-1", nil, 20)
	second.Source = model.SourceUnknown
	second.Confidence = model.ConfidenceLow
	require.NoError(t, s.RecordCategorization(ctx, second))

	records, err := s.GetAuditRecords(ctx, "txn-1")
	require.NoError(t, err)
	require.Len(t, records, 2, "audit log is append-only")

	assert.Equal(t, second.ID, records[0].ID, "newest first")
	assert.Equal(t, model.SourceUnknown, records[0].Source)
	assert.Nil(t, records[0].MainCategoryID)

	assert.Equal(t, first.ID, records[1].ID)
	assert.Equal(t, model.SourceVendor, records[1].Source)
	assert.Equal(t, 40, records[1].DescriptionScore)
	assert.Equal(t, 90, records[1].VendorScore)
	assert.Equal(t, first.Thresholds, records[1].Thresholds)
	require.NotNil(t, records[1].VendorCategoryID)
	assert.Equal(t, groceries.ID, *records[1].VendorCategoryID)
	assert.Nil(t, records[1].DescriptionCategoryID)
}

func TestRecordCategorization_Validation(t *testing.T) {
	s := createTestStorage(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.RecordCategorization(ctx, nil), ErrNilParameter)

	bad := auditRecord("", nil, 0)
	assert.ErrorIs(t, s.RecordCategorization(ctx, bad), ErrInvalidAuditRecord)

	bad = auditRecord("txn-1", nil, 0)
	bad.Source = "guess"
	assert.ErrorIs(t, s.RecordCategorization(ctx, bad), ErrInvalidAuditRecord)
}

func TestGetOverridePatterns(t *testing.T) {
	s := createTestStorage(t)
	ctx := context.Background()
	groceries := createCategory(t, s, "Groceries")
	dining := createCategory(t, s, "Dining")
	transport := createCategory(t, s, "Transport")

	// Two Groceries decisions overridden to Dining, scores 80 and 60.
	require.NoError(t, s.RecordCategorization(ctx, auditRecord("t1", &groceries.ID, 80)))
	require.NoError(t, s.RecordCategorization(ctx, auditRecord("t2", &groceries.ID, 60)))
	// One Transport decision overridden to Dining.
	require.NoError(t, s.RecordCategorization(ctx, auditRecord("t3", &transport.ID, 90)))
	// A decision that was never overridden.
	require.NoError(t, s.RecordCategorization(ctx, auditRecord("t4", &groceries.ID, 99)))

	for _, o := range []model.OverrideRecord{
		{TransactionID: "t1", PreviousCategoryID: &groceries.ID, NewCategoryID: dining.ID, UserID: "alice"},
		{TransactionID: "t2", PreviousCategoryID: &groceries.ID, NewCategoryID: dining.ID},
		{TransactionID: "t3", PreviousCategoryID: &transport.ID, NewCategoryID: dining.ID},
		// No previous main: nothing to pair with.
		{TransactionID: "t5", NewCategoryID: dining.ID},
	} {
		require.NoError(t, s.RecordOverride(ctx, &o))
	}

	patterns, err := s.GetOverridePatterns(ctx)
	require.NoError(t, err)
	require.Len(t, patterns, 2)

	assert.Equal(t, model.OverridePattern{
		SystemCategoryID:   groceries.ID,
		SystemCategoryName: "Groceries",
		UserCategoryID:     dining.ID,
		UserCategoryName:   "Dining",
		OverrideCount:      2,
		MeanSystemScore:    70,
	}, patterns[0])
	assert.Equal(t, transport.ID, patterns[1].SystemCategoryID)
	assert.Equal(t, 1, patterns[1].OverrideCount)
	assert.InDelta(t, 90, patterns[1].MeanSystemScore, 0.001)

	overrides, err := s.GetOverrideRecords(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, overrides, 1)
	assert.Equal(t, "alice", overrides[0].UserID)
	require.NotNil(t, overrides[0].PreviousCategoryID)
	assert.Equal(t, groceries.ID, *overrides[0].PreviousCategoryID)
}

func TestGetOverridePatterns_RepeatedAudits(t *testing.T) {
	s := createTestStorage(t)
	ctx := context.Background()
	groceries := createCategory(t, s, "Groceries")
	dining := createCategory(t, s, "Dining")
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	// Three sweeps re-audit the same decision before the user corrects it.
	for i, score := range []int{50, 60, 80} {
		record := auditRecord("t1", &groceries.ID, score)
		record.CreatedAt = start.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.RecordCategorization(ctx, record))
	}

	override := model.OverrideRecord{
		TransactionID:      "t1",
		PreviousCategoryID: &groceries.ID,
		NewCategoryID:      dining.ID,
		CreatedAt:          start.Add(3 * time.Minute),
	}
	require.NoError(t, s.RecordOverride(ctx, &override))

	// A decision audited after the override did not cause it.
	late := auditRecord("t1", &groceries.ID, 10)
	late.CreatedAt = start.Add(4 * time.Minute)
	require.NoError(t, s.RecordCategorization(ctx, late))

	patterns, err := s.GetOverridePatterns(ctx)
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.Equal(t, 1, patterns[0].OverrideCount)
	assert.InDelta(t, 80, patterns[0].MeanSystemScore, 0.001)

	// A second correction of another transaction counts separately.
	require.NoError(t, s.RecordCategorization(ctx, auditRecord("t2", &groceries.ID, 70)))
	require.NoError(t, s.RecordOverride(ctx, &model.OverrideRecord{
		TransactionID: "t2", PreviousCategoryID: &groceries.ID, NewCategoryID: dining.ID,
	}))

	patterns, err = s.GetOverridePatterns(ctx)
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.Equal(t, 2, patterns[0].OverrideCount)
	assert.InDelta(t, 75, patterns[0].MeanSystemScore, 0.001)
}

func TestGetOverridePatterns_Empty(t *testing.T) {
	s := createTestStorage(t)

	patterns, err := s.GetOverridePatterns(context.Background())
	require.NoError(t, err)
	assert.Empty(t, patterns)
}
