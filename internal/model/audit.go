package model

import "time"

// AuditRecord is an append-only record of one categorization decision.
type AuditRecord struct {
	CreatedAt             time.Time
	DescriptionCategoryID *int
	VendorCategoryID      *int
	MainCategoryID        *int
	TransactionID         string
	AccountID             string
	VendorLabel           string
	Description           string
	Justification         string
	Source                DecisionSource
	Confidence            ConfidenceLevel
	Thresholds            Thresholds
	ID                    int64
	DescriptionScore      int
	VendorScore           int
	DecisionScore         int
}

// OverrideRecord is an append-only record of a human changing a main category.
type OverrideRecord struct {
	CreatedAt          time.Time
	PreviousCategoryID *int
	TransactionID      string
	UserID             string
	Reason             string
	ID                 int64
	NewCategoryID      int
}

// OverridePattern aggregates overrides of one system choice to one user choice.
type OverridePattern struct {
	SystemCategoryName string
	UserCategoryName   string
	SystemCategoryID   int
	UserCategoryID     int
	OverrideCount      int
	MeanSystemScore    float64
}
