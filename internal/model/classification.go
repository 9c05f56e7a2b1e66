// Package model defines the core domain models used throughout the application.
package model

// DecisionSource indicates which signal a categorization decision came from.
type DecisionSource string

// Decision source constants.
const (
	SourceDescription DecisionSource = "description"
	SourceVendor      DecisionSource = "vendor"
	SourceUser        DecisionSource = "user"
	SourceUnknown     DecisionSource = "unknown"
)

// ConfidenceLevel is the coarse confidence band of a decision.
type ConfidenceLevel string

// Confidence level constants.
const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// Thresholds are the tunable values the decision policy applies.
type Thresholds struct {
	DescriptionThreshold int     // Minimum description score to accept a description match
	VendorThreshold      int     // Minimum vendor score for the vendor signal to count
	DescriptionAdvantage float64 // Margin a description score needs over a vendor score
}

// Decision is the outcome of classifying one transaction.
type Decision struct {
	Vendor        *VendorMatch
	Justification string
	Source        DecisionSource
	Confidence    ConfidenceLevel
	Candidates    DescriptionMatches
	Thresholds    Thresholds
	CategoryID    int // Zero when Source is SourceUnknown
	Score         int // The score that backed the decision
}

// IsUnknown reports whether the decision fell back to the Unknown sentinel.
func (d Decision) IsUnknown() bool {
	return d.Source == SourceUnknown || d.CategoryID == 0
}

// ClassificationResult pairs a decision with the category ids resolved from it.
type ClassificationResult struct {
	VendorLabel string
	Decision    Decision
	CategoryIDs []int // Ranked: main first, then alternatives
}

// ReclassifyResult summarizes a bulk re-classification run.
type ReclassifyResult struct {
	Processed int
	Updated   int
	Failed    int
}
