package model

import "sort"

// MetricScores holds the individual similarity metrics, each on a 0-100 scale.
type MetricScores struct {
	Ratio          int
	PartialRatio   int
	TokenSortRatio int
	TokenSetRatio  int
}

// DescriptionMatch is how well a transaction description matches one category.
type DescriptionMatch struct {
	CategoryName  string
	MatchedText   string // Candidate text (name or keyword) that produced the best score
	Metrics       MetricScores
	CategoryID    int
	CombinedScore int
	FinalScore    int // CombinedScore, or zero when below the minimum valid score
}

// DescriptionMatches is a ranked list of description matches.
type DescriptionMatches []DescriptionMatch

// Len implements sort.Interface.
func (m DescriptionMatches) Len() int {
	return len(m)
}

// Less implements sort.Interface - higher final scores come first.
func (m DescriptionMatches) Less(i, j int) bool {
	return m[i].FinalScore > m[j].FinalScore
}

// Swap implements sort.Interface.
func (m DescriptionMatches) Swap(i, j int) {
	m[i], m[j] = m[j], m[i]
}

// Sort orders matches by final score descending, keeping input order on ties.
func (m DescriptionMatches) Sort() {
	sort.Stable(m)
}

// Top returns the best match, or nil if empty. The slice must already be sorted.
func (m DescriptionMatches) Top() *DescriptionMatch {
	if len(m) == 0 {
		return nil
	}
	return &m[0]
}

// TopScore returns the best final score, or zero if empty.
func (m DescriptionMatches) TopScore() int {
	if top := m.Top(); top != nil {
		return top.FinalScore
	}
	return 0
}

// AtLeast returns matches whose final score is at least min, preserving order.
func (m DescriptionMatches) AtLeast(minScore int) DescriptionMatches {
	var result DescriptionMatches
	for _, match := range m {
		if match.FinalScore >= minScore {
			result = append(result, match)
		}
	}
	return result
}

// VendorMatch is the best category for a vendor-supplied label.
type VendorMatch struct {
	CategoryID   *int // Nil when no category scored at least the minimum valid score
	CategoryName string
	Label        string
	Score        int
}

// HasCategory reports whether the vendor label resolved to a category.
func (v *VendorMatch) HasCategory() bool {
	return v != nil && v.CategoryID != nil
}
