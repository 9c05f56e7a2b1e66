package model

import "time"

// CategoryLink associates a transaction with one of its categories.
type CategoryLink struct {
	CreatedAt     time.Time
	TransactionID string
	ID            int64
	CategoryID    int
	IsManual      bool // Set by a human; never removed by automatic re-scoring
	IsMain        bool
}

// CategoryLinks is a transaction's full set of links.
type CategoryLinks []CategoryLink

// Main returns the main link, or nil when there is none.
func (l CategoryLinks) Main() *CategoryLink {
	for i := range l {
		if l[i].IsMain {
			return &l[i]
		}
	}
	return nil
}

// HasManual reports whether any link was assigned by a human.
func (l CategoryLinks) HasManual() bool {
	for _, link := range l {
		if link.IsManual {
			return true
		}
	}
	return false
}

// Contains reports whether a link to the category exists.
func (l CategoryLinks) Contains(categoryID int) bool {
	for _, link := range l {
		if link.CategoryID == categoryID {
			return true
		}
	}
	return false
}

// MainCount returns the number of links flagged as main.
func (l CategoryLinks) MainCount() int {
	count := 0
	for _, link := range l {
		if link.IsMain {
			count++
		}
	}
	return count
}
