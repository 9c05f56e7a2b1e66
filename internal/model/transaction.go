package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction represents a single financial transaction awaiting or holding categories.
type Transaction struct {
	Date           time.Time
	CreatedAt      time.Time
	ID             string
	AccountID      string
	Status         string
	MainCategoryID *int            // Denormalized pointer kept in sync with the link table
	Description    string          // Raw free-text description from the bank
	Enrichment     json.RawMessage // Vendor-supplied metadata such as a sector code
	Amount         decimal.Decimal
}

// HasMainCategory reports whether the transaction currently has a main category.
func (t Transaction) HasMainCategory() bool {
	return t.MainCategoryID != nil
}
