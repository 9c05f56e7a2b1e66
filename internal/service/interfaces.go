// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/spice-sort/internal/model"
)

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

// CategoryStore persists the category catalog.
type CategoryStore interface {
	GetCategories(ctx context.Context) ([]model.Category, error)
	GetCategoryByID(ctx context.Context, id int) (*model.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*model.Category, error)
	GetUnknownCategory(ctx context.Context) (*model.Category, error)
	CreateCategory(ctx context.Context, input model.CategoryInput) (*model.Category, error)
	UpdateCategory(ctx context.Context, id int, input model.CategoryInput) (*model.Category, error)
	DeleteCategory(ctx context.Context, id int) error
}

// TransactionStore persists imported transactions.
type TransactionStore interface {
	SaveTransactions(ctx context.Context, transactions []model.Transaction) error
	GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error)
	GetTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	CountTransactions(ctx context.Context) (int, error)
}

// AssignmentStore persists transaction-category links. Every mutating call
// keeps at most one main link per transaction and keeps the transaction's
// main category pointer in sync with it.
type AssignmentStore interface {
	// Attach links a category to a transaction. When isMain is set the new
	// link becomes the sole main link.
	Attach(ctx context.Context, transactionID string, categoryID int, isManual, isMain bool) (*model.CategoryLink, error)
	// SetAsMain promotes an existing link to main.
	SetAsMain(ctx context.Context, transactionID string, categoryID int) error
	// ReplaceAutomatic drops automatic links and attaches categoryIDs as
	// automatic links. Manual links survive. forceMain, when non-nil and
	// among categoryIDs, becomes main unless a manual main exists.
	ReplaceAutomatic(ctx context.Context, transactionID string, categoryIDs []int, forceMain *int) error
	// AssignManual makes categoryID a manual main link and returns the
	// previous main category, if any.
	AssignManual(ctx context.Context, transactionID string, categoryID int) (*int, error)
	GetLinks(ctx context.Context, transactionID string) (model.CategoryLinks, error)
}

// AuditLog records categorization decisions and user overrides.
type AuditLog interface {
	RecordCategorization(ctx context.Context, record *model.AuditRecord) error
	RecordOverride(ctx context.Context, record *model.OverrideRecord) error
	GetAuditRecords(ctx context.Context, transactionID string) ([]model.AuditRecord, error)
	GetOverrideRecords(ctx context.Context, transactionID string) ([]model.OverrideRecord, error)
	GetOverridePatterns(ctx context.Context) ([]model.OverridePattern, error)
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	CategoryStore
	TransactionStore
	AssignmentStore
	AuditLog

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}
