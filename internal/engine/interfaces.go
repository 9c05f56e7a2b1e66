package engine

import (
	"github.com/Veraticus/spice-sort/internal/service"
)

// Store is the persistence the engine needs: the category catalog, the
// transactions to score, the link table, and the audit log.
type Store interface {
	service.CategoryStore
	service.TransactionStore
	service.AssignmentStore
	service.AuditLog
}

// ProgressFunc receives bulk re-classification progress after each batch.
type ProgressFunc func(done, total int)
