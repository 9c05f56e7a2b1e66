package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Veraticus/spice-sort/internal/common"
)

// MemoryStore is an in-memory implementation of JobStore.
// It is safe for concurrent use; data is lost on restart.
type MemoryStore struct {
	jobs map[string]*SweepJob
	mu   sync.RWMutex
}

var _ JobStore = (*MemoryStore)(nil)

// NewMemoryStore creates a new in-memory job store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs: make(map[string]*SweepJob),
	}
}

// SaveJob saves or updates a copy of the job.
func (s *MemoryStore) SaveJob(_ context.Context, job *SweepJob) error {
	if job.ID == "" {
		return fmt.Errorf("job ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	jobCopy := *job
	s.jobs[job.ID] = &jobCopy
	return nil
}

// GetJob retrieves a copy of a job by ID.
func (s *MemoryStore) GetJob(_ context.Context, id string) (*SweepJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[id]
	if !exists {
		return nil, fmt.Errorf("%w: job %s", common.ErrNotFound, id)
	}

	jobCopy := *job
	return &jobCopy, nil
}

// ListJobs returns copies of matching jobs ordered by creation time.
func (s *MemoryStore) ListJobs(_ context.Context, filter JobFilter) ([]*SweepJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*SweepJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		jobCopy := *job
		result = append(result, &jobCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}
