// Package admin is the administrative surface over the categorization
// engine. Category edits are persisted, the engine's catalog is reloaded,
// and a background re-classification sweep is queued so existing
// transactions pick up the change.
package admin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/spice-sort/internal/common"
	"github.com/Veraticus/spice-sort/internal/engine"
	"github.com/Veraticus/spice-sort/internal/jobs"
	"github.com/Veraticus/spice-sort/internal/model"
	"github.com/Veraticus/spice-sort/internal/service"
)

// Categorizer is the part of the engine the admin surface drives.
type Categorizer interface {
	Reload(ctx context.Context) (*engine.Catalog, error)
	SetMainCategory(ctx context.Context, transactionID string, categoryID int, userID, reason string) error
	AttachManual(ctx context.Context, transactionID string, categoryID int) (*model.CategoryLink, error)
	ReclassifyAllWithProgress(ctx context.Context, forceMain *int, progress engine.ProgressFunc) (model.ReclassifyResult, error)
}

// Service implements the administrative actions.
type Service struct {
	categories service.CategoryStore
	engine     Categorizer
	sweeps     jobs.Submitter
}

// New creates an admin service. sweeps may be nil, in which case category
// edits are not followed by a sweep.
func New(categories service.CategoryStore, categorizer Categorizer, sweeps jobs.Submitter) *Service {
	return &Service{
		categories: categories,
		engine:     categorizer,
		sweeps:     sweeps,
	}
}

// CreateCategory persists a new category and queues a sweep that pins it as
// main wherever it newly matches.
func (s *Service) CreateCategory(ctx context.Context, input model.CategoryInput) (*model.Category, error) {
	category, err := s.categories.CreateCategory(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	slog.Info("Created category", "id", category.ID, "name", category.Name, "keywords", len(category.Keywords))
	s.afterChange(ctx, &category.ID, "category created: "+category.Name)
	return category, nil
}

// UpdateCategory replaces a category's name, parent and keywords, then
// queues a sweep forcing it as main.
func (s *Service) UpdateCategory(ctx context.Context, id int, input model.CategoryInput) (*model.Category, error) {
	category, err := s.categories.UpdateCategory(ctx, id, input)
	if err != nil {
		return nil, fmt.Errorf("failed to update category: %w", err)
	}

	slog.Info("Updated category", "id", category.ID, "name", category.Name)
	s.afterChange(ctx, &category.ID, "category updated: "+category.Name)
	return category, nil
}

// DeleteCategory removes a category. Its links go with it, so the sweep that
// follows re-classifies the transactions that lost their main category.
func (s *Service) DeleteCategory(ctx context.Context, id int) error {
	if err := s.categories.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}

	slog.Info("Deleted category", "id", id)
	s.afterChange(ctx, nil, fmt.Sprintf("category deleted: %d", id))
	return nil
}

// AssignExisting makes an existing category the manual main category of a
// transaction.
func (s *Service) AssignExisting(ctx context.Context, transactionID string, categoryID int, userID, reason string) error {
	return s.engine.SetMainCategory(ctx, transactionID, categoryID, userID, reason)
}

// AttachExisting adds an existing category to a transaction as a secondary
// manual link.
func (s *Service) AttachExisting(ctx context.Context, transactionID string, categoryID int) (*model.CategoryLink, error) {
	return s.engine.AttachManual(ctx, transactionID, categoryID)
}

// CreateAndAssign creates a category, assigns it to the transaction as its
// manual main category, and queues a sweep so other transactions can pick
// up the new category too.
func (s *Service) CreateAndAssign(ctx context.Context, transactionID string, input model.CategoryInput, userID, reason string) (*model.Category, error) {
	category, err := s.categories.CreateCategory(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	s.reload(ctx)

	if err := s.engine.SetMainCategory(ctx, transactionID, category.ID, userID, reason); err != nil {
		return category, fmt.Errorf("failed to assign new category: %w", err)
	}

	slog.Info("Created and assigned category",
		"transaction_id", transactionID,
		"category_id", category.ID,
		"name", category.Name)
	s.submit(ctx, &category.ID, "category created: "+category.Name)
	return category, nil
}

// RecomputeAll re-classifies every transaction synchronously.
func (s *Service) RecomputeAll(ctx context.Context, forceMain *int, progress engine.ProgressFunc) (model.ReclassifyResult, error) {
	return s.engine.ReclassifyAllWithProgress(ctx, forceMain, progress)
}

// TriggerRecompute queues a full re-classification. Unlike the sweeps that
// follow category edits, a failure to queue is returned.
func (s *Service) TriggerRecompute(ctx context.Context, forceMain *int, reason string) (*jobs.SweepJob, error) {
	if s.sweeps == nil {
		return nil, fmt.Errorf("%w: no sweep queue configured", common.ErrInvalidConfig)
	}
	if reason == "" {
		reason = "recompute requested"
	}
	job, err := s.sweeps.Submit(ctx, forceMain, reason)
	if err != nil {
		return nil, fmt.Errorf("failed to queue recompute: %w", err)
	}
	return job, nil
}

// RunSweep is the jobs.Handler that executes queued sweeps.
func (s *Service) RunSweep(ctx context.Context, job *jobs.SweepJob) (model.ReclassifyResult, error) {
	slog.Info("Running sweep", "job_id", job.ID, "reason", job.Reason)
	return s.engine.ReclassifyAllWithProgress(ctx, job.ForceMainCategoryID, nil)
}

func (s *Service) afterChange(ctx context.Context, forceMain *int, reason string) {
	s.reload(ctx)
	s.submit(ctx, forceMain, reason)
}

// reload failures are logged only; every sweep reloads the catalog itself.
func (s *Service) reload(ctx context.Context) {
	if _, err := s.engine.Reload(ctx); err != nil {
		common.LogError(ctx, err, "Failed to reload categories", nil)
	}
}

func (s *Service) submit(ctx context.Context, forceMain *int, reason string) {
	if s.sweeps == nil {
		return
	}
	job, err := s.sweeps.Submit(ctx, forceMain, reason)
	if err != nil {
		common.LogError(ctx, err, "Failed to queue sweep", common.Fields{"reason": reason})
		return
	}
	slog.Debug("Queued sweep", "job_id", job.ID, "reason", reason)
}
