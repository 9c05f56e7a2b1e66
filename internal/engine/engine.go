// Package engine implements the categorization orchestrator: it scores
// transactions against the category catalog, arbitrates with the decision
// policy, and commits the result to the assignment store.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Veraticus/spice-sort/internal/model"
	"github.com/Veraticus/spice-sort/internal/policy"
)

// Engine orchestrates the categorization of transactions.
type Engine struct {
	store      Store
	catalog    atomic.Pointer[Catalog]
	thresholds atomic.Pointer[model.Thresholds]
	locks      *keyedMutex
	batchSize  int
	workers    int
}

// Config holds configuration options for the engine.
type Config struct {
	Thresholds model.Thresholds
	BatchSize  int
	Workers    int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Thresholds: policy.DefaultThresholds(),
		BatchSize:  100,
		Workers:    1,
	}
}

// New creates a new engine with the default configuration.
func New(store Store) *Engine {
	return NewWithConfig(store, DefaultConfig())
}

// NewWithConfig creates a new engine with custom configuration. The catalog
// is loaded lazily on first use or explicitly with Reload.
func NewWithConfig(store Store, config Config) *Engine {
	defaults := DefaultConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.Workers <= 0 {
		config.Workers = defaults.Workers
	}

	e := &Engine{
		store:     store,
		locks:     newKeyedMutex(),
		batchSize: config.BatchSize,
		workers:   config.Workers,
	}
	th := config.Thresholds
	e.thresholds.Store(&th)
	return e
}

// Reload fetches the categories and atomically swaps in a new catalog.
// Callers must reload after any category create, update, or delete.
func (e *Engine) Reload(ctx context.Context) (*Catalog, error) {
	categories, err := e.store.GetCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}

	catalog := newCatalog(categories, time.Now())
	e.catalog.Store(catalog)

	slog.Debug("Reloaded category catalog", "count", catalog.Len())
	return catalog, nil
}

// Catalog returns the current snapshot, loading it if necessary.
func (e *Engine) Catalog(ctx context.Context) (*Catalog, error) {
	if c := e.catalog.Load(); c != nil {
		return c, nil
	}
	return e.Reload(ctx)
}

// Thresholds returns the thresholds currently applied.
func (e *Engine) Thresholds() model.Thresholds {
	return *e.thresholds.Load()
}

// SetThresholds validates and atomically replaces the thresholds.
func (e *Engine) SetThresholds(th model.Thresholds) error {
	if err := policy.Validate(th); err != nil {
		return err
	}
	e.thresholds.Store(&th)
	slog.Info("Updated decision thresholds",
		"description_threshold", th.DescriptionThreshold,
		"vendor_threshold", th.VendorThreshold,
		"description_advantage", th.DescriptionAdvantage)
	return nil
}
