package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/spice-sort/internal/admin"
	"github.com/Veraticus/spice-sort/internal/common"
	"github.com/Veraticus/spice-sort/internal/config"
	"github.com/Veraticus/spice-sort/internal/engine"
	"github.com/Veraticus/spice-sort/internal/jobs"
	"github.com/Veraticus/spice-sort/internal/model"
	"github.com/Veraticus/spice-sort/internal/storage"
)

const drainTimeout = 5 * time.Minute

// app bundles the services a command needs.
type app struct {
	store  *storage.SQLiteStorage
	engine *engine.Engine
	admin  *admin.Service
	queue  *jobs.Queue
}

// initStorage opens the configured database and runs migrations.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath, err := config.DatabasePath()
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// newApp wires storage, the engine, and the admin service. The sweep queue
// is started so category edits re-classify existing transactions; close
// waits for queued sweeps to finish.
func newApp(ctx context.Context) (*app, error) {
	store, err := initStorage(ctx)
	if err != nil {
		return nil, err
	}

	engineCfg, err := config.LoadEngineConfig()
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	sweepCfg, err := config.LoadSweepConfig()
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	eng := engine.NewWithConfig(store, engineCfg)

	opts := jobs.DefaultOptions()
	opts.Retry.MaxAttempts = sweepCfg.MaxRetries + 1
	queue := jobs.NewQueue(nil, opts)

	a := &app{
		store:  store,
		engine: eng,
		admin:  admin.New(store, eng, queue),
		queue:  queue,
	}
	if err := queue.Start(ctx, a.admin.RunSweep); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to start sweep queue: %w", err)
	}
	return a, nil
}

// close drains the sweep queue and closes the database.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	if err := a.queue.Stop(ctx); err != nil {
		common.LogError(ctx, err, "Sweep queue did not drain", nil)
	}
	for drained := false; !drained; {
		select {
		case jobErr := <-a.queue.Errors():
			common.LogError(ctx, jobErr.Err, "Sweep failed", common.Fields{"job_id": jobErr.Job.ID})
		default:
			drained = true
		}
	}
	if err := a.store.Close(); err != nil {
		slog.Warn("Failed to close database", "error", err)
	}
}

// resolveCategory finds a category by numeric id or exact name.
func resolveCategory(ctx context.Context, store *storage.SQLiteStorage, ref string) (*model.Category, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, common.NewUserError("a category id or name is required", common.ErrCategoryNotFound)
	}

	if id, err := strconv.Atoi(ref); err == nil {
		category, err := store.GetCategoryByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return category, nil
	}

	category, err := store.GetCategoryByName(ctx, ref)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, fmt.Errorf("%w: %s", common.ErrCategoryNotFound, ref)
	}
	return category, nil
}

// optionalCategoryID resolves an optional category reference to its id.
func optionalCategoryID(ctx context.Context, store *storage.SQLiteStorage, ref string) (*int, error) {
	if ref == "" {
		return nil, nil
	}
	category, err := resolveCategory(ctx, store, ref)
	if err != nil {
		return nil, err
	}
	return &category.ID, nil
}

// splitKeywords parses a comma separated keyword list.
func splitKeywords(raw []string) []string {
	var keywords []string
	for _, entry := range raw {
		for _, kw := range strings.Split(entry, ",") {
			if kw = strings.TrimSpace(kw); kw != "" {
				keywords = append(keywords, kw)
			}
		}
	}
	return keywords
}

// isNotFound reports whether err means the thing asked for does not exist.
func isNotFound(err error) bool {
	return errors.Is(err, common.ErrNotFound) || errors.Is(err, common.ErrCategoryNotFound)
}
