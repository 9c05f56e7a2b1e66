package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/spice-sort/internal/common"
	"github.com/Veraticus/spice-sort/internal/engine"
	"github.com/Veraticus/spice-sort/internal/policy"
)

// Configuration keys.
const (
	KeyDatabasePath         = "database.path"
	KeyDescriptionThreshold = "categorization.description_threshold"
	KeyVendorThreshold      = "categorization.vendor_threshold"
	KeyDescriptionAdvantage = "categorization.description_advantage"
	KeyBatchSize            = "categorization.batch_size"
	KeyWorkers              = "categorization.workers"
	KeySweepInterval        = "sweep.interval"
	KeySweepMaxRetries      = "sweep.max_retries"
	KeyTheme                = "ui.theme"
)

// DefaultDatabasePath is used when database.path is not configured.
const DefaultDatabasePath = "~/.local/share/spice/spice.db"

// SweepConfig controls background re-classification sweeps.
type SweepConfig struct {
	Interval   time.Duration // Zero disables scheduled sweeps
	MaxRetries int
}

// SetDefaults registers default values for every key on v.
func SetDefaults(v *viper.Viper) {
	defaults := engine.DefaultConfig()
	v.SetDefault(KeyDatabasePath, DefaultDatabasePath)
	v.SetDefault(KeyDescriptionThreshold, defaults.Thresholds.DescriptionThreshold)
	v.SetDefault(KeyVendorThreshold, defaults.Thresholds.VendorThreshold)
	v.SetDefault(KeyDescriptionAdvantage, defaults.Thresholds.DescriptionAdvantage)
	v.SetDefault(KeyBatchSize, defaults.BatchSize)
	v.SetDefault(KeyWorkers, defaults.Workers)
	v.SetDefault(KeySweepInterval, time.Duration(0))
	v.SetDefault(KeySweepMaxRetries, 2)
	v.SetDefault(KeyTheme, "default")
}

// LoadEngineConfig reads the engine configuration from the global viper
// instance.
func LoadEngineConfig() (engine.Config, error) {
	return LoadEngineConfigFrom(viper.GetViper())
}

// LoadEngineConfigFrom reads and validates the engine configuration.
func LoadEngineConfigFrom(v *viper.Viper) (engine.Config, error) {
	SetDefaults(v)

	cfg := engine.Config{
		BatchSize: v.GetInt(KeyBatchSize),
		Workers:   v.GetInt(KeyWorkers),
	}
	cfg.Thresholds.DescriptionThreshold = v.GetInt(KeyDescriptionThreshold)
	cfg.Thresholds.VendorThreshold = v.GetInt(KeyVendorThreshold)
	cfg.Thresholds.DescriptionAdvantage = v.GetFloat64(KeyDescriptionAdvantage)

	if err := policy.Validate(cfg.Thresholds); err != nil {
		return engine.Config{}, err
	}
	if cfg.BatchSize <= 0 {
		return engine.Config{}, fmt.Errorf("%w: %s must be positive, got %d", common.ErrInvalidConfig, KeyBatchSize, cfg.BatchSize)
	}
	if cfg.Workers < 1 {
		return engine.Config{}, fmt.Errorf("%w: %s must be at least 1, got %d", common.ErrInvalidConfig, KeyWorkers, cfg.Workers)
	}

	return cfg, nil
}

// LoadSweepConfig reads the sweep settings from the global viper instance.
func LoadSweepConfig() (SweepConfig, error) {
	return LoadSweepConfigFrom(viper.GetViper())
}

// LoadSweepConfigFrom reads and validates the sweep settings.
func LoadSweepConfigFrom(v *viper.Viper) (SweepConfig, error) {
	SetDefaults(v)

	cfg := SweepConfig{
		Interval:   v.GetDuration(KeySweepInterval),
		MaxRetries: v.GetInt(KeySweepMaxRetries),
	}
	if cfg.Interval < 0 {
		return SweepConfig{}, fmt.Errorf("%w: %s cannot be negative", common.ErrInvalidConfig, KeySweepInterval)
	}
	if cfg.Interval > 0 && cfg.Interval < time.Second {
		return SweepConfig{}, fmt.Errorf("%w: %s must be at least 1s, got %s", common.ErrInvalidConfig, KeySweepInterval, cfg.Interval)
	}
	if cfg.MaxRetries < 0 {
		return SweepConfig{}, fmt.Errorf("%w: %s cannot be negative", common.ErrInvalidConfig, KeySweepMaxRetries)
	}
	return cfg, nil
}

// DatabasePath returns the expanded database path and makes sure its
// directory exists.
func DatabasePath() (string, error) {
	return DatabasePathFrom(viper.GetViper())
}

// DatabasePathFrom resolves the database path from v.
func DatabasePathFrom(v *viper.Viper) (string, error) {
	SetDefaults(v)

	path := ExpandPath(v.GetString(KeyDatabasePath))
	if path == "" {
		return "", fmt.Errorf("%w: %s is empty", common.ErrInvalidConfig, KeyDatabasePath)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("failed to create database directory: %w", err)
	}
	return path, nil
}
