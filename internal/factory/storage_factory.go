package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mrinal140420/phishing-email-sentinel/internal/adapters/storage"
	"github.com/mrinal140420/phishing-email-sentinel/internal/config"
	"github.com/mrinal140420/phishing-email-sentinel/internal/core"
)

// StorageFactory creates scan stores based on configuration
type StorageFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(cfg *config.Config, logger *zap.Logger) *StorageFactory {
	return &StorageFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateScanStore creates a scan store based on the configuration. A
// nil store (with nil error) means persistence is disabled; the
// orchestrator treats that as a no-op sink.
func (f *StorageFactory) CreateScanStore() (core.ScanStore, error) {
	if !f.cfg.GetBool("storage.enabled") {
		f.logger.Info("Scan history persistence is disabled")
		return nil, nil
	}

	retention, err := f.cfg.GetDuration("storage.retention")
	if err != nil {
		return nil, fmt.Errorf("invalid storage retention: %w", err)
	}
	cleanupFreq, err := f.cfg.GetDuration("storage.cleanup_frequency")
	if err != nil {
		return nil, fmt.Errorf("invalid storage cleanup frequency: %w", err)
	}

	switch storageType := f.cfg.GetString("storage.type"); storageType {
	case "memory":
		return storage.NewMemoryStore(f.logger, retention, cleanupFreq), nil
	case "sqlite":
		sqlitePath := f.cfg.GetString("storage.sqlite_path")
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(sqlitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return storage.NewSQLiteStore(sqlitePath, f.logger, retention, cleanupFreq)
	case "mysql":
		return storage.NewMySQLStore(f.cfg.GetString("storage.mysql_dsn"), f.logger, retention, cleanupFreq)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}
