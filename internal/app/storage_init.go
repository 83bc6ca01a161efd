package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cartstore/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/cartstore/internal/health"
	"github.com/vladislavdragonenkov/cartstore/internal/storage/file"
	"github.com/vladislavdragonenkov/cartstore/internal/storage/memory"
	"github.com/vladislavdragonenkov/cartstore/internal/storage/postgres"
)

// runtimeDependencies - выбранный backend хранения снимков.
type runtimeDependencies struct {
	repo           domain.SnapshotRepository
	storageChecker healthcheck.Checker
	closeFn        func() error
}

func (d *runtimeDependencies) close(logger *log.Entry) {
	if d == nil || d.closeFn == nil {
		return
	}
	if err := d.closeFn(); err != nil {
		logger.WithError(err).Warn("failed to close storage")
	}
}

// initRuntimeDependencies открывает хранилище снимков по cfg.StorageDriver.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	if driver == "" {
		driver = StorageDriverMemory
	}

	switch driver {
	case StorageDriverMemory:
		logger.Info("using in-memory cart storage")
		return &runtimeDependencies{repo: memory.NewSnapshotRepository()}, nil

	case StorageDriverFile:
		repo, err := file.NewSnapshotRepository(cfg.FileDir)
		if err != nil {
			return nil, fmt.Errorf("init file storage: %w", err)
		}
		logger.WithField("dir", repo.Dir()).Info("using file cart storage")
		return &runtimeDependencies{
			repo: repo,
			storageChecker: healthcheck.NewSimpleChecker("file", func() error {
				_, err := os.Stat(repo.Dir())
				return err
			}),
		}, nil

	case StorageDriverPostgres:
		dsn := strings.TrimSpace(cfg.PostgresDSN)
		if dsn == "" {
			return nil, fmt.Errorf("%s is required for storage driver %q", EnvPostgresDSN, driver)
		}
		pool := postgres.DefaultPoolOptions()
		if cfg.PostgresMaxConns > 0 {
			pool.MaxOpenConns = cfg.PostgresMaxConns
			pool.MaxIdleConns = cfg.PostgresMaxConns
		}
		store, err := postgres.OpenWithPool(ctx, dsn, pool)
		if err != nil {
			return nil, fmt.Errorf("init postgres storage: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply postgres migrations: %w", err)
			}
		}
		logger.Info("using postgres cart storage")
		return &runtimeDependencies{
			repo:           postgres.NewSnapshotRepository(store),
			storageChecker: healthcheck.NewStorageChecker("postgres", store, 0),
			closeFn:        store.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}
