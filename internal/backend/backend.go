// Package backend opens the journey store selected by configuration.
package backend

import (
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"machine-service-backend/config"
	"machine-service-backend/internal/remote"
	"machine-service-backend/internal/store"
)

// Open returns the configured store and a function releasing it. gormDB is
// only used by the sql backend and may be nil for the others.
func Open(cfg *config.StoreConfig, gormDB *gorm.DB) (store.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case config.BackendSQL, "":
		if gormDB == nil {
			return nil, nil, fmt.Errorf("sql backend needs a database")
		}
		return store.NewGormStore(gormDB), noop, nil

	case config.BackendBadger:
		bs, err := store.OpenBadger(cfg.BadgerDir)
		if err != nil {
			return nil, nil, fmt.Errorf("open badger store at %s: %w", cfg.BadgerDir, err)
		}
		log.Printf("Using badger store at %s", cfg.BadgerDir)
		return bs, bs.Close, nil

	case config.BackendFile:
		fs, err := store.NewFileStore(cfg.FilePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open file store at %s: %w", cfg.FilePath, err)
		}
		log.Printf("Using file store at %s", fs.Path())
		return fs, noop, nil

	case config.BackendRemote:
		client, err := remote.New(cfg.RemoteURL, remote.Options{
			PageSize:  cfg.PageSize,
			Timeout:   time.Duration(cfg.TimeoutSec) * time.Second,
			HTTPProxy: cfg.HTTPProxy,
		})
		if err != nil {
			return nil, nil, err
		}
		log.Printf("Using remote store at %s", cfg.RemoteURL)
		return client, noop, nil

	default:
		return nil, nil, fmt.Errorf("unsupported store backend %q", cfg.Backend)
	}
}
