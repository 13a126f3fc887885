package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/inodb/vibe-oncokb/internal/cache"
	"github.com/inodb/vibe-oncokb/internal/datasource/hotspots"
	"github.com/inodb/vibe-oncokb/internal/duckdb"
	"github.com/inodb/vibe-oncokb/internal/oncogenicity"
)

// catalogEnv is a started cache over the catalog database together with
// the oncogenicity deriver that reads through it.
type catalogEnv struct {
	store   *duckdb.Store
	cache   *cache.Service
	deriver *oncogenicity.Deriver
}

// openCatalog opens the configured catalog database and warms a cache over
// it. Hotspots are used as the oncogenicity fallback when loaded.
func openCatalog(ctx context.Context, logger *zap.Logger, opts cache.Options) (*catalogEnv, error) {
	path, err := dbPath()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("catalog %s not found (populate it with: vibe-oncokb load): %w", path, err)
	}

	store, err := duckdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	opts.Logger = logger
	svc, err := cache.New(store, opts)
	if err != nil {
		store.Close()
		return nil, err
	}
	start := time.Now()
	if err := svc.Start(ctx); err != nil {
		svc.Close()
		store.Close()
		return nil, fmt.Errorf("warm cache: %w", err)
	}
	logger.Info("catalog ready",
		zap.String("path", path),
		zap.Int("genes", len(svc.CachedGenes()["alterations"])),
		zap.Duration("elapsed", time.Since(start)))

	var oracle oncogenicity.HotspotOracle
	hs, err := hotspots.New(store.DB())
	if err != nil {
		svc.Close()
		store.Close()
		return nil, err
	}
	if hs.Loaded() {
		if err := hs.PreloadToMemory(); err != nil {
			svc.Close()
			store.Close()
			return nil, fmt.Errorf("preload hotspots: %w", err)
		}
		oracle = hs
	} else {
		logger.Info("no hotspots loaded, oncogenicity uses curated evidence only")
	}

	deriver := oncogenicity.NewDeriver(svc, oracle)
	deriver.SetLogger(logger)

	return &catalogEnv{store: store, cache: svc, deriver: deriver}, nil
}

// Close stops the cache and closes the database.
func (e *catalogEnv) Close() error {
	e.cache.Close()
	return e.store.Close()
}
