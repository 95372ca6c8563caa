package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/inodb/txmap/internal/cache"
	"github.com/inodb/txmap/internal/duckdb"
)

// isAnnotation reports whether path names a GFF3 annotation rather than a
// built registry artifact.
func isAnnotation(path string) bool {
	base := strings.TrimSuffix(strings.TrimSuffix(strings.ToLower(path), ".gz"), ".xz")
	return strings.HasSuffix(base, ".gff3") || strings.HasSuffix(base, ".gff")
}

// loadRegistry loads a registry from a DuckDB database, a gob artifact or,
// when given an annotation, by building it in memory.
func loadRegistry(ctx context.Context, path string, logger *zap.Logger) (*cache.Registry, error) {
	start := time.Now()

	var (
		reg *cache.Registry
		err error
	)
	switch {
	case duckdb.IsDuckDB(path):
		var store *duckdb.Store
		store, err = duckdb.Open(path)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		reg, err = store.LoadRegistry(ctx)

	case isAnnotation(path):
		loader := cache.NewGFFLoader(path)
		loader.SetLogger(logger)
		reg, err = loader.Load(ctx)

	default:
		rc := duckdb.NewRegistryCache(path)
		if !rc.Exists() {
			return nil, fmt.Errorf("registry %s not found (run 'txmap build' first)", path)
		}
		reg, err = rc.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}

	logger.Info("loaded transcript registry",
		zap.String("path", path),
		zap.Int("transcripts", reg.TranscriptCount()),
		zap.Duration("elapsed", time.Since(start)))
	return reg, nil
}
