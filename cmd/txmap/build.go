package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/txmap/internal/cache"
	"github.com/inodb/txmap/internal/duckdb"
	"github.com/inodb/txmap/internal/input"
)

func newBuildCmd() *cobra.Command {
	var (
		output string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "build <annotation.gff3[.gz|.xz]>",
		Short: "Build the transcript registry from a GENCODE GFF3 annotation",
		Long: `Read a GENCODE GFF3 annotation twice (exonic lengths, then transcripts and
exons) and persist the registry. Outputs ending in .duckdb or .db are written
as DuckDB tables; anything else is written as a gob artifact with a .meta
sidecar. A gob artifact built from an unchanged annotation is reused.`,
		Example: `  txmap build gencode.v40.primary_assembly.annotation.gff3.gz
  txmap build annotation.gff3.gz -o registry.duckdb
  txmap build gs://bucket/gencode.v40.primary_assembly.annotation.gff3.gz --force`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = viper.GetString(keyRegistry)
			}
			logger := newLogger()
			defer logger.Sync()
			return runBuild(cmd.Context(), args[0], output, force, logger)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Registry artifact path (default: registry from config)")
	cmd.Flags().BoolVar(&force, "force", false, "Rebuild even if the artifact is up to date")

	return cmd
}

func runBuild(ctx context.Context, annotation, output string, force bool, logger *zap.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var fp duckdb.FileFingerprint
	cacheable := !input.IsRemote(annotation)
	if cacheable {
		var err error
		fp, err = duckdb.StatFile(annotation)
		if err != nil {
			return fmt.Errorf("annotation: %w", err)
		}
	}

	rc := duckdb.NewRegistryCache(output)
	if !duckdb.IsDuckDB(output) && cacheable && !force && rc.Valid(fp) {
		logger.Info("registry is up to date", zap.String("path", output))
		return nil
	}

	start := time.Now()
	loader := cache.NewGFFLoader(annotation)
	loader.SetLogger(logger)
	reg, err := loader.Load(ctx)
	if err != nil {
		return err
	}

	if duckdb.IsDuckDB(output) {
		store, err := duckdb.Open(output)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.WriteRegistry(ctx, reg); err != nil {
			return fmt.Errorf("write registry: %w", err)
		}
	} else {
		if !cacheable {
			fp = duckdb.FileFingerprint{Path: annotation}
		}
		if err := rc.Write(reg, fp); err != nil {
			return fmt.Errorf("write registry: %w", err)
		}
	}

	logger.Info("registry written",
		zap.String("path", output),
		zap.Int("transcripts", reg.TranscriptCount()),
		zap.Strings("chromosomes", reg.Chromosomes()),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}
