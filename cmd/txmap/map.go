package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/txmap/internal/duckdb"
	"github.com/inodb/txmap/internal/mapper"
	"github.com/inodb/txmap/internal/output"
	"github.com/inodb/txmap/internal/positions"
)

type mapOptions struct {
	registry string
	output   string
	format   string
	workers  int
}

func newMapCmd() *cobra.Command {
	var opts mapOptions

	cmd := &cobra.Command{
		Use:   "map <positions.csv>",
		Short: "Map genomic positions to spliced transcript offsets",
		Long: `Read positions (chromosome,strand,position,rsr,total_reads), assign each to the
most prominent transcript with an exon strictly containing it and write the
offset within the spliced transcript. Per-group and total unmatched counts are
printed to stderr.`,
		Example: `  txmap map test_data.csv -o test_tr_data.csv
  txmap map test_data.csv -r registry.duckdb -f tab
  txmap map test_data.csv -f duckdb -o results.duckdb --workers 8`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.registry = viper.GetString(keyRegistry)
			if !cmd.Flags().Changed("format") {
				opts.format = viper.GetString(keyOutputFormat)
			}
			if !cmd.Flags().Changed("workers") {
				opts.workers = viper.GetInt(keyWorkers)
			}
			logger := newLogger()
			defer logger.Sync()
			return runMap(cmd.Context(), args[0], opts, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output file (default: stdout; required for duckdb)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "csv", "Output format: csv, tab, duckdb")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Number of mapping workers (0 = all CPUs)")

	return cmd
}

func runMap(ctx context.Context, positionsPath string, opts mapOptions, stdout, stderr io.Writer, logger *zap.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}

	format, err := output.ParseFormat(opts.format)
	if err != nil {
		return &usageError{err}
	}
	if format == output.FormatDuckDB && opts.output == "" {
		return &usageError{fmt.Errorf("--output is required for duckdb format")}
	}

	records, err := positions.ReadFile(ctx, positionsPath)
	if err != nil {
		return err
	}
	grouping := positions.Group(records)
	logger.Info("read positions",
		zap.Int("records", len(records)),
		zap.Int("groups", len(grouping.Batches)),
		zap.Int("skipped_chromosome", grouping.SkippedChromosome),
		zap.Int("skipped_strand", grouping.SkippedStrand))

	reg, err := loadRegistry(ctx, opts.registry, logger)
	if err != nil {
		return err
	}

	w, closeFn, err := openResultWriter(ctx, format, opts.output, stdout)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := w.WriteHeader(); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	m := mapper.New()
	m.SetLogger(logger)

	var total, unmatched, exonNotFound, rows int
	err = m.MapAll(ctx, reg, grouping.Batches, opts.workers, func(res *mapper.Result) error {
		fmt.Fprintf(stderr, "%s%s: No matched positions = %d/%d\n",
			res.Chrom, res.Strand, res.Unmatched, res.Total)
		total += res.Total
		unmatched += res.Unmatched
		exonNotFound += res.ExonNotFound
		rows += len(res.Rows)
		return w.WriteResult(res)
	})
	if err != nil {
		return fmt.Errorf("map positions: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	fmt.Fprintf(stderr, "No matched positions = %d/%d\n", unmatched, total)
	logger.Info("mapping complete",
		zap.Int("rows", rows),
		zap.Int("positions", total),
		zap.Int("unmatched", unmatched),
		zap.Int("exon_not_found", exonNotFound))
	return closeFn()
}

// openResultWriter returns the writer for format and a close function that is
// safe to call more than once.
func openResultWriter(ctx context.Context, format output.Format, path string, stdout io.Writer) (output.ResultWriter, func() error, error) {
	if format == output.FormatDuckDB {
		store, err := duckdb.Open(path)
		if err != nil {
			return nil, nil, err
		}
		return duckdb.NewResultWriter(ctx, store), onceCloser(store.Close), nil
	}

	if path == "" {
		w, err := output.NewWriter(stdout, format, positions.AuxColumns)
		return w, func() error { return nil }, err
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	w, err := output.NewWriter(f, format, positions.AuxColumns)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return w, onceCloser(f.Close), nil
}

func onceCloser(fn func() error) func() error {
	done := false
	return func() error {
		if done {
			return nil
		}
		done = true
		return fn()
	}
}
