package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/txmap/internal/cache"
	"github.com/inodb/txmap/internal/gff"
	"github.com/inodb/txmap/internal/mapper"
)

func newLookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <chrom> <strand> <pos>",
		Short: "Show the transcripts containing a position and the one selected",
		Example: `  txmap lookup chr1 + 220
  txmap lookup 12 - 25245351 -r registry.duckdb`,
		Args: exactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			defer logger.Sync()
			return runLookup(cmd.Context(), args, viper.GetString(keyRegistry), cmd.OutOrStdout(), logger)
		},
	}
}

func runLookup(ctx context.Context, args []string, registry string, out io.Writer, logger *zap.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}

	chrom, ok := gff.NormalizeChromosome(args[0])
	if !ok {
		return &usageError{fmt.Errorf("unsupported chromosome %q", args[0])}
	}
	strand, ok := cache.ParseStrand(args[1])
	if !ok {
		return &usageError{fmt.Errorf("strand must be + or -, got %q", args[1])}
	}
	pos, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil {
		return &usageError{fmt.Errorf("invalid position %q: %w", args[2], err)}
	}

	reg, err := loadRegistry(ctx, registry, logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s%s:%d\n", chrom, strand, pos)
	for _, t := range reg.FindOverlaps(chrom, strand, pos) {
		if !t.HasExonContaining(pos) {
			continue
		}
		offset, _ := t.SplicedOffset(pos)
		fmt.Fprintf(out, "  %s\tgene=%s\ttsl=%s\tlength=%d\texons=%d\toffset=%d\n",
			t.ID, t.GeneID, formatTSL(t.TSL), t.ExonicLength, len(t.Exons), offset)
	}

	res := mapper.New().MapGroup(reg.Transcripts(chrom, strand), []mapper.Position{{Pos: pos}})
	if len(res.Rows) == 0 {
		fmt.Fprintln(out, "selected: none")
		return nil
	}
	row := res.Rows[0]
	fmt.Fprintf(out, "selected: %s offset=%d spliced=%t\n", row.TranscriptID, row.Offset, row.Spliced)
	return nil
}

func formatTSL(tsl int) string {
	if tsl == cache.TSLUnknown {
		return "NA"
	}
	return strconv.Itoa(tsl)
}
