package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/txmap/internal/mapper"
)

// Summary holds aggregated mapping counters.
type Summary struct {
	Groups       int
	Total        int64
	Unmatched    int64
	ExonNotFound int64
}

// WriteResult appends the rows of one mapped group to mapping_results using
// the Appender API and records its counters in mapping_summary.
func (s *Store) WriteResult(ctx context.Context, res *mapper.Result) error {
	strand := res.Strand.String()

	if len(res.Rows) > 0 {
		conn, err := s.db.Conn(ctx)
		if err != nil {
			return fmt.Errorf("get connection: %w", err)
		}
		defer conn.Close()

		var appender *goduckdb.Appender
		if err := conn.Raw(func(driverConn any) error {
			var err error
			appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "mapping_results")
			return err
		}); err != nil {
			return fmt.Errorf("create appender: %w", err)
		}
		defer appender.Close()

		for _, r := range res.Rows {
			rsr, reads := value(r.Values, 0), value(r.Values, 1)
			if err := appender.AppendRow(
				res.Chrom, strand, r.GenomicPos, r.TranscriptID, r.Offset,
				rsr, reads, r.Spliced,
			); err != nil {
				return fmt.Errorf("append mapping row: %w", err)
			}
		}
		if err := appender.Flush(); err != nil {
			return fmt.Errorf("flush mapping rows: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO mapping_summary VALUES (?, ?, ?, ?, ?)",
		res.Chrom, strand, int64(res.Total), int64(res.Unmatched), int64(res.ExonNotFound))
	if err != nil {
		return fmt.Errorf("insert mapping summary: %w", err)
	}
	return nil
}

func value(vs []float64, i int) float64 {
	if i < len(vs) {
		return vs[i]
	}
	return 0
}

// ClearResults removes all stored mapping results and summaries.
func (s *Store) ClearResults(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM mapping_results; DELETE FROM mapping_summary")
	return err
}

// LookupTranscript returns the stored rows mapped to transcriptID, ordered
// by spliced offset.
func (s *Store) LookupTranscript(ctx context.Context, transcriptID string) ([]mapper.Row, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		genomic_position, spliced_offset, rsr, total_reads, spliced
		FROM mapping_results
		WHERE transcript_id=?
		ORDER BY spliced_offset`, transcriptID)
	if err != nil {
		return nil, fmt.Errorf("query mapping results: %w", err)
	}
	defer rows.Close()

	var out []mapper.Row
	for rows.Next() {
		r := mapper.Row{TranscriptID: transcriptID}
		var rsr, reads float64
		if err := rows.Scan(&r.GenomicPos, &r.Offset, &rsr, &reads, &r.Spliced); err != nil {
			return nil, fmt.Errorf("scan mapping result: %w", err)
		}
		r.Values = []float64{rsr, reads}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mapping results: %w", err)
	}
	return out, nil
}

// Summary aggregates mapping_summary across all groups.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	var sum Summary
	err := s.db.QueryRowContext(ctx, `SELECT
		COUNT(*),
		COALESCE(SUM(total), 0)::BIGINT,
		COALESCE(SUM(unmatched), 0)::BIGINT,
		COALESCE(SUM(exon_not_found), 0)::BIGINT
		FROM mapping_summary`).Scan(&sum.Groups, &sum.Total, &sum.Unmatched, &sum.ExonNotFound)
	if err != nil {
		return Summary{}, fmt.Errorf("query mapping summary: %w", err)
	}
	return sum, nil
}

// ResultWriter adapts a Store to the output writer interface used by the
// map command.
type ResultWriter struct {
	ctx   context.Context
	store *Store
}

// NewResultWriter creates a writer that appends to s.
func NewResultWriter(ctx context.Context, s *Store) *ResultWriter {
	return &ResultWriter{ctx: ctx, store: s}
}

// WriteHeader clears results of a previous run.
func (w *ResultWriter) WriteHeader() error {
	return w.store.ClearResults(w.ctx)
}

// WriteResult appends one group.
func (w *ResultWriter) WriteResult(res *mapper.Result) error {
	return w.store.WriteResult(w.ctx, res)
}

// Flush is a no-op; every group is flushed as it is written.
func (w *ResultWriter) Flush() error {
	return nil
}
