package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/txmap/internal/cache"
)

type groupKey struct {
	chrom  string
	strand cache.Strand
	id     string
}

// WriteRegistry replaces the transcripts and exons tables with reg. Each
// transcript keeps its rank within its group and each exon its rank within
// its transcript, so LoadRegistry restores the exact order.
func (s *Store) WriteRegistry(ctx context.Context, reg *cache.Registry) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM exons; DELETE FROM transcripts"); err != nil {
		return fmt.Errorf("clear registry tables: %w", err)
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var txApp, exApp *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		txApp, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "transcripts")
		if err != nil {
			return err
		}
		exApp, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "exons")
		return err
	}); err != nil {
		if txApp != nil {
			txApp.Close()
		}
		return fmt.Errorf("create appender: %w", err)
	}
	defer txApp.Close()
	defer exApp.Close()

	for _, chrom := range reg.Chromosomes() {
		for strand, transcripts := range reg.Groups()[chrom] {
			for rank, t := range transcripts {
				if err := txApp.AppendRow(
					chrom, int8(strand), int32(rank), t.ID, t.GeneID,
					t.Start, t.End, int8(t.TSL), t.ExonicLength,
				); err != nil {
					return fmt.Errorf("append transcript %s: %w", t.ID, err)
				}
				for i, e := range t.Exons {
					if err := exApp.AppendRow(
						chrom, int8(strand), t.ID, int32(i), e.Start, e.End,
					); err != nil {
						return fmt.Errorf("append exon of %s: %w", t.ID, err)
					}
				}
			}
		}
	}

	if err := txApp.Flush(); err != nil {
		return fmt.Errorf("flush transcripts: %w", err)
	}
	return exApp.Flush()
}

// LoadRegistry reads the transcripts and exons tables into a finalized
// registry.
func (s *Store) LoadRegistry(ctx context.Context) (*cache.Registry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		chrom, strand, id, gene_id, start, end_, tsl, exonic_length
		FROM transcripts
		ORDER BY chrom, strand, tx_rank`)
	if err != nil {
		return nil, fmt.Errorf("query transcripts: %w", err)
	}
	defer rows.Close()

	reg := cache.NewRegistry()
	byKey := make(map[groupKey]*cache.Transcript)
	for rows.Next() {
		var t cache.Transcript
		var strand, tsl int64
		if err := rows.Scan(&t.Chrom, &strand, &t.ID, &t.GeneID, &t.Start, &t.End, &tsl, &t.ExonicLength); err != nil {
			return nil, fmt.Errorf("scan transcript: %w", err)
		}
		t.Strand = cache.Strand(strand)
		t.TSL = int(tsl)
		reg.AddTranscript(t.Chrom, t.Strand, &t)
		byKey[groupKey{t.Chrom, t.Strand, t.ID}] = &t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transcripts: %w", err)
	}

	if err := s.loadExons(ctx, byKey); err != nil {
		return nil, err
	}

	reg.Finalize()
	return reg, nil
}

func (s *Store) loadExons(ctx context.Context, byKey map[groupKey]*cache.Transcript) error {
	rows, err := s.db.QueryContext(ctx, `SELECT
		chrom, strand, transcript_id, start, end_
		FROM exons
		ORDER BY chrom, strand, transcript_id, exon_rank`)
	if err != nil {
		return fmt.Errorf("query exons: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var k groupKey
		var strand int64
		var e cache.Exon
		if err := rows.Scan(&k.chrom, &strand, &k.id, &e.Start, &e.End); err != nil {
			return fmt.Errorf("scan exon: %w", err)
		}
		k.strand = cache.Strand(strand)
		t, ok := byKey[k]
		if !ok {
			return fmt.Errorf("exon references unknown transcript %s on %s%s", k.id, k.chrom, k.strand)
		}
		t.Exons = append(t.Exons, e)
	}
	return rows.Err()
}

// TranscriptCount returns the number of stored transcripts.
func (s *Store) TranscriptCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transcripts").Scan(&count)
	return count, err
}
