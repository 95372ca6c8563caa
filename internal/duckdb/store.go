// Package duckdb persists transcript registries and mapping results.
// Registries are cached as gob files (fast, pure Go) or stored in DuckDB
// tables; mapping results are written to DuckDB (queryable, append-only).
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection for registries and mapping results.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS transcripts (
			chrom VARCHAR,
			strand TINYINT,
			tx_rank INTEGER,
			id VARCHAR,
			gene_id VARCHAR,
			start BIGINT,
			end_ BIGINT,
			tsl TINYINT,
			exonic_length BIGINT,
			PRIMARY KEY (chrom, strand, id)
		);

		CREATE TABLE IF NOT EXISTS exons (
			chrom VARCHAR,
			strand TINYINT,
			transcript_id VARCHAR,
			exon_rank INTEGER,
			start BIGINT,
			end_ BIGINT,
			PRIMARY KEY (chrom, strand, transcript_id, exon_rank)
		);

		CREATE TABLE IF NOT EXISTS mapping_results (
			chrom VARCHAR,
			strand VARCHAR,
			genomic_position BIGINT,
			transcript_id VARCHAR,
			spliced_offset BIGINT,
			rsr DOUBLE,
			total_reads DOUBLE,
			spliced BOOLEAN
		);

		CREATE TABLE IF NOT EXISTS mapping_summary (
			chrom VARCHAR,
			strand VARCHAR,
			total BIGINT,
			unmatched BIGINT,
			exon_not_found BIGINT
		);
	`)
	return err
}

// IsDuckDB checks if a path names a DuckDB database file.
func IsDuckDB(path string) bool {
	return strings.HasSuffix(path, ".duckdb") ||
		strings.HasSuffix(path, ".db")
}
