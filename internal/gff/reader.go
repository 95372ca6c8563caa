package gff

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/inodb/txmap/internal/input"
)

// Stats counts what a Reader has seen so far.
type Stats struct {
	Lines             int // lines read, including comments
	Records           int // transcript and exon records returned
	SkippedChromosome int // transcript/exon lines on non-canonical chromosomes
}

// Reader streams transcript and exon records from a GFF3 source.
// A Reader is not safe for concurrent use.
type Reader struct {
	scanner *bufio.Scanner
	closer  io.Closer
	stats   Stats
	done    bool
}

// NewReader creates a Reader over already-decompressed GFF3 content.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	// Increase buffer size for long attribute columns
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)
	return &Reader{scanner: scanner}
}

// OpenReader opens path (plain, .gz, .xz or gs://) and returns a Reader over
// it. Opening the same path again restarts the stream from the beginning.
func OpenReader(ctx context.Context, path string) (*Reader, error) {
	rc, err := input.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open annotation file: %w", err)
	}
	r := NewReader(rc)
	r.closer = rc
	return r, nil
}

// Next returns the next transcript or exon record.
// Returns nil, nil when there are no more records.
func (r *Reader) Next() (*Record, error) {
	for !r.done && r.scanner.Scan() {
		r.stats.Lines++
		line := r.scanner.Text()

		// Embedded sequences end the feature section
		if line == "##FASTA" {
			r.done = true
			break
		}

		// Skip comments and empty lines
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 9 {
			if len(fields) >= 3 && isKeptFeature(fields[2]) {
				return nil, &MalformedRecordError{
					Line:   r.stats.Lines,
					Reason: fmt.Sprintf("expected 9 fields, got %d", len(fields)),
				}
			}
			continue
		}

		if !isKeptFeature(fields[2]) {
			continue
		}

		// Restrict to standard chromosomes
		chrom, ok := NormalizeChromosome(fields[0])
		if !ok {
			r.stats.SkippedChromosome++
			continue
		}

		rec, err := parseFields(fields, chrom, r.stats.Lines)
		if err != nil {
			return nil, err
		}
		r.stats.Records++
		return rec, nil
	}

	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan annotation: %w", err)
	}
	return nil, nil
}

// LineNumber returns the number of lines consumed so far.
func (r *Reader) LineNumber() int {
	return r.stats.Lines
}

// Stats returns the counters accumulated so far.
func (r *Reader) Stats() Stats {
	return r.stats
}

// Close releases the underlying file, if the Reader opened one.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
