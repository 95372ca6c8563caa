// Package mapper assigns genomic positions to their most prominent
// overlapping transcript and converts them to spliced transcript offsets.
package mapper

import (
	"sort"

	"go.uber.org/zap"

	"github.com/inodb/txmap/internal/cache"
)

// Position is a query position with opaque payload values that are carried
// unchanged to the output row.
type Position struct {
	Pos    int64
	Values []float64
}

// Row is one mapped position.
type Row struct {
	TranscriptID string
	GenomicPos   int64
	Offset       int64 // 1-based offset in the spliced transcript
	Values       []float64
	Spliced      bool // transcript has more than one exon
}

// Result holds the rows and counters of one chromosome/strand group.
type Result struct {
	Chrom        string
	Strand       cache.Strand
	Rows         []Row
	Total        int // positions processed
	Unmatched    int // positions no transcript exon contained
	ExonNotFound int // windows whose prominent transcript had no containing exon
}

// Batch is the sorted positions of one chromosome/strand group.
type Batch struct {
	Chrom     string
	Strand    cache.Strand
	Positions []Position
}

// Mapper runs the prominent-transcript sweep.
type Mapper struct {
	logger *zap.Logger
}

// New creates a mapper with a no-op logger.
func New() *Mapper {
	return &Mapper{logger: zap.NewNop()}
}

// SetLogger sets the logger for diagnostics.
func (m *Mapper) SetLogger(l *zap.Logger) {
	m.logger = l
}

// MapBatch maps one group against its transcripts in reg. Groups the
// registry has no transcripts for are entirely unmatched.
func (m *Mapper) MapBatch(reg *cache.Registry, b Batch) *Result {
	transcripts := reg.Transcripts(b.Chrom, b.Strand)
	if len(transcripts) == 0 {
		m.logger.Info("no transcripts for group",
			zap.String("chrom", b.Chrom),
			zap.Stringer("strand", b.Strand),
			zap.Int("positions", len(b.Positions)))
	}

	res := m.MapGroup(transcripts, b.Positions)
	res.Chrom = b.Chrom
	res.Strand = b.Strand
	return res
}

// MapGroup sweeps positions (ascending by Pos) against transcripts (ascending
// by Start) of a single chromosome/strand and returns one row per position
// that found a prominent transcript.
func (m *Mapper) MapGroup(transcripts []*cache.Transcript, positions []Position) *Result {
	if !sort.SliceIsSorted(positions, func(i, j int) bool { return positions[i].Pos < positions[j].Pos }) {
		m.logger.Warn("positions are not sorted; results will be incomplete",
			zap.Int("positions", len(positions)))
	}

	s := newSweep(transcripts, positions, m.logger)
	for !s.done() {
		s.step()
	}
	return s.res
}
