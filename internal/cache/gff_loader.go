package cache

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/inodb/txmap/internal/gff"
)

// GFFLoader builds a Registry from a GENCODE GFF3 annotation in two passes:
// the first sums exonic lengths, the second assembles transcripts.
type GFFLoader struct {
	path   string
	logger *zap.Logger
}

// NewGFFLoader creates a loader for a plain, .gz, .xz or gs:// GFF3 file.
func NewGFFLoader(path string) *GFFLoader {
	return &GFFLoader{path: path, logger: zap.NewNop()}
}

// SetLogger sets the logger for progress messages.
func (l *GFFLoader) SetLogger(logger *zap.Logger) {
	l.logger = logger
}

// Load reads the annotation twice and returns the finalized registry.
func (l *GFFLoader) Load(ctx context.Context) (*Registry, error) {
	start := time.Now()
	lengths, err := gff.ExonicLengths(ctx, l.path)
	if err != nil {
		return nil, fmt.Errorf("load exonic lengths: %w", err)
	}
	if lengths.Transcripts() == 0 {
		return nil, fmt.Errorf("no exons read from %s (input empty or malformatted?)", l.path)
	}
	l.logger.Info("read transcript lengths",
		zap.Int("transcripts", lengths.Transcripts()),
		zap.Duration("elapsed", time.Since(start)))

	start = time.Now()
	r, err := gff.OpenReader(ctx, l.path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	reg, err := buildRegistry(r, lengths)
	if err != nil {
		return nil, err
	}

	stats := r.Stats()
	l.logger.Info("built transcript registry",
		zap.Int("transcripts", reg.TranscriptCount()),
		zap.Int("chromosomes", len(reg.Chromosomes())),
		zap.Int("skipped_noncanonical_lines", stats.SkippedChromosome),
		zap.Duration("elapsed", time.Since(start)))

	return reg, nil
}

// pendingExons collects the exons of one transcript until assembly.
type pendingExons struct {
	exons     []Exon
	firstLine int
}

// buildRegistry runs the second pass: one Transcript per transcript record,
// exons attached by (chromosome, strand, transcript_id), then sorted.
func buildRegistry(r *gff.Reader, lengths *gff.Lengths) (*Registry, error) {
	reg := NewRegistry()
	transcripts := make(map[gff.Key]*Transcript)
	exonsByTranscript := make(map[gff.Key]*pendingExons)

	for {
		rec, err := r.Next()
		if err != nil {
			return nil, err
		}
		if rec == nil {
			break
		}

		key := rec.Key()
		strand, _ := ParseStrand(rec.Strand)

		switch rec.Feature {
		case gff.FeatureTranscript:
			if _, dup := transcripts[key]; dup {
				return nil, &gff.MalformedRecordError{
					Line:   rec.Line,
					Reason: fmt.Sprintf("duplicate transcript %s on %s%s", rec.TranscriptID, rec.Chrom, rec.Strand),
				}
			}
			t := &Transcript{
				ID:           rec.TranscriptID,
				GeneID:       rec.GeneID,
				Chrom:        rec.Chrom,
				Strand:       strand,
				Start:        rec.Start,
				End:          rec.End,
				TSL:          rec.TSL,
				ExonicLength: lengths.Len(key),
			}
			transcripts[key] = t
			reg.AddTranscript(rec.Chrom, strand, t)

		case gff.FeatureExon:
			p, ok := exonsByTranscript[key]
			if !ok {
				p = &pendingExons{firstLine: rec.Line}
				exonsByTranscript[key] = p
			}
			p.exons = append(p.exons, Exon{Start: rec.Start, End: rec.End})
		}
	}

	// Attach exons, nearest the transcription start site first
	var orphan *gff.MalformedRecordError
	for key, p := range exonsByTranscript {
		t, ok := transcripts[key]
		if !ok {
			if orphan == nil || p.firstLine < orphan.Line {
				orphan = &gff.MalformedRecordError{
					Line:   p.firstLine,
					Reason: fmt.Sprintf("exon references unknown transcript %s on %s%s", key.TranscriptID, key.Chrom, key.Strand),
				}
			}
			continue
		}
		t.Exons = p.exons
		sortExons(t)
	}
	if orphan != nil {
		return nil, orphan
	}

	reg.Finalize()
	return reg, nil
}

// sortExons orders exons ascending by start on the forward strand and
// descending by start on the reverse strand.
func sortExons(t *Transcript) {
	exons := t.Exons
	if t.Strand == Reverse {
		sort.SliceStable(exons, func(i, j int) bool {
			return exons[i].Start > exons[j].Start
		})
		return
	}
	sort.SliceStable(exons, func(i, j int) bool {
		return exons[i].Start < exons[j].Start
	})
}
