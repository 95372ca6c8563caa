// Package cache holds the chromosome/strand-indexed transcript registry.
package cache

import "github.com/inodb/txmap/internal/gff"

// Strand is +1 for the forward strand and -1 for the reverse strand.
type Strand int8

const (
	Forward Strand = 1
	Reverse Strand = -1
)

// ParseStrand converts "+" or "-" to a Strand.
func ParseStrand(s string) (Strand, bool) {
	switch s {
	case "+":
		return Forward, true
	case "-":
		return Reverse, true
	}
	return 0, false
}

// String returns "+" or "-".
func (s Strand) String() string {
	if s == Reverse {
		return "-"
	}
	return "+"
}

// TSLUnknown is the support level of transcripts annotated with "NA".
const TSLUnknown = gff.TSLUnknown

// Transcript represents a specific gene isoform.
type Transcript struct {
	ID           string // Transcript ID (e.g., ENST00000311936.8)
	GeneID       string // Parent gene ID
	Chrom        string // Normalized chromosome (chr1..chr22, chrX, chrY, chrM)
	Strand       Strand // +1 or -1
	Start        int64  // Transcript start (1-based)
	End          int64  // Transcript end (1-based, inclusive)
	TSL          int    // Transcript support level, 1 (best) to 5, TSLUnknown for NA
	ExonicLength int64  // Sum of exon spans (spliced length)
	Exons        []Exon // Ordered from the transcription start site
}

// Exon represents a single exon within a transcript.
type Exon struct {
	Start int64 // Genomic start (1-based)
	End   int64 // Genomic end (1-based, inclusive)
}

// Len returns the number of bases in the exon.
func (e Exon) Len() int64 {
	return e.End - e.Start + 1
}

// StrictlyContains reports whether pos lies inside the exon, excluding both
// boundary bases.
func (e Exon) StrictlyContains(pos int64) bool {
	return e.Start < pos && pos < e.End
}

// IsForwardStrand returns true if the transcript is on the forward strand.
func (t *Transcript) IsForwardStrand() bool {
	return t.Strand == Forward
}

// IsReverseStrand returns true if the transcript is on the reverse strand.
func (t *Transcript) IsReverseStrand() bool {
	return t.Strand == Reverse
}

// Contains returns true if the given position is within the transcript boundaries.
func (t *Transcript) Contains(pos int64) bool {
	return pos >= t.Start && pos <= t.End
}

// IsSpliced returns true if the transcript has more than one exon.
func (t *Transcript) IsSpliced() bool {
	return len(t.Exons) > 1
}

// FindExon returns the index of the exon strictly containing pos, or -1.
func (t *Transcript) FindExon(pos int64) int {
	for i, e := range t.Exons {
		if e.StrictlyContains(pos) {
			return i
		}
	}
	return -1
}

// HasExonContaining reports whether any exon strictly contains pos.
func (t *Transcript) HasExonContaining(pos int64) bool {
	return t.FindExon(pos) != -1
}

// SplicedOffset returns the 1-based position of pos within the spliced
// transcript. Exons are walked from the transcription start site; every exon
// before the containing one contributes its full length. ok is false when no
// exon strictly contains pos.
func (t *Transcript) SplicedOffset(pos int64) (offset int64, ok bool) {
	for _, e := range t.Exons {
		if !e.StrictlyContains(pos) {
			offset += e.Len()
			continue
		}
		if t.Strand == Reverse {
			return offset + e.End - pos + 1, true
		}
		return offset + pos - e.Start + 1, true
	}
	return 0, false
}
