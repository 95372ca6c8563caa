// Package gff streams transcript and exon records out of GENCODE-style GFF3
// annotation files.
package gff

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Feature types kept by the reader. Every other feature type is skipped.
const (
	FeatureTranscript = "transcript"
	FeatureExon       = "exon"
)

// TSLUnknown is the transcript support level assigned when the annotation
// carries "NA" or no level at all. It ranks below every real level (1-5).
const TSLUnknown = 6

// ErrMalformedRecord is matched by every *MalformedRecordError.
var ErrMalformedRecord = errors.New("malformed annotation record")

// MalformedRecordError reports a transcript or exon line that cannot be
// attached to the registry. It is fatal for a build.
type MalformedRecordError struct {
	Line   int
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed annotation record at line %d: %s", e.Line, e.Reason)
}

// Unwrap lets errors.Is(err, ErrMalformedRecord) succeed.
func (e *MalformedRecordError) Unwrap() error {
	return ErrMalformedRecord
}

// Record is a parsed transcript or exon feature line.
type Record struct {
	Line         int    // 1-based line number in the source
	RawChrom     string // chromosome as written in column 1
	Chrom        string // normalized chromosome (chr1..chr22, chrX, chrY, chrM)
	Feature      string // FeatureTranscript or FeatureExon
	Start        int64  // 1-based, inclusive
	End          int64  // 1-based, inclusive
	Strand       string // "+" or "-"
	TranscriptID string
	GeneID       string
	TSL          int // 1-5, TSLUnknown when absent or NA
}

// Key identifies a transcript within the registry.
type Key struct {
	Chrom        string
	Strand       string
	TranscriptID string
}

// Key returns the registry key of the transcript this record belongs to.
func (r *Record) Key() Key {
	return Key{Chrom: r.Chrom, Strand: r.Strand, TranscriptID: r.TranscriptID}
}

// Len returns the number of bases covered by the record.
func (r *Record) Len() int64 {
	return r.End - r.Start + 1
}

// isKeptFeature reports whether a column-3 feature type is read at all.
func isKeptFeature(feature string) bool {
	return feature == FeatureTranscript || feature == FeatureExon
}

// parseFields builds a Record from the nine tab-separated columns of a line
// whose chromosome has already been normalized.
func parseFields(fields []string, chrom string, line int) (*Record, error) {
	start, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return nil, &MalformedRecordError{Line: line, Reason: fmt.Sprintf("invalid start %q", fields[3])}
	}
	end, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return nil, &MalformedRecordError{Line: line, Reason: fmt.Sprintf("invalid end %q", fields[4])}
	}
	if start > end {
		return nil, &MalformedRecordError{Line: line, Reason: fmt.Sprintf("start %d after end %d", start, end)}
	}

	strand := fields[6]
	if strand != "+" && strand != "-" {
		return nil, &MalformedRecordError{Line: line, Reason: fmt.Sprintf("invalid strand %q", strand)}
	}

	attrs := parseAttributes(fields[8])
	transcriptID := attrs["transcript_id"]
	if transcriptID == "" {
		return nil, &MalformedRecordError{Line: line, Reason: "transcript_id attribute missing"}
	}
	geneID := attrs["gene_id"]
	if geneID == "" {
		return nil, &MalformedRecordError{Line: line, Reason: "gene_id attribute missing"}
	}

	return &Record{
		Line:         line,
		RawChrom:     fields[0],
		Chrom:        chrom,
		Feature:      fields[2],
		Start:        start,
		End:          end,
		Strand:       strand,
		TranscriptID: transcriptID,
		GeneID:       geneID,
		TSL:          ParseTSL(attrs["transcript_support_level"]),
	}, nil
}

// parseAttributes parses the GFF3 attribute column.
// Format: key=value;key=value;...
func parseAttributes(attrStr string) map[string]string {
	attrs := make(map[string]string)

	for _, part := range strings.Split(attrStr, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		attrs[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	return attrs
}

// ParseTSL converts a transcript_support_level attribute value to its tier.
// Levels 1 through 5 are kept; "NA", empty or unrecognised values map to
// TSLUnknown.
func ParseTSL(value string) int {
	tsl, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || tsl < 1 || tsl > 5 {
		return TSLUnknown
	}
	return tsl
}

// NormalizeChromosome maps a chromosome identifier onto the canonical
// chr1..chr22, chrX, chrY, chrM form. Bare names gain a "chr" prefix and "MT"
// becomes "chrM". Scaffolds, patches and anything else return ok=false.
//
//	"chrX" -> "chrX"    "4" -> "chr4"    "MT" -> "chrM"
//	"GL000009.2", "chrUn_KI270442v1", "chr14_GL000009v2_random" -> no match
func NormalizeChromosome(id string) (string, bool) {
	name := id
	hasPrefix := strings.HasPrefix(id, "chr")
	if hasPrefix {
		name = id[3:]
	} else if id == "MT" {
		name = "M"
	}

	if !isCanonicalName(name) {
		return "", false
	}
	return "chr" + name, true
}

// isCanonicalName accepts 1..22, X, Y and M.
func isCanonicalName(name string) bool {
	switch name {
	case "X", "Y", "M":
		return true
	case "":
		return false
	}
	if name[0] == '0' || len(name) > 2 {
		return false
	}
	n := 0
	for i := 0; i < len(name); i++ {
		if name[i] < '0' || name[i] > '9' {
			return false
		}
		n = n*10 + int(name[i]-'0')
	}
	return n >= 1 && n <= 22
}
