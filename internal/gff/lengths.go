package gff

import (
	"context"
	"fmt"
)

// Lengths holds the exonic (spliced) length and exon count of every
// transcript, computed from exon records before transcripts are assembled.
type Lengths struct {
	Exonic    map[Key]int64
	ExonCount map[Key]int
}

// Len returns the exonic length recorded for key, or 0.
func (l *Lengths) Len(key Key) int64 {
	return l.Exonic[key]
}

// Transcripts returns the number of transcripts with at least one exon.
func (l *Lengths) Transcripts() int {
	return len(l.Exonic)
}

// ExonicLengths runs the first pass over the annotation at path, summing
// end-start+1 over the exons of each transcript.
func ExonicLengths(ctx context.Context, path string) (*Lengths, error) {
	r, err := OpenReader(ctx, path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return ReadExonicLengths(r)
}

// ReadExonicLengths consumes r and returns the per-transcript exonic lengths.
// Chromosome filtering is the Reader's, so keys match the second pass.
func ReadExonicLengths(r *Reader) (*Lengths, error) {
	l := &Lengths{
		Exonic:    make(map[Key]int64),
		ExonCount: make(map[Key]int),
	}

	for {
		rec, err := r.Next()
		if err != nil {
			return nil, fmt.Errorf("read exonic lengths: %w", err)
		}
		if rec == nil {
			break
		}
		if rec.Feature != FeatureExon {
			continue
		}

		key := rec.Key()
		l.Exonic[key] += rec.Len()
		l.ExonCount[key]++
	}

	return l, nil
}
