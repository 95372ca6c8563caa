// Package positions reads the per-position measurement CSV and groups it into
// sorted chromosome/strand batches for the mapper.
package positions

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"

	"github.com/inodb/txmap/internal/cache"
	"github.com/inodb/txmap/internal/gff"
	"github.com/inodb/txmap/internal/input"
	"github.com/inodb/txmap/internal/mapper"
)

// AuxColumns names the payload values carried from input to output rows, in
// the order they appear in mapper.Position.Values.
var AuxColumns = []string{"rsr", "total_reads"}

// Record is one row of the positions CSV.
type Record struct {
	Chromosome string  `csv:"chromosome"`
	Strand     string  `csv:"strand"`
	Position   int64   `csv:"position"`
	RSR        float64 `csv:"rsr"`
	TotalReads float64 `csv:"total_reads"`
}

// Read parses every record from r.
func Read(r io.Reader) ([]*Record, error) {
	records := []*Record{}
	if err := gocsv.Unmarshal(r, &records); err != nil {
		return nil, pfx.Err(err)
	}
	return records, nil
}

// ReadFile opens path (plain, .gz, .xz or gs://) and parses every record.
func ReadFile(ctx context.Context, path string) ([]*Record, error) {
	f, err := input.Open(ctx, path)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer f.Close()

	records, err := Read(f)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("read %s: %w", path, err))
	}
	return records, nil
}

// Grouping is the result of Group.
type Grouping struct {
	Batches           []mapper.Batch
	SkippedChromosome int // rows whose chromosome is not a primary assembly chromosome
	SkippedStrand     int // rows whose strand is neither + nor -
}

// Total returns the number of positions across all batches.
func (g *Grouping) Total() int {
	n := 0
	for _, b := range g.Batches {
		n += len(b.Positions)
	}
	return n
}

type groupKey struct {
	chrom  string
	strand cache.Strand
}

// Group normalizes chromosome ids and splits records into one batch per
// chromosome/strand. Chromosomes keep their first-appearance order, the +
// strand batch precedes the - strand batch, and positions within a batch are
// stable-sorted ascending.
func Group(records []*Record) *Grouping {
	g := &Grouping{}

	var chroms []string
	seen := make(map[string]bool)
	groups := make(map[groupKey][]mapper.Position)

	for _, rec := range records {
		chrom, ok := gff.NormalizeChromosome(rec.Chromosome)
		if !ok {
			g.SkippedChromosome++
			continue
		}
		strand, ok := cache.ParseStrand(rec.Strand)
		if !ok {
			g.SkippedStrand++
			continue
		}
		if !seen[chrom] {
			seen[chrom] = true
			chroms = append(chroms, chrom)
		}
		k := groupKey{chrom, strand}
		groups[k] = append(groups[k], mapper.Position{
			Pos:    rec.Position,
			Values: []float64{rec.RSR, rec.TotalReads},
		})
	}

	for _, chrom := range chroms {
		for _, strand := range []cache.Strand{cache.Forward, cache.Reverse} {
			ps, ok := groups[groupKey{chrom, strand}]
			if !ok {
				continue
			}
			sort.SliceStable(ps, func(i, j int) bool { return ps[i].Pos < ps[j].Pos })
			g.Batches = append(g.Batches, mapper.Batch{Chrom: chrom, Strand: strand, Positions: ps})
		}
	}

	return g
}
