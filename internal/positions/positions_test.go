package positions

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/txmap/internal/cache"
	"github.com/inodb/txmap/internal/mapper"
)

func TestRead(t *testing.T) {
	input := "chromosome,strand,position,rsr,total_reads\n" +
		"chr1,+,220,0.5,10\n" +
		"chrX,-,17,0.25,3\n"

	records, err := Read(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, &Record{Chromosome: "chr1", Strand: "+", Position: 220, RSR: 0.5, TotalReads: 10}, records[0])
	assert.Equal(t, "chrX", records[1].Chromosome)
	assert.Equal(t, int64(17), records[1].Position)
}

func TestRead_ColumnOrderIndependent(t *testing.T) {
	input := "position,total_reads,chromosome,rsr,strand\n" +
		"220,10,chr1,0.5,+\n"

	records, err := Read(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(220), records[0].Position)
	assert.Equal(t, "+", records[0].Strand)
}

func TestRead_BadPosition(t *testing.T) {
	input := "chromosome,strand,position,rsr,total_reads\n" +
		"chr1,+,abc,0.5,10\n"

	_, err := Read(strings.NewReader(input))
	assert.Error(t, err)
}

func TestGroup(t *testing.T) {
	records := []*Record{
		{Chromosome: "chr2", Strand: "-", Position: 30, RSR: 1, TotalReads: 1},
		{Chromosome: "chr1", Strand: "+", Position: 20, RSR: 2, TotalReads: 2},
		{Chromosome: "chr2", Strand: "+", Position: 10, RSR: 3, TotalReads: 3},
		{Chromosome: "2", Strand: "-", Position: 5, RSR: 4, TotalReads: 4},
		{Chromosome: "chr1", Strand: "+", Position: 20, RSR: 5, TotalReads: 5},
		{Chromosome: "GL000009.2", Strand: "+", Position: 1},
		{Chromosome: "chr1", Strand: ".", Position: 1},
	}

	g := Group(records)

	assert.Equal(t, 1, g.SkippedChromosome)
	assert.Equal(t, 1, g.SkippedStrand)
	assert.Equal(t, 5, g.Total())

	require.Len(t, g.Batches, 3)
	assert.Equal(t, "chr2", g.Batches[0].Chrom)
	assert.Equal(t, cache.Forward, g.Batches[0].Strand)
	assert.Equal(t, "chr2", g.Batches[1].Chrom)
	assert.Equal(t, cache.Reverse, g.Batches[1].Strand)
	assert.Equal(t, []mapper.Position{
		{Pos: 5, Values: []float64{4, 4}},
		{Pos: 30, Values: []float64{1, 1}},
	}, g.Batches[1].Positions)

	// equal positions keep input order
	assert.Equal(t, "chr1", g.Batches[2].Chrom)
	assert.Equal(t, []float64{2, 2}, g.Batches[2].Positions[0].Values)
	assert.Equal(t, []float64{5, 5}, g.Batches[2].Positions[1].Values)
}

func TestReadFile_Testdata(t *testing.T) {
	records, err := ReadFile(context.Background(), "../../testdata/positions.csv")
	require.NoError(t, err)
	assert.Len(t, records, 10)

	g := Group(records)
	assert.Equal(t, 1, g.SkippedChromosome)
	require.Len(t, g.Batches, 4)

	var got []string
	for _, b := range g.Batches {
		got = append(got, b.Chrom+b.Strand.String())
	}
	assert.Equal(t, []string{"chr1+", "chr1-", "chr2+", "chr5+"}, got)

	var pos []int64
	for _, p := range g.Batches[0].Positions {
		pos = append(pos, p.Pos)
	}
	assert.Equal(t, []int64{50, 130, 220, 260}, pos)
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(context.Background(), "../../testdata/does-not-exist.csv")
	assert.Error(t, err)
}
