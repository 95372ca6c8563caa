package mapper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/inodb/txmap/internal/cache"
)

// transcriptA and transcriptB are the overlapping pair used throughout:
// A is spliced with TSL 2, B is a single exon with TSL 1.
func transcriptA() *cache.Transcript {
	return &cache.Transcript{
		ID: "A", Chrom: "chr1", Strand: cache.Forward, Start: 100, End: 250,
		TSL: 2, ExonicLength: 101,
		Exons: []cache.Exon{{Start: 100, End: 150}, {Start: 200, End: 250}},
	}
}

func transcriptB() *cache.Transcript {
	return &cache.Transcript{
		ID: "B", Chrom: "chr1", Strand: cache.Forward, Start: 90, End: 300,
		TSL: 1, ExonicLength: 211,
		Exons: []cache.Exon{{Start: 90, End: 300}},
	}
}

func TestMapGroup_LowerTSLWins(t *testing.T) {
	m := New()
	res := m.MapGroup(
		[]*cache.Transcript{transcriptB(), transcriptA()},
		[]Position{{Pos: 220, Values: []float64{0.5, 10}}},
	)

	require.Len(t, res.Rows, 1)
	row := res.Rows[0]
	assert.Equal(t, "B", row.TranscriptID)
	assert.Equal(t, int64(131), row.Offset)
	assert.False(t, row.Spliced)
	assert.Equal(t, []float64{0.5, 10}, row.Values)
	assert.Equal(t, int64(220), row.GenomicPos)
	assert.Zero(t, res.Unmatched)
	assert.Equal(t, 1, res.Total)
}

func TestMapGroup_LowerTSLWinsRegardlessOfOrder(t *testing.T) {
	a := transcriptA()
	a.Start = 80 // A now sorts first
	res := New().MapGroup([]*cache.Transcript{a, transcriptB()}, []Position{{Pos: 220}})

	require.Len(t, res.Rows, 1)
	assert.Equal(t, "B", res.Rows[0].TranscriptID)
}

func TestMapGroup_EqualTSLLongerWins(t *testing.T) {
	long := transcriptB()
	long.TSL = 2
	short := transcriptA()

	for name, order := range map[string][]*cache.Transcript{
		"long first":  {long, short},
		"short first": {func() *cache.Transcript { s := transcriptA(); s.Start = 80; return s }(), long},
	} {
		t.Run(name, func(t *testing.T) {
			res := New().MapGroup(order, []Position{{Pos: 220}})
			require.Len(t, res.Rows, 1)
			assert.Equal(t, "B", res.Rows[0].TranscriptID)
		})
	}
}

func TestMapGroup_EqualTSLEqualLengthLaterWins(t *testing.T) {
	first := &cache.Transcript{ID: "T1", Start: 100, End: 200, TSL: 1, ExonicLength: 101,
		Strand: cache.Forward, Exons: []cache.Exon{{Start: 100, End: 200}}}
	second := &cache.Transcript{ID: "T2", Start: 110, End: 210, TSL: 1, ExonicLength: 101,
		Strand: cache.Forward, Exons: []cache.Exon{{Start: 110, End: 210}}}

	res := New().MapGroup([]*cache.Transcript{first, second}, []Position{{Pos: 150}})
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "T2", res.Rows[0].TranscriptID)
	assert.Equal(t, int64(41), res.Rows[0].Offset)
}

func TestMoreProminent(t *testing.T) {
	tests := []struct {
		name      string
		candidate cache.Transcript
		current   cache.Transcript
		want      bool
	}{
		{"lower tsl shorter", cache.Transcript{TSL: 1, ExonicLength: 10}, cache.Transcript{TSL: 2, ExonicLength: 500}, true},
		{"higher tsl longer", cache.Transcript{TSL: 3, ExonicLength: 500}, cache.Transcript{TSL: 2, ExonicLength: 10}, false},
		{"equal tsl longer", cache.Transcript{TSL: 2, ExonicLength: 500}, cache.Transcript{TSL: 2, ExonicLength: 10}, true},
		{"equal tsl shorter", cache.Transcript{TSL: 2, ExonicLength: 10}, cache.Transcript{TSL: 2, ExonicLength: 500}, false},
		{"equal tsl equal length", cache.Transcript{TSL: 2, ExonicLength: 10}, cache.Transcript{TSL: 2, ExonicLength: 10}, true},
		{"known beats NA", cache.Transcript{TSL: 5}, cache.Transcript{TSL: cache.TSLUnknown, ExonicLength: 900}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MoreProminent(&tt.candidate, &tt.current))
		})
	}
}

func TestMapGroup_ExonBoundaryIsNotOverlap(t *testing.T) {
	a := transcriptA()
	res := New().MapGroup([]*cache.Transcript{a}, []Position{{Pos: 150}, {Pos: 175}, {Pos: 200}})

	assert.Empty(t, res.Rows)
	assert.Equal(t, 3, res.Unmatched)
}

func TestMapGroup_SplicedOffsetSecondExon(t *testing.T) {
	res := New().MapGroup([]*cache.Transcript{transcriptA()}, []Position{{Pos: 220}})
	require.Len(t, res.Rows, 1)
	assert.Equal(t, int64(51+21), res.Rows[0].Offset)
	assert.True(t, res.Rows[0].Spliced)
}

func TestMapGroup_ReverseStrand(t *testing.T) {
	c := &cache.Transcript{
		ID: "C", Chrom: "chr1", Strand: cache.Reverse, Start: 1000, End: 1400,
		TSL: 1, ExonicLength: 202,
		Exons: []cache.Exon{{Start: 1300, End: 1400}, {Start: 1000, End: 1100}},
	}
	res := New().MapGroup([]*cache.Transcript{c, downstream(cache.Reverse)}, []Position{{Pos: 1050}, {Pos: 1350}})

	require.Len(t, res.Rows, 2)
	assert.Equal(t, int64(101+51), res.Rows[0].Offset)
	assert.Equal(t, int64(51), res.Rows[1].Offset)
	assert.True(t, res.Rows[0].Spliced)
}

func TestMapGroup_RewindToFirstMatch(t *testing.T) {
	c := &cache.Transcript{ID: "C", Strand: cache.Forward, Start: 400, End: 500, TSL: 1,
		ExonicLength: 101, Exons: []cache.Exon{{Start: 400, End: 500}}}
	transcripts := []*cache.Transcript{transcriptB(), transcriptA(), c}
	positions := []Position{{Pos: 50}, {Pos: 120}, {Pos: 220}, {Pos: 260}, {Pos: 450}, {Pos: 1000}}

	res := New().MapGroup(transcripts, positions)

	var got []string
	var offsets []int64
	for _, r := range res.Rows {
		got = append(got, r.TranscriptID)
		offsets = append(offsets, r.Offset)
	}
	assert.Equal(t, []string{"B", "B", "B", "C"}, got)
	assert.Equal(t, []int64{31, 131, 171, 51}, offsets)
	assert.Equal(t, 2, res.Unmatched, "50 precedes every transcript, 1000 follows them")
	assert.Equal(t, 6, res.Total)
}

// downstream is a transcript far past every test position. It keeps the
// sweep from running off the end of a group.
func downstream(strand cache.Strand) *cache.Transcript {
	return &cache.Transcript{ID: "Z", Strand: strand, Start: 9000, End: 9100, TSL: 1,
		ExonicLength: 101, Exons: []cache.Exon{{Start: 9000, End: 9100}}}
}

func TestMapGroup_StopsAfterLastTranscript(t *testing.T) {
	res := New().MapGroup([]*cache.Transcript{transcriptB()}, []Position{{Pos: 120}, {Pos: 220}, {Pos: 299}})

	require.Len(t, res.Rows, 1)
	assert.Equal(t, int64(31), res.Rows[0].Offset)
	assert.Equal(t, 2, res.Unmatched, "220 and 299 lie in B but follow the last flush")
	assert.Equal(t, 3, res.Total)
}

func TestMapGroup_DownstreamTranscriptKeepsSweepGoing(t *testing.T) {
	res := New().MapGroup(
		[]*cache.Transcript{transcriptB(), downstream(cache.Forward)},
		[]Position{{Pos: 120}, {Pos: 220}, {Pos: 299}},
	)

	require.Len(t, res.Rows, 3)
	assert.Equal(t, int64(210), res.Rows[2].Offset)
	assert.Zero(t, res.Unmatched)
}

func TestMapGroup_Empty(t *testing.T) {
	res := New().MapGroup(nil, []Position{{Pos: 1}, {Pos: 2}})
	assert.Equal(t, 2, res.Unmatched)
	assert.Empty(t, res.Rows)

	res = New().MapGroup([]*cache.Transcript{transcriptA()}, nil)
	assert.Zero(t, res.Total)
	assert.Empty(t, res.Rows)
}

func TestSweep_Transitions(t *testing.T) {
	s := newSweep([]*cache.Transcript{transcriptB()}, []Position{{Pos: 50}, {Pos: 120}, {Pos: 400}}, zap.NewNop())

	var trace []transition
	for !s.done() {
		trace = append(trace, s.step())
	}

	assert.Equal(t, []transition{advancePosition, advanceTranscript, flush}, trace)
	assert.Len(t, s.res.Rows, 1)
	assert.Equal(t, 2, s.res.Unmatched)
}

func TestSweep_NoWindowExhausted(t *testing.T) {
	s := newSweep([]*cache.Transcript{transcriptB()}, []Position{{Pos: 400}, {Pos: 500}}, zap.NewNop())

	var trace []transition
	for !s.done() {
		trace = append(trace, s.step())
	}

	assert.Equal(t, []transition{advanceTranscript, exhausted}, trace)
	assert.Empty(t, s.res.Rows)
	assert.Equal(t, 2, s.res.Unmatched)
}

func TestSweep_FlushWithoutExonIsReported(t *testing.T) {
	withExon := &cache.Transcript{ID: "T0", Strand: cache.Forward, Start: 10, End: 20,
		Exons: []cache.Exon{{Start: 10, End: 20}}}
	noExon := &cache.Transcript{ID: "T1", Strand: cache.Forward, Start: 10, End: 20}

	s := newSweep([]*cache.Transcript{withExon, noExon}, []Position{{Pos: 15}}, zap.NewNop())
	s.win = window{state: windowOpen, first: 0, prominent: 1}
	s.t = 2

	assert.Equal(t, flush, s.step())
	assert.Empty(t, s.res.Rows)
	assert.Equal(t, 1, s.res.ExonNotFound)
	assert.Zero(t, s.res.Unmatched)
	assert.Equal(t, 0, s.t, "cursor rewinds to the first match")
	assert.Equal(t, noWindow, s.win.state)
	assert.True(t, s.done())
}

func TestWindow_Offer(t *testing.T) {
	transcripts := []*cache.Transcript{transcriptA(), transcriptB()}
	var w window

	w.offer(0, transcripts)
	assert.Equal(t, windowOpen, w.state)
	assert.Equal(t, 0, w.first)
	assert.Equal(t, 0, w.prominent)

	w.offer(1, transcripts)
	assert.Equal(t, 0, w.first)
	assert.Equal(t, 1, w.prominent)

	first, prominent := w.close()
	assert.Equal(t, 0, first)
	assert.Equal(t, 1, prominent)
	assert.Equal(t, noWindow, w.state)
}

func testRegistry() *cache.Registry {
	reg := cache.NewRegistry()
	reg.AddTranscript("chr1", cache.Forward, transcriptA())
	reg.AddTranscript("chr1", cache.Forward, transcriptB())
	reg.AddTranscript("chr1", cache.Reverse, &cache.Transcript{
		ID: "C", Chrom: "chr1", Strand: cache.Reverse, Start: 1000, End: 1400, TSL: 1,
		ExonicLength: 202, Exons: []cache.Exon{{Start: 1300, End: 1400}, {Start: 1000, End: 1100}},
	})
	reg.AddTranscript("chr1", cache.Reverse, downstream(cache.Reverse))
	reg.Finalize()
	return reg
}

func TestMapBatch_UnknownGroup(t *testing.T) {
	res := New().MapBatch(testRegistry(), Batch{Chrom: "chr9", Strand: cache.Forward, Positions: []Position{{Pos: 5}}})
	assert.Equal(t, "chr9", res.Chrom)
	assert.Equal(t, cache.Forward, res.Strand)
	assert.Equal(t, 1, res.Unmatched)
}

func TestMapAll_OrderedResults(t *testing.T) {
	reg := testRegistry()
	batches := []Batch{
		{Chrom: "chr1", Strand: cache.Forward, Positions: []Position{{Pos: 220, Values: []float64{0.5, 10}}}},
		{Chrom: "chr1", Strand: cache.Reverse, Positions: []Position{{Pos: 1050}, {Pos: 1350}}},
		{Chrom: "chr2", Strand: cache.Forward, Positions: []Position{{Pos: 10}}},
	}

	var got []*Result
	err := New().MapAll(context.Background(), reg, batches, 3, func(r *Result) error {
		got = append(got, r)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, cache.Forward, got[0].Strand)
	assert.Equal(t, "B", got[0].Rows[0].TranscriptID)
	assert.Equal(t, cache.Reverse, got[1].Strand)
	assert.Len(t, got[1].Rows, 2)
	assert.Equal(t, "chr2", got[2].Chrom)
	assert.Equal(t, 1, got[2].Unmatched)
}

func TestMapAll_CallbackError(t *testing.T) {
	batches := make([]Batch, 20)
	for i := range batches {
		batches[i] = Batch{Chrom: "chr1", Strand: cache.Forward, Positions: []Position{{Pos: 220}}}
	}

	boom := errors.New("boom")
	calls := 0
	err := New().MapAll(context.Background(), testRegistry(), batches, 2, func(r *Result) error {
		calls++
		if calls == 3 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestMapAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New().MapAll(ctx, testRegistry(), []Batch{{Chrom: "chr1", Strand: cache.Forward}}, 1, func(r *Result) error {
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOrderedCollect(t *testing.T) {
	results := make(chan WorkResult, 3)
	results <- WorkResult{Seq: 2, Result: &Result{Chrom: "c"}}
	results <- WorkResult{Seq: 0, Result: &Result{Chrom: "a"}}
	results <- WorkResult{Seq: 1, Result: &Result{Chrom: "b"}}
	close(results)

	var order []string
	require.NoError(t, OrderedCollect(results, func(r WorkResult) error {
		order = append(order, r.Result.Chrom)
		return nil
	}))
	assert.Equal(t, []string{"a", "b", "c"}, order)
}
