package mapper

import (
	"go.uber.org/zap"

	"github.com/inodb/txmap/internal/cache"
)

// transition names what a single sweep step did.
type transition int

const (
	advanceTranscript transition = iota // transcript cursor moved forward
	advancePosition                     // position left unmatched, position cursor moved
	flush                               // window closed, row emitted or dropped, transcript cursor rewound
	exhausted                           // transcripts ran out; remaining positions unmatched
)

func (t transition) String() string {
	switch t {
	case advanceTranscript:
		return "advance_transcript"
	case advancePosition:
		return "advance_position"
	case flush:
		return "flush"
	case exhausted:
		return "exhausted"
	}
	return "unknown"
}

// sweep is the two-pointer walk over one group's transcripts and positions.
type sweep struct {
	transcripts []*cache.Transcript
	positions   []Position
	t, p        int
	win         window
	res         *Result
	logger      *zap.Logger
}

func newSweep(transcripts []*cache.Transcript, positions []Position, logger *zap.Logger) *sweep {
	return &sweep{
		transcripts: transcripts,
		positions:   positions,
		res:         &Result{Total: len(positions)},
		logger:      logger,
	}
}

func (s *sweep) done() bool {
	return s.p >= len(s.positions)
}

// step performs one transition. It must not be called once done.
func (s *sweep) step() transition {
	pos := s.positions[s.p].Pos

	// Out of transcripts: close an open window, then stop. Positions after
	// the last transcript are never revisited.
	if s.t >= len(s.transcripts) {
		if s.win.state == windowOpen {
			s.flush()
			s.res.Unmatched += len(s.positions) - s.p
			s.p = len(s.positions)
			return flush
		}
		s.res.Unmatched += len(s.positions) - s.p
		s.p = len(s.positions)
		return exhausted
	}

	tr := s.transcripts[s.t]

	// No later transcript can start at or before pos.
	if tr.Start > pos {
		if s.win.state == windowOpen {
			s.flush()
			return flush
		}
		s.res.Unmatched++
		s.p++
		return advancePosition
	}

	if tr.End < pos {
		s.t++
		return advanceTranscript
	}

	if tr.HasExonContaining(pos) {
		s.win.offer(s.t, s.transcripts)
	}
	s.t++
	return advanceTranscript
}

// flush emits the row for the current position on the prominent transcript,
// rewinds the transcript cursor to the first match and moves to the next
// position.
func (s *sweep) flush() {
	first, prominent := s.win.close()
	p := s.positions[s.p]
	tr := s.transcripts[prominent]

	if offset, ok := tr.SplicedOffset(p.Pos); ok {
		s.res.Rows = append(s.res.Rows, Row{
			TranscriptID: tr.ID,
			GenomicPos:   p.Pos,
			Offset:       offset,
			Values:       p.Values,
			Spliced:      tr.IsSpliced(),
		})
	} else {
		s.res.ExonNotFound++
		s.logger.Warn("exon not found for prominent transcript",
			zap.String("transcript", tr.ID),
			zap.String("chrom", tr.Chrom),
			zap.Stringer("strand", tr.Strand),
			zap.Int64("pos", p.Pos))
	}

	s.t = first
	s.p++
}
