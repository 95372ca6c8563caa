package mapper

import "github.com/inodb/txmap/internal/cache"

// windowState is the state of the candidate window for the current position.
type windowState int

const (
	noWindow windowState = iota
	windowOpen
)

// window tracks, for the position under the cursor, the first transcript
// found with an exon strictly containing it and the most prominent such
// transcript seen so far. Both are indices into the group's transcript list.
type window struct {
	state     windowState
	first     int
	prominent int
}

// offer records that transcripts[idx] has an exon containing the current
// position. The first offer opens the window; later offers go through the
// prominence tie-break.
func (w *window) offer(idx int, transcripts []*cache.Transcript) {
	if w.state == noWindow {
		w.state = windowOpen
		w.first = idx
		w.prominent = idx
		return
	}
	if MoreProminent(transcripts[idx], transcripts[w.prominent]) {
		w.prominent = idx
	}
}

// close returns the window bounds and resets it to noWindow.
func (w *window) close() (first, prominent int) {
	first, prominent = w.first, w.prominent
	*w = window{}
	return first, prominent
}

// MoreProminent reports whether candidate should replace current as the
// prominent transcript. A lower support level always wins. With equal
// support levels the candidate wins unless its exonic length is shorter, so
// later transcripts take over ties in length.
func MoreProminent(candidate, current *cache.Transcript) bool {
	if candidate.TSL != current.TSL {
		return candidate.TSL < current.TSL
	}
	return candidate.ExonicLength >= current.ExonicLength
}
