package cache

import "sort"

// IntervalTree provides O(log n + k) overlap queries over one
// chromosome/strand group using a sorted-slice approach.
// It is built once from a sorted group and never modified.
type IntervalTree struct {
	intervals []interval
	maxEnd    []int64 // maxEnd[i] = max(End) for intervals[0:i+1]
}

type interval struct {
	start int64
	end   int64
	idx   int // index into the group slice
}

// BuildIntervalTree creates an interval tree over transcripts, which must be
// sorted ascending by Start.
func BuildIntervalTree(transcripts []*Transcript) *IntervalTree {
	if len(transcripts) == 0 {
		return &IntervalTree{}
	}

	intervals := make([]interval, len(transcripts))
	for i, t := range transcripts {
		intervals[i] = interval{start: t.Start, end: t.End, idx: i}
	}

	// Prefix-max array: maxEnd[i] = max(end) for intervals[:i+1]
	maxEnd := make([]int64, len(intervals))
	maxEnd[0] = intervals[0].end
	for i := 1; i < len(intervals); i++ {
		maxEnd[i] = max(maxEnd[i-1], intervals[i].end)
	}

	return &IntervalTree{intervals: intervals, maxEnd: maxEnd}
}

// FindOverlaps returns the group indices, ascending, of every transcript
// whose [Start, End] range contains pos.
func (t *IntervalTree) FindOverlaps(pos int64) []int {
	if len(t.intervals) == 0 {
		return nil
	}

	// hi is the first index with start > pos; candidates are [0, hi).
	hi := sort.Search(len(t.intervals), func(i int) bool {
		return t.intervals[i].start > pos
	})

	var result []int
	for i := hi - 1; i >= 0; i-- {
		// No interval in [0, i] reaches pos.
		if t.maxEnd[i] < pos {
			break
		}
		if t.intervals[i].end >= pos {
			result = append(result, t.intervals[i].idx)
		}
	}

	sort.Ints(result)
	return result
}
