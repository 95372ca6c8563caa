package cache

import (
	"sort"
)

// Groups is the raw registry layout: chromosome -> strand -> transcripts
// sorted ascending by Start.
type Groups map[string]map[Strand][]*Transcript

// Registry provides read access to transcripts grouped by chromosome and
// strand. It is built once, then shared read-only between mapping workers.
type Registry struct {
	groups Groups
	trees  map[string]map[Strand]*IntervalTree
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		groups: make(Groups),
		trees:  make(map[string]map[Strand]*IntervalTree),
	}
}

// NewRegistryFromGroups wraps previously built groups, e.g. a registry
// loaded from disk, and finalizes it.
func NewRegistryFromGroups(groups Groups) *Registry {
	r := NewRegistry()
	for chrom, byStrand := range groups {
		for strand, transcripts := range byStrand {
			for _, t := range transcripts {
				r.AddTranscript(chrom, strand, t)
			}
		}
	}
	r.Finalize()
	return r
}

// AddTranscript appends a transcript to its chromosome/strand group.
// Finalize must be called once all transcripts are added.
func (r *Registry) AddTranscript(chrom string, strand Strand, t *Transcript) {
	byStrand, ok := r.groups[chrom]
	if !ok {
		byStrand = make(map[Strand][]*Transcript)
		r.groups[chrom] = byStrand
	}
	byStrand[strand] = append(byStrand[strand], t)
}

// Finalize sorts every group ascending by genomic start, keeping insertion
// order among equal starts, and builds the overlap index.
func (r *Registry) Finalize() {
	for chrom, byStrand := range r.groups {
		trees := make(map[Strand]*IntervalTree, len(byStrand))
		for strand, transcripts := range byStrand {
			sort.SliceStable(transcripts, func(i, j int) bool {
				return transcripts[i].Start < transcripts[j].Start
			})
			trees[strand] = BuildIntervalTree(transcripts)
		}
		r.trees[chrom] = trees
	}
}

// Transcripts returns the sorted transcripts of one chromosome/strand group.
// The returned slice must not be modified.
func (r *Registry) Transcripts(chrom string, strand Strand) []*Transcript {
	return r.groups[chrom][strand]
}

// Groups returns the underlying grouping. It must not be modified.
func (r *Registry) Groups() Groups {
	return r.groups
}

// FindOverlaps returns the transcripts of a group whose genomic span
// contains pos, in registry order.
func (r *Registry) FindOverlaps(chrom string, strand Strand, pos int64) []*Transcript {
	tree, ok := r.trees[chrom][strand]
	if !ok {
		return nil
	}

	transcripts := r.groups[chrom][strand]
	var result []*Transcript
	for _, idx := range tree.FindOverlaps(pos) {
		result = append(result, transcripts[idx])
	}
	return result
}

// GetTranscript returns a specific transcript by ID, or nil if not found.
func (r *Registry) GetTranscript(id string) *Transcript {
	for _, byStrand := range r.groups {
		for _, transcripts := range byStrand {
			for _, t := range transcripts {
				if t.ID == id {
					return t
				}
			}
		}
	}
	return nil
}

// TranscriptCount returns the total number of transcripts in the registry.
func (r *Registry) TranscriptCount() int {
	count := 0
	for _, byStrand := range r.groups {
		for _, transcripts := range byStrand {
			count += len(transcripts)
		}
	}
	return count
}

// Chromosomes returns a sorted list of chromosomes in the registry.
func (r *Registry) Chromosomes() []string {
	chroms := make([]string, 0, len(r.groups))
	for chrom := range r.groups {
		chroms = append(chroms, chrom)
	}
	sort.Strings(chroms)
	return chroms
}
