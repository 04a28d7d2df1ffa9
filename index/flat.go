// Package index builds and searches the vector index over cleaned units.
package index

import (
	"cmp"
	"container/heap"
	"math"
	"slices"

	"github.com/fwojciec/siteqa"
)

// Compile-time interface verification.
var _ siteqa.VectorIndex = (*Flat)(nil)

// Flat is an exact cosine-similarity index. It is immutable once built
// and safe for concurrent searches.
type Flat struct {
	entries []siteqa.IndexEntry
	norms   []float64
	dim     int
}

// Build creates a Flat index over entries. All vectors must share one
// non-zero dimension; otherwise Build returns EINDEX.
func Build(entries []siteqa.IndexEntry) (*Flat, error) {
	f := &Flat{
		entries: slices.Clone(entries),
		norms:   make([]float64, len(entries)),
	}
	for i, e := range entries {
		if len(e.Vector) == 0 {
			return nil, siteqa.Errorf(siteqa.EINDEX, "entry %d has an empty vector", e.ID)
		}
		if i == 0 {
			f.dim = len(e.Vector)
		} else if len(e.Vector) != f.dim {
			return nil, siteqa.Errorf(siteqa.EINDEX, "entry %d has dimension %d, want %d", e.ID, len(e.Vector), f.dim)
		}
		f.norms[i] = norm(e.Vector)
	}
	return f, nil
}

// Len returns the number of indexed entries.
func (f *Flat) Len() int {
	return len(f.entries)
}

// Dimension returns the vector dimension, or 0 for an empty index.
func (f *Flat) Dimension() int {
	return f.dim
}

// Entries returns the indexed entries in ID order.
func (f *Flat) Entries() []siteqa.IndexEntry {
	return slices.Clone(f.entries)
}

// Search returns the k entries most similar to query, best first. Equal
// scores are ordered by ascending entry ID so results are deterministic.
// A query of the wrong dimension or zero length matches nothing.
func (f *Flat) Search(query []float32, k int) []siteqa.Hit {
	if k <= 0 || len(query) != f.dim || f.dim == 0 {
		return nil
	}
	qNorm := norm(query)
	if qNorm == 0 {
		return nil
	}

	h := &hitHeap{}
	for i, e := range f.entries {
		hit := siteqa.Hit{Entry: e, Score: cosine(query, e.Vector, qNorm, f.norms[i])}
		if h.Len() < k {
			heap.Push(h, hit)
		} else if worse((*h)[0], hit) {
			(*h)[0] = hit
			heap.Fix(h, 0)
		}
	}

	hits := make([]siteqa.Hit, h.Len())
	for i := len(hits) - 1; i >= 0; i-- {
		hits[i] = heap.Pop(h).(siteqa.Hit)
	}
	return hits
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(a, b []float32, aNorm, bNorm float64) float64 {
	if aNorm == 0 || bNorm == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (aNorm * bNorm)
}

// worse reports whether a ranks below b.
func worse(a, b siteqa.Hit) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return cmp.Less(b.Entry.ID, a.Entry.ID)
}

// hitHeap is a min-heap with the worst hit at the root.
type hitHeap []siteqa.Hit

func (h hitHeap) Len() int           { return len(h) }
func (h hitHeap) Less(i, j int) bool { return worse(h[i], h[j]) }
func (h hitHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *hitHeap) Push(x any)        { *h = append(*h, x.(siteqa.Hit)) }
func (h *hitHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
