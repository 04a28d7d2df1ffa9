// Package bloom provides the crawl frontier's seen-URL set.
package bloom

import "github.com/bits-and-blooms/bloom/v3"

// Set is an exact URL set fronted by a Bloom filter. Most URLs a crawler
// extracts were never seen, and the filter answers those without
// touching the map. Set is not safe for concurrent use.
type Set struct {
	filter *bloom.BloomFilter
	exact  map[string]struct{}
}

// NewSet creates a Set sized for n expected URLs at the given filter
// false positive rate. Exceeding n only costs speed, never accuracy.
func NewSet(n uint, fpRate float64) *Set {
	return &Set{
		filter: bloom.NewWithEstimates(n, fpRate),
		exact:  make(map[string]struct{}, n),
	}
}

// Add inserts url and reports whether it was new.
func (s *Set) Add(url string) bool {
	if s.Contains(url) {
		return false
	}
	s.filter.AddString(url)
	s.exact[url] = struct{}{}
	return true
}

// Contains reports whether url was added. It never returns a false
// positive.
func (s *Set) Contains(url string) bool {
	if !s.filter.TestString(url) {
		return false
	}
	_, ok := s.exact[url]
	return ok
}

// Len returns the number of URLs in the set.
func (s *Set) Len() int {
	return len(s.exact)
}
