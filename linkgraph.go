package siteqa

import (
	"context"
	"time"
)

// LinkEdge is a directed hyperlink discovered while crawling.
// There is at most one edge per (Parent, Child) pair.
type LinkEdge struct {
	Parent       string    `json:"parent"`
	Child        string    `json:"child"`
	Anchor       string    `json:"anchor"`
	Depth        int       `json:"depth"`
	DiscoveredAt time.Time `json:"discoveredAt"`
}

// EdgeLister exposes the recorded edges of one or more link graphs.
type EdgeLister interface {
	Edges() []LinkEdge
}

// LinkGraph is the resumable crawl state for one domain. Mutations are
// held in memory until Flush persists them.
type LinkGraph interface {
	EdgeLister

	// Load replaces the in-memory state with what is persisted.
	Load(ctx context.Context) error

	// Flush persists every mutation made since the previous flush.
	// Returns ESTORE on failure; unflushed state is kept for a retry.
	Flush(ctx context.Context) error

	// HasVisited reports whether the URL has a terminal status.
	HasVisited(url string) bool

	// Record returns the stored record for the URL.
	Record(url string) (URLRecord, bool)

	// RecordStatus inserts or updates a URL record. It returns false when
	// the write was a no-op because nothing observable changed.
	RecordStatus(rec URLRecord) bool

	// RecordEdge adds an edge. It returns false if the edge already exists.
	RecordEdge(edge LinkEdge) bool

	// Pending returns the records still waiting to be fetched, in
	// ascending depth then URL order.
	Pending() []URLRecord

	// Records returns all URL records ordered by URL.
	Records() []URLRecord

	Close() error
}
