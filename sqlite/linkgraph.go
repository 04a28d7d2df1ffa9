package sqlite

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/fwojciec/siteqa"
)

// Compile-time interface verification.
var _ siteqa.LinkGraph = (*LinkGraph)(nil)

// LinkGraph implements siteqa.LinkGraph on a per-domain SQLite database.
//
// All state lives in memory. Mutations mark rows dirty and Flush writes
// only the dirty rows, in a single transaction.
type LinkGraph struct {
	db *DB

	mu       sync.Mutex
	records  map[string]siteqa.URLRecord
	edges    []siteqa.LinkEdge
	edgeSet  map[edgeKey]struct{}
	dirty    map[string]struct{}
	newEdges int // edges[len(edges)-newEdges:] are not yet persisted
}

type edgeKey struct {
	parent, child string
}

// NewLinkGraph creates a LinkGraph backed by db. Call Load before use to
// pick up state from a previous run.
func NewLinkGraph(db *DB) *LinkGraph {
	return &LinkGraph{
		db:      db,
		records: make(map[string]siteqa.URLRecord),
		edgeSet: make(map[edgeKey]struct{}),
		dirty:   make(map[string]struct{}),
	}
}

// Load replaces the in-memory state with the persisted state.
func (g *LinkGraph) Load(ctx context.Context) error {
	records := make(map[string]siteqa.URLRecord)
	rows, err := g.db.QueryContext(ctx, `
		SELECT url, status, kind, depth, fetched_at, size, content_hash, method, error_code, error
		FROM urls
	`)
	if err != nil {
		return siteqa.WrapError(siteqa.ESTORE, err, "loading url records: %v", err)
	}
	for rows.Next() {
		var rec siteqa.URLRecord
		var status, kind, method, fetchedAt string
		if err := rows.Scan(&rec.URL, &status, &kind, &rec.Depth, &fetchedAt,
			&rec.Size, &rec.ContentHash, &method, &rec.ErrorCode, &rec.Error); err != nil {
			rows.Close()
			return siteqa.WrapError(siteqa.ESTORE, err, "loading url records: %v", err)
		}
		if rec.FetchedAt, err = parseRFC3339(fetchedAt, "fetched_at"); err != nil {
			rows.Close()
			return siteqa.WrapError(siteqa.ESTORE, err, "loading url records: %v", err)
		}
		rec.Status = siteqa.URLStatus(status)
		rec.Kind = siteqa.ResourceKind(kind)
		rec.Method = siteqa.FetchMethod(method)
		records[rec.URL] = rec
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return siteqa.WrapError(siteqa.ESTORE, err, "loading url records: %v", err)
	}
	rows.Close()

	var edges []siteqa.LinkEdge
	edgeSet := make(map[edgeKey]struct{})
	rows, err = g.db.QueryContext(ctx, `
		SELECT parent, child, anchor, depth, discovered_at
		FROM edges
		ORDER BY seq ASC
	`)
	if err != nil {
		return siteqa.WrapError(siteqa.ESTORE, err, "loading edges: %v", err)
	}
	defer rows.Close()
	for rows.Next() {
		var e siteqa.LinkEdge
		var discoveredAt string
		if err := rows.Scan(&e.Parent, &e.Child, &e.Anchor, &e.Depth, &discoveredAt); err != nil {
			return siteqa.WrapError(siteqa.ESTORE, err, "loading edges: %v", err)
		}
		if e.DiscoveredAt, err = parseRFC3339(discoveredAt, "discovered_at"); err != nil {
			return siteqa.WrapError(siteqa.ESTORE, err, "loading edges: %v", err)
		}
		edges = append(edges, e)
		edgeSet[edgeKey{e.Parent, e.Child}] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return siteqa.WrapError(siteqa.ESTORE, err, "loading edges: %v", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.records = records
	g.edges = edges
	g.edgeSet = edgeSet
	g.dirty = make(map[string]struct{})
	g.newEdges = 0
	return nil
}

// Flush writes dirty records and new edges in one transaction.
// On failure nothing is marked clean, so the next Flush retries.
func (g *LinkGraph) Flush(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.dirty) == 0 && g.newEdges == 0 {
		return nil
	}

	tx, err := g.db.BeginTx(ctx)
	if err != nil {
		return siteqa.WrapError(siteqa.ESTORE, err, "flushing link graph: %v", err)
	}
	defer tx.Rollback()

	for url := range g.dirty {
		rec := g.records[url]
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO urls (url, status, kind, depth, fetched_at, size, content_hash, method, error_code, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(url) DO UPDATE SET
				status = excluded.status,
				kind = excluded.kind,
				depth = excluded.depth,
				fetched_at = excluded.fetched_at,
				size = excluded.size,
				content_hash = excluded.content_hash,
				method = excluded.method,
				error_code = excluded.error_code,
				error = excluded.error
		`, rec.URL, string(rec.Status), string(rec.Kind), rec.Depth, formatTime(rec.FetchedAt), rec.Size,
			rec.ContentHash, string(rec.Method), rec.ErrorCode, rec.Error); err != nil {
			return siteqa.WrapError(siteqa.ESTORE, err, "flushing url %s: %v", url, err)
		}
	}

	for _, e := range g.edges[len(g.edges)-g.newEdges:] {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO edges (parent, child, anchor, depth, discovered_at)
			VALUES (?, ?, ?, ?, ?)
		`, e.Parent, e.Child, e.Anchor, e.Depth, formatTime(e.DiscoveredAt)); err != nil {
			return siteqa.WrapError(siteqa.ESTORE, err, "flushing edge %s -> %s: %v", e.Parent, e.Child, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return siteqa.WrapError(siteqa.ESTORE, err, "committing link graph: %v", err)
	}

	g.dirty = make(map[string]struct{})
	g.newEdges = 0
	return nil
}

// HasVisited reports whether the URL has any status other than pending.
func (g *LinkGraph) HasVisited(url string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec, ok := g.records[url]
	return ok && rec.Status.Terminal()
}

// Record returns the record for the URL.
func (g *LinkGraph) Record(url string) (siteqa.URLRecord, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec, ok := g.records[url]
	return rec, ok
}

// RecordStatus stores rec. Re-recording a fetched URL whose content hash
// did not change is a no-op and returns false, as is writing an identical
// record.
func (g *LinkGraph) RecordStatus(rec siteqa.URLRecord) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if prev, ok := g.records[rec.URL]; ok {
		if prev == rec || unchangedFetch(prev, rec) {
			return false
		}
	}
	g.records[rec.URL] = rec
	g.dirty[rec.URL] = struct{}{}
	return true
}

func unchangedFetch(prev, rec siteqa.URLRecord) bool {
	return prev.Status == siteqa.StatusFetched &&
		rec.Status == siteqa.StatusFetched &&
		prev.ContentHash == rec.ContentHash &&
		prev.ErrorCode == rec.ErrorCode &&
		prev.Method == rec.Method
}

// RecordEdge adds the edge unless one already exists for the same
// parent and child; the first anchor text wins.
func (g *LinkGraph) RecordEdge(edge siteqa.LinkEdge) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := edgeKey{edge.Parent, edge.Child}
	if _, ok := g.edgeSet[key]; ok {
		return false
	}
	g.edgeSet[key] = struct{}{}
	g.edges = append(g.edges, edge)
	g.newEdges++
	return true
}

// Pending returns pending records ordered by depth, then URL.
func (g *LinkGraph) Pending() []siteqa.URLRecord {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []siteqa.URLRecord
	for _, rec := range g.records {
		if rec.Status == siteqa.StatusPending {
			out = append(out, rec)
		}
	}
	slices.SortFunc(out, func(a, b siteqa.URLRecord) int {
		if c := cmp.Compare(a.Depth, b.Depth); c != 0 {
			return c
		}
		return cmp.Compare(a.URL, b.URL)
	})
	return out
}

// Records returns every record ordered by URL.
func (g *LinkGraph) Records() []siteqa.URLRecord {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]siteqa.URLRecord, 0, len(g.records))
	for _, rec := range g.records {
		out = append(out, rec)
	}
	slices.SortFunc(out, func(a, b siteqa.URLRecord) int {
		return cmp.Compare(a.URL, b.URL)
	})
	return out
}

// Edges returns every edge in discovery order.
func (g *LinkGraph) Edges() []siteqa.LinkEdge {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.edges)
}

// Close closes the underlying database.
func (g *LinkGraph) Close() error {
	return g.db.Close()
}
