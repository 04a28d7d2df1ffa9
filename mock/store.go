package mock

import (
	"context"

	"github.com/fwojciec/siteqa"
)

var (
	_ siteqa.CorpusStore = (*CorpusStore)(nil)
	_ siteqa.UnitStore   = (*UnitStore)(nil)
	_ siteqa.UnitFinder  = (*UnitFinder)(nil)
	_ siteqa.LinkGraph   = (*LinkGraph)(nil)
	_ siteqa.EdgeLister  = (*EdgeLister)(nil)
)

// CorpusStore is a mock implementation of siteqa.CorpusStore.
type CorpusStore struct {
	SaveRecordFn  func(ctx context.Context, rec *siteqa.CorpusRecord) error
	FindRecordFn  func(ctx context.Context, url string) (*siteqa.CorpusRecord, error)
	ListRecordsFn func(ctx context.Context) ([]*siteqa.CorpusRecord, error)
}

func (s *CorpusStore) SaveRecord(ctx context.Context, rec *siteqa.CorpusRecord) error {
	return s.SaveRecordFn(ctx, rec)
}

func (s *CorpusStore) FindRecord(ctx context.Context, url string) (*siteqa.CorpusRecord, error) {
	return s.FindRecordFn(ctx, url)
}

func (s *CorpusStore) ListRecords(ctx context.Context) ([]*siteqa.CorpusRecord, error) {
	return s.ListRecordsFn(ctx)
}

// UnitStore is a mock implementation of siteqa.UnitStore.
type UnitStore struct {
	SaveUnitsFn func(ctx context.Context, url string, units []siteqa.TextUnit) error
	FindUnitsFn func(ctx context.Context, url string) ([]siteqa.TextUnit, error)
	ListUnitsFn func(ctx context.Context) ([]siteqa.TextUnit, error)
}

func (s *UnitStore) SaveUnits(ctx context.Context, url string, units []siteqa.TextUnit) error {
	return s.SaveUnitsFn(ctx, url, units)
}

func (s *UnitStore) FindUnits(ctx context.Context, url string) ([]siteqa.TextUnit, error) {
	return s.FindUnitsFn(ctx, url)
}

func (s *UnitStore) ListUnits(ctx context.Context) ([]siteqa.TextUnit, error) {
	return s.ListUnitsFn(ctx)
}

// UnitFinder is a mock implementation of siteqa.UnitFinder.
type UnitFinder struct {
	FindUnitsFn func(ctx context.Context, url string) ([]siteqa.TextUnit, error)
}

func (f *UnitFinder) FindUnits(ctx context.Context, url string) ([]siteqa.TextUnit, error) {
	return f.FindUnitsFn(ctx, url)
}

// EdgeLister is a mock implementation of siteqa.EdgeLister.
type EdgeLister struct {
	EdgesFn func() []siteqa.LinkEdge
}

func (l *EdgeLister) Edges() []siteqa.LinkEdge {
	return l.EdgesFn()
}

// LinkGraph is a mock implementation of siteqa.LinkGraph.
type LinkGraph struct {
	LoadFn         func(ctx context.Context) error
	FlushFn        func(ctx context.Context) error
	HasVisitedFn   func(url string) bool
	RecordFn       func(url string) (siteqa.URLRecord, bool)
	RecordStatusFn func(rec siteqa.URLRecord) bool
	RecordEdgeFn   func(edge siteqa.LinkEdge) bool
	PendingFn      func() []siteqa.URLRecord
	RecordsFn      func() []siteqa.URLRecord
	EdgesFn        func() []siteqa.LinkEdge
	CloseFn        func() error
}

func (g *LinkGraph) Load(ctx context.Context) error {
	return g.LoadFn(ctx)
}

func (g *LinkGraph) Flush(ctx context.Context) error {
	return g.FlushFn(ctx)
}

func (g *LinkGraph) HasVisited(url string) bool {
	return g.HasVisitedFn(url)
}

func (g *LinkGraph) Record(url string) (siteqa.URLRecord, bool) {
	return g.RecordFn(url)
}

func (g *LinkGraph) RecordStatus(rec siteqa.URLRecord) bool {
	return g.RecordStatusFn(rec)
}

func (g *LinkGraph) RecordEdge(edge siteqa.LinkEdge) bool {
	return g.RecordEdgeFn(edge)
}

func (g *LinkGraph) Pending() []siteqa.URLRecord {
	return g.PendingFn()
}

func (g *LinkGraph) Records() []siteqa.URLRecord {
	return g.RecordsFn()
}

func (g *LinkGraph) Edges() []siteqa.LinkEdge {
	return g.EdgesFn()
}

func (g *LinkGraph) Close() error {
	return g.CloseFn()
}
