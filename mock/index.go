package mock

import (
	"context"

	"github.com/fwojciec/siteqa"
)

var (
	_ siteqa.Embedder    = (*Embedder)(nil)
	_ siteqa.VectorIndex = (*VectorIndex)(nil)
	_ siteqa.Generator   = (*Generator)(nil)
	_ siteqa.IndexStore  = (*IndexStore)(nil)
)

// Embedder is a mock implementation of siteqa.Embedder.
type Embedder struct {
	EmbedFn func(ctx context.Context, texts []string) ([][]float32, error)
	ModelFn func() string
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return e.EmbedFn(ctx, texts)
}

func (e *Embedder) Model() string {
	return e.ModelFn()
}

// VectorIndex is a mock implementation of siteqa.VectorIndex.
type VectorIndex struct {
	SearchFn    func(query []float32, k int) []siteqa.Hit
	LenFn       func() int
	DimensionFn func() int
}

func (v *VectorIndex) Search(query []float32, k int) []siteqa.Hit {
	return v.SearchFn(query, k)
}

func (v *VectorIndex) Len() int {
	return v.LenFn()
}

func (v *VectorIndex) Dimension() int {
	return v.DimensionFn()
}

// Generator is a mock implementation of siteqa.Generator.
type Generator struct {
	GenerateFn func(ctx context.Context, context string, query string) (string, error)
}

func (g *Generator) Generate(ctx context.Context, context string, query string) (string, error) {
	return g.GenerateFn(ctx, context, query)
}

// IndexStore is a mock implementation of siteqa.IndexStore.
type IndexStore struct {
	ReplaceFn func(ctx context.Context, meta siteqa.IndexMeta, entries []siteqa.IndexEntry) error
	LoadFn    func(ctx context.Context) (siteqa.IndexMeta, []siteqa.IndexEntry, error)
}

func (s *IndexStore) Replace(ctx context.Context, meta siteqa.IndexMeta, entries []siteqa.IndexEntry) error {
	return s.ReplaceFn(ctx, meta, entries)
}

func (s *IndexStore) Load(ctx context.Context) (siteqa.IndexMeta, []siteqa.IndexEntry, error) {
	return s.LoadFn(ctx)
}
