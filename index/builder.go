package index

import (
	"context"
	"log/slog"

	"github.com/fwojciec/siteqa"
)

// UnitLister lists every cleaned unit to be indexed, in a stable order.
type UnitLister interface {
	ListUnits(ctx context.Context) ([]siteqa.TextUnit, error)
}

// Builder rebuilds the whole index from cleaned units. A build either
// replaces the stored index completely or leaves it untouched.
type Builder struct {
	Units    UnitLister
	Embedder siteqa.Embedder
	Store    siteqa.IndexStore

	// BatchSize is the number of units per embedding request.
	BatchSize int

	Logger *slog.Logger
}

// Build embeds every unit, persists the result and returns the new
// index. All failures are reported as EINDEX.
func (b *Builder) Build(ctx context.Context) (*Flat, error) {
	units, err := b.Units.ListUnits(ctx)
	if err != nil {
		return nil, siteqa.WrapError(siteqa.EINDEX, err, "listing cleaned units: %v", err)
	}
	if len(units) == 0 {
		return nil, siteqa.Errorf(siteqa.EINDEX, "no cleaned units to index; run clean first")
	}

	batch := b.BatchSize
	if batch <= 0 {
		batch = siteqa.DefaultBatchSize
	}

	entries := make([]siteqa.IndexEntry, 0, len(units))
	for start := 0; start < len(units); start += batch {
		end := min(start+batch, len(units))
		texts := make([]string, 0, end-start)
		for _, u := range units[start:end] {
			texts = append(texts, u.Text)
		}

		vectors, err := b.Embedder.Embed(ctx, texts)
		if err != nil {
			return nil, siteqa.WrapError(siteqa.EINDEX, err, "embedding units %d-%d: %v", start, end-1, err)
		}
		if len(vectors) != len(texts) {
			return nil, siteqa.Errorf(siteqa.EINDEX, "embedder returned %d vectors for %d units", len(vectors), len(texts))
		}
		for i, v := range vectors {
			entries = append(entries, siteqa.IndexEntry{
				ID:     start + i,
				Vector: v,
				Unit:   units[start+i],
			})
		}
		b.logger().Info("embedded batch", "units", end, "total", len(units))
	}

	flat, err := Build(entries)
	if err != nil {
		return nil, err
	}

	meta := siteqa.IndexMeta{
		Model:     b.Embedder.Model(),
		Dimension: flat.Dimension(),
		Count:     flat.Len(),
	}
	if err := b.Store.Replace(ctx, meta, entries); err != nil {
		if siteqa.ErrorCode(err) == siteqa.EINDEX {
			return nil, err
		}
		return nil, siteqa.WrapError(siteqa.EINDEX, err, "saving index: %v", err)
	}
	return flat, nil
}

func (b *Builder) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// Open loads the stored index for querying with embedder. An index built
// with a different embedding model is rejected with EINDEX, since its
// vectors are not comparable with the query's.
func Open(ctx context.Context, store siteqa.IndexStore, embedder siteqa.Embedder) (*Flat, error) {
	meta, entries, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if meta.Model != embedder.Model() {
		return nil, siteqa.Errorf(siteqa.EINDEX, "index was built with model %q but queries use %q; rebuild the index", meta.Model, embedder.Model())
	}
	flat, err := Build(entries)
	if err != nil {
		return nil, err
	}
	if meta.Dimension != flat.Dimension() && flat.Len() > 0 {
		return nil, siteqa.Errorf(siteqa.EINDEX, "index metadata says dimension %d but vectors have %d", meta.Dimension, flat.Dimension())
	}
	return flat, nil
}
