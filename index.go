package siteqa

import "context"

// Embedder turns texts into fixed-dimension vectors. The same embedder
// must be used to build an index and to query it.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Model names the embedding model; it is stored alongside the index.
	Model() string
}

// IndexEntry is one embedded unit in the vector index.
type IndexEntry struct {
	ID     int       `json:"id"`
	Vector []float32 `json:"-"`
	Unit   TextUnit  `json:"unit"`
}

// Hit is one similarity search result. Score is cosine similarity in
// [-1, 1]; higher is more similar.
type Hit struct {
	Entry IndexEntry
	Score float64
}

// VectorIndex answers nearest-neighbour queries over embedded units.
type VectorIndex interface {
	Search(query []float32, k int) []Hit
	Len() int
	Dimension() int
}

// IndexMeta describes how a persisted index was built.
type IndexMeta struct {
	Model     string
	Dimension int
	Count     int
}

// IndexStore persists a built index. Replace swaps the whole index in one
// step so readers never observe a partial build.
type IndexStore interface {
	Replace(ctx context.Context, meta IndexMeta, entries []IndexEntry) error

	// Load returns ENOTFOUND when no index has been built.
	Load(ctx context.Context) (IndexMeta, []IndexEntry, error)
}
