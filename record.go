package siteqa

import (
	"context"
	"time"
)

// FetchMethod records which fetch path produced a body.
type FetchMethod string

// Fetch methods.
const (
	MethodRendered       FetchMethod = "rendered"
	MethodHTTPFallback   FetchMethod = "http-fallback"
	MethodDirectDownload FetchMethod = "direct-download"
)

// BlockType classifies a structured block produced by a parser.
type BlockType string

// Block types. Pages use the HTML types; documents use page and paragraph.
const (
	BlockTitle      BlockType = "title"
	BlockHeading    BlockType = "heading"
	BlockParagraph  BlockType = "paragraph"
	BlockListItem   BlockType = "list-item"
	BlockTable      BlockType = "table"
	BlockCode       BlockType = "code"
	BlockNavigation BlockType = "navigation"
	BlockHeader     BlockType = "header"
	BlockFooter     BlockType = "footer"
	BlockPage       BlockType = "page"
)

// BlockMetadata carries the per-block details downstream stages need.
type BlockMetadata struct {
	LinkURLs   []string `json:"linkUrls,omitempty"`
	LinkTexts  []string `json:"linkTexts,omitempty"`
	Level      int      `json:"level,omitempty"`
	PageNumber int      `json:"pageNumber,omitempty"`
}

// Block is one typed unit of parsed content.
type Block struct {
	Type     BlockType     `json:"type"`
	Text     string        `json:"text"`
	Metadata BlockMetadata `json:"metadata"`
}

// RecordVariant distinguishes parsed pages from parsed documents.
type RecordVariant string

// Record variants.
const (
	VariantPage     RecordVariant = "page-text"
	VariantDocument RecordVariant = "document-text"
)

// StructuredRecord is the output of a Parser.
type StructuredRecord struct {
	Variant RecordVariant `json:"variant"`
	Title   string        `json:"title"`
	Blocks  []Block       `json:"blocks"`
}

// CorpusRecord is the persisted parse result for one fetched URL.
// A placeholder record has Error set and no blocks.
type CorpusRecord struct {
	URL         string        `json:"url"`
	Kind        ResourceKind  `json:"kind"`
	Format      Format        `json:"format"`
	Method      FetchMethod   `json:"method"`
	Variant     RecordVariant `json:"variant,omitempty"`
	Title       string        `json:"title"`
	Blocks      []Block       `json:"blocks"`
	FetchedAt   time.Time     `json:"fetchedAt"`
	ContentHash string        `json:"contentHash"`
	Error       string        `json:"error,omitempty"`
}

// Placeholder reports whether the record stands in for a failed parse.
func (r *CorpusRecord) Placeholder() bool {
	return r.Error != ""
}

// Validate returns an error if the record contains invalid fields.
func (r *CorpusRecord) Validate() error {
	if r.URL == "" {
		return Errorf(EINVALID, "corpus record URL required")
	}
	if r.Error != "" && len(r.Blocks) > 0 {
		return Errorf(EINVALID, "placeholder record must not carry blocks")
	}
	return nil
}

// CorpusStore persists corpus records for one crawled domain.
// Saving a record replaces any previous record for the same URL.
type CorpusStore interface {
	SaveRecord(ctx context.Context, rec *CorpusRecord) error

	// FindRecord returns ENOTFOUND if no record exists for the URL.
	FindRecord(ctx context.Context, url string) (*CorpusRecord, error)

	// ListRecords returns all records ordered by URL.
	ListRecords(ctx context.Context) ([]*CorpusRecord, error)
}

// CrawlSummary is the per-domain crawl metadata written after each run.
type CrawlSummary struct {
	RunID      string    `json:"runId"`
	StartURL   string    `json:"startUrl"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Fetched    int       `json:"fetched"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	Pending    int       `json:"pending"`
	Bytes      int64     `json:"bytes"`
	Tokens     int       `json:"tokens"`
	Truncated  bool      `json:"truncated"`
}
