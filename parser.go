package siteqa

import "context"

// ParseInput is a fetched body ready to be turned into blocks.
type ParseInput struct {
	URL    string
	Format Format
	Body   []byte
}

// Parser converts a fetched body into typed blocks. Parse failures
// return EPARSE.
type Parser interface {
	Parse(ctx context.Context, in ParseInput) (*StructuredRecord, error)
}
