package siteqa

import "strings"

// ExtractResult holds the main content located in an HTML page.
type ExtractResult struct {
	// Title is the page title extracted from metadata.
	Title string

	// ContentHTML is the main content as clean HTML with boilerplate removed.
	ContentHTML string
}

// Extractor isolates the main content of an HTML page.
type Extractor interface {
	Extract(html string) (*ExtractResult, error)
}

// Extractors tries each extractor in order and returns the first result
// that located content. If none did, the last result or error is
// returned.
type Extractors []Extractor

// Extract implements Extractor.
func (e Extractors) Extract(html string) (*ExtractResult, error) {
	var (
		last    *ExtractResult
		lastErr error
	)
	for _, x := range e {
		res, err := x.Extract(html)
		if err != nil {
			last, lastErr = nil, err
			continue
		}
		if res != nil && strings.TrimSpace(res.ContentHTML) != "" {
			return res, nil
		}
		last, lastErr = res, nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	if last == nil {
		return &ExtractResult{}, nil
	}
	return last, nil
}
