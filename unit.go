package siteqa

import "context"

// TextUnit is a cleaned piece of text ready to be embedded.
// Units are derived deterministically from corpus records.
type TextUnit struct {
	URL      string `json:"url"`
	Domain   string `json:"domain"`
	Position int    `json:"position"`
	Text     string `json:"text"`
}

// UnitStore persists the cleaned units of one crawled domain.
type UnitStore interface {
	// SaveUnits replaces all units of the URL.
	SaveUnits(ctx context.Context, url string, units []TextUnit) error

	// FindUnits returns the units of the URL in position order.
	// Returns ENOTFOUND if the URL has not been cleaned.
	FindUnits(ctx context.Context, url string) ([]TextUnit, error)

	// ListUnits returns every unit ordered by URL then position.
	ListUnits(ctx context.Context) ([]TextUnit, error)
}

// UnitFinder looks up cleaned units by URL across all crawled domains.
type UnitFinder interface {
	FindUnits(ctx context.Context, url string) ([]TextUnit, error)
}
