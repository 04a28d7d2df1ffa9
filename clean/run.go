package clean

import (
	"context"

	"github.com/fwojciec/siteqa"
)

// Result summarizes a cleaning pass over one domain.
type Result struct {
	Records      int
	Placeholders int
	Units        int
}

// Run cleans every record of corpus and replaces its units in store.
// Records that yield no units still overwrite earlier units, so a page
// that lost its content does not keep stale text.
func Run(ctx context.Context, c *Cleaner, corpus siteqa.CorpusStore, store siteqa.UnitStore) (Result, error) {
	var res Result

	records, err := corpus.ListRecords(ctx)
	if err != nil {
		return res, err
	}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		units := c.Clean(rec)
		if err := store.SaveUnits(ctx, rec.URL, units); err != nil {
			return res, err
		}
		res.Records++
		if rec.Placeholder() {
			res.Placeholders++
		}
		res.Units += len(units)
	}
	return res, nil
}
