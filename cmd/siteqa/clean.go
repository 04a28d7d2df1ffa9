package main

import (
	"fmt"

	"github.com/fwojciec/siteqa"
	"github.com/fwojciec/siteqa/clean"
)

// Run executes the clean command.
func (c *CleanCmd) Run(deps *Dependencies) error {
	domains := c.Domains
	if len(domains) == 0 {
		var err error
		domains, err = deps.Results.Domains()
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", siteqa.ErrorMessage(err))
			return err
		}
	}
	if len(domains) == 0 {
		fmt.Fprintln(deps.Stderr, "error: nothing crawled yet. Run 'siteqa crawl <url>' first.")
		return siteqa.Errorf(siteqa.ENOTFOUND, "no crawled domains")
	}

	cleaner := clean.NewCleaner(deps.Config.Clean)
	for _, name := range domains {
		store, err := deps.Results.Domain(name)
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", siteqa.ErrorMessage(err))
			return err
		}
		res, err := clean.Run(deps.Ctx, cleaner, store, store)
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error cleaning %s: %s\n", name, siteqa.ErrorMessage(err))
			return err
		}
		fmt.Fprintf(deps.Stdout, "  %s: %d records, %d units (%d without text)\n",
			name, res.Records, res.Units, res.Placeholders)
	}
	return nil
}
