package main

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fwojciec/siteqa"
	"github.com/fwojciec/siteqa/fs"
)

// Run executes the status command.
func (c *StatusCmd) Run(deps *Dependencies) error {
	var store *fs.DomainStore
	var err error
	if strings.Contains(c.Domain, "://") {
		store, err = deps.Results.DomainFor(c.Domain)
	} else {
		store, err = deps.Results.Domain(c.Domain)
	}
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", siteqa.ErrorMessage(err))
		return err
	}

	known, err := deps.Results.Domains()
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", siteqa.ErrorMessage(err))
		return err
	}
	name := filepath.Base(store.Dir())
	if !slices.Contains(known, name) {
		fmt.Fprintf(deps.Stderr, "error: %q has not been crawled. Run 'siteqa crawl <url>' first.\n", name)
		return siteqa.Errorf(siteqa.ENOTFOUND, "domain %q not crawled", name)
	}

	graph, err := openGraph(store)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", siteqa.ErrorMessage(err))
		return err
	}
	defer graph.Close()
	if err := graph.Load(deps.Ctx); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", siteqa.ErrorMessage(err))
		return err
	}

	counts := make(map[siteqa.URLStatus]int)
	methods := make(map[siteqa.FetchMethod]int)
	for _, rec := range graph.Records() {
		counts[rec.Status]++
		if rec.Status == siteqa.StatusFetched {
			methods[rec.Method]++
		}
	}

	fmt.Fprintf(deps.Stdout, "%s\n", name)
	fmt.Fprintf(deps.Stdout, "  URLs:    %d fetched, %d failed, %d skipped, %d pending\n",
		counts[siteqa.StatusFetched], counts[siteqa.StatusFailed], counts[siteqa.StatusSkipped], counts[siteqa.StatusPending])
	fmt.Fprintf(deps.Stdout, "  Methods: %d rendered, %d http fallback, %d downloaded\n",
		methods[siteqa.MethodRendered], methods[siteqa.MethodHTTPFallback], methods[siteqa.MethodDirectDownload])
	fmt.Fprintf(deps.Stdout, "  Links:   %d\n", len(graph.Edges()))

	summary, err := store.Summary()
	switch {
	case siteqa.ErrorCode(err) == siteqa.ENOTFOUND:
		fmt.Fprintln(deps.Stdout, "  Last run: none finished")
	case err != nil:
		fmt.Fprintf(deps.Stderr, "error: %s\n", siteqa.ErrorMessage(err))
		return err
	default:
		fmt.Fprintf(deps.Stdout, "  Last run: %s from %s at %s (%d fetched, %s)\n",
			summary.RunID, summary.StartURL, summary.FinishedAt.Format("2006-01-02 15:04:05"),
			summary.Fetched, formatBytes(summary.Bytes))
	}
	return nil
}

