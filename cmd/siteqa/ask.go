package main

import (
	"fmt"

	"github.com/fwojciec/siteqa"
	"github.com/fwojciec/siteqa/index"
	"github.com/fwojciec/siteqa/retrieve"
)

// Run executes the ask command.
func (c *AskCmd) Run(deps *Dependencies) error {
	cfg := deps.Config.Retrieval
	if c.K > 0 {
		cfg.TopK = c.K
	}

	engine := &retrieve.Engine{
		Embedder:  deps.Embedder,
		Units:     deps.Results,
		Generator: deps.Generator,
		Tokens:    deps.TokenCounter,
		Config:    cfg,
		Logger:    deps.Logger,
	}

	flat, err := index.Open(deps.Ctx, deps.IndexStore, deps.Embedder)
	switch {
	case siteqa.ErrorCode(err) == siteqa.ENOTFOUND:
		fmt.Fprintln(deps.Stderr, "warning: no index yet, answering from link search only. Run 'siteqa index' to build one.")
	case err != nil:
		fmt.Fprintf(deps.Stderr, "error: %s\n", siteqa.ErrorMessage(err))
		return err
	default:
		engine.Index = flat
		engine.Model = deps.Embedder.Model()
	}

	edges, closeGraphs, err := loadEdges(deps)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", siteqa.ErrorMessage(err))
		return err
	}
	defer closeGraphs()
	engine.Edges = edges

	res, err := engine.Ask(deps.Ctx, c.Question)
	if siteqa.ErrorCode(err) == siteqa.ENORESULTS {
		fmt.Fprintln(deps.Stdout, "No relevant content was found in the crawled sites.")
		return err
	}
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", siteqa.ErrorMessage(err))
		return err
	}

	if res.LowConfidence {
		fmt.Fprintln(deps.Stderr, "note: no close match in the index; this answer is based on link search.")
	}
	fmt.Fprintln(deps.Stdout, res.Answer)
	if len(res.Sources) > 0 {
		fmt.Fprintln(deps.Stdout)
		fmt.Fprintln(deps.Stdout, "Sources:")
		for _, s := range res.Sources {
			fmt.Fprintf(deps.Stdout, "  - %s\n", s.Label())
		}
	}
	return nil
}

// loadEdges loads the link graph of every crawled domain.
func loadEdges(deps *Dependencies) (retrieve.Edges, func(), error) {
	domains, err := deps.Results.Domains()
	if err != nil {
		return nil, func() {}, err
	}

	var edges retrieve.Edges
	var closers []func() error
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	for _, name := range domains {
		store, err := deps.Results.Domain(name)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		graph, err := openGraph(store)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		closers = append(closers, graph.Close)
		if err := graph.Load(deps.Ctx); err != nil {
			closeAll()
			return nil, func() {}, err
		}
		edges = append(edges, graph)
	}
	return edges, closeAll, nil
}
