package main

import (
	"fmt"

	"github.com/fwojciec/siteqa"
	"github.com/fwojciec/siteqa/index"
)

// Run executes the index command.
func (c *IndexCmd) Run(deps *Dependencies) error {
	b := &index.Builder{
		Units:     deps.Results,
		Embedder:  deps.Embedder,
		Store:     deps.IndexStore,
		BatchSize: deps.Config.Index.BatchSize,
		Logger:    deps.Logger,
	}
	flat, err := b.Build(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", siteqa.ErrorMessage(err))
		fmt.Fprintln(deps.Stderr, "The previous index, if any, is unchanged.")
		return err
	}

	fmt.Fprintf(deps.Stdout, "Indexed %d units with %s (dimension %d)\n",
		flat.Len(), deps.Embedder.Model(), flat.Dimension())
	return nil
}
