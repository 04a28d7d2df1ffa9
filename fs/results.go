package fs

import (
	"context"
	"errors"
	iofs "io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fwojciec/siteqa"
)

// Compile-time interface verification.
var _ siteqa.UnitFinder = (*Results)(nil)

// Results is the root directory holding one DomainStore per crawled
// domain.
type Results struct {
	root string
}

// NewResults creates a Results rooted at root.
func NewResults(root string) *Results {
	return &Results{root: root}
}

// Domain returns the store for a domain name as produced by
// siteqa.Domain. Names that could escape the root are rejected.
func (r *Results) Domain(name string) (*DomainStore, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return nil, siteqa.Errorf(siteqa.EINVALID, "invalid domain name %q", name)
	}
	return NewDomainStore(filepath.Join(r.root, name)), nil
}

// DomainFor returns the store of the domain rawURL belongs to.
func (r *Results) DomainFor(rawURL string) (*DomainStore, error) {
	name, err := siteqa.Domain(rawURL)
	if err != nil {
		return nil, err
	}
	return r.Domain(name)
}

// Domains lists the crawled domains in name order. A directory counts as
// a domain once it holds a link graph or a corpus.
func (r *Results) Domains() ([]string, error) {
	entries, err := os.ReadDir(r.root)
	if errors.Is(err, iofs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, siteqa.WrapError(siteqa.ESTORE, err, "listing results: %v", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(r.root, e.Name())
		if exists(filepath.Join(dir, LinkGraphFile)) || exists(filepath.Join(dir, corpusDir)) {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

// FindUnits looks up the cleaned units of url in its domain's store.
func (r *Results) FindUnits(ctx context.Context, url string) ([]siteqa.TextUnit, error) {
	store, err := r.DomainFor(url)
	if err != nil {
		return nil, err
	}
	return store.FindUnits(ctx, url)
}

// ListUnits returns the units of every domain, ordered by domain, then
// URL, then position.
func (r *Results) ListUnits(ctx context.Context) ([]siteqa.TextUnit, error) {
	domains, err := r.Domains()
	if err != nil {
		return nil, err
	}
	var units []siteqa.TextUnit
	for _, name := range domains {
		store, err := r.Domain(name)
		if err != nil {
			return nil, err
		}
		u, err := store.ListUnits(ctx)
		if err != nil {
			return nil, err
		}
		units = append(units, u...)
	}
	return units, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
