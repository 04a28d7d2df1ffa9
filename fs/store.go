package fs

import (
	"bufio"
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	iofs "io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fwojciec/siteqa"
)

// Compile-time interface verification.
var (
	_ siteqa.CorpusStore = (*DomainStore)(nil)
	_ siteqa.UnitStore   = (*DomainStore)(nil)
)

// File layout inside a domain directory.
const (
	LinkGraphFile = "linkgraph.db"
	SummaryFile   = "crawl_meta.json"
	corpusDir     = "corpus"
	cleanedDir    = "cleaned"
)

// DomainStore keeps the corpus records and cleaned units of one domain
// as files under a single directory:
//
//	<dir>/corpus/<name>.json     one corpus record per URL
//	<dir>/cleaned/<name>.jsonl   the units of one URL, one per line
//	<dir>/crawl_meta.json        summary of the last crawl
//
// Every write goes to a temporary file that is renamed into place.
type DomainStore struct {
	dir string
}

// NewDomainStore creates a DomainStore rooted at dir.
func NewDomainStore(dir string) *DomainStore {
	return &DomainStore{dir: dir}
}

// Dir returns the domain directory.
func (s *DomainStore) Dir() string {
	return s.dir
}

// LinkGraphPath returns the path of the domain's link graph database.
func (s *DomainStore) LinkGraphPath() string {
	return filepath.Join(s.dir, LinkGraphFile)
}

// SaveRecord writes rec, replacing any earlier record for its URL.
func (s *DomainStore) SaveRecord(ctx context.Context, rec *siteqa.CorpusRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	path, err := s.path(corpusDir, rec.URL, ".json")
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return siteqa.WrapError(siteqa.ESTORE, err, "encoding record %s: %v", rec.URL, err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return siteqa.WrapError(siteqa.ESTORE, err, "writing record %s: %v", rec.URL, err)
	}
	return nil
}

// FindRecord returns the record for url or ENOTFOUND.
func (s *DomainStore) FindRecord(ctx context.Context, url string) (*siteqa.CorpusRecord, error) {
	path, err := s.path(corpusDir, url, ".json")
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, iofs.ErrNotExist) {
		return nil, siteqa.Errorf(siteqa.ENOTFOUND, "no corpus record for %s", url)
	}
	if err != nil {
		return nil, siteqa.WrapError(siteqa.ESTORE, err, "reading record %s: %v", url, err)
	}
	return decodeRecord(path, data)
}

// ListRecords returns every record ordered by URL.
func (s *DomainStore) ListRecords(ctx context.Context) ([]*siteqa.CorpusRecord, error) {
	paths, err := s.files(corpusDir, ".json")
	if err != nil {
		return nil, err
	}
	records := make([]*siteqa.CorpusRecord, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, siteqa.WrapError(siteqa.ESTORE, err, "reading %s: %v", path, err)
		}
		rec, err := decodeRecord(path, data)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	slices.SortFunc(records, func(a, b *siteqa.CorpusRecord) int {
		return cmp.Compare(a.URL, b.URL)
	})
	return records, nil
}

func decodeRecord(path string, data []byte) (*siteqa.CorpusRecord, error) {
	var rec siteqa.CorpusRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, siteqa.WrapError(siteqa.ESTORE, err, "decoding %s: %v", path, err)
	}
	return &rec, nil
}

// SaveUnits replaces the units of url. An empty slice leaves an empty
// file so stale units from an earlier clean do not survive.
func (s *DomainStore) SaveUnits(ctx context.Context, url string, units []siteqa.TextUnit) error {
	path, err := s.path(cleanedDir, url, ".jsonl")
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, u := range units {
		if err := enc.Encode(u); err != nil {
			return siteqa.WrapError(siteqa.ESTORE, err, "encoding units of %s: %v", url, err)
		}
	}
	if err := writeFileAtomic(path, buf.Bytes()); err != nil {
		return siteqa.WrapError(siteqa.ESTORE, err, "writing units of %s: %v", url, err)
	}
	return nil
}

// FindUnits returns the units of url in position order, or ENOTFOUND if
// the URL has not been cleaned.
func (s *DomainStore) FindUnits(ctx context.Context, url string) ([]siteqa.TextUnit, error) {
	path, err := s.path(cleanedDir, url, ".jsonl")
	if err != nil {
		return nil, err
	}
	units, err := readUnits(path)
	if errors.Is(err, iofs.ErrNotExist) {
		return nil, siteqa.Errorf(siteqa.ENOTFOUND, "no cleaned units for %s", url)
	}
	return units, err
}

// ListUnits returns every unit ordered by URL then position.
func (s *DomainStore) ListUnits(ctx context.Context) ([]siteqa.TextUnit, error) {
	paths, err := s.files(cleanedDir, ".jsonl")
	if err != nil {
		return nil, err
	}
	var units []siteqa.TextUnit
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		u, err := readUnits(path)
		if err != nil {
			return nil, err
		}
		units = append(units, u...)
	}
	slices.SortStableFunc(units, func(a, b siteqa.TextUnit) int {
		if c := cmp.Compare(a.URL, b.URL); c != 0 {
			return c
		}
		return cmp.Compare(a.Position, b.Position)
	})
	return units, nil
}

func readUnits(path string) ([]siteqa.TextUnit, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, err
		}
		return nil, siteqa.WrapError(siteqa.ESTORE, err, "opening %s: %v", path, err)
	}
	defer f.Close()

	var units []siteqa.TextUnit
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16<<20)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var u siteqa.TextUnit
		if err := json.Unmarshal(line, &u); err != nil {
			return nil, siteqa.WrapError(siteqa.ESTORE, err, "decoding %s: %v", path, err)
		}
		units = append(units, u)
	}
	if err := scanner.Err(); err != nil {
		return nil, siteqa.WrapError(siteqa.ESTORE, err, "reading %s: %v", path, err)
	}
	slices.SortStableFunc(units, func(a, b siteqa.TextUnit) int {
		return cmp.Compare(a.Position, b.Position)
	})
	return units, nil
}

// SaveSummary writes the crawl summary.
func (s *DomainStore) SaveSummary(summary *siteqa.CrawlSummary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return siteqa.WrapError(siteqa.ESTORE, err, "encoding crawl summary: %v", err)
	}
	if err := writeFileAtomic(filepath.Join(s.dir, SummaryFile), data); err != nil {
		return siteqa.WrapError(siteqa.ESTORE, err, "writing crawl summary: %v", err)
	}
	return nil
}

// Summary reads the crawl summary, or returns ENOTFOUND before the first
// crawl finished.
func (s *DomainStore) Summary() (*siteqa.CrawlSummary, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, SummaryFile))
	if errors.Is(err, iofs.ErrNotExist) {
		return nil, siteqa.Errorf(siteqa.ENOTFOUND, "no crawl summary in %s", s.dir)
	}
	if err != nil {
		return nil, siteqa.WrapError(siteqa.ESTORE, err, "reading crawl summary: %v", err)
	}
	var summary siteqa.CrawlSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, siteqa.WrapError(siteqa.ESTORE, err, "decoding crawl summary: %v", err)
	}
	return &summary, nil
}

func (s *DomainStore) path(sub, url, ext string) (string, error) {
	name, err := URLToName(url)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, sub, name+ext), nil
}

// files lists the files of sub with the extension, skipping temporary
// files left behind by interrupted writes.
func (s *DomainStore) files(sub, ext string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, sub))
	if errors.Is(err, iofs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, siteqa.WrapError(siteqa.ESTORE, err, "listing %s: %v", sub, err)
	}
	var paths []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ext) {
			continue
		}
		paths = append(paths, filepath.Join(s.dir, sub, name))
	}
	return paths, nil
}
