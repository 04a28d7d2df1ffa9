// Package toml loads siteqa configuration from TOML files.
package toml

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/fwojciec/siteqa"
	"github.com/pelletier/go-toml/v2"
)

// file mirrors siteqa.Config with optional fields so that only the keys
// present in the file override the defaults.
type file struct {
	ResultsDir *string `toml:"results_dir"`
	IndexPath  *string `toml:"index_path"`

	Crawl struct {
		MaxDepth           *int     `toml:"max_depth"`
		MaxPages           *int     `toml:"max_pages"`
		Concurrency        *int     `toml:"concurrency"`
		Allow              *string  `toml:"allow"`
		Recrawl            *bool    `toml:"recrawl"`
		SkipExtensions     []string `toml:"skip_extensions"`
		DocumentExtensions []string `toml:"document_extensions"`
		Include            []string `toml:"include"`
		Exclude            []string `toml:"exclude"`
	} `toml:"crawl"`

	Fetch struct {
		RenderTimeout     *string `toml:"render_timeout"`
		SettleDelay       *string `toml:"settle_delay"`
		HTTPTimeout       *string `toml:"http_timeout"`
		DownloadTimeout   *string `toml:"download_timeout"`
		MaxFileSize       *int64  `toml:"max_file_size"`
		RenderConcurrency *int    `toml:"render_concurrency"`
		UserAgent         *string `toml:"user_agent"`
		DisableRender     *bool   `toml:"disable_render"`
	} `toml:"fetch"`

	Clean struct {
		DropBlockTypes []string `toml:"drop_block_types"`
		MaxUnitChars   *int     `toml:"max_unit_chars"`
	} `toml:"clean"`

	Index struct {
		EmbeddingModel *string `toml:"embedding_model"`
		BatchSize      *int    `toml:"batch_size"`
	} `toml:"index"`

	Retrieval struct {
		TopK             *int     `toml:"top_k"`
		MinScore         *float64 `toml:"min_score"`
		MaxFallbackLinks *int     `toml:"max_fallback_links"`
		ContextChars     *int     `toml:"context_chars"`
		ContextTokens    *int     `toml:"context_tokens"`
		GenerationModel  *string  `toml:"generation_model"`
	} `toml:"retrieval"`
}

// LoadConfig reads the TOML file at path over siteqa.DefaultConfig and
// validates the result. An empty path returns the defaults. Unknown keys,
// malformed values and a missing file are EINVALID.
func LoadConfig(path string) (siteqa.Config, error) {
	cfg := siteqa.DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, siteqa.Errorf(siteqa.EINVALID, "config file %s does not exist", path)
	}
	if err != nil {
		return cfg, siteqa.WrapError(siteqa.EINVALID, err, "reading config %s: %v", path, err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes TOML data over siteqa.DefaultConfig.
func ParseConfig(data []byte) (siteqa.Config, error) {
	cfg := siteqa.DefaultConfig()

	var f file
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return cfg, siteqa.WrapError(siteqa.EINVALID, err, "unknown config keys:\n%s", strict.String())
		}
		return cfg, siteqa.WrapError(siteqa.EINVALID, err, "parsing config: %v", err)
	}

	if err := f.apply(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (f *file) apply(cfg *siteqa.Config) error {
	set(&cfg.ResultsDir, f.ResultsDir)
	set(&cfg.IndexPath, f.IndexPath)

	set(&cfg.Crawl.MaxDepth, f.Crawl.MaxDepth)
	set(&cfg.Crawl.MaxPages, f.Crawl.MaxPages)
	set(&cfg.Crawl.Concurrency, f.Crawl.Concurrency)
	if f.Crawl.Allow != nil {
		cfg.Crawl.Allow = siteqa.AllowPolicy(*f.Crawl.Allow)
	}
	set(&cfg.Crawl.Recrawl, f.Crawl.Recrawl)
	if f.Crawl.SkipExtensions != nil {
		cfg.Crawl.SkipExtensions = f.Crawl.SkipExtensions
	}
	if f.Crawl.DocumentExtensions != nil {
		cfg.Crawl.DocumentExtensions = f.Crawl.DocumentExtensions
	}
	if f.Crawl.Include != nil {
		cfg.Crawl.Include = f.Crawl.Include
	}
	if f.Crawl.Exclude != nil {
		cfg.Crawl.Exclude = f.Crawl.Exclude
	}

	durations := []struct {
		key string
		src *string
		dst *time.Duration
	}{
		{"fetch.render_timeout", f.Fetch.RenderTimeout, &cfg.Fetch.RenderTimeout},
		{"fetch.settle_delay", f.Fetch.SettleDelay, &cfg.Fetch.SettleDelay},
		{"fetch.http_timeout", f.Fetch.HTTPTimeout, &cfg.Fetch.HTTPTimeout},
		{"fetch.download_timeout", f.Fetch.DownloadTimeout, &cfg.Fetch.DownloadTimeout},
	}
	for _, d := range durations {
		if d.src == nil {
			continue
		}
		v, err := time.ParseDuration(*d.src)
		if err != nil {
			return siteqa.Errorf(siteqa.EINVALID, "%s: invalid duration %q", d.key, *d.src)
		}
		*d.dst = v
	}
	set(&cfg.Fetch.MaxFileSize, f.Fetch.MaxFileSize)
	set(&cfg.Fetch.RenderConcurrency, f.Fetch.RenderConcurrency)
	set(&cfg.Fetch.UserAgent, f.Fetch.UserAgent)
	set(&cfg.Fetch.DisableRender, f.Fetch.DisableRender)

	if f.Clean.DropBlockTypes != nil {
		types := make([]siteqa.BlockType, len(f.Clean.DropBlockTypes))
		for i, t := range f.Clean.DropBlockTypes {
			types[i] = siteqa.BlockType(t)
		}
		cfg.Clean.DropBlockTypes = types
	}
	set(&cfg.Clean.MaxUnitChars, f.Clean.MaxUnitChars)

	set(&cfg.Index.EmbeddingModel, f.Index.EmbeddingModel)
	set(&cfg.Index.BatchSize, f.Index.BatchSize)

	set(&cfg.Retrieval.TopK, f.Retrieval.TopK)
	set(&cfg.Retrieval.MinScore, f.Retrieval.MinScore)
	set(&cfg.Retrieval.MaxFallbackLinks, f.Retrieval.MaxFallbackLinks)
	set(&cfg.Retrieval.ContextChars, f.Retrieval.ContextChars)
	set(&cfg.Retrieval.ContextTokens, f.Retrieval.ContextTokens)
	set(&cfg.Retrieval.GenerationModel, f.Retrieval.GenerationModel)
	return nil
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
