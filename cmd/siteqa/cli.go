package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/siteqa"
	"github.com/fwojciec/siteqa/fs"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
	Config siteqa.Config
	Logger *slog.Logger

	Results *fs.Results

	// Crawl.
	Fetcher      siteqa.Fetcher
	Parser       siteqa.Parser
	Links        siteqa.LinkExtractor
	Sitemaps     siteqa.SitemapService
	TokenCounter siteqa.TokenCounter

	// Index and ask.
	IndexStore siteqa.IndexStore
	Embedder   siteqa.Embedder
	Generator  siteqa.Generator

	// Now and NewRunID default to time.Now and uuid.NewString.
	Now      func() time.Time
	NewRunID func() string
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Config  string `short:"C" env:"SITEQA_CONFIG" type:"path" help:"TOML configuration file"`
	Results string `short:"R" env:"SITEQA_RESULTS" type:"path" help:"Results directory (overrides the config file)"`
	Verbose bool   `short:"v" help:"Log every fetch, parse and model call to stderr"`

	Crawl  CrawlCmd  `cmd:"" help:"Crawl a website into the local corpus"`
	Clean  CleanCmd  `cmd:"" help:"Turn crawled records into text units"`
	Index  IndexCmd  `cmd:"" help:"Rebuild the vector index from text units"`
	Ask    AskCmd    `cmd:"" help:"Ask a question about the crawled sites"`
	Status StatusCmd `cmd:"" help:"Show the crawl state of a domain"`
}

// CrawlCmd is the "crawl" subcommand.
type CrawlCmd struct {
	URL         string   `arg:"" help:"Start URL"`
	Sitemap     string   `help:"Seed the crawl from this sitemap URL"`
	Discover    bool     `short:"d" help:"Seed the crawl from sitemaps found via robots.txt"`
	Depth       int      `default:"-1" help:"Maximum link depth from the start URL (default from config)"`
	MaxPages    int      `name:"max-pages" help:"Maximum number of URLs to process (default from config)"`
	MaxFileSize int64    `name:"max-file-size" help:"Maximum document size in bytes (default from config)"`
	Concurrency int      `short:"c" help:"Concurrent fetch workers (default from config)"`
	Allow       string   `help:"Which hosts links may lead to: same-host, same-site or any"`
	Recrawl     bool     `help:"Fetch URLs again even if a previous run visited them"`
	NoRender    bool     `name:"no-render" help:"Use plain HTTP only, without a headless browser"`
	Include     []string `short:"I" help:"Only follow URLs matching this regex (repeatable)"`
	Exclude     []string `short:"X" help:"Never follow URLs matching this regex (repeatable)"`
}

// CleanCmd is the "clean" subcommand.
type CleanCmd struct {
	Domains []string `arg:"" optional:"" help:"Domains to clean (default: all)"`
}

// IndexCmd is the "index" subcommand.
type IndexCmd struct{}

// AskCmd is the "ask" subcommand.
type AskCmd struct {
	Question string `arg:"" help:"Question to answer from the crawled content"`
	K        int    `short:"k" help:"Number of similar units to retrieve (default from config)"`
}

// StatusCmd is the "status" subcommand.
type StatusCmd struct {
	Domain string `arg:"" help:"Domain name or any URL on the site"`
}
