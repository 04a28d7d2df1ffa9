package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/siteqa"
	"github.com/fwojciec/siteqa/crawl"
	"github.com/fwojciec/siteqa/docx"
	"github.com/fwojciec/siteqa/fs"
	"github.com/fwojciec/siteqa/gemini"
	"github.com/fwojciec/siteqa/goquery"
	"github.com/fwojciec/siteqa/htmltomarkdown"
	sitehttp "github.com/fwojciec/siteqa/http"
	"github.com/fwojciec/siteqa/index"
	"github.com/fwojciec/siteqa/pdf"
	"github.com/fwojciec/siteqa/readability"
	"github.com/fwojciec/siteqa/rod"
	siteslog "github.com/fwojciec/siteqa/slog"
	"github.com/fwojciec/siteqa/sqlite"
	"github.com/fwojciec/siteqa/toml"
	"github.com/fwojciec/siteqa/trafilatura"
	"github.com/google/uuid"
	"google.golang.org/genai"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Getenv reads environment variables. Defaults to os.Getenv.
	Getenv func(string) string

	closers []func() error
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{Getenv: os.Getenv}
}

// Close releases the browser and any other resources opened by Run.
func (m *Main) Close() error {
	var first error
	for i := len(m.closers) - 1; i >= 0; i-- {
		if err := m.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	m.closers = nil
	return first
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("siteqa"),
		kong.Description("Crawl a website and answer questions from its content."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'siteqa --help' to see available commands")
	}
	if args[0] == "help" || args[0] == "--help" || args[0] == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	cmd := strings.Fields(kongCtx.Command())[0]

	cfg, err := toml.LoadConfig(cli.Config)
	if err != nil {
		fmt.Fprintln(stderr, "Hint: Set SITEQA_CONFIG or --config to a valid TOML file")
		return err
	}
	if cli.Results != "" {
		cfg.ResultsDir = cli.Results
	}
	if cmd == "crawl" {
		cli.Crawl.apply(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	deps.Config = cfg
	deps.Logger = newLogger(cli.Verbose, stderr)
	deps.Results = fs.NewResults(cfg.ResultsDir)
	deps.IndexStore = sqlite.NewIndexStore(cfg.IndexPath)
	deps.Now = time.Now
	deps.NewRunID = uuid.NewString
	defer m.Close()

	switch cmd {
	case "crawl":
		m.wireCrawl(deps)
	case "index":
		if err := m.wireEmbedder(deps); err != nil {
			return err
		}
	case "ask":
		if err := m.wireEmbedder(deps); err != nil {
			return err
		}
		if err := m.wireGenerator(deps); err != nil {
			return err
		}
	}

	return kongCtx.Run(deps)
}

// tokenizerModel is used for local token counting; the tokenizer does not
// know every generation model.
const tokenizerModel = "gemini-2.5-flash"

func (m *Main) wireCrawl(deps *Dependencies) {
	cfg := deps.Config.Fetch
	logger := deps.Logger

	fetcher := &crawl.Fetcher{
		Getter: siteslog.NewLoggingPageGetter(sitehttp.NewFetcher(
			sitehttp.WithTimeout(cfg.HTTPTimeout),
			sitehttp.WithUserAgent(cfg.UserAgent),
		), logger),
		Downloader: siteslog.NewLoggingDownloader(sitehttp.NewDownloader(
			sitehttp.WithTimeout(cfg.DownloadTimeout),
			sitehttp.WithUserAgent(cfg.UserAgent),
		), logger),
		Config: cfg,
		Logger: logger,
	}
	if !cfg.DisableRender {
		manager, err := rod.NewBrowserManager(rod.WithManagerLogger(logger))
		if err != nil {
			fmt.Fprintf(deps.Stderr, "warning: headless browser unavailable (%v); fetching over plain HTTP\n", err)
			fmt.Fprintln(deps.Stderr, "Hint: Chrome or Chromium must be installed, or pass --no-render")
		} else {
			renderer := rod.NewRenderer(manager,
				rod.WithSettleDelay(cfg.SettleDelay),
				rod.WithConcurrency(cfg.RenderConcurrency),
			)
			m.closers = append(m.closers, renderer.Close)
			fetcher.Renderer = siteslog.NewLoggingRenderer(renderer, logger)
		}
	}
	deps.Fetcher = siteslog.NewLoggingFetcher(fetcher, logger)

	html := goquery.NewParser(
		goquery.WithExtractor(siteqa.Extractors{trafilatura.NewExtractor(), readability.NewExtractor()}),
		goquery.WithConverter(htmltomarkdown.NewConverter()),
	)
	deps.Parser = siteslog.NewLoggingParser(crawl.Parsers{
		siteqa.FormatHTML: html,
		siteqa.FormatPDF:  pdf.NewParser(),
		siteqa.FormatDOCX: docx.NewParser(),
	}, logger)
	deps.Links = goquery.NewLinkExtractor()
	deps.Sitemaps = siteslog.NewLoggingSitemapService(sitehttp.NewSitemapService(
		sitehttp.WithTimeout(cfg.HTTPTimeout),
		sitehttp.WithUserAgent(cfg.UserAgent),
	), logger)

	if tc, err := gemini.NewTokenCounter(tokenizerModel); err == nil {
		deps.TokenCounter = tc
	}
}

// wireEmbedder selects the local hash embedder for "hash" or "hash-<dim>"
// models and the Gemini embedding API otherwise.
func (m *Main) wireEmbedder(deps *Dependencies) error {
	model := deps.Config.Index.EmbeddingModel
	if dim, ok := hashDimension(model); ok {
		deps.Embedder = siteslog.NewLoggingEmbedder(index.NewHashEmbedder(dim), deps.Logger)
		return nil
	}

	client, err := m.genaiClient(deps)
	if err != nil {
		return err
	}
	deps.Embedder = siteslog.NewLoggingEmbedder(gemini.NewEmbedder(client, model, 0), deps.Logger)
	return nil
}

func (m *Main) wireGenerator(deps *Dependencies) error {
	client, err := m.genaiClient(deps)
	if err != nil {
		return err
	}
	deps.Generator = siteslog.NewLoggingGenerator(gemini.NewGenerator(client, deps.Config.Retrieval.GenerationModel), deps.Logger)

	if deps.Config.Retrieval.ContextTokens > 0 {
		tc, err := gemini.NewTokenCounter(tokenizerModel)
		if err != nil {
			return err
		}
		deps.TokenCounter = tc
	}
	return nil
}

func (m *Main) genaiClient(deps *Dependencies) (*genai.Client, error) {
	apiKey := m.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(deps.Stderr, "GEMINI_API_KEY environment variable not set. Get an API key at https://aistudio.google.com/apikey")
		return nil, siteqa.Errorf(siteqa.EINVALID, "GEMINI_API_KEY not set")
	}
	client, err := genai.NewClient(deps.Ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		fmt.Fprintln(deps.Stderr, "Hint: Check your GEMINI_API_KEY is valid")
		return nil, fmt.Errorf("failed to connect to Gemini API: %w", err)
	}
	return client, nil
}

// hashDimension parses "hash" and "hash-<dim>" model names.
func hashDimension(model string) (int, bool) {
	if model == "hash" {
		return index.DefaultHashDimension, true
	}
	rest, ok := strings.CutPrefix(model, "hash-")
	if !ok {
		return 0, false
	}
	var dim int
	if _, err := fmt.Sscanf(rest, "%d", &dim); err != nil || dim <= 0 {
		return 0, false
	}
	return dim, true
}

func newLogger(verbose bool, stderr io.Writer) *slog.Logger {
	if !verbose {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func (d *Dependencies) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Dependencies) runID() string {
	if d.NewRunID != nil {
		return d.NewRunID()
	}
	return uuid.NewString()
}
