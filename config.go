package siteqa

import "time"

// AllowPolicy decides which hosts a crawl may follow links into.
type AllowPolicy string

// Allow policies.
const (
	AllowSameHost AllowPolicy = "same-host"
	AllowSameSite AllowPolicy = "same-site"
	AllowAny      AllowPolicy = "any"
)

// Default configuration values.
const (
	DefaultResultsDir        = "results"
	DefaultIndexPath         = "index/index.db"
	DefaultMaxDepth          = 3
	DefaultMaxPages          = 1000
	DefaultConcurrency       = 4
	DefaultRenderConcurrency = 2
	DefaultRenderTimeout     = 30 * time.Second
	DefaultSettleDelay       = 1500 * time.Millisecond
	DefaultHTTPTimeout       = 15 * time.Second
	DefaultDownloadTimeout   = 60 * time.Second
	DefaultMaxFileSize       = 10 << 20
	DefaultMaxUnitChars      = 1200
	DefaultBatchSize         = 64
	DefaultTopK              = 5
	DefaultMinScore          = 0.375
	DefaultMaxFallbackLinks  = 3
	DefaultContextChars      = 12000
	DefaultEmbeddingModel    = "gemini-embedding-001"
	DefaultGenerationModel   = "gemini-2.5-flash"
	DefaultUserAgent         = "siteqa/1.0"
)

// Config holds every tunable of the pipeline. It is passed explicitly to
// the components that need it; nothing reads global state.
type Config struct {
	ResultsDir string
	IndexPath  string
	Crawl      CrawlConfig
	Fetch      FetchConfig
	Clean      CleanConfig
	Index      IndexConfig
	Retrieval  RetrievalConfig
}

// CrawlConfig bounds a crawl run.
type CrawlConfig struct {
	MaxDepth           int
	MaxPages           int
	Concurrency        int
	Allow              AllowPolicy
	Recrawl            bool
	SkipExtensions     []string
	DocumentExtensions []string
	Include            []string
	Exclude            []string
}

// FetchConfig controls the fetch strategy.
type FetchConfig struct {
	RenderTimeout     time.Duration
	SettleDelay       time.Duration
	HTTPTimeout       time.Duration
	DownloadTimeout   time.Duration
	MaxFileSize       int64
	RenderConcurrency int
	UserAgent         string
	DisableRender     bool
}

// CleanConfig controls how corpus records become text units.
type CleanConfig struct {
	DropBlockTypes []BlockType
	MaxUnitChars   int
}

// IndexConfig controls index builds.
type IndexConfig struct {
	EmbeddingModel string
	BatchSize      int
}

// RetrievalConfig controls question answering.
type RetrievalConfig struct {
	TopK             int
	MinScore         float64
	MaxFallbackLinks int
	ContextChars     int
	ContextTokens    int
	GenerationModel  string
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		ResultsDir: DefaultResultsDir,
		IndexPath:  DefaultIndexPath,
		Crawl: CrawlConfig{
			MaxDepth:           DefaultMaxDepth,
			MaxPages:           DefaultMaxPages,
			Concurrency:        DefaultConcurrency,
			Allow:              AllowSameHost,
			SkipExtensions:     append([]string(nil), SkipExtensions...),
			DocumentExtensions: append([]string(nil), DocumentExtensions...),
		},
		Fetch: FetchConfig{
			RenderTimeout:     DefaultRenderTimeout,
			SettleDelay:       DefaultSettleDelay,
			HTTPTimeout:       DefaultHTTPTimeout,
			DownloadTimeout:   DefaultDownloadTimeout,
			MaxFileSize:       DefaultMaxFileSize,
			RenderConcurrency: DefaultRenderConcurrency,
			UserAgent:         DefaultUserAgent,
		},
		Clean: CleanConfig{
			DropBlockTypes: []BlockType{BlockNavigation, BlockHeader, BlockFooter},
			MaxUnitChars:   DefaultMaxUnitChars,
		},
		Index: IndexConfig{
			EmbeddingModel: DefaultEmbeddingModel,
			BatchSize:      DefaultBatchSize,
		},
		Retrieval: RetrievalConfig{
			TopK:             DefaultTopK,
			MinScore:         DefaultMinScore,
			MaxFallbackLinks: DefaultMaxFallbackLinks,
			ContextChars:     DefaultContextChars,
			GenerationModel:  DefaultGenerationModel,
		},
	}
}

// Validate returns EINVALID if any setting is out of range.
func (c *Config) Validate() error {
	if c.ResultsDir == "" {
		return Errorf(EINVALID, "results directory required")
	}
	if c.IndexPath == "" {
		return Errorf(EINVALID, "index path required")
	}
	if c.Crawl.MaxDepth < 0 {
		return Errorf(EINVALID, "max depth must not be negative")
	}
	if c.Crawl.MaxPages <= 0 {
		return Errorf(EINVALID, "max pages must be positive")
	}
	if c.Crawl.Concurrency <= 0 {
		return Errorf(EINVALID, "concurrency must be positive")
	}
	switch c.Crawl.Allow {
	case AllowSameHost, AllowSameSite, AllowAny:
	default:
		return Errorf(EINVALID, "unknown allow policy %q", c.Crawl.Allow)
	}
	if c.Fetch.MaxFileSize <= 0 {
		return Errorf(EINVALID, "max file size must be positive")
	}
	if c.Fetch.RenderTimeout <= 0 || c.Fetch.HTTPTimeout <= 0 || c.Fetch.DownloadTimeout <= 0 {
		return Errorf(EINVALID, "fetch timeouts must be positive")
	}
	if c.Fetch.SettleDelay < 0 {
		return Errorf(EINVALID, "settle delay must not be negative")
	}
	if c.Clean.MaxUnitChars <= 0 {
		return Errorf(EINVALID, "max unit chars must be positive")
	}
	if c.Index.BatchSize <= 0 {
		return Errorf(EINVALID, "batch size must be positive")
	}
	if c.Retrieval.TopK <= 0 {
		return Errorf(EINVALID, "top k must be positive")
	}
	if c.Retrieval.MinScore < -1 || c.Retrieval.MinScore > 1 {
		return Errorf(EINVALID, "min score must be within [-1, 1]")
	}
	if c.Retrieval.MaxFallbackLinks < 0 {
		return Errorf(EINVALID, "max fallback links must not be negative")
	}
	if c.Retrieval.ContextChars <= 0 {
		return Errorf(EINVALID, "context chars must be positive")
	}
	return nil
}
