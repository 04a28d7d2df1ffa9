package gemini

import (
	"context"
	"strings"

	"github.com/fwojciec/siteqa"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// Ensure Embedder implements siteqa.Embedder at compile time.
var _ siteqa.Embedder = (*Embedder)(nil)

const (
	// maxBatch is the most texts the API accepts in one embed request.
	maxBatch = 100

	defaultRequestsPerSecond = 2
	defaultConcurrency       = 2
)

// Embedder implements siteqa.Embedder using the Gemini embedding API.
// Requests are throttled by a shared limiter so large index builds stay
// under the API quota.
type Embedder struct {
	client  *genai.Client
	model   string
	limiter *rate.Limiter

	// Concurrency bounds in-flight requests for one Embed call.
	Concurrency int
}

// NewEmbedder creates an Embedder for model allowing rps requests per
// second. Zero values select the defaults.
func NewEmbedder(client *genai.Client, model string, rps float64) *Embedder {
	if model == "" {
		model = siteqa.DefaultEmbeddingModel
	}
	if rps <= 0 {
		rps = defaultRequestsPerSecond
	}
	return &Embedder{
		client:      client,
		model:       model,
		limiter:     rate.NewLimiter(rate.Limit(rps), 1),
		Concurrency: defaultConcurrency,
	}
}

// Model returns the embedding model name.
func (e *Embedder) Model() string {
	return e.model
}

// Embed returns one vector per text, in input order.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, siteqa.Errorf(siteqa.EINVALID, "text %d is empty", i)
		}
	}

	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(e.Concurrency, 1))
	for start := 0; start < len(texts); start += maxBatch {
		end := min(start+maxBatch, len(texts))
		g.Go(func() error {
			vectors, err := e.embedBatch(gctx, texts[start:end])
			if err != nil {
				return err
			}
			copy(out[start:end], vectors)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	result, err := e.client.Models.EmbedContent(ctx, e.model, contents, nil)
	if err != nil {
		return nil, siteqa.WrapError(siteqa.EINDEX, err, "gemini embed: %v", err)
	}
	if result == nil || len(result.Embeddings) != len(texts) {
		return nil, siteqa.Errorf(siteqa.EINDEX, "gemini returned %d embeddings for %d texts", embeddingCount(result), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, emb := range result.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, siteqa.Errorf(siteqa.EINDEX, "gemini returned an empty embedding for text %d", i)
		}
		vectors[i] = emb.Values
	}
	return vectors, nil
}

func embeddingCount(r *genai.EmbedContentResponse) int {
	if r == nil {
		return 0
	}
	return len(r.Embeddings)
}
