// Package retrieve answers questions from the vector index, falling back
// to the crawl link graphs when no indexed unit is similar enough.
package retrieve

import (
	"cmp"
	"context"
	"log/slog"
	"net/url"
	"slices"
	"strings"

	"github.com/fwojciec/siteqa"
	"github.com/fwojciec/siteqa/snowball"
)

// Candidate is one piece of context offered to the generator.
type Candidate struct {
	URL   string
	Text  string
	Score float64

	// ViaLinks is set when the candidate came from the link-graph lookup
	// rather than similarity search.
	ViaLinks bool
}

// Source is a cited URL in an answer.
type Source struct {
	URL      string
	Score    float64
	ViaLinks bool
}

// Label formats the source the way answers cite it.
func (s Source) Label() string {
	if s.ViaLinks {
		return s.URL + ", found via link search"
	}
	return s.URL + ", match score " + formatScore(s.Score)
}

// Result is the outcome of a question.
type Result struct {
	Answer  string
	Sources []Source

	// LowConfidence is set when no similarity hit reached MinScore and the
	// answer is based on the link-graph lookup.
	LowConfidence bool
}

// Engine implements hybrid retrieval and answer generation.
type Engine struct {
	// Index may be nil, in which case every question uses the link graph.
	Index siteqa.VectorIndex

	// Model is the embedding model the index was built with. When set,
	// the embedder must report the same model.
	Model    string
	Embedder siteqa.Embedder

	Edges     siteqa.EdgeLister
	Units     siteqa.UnitFinder
	Generator siteqa.Generator

	// Tokens is optional; when set, context is also capped at
	// Config.ContextTokens.
	Tokens siteqa.TokenCounter

	Config siteqa.RetrievalConfig
	Logger *slog.Logger
}

// Ask retrieves context for query and generates an answer from it.
func (e *Engine) Ask(ctx context.Context, query string) (*Result, error) {
	candidates, low, err := e.Retrieve(ctx, query)
	if err != nil {
		return nil, err
	}

	contextText, used, err := e.assemble(ctx, candidates)
	if err != nil {
		return nil, err
	}

	answer, err := e.Generator.Generate(ctx, contextText, query)
	if err != nil {
		if siteqa.ErrorCode(err) == siteqa.EGENERATE {
			return nil, err
		}
		return nil, siteqa.WrapError(siteqa.EGENERATE, err, "generating answer: %v", err)
	}

	return &Result{
		Answer:        answer,
		Sources:       sources(used),
		LowConfidence: low,
	}, nil
}

// Retrieve returns ranked candidates for query. The boolean reports
// whether similarity search fell short and the link graph was used.
// Returns ENORESULTS when neither source yields anything.
func (e *Engine) Retrieve(ctx context.Context, query string) ([]Candidate, bool, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, false, siteqa.Errorf(siteqa.EINVALID, "question required")
	}

	hits, err := e.search(ctx, query)
	if err != nil {
		return nil, false, err
	}

	minScore := e.Config.MinScore
	var candidates []Candidate
	for _, h := range hits {
		if h.Score < minScore {
			continue
		}
		candidates = append(candidates, Candidate{
			URL:   h.Entry.Unit.URL,
			Text:  h.Entry.Unit.Text,
			Score: h.Score,
		})
	}
	if len(candidates) > 0 {
		return candidates, false, nil
	}

	best := 0.0
	if len(hits) > 0 {
		best = hits[0].Score
	}
	e.logger().Warn("low retrieval confidence, using link search",
		"query", query,
		"best_score", best,
		"min_score", minScore,
	)

	candidates, err = e.linkSearch(ctx, query)
	if err != nil {
		return nil, true, err
	}
	if len(candidates) == 0 {
		return nil, true, siteqa.Errorf(siteqa.ENORESULTS, "no relevant content found for %q", query)
	}
	return candidates, true, nil
}

func (e *Engine) search(ctx context.Context, query string) ([]siteqa.Hit, error) {
	if e.Index == nil || e.Index.Len() == 0 {
		return nil, nil
	}
	if e.Model != "" && e.Embedder.Model() != e.Model {
		return nil, siteqa.Errorf(siteqa.EINDEX, "index was built with model %q but queries use %q", e.Model, e.Embedder.Model())
	}

	vectors, err := e.Embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, siteqa.WrapError(siteqa.EINDEX, err, "embedding question: %v", err)
	}
	if len(vectors) != 1 || len(vectors[0]) != e.Index.Dimension() {
		return nil, siteqa.Errorf(siteqa.EINDEX, "question embedding does not match index dimension %d", e.Index.Dimension())
	}

	topK := e.Config.TopK
	if topK <= 0 {
		topK = siteqa.DefaultTopK
	}
	return e.Index.Search(vectors[0], topK), nil
}

type linkMatch struct {
	url   string
	score float64
	order int
}

// linkSearch matches query terms against the anchor text and URL path of
// every recorded edge, then follows one hop of edges from the matched
// pages at half their score.
func (e *Engine) linkSearch(ctx context.Context, query string) ([]Candidate, error) {
	if e.Edges == nil || e.Units == nil {
		return nil, nil
	}
	terms := snowball.TermSet(query)
	if len(terms) == 0 {
		return nil, nil
	}

	edges := e.Edges.Edges()
	direct := make(map[string]*linkMatch)
	for i, edge := range edges {
		n := matchedTerms(terms, edge)
		if n == 0 {
			continue
		}
		score := float64(n) / float64(len(terms))
		if m, ok := direct[edge.Child]; ok {
			m.score = max(m.score, score)
			continue
		}
		direct[edge.Child] = &linkMatch{url: edge.Child, score: score, order: i}
	}

	matches := make(map[string]*linkMatch, len(direct))
	for u, m := range direct {
		matches[u] = &linkMatch{url: m.url, score: m.score, order: m.order}
	}
	for i, edge := range edges {
		parent, ok := direct[edge.Parent]
		if !ok {
			continue
		}
		score := parent.score / 2
		if m, ok := matches[edge.Child]; ok {
			m.score = max(m.score, score)
			continue
		}
		matches[edge.Child] = &linkMatch{url: edge.Child, score: score, order: len(edges) + i}
	}

	ranked := make([]*linkMatch, 0, len(matches))
	for _, m := range matches {
		ranked = append(ranked, m)
	}
	slices.SortFunc(ranked, func(a, b *linkMatch) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return cmp.Compare(a.order, b.order)
	})

	limit := e.Config.MaxFallbackLinks
	if limit <= 0 {
		limit = siteqa.DefaultMaxFallbackLinks
	}

	var out []Candidate
	for _, m := range ranked {
		if len(out) == limit {
			break
		}
		units, err := e.Units.FindUnits(ctx, m.url)
		if siteqa.ErrorCode(err) == siteqa.ENOTFOUND {
			continue
		}
		if err != nil {
			return nil, err
		}
		text := joinUnits(units)
		if text == "" {
			continue
		}
		out = append(out, Candidate{URL: m.url, Text: text, Score: m.score, ViaLinks: true})
	}
	return out, nil
}

func matchedTerms(terms map[string]struct{}, edge siteqa.LinkEdge) int {
	edgeTerms := snowball.TermSet(edge.Anchor + " " + pathText(edge.Child))
	n := 0
	for t := range terms {
		if _, ok := edgeTerms[t]; ok {
			n++
		}
	}
	return n
}

// pathText returns the path of rawURL, or the raw string when it does not
// parse.
func pathText(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Path
}

func joinUnits(units []siteqa.TextUnit) string {
	parts := make([]string, 0, len(units))
	for _, u := range units {
		if t := strings.TrimSpace(u.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n")
}

// sources lists each URL once, in rank order, with its best score.
func sources(candidates []Candidate) []Source {
	var out []Source
	index := make(map[string]int)
	for _, c := range candidates {
		if i, ok := index[c.URL]; ok {
			out[i].Score = max(out[i].Score, c.Score)
			continue
		}
		index[c.URL] = len(out)
		out = append(out, Source{URL: c.URL, Score: c.Score, ViaLinks: c.ViaLinks})
	}
	return out
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// Edges merges the edges of several link graphs, in the order given.
type Edges []siteqa.EdgeLister

// Compile-time interface verification.
var _ siteqa.EdgeLister = Edges(nil)

func (m Edges) Edges() []siteqa.LinkEdge {
	var out []siteqa.LinkEdge
	for _, l := range m {
		out = append(out, l.Edges()...)
	}
	return out
}
