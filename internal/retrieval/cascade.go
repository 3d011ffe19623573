package retrieval

import (
	"context"
	"fmt"

	"github.com/docent0/docent/internal/log"
)

// VectorIndex is the similarity-search collaborator.
// Implementations return fragments ranked by similarity to the query;
// minSimilarity <= 0 disables the threshold (plain top-K).
//
// Interface defined by the consumer, not the provider (like io.Reader,
// http.RoundTripper): the cascade depends on this abstraction, the store
// package satisfies it.
type VectorIndex interface {
	Search(ctx context.Context, query string, topK int, minSimilarity float64) ([]Fragment, error)
}

// KeywordIndex is the exact-substring search collaborator.
type KeywordIndex interface {
	FindByContent(ctx context.Context, substring string, limit int) ([]Fragment, error)
}

const (
	// adaptiveTopKCap bounds the doubled re-query when filtering has
	// removed too many raw hits.
	adaptiveTopKCap = 50

	// keywordHitsPerToken bounds the per-keyword substring search.
	keywordHitsPerToken = 3
)

// Config holds the cascade retrieval policy.
type Config struct {
	// HighSimilarity is the strict first-pass threshold.
	HighSimilarity float64

	// StandardSimilarity is the relaxed retry threshold.
	StandardSimilarity float64

	// TopK is the number of fragments requested per pass.
	TopK int

	// MaxMerged caps the merged result size; keyword additions are limited
	// to max(0, MaxMerged - vectorHits).
	MaxMerged int
}

// Cascade queries the vector index at decreasing strictness, augments with
// exact keyword search, filters out low-quality fragments, and merges the
// result with keyword hits in front.
//
// Cascade is stateless per query and safe for concurrent use. Both the
// single-shot and streaming router paths consume the same Retrieve method,
// so the threshold logic cannot diverge between them.
type Cascade struct {
	vectors  VectorIndex
	keywords KeywordIndex
	filter   *QualityFilter
	cfg      Config
	logger   log.Logger
}

// NewCascade creates a retrieval cascade.
// keywords may be nil, in which case keyword augmentation is skipped.
func NewCascade(vectors VectorIndex, keywords KeywordIndex, filter *QualityFilter, cfg Config, logger log.Logger) (*Cascade, error) {
	if vectors == nil {
		return nil, fmt.Errorf("vector index is required")
	}
	if filter == nil {
		return nil, fmt.Errorf("quality filter is required")
	}
	if cfg.TopK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", cfg.TopK)
	}
	if cfg.HighSimilarity < cfg.StandardSimilarity {
		return nil, fmt.Errorf("high threshold %g below standard threshold %g",
			cfg.HighSimilarity, cfg.StandardSimilarity)
	}
	if cfg.MaxMerged <= 0 {
		cfg.MaxMerged = 8
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Cascade{vectors: vectors, keywords: keywords, filter: filter, cfg: cfg, logger: logger}, nil
}

// Retrieve runs the cascading mode: high threshold first, then the standard
// threshold, then give up. An empty result with TierNone is not an error;
// the absence of matches above the standard threshold IS the relevance
// signal, and no further heuristics are applied.
//
// Index failures are recovered locally as empty retrieval (logged, never
// propagated): an unreachable index must degrade to the general-knowledge
// route, not fail the query.
func (c *Cascade) Retrieve(ctx context.Context, query string) Result {
	passes := []struct {
		threshold float64
		tier      Tier
	}{
		{c.cfg.HighSimilarity, TierHigh},
		{c.cfg.StandardSimilarity, TierStandard},
	}

	for _, pass := range passes {
		fragments := c.searchFiltered(ctx, query, pass.threshold)
		if len(fragments) == 0 {
			c.logger.Debug("cascade pass empty", "tier", pass.tier.String(), "threshold", pass.threshold)
			continue
		}
		return c.augment(ctx, query, fragments, pass.tier)
	}

	c.logger.Debug("cascade exhausted, no relevant content", "query_length", len(query))
	return Result{Tier: TierNone}
}

// RetrieveUnbounded runs plain top-K search without a similarity threshold,
// for callers that want best-effort grounding regardless of confidence.
// The result must still pass the relevance gate downstream.
func (c *Cascade) RetrieveUnbounded(ctx context.Context, query string) Result {
	fragments := c.searchFiltered(ctx, query, 0)
	if len(fragments) == 0 {
		return Result{Tier: TierNone}
	}
	return c.augment(ctx, query, fragments, TierUnbounded)
}

// searchFiltered queries the vector index and applies the quality filter.
// If filtering leaves fewer than TopK fragments while the raw hit count
// equals the request cap, the index likely has more usable content just
// below the cut; re-query once with a doubled (capped) K before truncating.
func (c *Cascade) searchFiltered(ctx context.Context, query string, threshold float64) []Fragment {
	raw, err := c.vectors.Search(ctx, query, c.cfg.TopK, threshold)
	if err != nil {
		c.logger.Warn("vector search failed, treating as empty retrieval", "error", err)
		return nil
	}

	filtered := c.applyFilter(raw)

	if len(filtered) < c.cfg.TopK && len(raw) == c.cfg.TopK {
		retryK := min(c.cfg.TopK*2, adaptiveTopKCap)
		c.logger.Debug("quality filter removed too many hits, re-querying",
			"raw", len(raw), "filtered", len(filtered), "retry_k", retryK)

		raw, err = c.vectors.Search(ctx, query, retryK, threshold)
		if err != nil {
			c.logger.Warn("vector re-query failed, keeping first-pass results", "error", err)
			return filtered
		}
		filtered = c.applyFilter(raw)
	}

	if len(filtered) > c.cfg.TopK {
		filtered = filtered[:c.cfg.TopK]
	}
	return filtered
}

// applyFilter keeps fragments the quality filter accepts, preserving order.
func (c *Cascade) applyFilter(fragments []Fragment) []Fragment {
	kept := make([]Fragment, 0, len(fragments))
	for _, f := range fragments {
		if c.filter.Useful(f.Text) {
			kept = append(kept, f)
		}
	}
	return kept
}

// augment runs keyword search for tokens extracted from the query,
// deduplicates against the vector hits, and prepends the keyword-only
// fragments. Keyword evidence is exact-match and higher precision than
// vector similarity, so it goes first where context truncation cannot
// reach it.
func (c *Cascade) augment(ctx context.Context, query string, vectorHits []Fragment, tier Tier) Result {
	keywordOnly := c.keywordSearch(ctx, query, vectorHits)

	// Cap keyword additions so the merged set stays bounded.
	budget := max(0, c.cfg.MaxMerged-len(vectorHits))
	if len(keywordOnly) > budget {
		keywordOnly = keywordOnly[:budget]
	}

	merged := make([]Fragment, 0, len(keywordOnly)+len(vectorHits))
	merged = append(merged, keywordOnly...)
	merged = append(merged, vectorHits...)

	c.logger.Debug("retrieval merged",
		"tier", tier.String(),
		"vector_hits", len(vectorHits),
		"keyword_hits", len(keywordOnly),
		"total", len(merged))

	return Result{Fragments: merged, Tier: tier, KeywordCount: len(keywordOnly)}
}

// keywordSearch runs the per-token substring searches and returns fragments
// not already present among the vector hits. A failing token search is
// logged and skipped; the remaining tokens still run.
func (c *Cascade) keywordSearch(ctx context.Context, query string, vectorHits []Fragment) []Fragment {
	if c.keywords == nil {
		return nil
	}

	tokens := ExtractKeywords(query)
	if len(tokens) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(vectorHits))
	for _, f := range vectorHits {
		seen[f.ID] = struct{}{}
	}

	var results []Fragment
	for _, token := range tokens {
		fragments, err := c.keywords.FindByContent(ctx, token, keywordHitsPerToken)
		if err != nil {
			c.logger.Warn("keyword search failed for token", "token", token, "error", err)
			continue
		}
		for _, f := range fragments {
			if _, ok := seen[f.ID]; ok {
				continue
			}
			seen[f.ID] = struct{}{}
			results = append(results, f)
		}
	}

	return results
}
