// Package retriever turns raw queries into ranked, explained context sets
// for downstream generation. All operations are read-only and safe for
// concurrent use.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ecotech/contentforge/internal/index"
	"github.com/ecotech/contentforge/internal/models"
	"github.com/ecotech/contentforge/pkg/logger"
)

// Defaults applied when a caller passes zero values.
const (
	DefaultTopK           = 5
	DefaultThreshold      = 0.7
	BrandVoiceScoreFloor  = 0.7
	brandVoiceThreshold   = 0.5
	embedRetryAttempts    = 2
	embedRetryBaseBackoff = 100 * time.Millisecond
)

// Retriever builds explained context sets on top of the embedding index.
type Retriever struct {
	index           *index.Index
	collection      string
	brandCollection string
	log             *logger.Logger
}

// New creates a Retriever over the primary content collection and the
// dedicated brand voice example collection.
func New(ix *index.Index, collection, brandCollection string, log *logger.Logger) *Retriever {
	return &Retriever{
		index:           ix,
		collection:      collection,
		brandCollection: brandCollection,
		log:             log,
	}
}

// RetrieveContext returns the top-k context items for a query, optionally
// restricted to one content type, each with a templated relevance
// explanation. Deterministic given fixed index state and inputs.
func (r *Retriever) RetrieveContext(ctx context.Context, query string, contentType models.ContentType, k int, threshold float64) ([]models.RetrievalResult, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	var filter *index.Filter
	if contentType != "" {
		filter = &index.Filter{Equals: map[string]interface{}{models.MetaKeyContentType: string(contentType)}}
	}

	results, err := r.queryWithRetry(ctx, r.collection, query, k, threshold, filter)
	if err != nil {
		return nil, err
	}
	return r.explainAll(query, results, r.collection), nil
}

// RetrieveBrandVoiceExamples queries the brand voice example collection
// using the content itself as the query, restricted to items whose stored
// brand voice score clears the exemplar floor.
func (r *Retriever) RetrieveBrandVoiceExamples(ctx context.Context, content string, topK int) ([]models.RetrievalResult, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	floor := BrandVoiceScoreFloor
	filter := &index.Filter{
		Ranges: map[string]index.Range{
			models.MetaKeyBrandVoiceScore: {Min: &floor},
		},
	}

	results, err := r.queryWithRetry(ctx, r.brandCollection, content, topK, brandVoiceThreshold, filter)
	if err != nil {
		return nil, err
	}
	return r.explainAll(content, results, r.brandCollection), nil
}

// RecommendSimilar looks up the stored vector of an indexed item and returns
// the most similar other items. With diversify set, near-duplicates of
// already-selected results are demoted so the set is not dominated by
// near-identical items.
func (r *Retriever) RecommendSimilar(ctx context.Context, contentID string, k int, diversify bool) ([]models.RetrievalResult, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	fetch := k
	if diversify {
		fetch = k * 3
	}
	results, err := r.index.QueryByID(ctx, r.collection, contentID, fetch, 0)
	if err != nil {
		return nil, err
	}

	if diversify {
		results = diversifyResults(results, k)
	} else if len(results) > k {
		results = results[:k]
	}

	item, err := r.index.Item(ctx, r.collection, contentID)
	if err != nil {
		return nil, err
	}
	return r.explainAll(item.Title, results, r.collection), nil
}

// HybridSearch combines semantic similarity with keyword overlap via a
// weighted sum. Weights that do not sum to one are normalized. This catches
// exact terminology matches that pure embedding similarity can miss.
func (r *Retriever) HybridSearch(ctx context.Context, query string, k int, semanticWeight, keywordWeight float64) ([]models.RetrievalResult, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	if total := semanticWeight + keywordWeight; total > 0 && total != 1 {
		semanticWeight /= total
		keywordWeight /= total
	} else if total <= 0 {
		semanticWeight, keywordWeight = 0.7, 0.3
	}

	// Over-fetch semantic candidates with no threshold so keyword-heavy
	// matches low on semantic score still get a chance to surface.
	candidates, err := r.queryWithRetry(ctx, r.collection, query, k*2, 0, nil)
	if err != nil {
		return nil, err
	}

	queryTerms := tokenize(query)
	for i := range candidates {
		item := candidates[i].Item
		contentOverlap := termOverlap(queryTerms, tokenize(item.Text))
		titleOverlap := termOverlap(queryTerms, tokenize(item.Title))
		keywordScore := contentOverlap*0.7 + titleOverlap*0.3
		candidates[i].Score = semanticWeight*candidates[i].Score + keywordWeight*keywordScore
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Item.ID < candidates[j].Item.ID
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	out := r.explainAll(query, candidates, r.collection)
	for i := range out {
		out[i].RelevanceExplanation += fmt.Sprintf(" | hybrid score: %.3f", out[i].SimilarityScore)
	}
	return out, nil
}

// queryWithRetry retries transient index failures with bounded backoff.
// Addressing errors are surfaced immediately.
func (r *Retriever) queryWithRetry(ctx context.Context, collection, query string, k int, threshold float64, filter *index.Filter) ([]index.QueryResult, error) {
	var lastErr error
	for attempt := 0; attempt <= embedRetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * embedRetryBaseBackoff):
			}
		}

		results, err := r.index.Query(ctx, collection, query, k, threshold, filter)
		if err == nil {
			return results, nil
		}
		if errors.Is(err, models.ErrCollectionNotFound) || errors.Is(err, models.ErrContentNotFound) {
			return nil, err
		}
		lastErr = err
		r.log.WithError(err).Warn(fmt.Sprintf("Retrieval attempt %d failed for collection %q", attempt+1, collection))
	}
	return nil, lastErr
}

func (r *Retriever) explainAll(query string, results []index.QueryResult, collection string) []models.RetrievalResult {
	out := make([]models.RetrievalResult, len(results))
	for i, res := range results {
		out[i] = models.RetrievalResult{
			Item:                 res.Item,
			SimilarityScore:      res.Score,
			RelevanceExplanation: explainRelevance(query, res.Item, res.Score),
			MatchedCollection:    collection,
		}
	}
	return out
}

// explainRelevance is a deterministic templating step over score band,
// shared terms, content type, and brand alignment. No generation call is
// involved.
func explainRelevance(query string, item *models.ContentItem, score float64) string {
	var parts []string

	switch {
	case score > 0.9:
		parts = append(parts, "very high semantic similarity")
	case score > 0.8:
		parts = append(parts, "high semantic similarity")
	case score > 0.7:
		parts = append(parts, "good semantic similarity")
	default:
		parts = append(parts, "moderate semantic similarity")
	}

	shared := sharedTerms(tokenize(query), tokenize(item.Title+" "+item.Text))
	if len(shared) > 0 {
		if len(shared) > 3 {
			shared = shared[:3]
		}
		parts = append(parts, "shared terms: "+strings.Join(shared, ", "))
	}

	if item.ContentType != "" {
		parts = append(parts, "content type: "+string(item.ContentType))
	}

	if item.BrandVoiceScore != nil {
		switch {
		case *item.BrandVoiceScore > 0.8:
			parts = append(parts, "strong brand voice alignment")
		case *item.BrandVoiceScore > 0.6:
			parts = append(parts, "good brand voice alignment")
		}
	}

	return fmt.Sprintf("Relevant due to %s (score: %.3f)", strings.Join(parts, ", "), score)
}

// diversifyResults re-ranks the over-fetched candidate list so repeated
// content types and near-duplicate titles are demoted once the set already
// contains a representative.
func diversifyResults(results []index.QueryResult, k int) []index.QueryResult {
	picked := make([]index.QueryResult, 0, k)
	usedTypes := make(map[models.ContentType]bool)

	isDuplicate := func(item *models.ContentItem) bool {
		for _, p := range picked {
			if termOverlap(tokenize(item.Title), tokenize(p.Item.Title)) > 0.6 {
				return true
			}
		}
		return false
	}

	for _, res := range results {
		if len(picked) >= k {
			break
		}
		if usedTypes[res.Item.ContentType] || isDuplicate(res.Item) {
			continue
		}
		picked = append(picked, res)
		usedTypes[res.Item.ContentType] = true
	}

	// Fill any remaining slots from the top of the original ranking.
	for _, res := range results {
		if len(picked) >= k {
			break
		}
		already := false
		for _, p := range picked {
			if p.Item.ID == res.Item.ID {
				already = true
				break
			}
		}
		if !already {
			picked = append(picked, res)
		}
	}
	return picked
}

// tokenize splits text into lowercase terms, dropping single characters and
// trimming a plural "s" so "costs" and "cost" compare equal.
func tokenize(text string) []string {
	words := strings.Fields(strings.ToLower(text))
	terms := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.Trim(w, ".,!?:;\"'()")
		if len(w) > 3 && strings.HasSuffix(w, "s") {
			w = strings.TrimSuffix(w, "s")
		}
		if len(w) >= 2 {
			terms = append(terms, w)
		}
	}
	return terms
}

func termOverlap(query, text []string) float64 {
	if len(query) == 0 {
		return 0
	}
	set := make(map[string]bool, len(text))
	for _, t := range text {
		set[t] = true
	}
	matched := 0
	for _, q := range query {
		if set[q] {
			matched++
		}
	}
	return float64(matched) / float64(len(query))
}

func sharedTerms(query, text []string) []string {
	set := make(map[string]bool, len(text))
	for _, t := range text {
		set[t] = true
	}
	var shared []string
	seen := make(map[string]bool)
	for _, q := range query {
		if set[q] && !seen[q] {
			shared = append(shared, q)
			seen[q] = true
		}
	}
	sort.Strings(shared)
	return shared
}
