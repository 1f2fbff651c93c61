// Package index implements the embedding index: a durable mapping from
// content id to text, metadata, and embedding vector, organized into named
// collections and queryable by vector similarity.
package index

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/ecotech/contentforge/internal/embedding"
	"github.com/ecotech/contentforge/internal/models"
	"github.com/ecotech/contentforge/pkg/logger"
)

// SchemaHint describes a collection at creation time.
type SchemaHint struct {
	// Dimension of the embedding vectors. Zero lets the store infer it from
	// the first upsert.
	Dimension   int
	Description string
}

// QueryResult pairs a retrieved item with its similarity score. The
// Retriever turns these into explained RetrievalResults.
type QueryResult struct {
	Item  *models.ContentItem
	Score float64
}

// Stats summarizes a collection for observability.
type Stats struct {
	ItemCount          int                        `json:"item_count"`
	AvgBrandVoiceScore float64                    `json:"avg_brand_voice_score"`
	CountsByType       map[models.ContentType]int `json:"counts_by_type"`
}

// Index combines an embedding backend, a vector store, and a doc store into
// the content index. Retrieval is read-only; the only mutation is Upsert.
type Index struct {
	embedder embedding.Embedding
	vectors  VectorStore
	docs     *DocStore
	log      *logger.Logger
}

// New creates an Index over the given embedding backend and vector store.
func New(embedder embedding.Embedding, vectors VectorStore, log *logger.Logger) *Index {
	return &Index{
		embedder: embedder,
		vectors:  vectors,
		docs:     NewDocStore(),
		log:      log,
	}
}

// CreateCollection creates a named collection if absent. Calling it again
// for an existing collection is not an error.
func (ix *Index) CreateCollection(ctx context.Context, name string, hint SchemaHint) error {
	if err := ix.vectors.CreateCollection(ctx, name, hint.Dimension); err != nil {
		return err
	}
	ix.docs.CreateCollection(name)
	return nil
}

// Upsert embeds each item's text and stores vector, text, and metadata keyed
// by item id, overwriting on collision. It returns the count written. When
// embedding fails for some items, the ones that succeeded are still
// committed and the error reports exactly which ids failed.
func (ix *Index) Upsert(ctx context.Context, collection string, items []*models.ContentItem) (int, error) {
	if !ix.docs.Has(collection) {
		return 0, models.ErrCollectionNotFound
	}
	if len(items) == 0 {
		return 0, nil
	}

	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = item.Text
	}

	vectors, failures := ix.embedAll(ctx, texts, items)

	var good []*models.ContentItem
	var recs []Record
	for i, item := range items {
		if vectors[i] == nil {
			continue
		}
		good = append(good, item)
		recs = append(recs, Record{
			ID:        item.ID,
			Embedding: vectors[i],
			Metadata:  recordMetadata(item),
		})
	}

	if len(good) > 0 {
		eg, gCtx := errgroup.WithContext(ctx)
		eg.Go(func() error {
			return ix.docs.Add(collection, good)
		})
		eg.Go(func() error {
			return ix.vectors.Upsert(gCtx, collection, recs)
		})
		if err := eg.Wait(); err != nil {
			return 0, fmt.Errorf("failed to commit upsert batch: %w", err)
		}
	}

	if len(failures) > 0 {
		return len(good), &models.IndexWriteError{
			Collection: collection,
			Written:    len(good),
			Failed:     failures,
		}
	}

	ix.log.Info(fmt.Sprintf("Upserted %d items into collection %q", len(good), collection))
	return len(good), nil
}

// embedAll embeds all texts in one batch call and falls back to per-item
// embedding when the batch fails, so one bad item cannot sink the others.
// The returned slice is parallel to items; nil marks a failed entry.
func (ix *Index) embedAll(ctx context.Context, texts []string, items []*models.ContentItem) ([][]float32, []models.ItemFailure) {
	vectors, err := ix.embedder.EmbedBatch(ctx, texts)
	if err == nil && len(vectors) == len(texts) {
		return vectors, nil
	}

	ix.log.WithError(err).Warn("Batch embedding failed, retrying items individually")

	vectors = make([][]float32, len(texts))
	var failures []models.ItemFailure
	for i, text := range texts {
		vec, embErr := ix.embedder.Embed(ctx, text)
		if embErr != nil {
			failures = append(failures, models.ItemFailure{ID: items[i].ID, Err: embErr})
			continue
		}
		vectors[i] = vec
	}
	return vectors, failures
}

// Query embeds queryText, runs a k-nearest-neighbor search restricted by the
// filter, and returns the entries whose similarity clears the threshold,
// ordered descending by score with ties broken by id. An empty result is not
// an error.
func (ix *Index) Query(ctx context.Context, collection, queryText string, k int, threshold float64, filter *Filter) ([]QueryResult, error) {
	if !ix.docs.Has(collection) {
		return nil, models.ErrCollectionNotFound
	}

	queryVec, err := ix.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	return ix.searchByVector(ctx, collection, queryVec, k, threshold, filter, "")
}

// QueryByID runs a similarity search seeded by the stored vector of an
// existing item, excluding the item itself. No re-embedding happens.
func (ix *Index) QueryByID(ctx context.Context, collection, id string, k int, threshold float64) ([]QueryResult, error) {
	if !ix.docs.Has(collection) {
		return nil, models.ErrCollectionNotFound
	}
	rec, err := ix.vectors.Fetch(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	// Fetch one extra so excluding the seed item still leaves k results.
	return ix.searchByVector(ctx, collection, rec.Embedding, k+1, threshold, nil, id)
}

func (ix *Index) searchByVector(ctx context.Context, collection string, vec []float32, k int, threshold float64, filter *Filter, excludeID string) ([]QueryResult, error) {
	matches, err := ix.vectors.Search(ctx, collection, vec, k, filter)
	if err != nil {
		return nil, err
	}

	results := make([]QueryResult, 0, len(matches))
	for _, m := range matches {
		if m.ID == excludeID {
			continue
		}
		if m.Score < threshold {
			continue
		}
		item, err := ix.docs.Get(collection, m.ID)
		if err != nil {
			ix.log.Warn(fmt.Sprintf("Vector hit %q has no document in collection %q", m.ID, collection))
			continue
		}
		results = append(results, QueryResult{Item: item, Score: m.Score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Item.ID < results[j].Item.ID
	})
	if k > 0 && excludeID != "" && len(results) > k-1 {
		results = results[:k-1]
	}
	return results, nil
}

// Item returns the indexed item with the given id.
func (ix *Index) Item(ctx context.Context, collection, id string) (*models.ContentItem, error) {
	return ix.docs.Get(collection, id)
}

// Stats returns item count and aggregate metadata for a collection.
func (ix *Index) Stats(ctx context.Context, collection string) (*Stats, error) {
	items, err := ix.docs.All(collection)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		ItemCount:    len(items),
		CountsByType: make(map[models.ContentType]int),
	}
	scored := 0
	var sum float64
	for _, item := range items {
		stats.CountsByType[item.ContentType]++
		if item.BrandVoiceScore != nil {
			sum += *item.BrandVoiceScore
			scored++
		}
	}
	if scored > 0 {
		stats.AvgBrandVoiceScore = sum / float64(scored)
	}
	return stats, nil
}

// recordMetadata flattens the filterable fields of an item into the vector
// store record.
func recordMetadata(item *models.ContentItem) map[string]interface{} {
	meta := map[string]interface{}{
		models.MetaKeyContentType: string(item.ContentType),
		models.MetaKeyTitle:       item.Title,
	}
	if item.BrandVoiceScore != nil {
		meta[models.MetaKeyBrandVoiceScore] = *item.BrandVoiceScore
	}
	for k, v := range item.Metadata {
		if _, reserved := meta[k]; !reserved {
			meta[k] = v
		}
	}
	return meta
}
