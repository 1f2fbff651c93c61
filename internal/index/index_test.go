package index

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/ecotech/contentforge/internal/embedding"
	"github.com/ecotech/contentforge/internal/models"
	"github.com/ecotech/contentforge/pkg/logger"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	ix := New(embedding.NewHashModel(256), NewMemoryStore(), logger.New("test", ""))
	if err := ix.CreateCollection(context.Background(), "content", SchemaHint{Dimension: 256}); err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	return ix
}

func solarItems() []*models.ContentItem {
	return []*models.ContentItem{
		{ID: "solar-install", Title: "Installation pricing", Text: "The cost of solar installation", ContentType: models.ContentTypeBlogPost},
		{ID: "solar-efficiency", Title: "Efficiency gains", Text: "Solar panel efficiency improvements", ContentType: models.ContentTypeBlogPost},
		{ID: "email-tips", Title: "Email tips", Text: "Email marketing tips", ContentType: models.ContentTypeEmailNewsletter},
	}
}

func TestQueryThresholdExcludesUnrelated(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t)
	if _, err := ix.Upsert(ctx, "content", solarItems()); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	results, err := ix.Query(ctx, "content", "solar panel costs", 5, 0.3, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2: %+v", len(results), results)
	}
	if results[0].Item.ID != "solar-efficiency" || results[1].Item.ID != "solar-install" {
		t.Errorf("wrong order: %s, %s", results[0].Item.ID, results[1].Item.ID)
	}
	for _, res := range results {
		if res.Score < 0.3 || res.Score > 1 {
			t.Errorf("score %v for %s outside (0.3, 1]", res.Score, res.Item.ID)
		}
	}
}

func TestQueryIdenticalTextScoresOne(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t)
	ix.Upsert(ctx, "content", []*models.ContentItem{
		{ID: "a", Title: "a", Text: "solar panel efficiency"},
	})

	results, err := ix.Query(ctx, "content", "solar panel efficiency", 1, 0, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if math.Abs(results[0].Score-1.0) > 1e-6 {
		t.Errorf("identical text score = %v, want 1.0", results[0].Score)
	}
}

func TestUpsertIdempotent(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t)

	items := solarItems()
	for i := 0; i < 2; i++ {
		written, err := ix.Upsert(ctx, "content", items)
		if err != nil {
			t.Fatalf("Upsert round %d: %v", i, err)
		}
		if written != len(items) {
			t.Fatalf("round %d wrote %d, want %d", i, written, len(items))
		}
	}

	stats, err := ix.Stats(ctx, "content")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.ItemCount != len(items) {
		t.Errorf("after double upsert item count = %d, want %d", stats.ItemCount, len(items))
	}

	first, err := ix.Query(ctx, "content", "solar panel costs", 5, 0.3, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	second, err := ix.Query(ctx, "content", "solar panel costs", 5, 0.3, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("result count changed between identical queries")
	}
	for i := range first {
		if first[i].Item.ID != second[i].Item.ID || first[i].Score != second[i].Score {
			t.Errorf("result %d differs between identical queries", i)
		}
	}
}

func TestUpsertOverwriteReplacesText(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t)

	ix.Upsert(ctx, "content", []*models.ContentItem{{ID: "a", Title: "v1", Text: "solar panel efficiency"}})
	ix.Upsert(ctx, "content", []*models.ContentItem{{ID: "a", Title: "v2", Text: "email marketing tips"}})

	results, err := ix.Query(ctx, "content", "solar panel efficiency", 5, 0.5, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("overwritten item still matches old text: %+v", results)
	}

	item, err := ix.Item(ctx, "content", "a")
	if err != nil {
		t.Fatalf("Item: %v", err)
	}
	if item.Title != "v2" {
		t.Errorf("item title = %q, want v2", item.Title)
	}
}

func TestQueryMissingCollection(t *testing.T) {
	ix := newTestIndex(t)
	_, err := ix.Query(context.Background(), "ghost", "anything", 5, 0.5, nil)
	if !errors.Is(err, models.ErrCollectionNotFound) {
		t.Errorf("got %v, want ErrCollectionNotFound", err)
	}
}

func TestQueryByIDExcludesSeed(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t)
	ix.Upsert(ctx, "content", solarItems())

	results, err := ix.QueryByID(ctx, "content", "solar-install", 2, 0)
	if err != nil {
		t.Fatalf("QueryByID: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for _, res := range results {
		if res.Item.ID == "solar-install" {
			t.Errorf("seed item returned in its own similarity results")
		}
	}
}

func TestQueryByIDNotFound(t *testing.T) {
	ix := newTestIndex(t)
	_, err := ix.QueryByID(context.Background(), "content", "ghost", 3, 0)
	if !errors.Is(err, models.ErrContentNotFound) {
		t.Errorf("got %v, want ErrContentNotFound", err)
	}
}

// brokenEmbedder fails the batch call and individual calls for one marked
// text, exercising the partial-failure path.
type brokenEmbedder struct {
	inner   embedding.Embedding
	badText string
}

func (e *brokenEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == e.badText {
		return nil, fmt.Errorf("embedding backend rejected text")
	}
	return e.inner.Embed(ctx, text)
}

func (e *brokenEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	for _, text := range texts {
		if text == e.badText {
			return nil, fmt.Errorf("embedding backend rejected batch")
		}
	}
	return e.inner.EmbedBatch(ctx, texts)
}

func TestUpsertPartialFailureCommitsSuccesses(t *testing.T) {
	ctx := context.Background()
	embedder := &brokenEmbedder{inner: embedding.NewHashModel(256), badText: "Solar panel efficiency improvements"}
	ix := New(embedder, NewMemoryStore(), logger.New("test", ""))
	ix.CreateCollection(ctx, "content", SchemaHint{Dimension: 256})

	written, err := ix.Upsert(ctx, "content", solarItems())
	if written != 2 {
		t.Errorf("written = %d, want 2", written)
	}

	var writeErr *models.IndexWriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("got %v, want IndexWriteError", err)
	}
	if len(writeErr.Failed) != 1 || writeErr.Failed[0].ID != "solar-efficiency" {
		t.Errorf("failed items = %+v, want solar-efficiency only", writeErr.Failed)
	}

	// The committed items remain queryable.
	results, qerr := ix.Query(ctx, "content", "the cost of solar installation", 5, 0.5, nil)
	if qerr != nil {
		t.Fatalf("Query: %v", qerr)
	}
	if len(results) == 0 || results[0].Item.ID != "solar-install" {
		t.Errorf("committed item not retrievable after partial failure: %+v", results)
	}
}

func TestStatsAggregates(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t)

	score1, score2 := 0.9, 0.7
	ix.Upsert(ctx, "content", []*models.ContentItem{
		{ID: "a", Text: "solar panel efficiency", ContentType: models.ContentTypeBlogPost, BrandVoiceScore: &score1},
		{ID: "b", Text: "the cost of solar installation", ContentType: models.ContentTypeBlogPost, BrandVoiceScore: &score2},
		{ID: "c", Text: "email marketing tips", ContentType: models.ContentTypeEmailNewsletter},
	})

	stats, err := ix.Stats(ctx, "content")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.ItemCount != 3 {
		t.Errorf("ItemCount = %d, want 3", stats.ItemCount)
	}
	if stats.CountsByType[models.ContentTypeBlogPost] != 2 {
		t.Errorf("blog_post count = %d, want 2", stats.CountsByType[models.ContentTypeBlogPost])
	}
	if math.Abs(stats.AvgBrandVoiceScore-0.8) > 1e-9 {
		t.Errorf("AvgBrandVoiceScore = %v, want 0.8", stats.AvgBrandVoiceScore)
	}
}
