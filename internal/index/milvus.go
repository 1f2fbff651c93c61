package index

import (
	"context"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/ecotech/contentforge/internal/models"
	"github.com/ecotech/contentforge/pkg/logger"
)

// Field names of the Milvus collection schema. Only the filterable fields
// live in Milvus; the full content items stay in the doc store.
const (
	FieldID              = "id"
	FieldEmbedding       = "embedding"
	FieldContentType     = "content_type"
	FieldBrandVoiceScore = "brand_voice_score"
)

// MilvusStore is a VectorStore backed by a Milvus deployment. It uses the
// COSINE metric so search scores are already similarities in [0,1] after
// clamping.
type MilvusStore struct {
	log    *logger.Logger
	client client.Client
}

// NewMilvusStore creates a MilvusStore over an established Milvus connection.
func NewMilvusStore(c client.Client, log *logger.Logger) (*MilvusStore, error) {
	if c == nil {
		return nil, fmt.Errorf("milvus client is not initialized")
	}
	return &MilvusStore{log: log, client: c}, nil
}

// CreateCollection creates the collection with the fixed content schema if it
// does not exist yet, then loads it for search.
func (s *MilvusStore) CreateCollection(ctx context.Context, name string, dim int) error {
	has, err := s.client.HasCollection(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check collection %q: %w", name, err)
	}
	if has {
		return nil
	}

	schema := &entity.Schema{
		CollectionName: name,
		Description:    "contentforge content vectors",
		Fields: []*entity.Field{
			{Name: FieldID, DataType: entity.FieldTypeVarChar, PrimaryKey: true,
				TypeParams: map[string]string{"max_length": "128"}},
			{Name: FieldEmbedding, DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{"dim": fmt.Sprintf("%d", dim)}},
			{Name: FieldContentType, DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "64"}},
			{Name: FieldBrandVoiceScore, DataType: entity.FieldTypeDouble},
		},
	}
	if err := s.client.CreateCollection(ctx, schema, 1); err != nil {
		return fmt.Errorf("failed to create collection %q: %w", name, err)
	}

	idx, err := entity.NewIndexIvfFlat(entity.COSINE, 128)
	if err != nil {
		return fmt.Errorf("failed to build index definition: %w", err)
	}
	if err := s.client.CreateIndex(ctx, name, FieldEmbedding, idx, false); err != nil {
		return fmt.Errorf("failed to create index on %q: %w", name, err)
	}
	if err := s.client.LoadCollection(ctx, name, false); err != nil {
		return fmt.Errorf("failed to load collection %q: %w", name, err)
	}

	s.log.Info(fmt.Sprintf("Created Milvus collection %q (dim=%d)", name, dim))
	return nil
}

// Upsert writes records into the collection, overwriting on id collision.
func (s *MilvusStore) Upsert(ctx context.Context, collection string, recs []Record) error {
	if len(recs) == 0 {
		return nil
	}

	ids := make([]string, len(recs))
	embeddings := make([][]float32, len(recs))
	contentTypes := make([]string, len(recs))
	brandScores := make([]float64, len(recs))

	dim := 0
	for i, rec := range recs {
		ids[i] = rec.ID
		embeddings[i] = rec.Embedding
		if len(rec.Embedding) > dim {
			dim = len(rec.Embedding)
		}
		if ct, ok := rec.Metadata[models.MetaKeyContentType].(string); ok {
			contentTypes[i] = ct
		}
		if score, ok := numericValue(rec.Metadata[models.MetaKeyBrandVoiceScore]); ok {
			brandScores[i] = score
		}
	}

	idCol := entity.NewColumnVarChar(FieldID, ids)
	embeddingCol := entity.NewColumnFloatVector(FieldEmbedding, dim, embeddings)
	contentTypeCol := entity.NewColumnVarChar(FieldContentType, contentTypes)
	brandScoreCol := entity.NewColumnDouble(FieldBrandVoiceScore, brandScores)

	s.log.Info(fmt.Sprintf("Upserting %d records into Milvus collection %q", len(recs), collection))
	if _, err := s.client.Upsert(ctx, collection, "", idCol, embeddingCol, contentTypeCol, brandScoreCol); err != nil {
		return fmt.Errorf("failed to upsert into Milvus: %w", err)
	}
	return nil
}

// Search performs a vector search with an optional filter expression.
func (s *MilvusStore) Search(ctx context.Context, collection string, vector []float32, k int, filter *Filter) ([]Match, error) {
	has, err := s.client.HasCollection(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to check collection %q: %w", collection, err)
	}
	if !has {
		return nil, models.ErrCollectionNotFound
	}

	expr := buildFilterExpression(filter)
	searchParams, _ := entity.NewIndexIvfFlatSearchParam(10)

	results, err := s.client.Search(
		ctx, collection, []string{}, expr, []string{FieldID},
		[]entity.Vector{entity.FloatVector(vector)},
		FieldEmbedding, entity.COSINE, k, searchParams,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search in Milvus: %w", err)
	}

	var matches []Match
	for _, res := range results {
		var idCol *entity.ColumnVarChar
		for _, field := range res.Fields {
			if field.Name() == FieldID {
				idCol, _ = field.(*entity.ColumnVarChar)
			}
		}
		if idCol == nil {
			s.log.Warn("Search result is missing the id field, skipping")
			continue
		}
		idData := idCol.Data()
		for i := 0; i < res.ResultCount; i++ {
			matches = append(matches, Match{ID: idData[i], Score: clampScore(float64(res.Scores[i]))})
		}
	}
	return matches, nil
}

// Fetch returns the stored record for an id.
func (s *MilvusStore) Fetch(ctx context.Context, collection, id string) (*Record, error) {
	rs, err := s.client.Query(ctx, collection, nil,
		fmt.Sprintf(`%s == "%s"`, FieldID, id),
		[]string{FieldID, FieldEmbedding, FieldContentType, FieldBrandVoiceScore})
	if err != nil {
		return nil, fmt.Errorf("failed to query Milvus: %w", err)
	}

	rec := &Record{ID: id, Metadata: map[string]interface{}{}}
	found := false
	for _, col := range rs {
		switch c := col.(type) {
		case *entity.ColumnFloatVector:
			if len(c.Data()) > 0 {
				rec.Embedding = c.Data()[0]
				found = true
			}
		case *entity.ColumnVarChar:
			if c.Name() == FieldContentType && len(c.Data()) > 0 {
				rec.Metadata[models.MetaKeyContentType] = c.Data()[0]
			}
		case *entity.ColumnDouble:
			if c.Name() == FieldBrandVoiceScore && len(c.Data()) > 0 {
				rec.Metadata[models.MetaKeyBrandVoiceScore] = c.Data()[0]
			}
		}
	}
	if !found {
		return nil, models.ErrContentNotFound
	}
	return rec, nil
}

// Count returns the row count reported by Milvus.
func (s *MilvusStore) Count(ctx context.Context, collection string) (int, error) {
	stats, err := s.client.GetCollectionStatistics(ctx, collection)
	if err != nil {
		return 0, fmt.Errorf("failed to get collection statistics: %w", err)
	}
	var count int
	fmt.Sscanf(stats["row_count"], "%d", &count)
	return count, nil
}

// buildFilterExpression converts a Filter into a Milvus boolean expression.
func buildFilterExpression(filter *Filter) string {
	if filter == nil {
		return ""
	}

	var conditions []string
	for key, value := range filter.Equals {
		if v, ok := value.(string); ok {
			conditions = append(conditions, fmt.Sprintf(`%s == "%s"`, key, v))
		}
	}
	for key, r := range filter.Ranges {
		if r.Min != nil {
			conditions = append(conditions, fmt.Sprintf("%s >= %v", key, *r.Min))
		}
		if r.Max != nil {
			conditions = append(conditions, fmt.Sprintf("%s <= %v", key, *r.Max))
		}
	}
	return strings.Join(conditions, " and ")
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// compile-time check
var _ VectorStore = (*MilvusStore)(nil)
