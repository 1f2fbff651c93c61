package index

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/ecotech/contentforge/internal/models"
)

// Record is the unit a vector store persists: a content id, its embedding,
// and the metadata fields filters can address.
type Record struct {
	ID        string
	Embedding []float32
	Metadata  map[string]interface{}
}

// Match is one vector search hit. Score is a similarity in [0,1] where 1
// means identical.
type Match struct {
	ID    string
	Score float64
}

// Range is a numeric range predicate. Nil bounds are unbounded.
type Range struct {
	Min *float64
	Max *float64
}

// Filter restricts a search to records whose metadata satisfies every
// predicate. Equals are exact matches; Ranges apply to numeric fields.
type Filter struct {
	Equals map[string]interface{}
	Ranges map[string]Range
}

// Matches reports whether the given metadata satisfies the filter.
func (f *Filter) Matches(meta map[string]interface{}) bool {
	if f == nil {
		return true
	}
	for key, want := range f.Equals {
		if meta[key] != want {
			return false
		}
	}
	for key, r := range f.Ranges {
		v, ok := numericValue(meta[key])
		if !ok {
			return false
		}
		if r.Min != nil && v < *r.Min {
			return false
		}
		if r.Max != nil && v > *r.Max {
			return false
		}
	}
	return true
}

func numericValue(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// VectorStore is the interface for storing and querying content vectors,
// organized into named collections.
type VectorStore interface {
	// CreateCollection creates a named collection if absent. Idempotent.
	CreateCollection(ctx context.Context, name string, dim int) error
	// Upsert writes records, overwriting on id collision.
	Upsert(ctx context.Context, collection string, recs []Record) error
	// Search returns the k nearest records passing the filter, ordered by
	// descending similarity, ties broken by id.
	Search(ctx context.Context, collection string, vector []float32, k int, filter *Filter) ([]Match, error)
	// Fetch returns the stored record for an id.
	Fetch(ctx context.Context, collection, id string) (*Record, error)
	// Count returns the number of records in a collection.
	Count(ctx context.Context, collection string) (int, error)
}

// MemoryStore is a thread-safe in-memory VectorStore using cosine similarity.
// Writers replace whole records under the lock, so a concurrent query sees
// either the pre- or post-upsert state of an id, never a half-written vector.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]Record
	dims        map[string]int
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]Record),
		dims:        make(map[string]int),
	}
}

// CreateCollection creates the named collection if it does not exist.
func (s *MemoryStore) CreateCollection(ctx context.Context, name string, dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[name]; !ok {
		s.collections[name] = make(map[string]Record)
		s.dims[name] = dim
	}
	return nil
}

// Upsert writes records into a collection, overwriting on id collision.
func (s *MemoryStore) Upsert(ctx context.Context, collection string, recs []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[collection]
	if !ok {
		return models.ErrCollectionNotFound
	}
	for _, rec := range recs {
		if s.dims[collection] == 0 {
			s.dims[collection] = len(rec.Embedding)
		}
		coll[rec.ID] = rec
	}
	return nil
}

// Search scans the collection and returns the top k matches passing the
// filter, ordered by descending cosine similarity, ties broken by id.
func (s *MemoryStore) Search(ctx context.Context, collection string, vector []float32, k int, filter *Filter) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, ok := s.collections[collection]
	if !ok {
		return nil, models.ErrCollectionNotFound
	}

	matches := make([]Match, 0, len(coll))
	for id, rec := range coll {
		if !filter.Matches(rec.Metadata) {
			continue
		}
		matches = append(matches, Match{ID: id, Score: cosineSimilarity(vector, rec.Embedding)})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})

	if k > 0 && k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

// Fetch returns the stored record for an id.
func (s *MemoryStore) Fetch(ctx context.Context, collection, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, ok := s.collections[collection]
	if !ok {
		return nil, models.ErrCollectionNotFound
	}
	rec, ok := coll[id]
	if !ok {
		return nil, models.ErrContentNotFound
	}
	return &rec, nil
}

// Count returns the number of records in a collection.
func (s *MemoryStore) Count(ctx context.Context, collection string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, ok := s.collections[collection]
	if !ok {
		return 0, models.ErrCollectionNotFound
	}
	return len(coll), nil
}

// cosineSimilarity maps two vectors to a similarity in [0,1], clamping the
// rare negative cosine to zero.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	sim := dot / denom
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}

// compile-time check
var _ VectorStore = (*MemoryStore)(nil)
