package index

import (
	"sync"

	"github.com/ecotech/contentforge/internal/models"
)

// DocStore is a thread-safe in-memory store for the full content items,
// partitioned by collection. The vector store only keeps ids, vectors, and
// filterable fields; the DocStore holds everything a RetrievalResult needs.
type DocStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]*models.ContentItem
}

// NewDocStore creates an empty DocStore.
func NewDocStore() *DocStore {
	return &DocStore{collections: make(map[string]map[string]*models.ContentItem)}
}

// CreateCollection creates the named partition if absent. Idempotent.
func (s *DocStore) CreateCollection(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[name]; !ok {
		s.collections[name] = make(map[string]*models.ContentItem)
	}
}

// Has reports whether a collection exists.
func (s *DocStore) Has(collection string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[collection]
	return ok
}

// Add stores items in a collection, overwriting on id collision.
func (s *DocStore) Add(collection string, items []*models.ContentItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[collection]
	if !ok {
		return models.ErrCollectionNotFound
	}
	for _, item := range items {
		coll[item.ID] = item
	}
	return nil
}

// Get returns the item with the given id.
func (s *DocStore) Get(collection, id string) (*models.ContentItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, ok := s.collections[collection]
	if !ok {
		return nil, models.ErrCollectionNotFound
	}
	item, ok := coll[id]
	if !ok {
		return nil, models.ErrContentNotFound
	}
	return item, nil
}

// All returns a snapshot of every item in a collection.
func (s *DocStore) All(collection string) ([]*models.ContentItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, ok := s.collections[collection]
	if !ok {
		return nil, models.ErrCollectionNotFound
	}
	items := make([]*models.ContentItem, 0, len(coll))
	for _, item := range coll {
		items = append(items, item)
	}
	return items, nil
}
