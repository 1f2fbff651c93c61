package index

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/ecotech/contentforge/internal/models"
)

func TestCosineSimilarityBounds(t *testing.T) {
	cases := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite clamped to zero", []float32{1, 0}, []float32{-1, 0}, 0.0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0.0},
		{"length mismatch", []float32{1}, []float32{1, 2}, 0.0},
	}
	for _, tc := range cases {
		got := cosineSimilarity(tc.a, tc.b)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
		if got < 0 || got > 1 {
			t.Errorf("%s: similarity %v outside [0,1]", tc.name, got)
		}
	}
}

func TestMemoryStoreSearchOrderAndTieBreak(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.CreateCollection(ctx, "c", 2); err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}

	// b and a are the same vector: the tie must break by id.
	recs := []Record{
		{ID: "b", Embedding: []float32{1, 0}},
		{ID: "a", Embedding: []float32{1, 0}},
		{ID: "c", Embedding: []float32{0.5, 0.5}},
	}
	if err := s.Upsert(ctx, "c", recs); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	matches, err := s.Search(ctx, "c", []float32{1, 0}, 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("got %d matches, want 3", len(matches))
	}
	if matches[0].ID != "a" || matches[1].ID != "b" || matches[2].ID != "c" {
		t.Errorf("wrong order: %v %v %v", matches[0].ID, matches[1].ID, matches[2].ID)
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Score > matches[i-1].Score {
			t.Errorf("scores not descending at %d", i)
		}
	}
}

func TestMemoryStoreFilter(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.CreateCollection(ctx, "c", 2)
	s.Upsert(ctx, "c", []Record{
		{ID: "blog", Embedding: []float32{1, 0}, Metadata: map[string]interface{}{"content_type": "blog_post", "score": 0.9}},
		{ID: "social", Embedding: []float32{1, 0}, Metadata: map[string]interface{}{"content_type": "social_media", "score": 0.4}},
	})

	matches, err := s.Search(ctx, "c", []float32{1, 0}, 10, &Filter{
		Equals: map[string]interface{}{"content_type": "blog_post"},
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != "blog" {
		t.Errorf("equals filter: got %v", matches)
	}

	min := 0.5
	matches, err = s.Search(ctx, "c", []float32{1, 0}, 10, &Filter{
		Ranges: map[string]Range{"score": {Min: &min}},
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != "blog" {
		t.Errorf("range filter: got %v", matches)
	}
}

func TestMemoryStoreMissingCollection(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.Search(ctx, "none", []float32{1}, 1, nil); err != models.ErrCollectionNotFound {
		t.Errorf("Search: got %v, want ErrCollectionNotFound", err)
	}
	if err := s.Upsert(ctx, "none", []Record{{ID: "x"}}); err != models.ErrCollectionNotFound {
		t.Errorf("Upsert: got %v, want ErrCollectionNotFound", err)
	}
	if _, err := s.Fetch(ctx, "none", "x"); err != models.ErrCollectionNotFound {
		t.Errorf("Fetch: got %v, want ErrCollectionNotFound", err)
	}
}

func TestMemoryStoreFetchMissingID(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.CreateCollection(ctx, "c", 2)

	if _, err := s.Fetch(ctx, "c", "ghost"); err != models.ErrContentNotFound {
		t.Errorf("got %v, want ErrContentNotFound", err)
	}
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.CreateCollection(ctx, "c", 2)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := fmt.Sprintf("item-%d-%d", i, j)
				s.Upsert(ctx, "c", []Record{{ID: id, Embedding: []float32{1, float32(j)}}})
				s.Search(ctx, "c", []float32{1, 0}, 5, nil)
			}
		}(i)
	}
	wg.Wait()

	count, err := s.Count(ctx, "c")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 8*50 {
		t.Errorf("got %d records, want %d", count, 8*50)
	}
}
