package embedding

import (
	"context"
	"math"
	"testing"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestHashModelDeterministic(t *testing.T) {
	m := NewHashModel(256)
	ctx := context.Background()

	a, err := m.Embed(ctx, "solar panel installation")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	b, err := m.Embed(ctx, "solar panel installation")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("vectors differ at %d", i)
		}
	}
}

func TestHashModelNormalized(t *testing.T) {
	m := NewHashModel(256)
	vec, err := m.Embed(context.Background(), "solar panel installation guide")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if math.Abs(norm-1.0) > 1e-5 {
		t.Errorf("vector norm² = %v, want 1", norm)
	}
}

func TestHashModelPluralsShareBuckets(t *testing.T) {
	m := NewHashModel(256)
	ctx := context.Background()

	singular, _ := m.Embed(ctx, "solar panel cost")
	plural, _ := m.Embed(ctx, "solar panel costs")
	if sim := cosine(singular, plural); math.Abs(sim-1.0) > 1e-6 {
		t.Errorf("singular/plural similarity = %v, want 1", sim)
	}
}

func TestHashModelUnrelatedTextsOrthogonal(t *testing.T) {
	m := NewHashModel(256)
	ctx := context.Background()

	a, _ := m.Embed(ctx, "solar panel installation")
	b, _ := m.Embed(ctx, "email marketing tips")
	if sim := cosine(a, b); sim > 0.01 {
		t.Errorf("unrelated texts similarity = %v, want ~0", sim)
	}
}

func TestHashModelBatchPreservesOrder(t *testing.T) {
	m := NewHashModel(256)
	texts := []string{"solar panel", "email marketing", "wind turbine"}

	batch, err := m.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(batch) != len(texts) {
		t.Fatalf("got %d vectors, want %d", len(batch), len(texts))
	}
	for i, text := range texts {
		single, _ := m.Embed(context.Background(), text)
		if sim := cosine(batch[i], single); math.Abs(sim-1.0) > 1e-6 {
			t.Errorf("batch vector %d does not match single embedding", i)
		}
	}
}

func TestNewFactoryProviders(t *testing.T) {
	if _, err := New("hash", "", "", ""); err != nil {
		t.Errorf("hash provider: %v", err)
	}
	if _, err := New("unknown", "", "", ""); err == nil {
		t.Error("unknown provider should error")
	}
}
