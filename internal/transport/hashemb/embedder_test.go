package hashemb

import (
	"context"
	"testing"
)

func TestEmbed_Deterministic(t *testing.T) {
	e := New(0)
	ctx := context.Background()

	a, err := e.Embed(ctx, "tender document")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	b, err := e.Embed(ctx, "tender document")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	if len(a.Embedding) != DefaultDimensions {
		t.Fatalf("dim = %d, want %d", len(a.Embedding), DefaultDimensions)
	}
	for i := range a.Embedding {
		if a.Embedding[i] != b.Embedding[i] {
			t.Fatalf("vectors differ at %d: %f vs %f", i, a.Embedding[i], b.Embedding[i])
		}
		if a.Embedding[i] < 0 || a.Embedding[i] >= 1 {
			t.Fatalf("component %d = %f, want [0, 1)", i, a.Embedding[i])
		}
	}
}

func TestEmbed_DifferentTextsDiffer(t *testing.T) {
	e := New(16)
	ctx := context.Background()

	a, _ := e.Embed(ctx, "alpha")
	b, _ := e.Embed(ctx, "beta")

	same := true
	for i := range a.Embedding {
		if a.Embedding[i] != b.Embedding[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("different texts produced identical vectors")
	}
}

func TestBatchEmbed_PreservesOrder(t *testing.T) {
	e := New(8)
	ctx := context.Background()

	batch, err := e.BatchEmbed(ctx, []string{"one", "two"})
	if err != nil {
		t.Fatalf("BatchEmbed failed: %v", err)
	}

	one, _ := e.Embed(ctx, "one")
	if batch.Embeddings[0][0] != one.Embedding[0] {
		t.Fatal("batch order does not match single embeds")
	}
}
