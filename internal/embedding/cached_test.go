package embedding

import (
	"context"
	"testing"
	"time"
)

func TestCachedEmbedder_SecondRequestFromCache(t *testing.T) {
	mock := NewMockEmbedder(8)
	e := NewCachedEmbedder(mock, NewCache(100, time.Hour))
	ctx := context.Background()

	first, err := e.Embed(ctx, "red sneakers")
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.Embed(ctx, "red sneakers")
	if err != nil {
		t.Fatal(err)
	}
	if mock.Calls.Load() != 1 {
		t.Errorf("expected 1 upstream call, got %d", mock.Calls.Load())
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("vectors differ at %d", i)
		}
	}
}

func TestCachedEmbedder_BatchMixedHits(t *testing.T) {
	mock := NewMockEmbedder(8)
	e := NewCachedEmbedder(mock, NewCache(100, time.Hour))
	ctx := context.Background()

	if _, err := e.Embed(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	vecs, err := e.EmbedBatch(ctx, []string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 3 {
		t.Fatalf("got %d vectors", len(vecs))
	}
	for i, v := range vecs {
		if len(v) != 8 {
			t.Errorf("vector %d has %d dims", i, len(v))
		}
	}
	// One call for "a", then one per miss in the batch.
	if mock.Calls.Load() != 3 {
		t.Errorf("expected 3 upstream calls, got %d", mock.Calls.Load())
	}
}
