package vector

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/claimscope/claimscope/internal/model"
	"github.com/claimscope/claimscope/internal/storage"
)

// axisEmbedder maps texts onto fixed axes by keyword so similarity ordering
// is deterministic without a real embedding model.
type axisEmbedder struct{}

func (axisEmbedder) Model() string { return "axis-test" }

func (axisEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		switch {
		case strings.Contains(text, "feline"):
			out[i] = []float32{1, 0, 0}
		case strings.Contains(text, "canine"):
			out[i] = []float32{0, 1, 0}
		default:
			out[i] = []float32{0, 0, 1}
		}
	}
	return out, nil
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store, err := NewStore(db, axisEmbedder{}, model.VectorConfig{
		ChunkSize:         50,
		ChunkOverlap:      0,
		DefaultCollection: "default",
	})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func TestStore_AddAndQuery(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Add(ctx, "pets", "https://example.org/cats", "Cats", "feline behavior and care"); err != nil {
		t.Fatalf("Add cats: %v", err)
	}
	if _, err := store.Add(ctx, "pets", "https://example.org/dogs", "Dogs", "canine behavior and care"); err != nil {
		t.Fatalf("Add dogs: %v", err)
	}

	results, err := store.Query(ctx, "pets", "feline", 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].SourceURL != "https://example.org/cats" {
		t.Errorf("top hit = %s, want the cats document", results[0].SourceURL)
	}
	if results[0].Similarity <= results[1].Similarity {
		t.Errorf("results not ranked: %v vs %v", results[0].Similarity, results[1].Similarity)
	}
	if results[0].Title != "Cats" {
		t.Errorf("title = %q, want Cats", results[0].Title)
	}
}

func TestStore_QueryTopK(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, src := range []string{"a", "b", "c"} {
		if _, err := store.Add(ctx, "col", "https://example.org/"+src, "", "neutral text "+src); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	results, err := store.Query(ctx, "col", "neutral", 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("results = %d, want topK capped at 2", len(results))
	}
}

func TestStore_ReAddReplacesChunks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	url := "https://example.org/doc"

	if _, err := store.Add(ctx, "col", url, "v1", "feline original text"); err != nil {
		t.Fatalf("first Add: %v", err)
	}
	if _, err := store.Add(ctx, "col", url, "v2", "canine replacement text"); err != nil {
		t.Fatalf("second Add: %v", err)
	}

	stats, err := store.Stats("col")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Sources != 1 {
		t.Errorf("sources = %d, want 1 (replacement, not accumulation)", stats.Sources)
	}

	results, err := store.Query(ctx, "col", "canine", 5)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	for _, r := range results {
		if strings.Contains(r.Text, "original") {
			t.Errorf("stale chunk survived re-add: %q", r.Text)
		}
	}
}

func TestStore_QueryAllMergesCollections(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Add(ctx, "animals", "https://example.org/cats", "Cats", "feline behavior"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := store.Add(ctx, "guides", "https://example.org/dogs", "Dogs", "canine behavior"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	results, err := store.QueryAll(ctx, "feline", 10)
	if err != nil {
		t.Fatalf("QueryAll: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want hits from both collections", len(results))
	}
	if results[0].Collection != "animals" {
		t.Errorf("top hit collection = %q, want animals", results[0].Collection)
	}
	if results[1].Collection != "guides" {
		t.Errorf("second hit collection = %q, want guides", results[1].Collection)
	}
}

func TestStore_AddEmptyText(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Add(context.Background(), "col", "https://example.org/x", "", "   "); err == nil {
		t.Fatal("empty document accepted")
	}
}

func TestStore_DefaultCollection(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Add(ctx, "", "https://example.org/x", "", "some text"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	names, err := store.ListCollections()
	if err != nil {
		t.Fatalf("ListCollections: %v", err)
	}
	if len(names) != 1 || names[0] != "default" {
		t.Errorf("collections = %v, want [default]", names)
	}
}

func TestStore_StatsAndDrop(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	n, err := store.Add(ctx, "col", "https://example.org/x", "", "some text here")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	stats, err := store.Stats("col")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.ChunkCount != n || stats.Sources != 1 {
		t.Errorf("stats = %+v, want %d chunks from 1 source", stats, n)
	}

	dropped, err := store.Drop("col")
	if err != nil {
		t.Fatalf("Drop: %v", err)
	}
	if dropped != n {
		t.Errorf("dropped = %d, want %d", dropped, n)
	}

	stats, err = store.Stats("col")
	if err != nil {
		t.Fatalf("Stats after drop: %v", err)
	}
	if stats.ChunkCount != 0 {
		t.Errorf("chunks remain after drop: %d", stats.ChunkCount)
	}

	if _, err := store.Drop(""); err == nil {
		t.Error("Drop without a name accepted")
	}
}
