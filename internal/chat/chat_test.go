package chat

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/claimscope/claimscope/internal/llm"
	"github.com/claimscope/claimscope/internal/model"
	"github.com/claimscope/claimscope/internal/storage"
	"github.com/claimscope/claimscope/internal/vector"
)

type flatEmbedder struct{}

func (flatEmbedder) Model() string { return "flat-test" }

func (flatEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

type echoProvider struct {
	lastPrompt string
}

func (p *echoProvider) Name() string { return "echo" }

func (p *echoProvider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	p.lastPrompt = req.Prompt
	return &llm.Response{Text: "the answer"}, nil
}

func (p *echoProvider) IsAvailable(ctx context.Context) bool { return true }

func newTestService(t *testing.T) (*Service, *echoProvider) {
	t.Helper()

	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store, err := vector.NewStore(db, flatEmbedder{}, model.VectorConfig{
		ChunkSize:         50,
		DefaultCollection: "default",
	})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	provider := &echoProvider{}
	return NewService(store, provider, NewMemory(10)), provider
}

func TestAsk(t *testing.T) {
	svc, provider := newTestService(t)
	ctx := context.Background()

	if _, err := svc.store.Add(ctx, "default", "https://example.org/doc", "Doc", "indexed document text"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	answer, err := svc.Ask(ctx, "", "default", "what does the document say?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	if answer.SessionID == "" {
		t.Error("no session allocated for empty session ID")
	}
	if answer.Text != "the answer" {
		t.Errorf("answer = %q", answer.Text)
	}
	if len(answer.Sources) == 0 {
		t.Error("no sources attached")
	}
	if !strings.Contains(provider.lastPrompt, "indexed document text") {
		t.Error("retrieved context missing from the prompt")
	}
	if !strings.Contains(provider.lastPrompt, "what does the document say?") {
		t.Error("question missing from the prompt")
	}

	history := svc.Memory().History(answer.SessionID)
	if len(history) != 2 {
		t.Fatalf("history length = %d, want user+assistant turns", len(history))
	}
}

func TestAsk_HistoryCarriesIntoPrompt(t *testing.T) {
	svc, provider := newTestService(t)
	ctx := context.Background()

	first, err := svc.Ask(ctx, "", "default", "first question")
	if err != nil {
		t.Fatalf("first Ask: %v", err)
	}
	if _, err := svc.Ask(ctx, first.SessionID, "default", "follow-up question"); err != nil {
		t.Fatalf("second Ask: %v", err)
	}

	if !strings.Contains(provider.lastPrompt, "first question") {
		t.Error("prior turn missing from the follow-up prompt")
	}
}

func TestAsk_EmptyQuestion(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Ask(context.Background(), "", "default", "  "); err == nil {
		t.Fatal("blank question accepted")
	}
}
