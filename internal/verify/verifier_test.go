package verify

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/claimscope/claimscope/internal/llm"
	"github.com/claimscope/claimscope/internal/logging"
	"github.com/claimscope/claimscope/internal/model"
	"github.com/claimscope/claimscope/internal/progress"
	"github.com/claimscope/claimscope/internal/search"
	"github.com/claimscope/claimscope/internal/step"
	"github.com/claimscope/claimscope/internal/storage"
)

// routedProvider answers per verification phase, keyed off the system prompt,
// since credibility assessments run concurrently and arrive in any order.
type routedProvider struct {
	analyzing  string
	assessing  string
	concluding string

	analyzingErr error
	assessingErr error
}

func (p *routedProvider) Name() string { return "routed" }

func (p *routedProvider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	switch {
	case strings.Contains(req.System, "evidence analyst"):
		if p.analyzingErr != nil {
			return nil, p.analyzingErr
		}
		return &llm.Response{Text: p.analyzing}, nil
	case strings.Contains(req.System, "credibility assessor"):
		if p.assessingErr != nil {
			return nil, p.assessingErr
		}
		return &llm.Response{Text: p.assessing}, nil
	case strings.Contains(req.System, "verification analyst"):
		return &llm.Response{Text: p.concluding}, nil
	}
	return nil, fmt.Errorf("unexpected request: %s", req.System)
}

func (p *routedProvider) IsAvailable(ctx context.Context) bool { return true }

type fakeSearch struct {
	results []search.Result
	err     error
}

func (f *fakeSearch) Search(ctx context.Context, query string) ([]search.Result, error) {
	return f.results, f.err
}

func newTestStore(t *testing.T) *storage.VerificationStore {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return storage.NewVerificationStore(db)
}

func newTestVerifier(t *testing.T, searcher search.Client, provider llm.Provider) (*Verifier, *storage.VerificationStore) {
	t.Helper()
	log := logging.New("test", "error")
	store := newTestStore(t)
	exec := step.NewExecutor(provider, log)
	return NewVerifier(searcher, exec, store, model.VerifyConfig{}, log), store
}

func goodSearchResults() []search.Result {
	return []search.Result{
		{URL: "https://journal.example.org/study", Title: "Study", Snippet: "supports the claim"},
		{URL: "https://news.example.org/report", Title: "Report", Snippet: "disputes the claim"},
	}
}

func goodProvider() *routedProvider {
	return &routedProvider{
		analyzing: `{
			"evidence_for": [{"source_url": "https://journal.example.org/study", "source_title": "Study", "snippet": "supports"}],
			"evidence_against": []
		}`,
		assessing:  `{"credibility_score": 9.0, "credibility_reasoning": "peer reviewed"}`,
		concluding: `{"conclusion": "The claim is well supported.", "conclusion_type": "supported"}`,
	}
}

func eventRecorder() (progress.Sink, *[]progress.Event) {
	events := &[]progress.Event{}
	return progress.SinkFunc(func(e progress.Event) { *events = append(*events, e) }), events
}

func phaseOrder(events []progress.Event) []string {
	var order []string
	for _, e := range events {
		if len(order) == 0 || order[len(order)-1] != e.Step {
			order = append(order, e.Step)
		}
	}
	return order
}

func TestVerifyClaim_Success(t *testing.T) {
	v, _ := newTestVerifier(t, &fakeSearch{results: goodSearchResults()}, goodProvider())
	sink, events := eventRecorder()

	record, err := v.VerifyClaim(context.Background(), "the claim", "https://example.org/src", "claim-1", sink)
	if err != nil {
		t.Fatalf("VerifyClaim: %v", err)
	}

	if record.Status != model.VerificationCompleted {
		t.Errorf("status = %s, want completed", record.Status)
	}
	if record.ConclusionType != model.ConclusionSupported {
		t.Errorf("conclusion_type = %s, want supported", record.ConclusionType)
	}
	if record.Conclusion != "The claim is well supported." {
		t.Errorf("conclusion = %q", record.Conclusion)
	}
	if len(record.EvidenceFor) != 1 {
		t.Fatalf("evidence_for count = %d, want 1", len(record.EvidenceFor))
	}
	if record.EvidenceFor[0].CredibilityScore == nil || *record.EvidenceFor[0].CredibilityScore != 9.0 {
		t.Errorf("credibility score not attached: %+v", record.EvidenceFor[0])
	}
	if record.CompletedAt == nil {
		t.Error("completed_at not set")
	}

	want := []string{"starting", "searching", "analyzing", "assessing", "concluding", "complete"}
	got := phaseOrder(*events)
	if len(got) != len(want) {
		t.Fatalf("phase order = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("phase order = %v, want %v", got, want)
		}
	}
	last := (*events)[len(*events)-1]
	if last.Type != progress.EventComplete || last.Progress != 100 {
		t.Errorf("terminal event = %+v, want complete at 100", last)
	}
}

func TestVerifyClaim_EmptyClaim(t *testing.T) {
	v, _ := newTestVerifier(t, &fakeSearch{}, goodProvider())
	if _, err := v.VerifyClaim(context.Background(), "   ", "", "", nil); err == nil {
		t.Fatal("blank claim accepted")
	}
}

func TestRun_NoSearcherConfigured(t *testing.T) {
	v, _ := newTestVerifier(t, nil, goodProvider())
	sink, events := eventRecorder()

	record, err := v.VerifyClaim(context.Background(), "the claim", "", "", sink)
	if err != nil {
		t.Fatalf("VerifyClaim should return the failed record, got error: %v", err)
	}
	if record.Status != model.VerificationFailed {
		t.Errorf("status = %s, want failed", record.Status)
	}
	if !strings.HasPrefix(record.ErrorMessage, "[configuration]") {
		t.Errorf("error message = %q, want [configuration] prefix", record.ErrorMessage)
	}

	last := (*events)[len(*events)-1]
	if last.Type != progress.EventError {
		t.Errorf("terminal event type = %s, want error", last.Type)
	}
}

func TestRun_EmptySearchIsInconclusive(t *testing.T) {
	v, _ := newTestVerifier(t, &fakeSearch{results: nil}, goodProvider())
	sink, events := eventRecorder()

	record, err := v.VerifyClaim(context.Background(), "an unverifiable claim", "", "", sink)
	if err != nil {
		t.Fatalf("VerifyClaim: %v", err)
	}

	if record.Status != model.VerificationCompleted {
		t.Errorf("status = %s, want completed (no evidence is a valid outcome)", record.Status)
	}
	if record.ConclusionType != model.ConclusionInconclusive {
		t.Errorf("conclusion_type = %s, want inconclusive", record.ConclusionType)
	}
	if !strings.Contains(record.Conclusion, "No relevant evidence") {
		t.Errorf("conclusion = %q", record.Conclusion)
	}

	last := (*events)[len(*events)-1]
	if last.Type != progress.EventComplete {
		t.Errorf("terminal event type = %s, want complete", last.Type)
	}
}

func TestRun_SearchFailure(t *testing.T) {
	v, _ := newTestVerifier(t, &fakeSearch{err: errors.New("tavily unreachable")}, goodProvider())

	record, err := v.VerifyClaim(context.Background(), "the claim", "", "", nil)
	if err != nil {
		t.Fatalf("VerifyClaim should return the failed record, got error: %v", err)
	}
	if record.Status != model.VerificationFailed {
		t.Errorf("status = %s, want failed", record.Status)
	}
	if !strings.HasPrefix(record.ErrorMessage, "[searching]") {
		t.Errorf("error message = %q, want [searching] prefix", record.ErrorMessage)
	}
}

func TestRun_FabricatedSearchResultsDropped(t *testing.T) {
	// All results look fabricated, so after filtering the run concludes
	// inconclusive rather than feeding fake sources to the analyzer.
	v, _ := newTestVerifier(t, &fakeSearch{results: []search.Result{
		{URL: "https://example.com/whatever", Title: "fake"},
		{URL: "https://site.example.org/article/12345", Title: "fake"},
	}}, goodProvider())

	record, err := v.VerifyClaim(context.Background(), "the claim", "", "", nil)
	if err != nil {
		t.Fatalf("VerifyClaim: %v", err)
	}
	if record.ConclusionType != model.ConclusionInconclusive {
		t.Errorf("conclusion_type = %s, want inconclusive", record.ConclusionType)
	}
}

func TestRun_FabricatedEvidenceFailsAnalyzing(t *testing.T) {
	provider := goodProvider()
	provider.analyzing = `{
		"evidence_for": [{"source_url": "https://something.example.org/content/abc123", "source_title": "x", "snippet": "y"}],
		"evidence_against": []
	}`
	v, _ := newTestVerifier(t, &fakeSearch{results: goodSearchResults()}, provider)

	record, err := v.VerifyClaim(context.Background(), "the claim", "", "", nil)
	if err != nil {
		t.Fatalf("VerifyClaim: %v", err)
	}
	if record.Status != model.VerificationFailed {
		t.Errorf("status = %s, want failed", record.Status)
	}
	if !strings.HasPrefix(record.ErrorMessage, "[analyzing]") {
		t.Errorf("error message = %q, want [analyzing] prefix", record.ErrorMessage)
	}
	if !strings.Contains(record.ErrorMessage, "fabricated") {
		t.Errorf("error message = %q, want fabricated-URL explanation", record.ErrorMessage)
	}
}

func TestRun_AssessingFailurePreservesEvidence(t *testing.T) {
	provider := goodProvider()
	provider.assessingErr = errors.New("provider exploded")
	v, _ := newTestVerifier(t, &fakeSearch{results: goodSearchResults()}, provider)

	record, err := v.VerifyClaim(context.Background(), "the claim", "", "", nil)
	if err != nil {
		t.Fatalf("VerifyClaim: %v", err)
	}
	if record.Status != model.VerificationFailed {
		t.Errorf("status = %s, want failed", record.Status)
	}
	if !strings.HasPrefix(record.ErrorMessage, "[assessing]") {
		t.Errorf("error message = %q, want [assessing] prefix", record.ErrorMessage)
	}
	if len(record.EvidenceFor) != 1 {
		t.Errorf("evidence gathered before the failure was lost: %+v", record.EvidenceFor)
	}
}

func TestVerifyClaim_RetryCreatesFreshRecord(t *testing.T) {
	provider := goodProvider()
	provider.analyzingErr = errors.New("first run fails")
	v, store := newTestVerifier(t, &fakeSearch{results: goodSearchResults()}, provider)

	first, err := v.VerifyClaim(context.Background(), "the claim", "https://example.org/src", "claim-9", nil)
	if err != nil {
		t.Fatalf("first VerifyClaim: %v", err)
	}
	if first.Status != model.VerificationFailed {
		t.Fatalf("first status = %s, want failed", first.Status)
	}

	provider.analyzingErr = nil
	second, err := v.VerifyClaim(context.Background(), "the claim", "https://example.org/src", "claim-9", nil)
	if err != nil {
		t.Fatalf("second VerifyClaim: %v", err)
	}

	if second.ID == first.ID {
		t.Error("retry reused the failed record instead of creating a new one")
	}
	if second.Status != model.VerificationCompleted {
		t.Errorf("second status = %s, want completed", second.Status)
	}

	// The failed run stays on record for audit.
	kept, err := store.GetByID(first.ID)
	if err != nil || kept == nil {
		t.Fatalf("first record missing after retry: %v", err)
	}
	if kept.Status != model.VerificationFailed {
		t.Errorf("first record status = %s, want failed preserved", kept.Status)
	}
}

func TestComputeConclusionType(t *testing.T) {
	v := NewVerifier(nil, nil, nil, model.VerifyConfig{InconclusiveMargin: 2.0}, logging.New("test", "error"))

	score := func(s float64) *float64 { return &s }
	items := func(scores ...*float64) []model.Evidence {
		out := make([]model.Evidence, len(scores))
		for i, s := range scores {
			out[i] = model.Evidence{SourceURL: "https://x.example", CredibilityScore: s}
		}
		return out
	}

	tests := []struct {
		name    string
		evFor   []model.Evidence
		against []model.Evidence
		want    model.ConclusionType
	}{
		{"no evidence", nil, nil, model.ConclusionInconclusive},
		{"single credible source", items(score(9)), nil, model.ConclusionSupported},
		{"two corroborating sources", items(score(8), score(8)), nil, model.ConclusionSupported},
		{"strong refutation", nil, items(score(8), score(8)), model.ConclusionRefuted},
		{"gap exactly at margin", items(score(7)), items(score(5)), model.ConclusionSupported},
		{"gap below margin", items(score(6)), items(score(5)), model.ConclusionInconclusive},
		{"balanced", items(score(8)), items(score(8)), model.ConclusionInconclusive},
		{"unscored items count midpoint", items(nil), nil, model.ConclusionSupported},
		{"unscored both sides balance", items(nil), items(nil), model.ConclusionInconclusive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := v.computeConclusionType(tt.evFor, tt.against); got != tt.want {
				t.Errorf("computeConclusionType = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestTagError(t *testing.T) {
	if got := tagError("assessing", errors.New("boom")); got != "[assessing] boom" {
		t.Errorf("tagError = %q", got)
	}
	if got := tagError("concluding", errors.New("[assessing] boom")); got != "[assessing] boom" {
		t.Errorf("tagError double-tagged: %q", got)
	}
}

func TestIsFabricatedURL(t *testing.T) {
	fabricated := []string{
		"https://example.com/anything",
		"https://site.example.org/article/42",
		"https://site.example.org/content/abc123",
		"https://site.example.org/aabbccddeeff001122",
		"https://placeholder.example.org/x",
		"https://site.example.org/fake/page",
	}
	for _, u := range fabricated {
		if !isFabricatedURL(u) {
			t.Errorf("isFabricatedURL(%q) = false, want true", u)
		}
	}
	if isFabricatedURL("https://www.britannica.com/topic/Eiffel-Tower") {
		t.Error("legitimate URL flagged as fabricated")
	}
}
