package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/claimscope/claimscope/internal/identity"
	"github.com/claimscope/claimscope/internal/llm"
	"github.com/claimscope/claimscope/internal/logging"
	"github.com/claimscope/claimscope/internal/model"
	"github.com/claimscope/claimscope/internal/progress"
	"github.com/claimscope/claimscope/internal/step"
	"github.com/claimscope/claimscope/internal/storage"
)

const (
	summaryJSON = `{
		"source_assessment": {"credibility": "high", "reasoning": "primary source"},
		"summary": {"summary": "The article argues X.", "key_claims": [], "main_argument": "X"}
	}`
	claimsJSON      = `{"claims": [{"text": "X happened in 2020", "type": "factual"}]}`
	controversyJSON = `{"level": "medium", "summary": "somewhat contested"}`
	fallaciesJSON   = `{"overall_quality": "sound", "fallacies": []}`
)

// stepProvider answers per analysis step, keyed off the system prompt, and
// counts calls per step so tests can assert cache short-circuits.
type stepProvider struct {
	calls map[string]int
	errs  map[string]error
}

func newStepProvider() *stepProvider {
	return &stepProvider{calls: map[string]int{}, errs: map[string]error{}}
}

func (p *stepProvider) stepFor(system string) string {
	switch {
	case strings.Contains(system, "content analyst"):
		return "summary"
	case strings.Contains(system, "claim extraction"):
		return "claims"
	case strings.Contains(system, "controversy analyst"):
		return "controversy"
	case strings.Contains(system, "logic analyst"):
		return "fallacies"
	case strings.Contains(system, "devil's advocate"):
		return "counterargument"
	}
	return ""
}

func (p *stepProvider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	name := p.stepFor(req.System)
	p.calls[name]++
	if err := p.errs[name]; err != nil {
		return nil, err
	}
	switch name {
	case "summary":
		return &llm.Response{Text: summaryJSON}, nil
	case "claims":
		return &llm.Response{Text: claimsJSON}, nil
	case "controversy":
		return &llm.Response{Text: controversyJSON}, nil
	case "fallacies":
		return &llm.Response{Text: fallaciesJSON}, nil
	case "counterargument":
		return &llm.Response{Text: `{"counterargument": "On the other hand, Y."}`}, nil
	}
	return nil, fmt.Errorf("unexpected request: %s", req.System)
}

func (p *stepProvider) Name() string                         { return "steps" }
func (p *stepProvider) IsAvailable(ctx context.Context) bool { return true }

type harness struct {
	orch     *Orchestrator
	provider *stepProvider
	cache    identity.Cache
	analyses *storage.AnalysisStore
	reviews  *storage.ReviewStore
}

// newHarness builds an orchestrator whose content cache is pre-seeded, so no
// test ever reaches the scraper.
func newHarness(t *testing.T, url string) *harness {
	t.Helper()

	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	log := logging.New("test", "error")
	provider := newStepProvider()
	cache := identity.NewMemoryCache(time.Hour, time.Hour)
	analyses := storage.NewAnalysisStore(db)
	reviews := storage.NewReviewStore(db)
	results := storage.NewResultStore(db)

	orch := NewOrchestrator(nil, step.NewExecutor(provider, log), cache, time.Hour, analyses, reviews, results, log)

	seedContent(t, cache, url)

	return &harness{orch: orch, provider: provider, cache: cache, analyses: analyses, reviews: reviews}
}

func seedContent(t *testing.T, cache identity.Cache, url string) {
	t.Helper()
	content := &model.ScrapedContent{
		URL:        url,
		SourceType: model.SourceWebpage,
		Title:      "Seeded Article",
		Elements: []model.TextElement{
			{Content: "The article body makes an argument.", Tag: "p", WordCount: 6, CharCount: 35},
		},
	}
	blob, err := json.Marshal(content)
	if err != nil {
		t.Fatalf("marshal content: %v", err)
	}
	key := identity.StepKey(identity.HashURL(url), string(step.Fetch))
	if err := cache.Set(key, blob, time.Hour); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
}

func TestRunStep_SummaryPersistsAnalysis(t *testing.T) {
	url := "https://example.org/article"
	h := newHarness(t, url)

	out, err := h.orch.RunStep(context.Background(), step.Summary, url)
	if err != nil {
		t.Fatalf("RunStep: %v", err)
	}
	result, ok := out.(*model.SummaryResult)
	if !ok {
		t.Fatalf("output type %T, want *model.SummaryResult", out)
	}
	if result.Assessment.Credibility != "high" {
		t.Errorf("credibility = %q, want high", result.Assessment.Credibility)
	}

	analysis, err := h.analyses.GetByURL(url)
	if err != nil {
		t.Fatalf("GetByURL: %v", err)
	}
	if analysis == nil || analysis.Status != model.AnalysisCompleted {
		t.Fatalf("analysis = %+v, want completed record", analysis)
	}
	if analysis.ExecutiveSummary != "The article argues X." {
		t.Errorf("executive summary = %q", analysis.ExecutiveSummary)
	}
}

func TestRunStep_SummaryFailureMarksRecord(t *testing.T) {
	url := "https://example.org/article"
	h := newHarness(t, url)
	h.provider.errs["summary"] = errors.New("provider exploded")

	if _, err := h.orch.RunStep(context.Background(), step.Summary, url); err == nil {
		t.Fatal("expected error")
	}

	analysis, err := h.analyses.GetByURL(url)
	if err != nil {
		t.Fatalf("GetByURL: %v", err)
	}
	if analysis == nil || analysis.Status != model.AnalysisFailed {
		t.Fatalf("analysis = %+v, want failed record", analysis)
	}
	if analysis.ErrorMessage == "" {
		t.Error("failed analysis has no error message")
	}
}

func TestRunStep_ClaimsCreatesReview(t *testing.T) {
	url := "https://example.org/article"
	h := newHarness(t, url)

	out, err := h.orch.RunStep(context.Background(), step.Claims, url)
	if err != nil {
		t.Fatalf("RunStep: %v", err)
	}
	result := out.(*model.ClaimsResult)
	if len(result.Claims) != 1 || result.Claims[0].Type != model.ClaimFactual {
		t.Fatalf("claims = %+v", result.Claims)
	}

	review, err := h.reviews.GetLatestByURL(url)
	if err != nil {
		t.Fatalf("GetLatestByURL: %v", err)
	}
	if review == nil || len(review.Claims) != 1 {
		t.Fatalf("review = %+v, want one stored claim", review)
	}

	// Claims depends on summary, which must have run too.
	if h.provider.calls["summary"] != 1 {
		t.Errorf("summary calls = %d, want 1 (prerequisite)", h.provider.calls["summary"])
	}
}

func TestRunStep_CachedPrerequisitesNotRerun(t *testing.T) {
	url := "https://example.org/article"
	h := newHarness(t, url)

	if _, err := h.orch.RunStep(context.Background(), step.Summary, url); err != nil {
		t.Fatalf("summary: %v", err)
	}
	if _, err := h.orch.RunStep(context.Background(), step.Claims, url); err != nil {
		t.Fatalf("claims: %v", err)
	}
	if _, err := h.orch.RunStep(context.Background(), step.Controversy, url); err != nil {
		t.Fatalf("controversy: %v", err)
	}

	if h.provider.calls["summary"] != 1 {
		t.Errorf("summary calls = %d, want 1 (later steps must reuse the cached output)", h.provider.calls["summary"])
	}
	if h.provider.calls["claims"] != 1 {
		t.Errorf("claims calls = %d, want 1", h.provider.calls["claims"])
	}
	if h.provider.calls["controversy"] != 1 {
		t.Errorf("controversy calls = %d, want 1", h.provider.calls["controversy"])
	}
}

func TestRunStep_RepeatServedFromCache(t *testing.T) {
	url := "https://example.org/article"
	h := newHarness(t, url)

	first, err := h.orch.RunStep(context.Background(), step.Controversy, url)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := h.orch.RunStep(context.Background(), step.Controversy, url)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if h.provider.calls["controversy"] != 1 {
		t.Errorf("controversy calls = %d, want 1 (second run should hit the cache)", h.provider.calls["controversy"])
	}
	a := first.(*model.ControversyResult)
	b := second.(*model.ControversyResult)
	if a.Level != b.Level || a.Summary != b.Summary {
		t.Errorf("cached result differs: %+v vs %+v", a, b)
	}
}

func TestRunStep_FetchShortCircuits(t *testing.T) {
	url := "https://example.org/article"
	h := newHarness(t, url)

	var events []progress.Event
	sink := progress.SinkFunc(func(e progress.Event) { events = append(events, e) })

	out, err := h.orch.RunStepWithProgress(context.Background(), step.Fetch, url, sink)
	if err != nil {
		t.Fatalf("RunStepWithProgress: %v", err)
	}
	content := out.(*model.ScrapedContent)
	if content.Title != "Seeded Article" {
		t.Errorf("title = %q", content.Title)
	}

	last := events[len(events)-1]
	if last.Type != progress.EventComplete || last.Progress != 100 {
		t.Errorf("terminal event = %+v", last)
	}
	if len(h.provider.calls) != 0 {
		t.Errorf("fetch step called the provider: %v", h.provider.calls)
	}
}

func TestRunStep_UnknownStep(t *testing.T) {
	h := newHarness(t, "https://example.org/article")

	var events []progress.Event
	sink := progress.SinkFunc(func(e progress.Event) { events = append(events, e) })

	if _, err := h.orch.RunStepWithProgress(context.Background(), step.ID("bogus"), "https://example.org/article", sink); err == nil {
		t.Fatal("unknown step accepted")
	}
	if len(events) != 1 || events[0].Type != progress.EventError {
		t.Fatalf("events = %+v, want single error event", events)
	}
}

func TestRunStep_ErrorEventCarriesStepTag(t *testing.T) {
	url := "https://example.org/article"
	h := newHarness(t, url)
	h.provider.errs["summary"] = errors.New("provider exploded")

	var events []progress.Event
	sink := progress.SinkFunc(func(e progress.Event) { events = append(events, e) })

	if _, err := h.orch.RunStepWithProgress(context.Background(), step.Summary, url, sink); err == nil {
		t.Fatal("expected error")
	}

	last := events[len(events)-1]
	if last.Type != progress.EventError {
		t.Fatalf("terminal event = %+v, want error", last)
	}
	if !strings.HasPrefix(last.Error, "[summary]") {
		t.Errorf("error = %q, want [summary] prefix", last.Error)
	}
}

func TestCheckExisting_IgnoresIncomplete(t *testing.T) {
	url := "https://example.org/article"
	h := newHarness(t, url)

	existing, err := h.orch.CheckExisting(url)
	if err != nil {
		t.Fatalf("CheckExisting: %v", err)
	}
	if existing != nil {
		t.Fatal("found analysis before any run")
	}

	record, err := h.analyses.CreateOrReset(url, model.SourceWebpage, "t")
	if err != nil {
		t.Fatalf("CreateOrReset: %v", err)
	}
	existing, err = h.orch.CheckExisting(url)
	if err != nil {
		t.Fatalf("CheckExisting: %v", err)
	}
	if existing != nil {
		t.Error("pending analysis reported as existing")
	}

	if err := h.analyses.MarkFailed(record.ID, "x"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	existing, err = h.orch.CheckExisting(url)
	if err != nil {
		t.Fatalf("CheckExisting: %v", err)
	}
	if existing != nil {
		t.Error("failed analysis reported as existing")
	}

	if _, err := h.orch.RunStep(context.Background(), step.Summary, url); err != nil {
		t.Fatalf("RunStep: %v", err)
	}
	existing, err = h.orch.CheckExisting(url)
	if err != nil {
		t.Fatalf("CheckExisting: %v", err)
	}
	if existing == nil {
		t.Error("completed analysis not reported")
	}
}
