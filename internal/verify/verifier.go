// Package verify runs the claim-verification workflow: web search, evidence
// categorization, per-source credibility scoring, and conclusion synthesis.
package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/claimscope/claimscope/internal/model"
	"github.com/claimscope/claimscope/internal/progress"
	"github.com/claimscope/claimscope/internal/search"
	"github.com/claimscope/claimscope/internal/step"
	"github.com/claimscope/claimscope/internal/storage"
)

// fakeURLPatterns flag URLs the LLM likely fabricated instead of taking from
// the search results. A match usually means the web search failed silently.
var fakeURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)/[a-f0-9]{12,}$`),
	regexp.MustCompile(`(?i)/article/\d+$`),
	regexp.MustCompile(`(?i)/content/[a-z0-9]+$`),
	regexp.MustCompile(`(?i)example\.com`),
	regexp.MustCompile(`(?i)placeholder`),
	regexp.MustCompile(`(?i)/fake/`),
	regexp.MustCompile(`(?i)/test/`),
}

// Verifier runs verifications and persists their lifecycle
type Verifier struct {
	searcher search.Client
	executor *step.Executor
	store    *storage.VerificationStore
	cfg      model.VerifyConfig
	log      *slog.Logger
}

// NewVerifier creates a verifier
func NewVerifier(searcher search.Client, executor *step.Executor, store *storage.VerificationStore, cfg model.VerifyConfig, log *slog.Logger) *Verifier {
	if cfg.AssessWorkers <= 0 {
		cfg.AssessWorkers = 4
	}
	if cfg.InconclusiveMargin <= 0 {
		cfg.InconclusiveMargin = 2.0
	}
	return &Verifier{searcher: searcher, executor: executor, store: store, cfg: cfg, log: log}
}

// VerifyClaim creates a new verification record and runs the workflow on it.
// Every call creates a fresh record; retries never mutate earlier runs.
func (v *Verifier) VerifyClaim(ctx context.Context, claimText, sourceURL, claimID string, sink progress.Sink) (*model.ClaimVerification, error) {
	if strings.TrimSpace(claimText) == "" {
		return nil, fmt.Errorf("claim text is required")
	}

	record, err := v.store.Create(claimText, sourceURL, claimID)
	if err != nil {
		return nil, err
	}

	if err := v.Run(ctx, record.ID, claimText, sink); err != nil {
		return v.store.GetByID(record.ID)
	}
	return v.store.GetByID(record.ID)
}

// GetByClaim returns the most recent verification for a claim key
func (v *Verifier) GetByClaim(claimID, claimText, sourceURL string) (*model.ClaimVerification, error) {
	return v.store.GetByClaim(claimID, claimText, sourceURL)
}

// Run executes the workflow phases against an existing record. Phase
// failures mark the record failed with a "[phase] message" error and emit a
// terminal error event; evidence gathered before the failure stays on the
// record.
func (v *Verifier) Run(ctx context.Context, verificationID, claimText string, sink progress.Sink) error {
	if sink == nil {
		sink = progress.NopSink{}
	}

	if err := v.store.UpdateStatus(verificationID, model.VerificationInProgress, ""); err != nil {
		return err
	}

	emit := func(message, stepName string, pct int) {
		sink.Emit(progress.Event{Type: progress.EventProgress, Message: message, Step: stepName, Progress: pct})
	}

	fail := func(phase string, err error) error {
		tagged := tagError(phase, err)
		v.log.Error("verification failed", "id", verificationID, "step", phase, "err", err)
		if updateErr := v.store.UpdateStatus(verificationID, model.VerificationFailed, tagged); updateErr != nil {
			v.log.Error("recording verification failure", "id", verificationID, "err", updateErr)
		}
		sink.Emit(progress.Event{Type: progress.EventError, Step: phase, Error: tagged})
		return errors.New(tagged)
	}

	emit("Validating configuration...", "starting", 5)
	if v.searcher == nil {
		return fail("configuration", errors.New("search API key not configured"))
	}

	// Phase 1: web search
	emit("Searching the web for evidence...", "searching", 10)
	results, err := v.searcher.Search(ctx, claimText)
	if err != nil {
		return fail("searching", fmt.Errorf("web search failed: %w", err))
	}
	results = dropFabricated(results, v.log)

	if len(results) == 0 {
		// No evidence either way is a valid outcome, not a failure.
		conclusion := "No relevant evidence was found for this claim. The claim could not be verified or refuted."
		if err := v.store.SaveResults(verificationID, nil, nil, conclusion, model.ConclusionInconclusive); err != nil {
			return fail("searching", err)
		}
		sink.Emit(progress.Event{Type: progress.EventComplete, Step: "complete", Progress: 100,
			Message: "Verification complete: no evidence found"})
		return nil
	}
	emit("Search complete. Analyzing evidence...", "searching", 25)

	// Phase 2: evidence categorization
	emit("Categorizing evidence for and against the claim...", "analyzing", 30)
	out, err := v.executor.Execute(ctx, step.Analyzing, step.Inputs{ClaimText: claimText, SearchResults: results})
	if err != nil {
		return fail("analyzing", err)
	}
	analysis := out.(*model.EvidenceAnalysis)

	if fabricated := fabricatedEvidence(analysis.EvidenceFor, analysis.EvidenceAgainst); len(fabricated) > 0 {
		return fail("analyzing", fmt.Errorf(
			"evidence contains URLs that appear to be fabricated, which usually means the web search failed silently: %s",
			strings.Join(fabricated, ", ")))
	}

	if err := v.store.SaveEvidence(verificationID, analysis.EvidenceFor, analysis.EvidenceAgainst); err != nil {
		return fail("analyzing", err)
	}
	emit("Evidence categorized. Assessing source credibility...", "analyzing", 50)

	// Phase 3: per-source credibility assessment
	emit("Evaluating source credibility...", "assessing", 55)
	if err := v.assessAll(ctx, claimText, analysis); err != nil {
		return fail("assessing", err)
	}
	if err := v.store.SaveEvidence(verificationID, analysis.EvidenceFor, analysis.EvidenceAgainst); err != nil {
		return fail("assessing", err)
	}
	emit("Credibility assessed. Synthesizing conclusion...", "assessing", 75)

	// Phase 4: conclusion synthesis
	emit("Generating final conclusion...", "concluding", 80)
	conclusionType := v.computeConclusionType(analysis.EvidenceFor, analysis.EvidenceAgainst)

	out, err = v.executor.Execute(ctx, step.Concluding, step.Inputs{
		ClaimText:       claimText,
		EvidenceFor:     analysis.EvidenceFor,
		EvidenceAgainst: analysis.EvidenceAgainst,
	})
	if err != nil {
		return fail("concluding", err)
	}
	draft := out.(*model.ConclusionDraft)
	emit("Conclusion generated. Saving results...", "concluding", 95)

	if err := v.store.SaveResults(verificationID, analysis.EvidenceFor, analysis.EvidenceAgainst, draft.Conclusion, conclusionType); err != nil {
		return fail("concluding", err)
	}

	sink.Emit(progress.Event{Type: progress.EventComplete, Step: "complete", Progress: 100,
		Message: "Verification complete"})
	return nil
}

// assessAll scores each evidence item's source independently and
// concurrently, bounded by AssessWorkers. Items keep their scores on success;
// any item failure fails the phase.
func (v *Verifier) assessAll(ctx context.Context, claimText string, analysis *model.EvidenceAnalysis) error {
	items := make([]*model.Evidence, 0, len(analysis.EvidenceFor)+len(analysis.EvidenceAgainst))
	for i := range analysis.EvidenceFor {
		items = append(items, &analysis.EvidenceFor[i])
	}
	for i := range analysis.EvidenceAgainst {
		items = append(items, &analysis.EvidenceAgainst[i])
	}

	sem := make(chan struct{}, v.cfg.AssessWorkers)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	for _, item := range items {
		wg.Add(1)
		go func(ev *model.Evidence) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			out, err := v.executor.Execute(ctx, step.Assessing, step.Inputs{ClaimText: claimText, Evidence: ev})
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}

			assessment := out.(*model.CredibilityAssessment)
			score := assessment.Score
			ev.CredibilityScore = &score
			ev.CredibilityReasoning = assessment.Reasoning
		}(item)
	}
	wg.Wait()

	return firstErr
}

// computeConclusionType derives the categorical verdict from
// credibility-weighted evidence so the verdict is reproducible from the
// stored evidence. Each item contributes its raw 0-10 score; unscored items
// count the scale midpoint so a missing assessment cannot zero out a side.
func (v *Verifier) computeConclusionType(evidenceFor, evidenceAgainst []model.Evidence) model.ConclusionType {
	sumFor := weightedSum(evidenceFor)
	sumAgainst := weightedSum(evidenceAgainst)

	switch {
	case sumFor == 0 && sumAgainst == 0:
		return model.ConclusionInconclusive
	case sumFor-sumAgainst >= v.cfg.InconclusiveMargin:
		return model.ConclusionSupported
	case sumAgainst-sumFor >= v.cfg.InconclusiveMargin:
		return model.ConclusionRefuted
	default:
		return model.ConclusionInconclusive
	}
}

func weightedSum(evidence []model.Evidence) float64 {
	var sum float64
	for _, ev := range evidence {
		if ev.CredibilityScore != nil {
			sum += *ev.CredibilityScore
		} else {
			sum += 5
		}
	}
	return sum
}

func tagError(phase string, err error) string {
	msg := err.Error()
	if strings.HasPrefix(msg, "[") {
		return msg
	}
	return fmt.Sprintf("[%s] %s", phase, msg)
}

func isFabricatedURL(url string) bool {
	for _, p := range fakeURLPatterns {
		if p.MatchString(url) {
			return true
		}
	}
	return false
}

func dropFabricated(results []search.Result, log *slog.Logger) []search.Result {
	kept := results[:0]
	for _, r := range results {
		if isFabricatedURL(r.URL) {
			log.Warn("dropping suspicious search result", "url", r.URL)
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

func fabricatedEvidence(lists ...[]model.Evidence) []string {
	var fabricated []string
	for _, list := range lists {
		for _, ev := range list {
			if isFabricatedURL(ev.SourceURL) {
				fabricated = append(fabricated, ev.SourceURL)
			}
		}
	}
	if len(fabricated) > 3 {
		fabricated = fabricated[:3]
	}
	return fabricated
}
