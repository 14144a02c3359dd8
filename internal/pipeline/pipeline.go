// Package pipeline orchestrates the content analysis steps: it resolves each
// step's prerequisite outputs (from cache or by running them), executes the
// step, persists what the step owns, and reports progress.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/claimscope/claimscope/internal/identity"
	"github.com/claimscope/claimscope/internal/model"
	"github.com/claimscope/claimscope/internal/progress"
	"github.com/claimscope/claimscope/internal/scrape"
	"github.com/claimscope/claimscope/internal/step"
	"github.com/claimscope/claimscope/internal/storage"
)

// Orchestrator runs analysis steps for a URL. Step outputs are cached by
// content identity so re-running a later step does not re-run (or re-bill)
// its prerequisites.
type Orchestrator struct {
	scraper  *scrape.Scraper
	executor *step.Executor
	cache    identity.Cache
	cacheTTL time.Duration
	analyses *storage.AnalysisStore
	reviews  *storage.ReviewStore
	results  *storage.ResultStore
	log      *slog.Logger
}

// NewOrchestrator wires the pipeline's collaborators
func NewOrchestrator(
	scraper *scrape.Scraper,
	executor *step.Executor,
	cache identity.Cache,
	cacheTTL time.Duration,
	analyses *storage.AnalysisStore,
	reviews *storage.ReviewStore,
	results *storage.ResultStore,
	log *slog.Logger,
) *Orchestrator {
	if cache == nil {
		cache = identity.NopCache{}
	}
	return &Orchestrator{
		scraper:  scraper,
		executor: executor,
		cache:    cache,
		cacheTTL: cacheTTL,
		analyses: analyses,
		reviews:  reviews,
		results:  results,
		log:      log,
	}
}

// CheckExisting returns the completed analysis for a URL, or nil. Pending and
// failed records do not count as existing results.
func (o *Orchestrator) CheckExisting(url string) (*model.ContentAnalysis, error) {
	analysis, err := o.analyses.GetByURL(url)
	if err != nil {
		return nil, err
	}
	if analysis == nil || analysis.Status != model.AnalysisCompleted {
		return nil, nil
	}
	return analysis, nil
}

// CheckExistingClaims returns the latest claim review for a URL, or nil
func (o *Orchestrator) CheckExistingClaims(url string) (*model.ClaimReview, error) {
	return o.reviews.GetLatestByURL(url)
}

// RunStep runs one analysis step synchronously
func (o *Orchestrator) RunStep(ctx context.Context, id step.ID, url string) (any, error) {
	return o.RunStepWithProgress(ctx, id, url, progress.NopSink{})
}

// RunStepWithProgress runs one analysis step, emitting progress events to the
// sink. Exactly one terminal event (complete or error) is emitted.
func (o *Orchestrator) RunStepWithProgress(ctx context.Context, id step.ID, url string, sink progress.Sink) (any, error) {
	if sink == nil {
		sink = progress.NopSink{}
	}
	if !step.Valid(id) {
		err := fmt.Errorf("unknown step: %s", id)
		o.emitError(sink, string(id), err)
		return nil, err
	}

	sink.Emit(progress.Event{
		Type: progress.EventProgress, Step: string(id), Progress: 10,
		Message: fmt.Sprintf("starting %s", id),
	})

	content, err := o.Content(ctx, url)
	if err != nil {
		o.emitError(sink, string(id), err)
		return nil, err
	}

	if id == step.Fetch {
		sink.Emit(progress.Event{
			Type: progress.EventComplete, Step: string(id), Progress: 100, Data: content,
		})
		return content, nil
	}

	inputs, err := o.inputsFor(ctx, id, url, content)
	if err != nil {
		o.emitError(sink, string(id), err)
		return nil, err
	}

	sink.Emit(progress.Event{
		Type: progress.EventProgress, Step: string(id), Progress: 50,
		Message: fmt.Sprintf("running %s", id),
	})

	out, err := o.execute(ctx, id, url, content, inputs)
	if err != nil {
		o.emitError(sink, string(id), err)
		return nil, err
	}

	sink.Emit(progress.Event{
		Type: progress.EventComplete, Step: string(id), Progress: 100, Data: out,
	})
	return out, nil
}

// Content returns the scraped content for a URL, from the step cache, the
// scrape store, or a live fetch (in that order).
func (o *Orchestrator) Content(ctx context.Context, url string) (*model.ScrapedContent, error) {
	key := identity.StepKey(identity.HashURL(url), string(step.Fetch))

	if blob, ok := o.cache.Get(key); ok {
		var content model.ScrapedContent
		if err := json.Unmarshal(blob, &content); err == nil {
			return &content, nil
		}
		_ = o.cache.Delete(key)
	}

	if record, err := o.results.GetByURL(url); err == nil && record != nil && len(record.Content.Elements) > 0 {
		o.cachePayload(key, &record.Content)
		return &record.Content, nil
	}

	content, err := o.scraper.Extract(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}

	if _, err := o.results.Save(content); err != nil {
		o.log.Warn("persisting scrape failed", "url", url, "err", err)
	}
	o.cachePayload(key, content)

	return content, nil
}

// execute runs the step against the executor and handles the persistence the
// step owns. Summary owns the ContentAnalysis record lifecycle; Claims
// appends a ClaimReview. Cached outputs short-circuit the provider call.
func (o *Orchestrator) execute(ctx context.Context, id step.ID, url string, content *model.ScrapedContent, in step.Inputs) (any, error) {
	switch id {
	case step.Summary:
		return o.runSummary(ctx, url, content, in)
	case step.Claims:
		return o.runClaims(ctx, url, in)
	default:
		key := identity.StepKey(identity.HashURL(url), string(id))
		if blob, ok := o.cache.Get(key); ok {
			if out, err := decodeCached(id, blob); err == nil {
				o.log.Debug("step served from cache", "step", string(id), "url", url)
				return out, nil
			}
			_ = o.cache.Delete(key)
		}

		out, err := o.executor.Execute(ctx, id, in)
		if err != nil {
			return nil, err
		}
		o.cachePayload(key, out)
		return out, nil
	}
}

func (o *Orchestrator) runSummary(ctx context.Context, url string, content *model.ScrapedContent, in step.Inputs) (*model.SummaryResult, error) {
	key := identity.StepKey(identity.HashURL(url), string(step.Summary))
	if blob, ok := o.cache.Get(key); ok {
		var result model.SummaryResult
		if err := json.Unmarshal(blob, &result); err == nil {
			return &result, nil
		}
		_ = o.cache.Delete(key)
	}

	record, err := o.analyses.CreateOrReset(url, content.SourceType, content.Title)
	if err != nil {
		return nil, err
	}

	out, err := o.executor.Execute(ctx, step.Summary, in)
	if err != nil {
		if markErr := o.analyses.MarkFailed(record.ID, err.Error()); markErr != nil {
			o.log.Error("marking analysis failed", "id", record.ID, "err", markErr)
		}
		return nil, err
	}

	result := out.(*model.SummaryResult)
	if err := o.analyses.SaveResults(record.ID, result); err != nil {
		return nil, err
	}
	o.cachePayload(key, result)

	return result, nil
}

func (o *Orchestrator) runClaims(ctx context.Context, url string, in step.Inputs) (*model.ClaimsResult, error) {
	key := identity.StepKey(identity.HashURL(url), string(step.Claims))
	if blob, ok := o.cache.Get(key); ok {
		var result model.ClaimsResult
		if err := json.Unmarshal(blob, &result); err == nil {
			return &result, nil
		}
		_ = o.cache.Delete(key)
	}

	out, err := o.executor.Execute(ctx, step.Claims, in)
	if err != nil {
		return nil, err
	}

	result := out.(*model.ClaimsResult)
	if _, err := o.reviews.Create(url, result.Claims); err != nil {
		return nil, err
	}
	o.cachePayload(key, result)

	return result, nil
}

// inputsFor assembles a step's inputs, running prerequisite steps that have
// no cached output yet.
func (o *Orchestrator) inputsFor(ctx context.Context, id step.ID, url string, content *model.ScrapedContent) (step.Inputs, error) {
	in := step.Inputs{
		URL:      url,
		Content:  content,
		FullText: content.FullText(),
	}

	needsSummary := id == step.Claims || id == step.Controversy || id == step.Counterargument
	needsClaims := id == step.Controversy || id == step.Fallacies || id == step.Counterargument

	if needsSummary {
		summary, err := o.runSummary(ctx, url, content, in)
		if err != nil {
			return in, fmt.Errorf("prerequisite summary: %w", err)
		}
		in.Summary = summary
	}

	if needsClaims {
		claims, err := o.runClaims(ctx, url, in)
		if err != nil {
			return in, fmt.Errorf("prerequisite claims: %w", err)
		}
		in.Claims = claims
	}

	return in, nil
}

func (o *Orchestrator) cachePayload(key string, v any) {
	blob, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := o.cache.Set(key, blob, o.cacheTTL); err != nil {
		o.log.Warn("caching step payload failed", "key", key, "err", err)
	}
}

func (o *Orchestrator) emitError(sink progress.Sink, stepName string, err error) {
	if tagged := model.StepOf(err); tagged != "" {
		stepName = tagged
	}
	sink.Emit(progress.Event{
		Type:  progress.EventError,
		Step:  stepName,
		Error: fmt.Sprintf("[%s] %v", stepName, err),
	})
}

func decodeCached(id step.ID, blob []byte) (any, error) {
	switch id {
	case step.Controversy:
		return unmarshalPtr[model.ControversyResult](blob)
	case step.Fallacies:
		return unmarshalPtr[model.FallaciesResult](blob)
	case step.Counterargument:
		return unmarshalPtr[model.CounterargumentResult](blob)
	default:
		return nil, fmt.Errorf("no cached decoder for step %s", id)
	}
}

func unmarshalPtr[T any](blob []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(blob, &v); err != nil {
		return nil, err
	}
	return &v, nil
}
