package step

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/claimscope/claimscope/internal/llm"
	"github.com/claimscope/claimscope/internal/model"
)

// Executor runs exactly one named step against the LLM provider. It owns no
// persistence; the orchestrator decides what to do with the output.
type Executor struct {
	provider llm.Provider
	log      *slog.Logger
}

// NewExecutor creates a step executor
func NewExecutor(provider llm.Provider, log *slog.Logger) *Executor {
	return &Executor{provider: provider, log: log}
}

// Execute runs one step. The returned value is the step's typed result
// (*model.SummaryResult for Summary, and so on). Missing required inputs
// fail as *model.InputError before the provider is called; structurally
// invalid output is retried once with a stricter instruction, then surfaced
// as *model.SchemaError.
func (e *Executor) Execute(ctx context.Context, id ID, in Inputs) (any, error) {
	sp, ok := registry[id]
	if !ok {
		return nil, fmt.Errorf("unknown step: %s", id)
	}

	if missing := sp.requires(in); len(missing) > 0 {
		return nil, &model.InputError{Step: string(id), Missing: missing}
	}

	system, user := sp.prompt(in)

	resp, err := e.complete(ctx, id, system, user)
	if err != nil {
		return nil, err
	}

	out, decodeErr := sp.decode(resp.Text)
	if decodeErr == nil {
		return out, nil
	}

	e.log.Warn("step output failed validation, retrying once",
		slog.String("step", string(id)), slog.Any("err", decodeErr))

	resp, err = e.complete(ctx, id, system, user+strictSuffix)
	if err != nil {
		return nil, err
	}

	out, decodeErr = sp.decode(resp.Text)
	if decodeErr != nil {
		return nil, &model.SchemaError{Step: string(id), Err: decodeErr}
	}

	return out, nil
}

// complete performs one provider call and maps failures onto the pipeline
// error taxonomy.
func (e *Executor) complete(ctx context.Context, id ID, system, user string) (*llm.Response, error) {
	resp, err := e.provider.Complete(ctx, llm.Request{
		System:      system,
		Prompt:      user,
		Temperature: 0.3,
	})
	if err == nil {
		return resp, nil
	}

	switch {
	case errors.Is(err, llm.ErrRateLimited):
		return nil, &model.RateLimitError{Step: string(id), Provider: e.provider.Name(), Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return nil, &model.TimeoutError{Step: string(id), Err: err}
	default:
		return nil, &model.ProviderError{Step: string(id), Provider: e.provider.Name(), Err: err}
	}
}
