package model

import (
	"errors"
	"fmt"
	"strings"
)

// InputError signals a step invoked without its required prior-step data.
// It is raised before any collaborator call is made.
type InputError struct {
	Step    string
	Missing []string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("step %s: missing required input: %s", e.Step, strings.Join(e.Missing, ", "))
}

// ProviderError signals that an external collaborator (LLM, search) was
// unreachable or rejected the request.
type ProviderError struct {
	Step     string
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("step %s: %s provider: %v", e.Step, e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// RateLimitError signals quota exhaustion at a collaborator
type RateLimitError struct {
	Step     string
	Provider string
	Err      error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("step %s: %s rate limited: %v", e.Step, e.Provider, e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// SchemaError signals structurally invalid collaborator output that survived
// one retry. It is never silently coerced.
type SchemaError struct {
	Step string
	Err  error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("step %s: malformed output: %v", e.Step, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// TimeoutError signals a deadline exceeded at a suspension point. It aborts
// the current step only; prior persisted steps are unaffected.
type TimeoutError struct {
	Step string
	Err  error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("step %s: timed out: %v", e.Step, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// StorageError wraps persistence failures so they remain distinguishable
// from pipeline errors.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// StepOf extracts the step tag from a pipeline error, or "" when the error
// carries none.
func StepOf(err error) string {
	var in *InputError
	if errors.As(err, &in) {
		return in.Step
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Step
	}
	var re *RateLimitError
	if errors.As(err, &re) {
		return re.Step
	}
	var se *SchemaError
	if errors.As(err, &se) {
		return se.Step
	}
	var te *TimeoutError
	if errors.As(err, &te) {
		return te.Step
	}
	return ""
}
