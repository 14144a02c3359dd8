package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestStepOf(t *testing.T) {
	base := errors.New("boom")

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"input", &InputError{Step: "summary", Missing: []string{"content"}}, "summary"},
		{"provider", &ProviderError{Step: "claims", Provider: "openai", Err: base}, "claims"},
		{"rate limit", &RateLimitError{Step: "assessing", Provider: "openai", Err: base}, "assessing"},
		{"schema", &SchemaError{Step: "controversy", Err: base}, "controversy"},
		{"timeout", &TimeoutError{Step: "concluding", Err: base}, "concluding"},
		{"wrapped", fmt.Errorf("outer: %w", &SchemaError{Step: "fallacies", Err: base}), "fallacies"},
		{"untagged", base, ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StepOf(tt.err); got != tt.want {
				t.Errorf("StepOf = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorUnwrapping(t *testing.T) {
	base := errors.New("root cause")
	wrapped := &ProviderError{Step: "summary", Provider: "openai", Err: base}

	if !errors.Is(wrapped, base) {
		t.Error("ProviderError does not unwrap to its cause")
	}
}

func TestNormalizeClaimType(t *testing.T) {
	if got := NormalizeClaimType("factual"); got != ClaimFactual {
		t.Errorf("factual normalized to %q", got)
	}
	if got := NormalizeClaimType("nonsense"); got != ClaimOther {
		t.Errorf("unknown type normalized to %q, want other", got)
	}
}

func TestNormalizeConclusionType(t *testing.T) {
	if got := NormalizeConclusionType("refuted"); got != ConclusionRefuted {
		t.Errorf("refuted normalized to %q", got)
	}
	if got := NormalizeConclusionType("maybe"); got != ConclusionInconclusive {
		t.Errorf("unknown verdict normalized to %q, want inconclusive", got)
	}
}
