package step

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/claimscope/claimscope/internal/model"
)

// ExtractJSON pulls the JSON object out of a model response, tolerating
// markdown fences and surrounding prose.
func ExtractJSON(text string) (string, error) {
	trimmed := strings.TrimSpace(text)

	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		trimmed = strings.TrimSpace(trimmed)
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("no JSON object in response")
	}

	return trimmed[start : end+1], nil
}

// decodeInto builds a decoder that unmarshals into T and applies the step's
// structural validation.
func decodeInto[T any](validate func(*T) error) func(string) (any, error) {
	return func(text string) (any, error) {
		raw, err := ExtractJSON(text)
		if err != nil {
			return nil, err
		}

		var out T
		if err := json.Unmarshal([]byte(raw), &out); err != nil {
			return nil, fmt.Errorf("unmarshal: %w", err)
		}

		if err := validate(&out); err != nil {
			return nil, err
		}

		return &out, nil
	}
}

func validateSummary(r *model.SummaryResult) error {
	if r.Summary.Summary == "" {
		return fmt.Errorf("summary.summary is empty")
	}
	if r.Assessment.Credibility == "" {
		return fmt.Errorf("source_assessment.credibility is empty")
	}
	return nil
}

func validateClaims(r *model.ClaimsResult) error {
	if r.Claims == nil {
		return fmt.Errorf("claims field is absent")
	}
	for i := range r.Claims {
		if r.Claims[i].Text == "" {
			return fmt.Errorf("claims[%d].text is empty", i)
		}
		r.Claims[i].Type = model.NormalizeClaimType(string(r.Claims[i].Type))
	}
	return nil
}

func validateControversy(r *model.ControversyResult) error {
	switch r.Level {
	case model.ControversyLow, model.ControversyMedium, model.ControversyHigh:
	default:
		return fmt.Errorf("level %q is not low/medium/high", r.Level)
	}
	if r.Summary == "" {
		return fmt.Errorf("summary is empty")
	}
	return nil
}

func validateFallacies(r *model.FallaciesResult) error {
	if r.OverallQuality == "" {
		return fmt.Errorf("overall_quality is empty")
	}
	for i, f := range r.Fallacies {
		if f.Type == "" {
			return fmt.Errorf("fallacies[%d].type is empty", i)
		}
	}
	return nil
}

func validateCounterargument(r *model.CounterargumentResult) error {
	if r.Counterargument == "" {
		return fmt.Errorf("counterargument is empty")
	}
	return nil
}

func validateEvidenceAnalysis(r *model.EvidenceAnalysis) error {
	if r.EvidenceFor == nil {
		r.EvidenceFor = []model.Evidence{}
	}
	if r.EvidenceAgainst == nil {
		r.EvidenceAgainst = []model.Evidence{}
	}
	for _, e := range append(append([]model.Evidence{}, r.EvidenceFor...), r.EvidenceAgainst...) {
		if e.SourceURL == "" {
			return fmt.Errorf("evidence item without source_url")
		}
	}
	return nil
}

func validateCredibility(r *model.CredibilityAssessment) error {
	if r.Score < 0 || r.Score > 10 {
		return fmt.Errorf("credibility_score %v out of 0-10 range", r.Score)
	}
	if r.Reasoning == "" {
		return fmt.Errorf("credibility_reasoning is empty")
	}
	return nil
}

func validateConclusion(r *model.ConclusionDraft) error {
	if r.Conclusion == "" {
		return fmt.Errorf("conclusion is empty")
	}
	return nil
}
