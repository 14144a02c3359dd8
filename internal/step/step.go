// Package step executes single named analysis phases against the LLM
// collaborator and enforces their structural contracts.
package step

import (
	"github.com/claimscope/claimscope/internal/model"
	"github.com/claimscope/claimscope/internal/search"
)

// ID identifies one pipeline phase. The set is closed: dispatch goes through
// the registry table, not runtime type inspection.
type ID string

const (
	// Analysis pipeline steps
	Fetch           ID = "fetch"
	Summary         ID = "summary"
	Claims          ID = "claims"
	Controversy     ID = "controversy"
	Fallacies       ID = "fallacies"
	Counterargument ID = "counterargument"

	// Claim verification phases (share the executor)
	Analyzing  ID = "analyzing"
	Assessing  ID = "assessing"
	Concluding ID = "concluding"
)

// AnalysisSteps lists the analysis pipeline steps in dependency order
var AnalysisSteps = []ID{Summary, Claims, Controversy, Fallacies, Counterargument}

// Valid reports whether id names a known step
func Valid(id ID) bool {
	_, ok := registry[id]
	return ok || id == Fetch
}

// Inputs carries prior-step outputs into a step. Each step declares which
// fields it requires; the executor rejects a call with missing fields before
// any collaborator call.
type Inputs struct {
	URL      string
	Content  *model.ScrapedContent
	Summary  *model.SummaryResult
	Claims   *model.ClaimsResult
	FullText string

	// Verification inputs
	ClaimText       string
	SearchResults   []search.Result
	Evidence        *model.Evidence // single item for the assessing phase
	EvidenceFor     []model.Evidence
	EvidenceAgainst []model.Evidence
}

// spec binds a step to its input contract, prompt, and output decoder
type spec struct {
	requires func(Inputs) []string // names of missing required inputs
	prompt   func(Inputs) (system, user string)
	decode   func(text string) (any, error)
}

var registry = map[ID]spec{
	Summary: {
		requires: func(in Inputs) []string {
			var missing []string
			if in.Content == nil {
				missing = append(missing, "content_data")
			}
			if in.FullText == "" {
				missing = append(missing, "full_text")
			}
			return missing
		},
		prompt: summaryPrompt,
		decode: decodeInto[model.SummaryResult](validateSummary),
	},
	Claims: {
		requires: func(in Inputs) []string {
			var missing []string
			if in.Summary == nil {
				missing = append(missing, "summary_data")
			}
			if in.FullText == "" {
				missing = append(missing, "full_text")
			}
			return missing
		},
		prompt: claimsPrompt,
		decode: decodeInto[model.ClaimsResult](validateClaims),
	},
	Controversy: {
		requires: func(in Inputs) []string {
			var missing []string
			if in.Summary == nil {
				missing = append(missing, "summary_data")
			}
			if in.Claims == nil {
				missing = append(missing, "claims_data")
			}
			if in.FullText == "" {
				missing = append(missing, "full_text")
			}
			return missing
		},
		prompt: controversyPrompt,
		decode: decodeInto[model.ControversyResult](validateControversy),
	},
	Fallacies: {
		requires: func(in Inputs) []string {
			var missing []string
			if in.Claims == nil {
				missing = append(missing, "claims_data")
			}
			if in.FullText == "" {
				missing = append(missing, "full_text")
			}
			return missing
		},
		prompt: fallaciesPrompt,
		decode: decodeInto[model.FallaciesResult](validateFallacies),
	},
	Counterargument: {
		requires: func(in Inputs) []string {
			var missing []string
			if in.Claims == nil {
				missing = append(missing, "claims_data")
			}
			if in.Summary == nil {
				missing = append(missing, "summary_data")
			}
			return missing
		},
		prompt: counterargumentPrompt,
		decode: decodeInto[model.CounterargumentResult](validateCounterargument),
	},
	Analyzing: {
		requires: func(in Inputs) []string {
			var missing []string
			if in.ClaimText == "" {
				missing = append(missing, "claim_text")
			}
			if len(in.SearchResults) == 0 {
				missing = append(missing, "search_results")
			}
			return missing
		},
		prompt: analyzingPrompt,
		decode: decodeInto[model.EvidenceAnalysis](validateEvidenceAnalysis),
	},
	Assessing: {
		requires: func(in Inputs) []string {
			if in.Evidence == nil {
				return []string{"evidence_item"}
			}
			return nil
		},
		prompt: assessingPrompt,
		decode: decodeInto[model.CredibilityAssessment](validateCredibility),
	},
	Concluding: {
		requires: func(in Inputs) []string {
			var missing []string
			if in.ClaimText == "" {
				missing = append(missing, "claim_text")
			}
			return missing
		},
		prompt: concludingPrompt,
		decode: decodeInto[model.ConclusionDraft](validateConclusion),
	},
}
