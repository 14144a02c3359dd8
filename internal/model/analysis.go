package model

import "time"

// AnalysisStatus is the lifecycle state of a ContentAnalysis record
type AnalysisStatus string

const (
	AnalysisPending   AnalysisStatus = "pending"
	AnalysisCompleted AnalysisStatus = "completed"
	AnalysisFailed    AnalysisStatus = "failed"
)

// KeyClaim is a claim surfaced by the summary step, with its location in the source
type KeyClaim struct {
	Text     string `json:"text"`
	Location string `json:"location,omitempty"`
}

// ContentAnalysis holds the persisted result of the summary step for one URL.
// At most one non-deleted record exists per URLHash; only the summary step
// mutates it. A record is either fully populated (completed) or carries an
// error message (failed) - never partially written.
type ContentAnalysis struct {
	ID         string     `json:"id"`
	URL        string     `json:"url"`
	URLHash    string     `json:"url_hash"`
	SourceType SourceType `json:"source_type,omitempty"`
	Title      string     `json:"title,omitempty"`

	SourceCredibility          string   `json:"source_credibility,omitempty"` // high/medium/low/unknown
	SourceCredibilityReasoning string   `json:"source_credibility_reasoning,omitempty"`
	SourcePotentialBiases      []string `json:"source_potential_biases,omitempty"`

	ExecutiveSummary string     `json:"executive_summary,omitempty"`
	KeyClaims        []KeyClaim `json:"key_claims,omitempty"`
	MainArgument     string     `json:"main_argument,omitempty"`
	Conclusions      []string   `json:"conclusions,omitempty"`

	Status       AnalysisStatus `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
