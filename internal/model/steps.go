package model

// SourceAssessment is the credibility judgment produced by the summary step
type SourceAssessment struct {
	Credibility     string   `json:"credibility"` // high/medium/low/unknown
	Reasoning       string   `json:"reasoning"`
	PotentialBiases []string `json:"potential_biases,omitempty"`
}

// SummaryData is the narrative half of the summary step output
type SummaryData struct {
	Summary      string     `json:"summary"`
	KeyClaims    []KeyClaim `json:"key_claims"`
	MainArgument string     `json:"main_argument"`
	Conclusions  []string   `json:"conclusions,omitempty"`
}

// SummaryResult is the full output of the summary step
type SummaryResult struct {
	Assessment SourceAssessment `json:"source_assessment"`
	Summary    SummaryData      `json:"summary"`
}

// ClaimsResult is the output of the claims step
type ClaimsResult struct {
	Claims []Claim `json:"claims"`
}

// ControversyLevel grades how contested the content is
type ControversyLevel string

const (
	ControversyLow    ControversyLevel = "low"
	ControversyMedium ControversyLevel = "medium"
	ControversyHigh   ControversyLevel = "high"
)

// ConspiracyIndicator is a named rhetorical pattern found by the controversy step
type ConspiracyIndicator struct {
	Pattern  string `json:"pattern"`
	Evidence string `json:"evidence"`
}

// ControversyResult is the output of the controversy step
type ControversyResult struct {
	Level      ControversyLevel      `json:"level"`
	Summary    string                `json:"summary"`
	Indicators []ConspiracyIndicator `json:"indicators,omitempty"`
}

// Fallacy is a single detected reasoning flaw
type Fallacy struct {
	Type        string `json:"type"`
	Excerpt     string `json:"excerpt"`
	Explanation string `json:"explanation"`
}

// FallaciesResult is the output of the fallacies step
type FallaciesResult struct {
	OverallQuality string    `json:"overall_quality"`
	Fallacies      []Fallacy `json:"fallacies"`
}

// CounterSource attributes a counterargument to a source
type CounterSource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// CounterargumentResult is the output of the counterargument step
type CounterargumentResult struct {
	Counterargument string          `json:"counterargument"`
	Sources         []CounterSource `json:"sources,omitempty"`
}

// EvidenceAnalysis partitions search results into supporting and
// contradicting evidence (verification "analyzing" phase)
type EvidenceAnalysis struct {
	EvidenceFor     []Evidence `json:"evidence_for"`
	EvidenceAgainst []Evidence `json:"evidence_against"`
}

// CredibilityAssessment scores one evidence item's source (verification
// "assessing" phase); items are scored independently.
type CredibilityAssessment struct {
	Score     float64 `json:"credibility_score"` // 0-10
	Reasoning string  `json:"credibility_reasoning"`
}

// ConclusionDraft is the LLM half of the "concluding" phase; the categorical
// verdict is computed from weighted evidence, not taken from the model.
type ConclusionDraft struct {
	Conclusion      string `json:"conclusion"`
	ConclusionType  string `json:"conclusion_type"`
	ConfidenceNotes string `json:"confidence_notes,omitempty"`
}
