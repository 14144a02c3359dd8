package model

import "time"

// VerificationStatus is the state machine for a claim verification run
type VerificationStatus string

const (
	VerificationPending    VerificationStatus = "pending"
	VerificationInProgress VerificationStatus = "in_progress"
	VerificationCompleted  VerificationStatus = "completed"
	VerificationFailed     VerificationStatus = "failed"
)

// ConclusionType is the categorical verdict of a verification
type ConclusionType string

const (
	ConclusionSupported    ConclusionType = "supported"
	ConclusionRefuted      ConclusionType = "refuted"
	ConclusionInconclusive ConclusionType = "inconclusive"
	ConclusionUnknown      ConclusionType = "unknown"
)

// NormalizeConclusionType collapses unrecognized verdicts to inconclusive
func NormalizeConclusionType(raw string) ConclusionType {
	switch ConclusionType(raw) {
	case ConclusionSupported, ConclusionRefuted, ConclusionInconclusive:
		return ConclusionType(raw)
	default:
		return ConclusionInconclusive
	}
}

// Evidence is a single search-derived snippet with source attribution,
// classified as supporting or contradicting a claim
type Evidence struct {
	SourceURL            string   `json:"source_url"`
	SourceTitle          string   `json:"source_title"`
	Snippet              string   `json:"snippet"`
	CredibilityScore     *float64 `json:"credibility_score,omitempty"` // 0-10, set by the assessing phase
	CredibilityReasoning string   `json:"credibility_reasoning,omitempty"`
}

// ClaimVerification is one claim-verification request and its outcome.
// A retry never mutates an existing record; it creates a new one, preserving
// the audit history of prior failures.
type ClaimVerification struct {
	ID        string `json:"id"`
	ClaimID   string `json:"claim_id,omitempty"` // Caller-supplied correlation key
	ClaimText string `json:"claim_text"`
	SourceURL string `json:"source_url"`

	Status VerificationStatus `json:"status"`

	EvidenceFor     []Evidence `json:"evidence_for"`
	EvidenceAgainst []Evidence `json:"evidence_against"`

	Conclusion     string         `json:"conclusion,omitempty"`
	ConclusionType ConclusionType `json:"conclusion_type,omitempty"`

	// ErrorMessage carries a "[step_name] message" tag identifying the
	// failed phase; consumers parse the leading bracketed token.
	ErrorMessage string `json:"error_message,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
