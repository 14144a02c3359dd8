package model

import "time"

// ClaimType categorizes the nature of an extracted claim
type ClaimType string

const (
	ClaimFactual     ClaimType = "factual"
	ClaimUnsupported ClaimType = "unsupported"
	ClaimOpinion     ClaimType = "opinion"
	ClaimOther       ClaimType = "other"
)

// NormalizeClaimType collapses unrecognized types to "other"
func NormalizeClaimType(raw string) ClaimType {
	switch ClaimType(raw) {
	case ClaimFactual, ClaimUnsupported, ClaimOpinion:
		return ClaimType(raw)
	default:
		return ClaimOther
	}
}

// Claim is a single classified claim extracted by the claims step
type Claim struct {
	Text     string    `json:"text"`
	Type     ClaimType `json:"type"`
	Evidence string    `json:"evidence,omitempty"` // Supporting text quoted from the source
	Location string    `json:"location,omitempty"`
}

// ClaimReview holds the claims extracted for a URL at a point in time.
// Records are append-only: a fresh claims run creates a new review rather
// than mutating an older one, so callers can offer "load previous" vs
// "start fresh".
type ClaimReview struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	URLHash   string    `json:"url_hash"`
	Claims    []Claim   `json:"claims"`
	CreatedAt time.Time `json:"created_at"`
}
