// Package search provides the web-search collaborator used by claim
// verification.
package search

import "context"

// Result is one search hit
type Result struct {
	URL     string  `json:"url"`
	Title   string  `json:"title"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score,omitempty"`
}

// Client abstracts the search backend. An empty result set is a valid
// response, not an error; errors mean the collaborator itself failed.
type Client interface {
	Search(ctx context.Context, query string) ([]Result, error)
}
