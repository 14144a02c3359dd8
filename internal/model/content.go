package model

import "strings"

// SourceType classifies where content came from
type SourceType string

const (
	SourceWebpage SourceType = "webpage"
	SourceVideo   SourceType = "video"
)

// TextElement is a single extracted block of visible text
type TextElement struct {
	Content   string `json:"content"`
	Tag       string `json:"tag"`                 // Originating HTML tag (p, h1, li, ...)
	Preview   string `json:"preview,omitempty"`   // First ~100 chars for selection UIs
	WordCount int    `json:"word_count"`
	CharCount int    `json:"char_count"`
}

// ScrapedContent is the output of the scraper collaborator
type ScrapedContent struct {
	URL        string            `json:"url"`
	SourceType SourceType        `json:"source_type"`
	Title      string            `json:"title"`
	Elements   []TextElement     `json:"elements"`
	Metadata   map[string]string `json:"metadata,omitempty"` // author, publish_date, channel, ...
}

// FullText joins all extracted elements into a single body of text
func (c *ScrapedContent) FullText() string {
	parts := make([]string, 0, len(c.Elements))
	for _, el := range c.Elements {
		parts = append(parts, el.Content)
	}
	return strings.Join(parts, "\n\n")
}

// TotalTextLength returns the total character count across elements
func (c *ScrapedContent) TotalTextLength() int {
	total := 0
	for _, el := range c.Elements {
		total += el.CharCount
	}
	return total
}
