package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/claimscope/claimscope/internal/llm"
	"github.com/claimscope/claimscope/internal/vector"
)

const chatSystem = "You are a research assistant answering questions about previously analyzed web content. " +
	"Ground every answer in the provided context excerpts and cite their source URLs. " +
	"If the context does not contain the answer, say so plainly instead of guessing."

// Answer is a chat response with the sources that informed it
type Answer struct {
	SessionID string               `json:"session_id"`
	Text      string               `json:"text"`
	Sources   []vector.QueryResult `json:"sources,omitempty"`
}

// Service answers questions over indexed content, retrieval-augmented and
// with per-session conversation memory
type Service struct {
	store    *vector.Store
	provider llm.Provider
	memory   *Memory
	topK     int
}

// NewService creates the chat service
func NewService(store *vector.Store, provider llm.Provider, memory *Memory) *Service {
	return &Service{store: store, provider: provider, memory: memory, topK: 5}
}

// Ask answers a question against the collection. An empty sessionID starts a
// new conversation.
func (s *Service) Ask(ctx context.Context, sessionID, collection, question string) (*Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("question is required")
	}
	if sessionID == "" {
		sessionID = s.memory.NewSession()
	}

	hits, err := s.store.Query(ctx, collection, question, s.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}

	prompt := s.buildPrompt(sessionID, question, hits)

	resp, err := s.provider.Complete(ctx, llm.Request{
		System: chatSystem,
		Prompt: prompt,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	s.memory.Append(sessionID, "user", question)
	s.memory.Append(sessionID, "assistant", resp.Text)

	return &Answer{SessionID: sessionID, Text: resp.Text, Sources: hits}, nil
}

// Memory exposes the session store for session management endpoints
func (s *Service) Memory() *Memory {
	return s.memory
}

func (s *Service) buildPrompt(sessionID, question string, hits []vector.QueryResult) string {
	var b strings.Builder

	if history := s.memory.History(sessionID); len(history) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, msg := range history {
			fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Content)
		}
		b.WriteString("\n")
	}

	if len(hits) > 0 {
		b.WriteString("Context excerpts:\n")
		for i, h := range hits {
			fmt.Fprintf(&b, "[%d] %s\n%s\n\n", i+1, h.SourceURL, h.Text)
		}
	} else {
		b.WriteString("No indexed context matched this question.\n\n")
	}

	fmt.Fprintf(&b, "Question: %s", question)
	return b.String()
}
