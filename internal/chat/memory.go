package chat

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Message is one turn in a conversation
type Message struct {
	Role      string    `json:"role"` // user or assistant
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionInfo summarizes a session for listing
type SessionInfo struct {
	ID           string    `json:"id"`
	MessageCount int       `json:"message_count"`
	LastActivity time.Time `json:"last_activity"`
}

// Memory holds per-session conversation history in memory. Sessions are
// ephemeral; restarting the process clears them.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string][]Message
	maxTurns int
}

// NewMemory creates a conversation memory keeping at most maxTurns messages
// per session (0 means unlimited)
func NewMemory(maxTurns int) *Memory {
	return &Memory{
		sessions: make(map[string][]Message),
		maxTurns: maxTurns,
	}
}

// NewSession allocates a fresh session ID
func (m *Memory) NewSession() string {
	return uuid.NewString()
}

// Append records a message on the session, trimming oldest turns past the cap
func (m *Memory) Append(sessionID, role, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msgs := append(m.sessions[sessionID], Message{
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	})
	if m.maxTurns > 0 && len(msgs) > m.maxTurns {
		msgs = msgs[len(msgs)-m.maxTurns:]
	}
	m.sessions[sessionID] = msgs
}

// History returns a copy of the session's messages, oldest first
func (m *Memory) History(sessionID string) []Message {
	m.mu.RLock()
	defer m.mu.RUnlock()

	msgs := m.sessions[sessionID]
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// Clear removes a session; returns false if it did not exist
func (m *Memory) Clear(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	return ok
}

// List returns all sessions, most recently active first
func (m *Memory) List() []SessionInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]SessionInfo, 0, len(m.sessions))
	for id, msgs := range m.sessions {
		info := SessionInfo{ID: id, MessageCount: len(msgs)}
		if len(msgs) > 0 {
			info.LastActivity = msgs[len(msgs)-1].CreatedAt
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActivity.After(out[j].LastActivity) })
	return out
}
