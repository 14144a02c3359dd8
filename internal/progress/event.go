// Package progress carries pipeline phase notifications from a running step
// to its caller over a single-producer, single-consumer stream.
package progress

// EventType classifies a progress event
type EventType string

const (
	EventProgress  EventType = "progress"
	EventComplete  EventType = "complete"
	EventError     EventType = "error"
	EventHeartbeat EventType = "heartbeat"
)

// Event is one streamed notification. Terminal events (complete, error)
// carry the final payload or error string.
type Event struct {
	Type     EventType `json:"type"`
	Message  string    `json:"message,omitempty"`
	Step     string    `json:"step,omitempty"`
	Progress int       `json:"progress,omitempty"` // 0-100
	Data     any       `json:"data,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Sink receives progress events from a running step
type Sink interface {
	Emit(Event)
}

// NopSink discards events; used by the synchronous run paths
type NopSink struct{}

func (NopSink) Emit(Event) {}

// SinkFunc adapts a function to the Sink interface
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }
