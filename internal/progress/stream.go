package progress

import "sync"

// Stream is the channel between one pipeline run (producer) and one caller
// (consumer). Substantive events are delivered in emission order; heartbeats
// may interleave anywhere. The stream closes after exactly one terminal
// event; anything emitted after that is dropped.
type Stream struct {
	ch   chan Event
	done chan struct{}

	mu        sync.Mutex // serializes sends on ch and the close of ch
	terminal  bool
	chClosed  bool
	closeOnce sync.Once
}

// NewStream creates a stream with the given buffer size. A small buffer
// keeps slow consumers from stalling the producing step between phases.
func NewStream(buffer int) *Stream {
	if buffer <= 0 {
		buffer = 16
	}
	return &Stream{ch: make(chan Event, buffer), done: make(chan struct{})}
}

// Events returns the consumer side of the stream
func (s *Stream) Events() <-chan Event {
	return s.ch
}

// Emit delivers an event to the consumer. The first terminal event closes
// the stream. A send that blocks on a full buffer is released by Close, so
// a producer can never deadlock against a departed consumer.
func (s *Stream) Emit(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.terminal {
		return
	}

	select {
	case s.ch <- e:
	case <-s.done:
		s.terminal = true
		return
	}

	if e.Type == EventComplete || e.Type == EventError {
		s.terminal = true
		s.closeCh()
	}
}

// Heartbeat emits a keepalive if the stream is still open
func (s *Stream) Heartbeat() {
	s.Emit(Event{Type: EventHeartbeat})
}

// Close terminates the stream without a terminal event. Only used when the
// consumer goes away mid-run; a normal run ends via Emit(complete|error).
// The done channel is closed before taking the lock so an Emit blocked on a
// full buffer unblocks first.
func (s *Stream) Close() {
	s.closeOnce.Do(func() { close(s.done) })

	s.mu.Lock()
	defer s.mu.Unlock()
	s.terminal = true
	s.closeCh()
}

// closeCh closes the event channel once. Caller holds mu, so no send can be
// in flight.
func (s *Stream) closeCh() {
	if !s.chClosed {
		s.chClosed = true
		close(s.ch)
	}
}
