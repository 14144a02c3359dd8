package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/claimscope/claimscope/internal/progress"
)

// sseWriter writes progress events as server-sent events. Each event is one
// "data: <json>\n\n" frame, flushed immediately.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("streaming unsupported by this connection")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &sseWriter{w: w, flusher: flusher}, nil
}

func (s *sseWriter) write(e progress.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if _, err := s.w.Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := s.w.Write(payload); err != nil {
		return err
	}
	if _, err := s.w.Write([]byte("\n\n")); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// pump forwards stream events to the wire, interleaving heartbeats while the
// run is quiet. Returns when the stream closes (terminal event) or the client
// disconnects.
func (s *Server) pump(r *http.Request, sse *sseWriter, stream *progress.Stream) {
	heartbeat := time.NewTicker(s.cfg.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			stream.Close()
			return
		case <-heartbeat.C:
			if err := sse.write(progress.Event{Type: progress.EventHeartbeat}); err != nil {
				stream.Close()
				return
			}
		case e, ok := <-stream.Events():
			if !ok {
				return
			}
			if err := sse.write(e); err != nil {
				stream.Close()
				return
			}
		}
	}
}
