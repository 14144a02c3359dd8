package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/claimscope/claimscope/internal/vector"
)

type scrapeRequest struct {
	URL string `json:"url"`
}

// handleScrape fetches and stores a page, returning its extracted content
func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, errors.New("url is required"))
		return
	}

	content, err := s.orchestrator.Content(r.Context(), req.URL)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, content)
}

type addDocumentRequest struct {
	URL   string `json:"url,omitempty"`
	Text  string `json:"text,omitempty"`
	Title string `json:"title,omitempty"`
}

// handleAddDocument indexes a document (by URL or raw text) into a collection
func (s *Server) handleAddDocument(w http.ResponseWriter, r *http.Request) {
	if s.vectors == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("vector store not configured"))
		return
	}

	var req addDocumentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	collection := chi.URLParam(r, "name")
	source := req.URL
	title := req.Title
	text := req.Text

	if text == "" {
		if req.URL == "" {
			writeError(w, http.StatusBadRequest, errors.New("url or text is required"))
			return
		}
		content, err := s.orchestrator.Content(r.Context(), req.URL)
		if err != nil {
			writeError(w, http.StatusBadGateway, err)
			return
		}
		text = content.FullText()
		if title == "" {
			title = content.Title
		}
	}
	if source == "" {
		source = "inline:" + collection
	}

	chunks, err := s.vectors.Add(r.Context(), collection, source, title, text)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"collection": collection, "chunks": chunks})
}

func (s *Server) handleListCollections(w http.ResponseWriter, r *http.Request) {
	if s.vectors == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("vector store not configured"))
		return
	}

	names, err := s.vectors.ListCollections()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"collections": names})
}

func (s *Server) handleCollectionStats(w http.ResponseWriter, r *http.Request) {
	if s.vectors == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("vector store not configured"))
		return
	}

	stats, err := s.vectors.Stats(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleDropCollection(w http.ResponseWriter, r *http.Request) {
	if s.vectors == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("vector store not configured"))
		return
	}

	removed, err := s.vectors.Drop(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed_chunks": removed})
}

type queryRequest struct {
	Collection string `json:"collection,omitempty"` // "all" searches every collection
	Query      string `json:"query"`
	TopK       int    `json:"top_k,omitempty"`
}

// handleQuery runs a similarity search over one collection, or over all of
// them merged when collection is "all"
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if s.vectors == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("vector store not configured"))
		return
	}

	var req queryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, errors.New("query is required"))
		return
	}

	var (
		results []vector.QueryResult
		err     error
	)
	if req.Collection == "all" {
		results, err = s.vectors.QueryAll(r.Context(), req.Query, req.TopK)
	} else {
		results, err = s.vectors.Query(r.Context(), req.Collection, req.Query, req.TopK)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

type chatRequest struct {
	SessionID  string `json:"session_id,omitempty"`
	Collection string `json:"collection,omitempty"`
	Question   string `json:"question"`
}

// handleChat answers a question over indexed content with conversation memory
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.chat == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("chat not configured"))
		return
	}

	var req chatRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, errors.New("question is required"))
		return
	}

	answer, err := s.chat.Ask(r.Context(), req.SessionID, req.Collection, req.Question)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if s.chat == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("chat not configured"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": s.chat.Memory().List()})
}

func (s *Server) handleClearSession(w http.ResponseWriter, r *http.Request) {
	if s.chat == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("chat not configured"))
		return
	}
	if !s.chat.Memory().Clear(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, errors.New("session not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
