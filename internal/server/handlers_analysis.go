package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/claimscope/claimscope/internal/model"
	"github.com/claimscope/claimscope/internal/progress"
	"github.com/claimscope/claimscope/internal/step"
)

type analysisRequest struct {
	URL   string `json:"url"`
	Step  string `json:"step"`
	Force bool   `json:"force,omitempty"` // re-run even when a completed result exists
}

// handleRunAnalysis runs one analysis step synchronously and returns its output
func (s *Server) handleRunAnalysis(w http.ResponseWriter, r *http.Request) {
	var req analysisRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id, err := validateAnalysisRequest(&req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	// Serve a prior completed result unless the caller forces a re-run.
	if id == step.Summary && !req.Force {
		existing, err := s.orchestrator.CheckExisting(req.URL)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if existing != nil {
			writeJSON(w, http.StatusOK, map[string]any{"cached": true, "analysis": existing})
			return
		}
	}
	if id == step.Claims && !req.Force {
		existing, err := s.orchestrator.CheckExistingClaims(req.URL)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if existing != nil {
			writeJSON(w, http.StatusOK, map[string]any{"cached": true, "claims": existing})
			return
		}
	}

	out, err := s.orchestrator.RunStep(r.Context(), id, req.URL)
	if err != nil {
		writeError(w, analysisErrorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"step": string(id), "result": out})
}

// handleAnalysisStream runs one analysis step, streaming progress as SSE
func (s *Server) handleAnalysisStream(w http.ResponseWriter, r *http.Request) {
	req := analysisRequest{
		URL:  strings.TrimSpace(r.URL.Query().Get("url")),
		Step: strings.TrimSpace(r.URL.Query().Get("step")),
	}
	id, err := validateAnalysisRequest(&req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	stream := progress.NewStream(16)
	go func() {
		_, _ = s.orchestrator.RunStepWithProgress(r.Context(), id, req.URL, stream)
	}()

	s.pump(r, sse, stream)
}

// handleHistory lists analyses, optionally filtered by status
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	status := model.AnalysisStatus(strings.TrimSpace(r.URL.Query().Get("status")))
	switch status {
	case "", model.AnalysisPending, model.AnalysisCompleted, model.AnalysisFailed:
	default:
		writeError(w, http.StatusBadRequest, errors.New("invalid status filter"))
		return
	}

	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	analyses, total, err := s.analyses.List(status, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if analyses == nil {
		analyses = []model.ContentAnalysis{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"analyses": analyses,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	analysis, err := s.analyses.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if analysis == nil {
		writeError(w, http.StatusNotFound, errors.New("analysis not found"))
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) handleDeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.analyses.Delete(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, errors.New("analysis not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetClaims returns the latest claim review for a URL
func (s *Server) handleGetClaims(w http.ResponseWriter, r *http.Request) {
	url := strings.TrimSpace(r.URL.Query().Get("url"))
	if url == "" {
		writeError(w, http.StatusBadRequest, errors.New("url query parameter is required"))
		return
	}

	review, err := s.reviews.GetLatestByURL(url)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if review == nil {
		writeError(w, http.StatusNotFound, errors.New("no claim review for this URL"))
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func validateAnalysisRequest(req *analysisRequest) (step.ID, error) {
	if req.URL == "" {
		return "", errors.New("url is required")
	}
	if req.Step == "" {
		req.Step = string(step.Summary)
	}
	id := step.ID(req.Step)
	if !step.Valid(id) {
		return "", errors.New("unknown step: " + req.Step)
	}
	return id, nil
}

// analysisErrorStatus maps the pipeline error taxonomy onto HTTP statuses
func analysisErrorStatus(err error) int {
	var (
		inputErr     *model.InputError
		rateLimitErr *model.RateLimitError
		timeoutErr   *model.TimeoutError
	)
	switch {
	case errors.As(err, &inputErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &rateLimitErr):
		return http.StatusTooManyRequests
	case errors.As(err, &timeoutErr):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
