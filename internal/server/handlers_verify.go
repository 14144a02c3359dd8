package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/claimscope/claimscope/internal/model"
	"github.com/claimscope/claimscope/internal/progress"
)

type verificationRequest struct {
	ClaimText string `json:"claim_text"`
	SourceURL string `json:"source_url,omitempty"`
	ClaimID   string `json:"claim_id,omitempty"`
}

// handleCreateVerification runs a verification synchronously. The record is
// returned in whatever state the run ended in: completed or failed.
func (s *Server) handleCreateVerification(w http.ResponseWriter, r *http.Request) {
	var req verificationRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.ClaimText) == "" {
		writeError(w, http.StatusBadRequest, errors.New("claim_text is required"))
		return
	}

	verification, err := s.verifier.VerifyClaim(r.Context(), req.ClaimText, req.SourceURL, req.ClaimID, progress.NopSink{})
	if verification == nil && err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, verification)
}

// handleVerificationStream runs a verification, streaming progress as SSE
func (s *Server) handleVerificationStream(w http.ResponseWriter, r *http.Request) {
	req := verificationRequest{
		ClaimText: strings.TrimSpace(r.URL.Query().Get("claim_text")),
		SourceURL: strings.TrimSpace(r.URL.Query().Get("source_url")),
		ClaimID:   strings.TrimSpace(r.URL.Query().Get("claim_id")),
	}
	if req.ClaimText == "" {
		writeError(w, http.StatusBadRequest, errors.New("claim_text query parameter is required"))
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	stream := progress.NewStream(16)
	go func() {
		_, _ = s.verifier.VerifyClaim(r.Context(), req.ClaimText, req.SourceURL, req.ClaimID, stream)
	}()

	s.pump(r, sse, stream)
}

func (s *Server) handleGetVerification(w http.ResponseWriter, r *http.Request) {
	verification, err := s.verifications.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if verification == nil {
		writeError(w, http.StatusNotFound, errors.New("verification not found"))
		return
	}
	writeJSON(w, http.StatusOK, verification)
}

func (s *Server) handleListVerifications(w http.ResponseWriter, r *http.Request) {
	sourceURL := strings.TrimSpace(r.URL.Query().Get("source_url"))
	limit := queryInt(r, "limit", 50)

	verifications, err := s.verifications.List(sourceURL, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if verifications == nil {
		verifications = []model.ClaimVerification{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"verifications": verifications})
}

// handleVerificationByClaim returns the most recent verification for a claim
// key: claim_id, or claim_text plus source_url
func (s *Server) handleVerificationByClaim(w http.ResponseWriter, r *http.Request) {
	claimID := strings.TrimSpace(r.URL.Query().Get("claim_id"))
	claimText := strings.TrimSpace(r.URL.Query().Get("claim_text"))
	sourceURL := strings.TrimSpace(r.URL.Query().Get("source_url"))

	if claimID == "" && (claimText == "" || sourceURL == "") {
		writeError(w, http.StatusBadRequest,
			errors.New("claim_id, or claim_text and source_url, is required"))
		return
	}

	verification, err := s.verifier.GetByClaim(claimID, claimText, sourceURL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if verification == nil {
		writeError(w, http.StatusNotFound, errors.New("no verification for this claim"))
		return
	}
	writeJSON(w, http.StatusOK, verification)
}

// handleRetryVerification re-runs a failed or completed verification. The
// retry is a fresh record; the original stays untouched.
func (s *Server) handleRetryVerification(w http.ResponseWriter, r *http.Request) {
	original, err := s.verifications.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if original == nil {
		writeError(w, http.StatusNotFound, errors.New("verification not found"))
		return
	}

	verification, err := s.verifier.VerifyClaim(r.Context(), original.ClaimText, original.SourceURL, original.ClaimID, progress.NopSink{})
	if verification == nil && err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, verification)
}
