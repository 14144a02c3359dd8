// Package server exposes the analysis and verification workflows over HTTP,
// including server-sent event streams for long-running runs.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/claimscope/claimscope/internal/chat"
	"github.com/claimscope/claimscope/internal/model"
	"github.com/claimscope/claimscope/internal/pipeline"
	"github.com/claimscope/claimscope/internal/storage"
	"github.com/claimscope/claimscope/internal/vector"
	"github.com/claimscope/claimscope/internal/verify"
)

// Server is the HTTP API
type Server struct {
	cfg           model.ServerConfig
	log           *slog.Logger
	orchestrator  *pipeline.Orchestrator
	verifier      *verify.Verifier
	analyses      *storage.AnalysisStore
	reviews       *storage.ReviewStore
	verifications *storage.VerificationStore
	vectors       *vector.Store
	chat          *chat.Service
}

// New creates the server. Vector store and chat service may be nil when
// embeddings are not configured; their routes then answer 503.
func New(
	cfg model.ServerConfig,
	log *slog.Logger,
	orchestrator *pipeline.Orchestrator,
	verifier *verify.Verifier,
	analyses *storage.AnalysisStore,
	reviews *storage.ReviewStore,
	verifications *storage.VerificationStore,
	vectors *vector.Store,
	chatSvc *chat.Service,
) *Server {
	return &Server{
		cfg:           cfg,
		log:           log,
		orchestrator:  orchestrator,
		verifier:      verifier,
		analyses:      analyses,
		reviews:       reviews,
		verifications: verifications,
		vectors:       vectors,
		chat:          chatSvc,
	}
}

// Router builds the chi router with all routes mounted
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/scrape", s.handleScrape)

		r.Get("/collections", s.handleListCollections)
		r.Route("/collections/{name}", func(r chi.Router) {
			r.Get("/", s.handleCollectionStats)
			r.Delete("/", s.handleDropCollection)
			r.Post("/documents", s.handleAddDocument)
		})
		r.Post("/query", s.handleQuery)

		r.Post("/chat", s.handleChat)
		r.Get("/chat/sessions", s.handleListSessions)
		r.Delete("/chat/sessions/{id}", s.handleClearSession)

		r.Post("/analysis", s.handleRunAnalysis)
		r.Get("/analysis/stream", s.handleAnalysisStream)
		r.Get("/analysis/history", s.handleHistory)
		r.Get("/analysis/{id}", s.handleGetAnalysis)
		r.Delete("/analysis/{id}", s.handleDeleteAnalysis)

		r.Get("/claims", s.handleGetClaims)

		r.Post("/verifications", s.handleCreateVerification)
		r.Get("/verifications", s.handleListVerifications)
		r.Get("/verifications/stream", s.handleVerificationStream)
		r.Get("/verifications/by-claim", s.handleVerificationByClaim)
		r.Get("/verifications/{id}", s.handleGetVerification)
		r.Post("/verifications/{id}/retry", s.handleRetryVerification)
	})

	return r
}

// Run serves until the context is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server starting", slog.String("addr", s.cfg.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("took", time.Since(start)),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid JSON body: " + err.Error())
	}
	return nil
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
