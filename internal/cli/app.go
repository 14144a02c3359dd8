package cli

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/claimscope/claimscope/internal/chat"
	"github.com/claimscope/claimscope/internal/identity"
	"github.com/claimscope/claimscope/internal/llm"
	"github.com/claimscope/claimscope/internal/logging"
	"github.com/claimscope/claimscope/internal/model"
	"github.com/claimscope/claimscope/internal/pipeline"
	"github.com/claimscope/claimscope/internal/scrape"
	"github.com/claimscope/claimscope/internal/search"
	"github.com/claimscope/claimscope/internal/step"
	"github.com/claimscope/claimscope/internal/storage"
	"github.com/claimscope/claimscope/internal/vector"
	"github.com/claimscope/claimscope/internal/verify"
)

// app holds the wired components shared by the commands
type app struct {
	cfg *model.Config
	log *slog.Logger
	db  *sql.DB

	orchestrator *pipeline.Orchestrator
	verifier     *verify.Verifier
	analyses     *storage.AnalysisStore
	reviews      *storage.ReviewStore
	verifs       *storage.VerificationStore
	vectors      *vector.Store // nil without embedding credentials
	chat         *chat.Service // nil without embedding credentials
}

// buildApp wires every component from the merged configuration. The LLM
// provider is mandatory; search and embeddings degrade to clear runtime
// errors when unconfigured.
func buildApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log := logging.New("claimscope", cfg.Log.Level)

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		return nil, fmt.Errorf("configure LLM provider: %w", err)
	}

	db, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}

	analyses := storage.NewAnalysisStore(db)
	reviews := storage.NewReviewStore(db)
	verifs := storage.NewVerificationStore(db)
	results := storage.NewResultStore(db)

	var cache identity.Cache = identity.NopCache{}
	if cfg.Cache.Enabled {
		cache = identity.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
	}

	scraper := scrape.New(cfg.HTTP, cfg.Scrape, cfg.Log.Level)
	executor := step.NewExecutor(provider, log)

	orchestrator := pipeline.NewOrchestrator(
		scraper, executor, cache, cfg.Cache.DiskTTL,
		analyses, reviews, results, log,
	)

	var searcher search.Client
	if cfg.Search.APIKey != "" {
		tavily, err := search.NewTavilyClient(cfg.Search, time.Duration(cfg.LLM.Timeout)*time.Second)
		if err != nil {
			return nil, err
		}
		searcher = tavily
	}

	verifier := verify.NewVerifier(searcher, executor, verifs, cfg.Verify, log)

	a := &app{
		cfg:          cfg,
		log:          log,
		db:           db,
		orchestrator: orchestrator,
		verifier:     verifier,
		analyses:     analyses,
		reviews:      reviews,
		verifs:       verifs,
	}

	// RAG chat needs OpenAI embeddings; skip quietly when unavailable.
	if embedder, err := vector.NewOpenAIEmbedder(cfg.LLM, cfg.Vector.EmbeddingModel); err == nil {
		store, err := vector.NewStore(db, embedder, cfg.Vector)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		a.vectors = store
		a.chat = chat.NewService(store, provider, chat.NewMemory(40))
	} else {
		log.Debug("embeddings unavailable, chat and collections disabled", "err", err)
	}

	return a, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.log.Warn("closing database", "err", err)
	}
}
