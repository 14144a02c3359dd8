// Package storage persists analyses, claim reviews, verifications, and
// scraped pages in sqlite.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Open opens (creating if needed) the sqlite database at path and ensures
// the schema exists.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single-writer workload; WAL keeps readers off the writer's back and
	// busy_timeout absorbs the racy-concurrent-run case (last writer wins).
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", p, err)
		}
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func initSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS content_analyses (
			id TEXT PRIMARY KEY,
			url TEXT NOT NULL,
			url_hash TEXT NOT NULL UNIQUE,
			source_type TEXT,
			title TEXT,
			source_credibility TEXT,
			source_credibility_reasoning TEXT,
			source_potential_biases TEXT,
			executive_summary TEXT,
			key_claims TEXT,
			main_argument TEXT,
			conclusions TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			error_message TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT,
			completed_at TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_content_analyses_status ON content_analyses(status);
		CREATE INDEX IF NOT EXISTS idx_content_analyses_created_at ON content_analyses(created_at DESC);

		CREATE TABLE IF NOT EXISTS claim_reviews (
			id TEXT PRIMARY KEY,
			url TEXT NOT NULL,
			url_hash TEXT NOT NULL,
			claims TEXT NOT NULL,
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_claim_reviews_url_hash ON claim_reviews(url_hash, created_at DESC);

		CREATE TABLE IF NOT EXISTS claim_verifications (
			id TEXT PRIMARY KEY,
			claim_id TEXT,
			claim_text TEXT NOT NULL,
			source_url TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			evidence_for TEXT,
			evidence_against TEXT,
			conclusion TEXT,
			conclusion_type TEXT,
			error_message TEXT,
			created_at TEXT NOT NULL,
			completed_at TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_claim_verifications_claim_id ON claim_verifications(claim_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_claim_verifications_lookup ON claim_verifications(claim_text, source_url, created_at DESC);

		CREATE TABLE IF NOT EXISTS scrape_results (
			id TEXT PRIMARY KEY,
			url TEXT NOT NULL,
			url_hash TEXT NOT NULL UNIQUE,
			source_type TEXT NOT NULL,
			title TEXT,
			elements TEXT NOT NULL,
			metadata TEXT,
			created_at TEXT NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}
