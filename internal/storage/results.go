package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/claimscope/claimscope/internal/identity"
	"github.com/claimscope/claimscope/internal/model"
)

// ScrapeRecord is a persisted scrape, re-servable without refetching
type ScrapeRecord struct {
	ID        string               `json:"id"`
	Content   model.ScrapedContent `json:"content"`
	CreatedAt time.Time            `json:"created_at"`
}

// ResultStore persists scraped pages, one per url_hash (latest scrape wins)
type ResultStore struct {
	db *sql.DB
}

// NewResultStore creates the store
func NewResultStore(db *sql.DB) *ResultStore {
	return &ResultStore{db: db}
}

// Save upserts the scrape for the content's URL
func (s *ResultStore) Save(content *model.ScrapedContent) (*ScrapeRecord, error) {
	record := &ScrapeRecord{
		ID:        uuid.NewString(),
		Content:   *content,
		CreatedAt: time.Now().UTC(),
	}

	elements, err := json.Marshal(content.Elements)
	if err != nil {
		return nil, &model.StorageError{Op: "save scrape", Err: err}
	}
	metadata, err := json.Marshal(content.Metadata)
	if err != nil {
		return nil, &model.StorageError{Op: "save scrape", Err: err}
	}

	query, args, err := sq.Insert("scrape_results").
		Columns("id", "url", "url_hash", "source_type", "title", "elements", "metadata", "created_at").
		Values(record.ID, content.URL, identity.HashURL(content.URL), string(content.SourceType),
			content.Title, string(elements), string(metadata), record.CreatedAt.Format(time.RFC3339Nano)).
		Suffix(`ON CONFLICT(url_hash) DO UPDATE SET
			source_type = excluded.source_type,
			title = excluded.title,
			elements = excluded.elements,
			metadata = excluded.metadata,
			created_at = excluded.created_at`).
		ToSql()
	if err != nil {
		return nil, &model.StorageError{Op: "save scrape", Err: err}
	}

	if _, err := s.db.Exec(query, args...); err != nil {
		return nil, &model.StorageError{Op: "save scrape", Err: err}
	}

	return record, nil
}

// GetByURL returns the stored scrape for a URL's identity, or nil
func (s *ResultStore) GetByURL(url string) (*ScrapeRecord, error) {
	query, args, err := sq.Select("id", "url", "source_type", "title", "elements", "metadata", "created_at").
		From("scrape_results").
		Where(sq.Eq{"url_hash": identity.HashURL(url)}).
		ToSql()
	if err != nil {
		return nil, &model.StorageError{Op: "get scrape", Err: err}
	}

	var (
		record               ScrapeRecord
		sourceType           string
		title                sql.NullString
		elements, metadata   sql.NullString
		createdAt            string
	)
	err = s.db.QueryRow(query, args...).Scan(
		&record.ID, &record.Content.URL, &sourceType, &title, &elements, &metadata, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &model.StorageError{Op: "get scrape", Err: err}
	}

	record.Content.SourceType = model.SourceType(sourceType)
	record.Content.Title = title.String
	if elements.Valid && elements.String != "" {
		_ = json.Unmarshal([]byte(elements.String), &record.Content.Elements)
	}
	if metadata.Valid && metadata.String != "" {
		_ = json.Unmarshal([]byte(metadata.String), &record.Content.Metadata)
	}
	record.CreatedAt = parseTime(createdAt)

	return &record, nil
}
