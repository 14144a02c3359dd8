package vector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/claimscope/claimscope/internal/model"
)

// Store is a sqlite-backed vector store: documents are chunked, embedded,
// and queried with brute-force cosine similarity. Collections partition the
// chunk space.
type Store struct {
	db       *sql.DB
	embedder Embedder
	cfg      model.VectorConfig
}

// QueryResult is one similarity hit
type QueryResult struct {
	ChunkID    string  `json:"chunk_id"`
	Collection string  `json:"collection,omitempty"`
	SourceURL  string  `json:"source_url"`
	Title      string  `json:"title,omitempty"`
	Text       string  `json:"text"`
	Similarity float64 `json:"similarity"`
}

// CollectionStats summarizes a collection
type CollectionStats struct {
	Name       string `json:"name"`
	ChunkCount int    `json:"chunk_count"`
	Sources    int    `json:"sources"`
}

// NewStore creates the store on a shared database handle and ensures its
// schema exists
func NewStore(db *sql.DB, embedder Embedder, cfg model.VectorConfig) (*Store, error) {
	schema := `
		CREATE TABLE IF NOT EXISTS vector_chunks (
			id TEXT PRIMARY KEY,
			collection TEXT NOT NULL,
			source_url TEXT NOT NULL,
			title TEXT,
			chunk_index INTEGER NOT NULL,
			text TEXT NOT NULL,
			embedding BLOB NOT NULL,
			embedding_model TEXT NOT NULL,
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_vector_chunks_collection ON vector_chunks(collection);
		CREATE INDEX IF NOT EXISTS idx_vector_chunks_source ON vector_chunks(collection, source_url);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("init vector schema: %w", err)
	}
	return &Store{db: db, embedder: embedder, cfg: cfg}, nil
}

// Add chunks, embeds, and stores a document. Re-adding the same source URL
// replaces its previous chunks in the collection.
func (s *Store) Add(ctx context.Context, collection, sourceURL, title, text string) (int, error) {
	if collection == "" {
		collection = s.cfg.DefaultCollection
	}

	chunks := SplitWords(text, s.cfg.ChunkSize, s.cfg.ChunkOverlap)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("no text to index for %s", sourceURL)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, &model.StorageError{Op: "add document", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	delQuery, delArgs, err := sq.Delete("vector_chunks").
		Where(sq.Eq{"collection": collection, "source_url": sourceURL}).
		ToSql()
	if err != nil {
		return 0, &model.StorageError{Op: "add document", Err: err}
	}
	if _, err := tx.Exec(delQuery, delArgs...); err != nil {
		return 0, &model.StorageError{Op: "add document", Err: err}
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	insert := sq.Insert("vector_chunks").
		Columns("id", "collection", "source_url", "title", "chunk_index", "text", "embedding", "embedding_model", "created_at")
	for i, c := range chunks {
		insert = insert.Values(uuid.NewString(), collection, sourceURL, title,
			c.Index, c.Text, serializeVector(vectors[i]), s.embedder.Model(), now)
	}
	query, args, err := insert.ToSql()
	if err != nil {
		return 0, &model.StorageError{Op: "add document", Err: err}
	}
	if _, err := tx.Exec(query, args...); err != nil {
		return 0, &model.StorageError{Op: "add document", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return 0, &model.StorageError{Op: "add document", Err: err}
	}
	return len(chunks), nil
}

// Query embeds the query text and returns the topK most similar chunks in a
// collection
func (s *Store) Query(ctx context.Context, collection, queryText string, topK int) ([]QueryResult, error) {
	if collection == "" {
		collection = s.cfg.DefaultCollection
	}
	return s.query(ctx, sq.Eq{"collection": collection}, queryText, topK)
}

// QueryAll searches every collection and returns the merged topK
func (s *Store) QueryAll(ctx context.Context, queryText string, topK int) ([]QueryResult, error) {
	return s.query(ctx, nil, queryText, topK)
}

func (s *Store) query(ctx context.Context, pred any, queryText string, topK int) ([]QueryResult, error) {
	if topK <= 0 {
		topK = 5
	}

	vectors, err := s.embedder.Embed(ctx, []string{queryText})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, errors.New("query embedding is empty")
	}
	queryVec := vectors[0]

	q := sq.Select("id", "collection", "source_url", "title", "text", "embedding").
		From("vector_chunks")
	if pred != nil {
		q = q.Where(pred)
	}
	sel, args, err := q.ToSql()
	if err != nil {
		return nil, &model.StorageError{Op: "query chunks", Err: err}
	}

	rows, err := s.db.Query(sel, args...)
	if err != nil {
		return nil, &model.StorageError{Op: "query chunks", Err: err}
	}
	defer rows.Close()

	var results []QueryResult
	for rows.Next() {
		var (
			r     QueryResult
			title sql.NullString
			blob  []byte
		)
		if err := rows.Scan(&r.ChunkID, &r.Collection, &r.SourceURL, &title, &r.Text, &blob); err != nil {
			return nil, &model.StorageError{Op: "query chunks", Err: err}
		}
		r.Title = title.String
		r.Similarity = cosineSimilarity(queryVec, deserializeVector(blob))
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &model.StorageError{Op: "query chunks", Err: err}
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Similarity > results[j].Similarity })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// ListCollections returns the names of all collections with chunks
func (s *Store) ListCollections() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT collection FROM vector_chunks ORDER BY collection`)
	if err != nil {
		return nil, &model.StorageError{Op: "list collections", Err: err}
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, &model.StorageError{Op: "list collections", Err: err}
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Stats returns chunk and source counts for a collection
func (s *Store) Stats(collection string) (*CollectionStats, error) {
	if collection == "" {
		collection = s.cfg.DefaultCollection
	}

	stats := &CollectionStats{Name: collection}
	err := s.db.QueryRow(
		`SELECT COUNT(*), COUNT(DISTINCT source_url) FROM vector_chunks WHERE collection = ?`,
		collection,
	).Scan(&stats.ChunkCount, &stats.Sources)
	if err != nil {
		return nil, &model.StorageError{Op: "collection stats", Err: err}
	}
	return stats, nil
}

// Drop removes a collection and all its chunks; returns the removed count
func (s *Store) Drop(collection string) (int, error) {
	if collection == "" {
		return 0, errors.New("collection name is required")
	}

	res, err := s.db.Exec(`DELETE FROM vector_chunks WHERE collection = ?`, collection)
	if err != nil {
		return 0, &model.StorageError{Op: "drop collection", Err: err}
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
