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

// AnalysisStore persists ContentAnalysis records, one per url_hash
type AnalysisStore struct {
	db *sql.DB
}

// NewAnalysisStore creates the store
func NewAnalysisStore(db *sql.DB) *AnalysisStore {
	return &AnalysisStore{db: db}
}

// CreateOrReset creates a pending analysis for the URL, or resets the
// existing record for its hash back to pending. Concurrent fresh runs on the
// same URL race here; the last writer wins.
func (s *AnalysisStore) CreateOrReset(url string, sourceType model.SourceType, title string) (*model.ContentAnalysis, error) {
	urlHash := identity.HashURL(url)
	now := time.Now().UTC()
	id := uuid.NewString()

	query, args, err := sq.Insert("content_analyses").
		Columns("id", "url", "url_hash", "source_type", "title", "status", "created_at").
		Values(id, url, urlHash, string(sourceType), title, string(model.AnalysisPending), now.Format(time.RFC3339Nano)).
		Suffix(`ON CONFLICT(url_hash) DO UPDATE SET
			status = 'pending',
			source_type = excluded.source_type,
			title = excluded.title,
			updated_at = excluded.created_at,
			error_message = NULL,
			completed_at = NULL,
			source_credibility = NULL,
			source_credibility_reasoning = NULL,
			source_potential_biases = NULL,
			executive_summary = NULL,
			key_claims = NULL,
			main_argument = NULL,
			conclusions = NULL`).
		ToSql()
	if err != nil {
		return nil, &model.StorageError{Op: "create analysis", Err: err}
	}

	if _, err := s.db.Exec(query, args...); err != nil {
		return nil, &model.StorageError{Op: "create analysis", Err: err}
	}

	// The upsert may have kept a prior row's id; re-read for the truth.
	return s.GetByURL(url)
}

// SaveResults marks the record completed and fills in the summary step
// output. Called exactly once per successful summary step; fields are never
// partially written.
func (s *AnalysisStore) SaveResults(id string, result *model.SummaryResult) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	biases, _ := json.Marshal(result.Assessment.PotentialBiases)
	keyClaims, _ := json.Marshal(result.Summary.KeyClaims)
	conclusions, _ := json.Marshal(result.Summary.Conclusions)

	query, args, err := sq.Update("content_analyses").
		Set("source_credibility", result.Assessment.Credibility).
		Set("source_credibility_reasoning", result.Assessment.Reasoning).
		Set("source_potential_biases", string(biases)).
		Set("executive_summary", result.Summary.Summary).
		Set("key_claims", string(keyClaims)).
		Set("main_argument", result.Summary.MainArgument).
		Set("conclusions", string(conclusions)).
		Set("status", string(model.AnalysisCompleted)).
		Set("error_message", nil).
		Set("updated_at", now).
		Set("completed_at", now).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return &model.StorageError{Op: "save analysis results", Err: err}
	}

	res, err := s.db.Exec(query, args...)
	if err != nil {
		return &model.StorageError{Op: "save analysis results", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &model.StorageError{Op: "save analysis results", Err: sql.ErrNoRows}
	}
	return nil
}

// MarkFailed records a step failure on the analysis
func (s *AnalysisStore) MarkFailed(id, errorMessage string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	query, args, err := sq.Update("content_analyses").
		Set("status", string(model.AnalysisFailed)).
		Set("error_message", errorMessage).
		Set("updated_at", now).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return &model.StorageError{Op: "mark analysis failed", Err: err}
	}

	if _, err := s.db.Exec(query, args...); err != nil {
		return &model.StorageError{Op: "mark analysis failed", Err: err}
	}
	return nil
}

var analysisColumns = []string{
	"id", "url", "url_hash", "source_type", "title",
	"source_credibility", "source_credibility_reasoning", "source_potential_biases",
	"executive_summary", "key_claims", "main_argument", "conclusions",
	"status", "error_message", "created_at", "updated_at", "completed_at",
}

// GetByID returns an analysis by record id, or nil when absent
func (s *AnalysisStore) GetByID(id string) (*model.ContentAnalysis, error) {
	return s.getWhere(sq.Eq{"id": id})
}

// GetByURL returns the analysis for a URL's identity, or nil when absent
func (s *AnalysisStore) GetByURL(url string) (*model.ContentAnalysis, error) {
	return s.getWhere(sq.Eq{"url_hash": identity.HashURL(url)})
}

func (s *AnalysisStore) getWhere(pred any) (*model.ContentAnalysis, error) {
	query, args, err := sq.Select(analysisColumns...).
		From("content_analyses").
		Where(pred).
		ToSql()
	if err != nil {
		return nil, &model.StorageError{Op: "get analysis", Err: err}
	}

	row := s.db.QueryRow(query, args...)
	analysis, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &model.StorageError{Op: "get analysis", Err: err}
	}
	return analysis, nil
}

// List returns a page of analyses newest-first plus the total count
func (s *AnalysisStore) List(status model.AnalysisStatus, limit, offset int) ([]model.ContentAnalysis, int, error) {
	if limit <= 0 {
		limit = 50
	}

	countQ := sq.Select("COUNT(*)").From("content_analyses")
	listQ := sq.Select(analysisColumns...).
		From("content_analyses").
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset))

	if status != "" {
		countQ = countQ.Where(sq.Eq{"status": string(status)})
		listQ = listQ.Where(sq.Eq{"status": string(status)})
	}

	query, args, err := countQ.ToSql()
	if err != nil {
		return nil, 0, &model.StorageError{Op: "list analyses", Err: err}
	}
	var total int
	if err := s.db.QueryRow(query, args...).Scan(&total); err != nil {
		return nil, 0, &model.StorageError{Op: "list analyses", Err: err}
	}

	query, args, err = listQ.ToSql()
	if err != nil {
		return nil, 0, &model.StorageError{Op: "list analyses", Err: err}
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, 0, &model.StorageError{Op: "list analyses", Err: err}
	}
	defer rows.Close()

	var out []model.ContentAnalysis
	for rows.Next() {
		analysis, err := scanAnalysis(rows)
		if err != nil {
			return nil, 0, &model.StorageError{Op: "list analyses", Err: err}
		}
		out = append(out, *analysis)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, &model.StorageError{Op: "list analyses", Err: err}
	}

	return out, total, nil
}

// Delete removes an analysis by id; returns false when no row matched
func (s *AnalysisStore) Delete(id string) (bool, error) {
	query, args, err := sq.Delete("content_analyses").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return false, &model.StorageError{Op: "delete analysis", Err: err}
	}

	res, err := s.db.Exec(query, args...)
	if err != nil {
		return false, &model.StorageError{Op: "delete analysis", Err: err}
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (*model.ContentAnalysis, error) {
	var (
		a                                             model.ContentAnalysis
		sourceType                                    sql.NullString
		title, cred, credReason                       sql.NullString
		biases, summary, keyClaims, mainArg, concl    sql.NullString
		errMsg, createdAt, updatedAt, completedAt     sql.NullString
	)

	err := row.Scan(
		&a.ID, &a.URL, &a.URLHash, &sourceType, &title,
		&cred, &credReason, &biases,
		&summary, &keyClaims, &mainArg, &concl,
		&a.Status, &errMsg, &createdAt, &updatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	a.SourceType = model.SourceType(sourceType.String)
	a.Title = title.String
	a.SourceCredibility = cred.String
	a.SourceCredibilityReasoning = credReason.String
	a.ExecutiveSummary = summary.String
	a.MainArgument = mainArg.String
	a.ErrorMessage = errMsg.String

	if biases.Valid && biases.String != "" {
		_ = json.Unmarshal([]byte(biases.String), &a.SourcePotentialBiases)
	}
	if keyClaims.Valid && keyClaims.String != "" {
		_ = json.Unmarshal([]byte(keyClaims.String), &a.KeyClaims)
	}
	if concl.Valid && concl.String != "" {
		_ = json.Unmarshal([]byte(concl.String), &a.Conclusions)
	}

	a.CreatedAt = parseTime(createdAt.String)
	a.UpdatedAt = parseTimePtr(updatedAt)
	a.CompletedAt = parseTimePtr(completedAt)

	return &a, nil
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseTimePtr(raw sql.NullString) *time.Time {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw.String)
	if err != nil {
		return nil
	}
	return &t
}
