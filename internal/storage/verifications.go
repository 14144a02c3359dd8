package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/claimscope/claimscope/internal/model"
)

// VerificationStore persists ClaimVerification records. Every verification
// request gets its own record; retries never mutate older ones.
type VerificationStore struct {
	db *sql.DB
}

// NewVerificationStore creates the store
func NewVerificationStore(db *sql.DB) *VerificationStore {
	return &VerificationStore{db: db}
}

// Create inserts a new pending verification
func (s *VerificationStore) Create(claimText, sourceURL, claimID string) (*model.ClaimVerification, error) {
	v := &model.ClaimVerification{
		ID:              uuid.NewString(),
		ClaimID:         claimID,
		ClaimText:       claimText,
		SourceURL:       sourceURL,
		Status:          model.VerificationPending,
		EvidenceFor:     []model.Evidence{},
		EvidenceAgainst: []model.Evidence{},
		CreatedAt:       time.Now().UTC(),
	}

	query, args, err := sq.Insert("claim_verifications").
		Columns("id", "claim_id", "claim_text", "source_url", "status", "created_at").
		Values(v.ID, nullIfEmpty(v.ClaimID), v.ClaimText, v.SourceURL, string(v.Status), v.CreatedAt.Format(time.RFC3339Nano)).
		ToSql()
	if err != nil {
		return nil, &model.StorageError{Op: "create verification", Err: err}
	}

	if _, err := s.db.Exec(query, args...); err != nil {
		return nil, &model.StorageError{Op: "create verification", Err: err}
	}

	return v, nil
}

// UpdateStatus transitions the verification's state. The error message is
// only written for failed transitions.
func (s *VerificationStore) UpdateStatus(id string, status model.VerificationStatus, errorMessage string) error {
	update := sq.Update("claim_verifications").
		Set("status", string(status)).
		Where(sq.Eq{"id": id})
	if status == model.VerificationFailed && errorMessage != "" {
		update = update.Set("error_message", errorMessage)
	}

	query, args, err := update.ToSql()
	if err != nil {
		return &model.StorageError{Op: "update verification status", Err: err}
	}

	if _, err := s.db.Exec(query, args...); err != nil {
		return &model.StorageError{Op: "update verification status", Err: err}
	}
	return nil
}

// SaveEvidence persists evidence lists mid-run so a later phase failure
// still leaves the gathered evidence on the record for diagnostics.
func (s *VerificationStore) SaveEvidence(id string, evidenceFor, evidenceAgainst []model.Evidence) error {
	forJSON, err := json.Marshal(evidenceFor)
	if err != nil {
		return &model.StorageError{Op: "save evidence", Err: err}
	}
	againstJSON, err := json.Marshal(evidenceAgainst)
	if err != nil {
		return &model.StorageError{Op: "save evidence", Err: err}
	}

	query, args, err := sq.Update("claim_verifications").
		Set("evidence_for", string(forJSON)).
		Set("evidence_against", string(againstJSON)).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return &model.StorageError{Op: "save evidence", Err: err}
	}

	if _, err := s.db.Exec(query, args...); err != nil {
		return &model.StorageError{Op: "save evidence", Err: err}
	}
	return nil
}

// SaveResults marks the verification completed with its final verdict
func (s *VerificationStore) SaveResults(id string, evidenceFor, evidenceAgainst []model.Evidence, conclusion string, conclusionType model.ConclusionType) error {
	forJSON, err := json.Marshal(evidenceFor)
	if err != nil {
		return &model.StorageError{Op: "save verification results", Err: err}
	}
	againstJSON, err := json.Marshal(evidenceAgainst)
	if err != nil {
		return &model.StorageError{Op: "save verification results", Err: err}
	}

	query, args, err := sq.Update("claim_verifications").
		Set("evidence_for", string(forJSON)).
		Set("evidence_against", string(againstJSON)).
		Set("conclusion", conclusion).
		Set("conclusion_type", string(conclusionType)).
		Set("status", string(model.VerificationCompleted)).
		Set("completed_at", time.Now().UTC().Format(time.RFC3339Nano)).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return &model.StorageError{Op: "save verification results", Err: err}
	}

	res, err := s.db.Exec(query, args...)
	if err != nil {
		return &model.StorageError{Op: "save verification results", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &model.StorageError{Op: "save verification results", Err: sql.ErrNoRows}
	}
	return nil
}

var verificationColumns = []string{
	"id", "claim_id", "claim_text", "source_url", "status",
	"evidence_for", "evidence_against", "conclusion", "conclusion_type",
	"error_message", "created_at", "completed_at",
}

// GetByID returns a verification by record id, or nil
func (s *VerificationStore) GetByID(id string) (*model.ClaimVerification, error) {
	return s.getOne(sq.Eq{"id": id}, "")
}

// GetByClaim returns the most recent verification matching claimID, or
// falling back to (claimText, sourceURL). Returns nil when neither key is
// usable or nothing matches.
func (s *VerificationStore) GetByClaim(claimID, claimText, sourceURL string) (*model.ClaimVerification, error) {
	switch {
	case claimID != "":
		return s.getOne(sq.Eq{"claim_id": claimID}, "created_at DESC")
	case claimText != "" && sourceURL != "":
		return s.getOne(sq.Eq{"claim_text": claimText, "source_url": sourceURL}, "created_at DESC")
	default:
		return nil, nil
	}
}

func (s *VerificationStore) getOne(pred any, orderBy string) (*model.ClaimVerification, error) {
	q := sq.Select(verificationColumns...).
		From("claim_verifications").
		Where(pred).
		Limit(1)
	if orderBy != "" {
		q = q.OrderBy(orderBy)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, &model.StorageError{Op: "get verification", Err: err}
	}

	v, err := scanVerification(s.db.QueryRow(query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &model.StorageError{Op: "get verification", Err: err}
	}
	return v, nil
}

// List returns verifications newest-first, optionally filtered by source URL
func (s *VerificationStore) List(sourceURL string, limit int) ([]model.ClaimVerification, error) {
	if limit <= 0 {
		limit = 50
	}

	q := sq.Select(verificationColumns...).
		From("claim_verifications").
		OrderBy("created_at DESC").
		Limit(uint64(limit))
	if sourceURL != "" {
		q = q.Where(sq.Eq{"source_url": sourceURL})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, &model.StorageError{Op: "list verifications", Err: err}
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, &model.StorageError{Op: "list verifications", Err: err}
	}
	defer rows.Close()

	var out []model.ClaimVerification
	for rows.Next() {
		v, err := scanVerification(rows)
		if err != nil {
			return nil, &model.StorageError{Op: "list verifications", Err: err}
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, &model.StorageError{Op: "list verifications", Err: err}
	}

	return out, nil
}

// Delete removes a verification by id; returns false when no row matched
func (s *VerificationStore) Delete(id string) (bool, error) {
	query, args, err := sq.Delete("claim_verifications").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return false, &model.StorageError{Op: "delete verification", Err: err}
	}

	res, err := s.db.Exec(query, args...)
	if err != nil {
		return false, &model.StorageError{Op: "delete verification", Err: err}
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func scanVerification(row rowScanner) (*model.ClaimVerification, error) {
	var (
		v                           model.ClaimVerification
		claimID                     sql.NullString
		forJSON, againstJSON        sql.NullString
		conclusion, conclusionType  sql.NullString
		errMsg, createdAt, doneAt   sql.NullString
	)

	err := row.Scan(
		&v.ID, &claimID, &v.ClaimText, &v.SourceURL, &v.Status,
		&forJSON, &againstJSON, &conclusion, &conclusionType,
		&errMsg, &createdAt, &doneAt,
	)
	if err != nil {
		return nil, err
	}

	v.ClaimID = claimID.String
	v.Conclusion = conclusion.String
	v.ConclusionType = model.ConclusionType(conclusionType.String)
	v.ErrorMessage = errMsg.String

	v.EvidenceFor = []model.Evidence{}
	v.EvidenceAgainst = []model.Evidence{}
	if forJSON.Valid && forJSON.String != "" {
		_ = json.Unmarshal([]byte(forJSON.String), &v.EvidenceFor)
	}
	if againstJSON.Valid && againstJSON.String != "" {
		_ = json.Unmarshal([]byte(againstJSON.String), &v.EvidenceAgainst)
	}

	v.CreatedAt = parseTime(createdAt.String)
	v.CompletedAt = parseTimePtr(doneAt)

	return &v, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
