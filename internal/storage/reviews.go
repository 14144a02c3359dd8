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

// ReviewStore persists ClaimReview records. Reviews are append-only: a fresh
// claims run creates a new record and leaves older ones untouched.
type ReviewStore struct {
	db *sql.DB
}

// NewReviewStore creates the store
func NewReviewStore(db *sql.DB) *ReviewStore {
	return &ReviewStore{db: db}
}

// Create appends a new review for the URL
func (s *ReviewStore) Create(url string, claims []model.Claim) (*model.ClaimReview, error) {
	review := &model.ClaimReview{
		ID:        uuid.NewString(),
		URL:       url,
		URLHash:   identity.HashURL(url),
		Claims:    claims,
		CreatedAt: time.Now().UTC(),
	}

	claimsJSON, err := json.Marshal(claims)
	if err != nil {
		return nil, &model.StorageError{Op: "create review", Err: err}
	}

	query, args, err := sq.Insert("claim_reviews").
		Columns("id", "url", "url_hash", "claims", "created_at").
		Values(review.ID, review.URL, review.URLHash, string(claimsJSON), review.CreatedAt.Format(time.RFC3339Nano)).
		ToSql()
	if err != nil {
		return nil, &model.StorageError{Op: "create review", Err: err}
	}

	if _, err := s.db.Exec(query, args...); err != nil {
		return nil, &model.StorageError{Op: "create review", Err: err}
	}

	return review, nil
}

// GetLatestByURL returns the newest review for a URL's identity, or nil
func (s *ReviewStore) GetLatestByURL(url string) (*model.ClaimReview, error) {
	query, args, err := sq.Select("id", "url", "url_hash", "claims", "created_at").
		From("claim_reviews").
		Where(sq.Eq{"url_hash": identity.HashURL(url)}).
		OrderBy("created_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, &model.StorageError{Op: "get review", Err: err}
	}

	var (
		review     model.ClaimReview
		claimsJSON string
		createdAt  string
	)
	err = s.db.QueryRow(query, args...).Scan(&review.ID, &review.URL, &review.URLHash, &claimsJSON, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &model.StorageError{Op: "get review", Err: err}
	}

	if err := json.Unmarshal([]byte(claimsJSON), &review.Claims); err != nil {
		return nil, &model.StorageError{Op: "get review", Err: err}
	}
	review.CreatedAt = parseTime(createdAt)

	return &review, nil
}

// DeleteByURL removes all reviews for a URL's identity
func (s *ReviewStore) DeleteByURL(url string) error {
	query, args, err := sq.Delete("claim_reviews").
		Where(sq.Eq{"url_hash": identity.HashURL(url)}).
		ToSql()
	if err != nil {
		return &model.StorageError{Op: "delete reviews", Err: err}
	}

	if _, err := s.db.Exec(query, args...); err != nil {
		return &model.StorageError{Op: "delete reviews", Err: err}
	}
	return nil
}
