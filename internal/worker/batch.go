package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/claimscope/claimscope/internal/model"
	"github.com/claimscope/claimscope/internal/progress"
)

// ClaimVerifier runs one claim verification end to end
type ClaimVerifier interface {
	VerifyClaim(ctx context.Context, claimText, sourceURL, claimID string, sink progress.Sink) (*model.ClaimVerification, error)
}

// VerifyRequest is one claim to verify. SourceURL and ClaimID are optional
// correlation keys.
type VerifyRequest struct {
	ClaimText string
	SourceURL string
	ClaimID   string
}

// VerifyOutcome pairs a request with its verification result or error
type VerifyOutcome struct {
	Request      VerifyRequest
	Verification *model.ClaimVerification
	Err          error
}

// BatchVerifier verifies multiple claims concurrently
type BatchVerifier struct {
	verifier    ClaimVerifier
	concurrency int
}

// NewBatchVerifier creates a batch verifier
func NewBatchVerifier(verifier ClaimVerifier, concurrency int) *BatchVerifier {
	if concurrency <= 0 {
		concurrency = 2
	}
	return &BatchVerifier{verifier: verifier, concurrency: concurrency}
}

// Process verifies all requests, bounded by the configured concurrency.
// Individual failures land in their outcome; the batch itself never fails.
func (b *BatchVerifier) Process(ctx context.Context, requests []VerifyRequest) []VerifyOutcome {
	if len(requests) == 0 {
		return nil
	}

	pool := NewPool[VerifyOutcome](ctx, b.concurrency)
	for _, req := range requests {
		req := req
		pool.Submit(func(ctx context.Context) VerifyOutcome {
			v, err := b.verifier.VerifyClaim(ctx, req.ClaimText, req.SourceURL, req.ClaimID, progress.NopSink{})
			return VerifyOutcome{Request: req, Verification: v, Err: err}
		})
	}
	return pool.Wait()
}

// ProcessFile reads claims from a file (one per line) and verifies them
func (b *BatchVerifier) ProcessFile(ctx context.Context, path string) ([]VerifyOutcome, error) {
	requests, err := ReadClaimsFromFile(path)
	if err != nil {
		return nil, err
	}
	return b.Process(ctx, requests), nil
}

// ReadClaimsFromFile parses a claims file: one claim per line, with an
// optional tab-separated source URL. Blank lines and # comments are skipped;
// duplicate claims are dropped.
func ReadClaimsFromFile(path string) ([]VerifyRequest, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open claims file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var requests []VerifyRequest
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		req := VerifyRequest{ClaimText: line}
		if text, url, ok := strings.Cut(line, "\t"); ok {
			req.ClaimText = strings.TrimSpace(text)
			req.SourceURL = strings.TrimSpace(url)
		}

		if req.ClaimText == "" || seen[req.ClaimText] {
			continue
		}
		seen[req.ClaimText] = true
		requests = append(requests, req)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read claims file: %w", err)
	}

	return requests, nil
}
