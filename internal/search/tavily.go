package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/claimscope/claimscope/internal/model"
)

const defaultTavilyURL = "https://api.tavily.com"

// TavilyClient searches the web through the Tavily REST API
type TavilyClient struct {
	apiKey     string
	baseURL    string
	maxResults int
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewTavilyClient creates a Tavily search client. Requests are rate limited
// client-side so bursts of claim verifications do not trip the API quota.
func NewTavilyClient(cfg model.SearchConfig, timeout time.Duration) (*TavilyClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Tavily API key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultTavilyURL
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 10
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}

	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &TavilyClient{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		maxResults: maxResults,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), 2),
	}, nil
}

type tavilyRequest struct {
	APIKey            string `json:"api_key"`
	Query             string `json:"query"`
	MaxResults        int    `json:"max_results"`
	IncludeAnswer     bool   `json:"include_answer"`
	IncludeRawContent bool   `json:"include_raw_content"`
}

type tavilyResponse struct {
	Results []struct {
		URL     string  `json:"url"`
		Title   string  `json:"title"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Search performs one search call. Conclusions are synthesized downstream,
// so the API's own answer generation stays off.
func (c *TavilyClient) Search(ctx context.Context, query string) ([]Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	body, err := json.Marshal(tavilyRequest{
		APIKey:            c.apiKey,
		Query:             query,
		MaxResults:        c.maxResults,
		IncludeAnswer:     false,
		IncludeRawContent: false,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search: unexpected status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var parsed tavilyResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	results := make([]Result, 0, len(parsed.Results))
	for _, item := range parsed.Results {
		if item.URL == "" {
			continue
		}
		results = append(results, Result{
			URL:     item.URL,
			Title:   item.Title,
			Snippet: item.Content,
			Score:   item.Score,
		})
	}

	return results, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
