package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"golang.org/x/time/rate"

	"github.com/claimscope/claimscope/internal/logging"
	"github.com/claimscope/claimscope/internal/model"
)

const previewLen = 100

var videoHostPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:^|\.)youtube\.com$`),
	regexp.MustCompile(`(?i)^youtu\.be$`),
	regexp.MustCompile(`(?i)(?:^|\.)vimeo\.com$`),
}

// Scraper fetches a URL and extracts its visible text as structured
// elements. It honors robots.txt (configurable) and rate-limits per host.
type Scraper struct {
	fetcher  *fetcher
	robots   *robotsChecker
	cfg      model.ScrapeConfig
	log      *slog.Logger
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New creates a Scraper from HTTP and scrape configuration
func New(httpCfg model.HTTPConfig, scrapeCfg model.ScrapeConfig, logLevel string) *Scraper {
	return &Scraper{
		fetcher:  newFetcher(httpCfg.Timeout, httpCfg.UserAgent, httpCfg.MaxBodyBytes),
		robots:   newRobotsChecker(httpCfg.UserAgent, httpCfg.Timeout),
		cfg:      scrapeCfg,
		log:      logging.New("scrape", logLevel),
		limiters: make(map[string]*rate.Limiter),
	}
}

// Extract fetches and parses the URL into ScrapedContent. Video platform
// URLs are classified as SourceVideo; their metadata comes from the page's
// meta tags since no transcript fetching is attempted.
func (s *Scraper) Extract(ctx context.Context, rawURL string) (*model.ScrapedContent, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("invalid URL %q", rawURL)
	}

	if s.cfg.RespectRobots {
		allowed, crawlDelay, err := s.robots.canFetch(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("robots check: %w", err)
		}
		if !allowed {
			return nil, fmt.Errorf("robots.txt disallows fetching %s", rawURL)
		}
		if crawlDelay > 0 {
			s.log.Debug("honoring crawl delay", "host", parsed.Host, "delay", crawlDelay)
			select {
			case <-time.After(crawlDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	if err := s.limiterFor(parsed.Host).Wait(ctx); err != nil {
		return nil, err
	}

	res, err := s.fetcher.fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	sourceType := model.SourceWebpage
	if isVideoHost(parsed.Host) {
		sourceType = model.SourceVideo
	}

	content, err := parseHTML(rawURL, res.HTML)
	if err != nil {
		return nil, err
	}
	content.SourceType = sourceType

	s.log.Info("extracted content",
		"url", rawURL,
		"source_type", string(sourceType),
		"elements", len(content.Elements),
		"chars", content.TotalTextLength(),
	)

	return content, nil
}

func (s *Scraper) limiterFor(host string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	lim, ok := s.limiters[host]
	if !ok {
		rps := s.cfg.RequestsPerSecond
		if rps <= 0 {
			rps = 1
		}
		burst := s.cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(rps), burst)
		s.limiters[host] = lim
	}
	return lim
}

func isVideoHost(host string) bool {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	for _, p := range videoHostPatterns {
		if p.MatchString(host) {
			return true
		}
	}
	return false
}

// parseHTML extracts the title, metadata, and text elements from raw HTML.
// Element extraction walks the readability-cleaned article when available
// and falls back to the full document otherwise.
func parseHTML(rawURL, html string) (*model.ScrapedContent, error) {
	content := &model.ScrapedContent{
		URL:      rawURL,
		Metadata: map[string]string{},
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	content.Title = strings.TrimSpace(doc.Find("title").First().Text())
	collectMeta(doc, content.Metadata)

	// Prefer the readability-extracted article body so navigation and
	// boilerplate do not pollute the analysis input.
	parsedURL, _ := url.Parse(rawURL)
	readabilityParser := readability.NewParser()
	if article, err := readabilityParser.Parse(strings.NewReader(html), parsedURL); err == nil && article.Content != "" {
		if article.Title != "" {
			content.Title = article.Title
		}
		if article.Byline != "" {
			content.Metadata["author"] = article.Byline
		}
		if articleDoc, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content)); err == nil {
			content.Elements = collectElements(articleDoc)
		}
	}

	if len(content.Elements) == 0 {
		content.Elements = collectElements(doc)
	}

	return content, nil
}

func collectMeta(doc *goquery.Document, meta map[string]string) {
	doc.Find("meta").Each(func(_ int, sel *goquery.Selection) {
		content, ok := sel.Attr("content")
		if !ok || content == "" {
			return
		}
		name, _ := sel.Attr("name")
		property, _ := sel.Attr("property")
		switch {
		case name == "author":
			meta["author"] = content
		case property == "article:published_time" || name == "date":
			meta["publish_date"] = content
		case property == "og:site_name":
			meta["site_name"] = content
		case property == "og:description" || name == "description":
			if _, exists := meta["description"]; !exists {
				meta["description"] = content
			}
		}
	})
}

var textTags = []string{"h1", "h2", "h3", "h4", "h5", "h6", "p", "li", "blockquote"}

func collectElements(doc *goquery.Document) []model.TextElement {
	var elements []model.TextElement
	seen := make(map[string]bool)

	doc.Find(strings.Join(textTags, ", ")).Each(func(_ int, sel *goquery.Selection) {
		text := normalizeWhitespace(sel.Text())
		if len(text) < 20 || seen[text] {
			return
		}
		seen[text] = true

		tag := goquery.NodeName(sel)
		preview := text
		if len(preview) > previewLen {
			preview = preview[:previewLen]
		}

		elements = append(elements, model.TextElement{
			Content:   text,
			Tag:       tag,
			Preview:   preview,
			WordCount: len(strings.Fields(text)),
			CharCount: len(text),
		})
	})

	return elements
}

var spaceRe = regexp.MustCompile(`\s+`)

func normalizeWhitespace(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}
