package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head>
	<title>Raw Page Title</title>
	<meta name="author" content="Jordan Writer">
	<meta property="article:published_time" content="2024-03-01T10:00:00Z">
	<meta property="og:site_name" content="Example News">
	<meta property="og:description" content="A test article about things.">
</head>
<body>
	<nav><li>Home</li><li>About</li></nav>
	<article>
		<h1>The Main Headline of the Article</h1>
		<p>This is the first paragraph, long enough to be collected as a text element.</p>
		<p>This is the second paragraph, also long enough to pass the length filter.</p>
		<p>This is the second paragraph, also long enough to pass the length filter.</p>
		<p>short</p>
		<blockquote>A quotation long enough to be included in the extraction output.</blockquote>
	</article>
</body>
</html>`

func TestParseHTML(t *testing.T) {
	content, err := parseHTML("https://example.org/article", articleHTML)
	if err != nil {
		t.Fatalf("parseHTML: %v", err)
	}

	if content.Title == "" {
		t.Error("no title extracted")
	}
	if content.Metadata["publish_date"] != "2024-03-01T10:00:00Z" {
		t.Errorf("publish_date = %q", content.Metadata["publish_date"])
	}
	if content.Metadata["site_name"] != "Example News" {
		t.Errorf("site_name = %q", content.Metadata["site_name"])
	}
	if content.Metadata["description"] != "A test article about things." {
		t.Errorf("description = %q", content.Metadata["description"])
	}

	texts := make(map[string]int)
	for _, el := range content.Elements {
		texts[el.Content]++
		if el.WordCount != len(strings.Fields(el.Content)) {
			t.Errorf("word count mismatch for %q", el.Content)
		}
		if len(el.Preview) > previewLen {
			t.Errorf("preview longer than %d chars", previewLen)
		}
	}

	// The duplicated paragraph must appear once, the short one not at all.
	if texts["This is the second paragraph, also long enough to pass the length filter."] != 1 {
		t.Errorf("duplicate paragraph not deduplicated: %v", texts)
	}
	for text := range texts {
		if text == "short" {
			t.Error("sub-minimum-length element collected")
		}
	}
	if len(content.Elements) == 0 {
		t.Fatal("no elements extracted")
	}
}

func TestParseHTML_FallbackWithoutArticle(t *testing.T) {
	html := `<html><head><title>Plain</title></head><body>
		<p>A lone paragraph that is long enough to be collected either way.</p>
	</body></html>`

	content, err := parseHTML("https://example.org/plain", html)
	if err != nil {
		t.Fatalf("parseHTML: %v", err)
	}
	if len(content.Elements) != 1 {
		t.Fatalf("elements = %d, want 1", len(content.Elements))
	}
	if content.Elements[0].Tag != "p" {
		t.Errorf("tag = %q, want p", content.Elements[0].Tag)
	}
}

func TestIsVideoHost(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"www.youtube.com", true},
		{"youtube.com", true},
		{"m.youtube.com", true},
		{"youtu.be", true},
		{"vimeo.com", true},
		{"player.vimeo.com", true},
		{"example.org", false},
		{"notyoutube.com", false},
		{"youtube.com.evil.example", false},
	}
	for _, tt := range tests {
		if got := isVideoHost(tt.host); got != tt.want {
			t.Errorf("isVideoHost(%q) = %v, want %v", tt.host, got, tt.want)
		}
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	in := "  multiple   spaces\n\tand\nnewlines  "
	want := "multiple spaces and newlines"
	if got := normalizeWhitespace(in); got != want {
		t.Errorf("normalizeWhitespace = %q, want %q", got, want)
	}
}

func TestFetcher_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body>ok</body></html>")
	}))
	defer srv.Close()

	f := newFetcher(5*time.Second, "test-agent", 1<<20)
	res, err := f.fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Errorf("status = %d", res.StatusCode)
	}
	if !strings.Contains(res.HTML, "ok") {
		t.Errorf("body = %q", res.HTML)
	}
	if res.ContentType != "text/html" {
		t.Errorf("content type = %q", res.ContentType)
	}
}

func TestFetcher_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := newFetcher(5*time.Second, "test-agent", 1<<20)
	if _, err := f.fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("404 response accepted")
	}
}

func TestFetcher_BodyTruncatedAtLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, strings.Repeat("x", 1000))
	}))
	defer srv.Close()

	f := newFetcher(5*time.Second, "test-agent", 100)
	res, err := f.fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(res.HTML) != 100 {
		t.Errorf("body length = %d, want truncated to 100", len(res.HTML))
	}
}

func TestFetcher_RedirectLimit(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+r.URL.Path+"x", http.StatusFound)
	}))
	defer srv.Close()

	f := newFetcher(5*time.Second, "test-agent", 1<<20)
	if _, err := f.fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("endless redirect chain accepted")
	}
}
