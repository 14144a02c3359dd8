package vector

import (
	"strings"
	"testing"
)

func wordsOf(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "w"
	}
	return strings.Join(parts, " ")
}

func TestSplitWords(t *testing.T) {
	tests := []struct {
		name       string
		words      int
		size       int
		overlap    int
		wantChunks int
	}{
		{"empty", 0, 10, 0, 0},
		{"single short chunk", 5, 10, 0, 1},
		{"exact fit", 10, 10, 0, 1},
		{"no overlap", 25, 10, 0, 3},
		{"with overlap", 25, 10, 5, 4},
		{"defaults applied", 150, 0, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := SplitWords(wordsOf(tt.words), tt.size, tt.overlap)
			if len(chunks) != tt.wantChunks {
				t.Fatalf("chunks = %d, want %d", len(chunks), tt.wantChunks)
			}
			for i, c := range chunks {
				if c.Index != i {
					t.Errorf("chunks[%d].Index = %d", i, c.Index)
				}
				if c.WordCount != len(strings.Fields(c.Text)) {
					t.Errorf("chunks[%d].WordCount = %d, text has %d", i, c.WordCount, len(strings.Fields(c.Text)))
				}
			}
		})
	}
}

func TestSplitWords_OverlapClampedBelowSize(t *testing.T) {
	// overlap >= size must still advance the window
	chunks := SplitWords(wordsOf(30), 10, 50)
	if len(chunks) == 0 {
		t.Fatal("no chunks")
	}
	if len(chunks) > 30 {
		t.Fatalf("window did not advance sanely: %d chunks", len(chunks))
	}
}

func TestSplitWords_CoversAllWords(t *testing.T) {
	text := "alpha beta gamma delta epsilon zeta eta theta"
	chunks := SplitWords(text, 3, 1)

	joined := ""
	for _, c := range chunks {
		joined += " " + c.Text
	}
	for _, word := range strings.Fields(text) {
		if !strings.Contains(joined, word) {
			t.Errorf("word %q missing from chunks", word)
		}
	}
	last := chunks[len(chunks)-1]
	if !strings.HasSuffix(last.Text, "theta") {
		t.Errorf("last chunk %q does not end with the final word", last.Text)
	}
}
