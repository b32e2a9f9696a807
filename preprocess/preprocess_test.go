package preprocess

import (
	"strings"
	"testing"
)

func TestTruncateAtReferences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "standalone heading",
			in:   "Intro\nResults here\nReferences\n1. Smith et al.\n2. Doe",
			want: "Intro\nResults here",
		},
		{
			name: "upper case with colon and padding",
			in:   "Body text\n  REFERENCES :  \n[1] cite",
			want: "Body text",
		},
		{
			name: "singular heading",
			in:   "Body\nReference\ncite",
			want: "Body",
		},
		{
			name: "embedded phrase untouched",
			in:   "We aligned reads to the reference genome.\nMore text",
			want: "We aligned reads to the reference genome.\nMore text",
		},
		{
			name: "heading with extra words untouched",
			in:   "Body\nReferences and notes\ncite",
			want: "Body\nReferences and notes\ncite",
		},
		{
			name: "crlf line endings",
			in:   "Body\r\nReferences\r\ncite",
			want: "Body",
		},
		{
			name: "no heading",
			in:   "just text",
			want: "just text",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateAtReferences(tt.in); got != tt.want {
				t.Errorf("TruncateAtReferences() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWordCount(t *testing.T) {
	if got := WordCount("a  b\nc"); got != 3 {
		t.Errorf("WordCount = %d, want 3", got)
	}
	if got := WordCount("   \n\t "); got != 0 {
		t.Errorf("WordCount(blank) = %d, want 0", got)
	}
}

func TestCapWords(t *testing.T) {
	text := "one  two\nthree four five"

	if got := CapWords(text, 10); got != text {
		t.Errorf("under cap should be unchanged, got %q", got)
	}
	if got := CapWords(text, 5); got != text {
		t.Errorf("at cap should be unchanged, got %q", got)
	}
	if got := CapWords(text, 3); got != "one two three" {
		t.Errorf("CapWords(3) = %q", got)
	}
	if got := CapWords(text, 0); got != "" {
		t.Errorf("CapWords(0) = %q, want empty", got)
	}
}

func TestCapWordsIdempotent(t *testing.T) {
	text := strings.Repeat("gene  protein\n", 50)
	for _, n := range []int{0, 1, 7, 100, 1000} {
		once := CapWords(text, n)
		if twice := CapWords(once, n); twice != once {
			t.Errorf("cap %d not idempotent: %q vs %q", n, once, twice)
		}
		if larger := CapWords(once, n+5); larger != once {
			t.Errorf("cap %d then %d changed text", n, n+5)
		}
	}
}

func TestPrepare(t *testing.T) {
	p := Prepare("a b c d\nReferences\nx y z", 2)
	if p.Trimmed != "a b c d" {
		t.Errorf("Trimmed = %q", p.Trimmed)
	}
	if p.Capped != "a b" {
		t.Errorf("Capped = %q", p.Capped)
	}
	if p.TrimmedWords != 4 || p.ProcessedWords != 2 {
		t.Errorf("word counts = %d/%d, want 4/2", p.TrimmedWords, p.ProcessedWords)
	}
}

func TestResolveTitle(t *testing.T) {
	long := strings.Repeat("é", 200)
	tests := []struct {
		name     string
		meta     string
		file     string
		fallback string
		want     string
	}{
		{"metadata wins", "  A Study of TP53 ", "paper.pdf", "Line", "A Study of TP53"},
		{"file stem", "", "dir/paper-01.pdf", "Line", "paper-01"},
		{"first text line", "", "", "\n\n  First line  \nsecond", "First line"},
		{"fallback truncated by rune", "", "", long, strings.Repeat("é", 120)},
		{"placeholder", "", "", "  \n ", UntitledArticle},
		{"extension only", "", ".pdf", "", UntitledArticle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveTitle(tt.meta, tt.file, tt.fallback); got != tt.want {
				t.Errorf("ResolveTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}
