package bioextract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brunobiangulo/bioextract/annotation"
	"github.com/brunobiangulo/bioextract/entity"
	"github.com/brunobiangulo/bioextract/parser"
	"github.com/brunobiangulo/bioextract/stats"
	"github.com/brunobiangulo/bioextract/store"
	"github.com/brunobiangulo/bioextract/table"
)

// testConfig lays every output under a temp dir and disables the ledger.
func testConfig(t *testing.T) Config {
	t.Helper()
	root := t.TempDir()
	cfg := DefaultConfig()
	cfg.InputDir = filepath.Join(root, "biomarkers")
	cfg.OutputDir = filepath.Join(root, "results")
	cfg.PreprocessedDir = filepath.Join(root, "articles-preprocessed")
	cfg.TablePath = filepath.Join(root, "results", "extracted_entities.csv")
	cfg.LedgerPath = ""
	cfg.GraphDir = filepath.Join(root, "nets")
	cfg.WorkbookPath = filepath.Join(root, "results", "entity_counts_all.xlsx")
	cfg.PreviewChars = 0
	if err := os.MkdirAll(cfg.InputDir, 0o755); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func writeDoc(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

// textRegistry parses ".pdf" fixtures as plain text.
func textRegistry() *parser.Registry {
	r := parser.NewRegistry()
	r.Register("pdf", &parser.TextParser{})
	return r
}

// scriptedAnnotator answers by the first word of the article text.
type scriptedAnnotator struct {
	mu      sync.Mutex
	answers map[string]string
	seen    []string
}

func (a *scriptedAnnotator) Annotate(_ context.Context, text string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seen = append(a.seen, text)
	key := strings.Fields(text)[0]
	ans, ok := a.answers[key]
	if !ok {
		return "", errors.New("model unavailable")
	}
	return ans, nil
}

// fakeLedger records calls in memory.
type fakeLedger struct {
	runs     int
	finished []string
	outcomes []store.Outcome
	failRun  bool
}

func (l *fakeLedger) StartRun(_ context.Context, r store.Run) (*store.Run, error) {
	if l.failRun {
		return nil, errors.New("disk full")
	}
	l.runs++
	r.ID = "run-1"
	return &r, nil
}

func (l *fakeLedger) RecordOutcome(_ context.Context, o store.Outcome) (int64, error) {
	l.outcomes = append(l.outcomes, o)
	return int64(len(l.outcomes)), nil
}

func (l *fakeLedger) FinishRun(_ context.Context, runID string) error {
	l.finished = append(l.finished, runID)
	return nil
}

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.InputDir != "biomarkers" || cfg.PreprocessedDir != "articles-preprocessed" {
		t.Errorf("folders = %q, %q", cfg.InputDir, cfg.PreprocessedDir)
	}
	if cfg.WordCap != 10000 {
		t.Errorf("WordCap = %d, want 10000", cfg.WordCap)
	}
	if cfg.Annotator.Model != "gpt-5-nano" || cfg.Annotator.Temperature != 1 {
		t.Errorf("annotator = %+v", cfg.Annotator)
	}
	if !cfg.CaseInsensitive || cfg.DocumentKey != "title" {
		t.Errorf("CaseInsensitive/DocumentKey = %v/%q", cfg.CaseInsensitive, cfg.DocumentKey)
	}
	if cfg.GraphSeparators != entity.GraphSeparators || cfg.StatsSeparators != entity.StatsSeparators {
		t.Errorf("separators = %q / %q", cfg.GraphSeparators, cfg.StatsSeparators)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadConfigYAML(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	path := filepath.Join(t.TempDir(), "bioextract.yaml")
	data := `
input_dir: papers
word_cap: 500
document_key: file
case_insensitive: false
annotator:
  provider: ollama
  model: llama3.1:8b
  timeout: 90s
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.InputDir != "papers" || cfg.WordCap != 500 || cfg.DocumentKey != "file" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.CaseInsensitive {
		t.Error("case_insensitive: false not applied")
	}
	if cfg.Annotator.Provider != "ollama" || cfg.Annotator.Timeout != 90*time.Second {
		t.Errorf("annotator = %+v", cfg.Annotator)
	}
	if cfg.OutputDir != "results" {
		t.Errorf("unset field lost default: OutputDir = %q", cfg.OutputDir)
	}
	if err := cfg.ValidateExtraction(); err != nil {
		t.Errorf("ollama needs no key, got %v", err)
	}
}

func TestLoadConfigJSONAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	if err := os.WriteFile(path, []byte(`{"table_path": "out/t.csv", "annotator": {"provider": "groq"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BIOEXTRACT_WORD_CAP", "42")
	t.Setenv("BIOEXTRACT_ANNOTATOR_MODEL", "llama-3.3-70b")
	t.Setenv("GROQ_API_KEY", "gsk-test")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.TablePath != "out/t.csv" || cfg.WordCap != 42 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Annotator.Model != "llama-3.3-70b" || cfg.Annotator.APIKey != "gsk-test" {
		t.Errorf("annotator = %+v", cfg.Annotator)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("missing file: %v, want ErrInvalidConfig", err)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(bad, []byte("word_cap: [not a number"), 0o644)
	if _, err := LoadConfig(bad); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("bad yaml: %v, want ErrInvalidConfig", err)
	}

	t.Setenv("BIOEXTRACT_WORD_CAP", "lots")
	if _, err := LoadConfig(""); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("bad env: %v, want ErrInvalidConfig", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"bad document key", func(c *Config) { c.DocumentKey = "hash" }, ErrInvalidConfig},
		{"empty table", func(c *Config) { c.TablePath = "" }, ErrInvalidConfig},
		{"zero cap", func(c *Config) { c.WordCap = 0 }, ErrInvalidConfig},
		{"missing key", func(c *Config) { c.Annotator.APIKey = "" }, ErrMissingCredential},
		{"unknown provider", func(c *Config) { c.Annotator.Provider = "" }, ErrInvalidConfig},
		{"ok", func(c *Config) { c.Annotator.APIKey = "sk-test" }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Annotator.APIKey = "sk-test"
			tt.mutate(&cfg)
			err := cfg.ValidateExtraction()
			if tt.want == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Extraction
// ---------------------------------------------------------------------------

func TestNewExtractorMissingCredential(t *testing.T) {
	cfg := testConfig(t)
	cfg.Annotator.Provider = "openai"
	cfg.Annotator.APIKey = ""
	writeDoc(t, cfg.InputDir, "a.pdf", "alpha text")

	if _, err := NewExtractor(cfg); !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("NewExtractor error = %v, want ErrMissingCredential", err)
	}
	if _, err := os.Stat(cfg.TablePath); !os.IsNotExist(err) {
		t.Error("table created before credential check")
	}
}

func TestListDocuments(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.PDF", "a.pdf", "notes.txt", "c.pdf.bak"} {
		writeDoc(t, dir, name, "x")
	}
	os.Mkdir(filepath.Join(dir, "sub.pdf"), 0o755)

	got, err := ListDocuments(dir)
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(got) != 2 || filepath.Base(got[0]) != "a.pdf" || filepath.Base(got[1]) != "b.PDF" {
		t.Errorf("ListDocuments = %v", got)
	}
}

func TestRunNoDocuments(t *testing.T) {
	cfg := testConfig(t)
	ex, err := NewExtractor(cfg, WithAnnotator(&scriptedAnnotator{}), WithRegistry(textRegistry()))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ex.Run(context.Background()); !errors.Is(err, ErrNoDocuments) {
		t.Errorf("Run error = %v, want ErrNoDocuments", err)
	}
}

func TestRunSkipsFailedDocuments(t *testing.T) {
	cfg := testConfig(t)
	writeDoc(t, cfg.InputDir, "1-broken.pdf", "broken article body")
	writeDoc(t, cfg.InputDir, "2-good.pdf", "good article body\nReferences\n[1] cited work")
	writeDoc(t, cfg.InputDir, "3-empty.pdf", "   ")

	ann := &scriptedAnnotator{answers: map[string]string{
		"good": "```json\n{\"Genes\": [\"TP53\", null], \"Proteins\": \"p53\"}\n```",
	}}
	ledger := &fakeLedger{}
	ex, err := NewExtractor(cfg, WithAnnotator(ann), WithRegistry(textRegistry()), WithLedger(ledger))
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}
	defer ex.Close()

	report, err := ex.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Processed != 1 || report.Skipped != 2 {
		t.Fatalf("processed/skipped = %d/%d, want 1/2", report.Processed, report.Skipped)
	}

	broken := report.Outcomes[0]
	if broken.Status != StatusSkipped || !errors.Is(broken.Err, ErrAnnotatorFailed) {
		t.Errorf("broken outcome = %+v", broken)
	}
	if !strings.Contains(broken.Reason, "model unavailable") {
		t.Errorf("reason = %q", broken.Reason)
	}
	if empty := report.Outcomes[2]; !errors.Is(empty.Err, ErrParsingFailed) {
		t.Errorf("empty outcome = %+v", empty)
	}
	if got := len(report.SkippedOutcomes()); got != 2 {
		t.Errorf("SkippedOutcomes = %d, want 2", got)
	}

	tbl, err := table.Read(cfg.TablePath)
	if err != nil {
		t.Fatalf("reading table: %v", err)
	}
	if len(tbl.Rows) != 1 {
		t.Fatalf("table rows = %d, want 1", len(tbl.Rows))
	}
	row := tbl.Rows[0]
	if row.Get(table.ColFileName) != "2-good.pdf" || row.Get(table.ColArticleName) != "2-good" {
		t.Errorf("row identity = %q / %q", row.Get(table.ColFileName), row.Get(table.ColArticleName))
	}
	if row.Get("Genes") != "TP53" || row.Get("Proteins") != "p53" || row.Get("DNA") != "" {
		t.Errorf("row cells = %q %q %q", row.Get("Genes"), row.Get("Proteins"), row.Get("DNA"))
	}
	if row.Get(table.ColWordsTrimmed) != "3" || row.Get(table.ColWordsProcessed) != "3" {
		t.Errorf("word counts = %s / %s", row.Get(table.ColWordsTrimmed), row.Get(table.ColWordsProcessed))
	}

	md, err := os.ReadFile(filepath.Join(cfg.PreprocessedDir, "2-good.md"))
	if err != nil {
		t.Fatalf("reading markdown: %v", err)
	}
	if want := "# 2-good\n\n> Word count (no refs): 3\n\ngood article body"; string(md) != want {
		t.Errorf("markdown = %q, want %q", md, want)
	}
	if _, err := os.Stat(filepath.Join(cfg.OutputDir, "2-good.txt")); err != nil {
		t.Errorf("raw response not saved: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.OutputDir, "1-broken.txt")); !os.IsNotExist(err) {
		t.Error("raw response saved for failed annotation")
	}

	if ledger.runs != 1 || len(ledger.outcomes) != 3 || len(ledger.finished) != 1 {
		t.Errorf("ledger runs/outcomes/finished = %d/%d/%d", ledger.runs, len(ledger.outcomes), len(ledger.finished))
	}
	if o := ledger.outcomes[1]; o.Status != store.StatusProcessed || o.Title != "2-good" || o.Mentions != 2 {
		t.Errorf("ledger outcome = %+v", o)
	}
}

func TestProcessFileWordCap(t *testing.T) {
	cfg := testConfig(t)
	cfg.WordCap = 3
	cfg.SaveArtifacts = false
	writeDoc(t, cfg.InputDir, "long.pdf", "alpha beta gamma delta epsilon")

	ann := &scriptedAnnotator{answers: map[string]string{"alpha": `{"DNA": ["chr17"]}`}}
	ex, err := NewExtractor(cfg, WithAnnotator(ann), WithRegistry(textRegistry()))
	if err != nil {
		t.Fatal(err)
	}

	o := ex.ProcessFile(context.Background(), filepath.Join(cfg.InputDir, "long.pdf"))
	if !o.Processed() {
		t.Fatalf("outcome = %+v", o)
	}
	if ann.seen[0] != "alpha beta gamma" {
		t.Errorf("annotator saw %q, want capped text", ann.seen[0])
	}
	if o.Record.WordsTrimmed != 5 || o.Record.WordsProcessed != 3 {
		t.Errorf("word counts = %d/%d, want 5/3", o.Record.WordsTrimmed, o.Record.WordsProcessed)
	}
	if _, err := os.Stat(cfg.PreprocessedDir); !os.IsNotExist(err) {
		t.Error("artifacts written with SaveArtifacts=false")
	}
}

func TestProcessFileUnsupported(t *testing.T) {
	cfg := testConfig(t)
	ex, err := NewExtractor(cfg, WithAnnotator(&scriptedAnnotator{}), WithRegistry(textRegistry()))
	if err != nil {
		t.Fatal(err)
	}
	o := ex.ProcessFile(context.Background(), filepath.Join(cfg.InputDir, "slides.pptx"))
	if o.Processed() || !errors.Is(o.Err, ErrUnsupportedFormat) {
		t.Errorf("outcome = %+v", o)
	}
}

func TestRunLedgerFailureDoesNotAbort(t *testing.T) {
	cfg := testConfig(t)
	writeDoc(t, cfg.InputDir, "a.pdf", "good text")
	ann := &scriptedAnnotator{answers: map[string]string{"good": `{}`}}
	ex, err := NewExtractor(cfg, WithAnnotator(ann), WithRegistry(textRegistry()), WithLedger(&fakeLedger{failRun: true}))
	if err != nil {
		t.Fatal(err)
	}
	report, err := ex.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Processed != 1 || report.RunID != "" {
		t.Errorf("report = %+v", report)
	}
}

func TestRunCancelled(t *testing.T) {
	cfg := testConfig(t)
	writeDoc(t, cfg.InputDir, "a.pdf", "good text")
	ex, err := NewExtractor(cfg, WithAnnotator(&scriptedAnnotator{}), WithRegistry(textRegistry()))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := ex.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	if len(report.Outcomes) != 0 {
		t.Errorf("outcomes = %d, want 0", len(report.Outcomes))
	}
}

func TestPreview(t *testing.T) {
	if got := Preview("abcdef", 3); got != "abc..." {
		t.Errorf("Preview = %q", got)
	}
	if got := Preview("äbc", 3); got != "äbc" {
		t.Errorf("Preview = %q", got)
	}
}

// ---------------------------------------------------------------------------
// Graphs and statistics
// ---------------------------------------------------------------------------

func TestEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	writeDoc(t, cfg.InputDir, "Doc A.pdf", "first article")
	writeDoc(t, cfg.InputDir, "Doc B.pdf", "second article")

	ann := annotation.AnnotatorFunc(func(_ context.Context, text string) (string, error) {
		if strings.HasPrefix(text, "first") {
			return `{"Genes": ["TP53", "BRCA1"], "Proteins": ["p53"], "DNA": [], "RNA": [], "Meth-RNA": []}`, nil
		}
		return `{"Genes": ["tp53"], "Proteins": [], "DNA": [], "RNA": [], "Meth-RNA": []}`, nil
	})
	ex, err := NewExtractor(cfg, WithAnnotator(ann), WithRegistry(textRegistry()))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ex.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	graphs, err := BuildGraphs(context.Background(), cfg)
	if err != nil {
		t.Fatalf("BuildGraphs: %v", err)
	}
	if len(graphs) != len(entity.Categories) {
		t.Fatalf("graphs = %d", len(graphs))
	}
	byCat := make(map[entity.Category]GraphResult)
	for _, g := range graphs {
		byCat[g.Category] = g
		if _, err := os.Stat(g.Path); err != nil {
			t.Errorf("graph file %s: %v", g.Path, err)
		}
	}
	if g := byCat[entity.Genes]; g.Nodes != 4 || g.Edges != 3 || g.Components != 1 {
		t.Errorf("Genes graph = %+v, want 4 nodes, 3 edges, 1 component", g)
	}
	if g := byCat[entity.Proteins]; g.Nodes != 2 || g.Edges != 1 {
		t.Errorf("Proteins graph = %+v, want Doc A only", g)
	}
	if g := byCat[entity.DNA]; g.Nodes != 0 {
		t.Errorf("DNA graph = %+v, want empty", g)
	}

	reports, err := AggregateStats(context.Background(), cfg)
	if err != nil {
		t.Fatalf("AggregateStats: %v", err)
	}
	genes := reports[1]
	if genes.Category != entity.Genes {
		t.Fatalf("report order: %s", genes.Category)
	}
	if len(genes.Rows) != 2 || genes.Rows[0] != (stats.Row{Label: "TP53", Count: 2}) {
		t.Errorf("Genes rows = %v", genes.Rows)
	}
	if _, err := os.Stat(cfg.WorkbookPath); err != nil {
		t.Errorf("workbook: %v", err)
	}
}

func TestBuildGraphsMissingColumns(t *testing.T) {
	cfg := testConfig(t)
	os.MkdirAll(filepath.Dir(cfg.TablePath), 0o755)
	if err := os.WriteFile(cfg.TablePath, []byte("File Name,Article Name,Proteins\na.pdf,A,p53\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := BuildGraphs(context.Background(), cfg); !errors.Is(err, ErrMissingColumns) {
		t.Fatalf("BuildGraphs error = %v, want ErrMissingColumns", err)
	}
	if _, err := os.Stat(cfg.GraphDir); !os.IsNotExist(err) {
		t.Error("graph directory created despite missing columns")
	}
	if _, err := AggregateStats(context.Background(), cfg); !errors.Is(err, ErrMissingColumns) {
		t.Errorf("AggregateStats error = %v, want ErrMissingColumns", err)
	}
}
