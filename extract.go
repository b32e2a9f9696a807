package bioextract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/brunobiangulo/bioextract/annotation"
	"github.com/brunobiangulo/bioextract/entity"
	"github.com/brunobiangulo/bioextract/preprocess"
	"github.com/brunobiangulo/bioextract/store"
	"github.com/brunobiangulo/bioextract/table"
)

// ListDocuments returns the PDF files directly under dir, sorted by name.
// The extension match is case-insensitive.
func ListDocuments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading input folder: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Slice(paths, func(i, j int) bool {
		return filepath.Base(paths[i]) < filepath.Base(paths[j])
	})
	return paths, nil
}

// Run processes every PDF in the input folder sequentially. A failing
// document is skipped with a reason and never stops the batch; only
// cancellation ends it early, between documents.
func (e *Extractor) Run(ctx context.Context) (*RunReport, error) {
	paths, err := ListDocuments(e.cfg.InputDir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoDocuments, e.cfg.InputDir)
	}
	return e.RunFiles(ctx, paths)
}

// RunFiles processes the given files in order.
func (e *Extractor) RunFiles(ctx context.Context, paths []string) (*RunReport, error) {
	report := &RunReport{Outcomes: make([]Outcome, 0, len(paths))}
	report.RunID = e.startRun(ctx)

	slog.Info("extract: starting batch",
		"documents", len(paths), "input", e.cfg.InputDir,
		"table", e.appender.Path(), "run_id", report.RunID)
	batchStart := time.Now()

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			e.finishRun(report.RunID)
			return report, err
		}

		slog.Info("extract: processing document",
			"file", filepath.Base(path), "index", i+1, "of", len(paths))
		o := e.ProcessFile(ctx, path)
		report.Outcomes = append(report.Outcomes, o)
		if o.Processed() {
			report.Processed++
		} else {
			report.Skipped++
			slog.Warn("extract: document skipped", "file", o.FileName, "reason", o.Reason)
		}
		e.recordOutcome(ctx, report.RunID, o)
	}

	e.finishRun(report.RunID)
	slog.Info("extract: batch complete",
		"processed", report.Processed, "skipped", report.Skipped,
		"elapsed", time.Since(batchStart).Round(time.Millisecond))
	return report, nil
}

// ProcessFile runs one document through the pipeline. Every failure is
// reported as a skipped outcome; no row is appended unless every step
// succeeded.
func (e *Extractor) ProcessFile(ctx context.Context, path string) Outcome {
	start := time.Now()
	fileName := filepath.Base(path)
	out := Outcome{FileName: fileName, Status: StatusSkipped}

	rec, mentions, err := e.process(ctx, path)
	out.Elapsed = time.Since(start)
	if err != nil {
		out.Err = err
		out.Reason = err.Error()
		return out
	}
	out.Status = StatusProcessed
	out.Record = rec
	out.Mentions = mentions
	return out
}

func (e *Extractor) process(ctx context.Context, path string) (*table.Record, int, error) {
	fileName := filepath.Base(path)
	stem := strings.TrimSuffix(fileName, filepath.Ext(fileName))

	p, err := e.registry.ForPath(path)
	if err != nil {
		return nil, 0, err
	}

	parseStart := time.Now()
	parsed, err := p.Parse(ctx, path)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}
	if strings.TrimSpace(parsed.Text) == "" {
		return nil, 0, fmt.Errorf("%w: no extractable text", ErrParsingFailed)
	}

	prep := preprocess.Prepare(parsed.Text, e.cfg.WordCap)
	title := preprocess.ResolveTitle(parsed.Title, fileName, prep.Trimmed)
	slog.Info("extract: parsing complete",
		"file", fileName, "method", parsed.Method, "pages", parsed.Pages,
		"words_no_refs", prep.TrimmedWords, "words_processed", prep.ProcessedWords,
		"cap", e.cfg.WordCap, "elapsed", time.Since(parseStart).Round(time.Millisecond))

	if e.cfg.SaveArtifacts {
		mdPath := filepath.Join(e.cfg.PreprocessedDir, stem+".md")
		md := fmt.Sprintf("# %s\n\n> Word count (no refs): %d\n\n%s", title, prep.TrimmedWords, prep.Trimmed)
		if err := writeArtifact(mdPath, md); err != nil {
			return nil, 0, fmt.Errorf("saving preprocessed markdown: %w", err)
		}
		slog.Debug("extract: saved preprocessed markdown", "file", fileName, "path", mdPath)
	}

	annotateStart := time.Now()
	raw, err := e.annotator.Annotate(ctx, prep.Capped)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, 0, err
		}
		return nil, 0, fmt.Errorf("%w: %v", ErrAnnotatorFailed, err)
	}
	slog.Info("extract: annotation received",
		"file", fileName, "chars", len(raw),
		"elapsed", time.Since(annotateStart).Round(time.Millisecond))

	if e.cfg.SaveArtifacts {
		txtPath := filepath.Join(e.cfg.OutputDir, stem+".txt")
		if err := writeArtifact(txtPath, raw); err != nil {
			return nil, 0, fmt.Errorf("saving raw response: %w", err)
		}
	}
	if e.cfg.PreviewChars > 0 {
		slog.Info("extract: response preview", "file", fileName, "preview", Preview(raw, e.cfg.PreviewChars))
	}

	mentions := annotation.MentionsFromResponse(annotation.ParseResponse(raw))
	rec := table.Record{
		FileName:       fileName,
		Title:          title,
		Cells:          make(map[entity.Category]string, len(entity.Categories)),
		WordsTrimmed:   prep.TrimmedWords,
		WordsProcessed: prep.ProcessedWords,
	}
	for _, c := range entity.Categories {
		rec.Cells[c] = mentions.Cell(c)
	}

	if err := e.appender.Append(rec); err != nil {
		return nil, 0, fmt.Errorf("appending row: %w", err)
	}
	slog.Info("extract: row appended", "file", fileName, "title", title, "mentions", mentions.Total())
	return &rec, mentions.Total(), nil
}

// Preview truncates s to n runes, marking the cut with "...".
func Preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func writeArtifact(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

// Ledger bookkeeping is best effort: failures are logged and never abort
// the batch.

func (e *Extractor) startRun(ctx context.Context) string {
	if e.ledger == nil {
		return ""
	}
	run, err := e.ledger.StartRun(ctx, store.Run{
		InputDir:  e.cfg.InputDir,
		TablePath: e.cfg.TablePath,
		Provider:  e.cfg.Annotator.Provider,
		Model:     e.cfg.Annotator.Model,
	})
	if err != nil {
		slog.Warn("extract: ledger unavailable, run not recorded", "error", err)
		return ""
	}
	return run.ID
}

func (e *Extractor) recordOutcome(ctx context.Context, runID string, o Outcome) {
	if e.ledger == nil || runID == "" {
		return
	}
	so := store.Outcome{
		RunID:    runID,
		FileName: o.FileName,
		Status:   o.Status,
		Reason:   o.Reason,
		Mentions: o.Mentions,
		Elapsed:  o.Elapsed,
	}
	if o.Record != nil {
		so.Title = o.Record.Title
		so.WordCountTrimmed = o.Record.WordsTrimmed
		so.WordCountProcessed = o.Record.WordsProcessed
	}
	if _, err := e.ledger.RecordOutcome(context.WithoutCancel(ctx), so); err != nil {
		slog.Warn("extract: recording outcome failed", "file", o.FileName, "error", err)
	}
}

func (e *Extractor) finishRun(runID string) {
	if e.ledger == nil || runID == "" {
		return
	}
	// Detached from the batch context so a cancelled run is still closed.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.ledger.FinishRun(ctx, runID); err != nil {
		slog.Warn("extract: finishing run failed", "run_id", runID, "error", err)
	}
}
