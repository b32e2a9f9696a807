// Package bioextract turns a folder of scientific articles into a table of
// biological entity mentions, per-category document-entity graphs and a
// frequency workbook.
package bioextract

import (
	"context"
	"fmt"
	"time"

	"github.com/brunobiangulo/bioextract/annotation"
	"github.com/brunobiangulo/bioextract/llm"
	"github.com/brunobiangulo/bioextract/parser"
	"github.com/brunobiangulo/bioextract/store"
	"github.com/brunobiangulo/bioextract/table"
)

// Outcome statuses.
const (
	StatusProcessed = store.StatusProcessed
	StatusSkipped   = store.StatusSkipped
)

// Outcome is the result of one document: processed with its record, or
// skipped with a reason.
type Outcome struct {
	FileName string        `json:"file_name"`
	Status   string        `json:"status"`
	Reason   string        `json:"reason,omitempty"`
	Err      error         `json:"-"`
	Record   *table.Record `json:"record,omitempty"`
	Mentions int           `json:"mentions"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Processed reports whether the document produced a table row.
func (o Outcome) Processed() bool { return o.Status == StatusProcessed }

// RunReport summarizes an extraction batch.
type RunReport struct {
	RunID     string    `json:"run_id,omitempty"`
	Outcomes  []Outcome `json:"outcomes"`
	Processed int       `json:"processed"`
	Skipped   int       `json:"skipped"`
}

// SkippedOutcomes returns the outcomes that produced no row.
func (r *RunReport) SkippedOutcomes() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if !o.Processed() {
			out = append(out, o)
		}
	}
	return out
}

// Ledger records runs and outcomes. *store.Store implements it.
type Ledger interface {
	StartRun(ctx context.Context, r store.Run) (*store.Run, error)
	RecordOutcome(ctx context.Context, o store.Outcome) (int64, error)
	FinishRun(ctx context.Context, runID string) error
}

// Extractor runs the extraction pipeline.
type Extractor struct {
	cfg       Config
	annotator annotation.Annotator
	registry  *parser.Registry
	appender  *table.Appender
	ledger    Ledger
	ledgerSet bool
	closer    func() error
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithAnnotator replaces the model-backed annotator. No credential is
// required when an annotator is supplied.
func WithAnnotator(a annotation.Annotator) Option {
	return func(e *Extractor) { e.annotator = a }
}

// WithRegistry replaces the document parser registry.
func WithRegistry(r *parser.Registry) Option {
	return func(e *Extractor) { e.registry = r }
}

// WithLedger replaces the ledger opened from Config.LedgerPath. A nil
// ledger disables run recording.
func WithLedger(l Ledger) Option {
	return func(e *Extractor) {
		e.ledger = l
		e.ledgerSet = true
	}
}

// NewExtractor creates an Extractor. Configuration problems, including a
// missing annotator credential, are reported here before any document is
// touched.
func NewExtractor(cfg Config, opts ...Option) (*Extractor, error) {
	e := &Extractor{cfg: cfg}
	for _, o := range opts {
		o(e)
	}

	if e.annotator == nil {
		if err := cfg.ValidateExtraction(); err != nil {
			return nil, err
		}
		provider, err := llm.NewProvider(cfg.Annotator.LLMConfig())
		if err != nil {
			return nil, fmt.Errorf("%w: creating annotator provider: %v", ErrInvalidConfig, err)
		}
		e.annotator = annotation.NewLLMAnnotator(provider, cfg.Annotator.Model, cfg.Annotator.Temperature)
	} else if err := cfg.validateBatch(); err != nil {
		return nil, err
	}

	if e.registry == nil {
		e.registry = parser.NewRegistry()
	}
	e.appender = table.NewAppender(cfg.TablePath)

	if !e.ledgerSet && cfg.LedgerPath != "" {
		s, err := store.New(cfg.LedgerPath)
		if err != nil {
			return nil, fmt.Errorf("opening run ledger: %w", err)
		}
		e.ledger = s
		e.closer = s.Close
	}
	return e, nil
}

// Close releases the ledger opened by NewExtractor.
func (e *Extractor) Close() error {
	if e.closer == nil {
		return nil
	}
	err := e.closer()
	e.closer = nil
	return err
}
