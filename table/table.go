// Package table reads and appends the extraction table, one CSV row per
// processed document.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/brunobiangulo/bioextract/entity"
)

// Column names of the extraction table.
const (
	ColFileName       = "File Name"
	ColArticleName    = "Article Name"
	ColWordsTrimmed   = "Word Count (no-refs)"
	ColWordsProcessed = "Word Count (processed_cap)"
)

// ErrMissingColumns is returned when a table lacks required columns.
var ErrMissingColumns = errors.New("missing required columns")

// Header is the fixed column order of the table.
var Header = []string{
	ColFileName,
	ColArticleName,
	string(entity.Proteins),
	string(entity.Genes),
	string(entity.DNA),
	string(entity.RNA),
	string(entity.MethRNA),
	ColWordsTrimmed,
	ColWordsProcessed,
}

// Record is one document's row.
type Record struct {
	FileName       string
	Title          string
	Cells          map[entity.Category]string
	WordsTrimmed   int
	WordsProcessed int
}

// Row renders the record in Header order. Missing categories are empty.
func (r Record) Row() []string {
	row := make([]string, 0, len(Header))
	row = append(row, r.FileName, r.Title)
	for _, c := range entity.Categories {
		row = append(row, r.Cells[c])
	}
	return append(row, strconv.Itoa(r.WordsTrimmed), strconv.Itoa(r.WordsProcessed))
}

// Appender appends records to a CSV file.
type Appender struct {
	path string
}

// NewAppender creates an appender for path. Nothing is opened until the
// first Append.
func NewAppender(path string) *Appender {
	return &Appender{path: path}
}

// Path returns the table location.
func (a *Appender) Path() string { return a.path }

// Append writes one row, adding the header when the file is new or empty.
// The file is opened and closed per row so a crash loses at most the row
// being written.
func (a *Appender) Append(r Record) error {
	if dir := filepath.Dir(a.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating table directory: %w", err)
		}
	}

	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening table: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat table: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(Header); err != nil {
			f.Close()
			return fmt.Errorf("writing header: %w", err)
		}
	}
	if err := w.Write(r.Row()); err != nil {
		f.Close()
		return fmt.Errorf("writing row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flushing row: %w", err)
	}
	return f.Close()
}

// Table is a read-only view of the extraction table.
type Table struct {
	Columns []string
	Rows    []Row
	index   map[string]int
}

// Row holds the cells of one data row.
type Row struct {
	cells []string
	index map[string]int
}

// Get returns the cell for column, empty when absent or short.
func (r Row) Get(column string) string {
	i, ok := r.index[column]
	if !ok || i >= len(r.cells) {
		return ""
	}
	return r.cells[i]
}

// Has reports whether the table has column.
func (t *Table) Has(column string) bool {
	_, ok := t.index[column]
	return ok
}

// Column returns every value of column in row order.
func (t *Table) Column(column string) []string {
	out := make([]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		out = append(out, r.Get(column))
	}
	return out
}

// Read loads the table at path and checks that every required column is
// present. Header names are trimmed before matching.
func Read(path string, required ...string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening table: %w", err)
	}
	defer f.Close()
	return Parse(f, required...)
}

// Parse reads a table from r. See Read.
func Parse(r io.Reader, required ...string) (*Table, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		header = nil
	} else if err != nil {
		return nil, fmt.Errorf("reading table header: %w", err)
	}

	t := &Table{index: make(map[string]int, len(header))}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		t.Columns = append(t.Columns, h)
		if _, dup := t.index[h]; !dup {
			t.index[h] = i
		}
	}

	var missing []string
	for _, col := range required {
		if !t.Has(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s; found %s", ErrMissingColumns,
			strings.Join(missing, ", "), strings.Join(t.Columns, ", "))
	}

	if header == nil {
		return t, nil
	}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading table row %d: %w", len(t.Rows)+1, err)
		}
		t.Rows = append(t.Rows, Row{cells: rec, index: t.index})
	}
	return t, nil
}

// CategoryColumns returns the column names of every entity category.
func CategoryColumns() []string {
	out := make([]string, len(entity.Categories))
	for i, c := range entity.Categories {
		out[i] = string(c)
	}
	return out
}

// Records converts the rows into records. Unparseable word counts are zero.
func (t *Table) Records() []Record {
	out := make([]Record, 0, len(t.Rows))
	for _, r := range t.Rows {
		rec := Record{
			FileName: r.Get(ColFileName),
			Title:    r.Get(ColArticleName),
			Cells:    make(map[entity.Category]string, len(entity.Categories)),
		}
		for _, c := range entity.Categories {
			rec.Cells[c] = r.Get(string(c))
		}
		rec.WordsTrimmed, _ = strconv.Atoi(strings.TrimSpace(r.Get(ColWordsTrimmed)))
		rec.WordsProcessed, _ = strconv.Atoi(strings.TrimSpace(r.Get(ColWordsProcessed)))
		out = append(out, rec)
	}
	return out
}
