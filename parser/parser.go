package parser

import (
	"context"
	"errors"
)

// ErrUnsupportedFormat is returned when no parser handles a file extension.
var ErrUnsupportedFormat = errors.New("parser: unsupported document format")

// ParseResult is the plain text extracted from a document file.
type ParseResult struct {
	Text   string // page texts joined by blank lines
	Title  string // embedded metadata title, empty when absent
	Pages  int    // pages that yielded text
	Method string // "native" or "plain"
}

// Parser can extract text from a specific document format.
type Parser interface {
	Parse(ctx context.Context, path string) (*ParseResult, error)
	SupportedFormats() []string
}
