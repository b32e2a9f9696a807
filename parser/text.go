package parser

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// TextParser handles plain text and markdown files, typically articles that
// were converted to text ahead of time.
type TextParser struct{}

func (p *TextParser) SupportedFormats() []string { return []string{"txt", "md"} }

func (p *TextParser) Parse(ctx context.Context, path string) (*ParseResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading text file: %w", err)
	}

	text := strings.TrimSpace(string(data))
	pages := 0
	if text != "" {
		pages = 1
	}
	return &ParseResult{
		Text:   text,
		Pages:  pages,
		Method: "plain",
	}, nil
}
