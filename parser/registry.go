package parser

import (
	"fmt"
	"path/filepath"
	"strings"
)

type Registry struct {
	parsers map[string]Parser
}

func NewRegistry() *Registry {
	r := &Registry{parsers: make(map[string]Parser)}
	for _, p := range []Parser{&PDFParser{}, &TextParser{}} {
		for _, f := range p.SupportedFormats() {
			r.parsers[f] = p
		}
	}
	return r
}

// Get returns the parser registered for a format such as "pdf".
func (r *Registry) Get(format string) (Parser, error) {
	p, ok := r.parsers[strings.ToLower(strings.TrimPrefix(format, "."))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return p, nil
}

// ForPath returns the parser for a file based on its extension.
func (r *Registry) ForPath(path string) (Parser, error) {
	return r.Get(filepath.Ext(path))
}

func (r *Registry) Register(format string, p Parser) {
	r.parsers[strings.ToLower(strings.TrimPrefix(format, "."))] = p
}
