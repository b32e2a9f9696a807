package bioextract

import (
	"errors"

	"github.com/brunobiangulo/bioextract/parser"
	"github.com/brunobiangulo/bioextract/table"
)

var (
	// ErrUnsupportedFormat is returned for unrecognized file formats.
	ErrUnsupportedFormat = parser.ErrUnsupportedFormat

	// ErrParsingFailed is returned when a document yields no text.
	ErrParsingFailed = errors.New("bioextract: parsing failed")

	// ErrAnnotatorFailed is returned when the annotator call fails.
	ErrAnnotatorFailed = errors.New("bioextract: annotator failed")

	// ErrMissingCredential is returned when a hosted annotator has no API key.
	ErrMissingCredential = errors.New("bioextract: missing annotator credential")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("bioextract: invalid configuration")

	// ErrMissingColumns is returned when the table lacks required columns.
	ErrMissingColumns = table.ErrMissingColumns

	// ErrNoDocuments is returned when the input folder holds no PDFs.
	ErrNoDocuments = errors.New("bioextract: no documents found")
)
