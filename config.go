package bioextract

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/brunobiangulo/bioextract/entity"
	"github.com/brunobiangulo/bioextract/graph"
	"github.com/brunobiangulo/bioextract/llm"
)

// envPrefix namespaces the environment overrides.
const envPrefix = "BIOEXTRACT_"

// Config holds all configuration for the three pipelines.
type Config struct {
	// InputDir is scanned for *.pdf files by the extraction pipeline.
	InputDir string `json:"input_dir" yaml:"input_dir"`
	// OutputDir receives raw model responses, one .txt per document.
	OutputDir string `json:"output_dir" yaml:"output_dir"`
	// PreprocessedDir receives the markdown rendition of each document.
	PreprocessedDir string `json:"preprocessed_dir" yaml:"preprocessed_dir"`
	// TablePath is the CSV the extractor appends to and the graph and
	// stats pipelines read.
	TablePath string `json:"table_path" yaml:"table_path"`
	// LedgerPath is the SQLite run ledger. Empty disables the ledger.
	LedgerPath string `json:"ledger_path" yaml:"ledger_path"`

	// WordCap bounds the number of words sent to the annotator.
	WordCap int `json:"word_cap" yaml:"word_cap"`

	Annotator AnnotatorConfig `json:"annotator" yaml:"annotator"`

	// Graph output
	GraphDir        string `json:"graph_dir" yaml:"graph_dir"`
	DocumentKey     string `json:"document_key" yaml:"document_key"` // title (default) or file
	GraphSeparators string `json:"graph_separators" yaml:"graph_separators"`

	// Statistics output
	WorkbookPath    string `json:"workbook_path" yaml:"workbook_path"`
	StatsSeparators string `json:"stats_separators" yaml:"stats_separators"`

	// CaseInsensitive merges casing variants of an entity in graphs and
	// statistics.
	CaseInsensitive bool `json:"case_insensitive" yaml:"case_insensitive"`

	// SaveArtifacts writes the preprocessed markdown and raw responses.
	SaveArtifacts bool `json:"save_artifacts" yaml:"save_artifacts"`
	// PreviewChars limits the logged response preview. Zero disables it.
	PreviewChars int `json:"preview_chars" yaml:"preview_chars"`
}

// AnnotatorConfig configures the model used for annotation.
type AnnotatorConfig struct {
	Provider    string        `json:"provider" yaml:"provider"` // openai, ollama, lmstudio, openrouter, groq, xai, gemini, custom
	Model       string        `json:"model" yaml:"model"`
	BaseURL     string        `json:"base_url" yaml:"base_url"`
	APIKey      string        `json:"api_key" yaml:"api_key"`
	Temperature float64       `json:"temperature" yaml:"temperature"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout"`
	MaxRetries  int           `json:"max_retries" yaml:"max_retries"`
}

// LLMConfig converts the annotator settings into a provider config.
func (a AnnotatorConfig) LLMConfig() llm.Config {
	return llm.Config{
		Provider:   a.Provider,
		Model:      a.Model,
		BaseURL:    a.BaseURL,
		APIKey:     a.APIKey,
		Timeout:    a.Timeout,
		MaxRetries: a.MaxRetries,
	}
}

// DefaultConfig returns the folder layout and model settings the
// pipelines use when nothing is configured.
func DefaultConfig() Config {
	return Config{
		InputDir:        "biomarkers",
		OutputDir:       "results",
		PreprocessedDir: "articles-preprocessed",
		TablePath:       filepath.Join("results", "extracted_entities.csv"),
		LedgerPath:      filepath.Join("results", "runs.db"),
		WordCap:         10_000,
		Annotator: AnnotatorConfig{
			Provider:    "openai",
			Model:       "gpt-5-nano",
			Temperature: 1,
			Timeout:     5 * time.Minute,
		},
		GraphDir:        "nets",
		DocumentKey:     graph.KeyByTitle,
		GraphSeparators: entity.GraphSeparators,
		WorkbookPath:    filepath.Join("results", "entity_counts_all.xlsx"),
		StatsSeparators: entity.StatsSeparators,
		CaseInsensitive: true,
		SaveArtifacts:   true,
		PreviewChars:    1000,
	}
}

// LoadConfig builds a Config from defaults, an optional YAML or JSON file
// and the environment. A .env file in the working directory is loaded
// first; variables already set in the process win.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if err := godotenv.Load(); err != nil {
		slog.Debug("config: no .env file loaded", "error", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("%w: reading config file: %v", ErrInvalidConfig, err)
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".json":
			err = json.Unmarshal(data, &cfg)
		default:
			err = yaml.Unmarshal(data, &cfg)
		}
		if err != nil {
			return cfg, fmt.Errorf("%w: parsing %s: %v", ErrInvalidConfig, path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	cfg.resolveAPIKey()
	return cfg, nil
}

// applyEnv overlays BIOEXTRACT_* variables.
func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"INPUT_DIR":          &c.InputDir,
		"OUTPUT_DIR":         &c.OutputDir,
		"PREPROCESSED_DIR":   &c.PreprocessedDir,
		"TABLE_PATH":         &c.TablePath,
		"LEDGER_PATH":        &c.LedgerPath,
		"GRAPH_DIR":          &c.GraphDir,
		"DOCUMENT_KEY":       &c.DocumentKey,
		"WORKBOOK_PATH":      &c.WorkbookPath,
		"ANNOTATOR_PROVIDER": &c.Annotator.Provider,
		"ANNOTATOR_MODEL":    &c.Annotator.Model,
		"ANNOTATOR_BASE_URL": &c.Annotator.BaseURL,
		"ANNOTATOR_API_KEY":  &c.Annotator.APIKey,
	}
	for name, dst := range strs {
		if v, ok := os.LookupEnv(envPrefix + name); ok {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv(envPrefix + "WORD_CAP"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %sWORD_CAP=%q", ErrInvalidConfig, envPrefix, v)
		}
		c.WordCap = n
	}
	if v, ok := os.LookupEnv(envPrefix + "CASE_INSENSITIVE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %sCASE_INSENSITIVE=%q", ErrInvalidConfig, envPrefix, v)
		}
		c.CaseInsensitive = b
	}
	if v, ok := os.LookupEnv(envPrefix + "ANNOTATOR_TEMPERATURE"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %sANNOTATOR_TEMPERATURE=%q", ErrInvalidConfig, envPrefix, v)
		}
		c.Annotator.Temperature = f
	}
	return nil
}

// resolveAPIKey falls back to the provider's well-known key variable.
func (c *Config) resolveAPIKey() {
	if c.Annotator.APIKey != "" {
		return
	}
	if env := llm.APIKeyEnv(c.Annotator.Provider); env != "" {
		c.Annotator.APIKey = os.Getenv(env)
	}
}

// Validate checks the settings shared by every pipeline.
func (c *Config) Validate() error {
	if c.TablePath == "" {
		return fmt.Errorf("%w: table_path is empty", ErrInvalidConfig)
	}
	if c.DocumentKey != graph.KeyByTitle && c.DocumentKey != graph.KeyByFile {
		return fmt.Errorf("%w: document_key must be %q or %q, got %q",
			ErrInvalidConfig, graph.KeyByTitle, graph.KeyByFile, c.DocumentKey)
	}
	return nil
}

// ValidateExtraction additionally checks what the extraction pipeline
// needs, including the annotator credential.
func (c *Config) ValidateExtraction() error {
	if err := c.validateBatch(); err != nil {
		return err
	}
	if c.Annotator.Provider == "" {
		return fmt.Errorf("%w: annotator provider is empty", ErrInvalidConfig)
	}
	if llm.RequiresAPIKey(c.Annotator.Provider) && c.Annotator.APIKey == "" {
		hint := llm.APIKeyEnv(c.Annotator.Provider)
		if hint == "" {
			hint = envPrefix + "ANNOTATOR_API_KEY"
		}
		return fmt.Errorf("%w: %s requires an API key (set %s)", ErrMissingCredential, c.Annotator.Provider, hint)
	}
	return nil
}

// validateBatch checks the extraction settings that do not involve the
// annotator.
func (c *Config) validateBatch() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.InputDir == "" {
		return fmt.Errorf("%w: input_dir is empty", ErrInvalidConfig)
	}
	if c.WordCap <= 0 {
		return fmt.Errorf("%w: word_cap must be positive, got %d", ErrInvalidConfig, c.WordCap)
	}
	return nil
}

// graphCanonicalizer returns the canonicalizer for graph building.
func (c *Config) graphCanonicalizer() *entity.Canonicalizer {
	return entity.NewCanonicalizer(c.GraphSeparators, c.CaseInsensitive)
}

// statsCanonicalizer returns the canonicalizer for statistics.
func (c *Config) statsCanonicalizer() *entity.Canonicalizer {
	seps := c.StatsSeparators
	if seps == "" {
		seps = entity.StatsSeparators
	}
	return entity.NewCanonicalizer(seps, c.CaseInsensitive)
}
