// Command bioextract runs the article extraction, graph and statistics
// pipelines.
//
// Usage:
//
//	bioextract -config bioextract.yaml extract
//	bioextract -input ./biomarkers -provider ollama -model llama3.1:8b extract
//	bioextract graph
//	bioextract stats
//	bioextract -log-level debug all
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/brunobiangulo/bioextract"
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <extract|graph|stats|all>\n\nFlags:\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	var (
		configPath = flag.String("config", "", "Path to config file (YAML or JSON)")
		logLevel   = flag.String("log-level", "info", "Log level: debug, info, warn, error")
		inputDir   = flag.String("input", "", "Folder of PDF articles (overrides config)")
		tablePath  = flag.String("table", "", "Extraction table CSV path (overrides config)")
		wordCap    = flag.Int("cap", 0, "Maximum words sent to the annotator (overrides config)")
		provider   = flag.String("provider", "", "Annotator provider: openai, ollama, groq, openrouter, ... (overrides config)")
		model      = flag.String("model", "", "Annotator model name (overrides config)")
	)
	flag.Usage = usage
	flag.Parse()

	setupLogging(*logLevel)

	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}
	command := flag.Arg(0)

	cfg, err := bioextract.LoadConfig(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}
	if *inputDir != "" {
		cfg.InputDir = *inputDir
	}
	if *tablePath != "" {
		cfg.TablePath = *tablePath
	}
	if *wordCap > 0 {
		cfg.WordCap = *wordCap
	}
	if *provider != "" {
		cfg.Annotator.Provider = *provider
	}
	if *model != "" {
		cfg.Annotator.Model = *model
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch command {
	case "extract":
		err = runExtract(ctx, cfg)
	case "graph":
		_, err = bioextract.BuildGraphs(ctx, cfg)
	case "stats":
		err = runStats(ctx, cfg)
	case "all":
		err = runAll(ctx, cfg)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", command)
		usage()
		os.Exit(2)
	}
	if err != nil {
		slog.Error(command+" failed", "error", err)
		os.Exit(1)
	}
}

// setupLogging installs a console handler as the slog default.
func setupLogging(level string) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Level:           lvl,
	})
	slog.SetDefault(slog.New(logger))
	if err != nil {
		slog.Warn("unknown log level, using info", "level", level)
	}
}

func runExtract(ctx context.Context, cfg bioextract.Config) error {
	ex, err := bioextract.NewExtractor(cfg)
	if err != nil {
		return err
	}
	defer ex.Close()

	report, err := ex.Run(ctx)
	if report != nil {
		printSkipped(report)
	}
	return err
}

func printSkipped(report *bioextract.RunReport) {
	skipped := report.SkippedOutcomes()
	fmt.Printf("Processed %d, skipped %d\n", report.Processed, len(skipped))
	for _, o := range skipped {
		fmt.Printf("  %s: %s\n", o.FileName, o.Reason)
	}
}

func runStats(ctx context.Context, cfg bioextract.Config) error {
	reports, err := bioextract.AggregateStats(ctx, cfg)
	if err != nil {
		return err
	}
	for _, r := range reports {
		fmt.Printf("\n%s (%d unique, %d mentions)\n", r.Category, r.Unique, r.TotalMentions)
		for i, row := range r.Rows {
			if i == 10 {
				fmt.Printf("  ... %d more\n", len(r.Rows)-i)
				break
			}
			fmt.Printf("  %-40s %d\n", row.Label, row.Count)
		}
	}
	return nil
}

func runAll(ctx context.Context, cfg bioextract.Config) error {
	if err := runExtract(ctx, cfg); err != nil && !errors.Is(err, bioextract.ErrNoDocuments) {
		return err
	}
	if _, err := bioextract.BuildGraphs(ctx, cfg); err != nil {
		return err
	}
	return runStats(ctx, cfg)
}
