package bioextract

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brunobiangulo/bioextract/entity"
	"github.com/brunobiangulo/bioextract/graph"
	"github.com/brunobiangulo/bioextract/stats"
	"github.com/brunobiangulo/bioextract/table"
)

// GraphResult describes one rendered category graph.
type GraphResult struct {
	Category   entity.Category `json:"category"`
	Path       string          `json:"path"`
	Nodes      int             `json:"nodes"`
	Edges      int             `json:"edges"`
	Components int             `json:"components"`
}

// BuildGraphs reads the table and renders one bipartite graph per
// category into cfg.GraphDir. Missing columns fail before any file is
// written.
func BuildGraphs(ctx context.Context, cfg Config) ([]GraphResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	required := append([]string{table.ColFileName, table.ColArticleName}, table.CategoryColumns()...)
	tbl, err := table.Read(cfg.TablePath, required...)
	if err != nil {
		return nil, err
	}
	records := tbl.Records()

	start := time.Now()
	builder := graph.NewBuilder(cfg.graphCanonicalizer(), cfg.DocumentKey)
	results := make([]GraphResult, 0, len(entity.Categories))

	for _, c := range entity.Categories {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		g := builder.Build(records, c)
		path, err := graph.WriteHTML(cfg.GraphDir, g)
		if err != nil {
			return results, fmt.Errorf("writing %s graph: %w", c, err)
		}

		res := GraphResult{
			Category:   c,
			Path:       path,
			Nodes:      g.NodeCount(),
			Edges:      g.EdgeCount(),
			Components: len(graph.Components(g)),
		}
		results = append(results, res)

		attrs := []any{"category", c, "nodes", res.Nodes, "edges", res.Edges,
			"components", res.Components, "path", path}
		if hubs := graph.Hubs(g, 1); len(hubs) > 0 {
			attrs = append(attrs, "top_entity", hubs[0].Label, "top_degree", hubs[0].Degree)
		}
		slog.Info("graph: written", attrs...)
	}

	slog.Info("graph: all categories written",
		"rows", len(records), "dir", cfg.GraphDir,
		"elapsed", time.Since(start).Round(time.Millisecond))
	return results, nil
}

// AggregateStats reads the table, ranks the mentions of every category
// and writes them to cfg.WorkbookPath.
func AggregateStats(ctx context.Context, cfg Config) ([]stats.Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tbl, err := table.Read(cfg.TablePath, table.CategoryColumns()...)
	if err != nil {
		return nil, err
	}

	canon := cfg.statsCanonicalizer()
	reports := make([]stats.Report, 0, len(entity.Categories))
	for _, c := range entity.Categories {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r := stats.Aggregate(c, tbl.Column(string(c)), canon)
		slog.Info("stats: category counted",
			"category", c, "unique", r.Unique, "total_mentions", r.TotalMentions)
		reports = append(reports, r)
	}

	if cfg.WorkbookPath != "" {
		if err := stats.WriteWorkbook(cfg.WorkbookPath, reports); err != nil {
			return reports, err
		}
		slog.Info("stats: workbook written", "path", cfg.WorkbookPath, "sheets", len(reports))
	}
	slog.Info("stats: " + stats.Summary(reports))
	return reports, nil
}
