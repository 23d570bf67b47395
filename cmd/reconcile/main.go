// Command reconcile is a batch CLI: it reads two CSV row files plus a
// persisted reconciliation document, runs the engine, and prints a
// colorized summary.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jwalton/gchalk"

	"github.com/gmhafiz/reconcile/internal/domain/document"
	"github.com/gmhafiz/reconcile/internal/domain/expr"
	"github.com/gmhafiz/reconcile/internal/domain/preprocess"
	"github.com/gmhafiz/reconcile/internal/domain/recon"
	"github.com/gmhafiz/reconcile/internal/domain/scalar"
	"github.com/gmhafiz/reconcile/internal/domain/stream"
	"github.com/gmhafiz/reconcile/internal/domain/transform"
	"github.com/gmhafiz/reconcile/internal/rates"
	"github.com/gmhafiz/reconcile/internal/telemetry"
)

func main() {
	var (
		sourcePath string
		targetPath string
		configPath string
	)
	flag.StringVar(&sourcePath, "source", "", "path to the source CSV file")
	flag.StringVar(&targetPath, "target", "", "path to the target CSV file")
	flag.StringVar(&configPath, "config", "", "path to the reconciliation document (.json or .yaml)")
	flag.Parse()

	if sourcePath == "" || targetPath == "" || configPath == "" {
		fmt.Fprintln(os.Stderr, "usage: reconcile -source FILE -target FILE -config FILE")
		os.Exit(2)
	}

	if err := run(sourcePath, targetPath, configPath); err != nil {
		fmt.Fprintln(os.Stderr, gchalk.Red("reconcile: "+err.Error()))
		os.Exit(1)
	}
}

func run(sourcePath, targetPath, configPath string) error {
	doc, err := loadDocument(configPath)
	if err != nil {
		return err
	}

	sourceRows, err := loadCSV(sourcePath)
	if err != nil {
		return err
	}
	targetRows, err := loadCSV(targetPath)
	if err != nil {
		return err
	}

	rateProv := rates.NewStaticProvider(nil)
	tCtx := transform.Context{Rates: rateProv}

	sourceSpec := preprocess.Spec{
		VirtualFields: filterBySide(doc.BuildVirtualFields(), "source"),
		Pipelines:     toColumnPipelines(doc.Pipelines("source")),
	}
	targetSpec := preprocess.Spec{
		VirtualFields: filterBySide(doc.BuildVirtualFields(), "target"),
		Pipelines:     toColumnPipelines(doc.Pipelines("target")),
	}

	enrichedSource, droppedSource := enrichAll(sourceSpec, sourceRows, tCtx)
	enrichedTarget, droppedTarget := enrichAll(targetSpec, targetRows, tCtx)

	mappings := doc.ColumnMappings()
	cfg := doc.ReconConfig()

	var results []recon.Result
	var stats stream.Stats

	if stream.ShouldStream(len(enrichedSource), len(enrichedTarget)) {
		streamCfg := stream.Config{
			SourceSortKey: doc.SortConfiguration.SourceSortKey,
			TargetSortKey: doc.SortConfiguration.TargetSortKey,
			Tolerance:     cfg.Tolerance,
			ToleranceUnit: cfg.ToleranceUnit,
			MatchStrategy: cfg.MatchStrategy,
		}
		spanCtx, span := telemetry.StartStream(context.Background(), string(cfg.MatchStrategy))
		results, stats, err = stream.Run(spanCtx, enrichedSource, enrichedTarget, mappings, streamCfg, progressToStderr)
		telemetry.RecordOutcome(span, stats.Matched, stats.UnmatchedSource, stats.UnmatchedTarget, stats.Discrepancy)
		span.End()
		if err != nil {
			return err
		}
	} else {
		_, span := telemetry.StartReconcile(context.Background(), len(enrichedSource), len(enrichedTarget))
		results = recon.Run(enrichedSource, enrichedTarget, mappings, cfg)
		for _, r := range results {
			stats.Record(r.Status)
		}
		telemetry.RecordOutcome(span, stats.Matched, stats.UnmatchedSource, stats.UnmatchedTarget, stats.Discrepancy)
		span.End()
	}

	stats.Excluded = droppedSource + droppedTarget
	printSummary(results, stats)
	return nil
}

func loadDocument(path string) (*document.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".yaml") || strings.EqualFold(filepath.Ext(path), ".yml") {
		return document.ParseYAML(data)
	}
	return document.ParseJSON(data)
}

func progressToStderr(processed, total int, stage stream.Stage) {
	denom := total
	if denom == 0 {
		denom = 1
	}
	fmt.Fprintf(os.Stderr, "\r%s %d%%", gchalk.Gray(string(stage)), processed*100/denom)
}

func printSummary(results []recon.Result, stats stream.Stats) {
	fmt.Println()
	fmt.Println(gchalk.Bold("Reconciliation summary"))
	fmt.Printf("  %s %d\n", gchalk.Green("matched:"), stats.Matched)
	fmt.Printf("  %s %d\n", gchalk.Yellow("discrepancy:"), stats.Discrepancy)
	fmt.Printf("  %s %d\n", gchalk.Red("unmatched-source:"), stats.UnmatchedSource)
	fmt.Printf("  %s %d\n", gchalk.Red("unmatched-target:"), stats.UnmatchedTarget)
	fmt.Printf("  %s %d\n", gchalk.Gray("excluded:"), stats.Excluded)

	for _, r := range results {
		if r.Status != recon.StatusDiscrepancy {
			continue
		}
		slog.Warn("discrepancy", "id", r.ID, "columns", strings.Join(r.Discrepancies, "; "))
	}
}

func filterBySide(vfs []*expr.VirtualField, side string) []*expr.VirtualField {
	out := make([]*expr.VirtualField, 0, len(vfs))
	for _, vf := range vfs {
		if vf.Side == side {
			out = append(out, vf)
		}
	}
	return out
}

func enrichAll(spec preprocess.Spec, rows []scalar.Row, ctx transform.Context) ([]scalar.Row, int) {
	out := make([]scalar.Row, 0, len(rows))
	excluded := 0
	for _, row := range rows {
		outcome := preprocess.Run(spec, row, ctx)
		if outcome.Excluded {
			excluded++
			continue
		}
		out = append(out, outcome.Row)
	}
	return out, excluded
}

// toColumnPipelines groups steps by the column they read from (ColumnID),
// preserving declaration order; preprocess.Run writes each pipeline's
// result to OutputColumn when the chain sets one, else back to ColumnID
// (spec.md §4.5).
func toColumnPipelines(steps []transform.Step) []preprocess.ColumnPipeline {
	byColumn := make(map[string][]transform.Step)
	var order []string
	for _, s := range steps {
		col := s.ColumnID
		if col == "" {
			continue
		}
		if _, ok := byColumn[col]; !ok {
			order = append(order, col)
		}
		byColumn[col] = append(byColumn[col], s)
	}
	pipelines := make([]preprocess.ColumnPipeline, 0, len(order))
	for _, col := range order {
		pipelines = append(pipelines, preprocess.ColumnPipeline{Column: col, Steps: byColumn[col]})
	}
	return pipelines
}
