package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/umputun/trendmind/pkg/analysis"
	"github.com/umputun/trendmind/pkg/dataset"
	"github.com/umputun/trendmind/pkg/domain"
	"github.com/umputun/trendmind/pkg/ingest"
)

// collect ingests sources from arguments, --sources and the sources file
func (a *app) collect(ctx context.Context, opts CollectCmd, out io.Writer) error {
	sources := append([]string{}, opts.Args.Sources...)
	sources = append(sources, ingest.ParseSourcesList(opts.Sources)...)
	file := opts.File
	if file == "" && len(sources) == 0 {
		file = a.cfg.Sources.File
	}
	if file != "" {
		fromFile, err := ingest.ParseSourcesFile(file)
		if err != nil {
			return fmt.Errorf("failed to read sources: %w", err)
		}
		sources = append(sources, fromFile...)
	}
	if len(sources) == 0 {
		return errors.New("no sources given, use arguments, --sources or --file")
	}

	res := a.collector.Collect(ctx, sources, a.daysBack(opts.DaysBack))
	if opts.JSON {
		return writeJSON(out, res)
	}

	rows := make([][]string, 0, len(res.Sources))
	for _, r := range res.Sources {
		status := "ok"
		if ingest.Failed(r) {
			status = "failed: " + r.Error
		} else if len(r.Errors) > 0 {
			status = fmt.Sprintf("ok, %d entry errors", len(r.Errors))
		}
		rows = append(rows, []string{r.SourceURL, string(r.SourceType), strconv.Itoa(r.NewCount),
			strconv.Itoa(r.CachedCount), fmt.Sprintf("%.1fs", r.ProcessingTime), status})
	}
	if err := renderTable(out, []string{"source", "type", "new", "cached", "time", "status"}, rows); err != nil {
		return err
	}
	s := res.Summary
	_, err := fmt.Fprintf(out, "\nsources: %d ok, %d failed; articles: %d total, %d new, %d cached\n",
		s.SuccessfulSources, s.FailedSources, s.TotalArticles, s.NewArticles, s.CachedArticles)
	return err
}

// analyze clusters stored articles and prints the overview with cluster summaries
func (a *app) analyze(ctx context.Context, opts AnalyzeCmd, out io.Writer) error {
	res, err := a.analyzer.Analyze(ctx, analysis.Request{
		Sources:     a.collector.CanonicalSources(ingest.ParseSourcesList(opts.Sources)),
		DaysBack:    a.daysBack(opts.DaysBack),
		MaxClusters: opts.MaxClusters,
		Limit:       opts.Limit,
		Filter:      opts.Filter || a.cfg.LLM.Filter.Enabled,
	})
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	if opts.JSON {
		return writeJSON(out, res)
	}
	return writeAnalysis(out, res)
}

func writeAnalysis(out io.Writer, res domain.Analysis) error {
	if res.ArticleCount == 0 {
		_, err := fmt.Fprintln(out, "no articles to analyze")
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "analyzed %d articles", res.ArticleCount)
	if res.Filtered > 0 {
		fmt.Fprintf(&b, ", %d filtered out", res.Filtered)
	}
	fmt.Fprintf(&b, ", %d clusters\n\n%s\n", len(res.Clusters), res.Overview)
	for i, c := range res.Clusters {
		fmt.Fprintf(&b, "\n## %d. %s (%d articles)\n\n%s\n", i+1, c.TopicName, c.ArticleCount, c.Summary)
		if len(c.Sources) > 0 {
			fmt.Fprintf(&b, "\nsources: %s\n", strings.Join(c.Sources, ", "))
		}
	}
	if res.Outcome.IsDegraded() {
		fmt.Fprintf(&b, "\nnote: results are partial, %s\n", res.Outcome.Reason)
	}
	_, err := io.WriteString(out, b.String())
	return err
}

// stats prints stored article counts per source
func (a *app) stats(ctx context.Context, opts StatsCmd, out io.Writer) error {
	daysBack := a.daysBack(opts.DaysBack)
	counts, err := a.repos.Article.CountsBySource(ctx, daysBack)
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}
	if len(counts) == 0 {
		_, err := fmt.Fprintf(out, "no articles in the last %d days\n", daysBack)
		return err
	}

	total := 0
	rows := make([][]string, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, []string{c.SourceURL, strconv.Itoa(c.Count)})
		total += c.Count
	}
	if err := renderTable(out, []string{"source", "articles"}, rows); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "\n%d articles from %d sources in the last %d days\n", total, len(counts), daysBack)
	return err
}

// purge runs the retention sweep once
func (a *app) purge(ctx context.Context, opts PurgeCmd, out io.Writer) error {
	keep := opts.DaysToKeep
	if keep <= 0 {
		keep = a.cfg.Retention.DaysToKeep
	}
	n, err := a.repos.Article.PurgeOlderThan(ctx, keep)
	if err != nil {
		return fmt.Errorf("purge failed: %w", err)
	}
	_, err = fmt.Fprintf(out, "deleted %d articles older than %d days\n", n, keep)
	return err
}

// datasetExport converts test cases into evaluation dataset files next to the input
func datasetExport(opts DatasetExportCmd, out io.Writer) error {
	ds, err := dataset.Load(opts.Input)
	if err != nil {
		return err
	}

	formats := []string{opts.Format}
	if opts.Format == "" || opts.Format == "both" {
		formats = []string{"json", "csv"}
	}
	for _, format := range formats {
		path := dataset.OutputPath(opts.Input, format)
		write := dataset.WriteJSON
		if format == "csv" {
			write = dataset.WriteCSV
		}
		if err := writeFile(path, func(w io.Writer) error { return write(w, ds) }); err != nil {
			return fmt.Errorf("failed to export %s: %w", format, err)
		}
		log.Printf("[INFO] exported %d items to %s", len(ds.TestCases), path)
		if _, err := fmt.Fprintf(out, "exported %d items to %s\n", len(ds.TestCases), path); err != nil {
			return err
		}
	}
	return nil
}

// datasetAnalyze prints precision and recall of filter decisions against ground truth
func datasetAnalyze(opts DatasetAnalyzeCmd, out io.Writer) error {
	ds, err := dataset.Load(opts.Input)
	if err != nil {
		return err
	}
	ev, err := dataset.Evaluate(ds)
	if err != nil {
		return fmt.Errorf("failed to evaluate %s: %w", opts.Input, err)
	}
	if opts.JSON {
		return writeJSON(out, ev)
	}

	st, c, s := ev.Stats, ev.Confusion, ev.Scores
	fmt.Fprintf(out, "test cases: %d total, %d labeled, %d unlabeled\n", st.TotalCases, st.LabeledCases, st.UnlabeledCases)
	fmt.Fprintf(out, "ground truth: %d ai relevant, %d not relevant\n\n", st.GroundTruthRelevant, st.GroundTruthNotRelevant)

	err = renderTable(out, []string{"metric", "value"}, [][]string{
		{"precision", strconv.FormatFloat(s.Precision, 'f', 3, 64)},
		{"recall", strconv.FormatFloat(s.Recall, 'f', 3, 64)},
		{"f1 score", strconv.FormatFloat(s.F1, 'f', 3, 64)},
		{"accuracy", strconv.FormatFloat(s.Accuracy, 'f', 3, 64)},
		{"true positives", strconv.Itoa(c.TruePositives)},
		{"false positives", strconv.Itoa(c.FalsePositives)},
		{"true negatives", strconv.Itoa(c.TrueNegatives)},
		{"false negatives", strconv.Itoa(c.FalseNegatives)},
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	for _, line := range s.Interpretation() {
		fmt.Fprintf(out, "- %s\n", line)
	}

	sources := dataset.Sources(ds)
	if len(sources) > 10 {
		sources = sources[:10]
	}
	fmt.Fprintln(out, "\ntop sources:")
	rows := make([][]string, 0, len(sources))
	for _, src := range sources {
		rows = append(rows, []string{src.Source, strconv.Itoa(src.Count)})
	}
	return renderTable(out, []string{"source", "cases"}, rows)
}

// daysBack returns v or configured default
func (a *app) daysBack(v int) int {
	if v > 0 {
		return v
	}
	return a.cfg.Sources.DaysBack
}

func renderTable(w io.Writer, headers []string, rows [][]string) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders:  tw.BorderNone,
			Settings: tw.Settings{Separators: tw.Separators{ShowHeader: tw.Off}},
		}),
	)
	table.Header(headers)
	if err := table.Bulk(rows); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path) //nolint:gosec // path is derived from the input file
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
