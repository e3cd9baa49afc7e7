package cli

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/lawparse/internal/catalog"
	"github.com/ppiankov/lawparse/internal/metrics"
	"github.com/ppiankov/lawparse/internal/model"
	"github.com/ppiankov/lawparse/internal/statute"
	"github.com/ppiankov/lawparse/internal/worker"
)

var (
	batchFlags   fetchFlags
	concurrency  int
	batchTimeout time.Duration
	batchDir     string
	batchGlob    string
	onlyTitles   []string
	onlyFile     string
	metricsFile  string
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch [manifest.yaml]",
	Short: "Parse every statute of a catalog manifest or directory in parallel",
	Long: `Batch processes a catalog of statutes concurrently:
- Read items from a YAML manifest, or glob local files with --dir
- Skip decisions, replies and official answers unless selected with --only
- Skip items already held in the store
- Try each item's source files in order (HTML, Word, text) until one parses
- Write one JSON and Markdown record per statute

Example:
  lawparse batch catalog.yaml
  lawparse batch catalog.yaml --concurrency 8 --store lawdb.sqlite
  lawparse batch --dir ./downloads --glob "**/*.docx" --output-dir ./out
  lawparse batch catalog.yaml --only 中华人民共和国民法典`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchFlags.register(batchCmd)
	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default from config)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", time.Hour, "total timeout for batch processing")
	batchCmd.Flags().StringVar(&batchDir, "dir", "", "parse local files under this directory instead of a manifest")
	batchCmd.Flags().StringVar(&batchGlob, "glob", "**/*.docx", "file pattern used with --dir")
	batchCmd.Flags().StringSliceVar(&onlyTitles, "only", nil, "process only these titles")
	batchCmd.Flags().StringVar(&onlyFile, "only-file", "", "file with titles to process, one per line")
	batchCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile when done")
}

func loadItems(args []string) ([]catalog.Item, string, error) {
	switch {
	case batchDir != "":
		items, err := catalog.FromGlob(batchDir, batchGlob)
		return items, batchDir, err
	case len(args) == 1:
		m, err := catalog.Load(args[0])
		if err != nil {
			return nil, "", err
		}
		return m.Items, args[0], nil
	}
	return nil, "", fmt.Errorf("a manifest or --dir is required")
}

// selectItems applies the bypass rules and --only selection.
func selectItems(items []catalog.Item, filter *catalog.Filter) (selected []catalog.Item, skipped int) {
	for _, it := range items {
		if skip, reason := filter.Skip(it); skip {
			skipped++
			logger.Debug("item filtered", "title", it.Title, "reason", reason)
			continue
		}
		selected = append(selected, it)
	}
	return selected, skipped
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	batchFlags.apply(cfg)
	if concurrency > 0 {
		cfg.Concurrency.Workers = concurrency
	}
	if cfg.Concurrency.Workers <= 0 {
		cfg.Concurrency.Workers = runtime.NumCPU()
	}
	if metricsFile != "" {
		cfg.Metrics.Textfile = metricsFile
	}

	items, input, err := loadItems(args)
	if err != nil {
		return err
	}

	only := onlyTitles
	if onlyFile != "" {
		lines, err := worker.ReadLines(onlyFile)
		if err != nil {
			return fmt.Errorf("read only-file: %w", err)
		}
		only = append(only, lines...)
	}

	patterns, err := statute.Compile(cfg.Patterns)
	if err != nil {
		return fmt.Errorf("compile patterns: %w", err)
	}
	selected, filtered := selectItems(items, catalog.NewFilter(patterns, only))

	printBatchHeader(cfg, input, len(items), filtered)

	m := metrics.New()
	p, closeStore, err := buildPipeline(cfg, m)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	processor := worker.NewBatchProcessor(p, cfg.Concurrency.Workers)
	processor.OnResult(func(r *worker.ParseResult) {
		switch {
		case r.Error != nil:
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", r.Item.Title, r.Error)
		case r.Skipped:
			fmt.Fprintf(os.Stderr, "- %s (already stored)\n", r.Item.Title)
		default:
			fmt.Fprintf(os.Stderr, "✓ %s (%d articles, %v)\n", r.Record.Title, r.Record.ArticleCount(), r.Duration.Round(time.Millisecond))
		}
	})

	start := time.Now()
	results := processor.ProcessItems(ctx, selected)
	summary := worker.Summarize(results)

	printBatchSummary(cfg, summary, filtered, time.Since(start))

	if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	if summary.Failed > 0 && summary.Parsed == 0 {
		return fmt.Errorf("all %d items failed", summary.Failed)
	}
	return nil
}

func printBatchHeader(cfg *model.Config, input string, total, filtered int) {
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  lawparse Batch Processing\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input:        %s\n", input)
	fmt.Fprintf(os.Stderr, "  Items:        %d (%d filtered)\n", total, filtered)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", cfg.Output.Dir)
	if cfg.Store.Enabled {
		fmt.Fprintf(os.Stderr, "  Store:        %s\n", cfg.Store.Path)
	}
	fmt.Fprintf(os.Stderr, "\n")
}

func printBatchSummary(cfg *model.Config, s worker.Summary, filtered int, elapsed time.Duration) {
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d items\n", s.Total)
	fmt.Fprintf(os.Stderr, "  Parsed:    %d (%d articles)\n", s.Parsed, s.Articles)
	fmt.Fprintf(os.Stderr, "  Skipped:   %d stored, %d filtered\n", s.Skipped, filtered)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", s.Failed)
	fmt.Fprintf(os.Stderr, "  Elapsed:   %v\n", elapsed.Round(time.Millisecond))
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", cfg.Output.Dir)
	fmt.Fprintf(os.Stderr, "\n")
}
