package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/lawparse/internal/model"
	"github.com/ppiankov/lawparse/internal/pipeline"
)

var (
	parseFlags   fetchFlags
	parseMeta    model.Metadata
	parseTimeout time.Duration
	parseStdout  string
)

// parseCmd represents the parse command
var parseCmd = &cobra.Command{
	Use:   "parse <file|url>",
	Short: "Parse a single statute from a file or URL",
	Long: `Parse reads one statute source and reconstructs its structure:
- HTML pages, Word (.docx) files and plain text are supported
- Tables of contents and announcement pages are removed
- Enactment and amendment clauses become the record header
- The body is folded into chapters, sections and articles

Example:
  lawparse parse 民法典.docx --publish 2020-05-28 --level 法律
  lawparse parse https://example.org/law.html --output-dir ./out
  lawparse parse law.txt --stdout json`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseFlags.register(parseCmd)
	parseCmd.Flags().DurationVar(&parseTimeout, "timeout", 2*time.Minute, "overall timeout")
	parseCmd.Flags().StringVar(&parseStdout, "stdout", "", "print the record to stdout instead of writing files (json or md)")

	parseCmd.Flags().StringVar(&parseMeta.ID, "id", "", "record id (default: derived from title and publish date)")
	parseCmd.Flags().StringVar(&parseMeta.Office, "office", "", "issuing office")
	parseCmd.Flags().StringVar(&parseMeta.Level, "level", "", "statute level, e.g. 法律")
	parseCmd.Flags().StringVar(&parseMeta.Status, "status", "", "validity status")
	parseCmd.Flags().StringVar(&parseMeta.Publish, "publish", "", "publish date (YYYY-MM-DD)")
	parseCmd.Flags().StringVar(&parseMeta.Expiry, "expiry", "", "expiry date (YYYY-MM-DD)")
}

func runParse(cmd *cobra.Command, args []string) error {
	source := args[0]
	ctx, cancel := context.WithTimeout(cmd.Context(), parseTimeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	parseFlags.apply(cfg)

	switch parseStdout {
	case "":
	case "json", "md":
		cfg.Output.JSON = false
		cfg.Output.Markdown = false
	default:
		return fmt.Errorf("unknown --stdout format %q (want json or md)", parseStdout)
	}

	p, closeStore, err := buildPipeline(cfg, nil)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	if verbose {
		fmt.Fprintf(os.Stderr, "Parsing: %s\n", source)
	}

	rec, err := p.ParseSource(ctx, source, parseMeta)
	if err != nil {
		return fmt.Errorf("parse failed: %w", err)
	}

	switch parseStdout {
	case "json":
		data, err := pipeline.EncodeJSON(rec)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	case "md":
		fmt.Print(p.Renderer().Markdown(rec))
		return nil
	}

	fmt.Fprintf(os.Stderr, "✓ %s (%d chapters, %d articles)\n", rec.Title, len(rec.Structure), rec.ArticleCount())
	return nil
}
