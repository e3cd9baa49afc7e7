package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/lawparse/internal/api"
	"github.com/ppiankov/lawparse/internal/extract/adapters"
	"github.com/ppiankov/lawparse/internal/metrics"
	"github.com/ppiankov/lawparse/internal/statute"
)

var (
	serveAddr  string
	serveStore string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the parser over HTTP",
	Long: `Serve exposes the parser as an HTTP API:
  POST /v1/parse                  parse {metadata, title, description, lines}
  POST /v1/documents?type=word    parse a raw HTML, Word or text document
  GET  /v1/records/{collection}   list stored records (with a store)
  GET  /v1/records/{collection}/{id}
  GET  /healthz
  GET  /metrics

Example:
  lawparse serve --addr :8080 --store lawdb.sqlite`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().StringVar(&serveStore, "store", "", "SQLite store path (enables the records endpoints)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if serveStore != "" {
		cfg.Store.Enabled = true
		cfg.Store.Path = serveStore
	}

	patterns, err := statute.Compile(cfg.Patterns)
	if err != nil {
		return fmt.Errorf("compile patterns: %w", err)
	}

	opts := []api.Option{
		api.WithMetrics(metrics.New()),
		api.WithLogger(logger),
		api.WithMaxBody(cfg.HTTP.MaxBodyBytes),
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	if st != nil {
		defer func() { _ = st.Close() }()
		opts = append(opts, api.WithStore(st))
	}

	srv := api.New(statute.NewParser(patterns, statute.WithLogger(logger)), adapters.NewRegistry(patterns), opts...)
	return srv.ListenAndServe(cmd.Context(), cfg.Server.Addr)
}
