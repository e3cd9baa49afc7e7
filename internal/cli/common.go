package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/lawparse/internal/cache"
	"github.com/ppiankov/lawparse/internal/metrics"
	"github.com/ppiankov/lawparse/internal/model"
	"github.com/ppiankov/lawparse/internal/pipeline"
	"github.com/ppiankov/lawparse/internal/store"
	"github.com/ppiankov/lawparse/internal/worker"
)

// fetchFlags are the retrieval and output flags shared by parse and batch
type fetchFlags struct {
	timeout     time.Duration
	userAgent   string
	maxBytes    int64
	noCache     bool
	noRobots    bool
	insecureTLS bool
	httpProxy   string
	httpsProxy  string
	noProxy     string
	outputDir   string
	storePath   string
	noJSON      bool
	noMarkdown  bool
}

func (f *fetchFlags) register(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&f.timeout, "fetch-timeout", 0, "HTTP timeout per request (default from config)")
	cmd.Flags().StringVar(&f.userAgent, "ua", "", "HTTP User-Agent (default from config)")
	cmd.Flags().Int64Var(&f.maxBytes, "max-bytes", 0, "max response bytes to read (default from config)")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable cache (force fresh fetch)")
	cmd.Flags().BoolVar(&f.noRobots, "no-robots", false, "do not consult robots.txt")
	cmd.Flags().BoolVar(&f.insecureTLS, "insecure", false, "skip TLS certificate verification (use for self-signed certs)")
	cmd.Flags().StringVar(&f.httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	cmd.Flags().StringVar(&f.httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
	cmd.Flags().StringVar(&f.noProxy, "no-proxy", "", "hosts that bypass the proxy (overrides NO_PROXY env var)")
	cmd.Flags().StringVar(&f.outputDir, "output-dir", "", "output directory for records (default from config)")
	cmd.Flags().StringVar(&f.storePath, "store", "", "SQLite store path (enables the store)")
	cmd.Flags().BoolVar(&f.noJSON, "no-json", false, "do not write JSON records")
	cmd.Flags().BoolVar(&f.noMarkdown, "no-md", false, "do not write Markdown records")
}

// apply overrides the configuration with the flags that were set
func (f *fetchFlags) apply(cfg *model.Config) {
	if f.timeout > 0 {
		cfg.HTTP.Timeout = f.timeout
	}
	if f.userAgent != "" {
		cfg.HTTP.UserAgent = f.userAgent
	}
	if f.maxBytes > 0 {
		cfg.HTTP.MaxBodyBytes = f.maxBytes
	}
	if f.noCache {
		cfg.Cache.Enabled = false
	}
	if f.noRobots {
		cfg.HTTP.RespectRobots = false
	}
	if f.insecureTLS {
		cfg.HTTP.InsecureTLS = true
	}
	if f.httpProxy != "" {
		cfg.HTTP.HTTPProxy = f.httpProxy
	}
	if f.httpsProxy != "" {
		cfg.HTTP.HTTPSProxy = f.httpsProxy
	}
	if f.noProxy != "" {
		cfg.HTTP.NoProxy = f.noProxy
	}
	if f.outputDir != "" {
		cfg.Output.Dir = f.outputDir
	}
	if f.storePath != "" {
		cfg.Store.Enabled = true
		cfg.Store.Path = f.storePath
	}
	if f.noJSON {
		cfg.Output.JSON = false
	}
	if f.noMarkdown {
		cfg.Output.Markdown = false
	}
	cfg.Output.Verbose = verbose
}

// openStore opens the configured store, or returns nil when it is disabled
func openStore(cfg *model.Config) (*store.Store, error) {
	if !cfg.Store.Enabled {
		return nil, nil
	}
	st, err := store.Open(cfg.Store.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

// buildPipeline wires fetcher, limiter, cache, store and metrics into a
// pipeline. The returned close function releases the store.
func buildPipeline(cfg *model.Config, m *metrics.Recorder) (*pipeline.Pipeline, func() error, error) {
	fetcher := pipeline.NewFetcherFromConfig(cfg.HTTP,
		pipeline.WithCache(cache.New(cfg.Cache)),
		pipeline.WithLimiter(worker.NewLimiterFromConfig(cfg.RateLimiting)),
		pipeline.WithFetchMetrics(m),
		pipeline.WithFetchLogger(logger),
	)

	opts := []pipeline.Option{
		pipeline.WithFetcher(fetcher),
		pipeline.WithMetrics(m),
		pipeline.WithLogger(logger),
	}

	st, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() error { return nil }
	if st != nil {
		opts = append(opts, pipeline.WithStore(st))
		closeFn = st.Close
	}

	p, err := pipeline.New(cfg, opts...)
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	return p, closeFn, nil
}
