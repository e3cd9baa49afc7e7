package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/lawparse/internal/cache"
	"github.com/ppiankov/lawparse/internal/catalog"
	"github.com/ppiankov/lawparse/internal/extract/adapters"
	"github.com/ppiankov/lawparse/internal/metrics"
	"github.com/ppiankov/lawparse/internal/model"
	"github.com/ppiankov/lawparse/internal/statute"
	"github.com/ppiankov/lawparse/internal/store"
)

var (
	// ErrSkipped is returned for items that are already stored.
	ErrSkipped = errors.New("skipped")

	// ErrNoFiles is returned for items without a usable source file.
	ErrNoFiles = errors.New("no source files")
)

// idNamespace seeds the identifiers of items that come without one, so the
// same title and publish date always map to the same record.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/ppiankov/lawparse"))

// Store is the persistence the pipeline writes parsed records to
type Store interface {
	Exists(ctx context.Context, collection, id string) (bool, error)
	Save(ctx context.Context, rec *model.Record) error
}

// Pipeline orchestrates fetch, extraction, parsing and output for catalog
// items
type Pipeline struct {
	fetcher  *Fetcher
	registry *adapters.Registry
	parser   *statute.Parser
	renderer *Renderer
	store    Store
	metrics  *metrics.Recorder
	config   *model.Config
	logger   *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithFetcher replaces the fetcher built from the http configuration.
func WithFetcher(f *Fetcher) Option {
	return func(p *Pipeline) { p.fetcher = f }
}

// WithStore saves every parsed record and skips items already stored.
func WithStore(s Store) Option {
	return func(p *Pipeline) { p.store = s }
}

// WithMetrics records document outcomes.
func WithMetrics(m *metrics.Recorder) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger sets the pipeline's logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a pipeline from the configuration. The marker patterns are
// compiled once and shared by the parser, adapters and renderer.
func New(cfg *model.Config, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	patterns, err := statute.Compile(cfg.Patterns)
	if err != nil {
		return nil, fmt.Errorf("compile patterns: %w", err)
	}

	p := &Pipeline{
		registry: adapters.NewRegistry(patterns),
		renderer: NewRenderer(cfg.Output, patterns),
		config:   cfg,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.parser = statute.NewParser(patterns, statute.WithLogger(p.logger))
	if p.fetcher == nil {
		p.fetcher = NewFetcherFromConfig(cfg.HTTP,
			WithCache(cache.New(cfg.Cache)),
			WithFetchMetrics(p.metrics),
			WithFetchLogger(p.logger),
		)
	}
	return p, nil
}

// Parser returns the statute parser
func (p *Pipeline) Parser() *statute.Parser {
	return p.parser
}

// Renderer returns the output renderer
func (p *Pipeline) Renderer() *Renderer {
	return p.renderer
}

// NewID derives a stable identifier from a title and publish date.
func NewID(title, publish string) string {
	return uuid.NewSHA1(idNamespace, []byte(strings.TrimSpace(title)+"\x00"+publish)).String()
}

// ParseItem parses one catalog item. Source files are tried in order until
// one yields a record, which is then written out and stored.
func (p *Pipeline) ParseItem(ctx context.Context, item catalog.Item) (*model.Record, error) {
	start := time.Now()
	rec, err := p.parseItem(ctx, item)
	elapsed := time.Since(start)

	switch {
	case errors.Is(err, ErrSkipped):
		p.metrics.ObserveDocument(metrics.OutcomeSkipped, 0, elapsed)
		p.logger.Debug("item skipped", "title", item.Title, "id", item.ID)
	case err != nil:
		p.metrics.ObserveDocument(metrics.OutcomeFailed, 0, elapsed)
	default:
		p.metrics.ObserveDocument(metrics.OutcomeParsed, rec.ArticleCount(), elapsed)
		p.logger.Info("parsed", "title", rec.Title, "id", rec.ID, "articles", rec.ArticleCount(), "elapsed", elapsed)
	}
	return rec, err
}

func (p *Pipeline) parseItem(ctx context.Context, item catalog.Item) (*model.Record, error) {
	if len(item.Files) == 0 {
		return nil, fmt.Errorf("%s: %w", item.Title, ErrNoFiles)
	}

	meta := item.Metadata()
	if meta.ID == "" && strings.TrimSpace(item.Title) != "" {
		meta.ID = NewID(item.Title, item.Publish)
	}
	if p.store != nil && meta.ID != "" {
		exists, err := p.store.Exists(ctx, store.CollectionFor(item.Level), meta.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, fmt.Errorf("%s: %w", item.Title, ErrSkipped)
		}
	}

	var errs []error
	for _, file := range item.Files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := p.parseFile(ctx, meta, item.Title, file)
		if err != nil {
			p.logger.Warn("source failed", "title", item.Title, "source", file.Source(), "err", err)
			errs = append(errs, err)
			continue
		}
		if err := p.persist(ctx, rec, item.Category); err != nil {
			return nil, err
		}
		return rec, nil
	}
	return nil, fmt.Errorf("%s: %w", item.Title, errors.Join(errs...))
}

func (p *Pipeline) parseFile(ctx context.Context, meta model.Metadata, title string, file catalog.File) (*model.Record, error) {
	source := file.Source()
	res, err := p.fetcher.Load(ctx, source)
	if err != nil {
		return nil, err
	}

	adapter, ok := p.registry.ByType(file.Type)
	if !ok {
		adapter = p.registry.FindAdapter(source, res.ContentType)
	}
	ext, err := adapter.Extract(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", adapter.Name(), err)
	}

	if strings.TrimSpace(title) == "" {
		title = ext.Title
	}
	rec, err := p.parser.Parse(meta, title, ext.Description, ext.Lines)
	if err != nil {
		return nil, err
	}
	if rec.ID == "" {
		rec.ID = NewID(rec.Title, rec.PublishDate)
	}
	return rec, nil
}

func (p *Pipeline) persist(ctx context.Context, rec *model.Record, category string) error {
	if p.config.Output.JSON || p.config.Output.Markdown {
		paths, err := p.renderer.Write(rec, category)
		if err != nil {
			return err
		}
		for _, path := range paths {
			p.logger.Debug("wrote output", "path", path)
		}
	}

	if p.store == nil {
		return nil
	}
	if err := p.store.Save(ctx, rec); err != nil && !errors.Is(err, store.ErrExists) {
		return fmt.Errorf("store %s: %w", rec.Title, err)
	}
	return nil
}

// ParseSource parses a single file path or URL outside any catalog. The
// title is taken from the document.
func (p *Pipeline) ParseSource(ctx context.Context, source string, meta model.Metadata) (*model.Record, error) {
	fileType, _ := catalog.TypeFor(source)
	file := catalog.File{Type: fileType, Path: source}
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		file = catalog.File{Type: fileType, URL: source}
	}

	return p.ParseItem(ctx, catalog.Item{
		ID:      meta.ID,
		Office:  meta.Office,
		Level:   meta.Level,
		Status:  meta.Status,
		Publish: catalog.DateOnly(meta.Publish),
		Expiry:  catalog.DateOnly(meta.Expiry),
		Files:   []catalog.File{file},
	})
}
