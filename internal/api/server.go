// Package api exposes the statute parser over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ppiankov/lawparse/internal/extract/adapters"
	"github.com/ppiankov/lawparse/internal/metrics"
	"github.com/ppiankov/lawparse/internal/model"
	"github.com/ppiankov/lawparse/internal/statute"
	"github.com/ppiankov/lawparse/internal/store"
)

const defaultMaxBody = 20 << 20

// RecordStore is the read side of the document store.
type RecordStore interface {
	Get(ctx context.Context, collection, id string) (*model.Record, error)
	List(ctx context.Context, collection string) ([]store.Summary, error)
}

// ParseRequest is the body of POST /v1/parse.
type ParseRequest struct {
	Metadata    model.Metadata `json:"metadata"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Lines       []string       `json:"lines"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server serves parse requests
type Server struct {
	router   chi.Router
	parser   *statute.Parser
	registry *adapters.Registry
	store    RecordStore
	metrics  *metrics.Recorder
	logger   *slog.Logger
	maxBody  int64
}

// Option configures a Server.
type Option func(*Server)

// WithStore serves stored records under /v1/records.
func WithStore(s RecordStore) Option {
	return func(srv *Server) { srv.store = s }
}

// WithMetrics records request durations and serves /metrics.
func WithMetrics(m *metrics.Recorder) Option {
	return func(srv *Server) { srv.metrics = m }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(srv *Server) {
		if l != nil {
			srv.logger = l
		}
	}
}

// WithMaxBody limits request bodies to n bytes.
func WithMaxBody(n int64) Option {
	return func(srv *Server) {
		if n > 0 {
			srv.maxBody = n
		}
	}
}

// New creates a server around a parser and the adapters for raw documents.
func New(parser *statute.Parser, registry *adapters.Registry, opts ...Option) *Server {
	if parser == nil {
		parser = statute.NewParser(nil)
	}
	if registry == nil {
		registry = adapters.NewRegistry(parser.Patterns())
	}
	s := &Server{
		parser:   parser,
		registry: registry,
		logger:   slog.Default(),
		maxBody:  defaultMaxBody,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	r.Route("/v1", func(r chi.Router) {
		r.Post("/parse", s.handleParse)
		r.Post("/documents", s.handleDocument)
		if s.store != nil {
			r.Get("/records/{collection}", s.handleList)
			r.Get("/records/{collection}/{id}", s.handleGet)
		}
	})
	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("server started", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("stopping server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// observe logs each request and records its duration by route pattern.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		pattern := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			pattern = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)

		s.metrics.ObserveAPIEndpointDuration(pattern, r.Method, strconv.Itoa(status), elapsed.Seconds())
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"elapsed", elapsed,
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req ParseRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	s.respondParse(w, req.Metadata, req.Title, req.Description, req.Lines)
}

// handleDocument parses a raw source document. The adapter is chosen by the
// type query parameter (html, word, text) or else by Content-Type; metadata
// fields may be given as query parameters.
func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}

	q := r.URL.Query()
	adapter, ok := s.registry.ByType(q.Get("type"))
	if !ok {
		if q.Get("type") != "" {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown document type %q", q.Get("type")))
			return
		}
		adapter = s.registry.FindAdapter("", r.Header.Get("Content-Type"))
	}

	ext, err := adapter.Extract(body)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	title := q.Get("title")
	if title == "" {
		title = ext.Title
	}
	meta := model.Metadata{
		ID:      q.Get("id"),
		Office:  q.Get("office"),
		Level:   q.Get("level"),
		Status:  q.Get("status"),
		Publish: q.Get("publish"),
		Expiry:  q.Get("expiry"),
	}
	s.respondParse(w, meta, title, ext.Description, ext.Lines)
}

func (s *Server) respondParse(w http.ResponseWriter, meta model.Metadata, title, description string, lines []string) {
	start := time.Now()
	rec, err := s.parser.Parse(meta, title, description, lines)
	if err != nil {
		s.metrics.ObserveDocument(metrics.OutcomeFailed, 0, time.Since(start))
		var pe *statute.ParseError
		if errors.As(err, &pe) {
			writeError(w, http.StatusUnprocessableEntity, pe.Err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.metrics.ObserveDocument(metrics.OutcomeParsed, rec.ArticleCount(), time.Since(start))
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.List(r.Context(), chi.URLParam(r, "collection"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if list == nil {
		list = []store.Summary{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Get(r.Context(), chi.URLParam(r, "collection"), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeJSON(w, http.StatusOK, rec)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
