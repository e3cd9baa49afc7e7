// Package statute reconstructs the structure of a statute from the flat,
// noisy line sequence produced by a source adapter.
//
// A parse runs in stages over one immutable input: Normalize strips tables of
// contents and announcement pages, ExtractClauses reads the description blob,
// Inventory records the marker kinds in use, ExtractPreamble separates the
// text before the first division, and Assemble folds the remaining lines into
// a chapter/section/article tree. BuildRecord composes the result.
package statute

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ppiankov/lawparse/internal/model"
)

var (
	// ErrNoContent is returned when nothing but blank lines survive
	// normalization.
	ErrNoContent = errors.New("no content")

	// ErrNoTitle is returned when a record would be built without a title.
	ErrNoTitle = errors.New("no title")
)

// ParseError reports why a single document could not be parsed.
type ParseError struct {
	Title string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Title == "" {
		return fmt.Sprintf("parse: %v", e.Err)
	}
	return fmt.Sprintf("parse %q: %v", e.Title, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parser turns extracted lines into records. It keeps no per-document state
// and may be shared between goroutines.
type Parser struct {
	patterns *Patterns
	logger   *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger used for per-document debug output.
func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewParser creates a parser for the given marker convention. A nil
// convention selects Default().
func NewParser(patterns *Patterns, opts ...Option) *Parser {
	if patterns == nil {
		patterns = Default()
	}
	p := &Parser{patterns: patterns, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Patterns returns the compiled convention the parser uses.
func (p *Parser) Patterns() *Patterns {
	return p.patterns
}

// Parse builds a record from one document. It fails only when no content
// remains after normalization or when the title is missing; irregular
// structure is repaired rather than rejected.
func (p *Parser) Parse(meta model.Metadata, title, description string, lines []string) (*model.Record, error) {
	header := p.patterns.ExtractClauses(description)

	content := p.patterns.Normalize(lines)
	if !hasText(content) {
		return nil, &ParseError{Title: title, Err: ErrNoContent}
	}

	markers := p.patterns.Inventory(content)
	pre := p.patterns.ExtractPreamble(title, content)
	structure := p.patterns.Assemble(content[pre.BodyStart:])

	rec, err := BuildRecord(meta, title, append(header, pre.Header...), pre, structure)
	if err != nil {
		return nil, &ParseError{Title: title, Err: err}
	}
	rec.Markers = markers

	p.logger.Debug("parsed statute",
		"title", title,
		"lines", len(lines),
		"kept", len(content),
		"chapters", len(structure),
		"articles", rec.ArticleCount(),
		"markers", strings.Join(markers, ","),
	)
	return rec, nil
}

// BuildRecord composes a record from catalog metadata and parsed parts.
func BuildRecord(meta model.Metadata, title string, header []string, pre Preamble, structure []model.Chapter) (*model.Record, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrNoTitle
	}
	if header == nil {
		header = []string{}
	}
	if structure == nil {
		structure = []model.Chapter{}
	}

	rec := &model.Record{
		ID:          meta.ID,
		Title:       title,
		Office:      meta.Office,
		PublishDate: meta.Publish,
		Status:      meta.Status,
		Level:       meta.Level,
		Header:      header,
		Intro:       pre.IntroTitle,
		IntroText:   pre.IntroText,
		Structure:   structure,
	}
	if meta.Expiry != "" {
		expiry := meta.Expiry
		rec.ExpiredDate = &expiry
	}
	return rec, nil
}

func hasText(lines []string) bool {
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			return true
		}
	}
	return false
}
