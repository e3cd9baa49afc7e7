// Package adapters turns source documents into the title, description and
// raw line sequence the statute parser consumes.
package adapters

import (
	"errors"
	"path"
	"strings"

	"github.com/ppiankov/lawparse/internal/model"
	"github.com/ppiankov/lawparse/internal/statute"
)

// ErrNoContent is returned when a source yields no usable lines.
var ErrNoContent = errors.New("source has no content")

// Adapter defines the interface for source format extractors
type Adapter interface {
	// Name returns the adapter name
	Name() string

	// CanHandle checks if this adapter can handle the given source/content type
	CanHandle(source string, contentType string) bool

	// Extract reads a document into title, description and content lines
	Extract(data []byte) (*model.Extraction, error)
}

// Registry manages source adapters
type Registry struct {
	adapters []Adapter
	fallback Adapter
}

// NewRegistry creates a registry with the HTML, Word and text adapters. The
// patterns supply the title prefix and description rules of the convention.
func NewRegistry(p *statute.Patterns) *Registry {
	if p == nil {
		p = statute.Default()
	}
	registry := &Registry{}
	registry.Register(NewHTMLAdapter(p))
	registry.Register(NewWordAdapter(p))

	text := NewTextAdapter(p)
	registry.Register(text)
	registry.fallback = text

	return registry
}

// Register registers a new adapter
func (r *Registry) Register(adapter Adapter) {
	r.adapters = append(r.adapters, adapter)
}

// FindAdapter finds the adapter for the given source and content type,
// falling back to plain text.
func (r *Registry) FindAdapter(source string, contentType string) Adapter {
	for _, adapter := range r.adapters {
		if adapter.CanHandle(source, contentType) {
			return adapter
		}
	}
	return r.fallback
}

// ByType looks an adapter up by catalog file type (HTML, WORD, TEXT).
func (r *Registry) ByType(fileType string) (Adapter, bool) {
	name := strings.ToLower(strings.TrimSpace(fileType))
	for _, adapter := range r.adapters {
		if adapter.Name() == name {
			return adapter, true
		}
	}
	return nil, false
}

// ext returns the lower-cased extension of a path or URL, without query.
func ext(source string) string {
	if i := strings.IndexAny(source, "?#"); i >= 0 {
		source = source[:i]
	}
	return strings.ToLower(path.Ext(source))
}

// build applies the shared title/description split to cleaned lines.
func build(title, description string, lines []string) (*model.Extraction, error) {
	title = strings.TrimSpace(title)
	if title == "" && description == "" && len(lines) == 0 {
		return nil, ErrNoContent
	}
	if lines == nil {
		lines = []string{}
	}
	return &model.Extraction{Title: title, Description: description, Lines: lines}, nil
}
