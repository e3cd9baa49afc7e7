package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/lawparse/internal/model"
	"github.com/ppiankov/lawparse/internal/statute"
)

// Renderer writes records as JSON and Markdown files
type Renderer struct {
	cfg      model.OutputConfig
	patterns *statute.Patterns
}

// NewRenderer creates a new renderer
func NewRenderer(cfg model.OutputConfig, p *statute.Patterns) *Renderer {
	if p == nil {
		p = statute.Default()
	}
	return &Renderer{cfg: cfg, patterns: p}
}

var filenameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
)

// sanitizeFilename makes a title safe to use as one path element
func sanitizeFilename(s string) string {
	s = strings.TrimSpace(filenameReplacer.Replace(s))
	if s == "" || s == "." || s == ".." {
		return "untitled"
	}
	return s
}

// OutputPath returns the Markdown path of a record relative to the output
// directory: <level>/<category>/<title>(<publish>).md, with the state prefix
// dropped from the title. Empty levels and categories are left out.
func (r *Renderer) OutputPath(rec *model.Record, category string) string {
	name := sanitizeFilename(r.patterns.StripStatePrefix(rec.Title))
	if rec.PublishDate != "" {
		name += "(" + sanitizeFilename(rec.PublishDate) + ")"
	}

	var parts []string
	if level := strings.TrimSpace(rec.Level); level != "" {
		parts = append(parts, sanitizeFilename(level))
	}
	if category = strings.TrimSpace(category); category != "" {
		parts = append(parts, sanitizeFilename(category))
	}
	parts = append(parts, name+".md")
	return filepath.Join(parts...)
}

// Write renders the record into the configured output directory and returns
// the paths written.
func (r *Renderer) Write(rec *model.Record, category string) ([]string, error) {
	mdPath := filepath.Join(r.cfg.Dir, r.OutputPath(rec, category))

	var written []string
	if r.cfg.JSON {
		jsonPath := strings.TrimSuffix(mdPath, ".md") + ".json"
		if err := r.RenderJSON(rec, jsonPath); err != nil {
			return written, fmt.Errorf("render JSON: %w", err)
		}
		written = append(written, jsonPath)
	}
	if r.cfg.Markdown {
		if err := r.RenderMarkdown(rec, mdPath); err != nil {
			return written, fmt.Errorf("render markdown: %w", err)
		}
		written = append(written, mdPath)
	}
	return written, nil
}

// EncodeJSON returns the indented JSON form of a record, leaving CJK text
// and table markup unescaped.
func EncodeJSON(rec *model.Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderJSON writes the record as JSON to path
func (r *Renderer) RenderJSON(rec *model.Record, path string) error {
	data, err := EncodeJSON(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	return writeFile(path, data)
}

// RenderMarkdown writes the record as Markdown to path
func (r *Renderer) RenderMarkdown(rec *model.Record, path string) error {
	return writeFile(path, []byte(r.Markdown(rec)))
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Markdown renders a record. Chapters are level-two headings and sections
// level three; a statute without chapter markers moves its sections up to
// level two.
func (r *Renderer) Markdown(rec *model.Record) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", rec.Title)

	if len(rec.Header) > 0 {
		fmt.Fprintf(&sb, "> %s\n\n", strings.Join(rec.Header, "\n>\n> "))
	}

	if rec.Intro != nil {
		fmt.Fprintf(&sb, "## %s\n\n", *rec.Intro)
	}
	if rec.IntroText != "" {
		sb.WriteString(rec.IntroText)
		sb.WriteString("\n\n")
	}

	sectionDepth := 3
	if !hasChapters(rec) {
		sectionDepth = 2
	}

	for _, ch := range rec.Structure {
		if ch.Title != "" {
			fmt.Fprintf(&sb, "## %s\n\n", ch.Title)
		}
		for _, sec := range ch.Sections {
			if sec.Title != "" {
				fmt.Fprintf(&sb, "%s %s\n\n", strings.Repeat("#", sectionDepth), sec.Title)
			}
			for _, art := range sec.Articles {
				fmt.Fprintf(&sb, "**%s**", art.Title)
				if art.Context != "" {
					sb.WriteString(" ")
					sb.WriteString(art.Context)
				}
				sb.WriteString("\n\n")
			}
		}
	}

	return strings.TrimRight(sb.String(), "\n") + "\n"
}

// hasChapters reports whether the record uses chapter-level headings. The
// marker inventory decides when present; records loaded without one fall
// back to looking for titled chapters.
func hasChapters(rec *model.Record) bool {
	if len(rec.Markers) > 0 {
		for _, m := range rec.Markers {
			switch m {
			case statute.KindChapter.String(), statute.KindPart.String(), statute.KindSubPart.String():
				return true
			}
		}
		return false
	}
	for _, ch := range rec.Structure {
		if ch.Title != "" {
			return true
		}
	}
	return false
}
