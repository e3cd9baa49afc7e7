// Package catalog loads the list of statutes to process and the metadata
// that accompanies each one.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/lawparse/internal/model"
	"github.com/ppiankov/lawparse/internal/statute"
)

// File types, in order of preference.
const (
	TypeHTML = "HTML"
	TypeWord = "WORD"
	TypeText = "TEXT"
)

var preference = map[string]int{TypeHTML: 0, TypeWord: 1, TypeText: 2}

// File is one rendition of a statute, addressed by URL or local path.
type File struct {
	Type string `yaml:"type"`
	URL  string `yaml:"url,omitempty"`
	Path string `yaml:"path,omitempty"`
}

// Source returns the URL if set, else the path.
func (f File) Source() string {
	if f.URL != "" {
		return f.URL
	}
	return f.Path
}

// Item is one catalog entry.
type Item struct {
	ID       string `yaml:"id"`
	Title    string `yaml:"title"`
	Office   string `yaml:"office,omitempty"`
	Level    string `yaml:"level,omitempty"`
	Status   string `yaml:"status,omitempty"`
	Publish  string `yaml:"publish,omitempty"`
	Expiry   string `yaml:"expiry,omitempty"`
	Category string `yaml:"category,omitempty"`
	Files    []File `yaml:"files"`
}

// Metadata returns the record metadata carried by the item.
func (it Item) Metadata() model.Metadata {
	return model.Metadata{
		ID:      it.ID,
		Office:  it.Office,
		Level:   it.Level,
		Status:  it.Status,
		Publish: it.Publish,
		Expiry:  it.Expiry,
	}
}

// Manifest is a catalog file.
type Manifest struct {
	Items []Item `yaml:"items"`
}

// Load reads a YAML manifest from disk.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse decodes a YAML manifest. Publish timestamps are cut to their date and
// file lists are put in preference order.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	for i := range m.Items {
		it := &m.Items[i]
		if strings.TrimSpace(it.Title) == "" {
			return nil, fmt.Errorf("parse manifest: item %d has no title", i)
		}
		it.Publish = DateOnly(it.Publish)
		it.Expiry = DateOnly(it.Expiry)
		it.Files = SortFiles(it.Files)
	}
	return &m, nil
}

// DateOnly cuts "2021-06-10 00:00:00" to "2021-06-10".
func DateOnly(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i]
	}
	return s
}

// SortFiles drops files of unknown type and orders the rest HTML, WORD,
// TEXT. The input slice is not modified.
func SortFiles(files []File) []File {
	out := make([]File, 0, len(files))
	for _, f := range files {
		f.Type = strings.ToUpper(strings.TrimSpace(f.Type))
		if _, ok := preference[f.Type]; ok {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return preference[out[i].Type] < preference[out[j].Type]
	})
	return out
}

// TypeFor infers a file type from its extension.
func TypeFor(path string) (string, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return TypeHTML, true
	case ".docx":
		return TypeWord, true
	case ".txt":
		return TypeText, true
	}
	return "", false
}

// FromGlob builds items from local files matching pattern under root, e.g.
// "**/*.docx". Titles are taken from the file name and the item level from
// the first directory below root, mirroring the output layout.
func FromGlob(root, pattern string) ([]Item, error) {
	matches, err := doublestar.FilepathGlob(filepath.Join(root, pattern))
	if err != nil {
		return nil, fmt.Errorf("glob error: %w", err)
	}
	sort.Strings(matches)

	var items []Item
	for _, match := range matches {
		fileType, ok := TypeFor(match)
		if !ok {
			continue
		}
		if info, err := os.Stat(match); err != nil || info.IsDir() {
			continue
		}

		it := Item{
			Title: strings.TrimSuffix(filepath.Base(match), filepath.Ext(match)),
			Files: []File{{Type: fileType, Path: match}},
		}
		if rel, err := filepath.Rel(root, match); err == nil {
			if parts := strings.Split(filepath.ToSlash(rel), "/"); len(parts) > 1 {
				it.Level = parts[0]
			}
		}
		items = append(items, it)
	}
	return items, nil
}

// bypassSuffix matches titles of decisions, replies and official answers,
// which are not statutes.
var bypassSuffix = regexp.MustCompile(`的(决定|复函|批复|答复)$`)

// Filter decides which items a run processes.
type Filter struct {
	patterns *statute.Patterns
	only     map[string]bool
}

// NewFilter creates a filter. When only is non-empty, just those titles (with
// or without the state prefix) are processed, bypass rules notwithstanding.
func NewFilter(p *statute.Patterns, only []string) *Filter {
	if p == nil {
		p = statute.Default()
	}
	f := &Filter{patterns: p, only: make(map[string]bool, len(only))}
	for _, title := range only {
		if title = p.StripStatePrefix(title); title != "" {
			f.only[title] = true
		}
	}
	return f
}

// Skip reports whether an item should not be processed, with the reason.
func (f *Filter) Skip(it Item) (bool, string) {
	title := f.patterns.StripStatePrefix(it.Title)
	if len(f.only) > 0 {
		if f.only[title] {
			return false, ""
		}
		return true, "not selected"
	}
	if bypassSuffix.MatchString(title) {
		return true, "bypassed"
	}
	return false, ""
}
