package adapters

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/ppiankov/lawparse/internal/model"
	"github.com/ppiankov/lawparse/internal/statute"
)

// TextAdapter extracts statutes from plain text files, one paragraph per
// line. Files that are not valid UTF-8 are decoded as GB18030.
type TextAdapter struct {
	patterns *statute.Patterns
}

// NewTextAdapter creates a new text adapter
func NewTextAdapter(p *statute.Patterns) *TextAdapter {
	return &TextAdapter{patterns: p}
}

// Name returns the adapter name
func (a *TextAdapter) Name() string {
	return "text"
}

// CanHandle matches .txt files and text/plain
func (a *TextAdapter) CanHandle(source string, contentType string) bool {
	return strings.HasPrefix(contentType, "text/plain") || ext(source) == ".txt"
}

// Extract takes the first non-blank line as the title. The second line is the
// description when it carries a dated enactment note; all other lines are
// content.
func (a *TextAdapter) Extract(data []byte) (*model.Extraction, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		decoded, err := simplifiedchinese.GB18030.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("decode gb18030: %w", err)
		}
		data = decoded
	}

	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return nil, ErrNoContent
	}

	title, lines := lines[0], lines[1:]
	description := ""
	if len(lines) > 0 && !a.patterns.IsMarker(lines[0]) &&
		(a.patterns.OpensDescription(lines[0]) || a.patterns.HasClause(lines[0])) {
		description, lines = lines[0], lines[1:]
	}
	return build(title, description, lines)
}
