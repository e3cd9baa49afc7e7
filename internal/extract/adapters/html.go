package adapters

import (
	"bytes"
	"fmt"
	stdhtml "html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"github.com/ppiankov/lawparse/internal/model"
	"github.com/ppiankov/lawparse/internal/statute"
)

// ContentClass is the class of the element wrapping statute paragraphs on
// the national law database pages.
const ContentClass = "law-content"

// HTMLAdapter extracts statutes from published HTML pages.
type HTMLAdapter struct {
	patterns *statute.Patterns
	strict   *bluemonday.Policy
}

// NewHTMLAdapter creates a new HTML adapter
func NewHTMLAdapter(p *statute.Patterns) *HTMLAdapter {
	return &HTMLAdapter{patterns: p, strict: bluemonday.StrictPolicy()}
}

// Name returns the adapter name
func (a *HTMLAdapter) Name() string {
	return "html"
}

// CanHandle matches HTML content types, .html/.htm files and web URLs
func (a *HTMLAdapter) CanHandle(source string, contentType string) bool {
	if strings.Contains(strings.ToLower(contentType), "html") {
		return true
	}
	switch ext(source) {
	case ".html", ".htm":
		return true
	case ".docx", ".txt":
		return false
	}
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Extract reads the page title and the paragraphs of the content container.
// Paragraphs that merely echo the title are dropped; the first remaining
// paragraph is the description.
func (a *HTMLAdapter) Extract(data []byte) (*model.Extraction, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	title := ""
	if n := findFirst(doc, isElement("title")); n != nil {
		title = strings.TrimSpace(a.text(n))
	}

	container := findFirst(doc, func(n *html.Node) bool {
		return isElement("div")(n) && hasClass(n, ContentClass)
	})
	if container == nil {
		container = findFirst(doc, isElement("body"))
	}
	if container == nil {
		return nil, ErrNoContent
	}

	var lines []string
	for _, p := range findAll(container, isElement("p")) {
		line := strings.TrimSpace(strings.ReplaceAll(a.text(p), "\u00a0", " "))
		if line == "" {
			continue
		}
		if strings.HasPrefix(title, line) || strings.HasSuffix(title, line) {
			continue
		}
		lines = append(lines, line)
	}

	if title == "" && len(lines) > 0 && a.patterns.HasStatePrefix(lines[0]) {
		title, lines = lines[0], lines[1:]
	}
	if len(lines) == 0 {
		return nil, ErrNoContent
	}
	return build(title, lines[0], lines[1:])
}

// text renders the node's inner markup and strips every tag with the strict
// policy, so inline formatting, scripts and styles leave only their text.
func (a *HTMLAdapter) text(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return ""
		}
	}
	return stdhtml.UnescapeString(a.strict.Sanitize(buf.String()))
}

func isElement(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == tag
	}
}

// hasClass checks if a node has a specific CSS class
func hasClass(n *html.Node, className string) bool {
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, class := range strings.Fields(attr.Val) {
			if class == className {
				return true
			}
		}
	}
	return false
}

// findAll finds all nodes matching a predicate, in document order
func findAll(n *html.Node, predicate func(*html.Node) bool) []*html.Node {
	var results []*html.Node

	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if predicate(node) {
			results = append(results, node)
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return results
}

// findFirst finds the first node matching a predicate
func findFirst(n *html.Node, predicate func(*html.Node) bool) *html.Node {
	if predicate(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, predicate); found != nil {
			return found
		}
	}
	return nil
}
