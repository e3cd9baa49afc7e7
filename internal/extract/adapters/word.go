package adapters

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/ppiankov/lawparse/internal/model"
	"github.com/ppiankov/lawparse/internal/statute"
)

// Table markers bracket tables rendered as markdown rows in the line
// sequence.
const (
	TableStart = "<!-- TABLE -->"
	TableEnd   = "<!-- TABLE END -->"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

var ideographicRun = regexp.MustCompile("\u3000+")

// WordAdapter extracts statutes from .docx files.
type WordAdapter struct {
	patterns *statute.Patterns
}

// NewWordAdapter creates a new Word adapter
func NewWordAdapter(p *statute.Patterns) *WordAdapter {
	return &WordAdapter{patterns: p}
}

// Name returns the adapter name
func (a *WordAdapter) Name() string {
	return "word"
}

// CanHandle matches .docx files and the WordprocessingML content type
func (a *WordAdapter) CanHandle(source string, contentType string) bool {
	return strings.HasPrefix(contentType, docxContentType) || ext(source) == ".docx"
}

// Extract walks the document body in order. The first paragraph is the
// title. A bracketed enactment note starting with a date is gathered into the
// description until its closing bracket, a contents heading or a division
// heading; everything else is content. Tables become markdown rows between
// TableStart and TableEnd.
func (a *WordAdapter) Extract(data []byte) (*model.Extraction, error) {
	blocks, err := readDocx(data)
	if err != nil {
		return nil, err
	}

	var (
		title   string
		desc    strings.Builder
		lines   []string
		inDesc  bool
		started bool
	)
	for _, b := range blocks {
		if b.table != nil {
			lines = append(lines, renderTable(b.table)...)
			continue
		}

		line := ideographicRun.ReplaceAllString(strings.TrimSpace(b.text), "\u3000")
		if !started {
			if line == "" {
				continue
			}
			title, started = line, true
			continue
		}

		if a.patterns.OpensDescription(line) {
			inDesc = true
		}
		if inDesc && (a.patterns.IsContentsHeading(statute.CollapseSpace(line)) || a.patterns.IsMarker(line)) {
			inDesc = false
		}
		if !inDesc {
			lines = append(lines, line)
			continue
		}

		desc.WriteString(line)
		if strings.HasSuffix(line, "）") || strings.HasSuffix(line, ")") {
			inDesc = false
		}
	}

	if !started {
		return nil, ErrNoContent
	}
	return build(title, desc.String(), lines)
}

// block is one body-level element: a paragraph or a table.
type block struct {
	text  string
	table [][]string
}

// readDocx reads word/document.xml from the archive and returns its
// paragraphs and tables in document order.
func readDocx(data []byte) ([]block, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}

	var docFile *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return nil, fmt.Errorf("word/document.xml not found in archive")
	}

	rc, err := docFile.Open()
	if err != nil {
		return nil, fmt.Errorf("open document.xml: %w", err)
	}
	defer func() { _ = rc.Close() }()

	return decodeBody(rc)
}

func decodeBody(r io.Reader) ([]block, error) {
	decoder := xml.NewDecoder(r)

	var (
		blocks     []block
		para       strings.Builder
		inPara     bool
		inText     bool
		tableDepth int
		table      [][]string
		row        []string
		cell       []string
	)

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tableDepth++
				if tableDepth == 1 {
					table = nil
				}
			case "tr":
				if tableDepth == 1 {
					row = nil
				}
			case "tc":
				if tableDepth == 1 {
					cell = nil
				}
			case "p":
				inPara = true
				para.Reset()
			case "t":
				inText = inPara
			case "tab":
				if inPara {
					para.WriteString("\t")
				}
			case "br":
				if inPara {
					para.WriteString("\n")
				}
			}

		case xml.CharData:
			if inText {
				para.Write(t)
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				inPara = false
				text := para.String()
				if tableDepth > 0 {
					cell = append(cell, strings.TrimSpace(text))
				} else {
					for _, part := range strings.Split(text, "\n") {
						blocks = append(blocks, block{text: part})
					}
				}
			case "tc":
				if tableDepth == 1 {
					row = append(row, strings.TrimSpace(strings.Join(cell, "\n")))
				}
			case "tr":
				if tableDepth == 1 {
					table = append(table, row)
				}
			case "tbl":
				tableDepth--
				if tableDepth == 0 && len(table) > 0 {
					blocks = append(blocks, block{table: table})
				}
			}
		}
	}
	return blocks, nil
}

// renderTable writes rows as a markdown table with the first row as header.
func renderTable(rows [][]string) []string {
	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	if width == 0 {
		return nil
	}

	out := []string{TableStart, tableRow(rows[0], width), "|" + strings.Repeat(" --- |", width)}
	for _, r := range rows[1:] {
		out = append(out, tableRow(r, width))
	}
	return append(out, TableEnd)
}

func tableRow(cells []string, width int) string {
	var b strings.Builder
	b.WriteString("|")
	for i := 0; i < width; i++ {
		text := ""
		if i < len(cells) {
			text = strings.ReplaceAll(cells[i], "\n", "<br>")
			text = strings.ReplaceAll(text, "|", "\\|")
		}
		b.WriteString(" " + text + " |")
	}
	return b.String()
}
