package statute

import "strings"

// Preamble is everything before the first division marker.
type Preamble struct {
	Header     []string // dated clauses found inline
	IntroTitle *string  // set when a preface heading is present
	IntroText  string
	BodyStart  int // index of the first body line; len(lines) when there is none
}

// ExtractPreamble walks lines until the first division marker. Title echoes
// and blank lines are skipped, dated clauses go to the header, a preface
// heading sets the intro title, and anything else is intro text.
func (p *Patterns) ExtractPreamble(title string, lines []string) Preamble {
	echo := p.CleanTitle(title)
	pre := Preamble{Header: []string{}, BodyStart: len(lines)}

	// Part headings only open the body when a chapter, section or article
	// follows; otherwise they are intro text.
	hasBody := false
	for _, line := range lines {
		if p.Classify(line).opensBody() {
			hasBody = true
			break
		}
	}

	var intro []string
	for i, line := range lines {
		if kind := p.Classify(line); kind.opensBody() || (hasBody && kind.IsDivision()) {
			pre.BodyStart = i
			break
		}
		stripped := strings.TrimSpace(line)
		switch {
		case stripped == "" || stripped == echo:
		case p.HasClause(line):
			pre.Header = append(pre.Header, stripped)
		case p.preface != nil && p.preface.MatchString(stripped):
			t := p.prefaceTitle
			if t == "" {
				t = stripped
			}
			pre.IntroTitle = &t
		default:
			intro = append(intro, stripped)
		}
	}

	pre.IntroText = strings.TrimSpace(strings.Join(intro, "\n"))
	return pre
}

// CleanTitle drops a trailing parenthetical qualifier from a title, e.g.
// "中华人民共和国宪法（2018年修正）" becomes "中华人民共和国宪法".
func (p *Patterns) CleanTitle(title string) string {
	title = strings.TrimSpace(title)
	if p.qualifiers == "" {
		return title
	}
	if idx := strings.IndexAny(title, p.qualifiers); idx > 0 {
		return strings.TrimSpace(title[:idx])
	}
	return title
}
