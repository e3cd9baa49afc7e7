package statute

import "strings"

// Normalize collapses whitespace, drops table-of-contents and announcement
// spans, and puts exactly one space after every leading division marker.
// Lines are never reordered.
func (p *Patterns) Normalize(raw []string) []string {
	lines := make([]string, len(raw))
	for i, line := range raw {
		lines[i] = CollapseSpace(line)
	}

	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); {
		line := lines[i]
		if p.IsContentsHeading(line) {
			i = p.contentsEnd(lines, i)
			continue
		}
		if p.announcement != nil && i < p.window && p.announcement.MatchString(line) {
			i = p.announcementEnd(lines, i)
			continue
		}
		out = append(out, p.spaceMarker(line))
		i++
	}
	return out
}

// CollapseSpace turns every run of whitespace (full-width and no-break
// spaces included) into one ordinary space and trims the ends.
func CollapseSpace(line string) string {
	line = strings.ReplaceAll(line, "\ufeff", "")
	return strings.Join(strings.Fields(line), " ")
}

// contentsEnd returns the index of the first body line after the table of
// contents that starts at lines[start]. The line right after the heading is
// the reference entry; the contents end when the reference reappears or,
// failing an exact repeat, when a heading of the reference's kind and ordinal
// shows up. Without a recognizable reference any marker ends the contents.
func (p *Patterns) contentsEnd(lines []string, start int) int {
	ref := start + 1
	for ref < len(lines) && lines[ref] == "" {
		ref++
	}
	if ref >= len(lines) {
		return len(lines)
	}
	reference := lines[ref]
	strict, hasStrict := p.strictReference(reference)

	for j := ref + 1; j < len(lines); j++ {
		line := lines[j]
		if line == reference {
			return j
		}
		if hasStrict {
			if strict.matches(p, line) {
				return j
			}
			continue
		}
		if p.IsMarker(line) {
			return j
		}
	}
	return len(lines)
}

// announcementEnd returns the index of the resumption line following an
// announcement page, or len(lines) if none follows.
func (p *Patterns) announcementEnd(lines []string, start int) int {
	if p.resumption == nil {
		return len(lines)
	}
	for j := start + 1; j < len(lines); j++ {
		if p.resumption.MatchString(lines[j]) {
			return j
		}
	}
	return len(lines)
}

// strictMarker pins a contents reference to one kind and ordinal.
type strictMarker struct {
	kind    Kind
	ordinal string
}

func (s strictMarker) matches(p *Patterns, line string) bool {
	m := p.division[s.kind].FindStringSubmatch(line)
	return m != nil && m[2] == s.ordinal
}

func (p *Patterns) strictReference(reference string) (strictMarker, bool) {
	for _, kind := range p.indents {
		if m := p.division[kind].FindStringSubmatch(reference); m != nil {
			return strictMarker{kind: kind, ordinal: m[2]}, true
		}
	}
	return strictMarker{}, false
}

// spaceMarker rewrites "第三条内容" as "第三条 内容". A bare marker is left
// without a trailing space.
func (p *Patterns) spaceMarker(line string) string {
	m, ok := p.matchDivision(line)
	if !ok {
		return line
	}
	if m.rest == "" {
		return m.token
	}
	return m.token + " " + m.rest
}
