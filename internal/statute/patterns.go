package statute

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/lawparse/internal/model"
)

// Kind classifies a normalized line.
type Kind int

const (
	KindPlain Kind = iota
	KindBlank
	KindPart
	KindSubPart
	KindChapter
	KindSection
	KindArticle
	kindCount
)

// classifyOrder is the priority in which division patterns are tried.
var classifyOrder = []Kind{KindChapter, KindSection, KindArticle, KindPart, KindSubPart}

var kindNames = map[Kind]string{
	KindPlain:   "plain",
	KindBlank:   "blank",
	KindPart:    "part",
	KindSubPart: "subpart",
	KindChapter: "chapter",
	KindSection: "section",
	KindArticle: "article",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsDivision reports whether k is a structural marker kind.
func (k Kind) IsDivision() bool {
	return k >= KindPart && k < kindCount
}

func (k Kind) opensBody() bool {
	return k == KindChapter || k == KindSection || k == KindArticle
}

// ParseKind maps a configured kind name back to its Kind.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == strings.ToLower(strings.TrimSpace(name)) && k.IsDivision() {
			return k, nil
		}
	}
	return KindPlain, fmt.Errorf("unknown division kind %q", name)
}

// whitespace matched inside and around markers, including the full-width
// space, NBSP, vertical tab, form feed and BOM.
const wsClass = `[\s\x{3000}\x{00A0}\x{000B}\x{000C}\x{FEFF}]*`

// Patterns is a compiled, read-only marker convention. It is safe for
// concurrent use.
type Patterns struct {
	// division[k] matches a heading of kind k. Groups: 1 marker token,
	// 2 leading ordinal, 3 remaining text.
	division [kindCount]*regexp.Regexp
	indents  []Kind

	contents     *regexp.Regexp
	announcement *regexp.Regexp
	window       int
	resumption   *regexp.Regexp

	preface      *regexp.Regexp
	prefaceTitle string

	clause        *regexp.Regexp
	clauseLine    *regexp.Regexp
	clauseLead    *regexp.Regexp
	descOpen      *regexp.Regexp
	effectiveFrom string
	effective     string

	qualifiers  string
	statePrefix string
}

// Compile builds Patterns from configuration.
func Compile(cfg model.Patterns) (*Patterns, error) {
	if cfg.Ordinal == "" {
		return nil, fmt.Errorf("patterns: ordinal class is required")
	}
	p := &Patterns{
		window:        cfg.AnnouncementWindow,
		prefaceTitle:  cfg.PrefaceTitle,
		effectiveFrom: cfg.EffectiveFrom,
		effective:     cfg.Effective,
		qualifiers:    cfg.TitleQualifiers,
		statePrefix:   cfg.StatePrefix,
	}

	run := "(?:" + cfg.Ordinal + ")+"
	sub := ""
	if cfg.SubOrdinal != "" {
		if strings.Count(cfg.SubOrdinal, "{N}") != 1 {
			return nil, fmt.Errorf("patterns: sub_ordinal must contain {N} once")
		}
		sub = "(?:" + expand(cfg.SubOrdinal, run) + ")*"
	}

	templates := map[Kind]string{
		KindPart:    cfg.Divisions.Part,
		KindSubPart: cfg.Divisions.SubPart,
		KindChapter: cfg.Divisions.Chapter,
		KindSection: cfg.Divisions.Section,
		KindArticle: cfg.Divisions.Article,
	}
	for kind, tpl := range templates {
		if tpl == "" {
			continue
		}
		if strings.Count(tpl, "{N}") != 1 {
			return nil, fmt.Errorf("patterns: %s template must contain {N} once", kind)
		}
		expr := "^" + wsClass + "(" + expand(tpl, "("+run+")") + sub + ")" + wsClass + "(.*)$"
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("patterns: %s: %w", kind, err)
		}
		p.division[kind] = re
	}
	if p.division[KindArticle] == nil {
		return nil, fmt.Errorf("patterns: article template is required")
	}

	for _, name := range cfg.Indents {
		kind, err := ParseKind(name)
		if err != nil {
			return nil, fmt.Errorf("patterns: indents: %w", err)
		}
		if p.division[kind] != nil {
			p.indents = append(p.indents, kind)
		}
	}

	var err error
	if p.contents, err = compileOptional(cfg.ContentsHeading); err != nil {
		return nil, fmt.Errorf("patterns: contents_heading: %w", err)
	}
	if p.announcement, err = compileOptional(cfg.Announcement); err != nil {
		return nil, fmt.Errorf("patterns: announcement: %w", err)
	}
	if p.resumption, err = compileOptional(cfg.Resumption); err != nil {
		return nil, fmt.Errorf("patterns: resumption: %w", err)
	}
	if p.preface, err = compileOptional(cfg.Preface); err != nil {
		return nil, fmt.Errorf("patterns: preface: %w", err)
	}

	if cfg.ClauseDate != "" && len(cfg.ClauseVerbs) > 0 {
		verbs := quoteAll(cfg.ClauseVerbs)
		ends := quoteAll(append(append([]string{}, cfg.ClauseVerbs...), cfg.ClauseTerminators...))
		if p.clause, err = regexp.Compile("(" + cfg.ClauseDate + ".*?(?:" + ends + "))"); err != nil {
			return nil, fmt.Errorf("patterns: clause: %w", err)
		}
		if p.clauseLine, err = regexp.Compile(cfg.ClauseDate + ".*(?:" + verbs + ")"); err != nil {
			return nil, fmt.Errorf("patterns: clause: %w", err)
		}
		if p.clauseLead, err = regexp.Compile("^(" + cfg.ClauseDate + ")"); err != nil {
			return nil, fmt.Errorf("patterns: clause: %w", err)
		}
		if cfg.TitleQualifiers != "" {
			open := "^[" + regexp.QuoteMeta(cfg.TitleQualifiers) + "]" + cfg.ClauseDate
			if p.descOpen, err = regexp.Compile(open); err != nil {
				return nil, fmt.Errorf("patterns: clause: %w", err)
			}
		}
	}

	return p, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(cfg model.Patterns) *Patterns {
	p, err := Compile(cfg)
	if err != nil {
		panic(err)
	}
	return p
}

// Default returns the compiled default convention.
func Default() *Patterns {
	return MustCompile(model.DefaultPatterns())
}

func expand(tpl, run string) string {
	return strings.NewReplacer("{N}", run, "{ws}", wsClass).Replace(tpl)
}

func compileOptional(expr string) (*regexp.Regexp, error) {
	if expr == "" {
		return nil, nil
	}
	return regexp.Compile(expr)
}

func quoteAll(words []string) string {
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		if w != "" {
			quoted = append(quoted, regexp.QuoteMeta(w))
		}
	}
	return strings.Join(quoted, "|")
}

// marker is a matched division heading.
type marker struct {
	kind    Kind
	token   string // heading token, e.g. "第十条之一"
	ordinal string // leading ordinal run, e.g. "十"
	rest    string // text after the token
}

// matchDivision tries the division patterns in priority order.
func (p *Patterns) matchDivision(line string) (marker, bool) {
	for _, kind := range classifyOrder {
		re := p.division[kind]
		if re == nil {
			continue
		}
		if m := re.FindStringSubmatch(line); m != nil {
			return marker{
				kind:    kind,
				token:   strings.TrimSpace(m[1]),
				ordinal: m[2],
				rest:    strings.TrimSpace(m[3]),
			}, true
		}
	}
	return marker{}, false
}

// Classify returns the kind of a normalized line.
func (p *Patterns) Classify(line string) Kind {
	if strings.TrimSpace(line) == "" {
		return KindBlank
	}
	if m, ok := p.matchDivision(line); ok {
		return m.kind
	}
	return KindPlain
}

// IsMarker reports whether line opens any division.
func (p *Patterns) IsMarker(line string) bool {
	return p.Classify(line).IsDivision()
}

// IsContentsHeading reports whether line introduces a table of contents.
func (p *Patterns) IsContentsHeading(line string) bool {
	return p.contents != nil && p.contents.MatchString(line)
}

// HasClause reports whether line carries a dated enactment clause.
func (p *Patterns) HasClause(line string) bool {
	return p.clauseLine != nil && p.clauseLine.MatchString(line)
}

// StartsWithDate reports whether line opens with a clause date.
func (p *Patterns) StartsWithDate(line string) bool {
	return p.clauseLead != nil && p.clauseLead.MatchString(line)
}

// OpensDescription reports whether line starts a bracketed enactment note
// such as "（2020年5月28日第十三届全国人民代表大会第三次会议通过".
func (p *Patterns) OpensDescription(line string) bool {
	return p.descOpen != nil && p.descOpen.MatchString(line)
}

// StripStatePrefix removes the issuing-state prefix from a title.
func (p *Patterns) StripStatePrefix(title string) string {
	title = strings.TrimSpace(title)
	if p.statePrefix == "" {
		return title
	}
	return strings.TrimPrefix(title, p.statePrefix)
}

// HasStatePrefix reports whether line opens with the issuing-state prefix.
func (p *Patterns) HasStatePrefix(line string) bool {
	return p.statePrefix != "" && strings.HasPrefix(line, p.statePrefix)
}
