package statute

import (
	"strings"

	"github.com/ppiankov/lawparse/internal/model"
)

// line is a body line classified once before assembly.
type line struct {
	kind  Kind
	text  string // stripped line
	token string // marker token for division lines
	rest  string // text after the marker token
}

func (p *Patterns) classify(raw string) line {
	text := strings.TrimSpace(raw)
	if text == "" {
		return line{kind: KindBlank}
	}
	if m, ok := p.matchDivision(text); ok {
		return line{kind: m.kind, text: text, token: m.token, rest: m.rest}
	}
	return line{kind: KindPlain, text: text}
}

// assembly is the state threaded through step. At most one chapter and one
// section are open; articles belong to the open section.
type assembly struct {
	structure []model.Chapter
	chapter   *model.Chapter
	section   *model.Section
	articles  []model.Article
	pending   []string // part and sub-part headings awaiting the next chapter
}

// Assemble builds the chapter/section/article tree from body lines. Sections
// and articles that appear without an enclosing level get empty-titled
// containers, so every article ends up under exactly one section and one
// chapter. Part headings left over at the end become a chapter of their own.
func (p *Patterns) Assemble(lines []string) []model.Chapter {
	var st assembly
	for _, raw := range lines {
		st = step(st, p.classify(raw))
	}
	return finish(st)
}

func step(st assembly, ln line) assembly {
	switch ln.kind {
	case KindPart, KindSubPart:
		st.pending = append(st.pending, ln.text)

	case KindChapter:
		st = closeSection(st)
		st = closeChapter(st)
		st = openChapter(st, ln.text)

	case KindSection:
		if st.chapter == nil {
			st = openChapter(st, "")
		}
		st = closeSection(st)
		st.section = &model.Section{Title: ln.text}
		st.articles = nil

	case KindArticle:
		if st.chapter == nil {
			st = openChapter(st, "")
		}
		if st.section == nil {
			st.section = &model.Section{}
		}
		st.articles = append(st.articles, model.Article{Title: ln.token, Context: ln.rest})

	case KindPlain:
		if n := len(st.articles); n > 0 {
			st.articles[n-1].Context += ln.text
		}
	}
	return st
}

// openChapter starts a chapter, folding any pending part headings into its
// title.
func openChapter(st assembly, title string) assembly {
	if len(st.pending) > 0 {
		parts := append(st.pending, title)
		title = strings.TrimSpace(strings.Join(parts, " "))
		st.pending = nil
	}
	st.chapter = &model.Chapter{Title: title, Sections: []model.Section{}}
	return st
}

func closeSection(st assembly) assembly {
	if st.section == nil {
		return st
	}
	sec := *st.section
	sec.Articles = st.articles
	if sec.Articles == nil {
		sec.Articles = []model.Article{}
	}
	st.chapter.Sections = append(st.chapter.Sections, sec)
	st.section = nil
	st.articles = nil
	return st
}

func closeChapter(st assembly) assembly {
	if st.chapter == nil {
		return st
	}
	st.structure = append(st.structure, *st.chapter)
	st.chapter = nil
	return st
}

func finish(st assembly) []model.Chapter {
	switch {
	case st.section != nil:
		st = closeSection(st)
	case len(st.articles) > 0:
		if st.chapter == nil {
			st = openChapter(st, "")
		}
		st.chapter.Sections = append(st.chapter.Sections, model.Section{Articles: st.articles})
		st.articles = nil
	}
	st = closeChapter(st)
	if len(st.pending) > 0 {
		st = openChapter(st, "")
		st = closeChapter(st)
	}
	if st.structure == nil {
		return []model.Chapter{}
	}
	return st.structure
}
