package model

// Record is the structured form of one statute as produced by the parser.
// Field names follow the documents already held in the law store.
type Record struct {
	ID          string    `json:"_id" yaml:"_id"`
	Title       string    `json:"title" yaml:"title"`
	Office      string    `json:"office" yaml:"office"`
	PublishDate string    `json:"publish_date" yaml:"publish_date"`
	ExpiredDate *string   `json:"expired_date" yaml:"expired_date"` // nil while the statute is in force
	Status      string    `json:"status" yaml:"status"`
	Level       string    `json:"level" yaml:"level"`
	Header      []string  `json:"header" yaml:"header"`         // enactment/amendment clauses
	Intro       *string   `json:"intro" yaml:"intro"`           // set only when a preface heading exists
	IntroText   string    `json:"intro_text" yaml:"intro_text"` // free text before the first division
	Structure   []Chapter `json:"structure" yaml:"structure"`

	// Markers lists the division kinds seen in the body, in first-seen order.
	Markers []string `json:"markers,omitempty" yaml:"markers,omitempty"`
}

// Chapter is the top level of the structure tree. Part and sub-part headings
// are folded into Title.
type Chapter struct {
	Title    string    `json:"chapter_title" yaml:"chapter_title"`
	Sections []Section `json:"sections" yaml:"sections"`
}

// Section groups articles inside a chapter. Title is empty for a synthetic
// section.
type Section struct {
	Title    string    `json:"section_title" yaml:"section_title"`
	Articles []Article `json:"articles" yaml:"articles"`
}

// Article is a single numbered provision.
type Article struct {
	Title   string `json:"article_title" yaml:"article_title"`     // marker token, e.g. "第十二条"
	Context string `json:"article_context" yaml:"article_context"` // body text
}

// ArticleCount returns the number of articles across the whole tree.
func (r *Record) ArticleCount() int {
	n := 0
	for _, ch := range r.Structure {
		for _, sec := range ch.Sections {
			n += len(sec.Articles)
		}
	}
	return n
}

// Metadata carries the catalog fields of a statute. None of them are required
// by the parser.
type Metadata struct {
	ID      string `json:"id" yaml:"id"`
	Office  string `json:"office" yaml:"office"`
	Level   string `json:"level" yaml:"level"`
	Status  string `json:"status" yaml:"status"`
	Publish string `json:"publish" yaml:"publish"`
	Expiry  string `json:"expiry" yaml:"expiry"`
}

// Extraction is what a source adapter hands to the parser: a title, the raw
// description blob and the content lines in document order.
type Extraction struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Lines       []string `json:"lines"`
}
