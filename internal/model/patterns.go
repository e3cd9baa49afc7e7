package model

// Patterns is the marker convention the parser is driven by. Every field is a
// regular expression fragment unless noted otherwise; division templates use
// {N} for a run of ordinal characters and {ws} for optional whitespace.
type Patterns struct {
	// Ordinal is a character class matching one ordinal character.
	Ordinal string `yaml:"ordinal" mapstructure:"ordinal"`

	Divisions Divisions `yaml:"divisions" mapstructure:"divisions"`

	// SubOrdinal is an optional compound suffix template such as "之{N}".
	SubOrdinal string `yaml:"sub_ordinal" mapstructure:"sub_ordinal"`

	// Indents names the division kinds whose headings may serve as a table of
	// contents reference and are reported in the marker inventory.
	Indents []string `yaml:"indents" mapstructure:"indents"`

	ContentsHeading    string `yaml:"contents_heading" mapstructure:"contents_heading"`
	Announcement       string `yaml:"announcement" mapstructure:"announcement"`
	AnnouncementWindow int    `yaml:"announcement_window" mapstructure:"announcement_window"`
	Resumption         string `yaml:"resumption" mapstructure:"resumption"`

	Preface      string `yaml:"preface" mapstructure:"preface"`
	PrefaceTitle string `yaml:"preface_title" mapstructure:"preface_title"` // literal

	ClauseDate        string   `yaml:"clause_date" mapstructure:"clause_date"`
	ClauseVerbs       []string `yaml:"clause_verbs" mapstructure:"clause_verbs"`             // literals
	ClauseTerminators []string `yaml:"clause_terminators" mapstructure:"clause_terminators"` // literals
	EffectiveFrom     string   `yaml:"effective_from" mapstructure:"effective_from"`         // literal
	Effective         string   `yaml:"effective" mapstructure:"effective"`                   // literal

	// TitleQualifiers are the characters opening a trailing parenthetical
	// in a statute title. Literal.
	TitleQualifiers string `yaml:"title_qualifiers" mapstructure:"title_qualifiers"`

	// StatePrefix is the issuing-state prefix stripped from titles when
	// naming outputs and matching bypass rules. Literal.
	StatePrefix string `yaml:"state_prefix" mapstructure:"state_prefix"`
}

// Divisions holds one heading template per division kind. An empty template
// disables the kind.
type Divisions struct {
	Part    string `yaml:"part" mapstructure:"part"`
	SubPart string `yaml:"subpart" mapstructure:"subpart"`
	Chapter string `yaml:"chapter" mapstructure:"chapter"`
	Section string `yaml:"section" mapstructure:"section"`
	Article string `yaml:"article" mapstructure:"article"`
}

// DefaultPatterns returns the conventions of PRC statutes:
// 第一编 / 第一分编 / 第一章 / 第一节 / 第一条.
func DefaultPatterns() Patterns {
	return Patterns{
		Ordinal: `[一二三四五六七八九十百千万零〇两\d]`,
		Divisions: Divisions{
			Part:    `第{ws}{N}{ws}编`,
			SubPart: `第{ws}{N}{ws}分编`,
			Chapter: `第{ws}{N}{ws}章`,
			Section: `第{ws}{N}{ws}节`,
			Article: `第{ws}{N}{ws}条`,
		},
		SubOrdinal:         `之{N}`,
		Indents:            []string{"part", "subpart", "chapter", "section", "article"},
		ContentsHeading:    `^目\s*录\s*$`,
		Announcement:       `^公\s*告`,
		AnnouncementWindow: 40,
		Resumption:         `^法释`,
		Preface:            `^序\s*言$`,
		PrefaceTitle:       "序\u3000言",
		ClauseDate:         `\d{4}年\d{1,2}月\d{1,2}日`,
		ClauseVerbs:        []string{"根据", "通过", "公布", "施行"},
		ClauseTerminators:  []string{"）", "\u3000"},
		EffectiveFrom:      "起施行",
		Effective:          "施行",
		TitleQualifiers:    "（(",
		StatePrefix:        "中华人民共和国",
	}
}
