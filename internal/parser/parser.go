// Package parser turns free-text model output into raw lead field sets.
package parser

import (
	"errors"
	"fmt"
	"iter"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	DefaultDelimiter     = "---NEXT_BUSINESS---"
	DefaultMinSegmentLen = 20

	DefaultName  = "Unknown Business"
	DefaultPhone = "N/A"
	DefaultURL   = "None"
)

// Fields is the raw, unclassified field set extracted from one entry.
type Fields struct {
	Name  string
	Phone string
	URL   string
	Info  string
}

// Grammar describes how entries are delimited and labelled.
type Grammar struct {
	Delimiter     string
	MinSegmentLen int
	NameLabel     string
	PhoneLabel    string
	URLLabel      string
	InfoLabel     string
}

// DefaultGrammar matches the prompt contract used by the scan pipeline.
func DefaultGrammar() Grammar {
	return Grammar{
		Delimiter:     DefaultDelimiter,
		MinSegmentLen: DefaultMinSegmentLen,
		NameLabel:     "NAME",
		PhoneLabel:    "PHONE",
		URLLabel:      "URL",
		InfoLabel:     "INFO",
	}
}

// Extractor pulls labelled fields out of a single entry.
type Extractor interface {
	Extract(segment string) Fields
}

// Parser splits generated text into entries and runs an Extractor on each.
type Parser struct {
	delimiter string
	minLen    int
	extractor Extractor
}

// New builds a Parser for g using the line-anchored label extractor.
func New(g Grammar) (*Parser, error) {
	ext, err := NewLabelExtractor(g)
	if err != nil {
		return nil, err
	}
	return NewWithExtractor(g, ext)
}

// NewWithExtractor builds a Parser that delegates field extraction to ext.
func NewWithExtractor(g Grammar, ext Extractor) (*Parser, error) {
	if strings.TrimSpace(g.Delimiter) == "" {
		return nil, errors.New("parser: delimiter must not be empty")
	}
	if ext == nil {
		return nil, errors.New("parser: extractor must not be nil")
	}
	minLen := g.MinSegmentLen
	if minLen <= 0 {
		minLen = DefaultMinSegmentLen
	}
	return &Parser{delimiter: g.Delimiter, minLen: minLen, extractor: ext}, nil
}

// Default returns a Parser for DefaultGrammar.
func Default() *Parser {
	p, err := New(DefaultGrammar())
	if err != nil {
		panic(err)
	}
	return p
}

// Parse yields one Fields per retained entry. A trimmed segment must be
// longer than the minimum length to be kept. Empty or malformed input yields nothing.
func (p *Parser) Parse(text string) iter.Seq[Fields] {
	return func(yield func(Fields) bool) {
		if strings.TrimSpace(text) == "" {
			return
		}
		for segment := range strings.SplitSeq(text, p.delimiter) {
			trimmed := strings.TrimSpace(segment)
			if utf8.RuneCountInString(trimmed) <= p.minLen {
				continue
			}
			if !yield(p.extractor.Extract(trimmed)) {
				return
			}
		}
	}
}

// Collect drains Parse into a slice.
func (p *Parser) Collect(text string) []Fields {
	var out []Fields
	for f := range p.Parse(text) {
		out = append(out, f)
	}
	return out
}

// LabelExtractor matches "LABEL: value" lines, tolerating list bullets and
// markdown emphasis around the label.
type LabelExtractor struct {
	name  *regexp.Regexp
	phone *regexp.Regexp
	url   *regexp.Regexp
	info  *regexp.Regexp
}

// NewLabelExtractor compiles one line pattern per label in g.
func NewLabelExtractor(g Grammar) (*LabelExtractor, error) {
	labels := []string{g.NameLabel, g.PhoneLabel, g.URLLabel, g.InfoLabel}
	res := make([]*regexp.Regexp, len(labels))
	for i, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" {
			return nil, errors.New("parser: field labels must not be empty")
		}
		re, err := regexp.Compile(fmt.Sprintf(`(?im)^[ \t>*•\-\d.)]*\**%s\**[ \t]*:[ \t]*\**[ \t]*(.*)$`, regexp.QuoteMeta(label)))
		if err != nil {
			return nil, fmt.Errorf("parser: compile %s pattern: %w", label, err)
		}
		res[i] = re
	}
	return &LabelExtractor{name: res[0], phone: res[1], url: res[2], info: res[3]}, nil
}

// Extract fills missing name, phone and URL with their defaults.
func (e *LabelExtractor) Extract(segment string) Fields {
	name := CleanName(match(e.name, segment))
	if name == "" {
		name = DefaultName
	}
	return Fields{
		Name:  name,
		Phone: orDefault(match(e.phone, segment), DefaultPhone),
		URL:   orDefault(match(e.url, segment), DefaultURL),
		Info:  match(e.info, segment),
	}
}

var enumerationPrefix = regexp.MustCompile(`^(?:\d+[.)]\s*|[-*•#.\s]+)+`)

// CleanName strips leading enumeration artifacts such as "1. " or "- ".
func CleanName(name string) string {
	return strings.TrimSpace(enumerationPrefix.ReplaceAllString(strings.TrimSpace(name), ""))
}

func match(re *regexp.Regexp, segment string) string {
	m := re.FindStringSubmatch(segment)
	if len(m) < 2 {
		return ""
	}
	return strings.Trim(m[1], " \t\r*")
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
