// Package keyword implements the save-this-to-memory trigger phrase
// detector: strip code, then test what's left against a word-boundary
// regex over a configurable keyword set.
package keyword

import (
	"regexp"
	"strings"
)

// Default is the built-in set of phrases that signal the user wants
// something remembered.
var Default = []string{
	"remember",
	"memorize",
	"save this",
	"note this",
	"keep in mind",
	"don't forget",
	"learn this",
	"store this",
	"record this",
	"make a note",
	"take note",
	"jot down",
	"commit to memory",
	"never forget",
	"always remember",
}

var (
	fencedCodeBlock = regexp.MustCompile("(?s)```.*?```")
	inlineCodeSpan  = regexp.MustCompile("`[^`\n]*?`")
)

// stripCode removes fenced code blocks, then inline code spans, in that
// order, so neither contributes false positives to keyword matching.
func stripCode(text string) string {
	text = fencedCodeBlock.ReplaceAllString(text, "")
	text = inlineCodeSpan.ReplaceAllString(text, "")
	return text
}

// Detector matches free text against a fixed keyword set.
type Detector struct {
	pattern *regexp.Regexp
}

// New builds a detector over the union of Default and extra. A nil
// pattern (empty effective set) never matches anything.
func New(extra []string) Detector {
	keywords := make([]string, 0, len(Default)+len(extra))
	keywords = append(keywords, Default...)
	keywords = append(keywords, extra...)

	if len(keywords) == 0 {
		return Detector{}
	}

	escaped := make([]string, len(keywords))
	for i, kw := range keywords {
		escaped[i] = regexp.QuoteMeta(kw)
	}

	pattern := `\b(` + strings.Join(escaped, "|") + `)\b`
	return Detector{pattern: regexp.MustCompile("(?i)" + pattern)}
}

// Detect reports whether text, with code stripped, contains any
// configured keyword.
func (d Detector) Detect(text string) bool {
	if d.pattern == nil {
		return false
	}
	return d.pattern.MatchString(stripCode(text))
}
