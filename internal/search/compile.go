// Package search sanitizes free-text queries into safe FTS5 MATCH
// expressions and runs the ranked queries shared by memory and chunk
// search.
package search

import (
	"regexp"
	"strings"
)

var wordRun = regexp.MustCompile(`\w+`)

// reserved holds the FTS5 operator keywords that must never reach the
// query verbatim, so a stray "and" or "not" in user text can't be
// mistaken for a boolean operator.
var reserved = map[string]bool{
	"and":  true,
	"or":   true,
	"not":  true,
	"near": true,
}

// Compile re-tokenizes free text into a safe FTS5 MATCH expression:
// extract word runs, drop anything shorter than two characters or equal
// to a reserved operator word, quote what's left, and OR-join it. An
// empty result means the caller should skip the query entirely rather
// than run one against an empty MATCH string.
func Compile(query string) (string, bool) {
	runs := wordRun.FindAllString(query, -1)

	var kept []string
	for _, run := range runs {
		if len(run) < 2 {
			continue
		}
		if reserved[strings.ToLower(run)] {
			continue
		}
		kept = append(kept, `"`+run+`"`)
	}

	if len(kept) == 0 {
		return "", false
	}
	return strings.Join(kept, " OR "), true
}
