// Package locate finds structurally meaningful spans in a text buffer: the
// insertion point just before </head>, and the full extent of a named CSS
// rule. Spans are only valid against the exact buffer they were computed
// from; any edit invalidates them.
package locate

import (
	"regexp"
	"strings"

	"github.com/sethyboi74/odemasterpro/api/schemas"
)

var (
	headOpenPattern  = regexp.MustCompile(`(?i)<head(\s[^>]*)?>`)
	headClosePattern = regexp.MustCompile(`(?i)</head\s*>`)
)

// FindHeadInsertionPoint returns a zero-width span at the start of the line
// containing </head>, so content can be inserted immediately before the
// closing tag. Not-found is the expected outcome for malformed or headless
// documents; callers fall back per their own contract.
func FindHeadInsertionPoint(text string) (schemas.TextSpan, bool) {
	lines := strings.Split(text, "\n")

	headOpen := -1
	for i, line := range lines {
		if headOpenPattern.MatchString(line) {
			headOpen = i
			break
		}
	}
	if headOpen == -1 {
		return schemas.TextSpan{}, false
	}

	for i := headOpen; i < len(lines); i++ {
		if headClosePattern.MatchString(lines[i]) {
			return schemas.TextSpan{
				StartLine: i,
				EndLine:   i,
				StartCol:  0,
				EndCol:    0,
			}, true
		}
	}

	// Opened but never closed.
	return schemas.TextSpan{}, false
}

// FindCSSRule locates the full span of the first rule whose selector matches
// the given text at the start of a line (leading whitespace allowed,
// case-insensitive). Multi-line rules are tracked by brace depth on the raw
// lines; a brace inside a string literal will therefore skew the count,
// which is an accepted imprecision of this engine. A rule that never closes
// yields not-found rather than a partial span.
func FindCSSRule(text, selector string) (schemas.TextSpan, bool) {
	selectorPattern, err := regexp.Compile(`(?i)^\s*` + regexp.QuoteMeta(selector) + `\s*\{`)
	if err != nil {
		return schemas.TextSpan{}, false
	}

	lines := strings.Split(text, "\n")
	open := false
	start := 0
	depth := 0

	for i, line := range lines {
		if !open {
			if !selectorPattern.MatchString(line) {
				continue
			}
			open = true
			start = i
			depth = braceDelta(line)
		} else {
			depth += braceDelta(line)
		}

		if depth <= 0 {
			return span(lines, start, i), true
		}
	}

	return schemas.TextSpan{}, false
}

// span builds an inclusive line span with content set to the joined range.
func span(lines []string, start, end int) schemas.TextSpan {
	return schemas.TextSpan{
		StartLine: start,
		EndLine:   end,
		StartCol:  0,
		EndCol:    len(lines[end]),
		Content:   strings.Join(lines[start:end+1], "\n"),
	}
}

func braceDelta(line string) int {
	return strings.Count(line, "{") - strings.Count(line, "}")
}
