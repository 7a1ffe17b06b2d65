// Package textscan strips string and comment content from source lines so
// that brace and bracket characters can be counted without being fooled by
// braces inside literals. It is a line-oriented state machine, not a parser:
// state threads across lines, and a malformed input (an unterminated quote
// the heuristics misjudge) can desynchronize it for the rest of the buffer.
package textscan

import "strings"

// State carries lexical context from one line into the next.
type State struct {
	// InString holds the open quote rune (', ", or `) while inside a string
	// literal, 0 otherwise.
	InString rune
	// InBlockComment is true while inside a /* ... */ comment.
	InBlockComment bool
}

// ScanLine consumes one line and returns it with all string and comment
// content removed, plus the state to carry into the following line. String
// contents are deliberately dropped rather than masked; the output exists
// only for counting structural characters.
func ScanLine(line string, st State) (string, State) {
	var out strings.Builder
	runes := []rune(line)

	for i := 0; i < len(runes); i++ {
		c := runes[i]

		if st.InBlockComment {
			if c == '*' && i+1 < len(runes) && runes[i+1] == '/' {
				st.InBlockComment = false
				i++
			}
			continue
		}

		if st.InString != 0 {
			switch c {
			case '\\':
				// Escape consumes the next character as well.
				i++
			case st.InString:
				st.InString = 0
			}
			continue
		}

		if c == '/' && i+1 < len(runes) {
			switch runes[i+1] {
			case '*':
				st.InBlockComment = true
				i++
				continue
			case '/':
				// A // that directly follows an emitted "http:" or "https:"
				// is part of a URL, not a comment start.
				if !hasURLSchemeSuffix(out.String()) {
					return out.String(), st
				}
			}
		}

		if c == '\'' || c == '"' || c == '`' {
			st.InString = c
			continue
		}

		out.WriteRune(c)
	}

	return out.String(), st
}

// hasURLSchemeSuffix reports whether emitted output ends in a URL scheme
// separator prefix, i.e. "http:" or "https:".
func hasURLSchemeSuffix(emitted string) bool {
	return strings.HasSuffix(emitted, "http:") || strings.HasSuffix(emitted, "https:")
}

// CleanText splits a buffer into lines and scans each one, threading state
// across line boundaries. The returned slice has one cleaned entry per input
// line.
func CleanText(text string) []string {
	lines := strings.Split(text, "\n")
	cleaned := make([]string, len(lines))
	var st State
	for i, line := range lines {
		cleaned[i], st = ScanLine(line, st)
	}
	return cleaned
}

// BraceDelta returns the net curly-brace depth change of a cleaned line.
func BraceDelta(cleaned string) int {
	return strings.Count(cleaned, "{") - strings.Count(cleaned, "}")
}

// CountBrackets returns the net depth changes for curly braces, square
// brackets, and parentheses in a cleaned line.
func CountBrackets(cleaned string) (curly, square, paren int) {
	curly = strings.Count(cleaned, "{") - strings.Count(cleaned, "}")
	square = strings.Count(cleaned, "[") - strings.Count(cleaned, "]")
	paren = strings.Count(cleaned, "(") - strings.Count(cleaned, ")")
	return curly, square, paren
}
