// Package splice rewrites located spans of a line-oriented text buffer.
// Every operation takes the line array derived from the current buffer and
// returns a fresh full buffer; nothing is mutated in place. Spans must have
// been computed against the exact buffer being spliced — staleness is the
// caller's hazard, and indices are not range-checked here.
package splice

import (
	"sort"
	"strings"

	"github.com/sethyboi74/odemasterpro/api/schemas"
)

// defaultIndent is used when the context line carries no leading whitespace.
const defaultIndent = "  "

// InsertAt splices content into a span. A single-line span receives the
// content between its start and end columns; a multi-line span has its whole
// line range replaced by the content's lines. With reindent set, every
// content line after the first inherits the leading whitespace of the
// context line at the span start (lines already carrying that indent are
// left alone, so re-inserting extracted text does not double-indent).
func InsertAt(lines []string, span schemas.TextSpan, content string, reindent bool) string {
	insert := content
	if reindent {
		indent := contextIndent(lines, span.StartLine)
		if indent == "" {
			indent = defaultIndent
		}
		insert = reindentAfterFirst(content, indent)
	}

	if span.SingleLine() {
		line := lines[span.StartLine]
		spliced := line[:span.StartCol] + insert + line[span.EndCol:]
		return rebuild(lines, span.StartLine, span.StartLine, strings.Split(spliced, "\n"))
	}

	return rebuild(lines, span.StartLine, span.EndLine, strings.Split(insert, "\n"))
}

// ReplaceAt replaces the span's full line range with the content's lines,
// reindented against the span's first line. Unlike InsertAt, a flush-left
// context does not force the fallback indent; replacing a span with its own
// content must reproduce the original buffer.
func ReplaceAt(lines []string, span schemas.TextSpan, content string) string {
	insert := reindentAfterFirst(content, contextIndent(lines, span.StartLine))
	return rebuild(lines, span.StartLine, span.EndLine, strings.Split(insert, "\n"))
}

// DeleteAt removes the span. A single-line span loses its column range; a
// multi-line span collapses to one line joining the text before the start
// column with the text after the end column.
func DeleteAt(lines []string, span schemas.TextSpan) string {
	if span.SingleLine() {
		line := lines[span.StartLine]
		return rebuild(lines, span.StartLine, span.StartLine, []string{line[:span.StartCol] + line[span.EndCol:]})
	}

	joined := lines[span.StartLine][:span.StartCol] + lines[span.EndLine][span.EndCol:]
	return rebuild(lines, span.StartLine, span.EndLine, []string{joined})
}

// AppendAfter inserts the content as new lines immediately after the span's
// last line, every line indented to match that line.
func AppendAfter(lines []string, span schemas.TextSpan, content string) string {
	indent := contextIndent(lines, span.EndLine)
	contentLines := strings.Split(content, "\n")
	for i, line := range contentLines {
		contentLines[i] = applyIndent(line, indent)
	}

	out := make([]string, 0, len(lines)+len(contentLines))
	out = append(out, lines[:span.EndLine+1]...)
	out = append(out, contentLines...)
	out = append(out, lines[span.EndLine+1:]...)
	return strings.Join(out, "\n")
}

// ApplyBatch runs an ordered set of edits against one buffer. Operations are
// stably sorted by start line descending before application, so an edit
// never shifts the line numbers of edits still pending at lower lines; each
// edit works against the buffer the previous one produced.
func ApplyBatch(buffer string, ops []schemas.EditOperation) string {
	sorted := make([]schemas.EditOperation, len(ops))
	copy(sorted, ops)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Target.StartLine > sorted[j].Target.StartLine
	})

	for _, op := range sorted {
		lines := strings.Split(buffer, "\n")
		switch op.Kind {
		case schemas.EditInsert:
			buffer = InsertAt(lines, op.Target, op.NewContent, true)
		case schemas.EditReplace:
			buffer = ReplaceAt(lines, op.Target, op.NewContent)
		case schemas.EditDelete:
			buffer = DeleteAt(lines, op.Target)
		case schemas.EditAppend:
			buffer = AppendAfter(lines, op.Target, op.NewContent)
		}
	}
	return buffer
}

// contextIndent captures the leading whitespace of the line at idx.
func contextIndent(lines []string, idx int) string {
	line := lines[idx]
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}

// reindentAfterFirst prefixes every line after the first with the given
// indent. The first line keeps the column position it is being inserted at,
// and lines that already start with the indent are not prefixed again.
func reindentAfterFirst(content, indent string) string {
	lines := strings.Split(content, "\n")
	for i := 1; i < len(lines); i++ {
		lines[i] = applyIndent(lines[i], indent)
	}
	return strings.Join(lines, "\n")
}

func applyIndent(line, indent string) string {
	if line == "" || strings.HasPrefix(line, indent) {
		return line
	}
	return indent + line
}

// rebuild replaces the inclusive line range [start, end] with the given
// replacement lines and joins the result back into a buffer.
func rebuild(lines []string, start, end int, replacement []string) string {
	out := make([]string, 0, len(lines)-(end-start+1)+len(replacement))
	out = append(out, lines[:start]...)
	out = append(out, replacement...)
	out = append(out, lines[end+1:]...)
	return strings.Join(out, "\n")
}
