package textscan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanLine_PlainCode(t *testing.T) {
	t.Parallel()

	out, st := ScanLine("if (x) { y(); }", State{})
	assert.Equal(t, "if (x) { y(); }", out)
	assert.Equal(t, State{}, st)
}

func TestScanLine_StringContentsDropped(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
		want string
	}{
		{"double quoted braces", `x = "{not a brace}";`, "x = ;"},
		{"single quoted", `y = '}';`, "y = ;"},
		{"backtick", "z = `{{`;", "z = ;"},
		{"escaped quote stays inside", `s = "a\"b{";`, "s = ;"},
		{"two strings on one line", `f("a", "b")`, "f(, )"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out, st := ScanLine(tt.line, State{})
			assert.Equal(t, tt.want, out)
			assert.Equal(t, State{}, st, "string should be closed by end of line")
		})
	}
}

func TestScanLine_BlockComments(t *testing.T) {
	t.Parallel()

	out, st := ScanLine("a /* { */ b", State{})
	assert.Equal(t, "a  b", out)
	assert.False(t, st.InBlockComment)

	// Unterminated comment carries state into the next line.
	out, st = ScanLine("a /* {{{", State{})
	assert.Equal(t, "a ", out)
	require.True(t, st.InBlockComment)

	out, st = ScanLine("}} */ done", st)
	assert.Equal(t, " done", out)
	assert.False(t, st.InBlockComment)
}

func TestScanLine_LineComments(t *testing.T) {
	t.Parallel()

	out, _ := ScanLine("code(); // trailing {", State{})
	assert.Equal(t, "code(); ", out)
}

func TestScanLine_URLNotTreatedAsComment(t *testing.T) {
	t.Parallel()

	// The // of a URL scheme must not terminate the line.
	out, _ := ScanLine("fetch(http://example.com/x)", State{})
	assert.Equal(t, "fetch(http://example.com/x)", out)

	out, _ = ScanLine("u = https://cdn.example.com", State{})
	assert.Equal(t, "u = https://cdn.example.com", out)
}

func TestScanLine_UnterminatedStringCarries(t *testing.T) {
	t.Parallel()

	out, st := ScanLine(`s = "abc`, State{})
	assert.Equal(t, "s = ", out)
	require.Equal(t, '"', st.InString)

	out, st = ScanLine(`def" + x`, st)
	assert.Equal(t, " + x", out)
	assert.Equal(t, rune(0), st.InString)
}

func TestCleanText_ThreadsState(t *testing.T) {
	t.Parallel()

	cleaned := CleanText("a {\n/* }\n} */ b }\nc")
	require.Len(t, cleaned, 4)
	assert.Equal(t, "a {", cleaned[0])
	assert.Equal(t, "", cleaned[1])
	assert.Equal(t, " b }", cleaned[2])
	assert.Equal(t, "c", cleaned[3])
}

func TestBraceDelta(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, BraceDelta("a {"))
	assert.Equal(t, -1, BraceDelta("}"))
	assert.Equal(t, 0, BraceDelta("{}"))
}

func TestCountBrackets(t *testing.T) {
	t.Parallel()

	curly, square, paren := CountBrackets("f([1, 2], {a: (b)]")
	assert.Equal(t, 1, curly)
	assert.Equal(t, 0, square)
	assert.Equal(t, 1, paren)
}
