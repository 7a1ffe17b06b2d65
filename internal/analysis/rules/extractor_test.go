package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sethyboi74/odemasterpro/api/schemas"
)

func cssFile(name, content string) schemas.SourceFile {
	return schemas.SourceFile{Name: name, Content: content, Kind: schemas.FileCSS}
}

func htmlFile(name, content string) schemas.SourceFile {
	return schemas.SourceFile{Name: name, Content: content, Kind: schemas.FileHTML}
}

func TestExtract_LineNumbers(t *testing.T) {
	t.Parallel()

	content := "body {\n  color: red;\n}\n.x { margin: 0; }"
	out := NewExtractor(zap.NewNop()).Extract([]schemas.SourceFile{cssFile("site.css", content)})
	require.Len(t, out, 2)

	body := out[0]
	assert.Equal(t, "body", body.Selector)
	assert.Equal(t, 1, body.StartLine)
	assert.Equal(t, 3, body.EndLine)
	val, ok := body.Properties.Get("color")
	require.True(t, ok)
	assert.Equal(t, "red", val)

	x := out[1]
	assert.Equal(t, ".x", x.Selector)
	assert.Equal(t, 4, x.StartLine)
	assert.Equal(t, 4, x.EndLine)
	val, ok = x.Properties.Get("margin")
	require.True(t, ok)
	assert.Equal(t, "0", val)
}

func TestExtract_DeclarationParsing(t *testing.T) {
	t.Parallel()

	content := ".a { color: red; color: blue; padding: 0 10px; ;; broken; : nope; empty: }"
	out := NewExtractor(zap.NewNop()).Extract([]schemas.SourceFile{cssFile("a.css", content)})
	require.Len(t, out, 1)

	props := out[0].Properties
	// Duplicate names keep their first position and take the last value.
	require.Len(t, props, 2)
	assert.Equal(t, "color", props[0].Name)
	assert.Equal(t, "blue", props[0].Value)
	assert.Equal(t, "padding", props[1].Name)
	assert.Equal(t, "0 10px", props[1].Value)
}

func TestExtract_ValueWithColon(t *testing.T) {
	t.Parallel()

	// Only the first colon splits name from value.
	content := `.b { background: url(https://cdn.example.com/x.png) }`
	out := NewExtractor(zap.NewNop()).Extract([]schemas.SourceFile{cssFile("b.css", content)})
	require.Len(t, out, 1)
	val, ok := out[0].Properties.Get("background")
	require.True(t, ok)
	assert.Equal(t, "url(https://cdn.example.com/x.png)", val)
}

func TestExtract_InlineStyles(t *testing.T) {
	t.Parallel()

	content := "<html>\n<head>\n<style>\n.hero {\n  display: flex;\n}\n</style>\n</head>\n</html>"
	out := NewExtractor(zap.NewNop()).Extract([]schemas.SourceFile{htmlFile("index.html", content)})
	require.Len(t, out, 1)

	rule := out[0]
	assert.Equal(t, ".hero", rule.Selector)
	assert.Equal(t, "index.html (inline)", rule.SourceLabel)
	// .hero { opens on line 4 of the full file.
	assert.Equal(t, 4, rule.StartLine)
	assert.Equal(t, 6, rule.EndLine)
}

func TestExtract_MultipleStyleBlocks(t *testing.T) {
	t.Parallel()

	content := "<style>.a{x:1}</style>\n<p></p>\n<STYLE>\n.b{y:2}</STYLE>"
	out := NewExtractor(zap.NewNop()).Extract([]schemas.SourceFile{htmlFile("p.html", content)})
	require.Len(t, out, 2)
	assert.Equal(t, ".a", out[0].Selector)
	assert.Equal(t, 1, out[0].StartLine)
	assert.Equal(t, ".b", out[1].Selector)
	assert.Equal(t, 4, out[1].StartLine)
}

func TestExtract_SkipsOtherKinds(t *testing.T) {
	t.Parallel()

	files := []schemas.SourceFile{
		{Name: "app.js", Content: "const a = {b: 1};", Kind: schemas.FileJS},
		{Name: "data.json", Content: `{"a": 1}`, Kind: schemas.FileJSON},
	}
	assert.Empty(t, NewExtractor(zap.NewNop()).Extract(files))
}

func TestExtract_MultipleFilesKeepOrder(t *testing.T) {
	t.Parallel()

	files := []schemas.SourceFile{
		cssFile("one.css", ".one { a: 1 }"),
		cssFile("two.css", ".two { b: 2 }"),
	}
	out := NewExtractor(zap.NewNop()).Extract(files)
	require.Len(t, out, 2)
	assert.Equal(t, "one.css", out[0].SourceLabel)
	assert.Equal(t, "two.css", out[1].SourceLabel)
}
