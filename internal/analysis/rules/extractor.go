// Package rules extracts CSS rule blocks (selector plus declarations) from
// CSS files and from <style> bodies embedded in HTML, with 1-based line
// numbers for display and navigation. Matching is a flat regex over the
// text; a declaration block containing a literal brace will mis-parse, which
// is an accepted limitation of this approximation.
package rules

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sethyboi74/odemasterpro/api/schemas"
)

// rulePattern matches one "selector { declarations }" block. It cannot see
// nested braces.
var rulePattern = regexp.MustCompile(`([^{}]+)\{([^}]*)\}`)

// stylePattern captures the body of an inline <style> element.
var stylePattern = regexp.MustCompile(`(?is)<style[^>]*>(.*?)</style>`)

// Extractor scans source files for CSS rules.
type Extractor struct {
	log *zap.Logger
}

// NewExtractor creates a rule extractor.
func NewExtractor(logger *zap.Logger) *Extractor {
	return &Extractor{log: logger.Named("rules")}
}

// Extract returns every rule found across the given files, in file order.
// CSS files are scanned whole; HTML files contribute the rules inside their
// <style> elements with line numbers offset to positions in the full file.
// Other file kinds are skipped.
func (e *Extractor) Extract(files []schemas.SourceFile) []schemas.CSSRule {
	var out []schemas.CSSRule
	for _, f := range files {
		switch f.Kind {
		case schemas.FileCSS:
			out = append(out, extractFromCSS(f.Content, 0, f.Name)...)
		case schemas.FileHTML:
			out = append(out, extractInline(f)...)
		}
	}
	e.log.Debug("rule extraction complete",
		zap.Int("files", len(files)), zap.Int("rules", len(out)))
	return out
}

// extractInline pulls rules out of every <style> body in an HTML file,
// shifting line numbers by the lines preceding the opening tag.
func extractInline(f schemas.SourceFile) []schemas.CSSRule {
	var out []schemas.CSSRule
	label := fmt.Sprintf("%s (inline)", f.Name)
	for _, m := range stylePattern.FindAllStringSubmatchIndex(f.Content, -1) {
		body := f.Content[m[2]:m[3]]
		offset := strings.Count(f.Content[:m[0]], "\n")
		out = append(out, extractFromCSS(body, offset, label)...)
	}
	return out
}

// extractFromCSS runs the rule pattern over a CSS text. Line numbers are
// 1-based and measured at the selector's first non-whitespace character; the
// raw match also swallows whatever whitespace separated this rule from the
// previous one, which must not count against the reported position.
func extractFromCSS(content string, lineOffset int, label string) []schemas.CSSRule {
	var out []schemas.CSSRule
	for _, m := range rulePattern.FindAllStringSubmatchIndex(content, -1) {
		rawSelector := content[m[2]:m[3]]
		selector := strings.TrimSpace(rawSelector)
		if selector == "" {
			continue
		}

		block := content[m[4]:m[5]]
		props := parseDeclarations(block)

		selStart := m[2] + strings.Index(rawSelector, selector[:1])
		startLine := strings.Count(content[:selStart], "\n") + 1
		endLine := strings.Count(content[:m[1]], "\n") + 1

		out = append(out, schemas.CSSRule{
			Selector:    selector,
			Properties:  props,
			StartLine:   startLine + lineOffset,
			EndLine:     endLine + lineOffset,
			SourceLabel: label,
		})
	}
	return out
}

// parseDeclarations splits a declaration block on semicolons and each piece
// on its first colon. Entries missing a name or value are dropped; a
// duplicated name keeps its first position but takes the last value.
func parseDeclarations(block string) schemas.PropertyList {
	var props schemas.PropertyList
	for _, piece := range strings.Split(block, ";") {
		name, value, found := strings.Cut(piece, ":")
		if !found {
			continue
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		if name == "" || value == "" {
			continue
		}
		props.Set(name, value)
	}
	return props
}
