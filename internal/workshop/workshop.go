// Package workshop orchestrates the analysis and patch cycle: extractors
// produce resources and rules from the current buffers, the locate engine
// finds target spans, and the splice engine rewrites them. Everything here
// is a pure function from buffer in to buffer out; presentation state
// belongs to the caller.
package workshop

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sethyboi74/odemasterpro/api/schemas"
	"github.com/sethyboi74/odemasterpro/internal/analysis/resources"
	"github.com/sethyboi74/odemasterpro/internal/analysis/rules"
	"github.com/sethyboi74/odemasterpro/internal/locate"
	"github.com/sethyboi74/odemasterpro/internal/splice"
	"github.com/sethyboi74/odemasterpro/internal/textscan"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// ErrEmptyBuffer is returned when an operation requiring text input
	// receives none.
	ErrEmptyBuffer = errors.New("buffer is empty")
	// ErrRuleNotFound is returned when a selector cannot be located in the
	// buffer.
	ErrRuleNotFound = errors.New("css rule not found")
	// ErrUnbalancedContent is returned when replacement content carries
	// unbalanced braces outside strings and comments; splicing it in would
	// corrupt every rule below the splice point.
	ErrUnbalancedContent = errors.New("replacement content has unbalanced braces")
)

// headOpenPattern backs the tier-2 fallback: append directly after the first
// <head...> opening tag when the structural locate fails.
var headOpenPattern = regexp.MustCompile(`(?i)<head(\s[^>]*)?>`)

// Analyzer runs both extraction passes over a set of source files.
type Analyzer struct {
	log       *zap.Logger
	resources *resources.Extractor
	rules     *rules.Extractor
}

// NewAnalyzer creates an analyzer with both extractors wired.
func NewAnalyzer(logger *zap.Logger) *Analyzer {
	return &Analyzer{
		log:       logger.Named("workshop"),
		resources: resources.NewExtractor(logger),
		rules:     rules.NewExtractor(logger),
	}
}

// Analyze produces the combined resource and rule report for the given
// files. Resource extraction runs per file concurrently; results are merged,
// re-deduplicated by URL (first file wins), and re-sorted so the combined
// list obeys the same ordering as a single-file pass.
func (a *Analyzer) Analyze(ctx context.Context, files []schemas.SourceFile) (schemas.AnalysisReport, error) {
	if len(files) == 0 {
		return schemas.AnalysisReport{}, fmt.Errorf("analyze: %w", ErrEmptyBuffer)
	}

	perFile := make([][]schemas.ExternalResource, len(files))
	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			perFile[i] = a.resources.Extract(f.Content)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return schemas.AnalysisReport{}, fmt.Errorf("analyze: %w", err)
	}

	report := schemas.AnalysisReport{
		Resources: mergeResources(perFile),
		Rules:     a.rules.Extract(files),
	}
	a.log.Debug("analysis complete",
		zap.Int("files", len(files)),
		zap.Int("resources", len(report.Resources)),
		zap.Int("rules", len(report.Rules)))
	return report, nil
}

// Resources runs the resource pass over a single buffer. Used where the
// caller already holds one document and does not need the full report.
func (a *Analyzer) Resources(buffer string) []schemas.ExternalResource {
	return a.resources.Extract(buffer)
}

// mergeResources flattens per-file results into one list with cross-file URL
// dedup and the canonical two-level ordering restored.
func mergeResources(perFile [][]schemas.ExternalResource) []schemas.ExternalResource {
	seen := make(map[string]struct{})
	var merged []schemas.ExternalResource
	for _, list := range perFile {
		for _, r := range list {
			if _, dup := seen[r.URL]; dup {
				continue
			}
			seen[r.URL] = struct{}{}
			merged = append(merged, r)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		aHas, bHas := a.ExistingHint != "", b.ExistingHint != ""
		if aHas != bHas {
			return aHas
		}
		return sortHint(a).Priority() < sortHint(b).Priority()
	})
	return merged
}

func sortHint(r schemas.ExternalResource) schemas.Hint {
	if r.ExistingHint != "" {
		return r.ExistingHint
	}
	return r.RecommendedHint
}

// Patcher applies targeted edits to a buffer and reports what changed.
type Patcher struct {
	log *zap.Logger
}

// NewPatcher creates a patcher.
func NewPatcher(logger *zap.Logger) *Patcher {
	return &Patcher{log: logger.Named("patcher")}
}

// ApplyHints inserts <link> hint tags for every resource that does not
// already carry one. Placement degrades through three tiers: before </head>
// at a located span, after the first <head...> opening tag when the locate
// fails, and finally returning the snippet for manual placement when the
// document has no head at all.
func (p *Patcher) ApplyHints(buffer string, res []schemas.ExternalResource) (schemas.PatchResult, error) {
	if strings.TrimSpace(buffer) == "" {
		return schemas.PatchResult{}, fmt.Errorf("apply hints: %w", ErrEmptyBuffer)
	}

	links := hintLinks(res)
	if len(links) == 0 {
		return schemas.PatchResult{
			Buffer:    buffer,
			Summary:   "No new resource hints needed; every resource is already hinted",
			Placement: schemas.PlacementHead,
		}, nil
	}
	snippet := strings.Join(links, "\n")

	if span, ok := locate.FindHeadInsertionPoint(buffer); ok {
		out := splice.InsertAt(strings.Split(buffer, "\n"), span, snippet+"\n", true)
		p.log.Debug("hints inserted before </head>", zap.Int("count", len(links)), zap.Int("line", span.StartLine+1))
		return schemas.PatchResult{
			Buffer:    out,
			Summary:   fmt.Sprintf("Smart-inserted %d prefetch optimizations into <head> section", len(links)),
			Changes:   changeRecords(res, span.StartLine+1),
			Placement: schemas.PlacementHead,
		}, nil
	}

	// Tier 2: no structural span, but an opening tag exists somewhere.
	if loc := headOpenPattern.FindStringIndex(buffer); loc != nil {
		out := buffer[:loc[1]] + "\n" + snippet + buffer[loc[1]:]
		line := strings.Count(buffer[:loc[1]], "\n") + 1
		p.log.Debug("hints appended after <head> opening tag", zap.Int("count", len(links)))
		return schemas.PatchResult{
			Buffer:    out,
			Summary:   fmt.Sprintf("Appended %d resource hints after the <head> opening tag", len(links)),
			Changes:   changeRecords(res, line+1),
			Placement: schemas.PlacementAfterOpen,
		}, nil
	}

	// Tier 3: nothing to anchor on; hand the snippet back.
	p.log.Debug("no <head> found; returning snippet for manual placement")
	return schemas.PatchResult{
		Buffer:    buffer,
		Summary:   fmt.Sprintf("No <head> section found; add the %d generated hints manually", len(links)),
		Snippet:   snippet,
		Placement: schemas.PlacementManual,
	}, nil
}

// ApplyRule replaces the body of the named CSS rule with new content.
func (p *Patcher) ApplyRule(buffer, selector, newContent string) (schemas.PatchResult, error) {
	if strings.TrimSpace(buffer) == "" {
		return schemas.PatchResult{}, fmt.Errorf("apply rule: %w", ErrEmptyBuffer)
	}

	if !braceBalanced(newContent) {
		return schemas.PatchResult{}, fmt.Errorf("apply rule %q: %w", selector, ErrUnbalancedContent)
	}

	span, ok := locate.FindCSSRule(buffer, selector)
	if !ok {
		return schemas.PatchResult{}, fmt.Errorf("apply rule %q: %w", selector, ErrRuleNotFound)
	}

	out := splice.ReplaceAt(strings.Split(buffer, "\n"), span, newContent)
	return schemas.PatchResult{
		Buffer:  out,
		Summary: fmt.Sprintf("Updated rule %q (lines %d-%d)", selector, span.StartLine+1, span.EndLine+1),
		Changes: []schemas.ChangeRecord{{
			Type:        "replace",
			Description: fmt.Sprintf("rewrote declaration block of %q", selector),
			Location:    fmt.Sprintf("line %d", span.StartLine+1),
		}},
		Placement: schemas.PlacementHead,
	}, nil
}

// braceBalanced counts net curly depth over scanner-cleaned lines, so braces
// inside string literals and comments do not skew the check.
func braceBalanced(content string) bool {
	depth := 0
	for _, line := range textscan.CleanText(content) {
		depth += textscan.BraceDelta(line)
	}
	return depth == 0
}

// hintLinks renders one <link> tag per resource still missing a hint.
// Preconnect links to cross-origin font hosts carry crossorigin, which font
// fetches require.
func hintLinks(res []schemas.ExternalResource) []string {
	var links []string
	for _, r := range res {
		if r.ExistingHint != "" {
			continue
		}
		if r.Kind == schemas.ResourceFont && r.RecommendedHint == schemas.HintPreconnect {
			links = append(links, fmt.Sprintf(`<link rel="preconnect" href="%s" crossorigin>`, r.URL))
			continue
		}
		links = append(links, fmt.Sprintf(`<link rel="%s" href="%s">`, r.RecommendedHint, r.URL))
	}
	return links
}

// changeRecords builds one diff-view record per inserted hint, all anchored
// at the insertion line.
func changeRecords(res []schemas.ExternalResource, line int) []schemas.ChangeRecord {
	var records []schemas.ChangeRecord
	for _, r := range res {
		if r.ExistingHint != "" {
			continue
		}
		records = append(records, schemas.ChangeRecord{
			Type:        "insert",
			Description: fmt.Sprintf("%s hint for %s", r.RecommendedHint, r.URL),
			Location:    fmt.Sprintf("line %d", line),
		})
	}
	return records
}

// EncodeEnvelope serializes a workshop message for the external transport.
func EncodeEnvelope(env schemas.WorkshopEnvelope) ([]byte, error) {
	if !knownEnvelopeType(env.Type) {
		return nil, fmt.Errorf("encode envelope: unknown type %q", env.Type)
	}
	return json.Marshal(env)
}

// DecodeEnvelope parses a workshop message received from the external
// transport, rejecting unknown types.
func DecodeEnvelope(data []byte) (schemas.WorkshopEnvelope, error) {
	var env schemas.WorkshopEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return schemas.WorkshopEnvelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if !knownEnvelopeType(env.Type) {
		return schemas.WorkshopEnvelope{}, fmt.Errorf("decode envelope: unknown type %q", env.Type)
	}
	return env, nil
}

func knownEnvelopeType(t schemas.EnvelopeType) bool {
	switch t {
	case schemas.WorkshopReady, schemas.WorkshopRequestCode, schemas.WorkshopInjectHTML,
		schemas.WorkshopApplyPatch, schemas.WorkshopLoaded:
		return true
	default:
		return false
	}
}
