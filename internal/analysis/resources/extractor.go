// Package resources discovers external resource URLs referenced by a text
// buffer and recommends a loading hint (preconnect, dns-prefetch, prefetch)
// for each. Discovery is a fixed battery of regular expressions, not a
// parser; URLs hiding in contexts the patterns do not cover are missed
// silently.
package resources

import (
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sethyboi74/odemasterpro/api/schemas"
)

// Existing-hint detection. Both attribute orders are recognized.
var (
	relHrefPattern = regexp.MustCompile(`(?i)<link[^>]*\brel=["'](preconnect|dns-prefetch|prefetch|preload|stylesheet)["'][^>]*\bhref=["']([^"']+)["']`)
	hrefRelPattern = regexp.MustCompile(`(?i)<link[^>]*\bhref=["']([^"']+)["'][^>]*\brel=["'](preconnect|dns-prefetch|prefetch|preload|stylesheet)["']`)
)

// General URL discovery, applied in sequence.
var discoveryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:src|href|url)\s*=\s*["']([^"']+)["']`),
	regexp.MustCompile(`(?i)url\(\s*["']?([^"')]+?)["']?\s*\)`),
	regexp.MustCompile(`https?://[^\s"'<>()]+`),
	regexp.MustCompile(`(?i)import\s+(?:[\w{}*,\s]+\s+from\s+)?["']([^"']+)["']`),
	regexp.MustCompile(`(?i)@import\s+["']([^"']+)["']`),
}

// bareFilePattern accepts extension-bearing relative references like
// "app.js" or "fonts/brand.woff2".
var bareFilePattern = regexp.MustCompile(`(?i)\.(html|js|css|png|jpg|gif|svg|json|woff2|woff)(\?.*)?$`)

var fontDomains = []string{
	"fonts.googleapis.com",
	"fonts.gstatic.com",
	"typekit.net",
	"fonts.com",
}

var fontExtensions = []string{".woff2", ".woff", ".ttf", ".otf", ".eot"}

var apiMarkers = []string{
	"api.",
	"/api/",
	"ajax.",
	"rest.",
	"graphql.",
	"google-analytics.com",
	"googletagmanager.com",
	"connect.facebook.net",
	"platform.twitter.com",
	"analytics.",
}

var cdnMarkers = []string{
	"cdn.",
	"jsdelivr",
	"unpkg",
	"cdnjs.",
	"bootstrap",
	"tailwindcss",
}

var imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".ico"}

var scriptExtensions = []string{".js", ".mjs", ".css", ".json"}

// Extractor runs the resource discovery passes over a text buffer.
type Extractor struct {
	log *zap.Logger
}

// NewExtractor creates a resource extractor.
func NewExtractor(logger *zap.Logger) *Extractor {
	return &Extractor{log: logger.Named("resources")}
}

// Extract produces the deduplicated, classified, priority-ordered resource
// list for one buffer. Results are recomputed from scratch on every call and
// never cached; they are a view over this exact text.
func (e *Extractor) Extract(text string) []schemas.ExternalResource {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	existing := detectExistingHints(text)

	// Pass 2: general discovery, deduplicated by exact URL string.
	seen := make(map[string]struct{})
	var out []schemas.ExternalResource
	for _, pattern := range discoveryPatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			url := match[0]
			if len(match) > 1 {
				url = match[1]
			}
			url = strings.TrimSpace(url)
			if !keepURL(url) {
				continue
			}
			if _, dup := seen[url]; dup {
				continue
			}
			seen[url] = struct{}{}

			kind, hint := Classify(url)
			res := schemas.ExternalResource{
				URL:             url,
				Kind:            kind,
				RecommendedHint: hint,
			}
			if existingHint, ok := existing[url]; ok {
				res.ExistingHint = existingHint
			}
			out = append(out, res)
		}
	}

	// Pass 3: hint-only URLs the discovery patterns did not reach become
	// standalone entries with the recommended hint pinned to the one found.
	for _, url := range sortedKeys(existing) {
		if _, ok := seen[url]; ok {
			continue
		}
		seen[url] = struct{}{}
		kind, _ := Classify(url)
		out = append(out, schemas.ExternalResource{
			URL:             url,
			Kind:            kind,
			RecommendedHint: existing[url],
			ExistingHint:    existing[url],
		})
	}

	sortResources(out)

	e.log.Debug("resource extraction complete",
		zap.Int("resources", len(out)),
		zap.Int("with_existing_hint", len(existing)))
	return out
}

// detectExistingHints maps URLs to the hint relation a <link> tag already
// declares for them. preload and stylesheet map onto prefetch.
func detectExistingHints(text string) map[string]schemas.Hint {
	hints := make(map[string]schemas.Hint)

	record := func(rel, url string) {
		var hint schemas.Hint
		switch strings.ToLower(rel) {
		case "preconnect":
			hint = schemas.HintPreconnect
		case "dns-prefetch":
			hint = schemas.HintDNSPrefetch
		case "prefetch", "preload", "stylesheet":
			hint = schemas.HintPrefetch
		default:
			return
		}
		hints[strings.TrimSpace(url)] = hint
	}

	for _, m := range relHrefPattern.FindAllStringSubmatch(text, -1) {
		record(m[1], m[2])
	}
	for _, m := range hrefRelPattern.FindAllStringSubmatch(text, -1) {
		record(m[2], m[1])
	}
	return hints
}

// keepURL filters discovery matches down to plausible resource references:
// absolute URLs, root-relative paths, or bare filenames with a known
// extension.
func keepURL(url string) bool {
	if url == "" {
		return false
	}
	if strings.HasPrefix(url, "http") || strings.HasPrefix(url, "/") {
		return true
	}
	return bareFilePattern.MatchString(url)
}

// Classify assigns a resource kind and recommended hint. First matching rule
// wins. Note the file-extension checks run before the CDN domain markers so
// that a script served from a cdn.* host still classifies by what it is
// rather than where it lives.
func Classify(url string) (schemas.ResourceKind, schemas.Hint) {
	lower := strings.ToLower(url)
	path := lower
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}

	for _, domain := range fontDomains {
		if strings.Contains(lower, domain) {
			return schemas.ResourceFont, schemas.HintPreconnect
		}
	}
	for _, ext := range fontExtensions {
		if strings.HasSuffix(path, ext) {
			return schemas.ResourceFont, schemas.HintPreconnect
		}
	}

	// Non-font googleapis traffic is API traffic.
	if strings.Contains(lower, "googleapis.com") {
		return schemas.ResourceAPI, schemas.HintDNSPrefetch
	}
	for _, marker := range apiMarkers {
		if strings.Contains(lower, marker) {
			return schemas.ResourceAPI, schemas.HintDNSPrefetch
		}
	}

	for _, ext := range imageExtensions {
		if strings.HasSuffix(path, ext) {
			return schemas.ResourceImage, schemas.HintPrefetch
		}
	}
	for _, ext := range scriptExtensions {
		if strings.HasSuffix(path, ext) {
			return schemas.ResourceScript, schemas.HintPrefetch
		}
	}

	for _, marker := range cdnMarkers {
		if strings.Contains(lower, marker) {
			return schemas.ResourceCDN, schemas.HintPrefetch
		}
	}

	return schemas.ResourceCDN, schemas.HintPrefetch
}

// sortResources applies the presentation ordering: resources that already
// carry a hint first, then by hint priority within each partition. The sort
// is stable so discovery order breaks ties.
func sortResources(resources []schemas.ExternalResource) {
	sort.SliceStable(resources, func(i, j int) bool {
		a, b := resources[i], resources[j]
		aHas, bHas := a.ExistingHint != "", b.ExistingHint != ""
		if aHas != bHas {
			return aHas
		}
		return effectiveHint(a).Priority() < effectiveHint(b).Priority()
	})
}

// effectiveHint is the hint a resource sorts by: the one already present in
// the document if any, otherwise the recommendation.
func effectiveHint(r schemas.ExternalResource) schemas.Hint {
	if r.ExistingHint != "" {
		return r.ExistingHint
	}
	return r.RecommendedHint
}

// sortedKeys returns map keys in a deterministic order so pass 3 output is
// stable across runs.
func sortedKeys(m map[string]schemas.Hint) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
