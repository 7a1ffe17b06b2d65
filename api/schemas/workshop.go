package schemas

import "time"

// -- File Classification --

// FileKind classifies an input file by its source language, inferred
// externally from the file extension.
type FileKind string

const (
	FileHTML FileKind = "html"
	FileCSS  FileKind = "css"
	FileJS   FileKind = "js"
	FileJSON FileKind = "json"
)

// KindForExtension maps a lowercase file extension (without the dot) to a
// FileKind. Unknown extensions return false.
func KindForExtension(ext string) (FileKind, bool) {
	switch ext {
	case "html", "htm":
		return FileHTML, true
	case "css":
		return FileCSS, true
	case "js", "mjs":
		return FileJS, true
	case "json":
		return FileJSON, true
	default:
		return "", false
	}
}

// SourceFile is one unit of multi-file analysis input.
type SourceFile struct {
	Name    string   `json:"name"`
	Content string   `json:"content"`
	Kind    FileKind `json:"kind"`
}

// -- Spans and Edits --

// TextSpan is a located region of a line-oriented text buffer. Line and
// column numbers are 0-based internally; presentation boundaries convert to
// 1-based. A span is only valid against the exact buffer version it was
// computed from; recomputing the buffer invalidates all prior spans.
type TextSpan struct {
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	StartCol  int    `json:"start_col"`
	EndCol    int    `json:"end_col"`
	Content   string `json:"content,omitempty"`
}

// SingleLine reports whether the span covers a column range within one line.
func (s TextSpan) SingleLine() bool { return s.StartLine == s.EndLine }

// EditKind is the closed set of splice operations.
type EditKind string

const (
	EditInsert  EditKind = "insert"
	EditReplace EditKind = "replace"
	EditDelete  EditKind = "delete"
	EditAppend  EditKind = "append"
)

// EditOperation is one splice against a buffer. Batches are sorted by
// Target.StartLine descending before application so that earlier edits never
// shift the line numbers of edits still pending.
type EditOperation struct {
	Kind       EditKind `json:"kind"`
	Target     TextSpan `json:"target"`
	NewContent string   `json:"new_content"`
}

// -- CSS Rules --

// Property is a single CSS declaration.
type Property struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PropertyList is an ordered set of CSS declarations. Insertion order is
// preserved; setting an existing name overwrites its value in place.
type PropertyList []Property

// Set records a declaration, overwriting the value of an existing name
// without moving it.
func (p *PropertyList) Set(name, value string) {
	for i := range *p {
		if (*p)[i].Name == name {
			(*p)[i].Value = value
			return
		}
	}
	*p = append(*p, Property{Name: name, Value: value})
}

// Get returns the value for a declaration name.
func (p PropertyList) Get(name string) (string, bool) {
	for _, prop := range p {
		if prop.Name == name {
			return prop.Value, true
		}
	}
	return "", false
}

// CSSRule is a selector plus its declaration block, located in its source.
// It is a transient view over the current text and is recomputed whenever the
// source changes. Line numbers are 1-based (presentation values).
type CSSRule struct {
	Selector    string       `json:"selector"`
	Properties  PropertyList `json:"properties"`
	StartLine   int          `json:"start_line"`
	EndLine     int          `json:"end_line"`
	SourceLabel string       `json:"source_label"`
}

// -- External Resources --

// ResourceKind classifies an external resource URL.
type ResourceKind string

const (
	ResourceFont   ResourceKind = "font"
	ResourceAPI    ResourceKind = "api"
	ResourceCDN    ResourceKind = "cdn"
	ResourceImage  ResourceKind = "image"
	ResourceScript ResourceKind = "script"
)

// Hint is a resource-loading optimization directive.
type Hint string

const (
	HintPreconnect  Hint = "preconnect"
	HintDNSPrefetch Hint = "dns-prefetch"
	HintPrefetch    Hint = "prefetch"
)

// Priority orders hints for presentation: preconnect sorts before
// dns-prefetch, which sorts before prefetch.
func (h Hint) Priority() int {
	switch h {
	case HintPreconnect:
		return 0
	case HintDNSPrefetch:
		return 1
	case HintPrefetch:
		return 2
	default:
		return 3
	}
}

// ExternalResource is one deduplicated URL discovered in the source, with a
// recommended loading hint. ExistingHint is non-empty when a <link> tag with
// that relation already references the URL.
type ExternalResource struct {
	URL             string       `json:"url"`
	Kind            ResourceKind `json:"kind"`
	RecommendedHint Hint         `json:"recommended_hint"`
	ExistingHint    Hint         `json:"existing_hint,omitempty"`
}

// -- Analysis / Patch Results --

// AnalysisReport is the combined output of one analysis pass over a set of
// source files.
type AnalysisReport struct {
	Resources []ExternalResource `json:"resources"`
	Rules     []CSSRule          `json:"rules"`
}

// PlacementTier records which insertion strategy produced a patch result.
type PlacementTier string

const (
	// PlacementHead means the snippet was inserted before </head> at a
	// located span.
	PlacementHead PlacementTier = "head"
	// PlacementAfterOpen means the structural locate failed and the snippet
	// was appended immediately after the first <head...> opening tag.
	PlacementAfterOpen PlacementTier = "after-open"
	// PlacementManual means no head was found at all; the caller must place
	// the generated snippet by hand.
	PlacementManual PlacementTier = "manual"
)

// ChangeRecord describes one applied modification for a diff view.
type ChangeRecord struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Location    string `json:"location"`
}

// PatchResult is the outcome of an apply action: the full modified buffer, a
// one-line human summary, and per-change records.
type PatchResult struct {
	Buffer    string         `json:"buffer"`
	Summary   string         `json:"summary"`
	Changes   []ChangeRecord `json:"changes,omitempty"`
	Placement PlacementTier  `json:"placement"`
	// Snippet carries the generated markup when Placement is manual so the
	// caller can surface it for hand placement.
	Snippet string `json:"snippet,omitempty"`
}

// -- Workshop Transport --

// EnvelopeType identifies a workshop message. The core is agnostic to the
// transport carrying these envelopes; it only encodes and decodes them.
type EnvelopeType string

const (
	WorkshopReady       EnvelopeType = "WORKSHOP_READY"
	WorkshopRequestCode EnvelopeType = "WORKSHOP_REQUEST_CODE"
	WorkshopInjectHTML  EnvelopeType = "INJECT_HTML"
	WorkshopApplyPatch  EnvelopeType = "WORKSHOP_APPLY_PATCH"
	WorkshopLoaded      EnvelopeType = "WORKSHOP_LOADED"
)

// WorkshopEnvelope is the typed message wrapper exchanged between the outer
// editor and an embedded workshop frame.
type WorkshopEnvelope struct {
	Type       EnvelopeType `json:"type"`
	WorkshopID string       `json:"workshopId"`
	Data       string       `json:"data,omitempty"`
}

// -- Persistence Records --

// Project is a persisted editing project: a named collection of source files.
type Project struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Files     []SourceFile `json:"files"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// AnalysisRecord is one persisted analysis result appended to a project.
type AnalysisRecord struct {
	ID        string         `json:"id"`
	ProjectID string         `json:"project_id"`
	Report    AnalysisReport `json:"report"`
	CreatedAt time.Time      `json:"created_at"`
}
