// Package verify parses a patched buffer with a tolerant HTML parser and
// reports what a browser would actually see. It is advisory: splice results
// are never blocked on it, but callers can warn when a fallback placement
// produced markup whose head the parser cannot find.
package verify

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Report summarizes the structural state of a patched document.
type Report struct {
	HasHead bool
	// HintLinks counts <link> elements inside <head> whose rel is one of
	// the loading-hint relations.
	HintLinks int
}

var hintRels = map[string]struct{}{
	"preconnect":   {},
	"dns-prefetch": {},
	"prefetch":     {},
	"preload":      {},
}

// Check parses the buffer and inspects the head. The x/net parser never
// fails on malformed input; it synthesizes structure instead, so HasHead
// reflects whether any head content survived, not whether the source was
// well formed.
func Check(buffer string) (Report, error) {
	doc, err := html.Parse(strings.NewReader(buffer))
	if err != nil {
		return Report{}, err
	}

	var report Report
	head := findHead(doc)
	if head == nil {
		return report, nil
	}
	report.HasHead = head.FirstChild != nil

	for child := head.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != html.ElementNode || child.DataAtom != atom.Link {
			continue
		}
		for _, attr := range child.Attr {
			if attr.Key != "rel" {
				continue
			}
			if _, ok := hintRels[strings.ToLower(attr.Val)]; ok {
				report.HintLinks++
			}
		}
	}
	return report, nil
}

func findHead(node *html.Node) *html.Node {
	if node.Type == html.ElementNode && node.DataAtom == atom.Head {
		return node
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if found := findHead(child); found != nil {
			return found
		}
	}
	return nil
}
