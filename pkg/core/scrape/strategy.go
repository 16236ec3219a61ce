package scrape

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Fragment is an opaque handle into a parsed document: the located node
// plus its resolved text payload.
type Fragment struct {
	Node *html.Node
	Text string
}

// Strategy locates the fragments of interest for one record kind inside a
// parsed document. Implementations are pure pattern matchers; the Scraper
// owns which one is active at a time.
type Strategy interface {
	Name() string
	Locate(doc *html.Node) []Fragment
}

// matchStrategy matches element names against a compiled pattern. The
// parser lowercases element and attribute names, so the patterns match the
// same way across filers regardless of source casing.
type matchStrategy struct {
	name    string
	pattern *regexp.Regexp
}

func (s *matchStrategy) Name() string { return s.name }

func (s *matchStrategy) Locate(doc *html.Node) []Fragment {
	var frags []Fragment
	walk(doc, func(n *html.Node) {
		if n.Type == html.ElementNode && s.pattern.MatchString(n.Data) {
			frags = append(frags, Fragment{Node: n, Text: fragmentText(n)})
		}
	})
	return frags
}

// NewContextStrategy locates <context> definitions, both bare and
// namespace-prefixed (xbrli:context).
func NewContextStrategy() Strategy {
	return &matchStrategy{name: "context", pattern: regexp.MustCompile(`context`)}
}

// NewLinkLabelStrategy locates link:label nodes in a label linkbase.
func NewLinkLabelStrategy() Strategy {
	return &matchStrategy{name: "linklabel", pattern: regexp.MustCompile(`^link:label$`)}
}

// NewFactStrategy locates facts tagged with the given taxonomy prefix,
// us-gaap by default.
func NewFactStrategy(taxonomy string) Strategy {
	if taxonomy == "" {
		taxonomy = "us-gaap"
	}
	return &matchStrategy{
		name:    "fact",
		pattern: regexp.MustCompile("^" + regexp.QuoteMeta(taxonomy) + ":"),
	}
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

// fragmentText resolves element text with an explicit fallback order:
// direct child text nodes, then concatenated descendant text, then empty.
// Filers disagree on where text lives; a fragment that stays empty after
// both passes is a recorded anomaly, not an error.
func fragmentText(n *html.Node) string {
	var direct strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			direct.WriteString(c.Data)
		}
	}
	if s := strings.TrimSpace(direct.String()); s != "" {
		return s
	}

	var all strings.Builder
	walk(n, func(d *html.Node) {
		if d.Type == html.TextNode {
			all.WriteString(d.Data)
		}
	})
	return strings.TrimSpace(all.String())
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func findFirst(n *html.Node, pattern *regexp.Regexp) *html.Node {
	var found *html.Node
	walk(n, func(d *html.Node) {
		if found == nil && d != n && d.Type == html.ElementNode && pattern.MatchString(d.Data) {
			found = d
		}
	})
	return found
}

func findAll(n *html.Node, pattern *regexp.Regexp) []*html.Node {
	var nodes []*html.Node
	walk(n, func(d *html.Node) {
		if d != n && d.Type == html.ElementNode && pattern.MatchString(d.Data) {
			nodes = append(nodes, d)
		}
	})
	return nodes
}
