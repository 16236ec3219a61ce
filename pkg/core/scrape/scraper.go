// Package scrape extracts structured records from SEC filing documents.
// It pairs swappable location strategies (contexts, link-labels, facts)
// with one orchestrating Scraper that routes each filing down the XBRL
// path or the older table-based path.
package scrape

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/net/html"

	"edgarscrape/pkg/core/edgar"
)

// ParseError reports a malformed or unexpectedly shaped document. It is
// recorded per filing; a multi-filing run continues past it.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Records bundles the typed records extracted from one filing.
type Records struct {
	Facts    []Fact
	Contexts []Context
	Labels   []LinkLabel
	MetaTags []MetaLinksTag

	// Anomalies lists fragments whose text stayed empty after the
	// descendant-text fallback. Recorded, not fatal.
	Anomalies []string
}

// Scraper fetches a filing's component documents and runs the active
// strategy over each. It holds exactly one strategy at a time; the three
// extraction passes swap it through SetStrategy.
type Scraper struct {
	client   *edgar.Client
	strategy Strategy
	taxonomy string
}

// NewScraper builds a Scraper on the shared EDGAR client. taxonomy selects
// the fact prefix to match, us-gaap by default.
func NewScraper(client *edgar.Client, taxonomy string) *Scraper {
	if taxonomy == "" {
		taxonomy = "us-gaap"
	}
	return &Scraper{client: client, taxonomy: taxonomy}
}

// SetStrategy swaps the active location strategy.
func (s *Scraper) SetStrategy(st Strategy) { s.strategy = st }

// Strategy returns the currently active strategy.
func (s *Scraper) Strategy() Strategy { return s.strategy }

// locate runs the given strategy over doc through the active-strategy seam.
func (s *Scraper) locate(st Strategy, doc *html.Node) []Fragment {
	s.SetStrategy(st)
	return s.strategy.Locate(doc)
}

// ScrapeFiling extracts all record kinds from one filing. The presence of
// a MetaLinks manifest in the directory index decides the path: XBRL node
// matching for manifest-bearing filings, table heuristics for older ones.
// The two paths stay structurally separate because the underlying document
// shapes are genuinely different.
func (s *Scraper) ScrapeFiling(ctx context.Context, filing edgar.Filing) (*Records, error) {
	index, err := s.client.DirectoryIndex(ctx, filing.CIK, filing.AccessionNumber)
	if err != nil {
		return nil, err
	}

	if !index.HasMetaLinks() {
		slog.Info("no MetaLinks manifest, using table fallback",
			"component", "scraper", "accession", filing.AccessionNumber)
		return s.scrapeTables(ctx, filing)
	}
	return s.scrapeXBRL(ctx, filing, index)
}

func (s *Scraper) scrapeXBRL(ctx context.Context, filing edgar.Filing, index edgar.DirectoryIndex) (*Records, error) {
	body, err := s.client.Document(ctx, filing.TextURL)
	if err != nil {
		return nil, err
	}
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, &ParseError{Source: filing.TextURL, Err: err}
	}

	recs := &Records{}

	// Pass 1: facts from the main document.
	for _, frag := range s.locate(NewFactStrategy(s.taxonomy), doc) {
		fact := FactFromFragment(frag)
		fact.AccessionNumber = filing.AccessionNumber
		if fact.Value == "" {
			recs.Anomalies = append(recs.Anomalies, "fact:"+fact.LocalKey())
		}
		recs.Facts = append(recs.Facts, fact)
	}

	// Pass 2: contexts from the main document, deduplicated on id since
	// inline XBRL repeats context definitions across the document.
	seen := make(map[string]bool)
	for _, frag := range s.locate(NewContextStrategy(), doc) {
		c := ContextFromFragment(frag)
		c.AccessionNumber = filing.AccessionNumber
		if c.ContextID == "" || seen[c.ContextID] {
			continue
		}
		seen[c.ContextID] = true
		recs.Contexts = append(recs.Contexts, c)
	}

	// Pass 3: labels from the label linkbase, when the filing ships one.
	if entry, ok := index.FindSuffix("_lab.xml"); ok {
		labBody, err := s.client.Document(ctx, entry.URL)
		if err != nil {
			return nil, err
		}
		labDoc, err := html.Parse(bytes.NewReader(labBody))
		if err != nil {
			return nil, &ParseError{Source: entry.URL, Err: err}
		}
		for _, frag := range s.locate(NewLinkLabelStrategy(), labDoc) {
			label := LinkLabelFromFragment(frag)
			label.AccessionNumber = filing.AccessionNumber
			if label.Text == "" {
				recs.Anomalies = append(recs.Anomalies, "label:"+label.LocalKey())
			}
			recs.Labels = append(recs.Labels, label)
		}
	}

	// The manifest's tag dictionary annotates extracted facts downstream.
	if raw, err := s.client.Document(ctx, index.MetaLinksURL()); err == nil {
		tags, perr := ParseMetaLinks(raw)
		if perr != nil {
			slog.Warn("unusable MetaLinks manifest",
				"component", "scraper", "accession", filing.AccessionNumber, "err", perr)
		}
		for _, tag := range tags {
			tag.AccessionNumber = filing.AccessionNumber
			recs.MetaTags = append(recs.MetaTags, tag)
		}
	}

	slog.Info("scraped filing",
		"component", "scraper",
		"accession", filing.AccessionNumber,
		"facts", len(recs.Facts),
		"contexts", len(recs.Contexts),
		"labels", len(recs.Labels),
		"anomalies", len(recs.Anomalies))
	return recs, nil
}
