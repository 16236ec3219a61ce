// Package refdata fetches the static reference lists the core consumes
// read-only: the SEC industry classification (SIC) table and the taxonomy
// tag dictionaries. These are single-shot GET-and-parse operations with no
// extraction ambiguity.
package refdata

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"edgarscrape/pkg/core/requester"
)

const (
	// SICListURL is the corporation-finance SIC code list page.
	SICListURL = "https://www.sec.gov/corpfin/division-of-corporation-finance-standard-industrial-classification-sic-code-list"

	// Taxonomy schema URLs; bump the year for a newer vintage.
	USGAAPTaxonomyURL = "http://xbrl.fasb.org/us-gaap/2024/elts/us-gaap-2024.xsd"
	SRTTaxonomyURL    = "http://xbrl.fasb.org/srt/2024/elts/srt-std-2024.xsd"
)

// SICCode classifies a filer's industry.
type SICCode struct {
	Code   string `bson:"code" json:"code"`
	Office string `bson:"office" json:"office"`
	Title  string `bson:"title" json:"title"`
}

// SICList scrapes the SIC code table from the SEC reference page.
func SICList(ctx context.Context, req *requester.Requester) ([]SICCode, error) {
	return SICListFrom(ctx, req, SICListURL)
}

// SICListFrom is SICList against an explicit URL, used by tests.
func SICListFrom(ctx context.Context, req *requester.Requester, url string) ([]SICCode, error) {
	resp, err := req.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("refdata: parsing SIC list: %w", err)
	}

	var codes []SICCode
	doc.Find("table.list tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 3 {
			return
		}
		code := SICCode{
			Code:   strings.TrimSpace(cells.Eq(0).Text()),
			Office: strings.TrimSpace(cells.Eq(1).Text()),
			Title:  strings.TrimSpace(cells.Eq(2).Text()),
		}
		if code.Code == "" {
			return
		}
		codes = append(codes, code)
	})
	if len(codes) == 0 {
		return nil, fmt.Errorf("refdata: no SIC rows found at %s", url)
	}
	return codes, nil
}

// TaxonomyTag is one reporting concept from a taxonomy schema.
type TaxonomyTag struct {
	ID                string `bson:"id" json:"id"`
	Name              string `bson:"name" json:"name"`
	Type              string `bson:"type,omitempty" json:"type,omitempty"`
	SubstitutionGroup string `bson:"substitutionGroup,omitempty" json:"substitutionGroup,omitempty"`
	PeriodType        string `bson:"periodType,omitempty" json:"periodType,omitempty"`
	Abstract          bool   `bson:"abstract" json:"abstract"`
}

// TaxonomyTags fetches a taxonomy schema and extracts its element
// dictionary. IDs are normalized from "us-gaap_Revenues" to the
// "us-gaap:revenues" form used for label joins.
func TaxonomyTags(ctx context.Context, req *requester.Requester, xsdURL string) ([]TaxonomyTag, error) {
	resp, err := req.Get(ctx, xsdURL)
	if err != nil {
		return nil, err
	}
	doc, err := html.Parse(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("refdata: parsing taxonomy schema: %w", err)
	}

	var tags []TaxonomyTag
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "xs:element" {
			tag := TaxonomyTag{}
			for _, a := range n.Attr {
				switch a.Key {
				case "id":
					tag.ID = normalizeTagID(a.Val)
				case "name":
					tag.Name = a.Val
				case "type":
					tag.Type = a.Val
				case "substitutiongroup":
					tag.SubstitutionGroup = a.Val
				case "xbrli:periodtype":
					tag.PeriodType = a.Val
				case "abstract":
					tag.Abstract = a.Val == "true"
				}
			}
			if tag.ID != "" {
				tags = append(tags, tag)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(doc)

	if len(tags) == 0 {
		return nil, fmt.Errorf("refdata: no xs:element entries at %s", xsdURL)
	}
	return tags, nil
}

// normalizeTagID rewrites "us-gaap_Revenues" as "us-gaap:revenues".
func normalizeTagID(id string) string {
	parts := strings.SplitN(id, "_", 2)
	if len(parts) == 2 {
		return strings.ToLower(parts[0] + ":" + parts[1])
	}
	return strings.ToLower(id)
}
