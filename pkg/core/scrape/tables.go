package scrape

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"edgarscrape/pkg/core/edgar"
)

// scrapeTables handles filings that predate the MetaLinks manifest. Their
// primary text is an undifferentiated set of HTML tables, so facts are
// recovered with row heuristics instead of XBRL node matching: the first
// cell of a row names the line item, the first numeric cell carries its
// value.
func (s *Scraper) scrapeTables(ctx context.Context, filing edgar.Filing) (*Records, error) {
	body, err := s.client.Document(ctx, filing.TextURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &ParseError{Source: filing.TextURL, Err: err}
	}

	recs := &Records{}
	doc.Find("table").Each(func(ti int, table *goquery.Selection) {
		table.Find("tr").Each(func(ri int, row *goquery.Selection) {
			cells := row.Find("td, th")
			if cells.Length() < 2 {
				return
			}

			label := strings.TrimSpace(cells.First().Text())
			if label == "" || looksNumeric(label) {
				return
			}

			value := ""
			cells.EachWithBreak(func(ci int, cell *goquery.Selection) bool {
				if ci == 0 {
					return true
				}
				if v, ok := numericCell(cell.Text()); ok {
					value = v
					return false
				}
				return true
			})
			if value == "" {
				return
			}

			recs.Facts = append(recs.Facts, Fact{
				AccessionNumber: filing.AccessionNumber,
				FactID:          fmt.Sprintf("table-%d-%d", ti, ri),
				Name:            label,
				Value:           value,
			})
		})
	})
	return recs, nil
}

// numericCell interprets one table cell as a monetary or count value:
// currency symbols and thousands separators are stripped, parentheses
// negate.
func numericCell(s string) (string, bool) {
	t := strings.TrimSpace(s)
	neg := strings.HasPrefix(t, "(") && strings.HasSuffix(t, ")")
	t = strings.Trim(t, "()")
	t = strings.ReplaceAll(t, "$", "")
	t = strings.ReplaceAll(t, ",", "")
	t = strings.TrimSpace(t)
	if t == "" || t == "-" || t == "—" {
		return "", false
	}
	if _, err := strconv.ParseFloat(t, 64); err != nil {
		return "", false
	}
	if neg {
		t = "-" + t
	}
	return t, true
}

func looksNumeric(s string) bool {
	_, ok := numericCell(s)
	return ok
}
