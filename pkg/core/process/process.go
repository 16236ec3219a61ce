// Package process turns raw extracted records into a tabular view: facts
// joined onto their contexts and labels, values parsed to numbers, and
// reporting periods bucketed into standard "N Months Ended" spans.
package process

import (
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"edgarscrape/pkg/core/scrape"
)

// MergedFact is one fact row with its period and label resolved.
type MergedFact struct {
	AccessionNumber string  `bson:"accessionNumber" json:"accessionNumber"`
	Name            string  `bson:"factName" json:"factName"`
	Label           string  `bson:"label,omitempty" json:"label,omitempty"`
	StandardName    string  `bson:"standardName,omitempty" json:"standardName,omitempty"`
	Value           float64 `bson:"value" json:"value"`
	RawValue        string  `bson:"rawValue" json:"rawValue"`
	Numeric         bool    `bson:"numeric" json:"numeric"`
	ContextID       string  `bson:"contextId,omitempty" json:"contextId,omitempty"`
	Segment         string  `bson:"segment,omitempty" json:"segment,omitempty"`
	StartDate       string  `bson:"startDate,omitempty" json:"startDate,omitempty"`
	EndDate         string  `bson:"endDate,omitempty" json:"endDate,omitempty"`
	Instant         string  `bson:"instant,omitempty" json:"instant,omitempty"`
	Period          string  `bson:"period,omitempty" json:"period,omitempty"`
}

// Merge joins facts onto their contexts and labels. Facts whose contextRef
// resolves to no known context keep their value but carry no period; the
// join never drops a fact.
func Merge(facts []scrape.Fact, contexts []scrape.Context, labels []scrape.LinkLabel) []MergedFact {
	ctxByID := make(map[string]scrape.Context, len(contexts))
	for _, c := range contexts {
		ctxByID[c.ContextID] = c
	}
	labelByKey := make(map[string]string, len(labels))
	for _, l := range labels {
		// Prefer the plain label role; fall back to whatever role appears
		// first for the key.
		if strings.EqualFold(l.Role, "label") || labelByKey[l.Key] == "" {
			labelByKey[l.Key] = l.Text
		}
	}

	rows := make([]MergedFact, 0, len(facts))
	for _, f := range facts {
		row := MergedFact{
			AccessionNumber: f.AccessionNumber,
			Name:            f.Name,
			Label:           labelByKey[strings.ToLower(f.Name)],
			RawValue:        f.Value,
		}
		row.Value, row.Numeric = parseNumeric(f.Value)

		if c, ok := ctxByID[f.ContextRef]; ok {
			row.ContextID = c.ContextID
			row.Segment = c.Segment
			row.StartDate = c.StartDate
			row.EndDate = c.EndDate
			row.Instant = c.Instant
			row.Period = periodBucket(c)
		} else if f.ContextRef != "" {
			slog.Debug("fact references unknown context",
				"component", "process", "fact", f.Name, "contextRef", f.ContextRef)
		}
		rows = append(rows, row)
	}
	return rows
}

// Translate rewrites each row's StandardName from its label using the
// reversed standard-name mapping (label -> canonical name). Rows with no
// mapped label keep an empty StandardName.
func Translate(rows []MergedFact, reverse map[string]string) []MergedFact {
	for i := range rows {
		if std, ok := reverse[rows[i].Label]; ok {
			rows[i].StandardName = std
		}
	}
	return rows
}

// parseNumeric cleans a reported value and parses it. Parenthesized values
// are negative, currency symbols and thousands separators are stripped.
func parseNumeric(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = strings.NewReplacer("$", "", ",", "", " ", "", " ", "").Replace(s)
	if s == "" || s == "-" || s == "—" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		v = -v
	}
	return v, true
}

const daysPerMonth = 30.4375

// periodBucket maps a context's date span to the standard reporting period
// names. Instant contexts and unparseable dates bucket to empty.
func periodBucket(c scrape.Context) string {
	if c.StartDate == "" || c.EndDate == "" {
		return ""
	}
	start, err := time.Parse("2006-01-02", c.StartDate)
	if err != nil {
		return ""
	}
	end, err := time.Parse("2006-01-02", c.EndDate)
	if err != nil {
		return ""
	}
	months := math.Round(end.Sub(start).Hours() / 24 / daysPerMonth)
	switch months {
	case 3:
		return "Three Months Ended"
	case 6:
		return "Six Months Ended"
	case 9:
		return "Nine Months Ended"
	case 12:
		return "Twelve Months Ended"
	}
	return ""
}
