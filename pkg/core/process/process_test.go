package process

import (
	"testing"

	"github.com/stretchr/testify/require"

	"edgarscrape/pkg/core/scrape"
)

func TestMergeJoinsContextAndLabel(t *testing.T) {
	facts := []scrape.Fact{
		{AccessionNumber: "acc-1", Name: "us-gaap:revenues", ContextRef: "C1", Value: "1,234"},
		{AccessionNumber: "acc-1", Name: "us-gaap:assets", ContextRef: "C2", Value: "9,999"},
		{AccessionNumber: "acc-1", Name: "us-gaap:other", ContextRef: "MISSING", Value: "5"},
	}
	contexts := []scrape.Context{
		{ContextID: "C1", StartDate: "2024-01-01", EndDate: "2024-03-31"},
		{ContextID: "C2", Instant: "2024-03-31", Segment: "Geography=US"},
	}
	labels := []scrape.LinkLabel{
		{Key: "us-gaap:revenues", Role: "label", Text: "Revenues"},
		{Key: "us-gaap:revenues", Role: "terseLabel", Text: "Net sales"},
	}

	rows := Merge(facts, contexts, labels)
	require.Len(t, rows, 3, "the join must never drop a fact")

	rev := rows[0]
	require.Equal(t, "Revenues", rev.Label, "the plain label role wins over terse")
	require.Equal(t, 1234.0, rev.Value)
	require.True(t, rev.Numeric)
	require.Equal(t, "Three Months Ended", rev.Period)

	assets := rows[1]
	require.Equal(t, "Geography=US", assets.Segment)
	require.Equal(t, "2024-03-31", assets.Instant)
	require.Empty(t, assets.Period, "instant contexts have no duration bucket")

	orphan := rows[2]
	require.Empty(t, orphan.ContextID)
	require.Equal(t, 5.0, orphan.Value)
}

func TestMergeLabelFallbackRole(t *testing.T) {
	facts := []scrape.Fact{{Name: "us-gaap:assets", Value: "1"}}
	labels := []scrape.LinkLabel{{Key: "us-gaap:assets", Role: "terseLabel", Text: "Assets"}}

	rows := Merge(facts, nil, labels)
	require.Equal(t, "Assets", rows[0].Label)
}

func TestTranslateAppliesStandardNames(t *testing.T) {
	rows := []MergedFact{
		{Label: "Revenues"},
		{Label: "Unmapped label"},
	}
	reverse := map[string]string{"Revenues": "revenue"}

	rows = Translate(rows, reverse)
	require.Equal(t, "revenue", rows[0].StandardName)
	require.Empty(t, rows[1].StandardName)
}

func TestParseNumeric(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"1,234", 1234, true},
		{"$5,000", 5000, true},
		{"(567)", -567, true},
		{"($1,000)", -1000, true},
		{"12.5", 12.5, true},
		{"-", 0, false},
		{"—", 0, false},
		{"", 0, false},
		{"n/a", 0, false},
	}
	for _, tc := range cases {
		v, ok := parseNumeric(tc.raw)
		require.Equal(t, tc.ok, ok, tc.raw)
		require.Equal(t, tc.want, v, tc.raw)
	}
}

func TestPeriodBuckets(t *testing.T) {
	cases := []struct {
		start, end, want string
	}{
		{"2024-01-01", "2024-03-31", "Three Months Ended"},
		{"2024-01-01", "2024-06-30", "Six Months Ended"},
		{"2023-10-01", "2024-06-30", "Nine Months Ended"},
		{"2023-07-01", "2024-06-30", "Twelve Months Ended"},
		{"2024-01-01", "2024-01-31", ""},
		{"not-a-date", "2024-06-30", ""},
	}
	for _, tc := range cases {
		got := periodBucket(scrape.Context{StartDate: tc.start, EndDate: tc.end})
		require.Equal(t, tc.want, got, "%s..%s", tc.start, tc.end)
	}
}
