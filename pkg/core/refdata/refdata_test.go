package refdata_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"edgarscrape/pkg/core/refdata"
	"edgarscrape/pkg/core/requester"
)

const sicFixture = `<html><body>
<table class="list">
  <tr><th>SIC Code</th><th>Office</th><th>Industry Title</th></tr>
  <tr><td>100</td><td>Industrial Applications and Services</td><td>AGRICULTURAL PRODUCTION-CROPS</td></tr>
  <tr><td>200</td><td>Industrial Applications and Services</td><td>AGRICULTURAL PROD-LIVESTOCK &amp; ANIMAL SPECIALTIES</td></tr>
  <tr><td></td><td>ignored</td><td>row without a code</td></tr>
</table>
</body></html>`

const xsdFixture = `<?xml version="1.0" encoding="UTF-8"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
  <xs:element id="us-gaap_Revenues" name="Revenues" type="xbrli:monetaryItemType"
    substitutionGroup="xbrli:item" xbrli:periodType="duration" abstract="false"/>
  <xs:element id="us-gaap_Assets" name="Assets" type="xbrli:monetaryItemType"
    substitutionGroup="xbrli:item" xbrli:periodType="instant"/>
  <xs:element id="us-gaap_StatementTable" name="StatementTable" abstract="true"/>
</xs:schema>`

func newRefdataRequester(t *testing.T) *requester.Requester {
	t.Helper()
	req, err := requester.New(
		requester.Identity{Company: "Acme Research", Name: "Jane Doe", Email: "jane@acme.example"},
		requester.WithRateLimit(rate.Inf),
	)
	require.NoError(t, err)
	return req
}

func TestSICListParsesRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sicFixture))
	}))
	defer srv.Close()

	codes, err := refdata.SICListFrom(context.Background(), newRefdataRequester(t), srv.URL)
	require.NoError(t, err)
	require.Len(t, codes, 2)
	require.Equal(t, "100", codes[0].Code)
	require.Equal(t, "AGRICULTURAL PRODUCTION-CROPS", codes[0].Title)
	require.Equal(t, "Industrial Applications and Services", codes[1].Office)
}

func TestSICListEmptyTableFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><p>moved</p></body></html>`))
	}))
	defer srv.Close()

	_, err := refdata.SICListFrom(context.Background(), newRefdataRequester(t), srv.URL)
	require.Error(t, err)
}

func TestTaxonomyTagsNormalizesIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(xsdFixture))
	}))
	defer srv.Close()

	tags, err := refdata.TaxonomyTags(context.Background(), newRefdataRequester(t), srv.URL)
	require.NoError(t, err)
	require.Len(t, tags, 3)

	byID := make(map[string]refdata.TaxonomyTag)
	for _, tag := range tags {
		byID[tag.ID] = tag
	}
	rev := byID["us-gaap:revenues"]
	require.Equal(t, "Revenues", rev.Name)
	require.Equal(t, "duration", rev.PeriodType)
	require.False(t, rev.Abstract)

	require.Equal(t, "instant", byID["us-gaap:assets"].PeriodType)
	require.True(t, byID["us-gaap:statementtable"].Abstract)
}
