package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"edgarscrape/pkg/core/edgar"
	"edgarscrape/pkg/core/requester"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const (
	testCIK       = "0000320193"
	testAccession = "0000320193-24-000002"
	testFolder    = "/Archives/edgar/data/" + testCIK + "/000032019324000002"
)

const metaLinksFixture = `{
  "instance": {
    "aapl-20231230.htm": {
      "tag": {
        "us-gaap:Revenues": {
          "localname": "Revenues",
          "lang": {"en-US": {"role": {"label": "Revenues", "terseLabel": "Net sales"}}}
        },
        "us-gaap:Assets": {
          "localname": "Assets",
          "lang": {"en-US": {"role": {"label": "Total assets"}}}
        }
      }
    }
  }
}`

const tableFixture = `
<html><body>
<p>CONSOLIDATED STATEMENTS OF OPERATIONS</p>
<table>
  <tr><td>Total revenues</td><td>$ 1,234</td></tr>
  <tr><td>Cost of sales</td><td>$ 567</td></tr>
  <tr><td>Net income (loss)</td><td>(56)</td></tr>
  <tr><td>Header only</td><td>n/a</td></tr>
</table>
</body></html>`

func newScrapeOrigin(t *testing.T, withMetaLinks bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	// Serve any filing folder under the test CIK so batch tests can vary
	// the accession number; unknown CIKs fall through to a 404.
	mux.HandleFunc("/Archives/edgar/data/"+testCIK+"/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/index.json"):
			items := `{"name": "aapl-20231230_lab.xml"}, {"name": "0000320193-24-000002.txt"}`
			if withMetaLinks {
				items = `{"name": "MetaLinks.json"}, ` + items
			}
			fmt.Fprintf(w, `{"directory": {"item": [%s]}}`, items)
		case strings.HasSuffix(r.URL.Path, ".txt"):
			if withMetaLinks {
				fmt.Fprint(w, xbrlFixture)
			} else {
				fmt.Fprint(w, tableFixture)
			}
		case strings.HasSuffix(r.URL.Path, "_lab.xml"):
			fmt.Fprint(w, labFixture)
		case strings.HasSuffix(r.URL.Path, "/MetaLinks.json"):
			fmt.Fprint(w, metaLinksFixture)
		default:
			http.NotFound(w, r)
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestScraper(t *testing.T, srv *httptest.Server) *Scraper {
	t.Helper()
	req, err := requester.New(
		requester.Identity{Company: "Acme Research", Name: "Jane Doe", Email: "jane@acme.example"},
		requester.WithRateLimit(rate.Inf),
	)
	require.NoError(t, err)
	client := edgar.NewClient(req, edgar.WithBaseURLs(srv.URL, srv.URL))
	return NewScraper(client, "us-gaap")
}

func testFiling(srv *httptest.Server) edgar.Filing {
	folder := srv.URL + testFolder
	return edgar.Filing{
		CIK:             testCIK,
		AccessionNumber: testAccession,
		Form:            "10-Q",
		FolderURL:       folder,
		TextURL:         folder + "/" + testAccession + ".txt",
	}
}

func TestScrapeFilingXBRLPath(t *testing.T) {
	srv := newScrapeOrigin(t, true)
	s := newTestScraper(t, srv)

	recs, err := s.ScrapeFiling(context.Background(), testFiling(srv))
	require.NoError(t, err)

	require.Len(t, recs.Facts, 3)
	require.Len(t, recs.Contexts, 2)
	require.Len(t, recs.Labels, 2)
	require.Len(t, recs.MetaTags, 2)

	// Every record carries the accession number and a unique local key
	// within its kind; no record appears twice.
	keys := make(map[string]bool)
	for _, f := range recs.Facts {
		require.Equal(t, testAccession, f.AccessionNumber)
		require.False(t, keys["fact:"+f.LocalKey()])
		keys["fact:"+f.LocalKey()] = true
	}
	for _, c := range recs.Contexts {
		require.Equal(t, testAccession, c.AccessionNumber)
		require.False(t, keys["context:"+c.LocalKey()])
		keys["context:"+c.LocalKey()] = true
	}
	for _, l := range recs.Labels {
		require.Equal(t, testAccession, l.AccessionNumber)
		require.False(t, keys["label:"+l.LocalKey()])
		keys["label:"+l.LocalKey()] = true
	}
	// Union covers every tagged node in the two documents: 3 facts + 2
	// contexts in the main document, 2 labels in the linkbase.
	require.Len(t, keys, 7)
}

func TestScrapeFilingTableFallback(t *testing.T) {
	srv := newScrapeOrigin(t, false)
	s := newTestScraper(t, srv)

	recs, err := s.ScrapeFiling(context.Background(), testFiling(srv))
	require.NoError(t, err)

	require.NotEmpty(t, recs.Facts, "fallback path must still yield fact-equivalent records")
	require.Len(t, recs.Facts, 3, "the n/a row carries no numeric cell")

	byName := make(map[string]string)
	for _, f := range recs.Facts {
		byName[f.Name] = f.Value
	}
	require.Equal(t, "1234", byName["Total revenues"])
	require.Equal(t, "567", byName["Cost of sales"])
	require.Equal(t, "-56", byName["Net income (loss)"])
}

type recordingSink struct {
	persisted []string
	failOn    string
}

func (s *recordingSink) PersistFiling(ctx context.Context, filing edgar.Filing, recs *Records) error {
	if filing.AccessionNumber == s.failOn {
		return fmt.Errorf("store rejected %s", filing.AccessionNumber)
	}
	s.persisted = append(s.persisted, filing.AccessionNumber)
	return nil
}

func TestRunPartialFailure(t *testing.T) {
	srv := newScrapeOrigin(t, true)
	s := newTestScraper(t, srv)

	good := testFiling(srv)
	var filings []edgar.Filing
	for i := 0; i < 5; i++ {
		f := good
		f.AccessionNumber = fmt.Sprintf("0000320193-24-0000%02d", i+1)
		if i == 2 {
			// Filing #3 points at a directory the origin does not serve.
			f.CIK = "0000999999"
		}
		filings = append(filings, f)
	}

	sink := &recordingSink{}
	sum := s.Run(context.Background(), "AAPL", testCIK, filings, sink)

	require.NotEmpty(t, sum.RunID)
	require.Len(t, sum.Succeeded, 4, "failure on filing #3 must not stop the batch")
	require.Len(t, sum.Failures, 1)
	require.Equal(t, "0000320193-24-000003", sum.Failures[0].AccessionNumber)
	require.Equal(t, "scrape", sum.Failures[0].Stage)
	require.Len(t, sink.persisted, 4)
}

func TestRunRecordsStoreFailures(t *testing.T) {
	srv := newScrapeOrigin(t, true)
	s := newTestScraper(t, srv)

	f := testFiling(srv)
	sink := &recordingSink{failOn: f.AccessionNumber}
	sum := s.Run(context.Background(), "AAPL", testCIK, []edgar.Filing{f}, sink)

	require.Empty(t, sum.Succeeded)
	require.Len(t, sum.Failures, 1)
	require.Equal(t, "store", sum.Failures[0].Stage)
}

func TestRunStopsAtFilingBoundaryOnCancel(t *testing.T) {
	srv := newScrapeOrigin(t, true)
	s := newTestScraper(t, srv)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum := s.Run(ctx, "AAPL", testCIK, []edgar.Filing{testFiling(srv)}, nil)
	require.Empty(t, sum.Succeeded)
	require.Empty(t, sum.Failures)
}
