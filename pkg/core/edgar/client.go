// Package edgar resolves companies and filings against the SEC EDGAR
// database: ticker lookup, submission manifests and per-filing directory
// indexes. All network access goes through the shared rate-limited
// requester.
package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"edgarscrape/pkg/core/requester"
)

// Client is the generic fetch-and-resolve capability over EDGAR. It caches
// the ticker-to-CIK mapping table for its lifetime; per-company state
// lives in CompanyClient.
type Client struct {
	req *requester.Requester

	baseAPI    string
	baseSEC    string
	baseDir    string
	tickersURL string

	mu          sync.Mutex
	cikByTicker map[string]cikEntry
}

type cikEntry struct {
	CIK    int    `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

// ClientOption customizes a Client; tests use the URL overrides to point
// at a fake origin.
type ClientOption func(*Client)

// WithBaseURLs overrides the production endpoints.
func WithBaseURLs(api, sec string) ClientOption {
	return func(c *Client) {
		c.baseAPI = strings.TrimSuffix(api, "/") + "/"
		c.baseSEC = strings.TrimSuffix(sec, "/") + "/"
		c.baseDir = c.baseSEC + "Archives/edgar/data/"
		c.tickersURL = c.baseSEC + "files/company_tickers.json"
	}
}

// NewClient builds an EDGAR client on top of the shared requester.
func NewClient(req *requester.Requester, opts ...ClientOption) *Client {
	c := &Client{
		req:        req,
		baseAPI:    BaseAPIURL,
		baseSEC:    BaseSECURL,
		baseDir:    BaseDirectoryURL,
		tickersURL: CompanyTickersURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ResolveCIK looks a ticker up in the company_tickers.json mapping table.
// The table is fetched once and cached for the client's lifetime, so
// repeated lookups cost no network calls.
func (c *Client) ResolveCIK(ctx context.Context, ticker string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cikByTicker == nil {
		resp, err := c.req.Get(ctx, c.tickersURL)
		if err != nil {
			return "", err
		}
		// Response shape: {"0": {"cik_str": 320193, "ticker": "AAPL", ...}, ...}
		var table map[string]cikEntry
		if err := json.Unmarshal(resp.Body(), &table); err != nil {
			return "", fmt.Errorf("edgar: parsing ticker mapping: %w", err)
		}
		c.cikByTicker = make(map[string]cikEntry, len(table))
		for _, entry := range table {
			c.cikByTicker[strings.ToUpper(entry.Ticker)] = entry
		}
		slog.Info("loaded ticker mapping", "component", "edgar", "entries", len(c.cikByTicker))
	}

	entry, ok := c.cikByTicker[strings.ToUpper(ticker)]
	if !ok {
		return "", &NotFoundError{Ticker: strings.ToUpper(ticker)}
	}
	return fmt.Sprintf("%010d", entry.CIK), nil
}

// submissionsResponse mirrors the manifest JSON: filing attributes arrive
// as parallel arrays plus pointers to additional pages.
type submissionsResponse struct {
	CIK            string   `json:"cik"`
	Name           string   `json:"name"`
	SIC            string   `json:"sic"`
	SICDescription string   `json:"sicDescription"`
	Tickers        []string `json:"tickers"`
	Exchanges      []string `json:"exchanges"`
	Filings        struct {
		Recent recentFilings `json:"recent"`
		Files  []struct {
			Name string `json:"name"`
		} `json:"files"`
	} `json:"filings"`
}

type recentFilings struct {
	AccessionNumber []string `json:"accessionNumber"`
	FilingDate      []string `json:"filingDate"`
	ReportDate      []string `json:"reportDate"`
	Form            []string `json:"form"`
	PrimaryDocument []string `json:"primaryDocument"`
	IsXBRL          []int    `json:"isXBRL"`
}

func (c *Client) submissions(ctx context.Context, path string) (*submissionsResponse, error) {
	url := c.baseAPI + "submissions/" + path
	resp, err := c.req.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	var sub submissionsResponse
	if err := json.Unmarshal(resp.Body(), &sub); err != nil {
		return nil, fmt.Errorf("edgar: parsing submissions %s: %w", path, err)
	}
	return &sub, nil
}

// Submissions fetches the company's full submission manifest, following
// the additional filing pages so older filings are included.
func (c *Client) Submissions(ctx context.Context, cik string) (Company, []Filing, error) {
	cik = NormalizeCIK(cik)
	main, err := c.submissions(ctx, fmt.Sprintf("CIK%s.json", cik))
	if err != nil {
		return Company{}, nil, err
	}

	company := Company{
		CIK:            cik,
		Name:           main.Name,
		SIC:            main.SIC,
		SICDescription: main.SICDescription,
		Tickers:        main.Tickers,
		Exchanges:      main.Exchanges,
	}
	if len(main.Tickers) > 0 {
		company.Ticker = main.Tickers[0]
	}

	filings := c.flattenFilings(cik, main.Filings.Recent)
	for _, page := range main.Filings.Files {
		extra, err := c.submissions(ctx, page.Name)
		if err != nil {
			return Company{}, nil, fmt.Errorf("edgar: additional filings page %s: %w", page.Name, err)
		}
		filings = append(filings, c.flattenFilings(cik, extra.Filings.Recent)...)
	}
	return company, filings, nil
}

// flattenFilings denormalizes the parallel arrays into Filing records,
// preserving manifest order (most recent first). Rows without a report
// date carry no period data and are skipped.
func (c *Client) flattenFilings(cik string, recent recentFilings) []Filing {
	filings := make([]Filing, 0, len(recent.AccessionNumber))
	for i := range recent.AccessionNumber {
		if i >= len(recent.ReportDate) || recent.ReportDate[i] == "" {
			continue
		}

		accession := recent.AccessionNumber[i]
		folder := c.baseDir + cik + "/" + strings.ReplaceAll(accession, "-", "")

		f := Filing{
			CIK:             cik,
			AccessionNumber: accession,
			FolderURL:       folder,
			TextURL:         folder + "/" + accession + ".txt",
		}
		if i < len(recent.Form) {
			f.Form = recent.Form[i]
		}
		if i < len(recent.FilingDate) {
			f.FilingDate, _ = time.Parse("2006-01-02", recent.FilingDate[i])
		}
		f.ReportDate, _ = time.Parse("2006-01-02", recent.ReportDate[i])
		if i < len(recent.PrimaryDocument) && recent.PrimaryDocument[i] != "" {
			f.PrimaryDocument = recent.PrimaryDocument[i]
			f.PrimaryDocumentURL = folder + "/" + recent.PrimaryDocument[i]
		}
		if i < len(recent.IsXBRL) {
			f.IsXBRL = recent.IsXBRL[i] == 1
		}
		filings = append(filings, f)
	}
	return filings
}

// DirectoryIndex fetches and parses a filing folder's index.json into a
// structured listing of member documents.
func (c *Client) DirectoryIndex(ctx context.Context, cik, accessionNumber string) (DirectoryIndex, error) {
	folder := c.baseDir + NormalizeCIK(cik) + "/" + strings.ReplaceAll(accessionNumber, "-", "")
	resp, err := c.req.Get(ctx, folder+"/index.json")
	if err != nil {
		return DirectoryIndex{}, err
	}

	var data struct {
		Directory struct {
			Item []struct {
				Name         string `json:"name"`
				LastModified string `json:"last-modified"`
				Size         string `json:"size"`
			} `json:"item"`
		} `json:"directory"`
	}
	if err := json.Unmarshal(resp.Body(), &data); err != nil {
		return DirectoryIndex{}, fmt.Errorf("edgar: parsing directory index for %s: %w", accessionNumber, err)
	}

	index := DirectoryIndex{FolderURL: folder}
	for _, item := range data.Directory.Item {
		index.Items = append(index.Items, DirectoryEntry{
			Name:         item.Name,
			URL:          folder + "/" + item.Name,
			LastModified: item.LastModified,
		})
	}
	return index, nil
}

// Document fetches one raw member document.
func (c *Client) Document(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.req.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	return resp.Body(), nil
}
