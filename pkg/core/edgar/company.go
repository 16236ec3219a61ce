package edgar

import (
	"context"
	"sync"
)

// CompanyClient is the ticker-scoped aggregate: it holds the generic
// Client by composition and caches this company's manifest so submissions
// are fetched at most once per instance.
type CompanyClient struct {
	client *Client

	Ticker string
	CIK    string

	mu      sync.Mutex
	loaded  bool
	company Company
	filings []Filing
}

// NewCompanyClient resolves the ticker eagerly; an unknown ticker fails
// here with *NotFoundError rather than on first use.
func NewCompanyClient(ctx context.Context, client *Client, ticker string) (*CompanyClient, error) {
	cik, err := client.ResolveCIK(ctx, ticker)
	if err != nil {
		return nil, err
	}
	return &CompanyClient{client: client, Ticker: ticker, CIK: cik}, nil
}

func (c *CompanyClient) load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return nil
	}
	company, filings, err := c.client.Submissions(ctx, c.CIK)
	if err != nil {
		return err
	}
	company.Ticker = c.Ticker
	c.company, c.filings, c.loaded = company, filings, true
	return nil
}

// Company returns the filer's resolved identity.
func (c *CompanyClient) Company(ctx context.Context) (Company, error) {
	if err := c.load(ctx); err != nil {
		return Company{}, err
	}
	return c.company, nil
}

// Filings returns the filing list in manifest order, most recent first.
func (c *CompanyClient) Filings(ctx context.Context) ([]Filing, error) {
	if err := c.load(ctx); err != nil {
		return nil, err
	}
	return c.filings, nil
}

// LatestOfForm returns the first filing of the given form type in manifest
// order; ok is false when the company has never filed that form.
func (c *CompanyClient) LatestOfForm(ctx context.Context, form string) (Filing, bool, error) {
	filings, err := c.Filings(ctx)
	if err != nil {
		return Filing{}, false, err
	}
	for _, f := range filings {
		if f.Form == form {
			return f, true, nil
		}
	}
	return Filing{}, false, nil
}

// Forms returns the distinct form types this company has filed, in first
// appearance order.
func (c *CompanyClient) Forms(ctx context.Context) ([]string, error) {
	filings, err := c.Filings(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var forms []string
	for _, f := range filings {
		if !seen[f.Form] {
			seen[f.Form] = true
			forms = append(forms, f.Form)
		}
	}
	return forms, nil
}

// DirectoryIndex fetches the directory listing for one of this company's
// filings.
func (c *CompanyClient) DirectoryIndex(ctx context.Context, filing Filing) (DirectoryIndex, error) {
	return c.client.DirectoryIndex(ctx, c.CIK, filing.AccessionNumber)
}
