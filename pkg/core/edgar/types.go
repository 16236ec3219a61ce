package edgar

import (
	"fmt"
	"strings"
	"time"
)

// SEC EDGAR endpoints. The data host serves the JSON APIs, the www host
// serves archives and reference pages.
const (
	BaseAPIURL        = "https://data.sec.gov/"
	BaseSECURL        = "https://www.sec.gov/"
	BaseDirectoryURL  = "https://www.sec.gov/Archives/edgar/data/"
	CompanyTickersURL = "https://www.sec.gov/files/company_tickers.json"
)

// MetaLinksFile is the manifest present in filing directories from 2018
// onward. Its presence discriminates the XBRL extraction path from the
// older table-based path.
const MetaLinksFile = "MetaLinks.json"

// Company is the resolved identity of one filer. Built once per run from
// the submissions manifest and not mutated afterwards.
type Company struct {
	CIK            string   `bson:"cik" json:"cik"`
	Ticker         string   `bson:"ticker" json:"ticker"`
	Name           string   `bson:"name" json:"name"`
	SIC            string   `bson:"sic,omitempty" json:"sic,omitempty"`
	SICDescription string   `bson:"sicDescription,omitempty" json:"sicDescription,omitempty"`
	Tickers        []string `bson:"tickers,omitempty" json:"tickers,omitempty"`
	Exchanges      []string `bson:"exchanges,omitempty" json:"exchanges,omitempty"`
}

// Filing is one submission, denormalized from the manifest's parallel
// arrays. AccessionNumber is the natural key for deduplication.
type Filing struct {
	CIK             string    `bson:"cik" json:"cik"`
	AccessionNumber string    `bson:"accessionNumber" json:"accessionNumber"`
	Form            string    `bson:"form" json:"form"`
	FilingDate      time.Time `bson:"filingDate" json:"filingDate"`
	ReportDate      time.Time `bson:"reportDate,omitempty" json:"reportDate,omitempty"`
	PrimaryDocument string    `bson:"primaryDocument,omitempty" json:"primaryDocument,omitempty"`
	IsXBRL          bool      `bson:"isXBRL" json:"isXBRL"`

	// FolderURL is the filing's directory; PrimaryDocumentURL and TextURL
	// point at the member documents inside it.
	FolderURL          string `bson:"folderUrl" json:"folderUrl"`
	PrimaryDocumentURL string `bson:"primaryDocumentUrl,omitempty" json:"primaryDocumentUrl,omitempty"`
	TextURL            string `bson:"textUrl" json:"textUrl"`
}

// DirectoryEntry is one document inside a filing's directory.
type DirectoryEntry struct {
	Name         string `json:"name"`
	URL          string `json:"url"`
	LastModified string `json:"lastModified,omitempty"`
	Size         int64  `json:"size,omitempty"`
}

// DirectoryIndex is the parsed index.json listing of one filing's folder.
type DirectoryIndex struct {
	FolderURL string
	Items     []DirectoryEntry
}

// HasMetaLinks reports whether the filing ships a MetaLinks manifest.
func (d DirectoryIndex) HasMetaLinks() bool {
	_, ok := d.Find(MetaLinksFile)
	return ok
}

// MetaLinksURL returns the manifest URL; valid only when HasMetaLinks.
func (d DirectoryIndex) MetaLinksURL() string {
	if entry, ok := d.Find(MetaLinksFile); ok {
		return entry.URL
	}
	return ""
}

// Find returns the entry with the exact name.
func (d DirectoryIndex) Find(name string) (DirectoryEntry, bool) {
	for _, item := range d.Items {
		if item.Name == name {
			return item, true
		}
	}
	return DirectoryEntry{}, false
}

// FindSuffix returns the first entry whose name ends with suffix, used to
// locate the XBRL component files (_lab.xml, _def.xml, _cal.xml, _pre.xml).
func (d DirectoryIndex) FindSuffix(suffix string) (DirectoryEntry, bool) {
	for _, item := range d.Items {
		if strings.HasSuffix(item.Name, suffix) {
			return item, true
		}
	}
	return DirectoryEntry{}, false
}

// NormalizeCIK zero-pads a CIK to the ten digits the APIs expect.
func NormalizeCIK(cik string) string {
	return fmt.Sprintf("%010s", strings.TrimLeft(cik, "0"))
}

// NotFoundError reports a ticker absent from the authoritative mapping
// table. It is fatal to the single lookup, not to the run.
type NotFoundError struct {
	Ticker string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("edgar: ticker %s not found", e.Ticker)
}
