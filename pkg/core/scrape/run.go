package scrape

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"edgarscrape/pkg/core/edgar"
)

// Sink receives one filing's extracted records for persistence.
// Implementations must be idempotent per accession number.
type Sink interface {
	PersistFiling(ctx context.Context, filing edgar.Filing, recs *Records) error
}

// FilingFailure records why one filing in a batch failed. Filer-to-filer
// document inconsistency makes these expected, not exceptional.
type FilingFailure struct {
	AccessionNumber string    `bson:"accessionNumber" json:"accessionNumber"`
	FolderURL       string    `bson:"folderUrl" json:"folderUrl"`
	FilingDate      time.Time `bson:"filingDate" json:"filingDate"`
	Stage           string    `bson:"stage" json:"stage"`
	Reason          string    `bson:"reason" json:"reason"`
}

// RunSummary aggregates the outcome of a multi-filing scrape run.
type RunSummary struct {
	RunID     string          `bson:"runId" json:"runId"`
	Ticker    string          `bson:"ticker" json:"ticker"`
	CIK       string          `bson:"cik" json:"cik"`
	Started   time.Time       `bson:"started" json:"started"`
	Finished  time.Time       `bson:"finished" json:"finished"`
	Succeeded []string        `bson:"succeeded" json:"succeeded"`
	Failures  []FilingFailure `bson:"failures,omitempty" json:"failures,omitempty"`
	Anomalies int             `bson:"anomalies" json:"anomalies"`
}

// Run scrapes each filing in order and hands its records to sink. A
// failure on one filing is recorded and the run continues; only context
// cancellation stops the loop, at a filing boundary. sink may be nil for
// a dry run.
func (s *Scraper) Run(ctx context.Context, ticker, cik string, filings []edgar.Filing, sink Sink) *RunSummary {
	sum := &RunSummary{
		RunID:   uuid.NewString(),
		Ticker:  ticker,
		CIK:     cik,
		Started: time.Now(),
	}
	defer func() { sum.Finished = time.Now() }()

	for _, filing := range filings {
		if ctx.Err() != nil {
			slog.Warn("run cancelled", "component", "scraper", "run", sum.RunID, "err", ctx.Err())
			return sum
		}

		recs, err := s.ScrapeFiling(ctx, filing)
		if err != nil {
			slog.Error("filing failed",
				"component", "scraper", "run", sum.RunID,
				"accession", filing.AccessionNumber, "stage", "scrape", "err", err)
			sum.Failures = append(sum.Failures, FilingFailure{
				AccessionNumber: filing.AccessionNumber,
				FolderURL:       filing.FolderURL,
				FilingDate:      filing.FilingDate,
				Stage:           "scrape",
				Reason:          err.Error(),
			})
			continue
		}

		if sink != nil {
			if err := sink.PersistFiling(ctx, filing, recs); err != nil {
				slog.Error("filing failed",
					"component", "scraper", "run", sum.RunID,
					"accession", filing.AccessionNumber, "stage", "store", "err", err)
				sum.Failures = append(sum.Failures, FilingFailure{
					AccessionNumber: filing.AccessionNumber,
					FolderURL:       filing.FolderURL,
					FilingDate:      filing.FilingDate,
					Stage:           "store",
					Reason:          err.Error(),
				})
				continue
			}
		}

		sum.Succeeded = append(sum.Succeeded, filing.AccessionNumber)
		sum.Anomalies += len(recs.Anomalies)
	}
	return sum
}
