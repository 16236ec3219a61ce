// Command scraper pulls SEC EDGAR filings for a ticker, extracts XBRL
// records and persists them to MongoDB.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"edgarscrape/pkg/core/config"
	"edgarscrape/pkg/core/edgar"
	"edgarscrape/pkg/core/refdata"
	"edgarscrape/pkg/core/requester"
	"edgarscrape/pkg/core/scrape"
	"edgarscrape/pkg/core/store"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:           "scraper",
	Short:         "SEC EDGAR filing scraper",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

var (
	scrapeTicker    string
	scrapeForms     []string
	scrapeLimit     int
	scrapeOverwrite bool
	scrapeDryRun    bool
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape a company's filings and persist the extracted records",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScrape(cmd.Context())
	},
}

var (
	refdataSIC      bool
	refdataTaxonomy string
)

var refdataCmd = &cobra.Command{
	Use:   "refdata",
	Short: "Refresh the SIC list and taxonomy tag reference data",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRefdata(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	scrapeCmd.Flags().StringVarP(&scrapeTicker, "ticker", "t", "", "stock ticker to scrape (required)")
	scrapeCmd.Flags().StringSliceVar(&scrapeForms, "forms", []string{"10-K", "10-Q"}, "form types to include")
	scrapeCmd.Flags().IntVar(&scrapeLimit, "limit", 0, "maximum filings to scrape, 0 for all")
	scrapeCmd.Flags().BoolVar(&scrapeOverwrite, "overwrite", false, "replace already-stored records in place")
	scrapeCmd.Flags().BoolVar(&scrapeDryRun, "dry-run", false, "scrape without writing to the store")
	_ = scrapeCmd.MarkFlagRequired("ticker")

	refdataCmd.Flags().BoolVar(&refdataSIC, "sic", false, "refresh the SIC code list")
	refdataCmd.Flags().StringVar(&refdataTaxonomy, "taxonomy", "", "taxonomy schema URL to fetch tags from")

	rootCmd.AddCommand(scrapeCmd, refdataCmd)
}

func newRequester(cfg *config.Config) (*requester.Requester, error) {
	return requester.New(
		requester.Identity{
			Company: cfg.RequesterCompany,
			Name:    cfg.RequesterName,
			Email:   cfg.RequesterEmail,
		},
		requester.WithRateLimit(rate.Limit(cfg.RateLimit)),
	)
}

func runScrape(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	req, err := newRequester(cfg)
	if err != nil {
		return err
	}

	client := edgar.NewClient(req)
	company, err := edgar.NewCompanyClient(ctx, client, scrapeTicker)
	if err != nil {
		return err
	}
	slog.Info("resolved company", "ticker", company.Ticker, "cik", company.CIK)

	filings, err := company.Filings(ctx)
	if err != nil {
		return err
	}
	filings = selectFilings(filings, scrapeForms, scrapeLimit)
	if len(filings) == 0 {
		return fmt.Errorf("no filings match forms %v for %s", scrapeForms, scrapeTicker)
	}

	var sink scrape.Sink
	var st *store.Store
	if !scrapeDryRun {
		if cfg.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is not set; use --dry-run to scrape without a store")
		}
		st, err = store.Open(ctx, cfg.MongoURI, cfg.Database)
		if err != nil {
			return err
		}
		defer st.Close(context.Background())

		info, err := company.Company(ctx)
		if err != nil {
			return err
		}
		if _, err := st.UpsertCompany(ctx, info, scrapeOverwrite); err != nil {
			return err
		}
		if _, err := st.UpsertFilings(ctx, company.CIK, filings, scrapeOverwrite); err != nil {
			return err
		}
		sink = store.NewRunWriter(st, scrapeOverwrite)
	}

	scraper := scrape.NewScraper(client, cfg.Taxonomy)
	sum := scraper.Run(ctx, company.Ticker, company.CIK, filings, sink)

	if st != nil {
		if err := st.SaveRunSummary(ctx, sum); err != nil {
			slog.Error("saving run summary failed", "run", sum.RunID, "err", err)
		}
	}
	report(sum)

	if len(sum.Succeeded) == 0 && len(sum.Failures) > 0 {
		return fmt.Errorf("all %d filings failed", len(sum.Failures))
	}
	return nil
}

func selectFilings(filings []edgar.Filing, forms []string, limit int) []edgar.Filing {
	wanted := make(map[string]bool, len(forms))
	for _, f := range forms {
		wanted[f] = true
	}
	var out []edgar.Filing
	for _, f := range filings {
		if len(wanted) > 0 && !wanted[f.Form] {
			continue
		}
		out = append(out, f)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func report(sum *scrape.RunSummary) {
	fmt.Printf("run %s: %s (%s)\n", sum.RunID, sum.Ticker, sum.CIK)
	fmt.Printf("  succeeded: %d, failed: %d, anomalies: %d, took %s\n",
		len(sum.Succeeded), len(sum.Failures), sum.Anomalies,
		sum.Finished.Sub(sum.Started).Round(time.Millisecond))
	for _, f := range sum.Failures {
		fmt.Printf("  FAILED %s [%s]: %s\n", f.AccessionNumber, f.Stage, f.Reason)
	}
}

func runRefdata(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.MongoURI == "" {
		return fmt.Errorf("MONGO_URI is not set")
	}
	req, err := newRequester(cfg)
	if err != nil {
		return err
	}
	st, err := store.Open(ctx, cfg.MongoURI, cfg.Database)
	if err != nil {
		return err
	}
	defer st.Close(context.Background())

	if refdataSIC {
		codes, err := refdata.SICList(ctx, req)
		if err != nil {
			return err
		}
		sum, err := st.UpsertSICCodes(ctx, codes, true)
		if err != nil {
			return err
		}
		slog.Info("SIC list refreshed", "codes", len(codes), "upserted", sum.Upserted)
	}
	if refdataTaxonomy != "" {
		tags, err := refdata.TaxonomyTags(ctx, req, refdataTaxonomy)
		if err != nil {
			return err
		}
		slog.Info("taxonomy tags fetched", "url", refdataTaxonomy, "tags", len(tags))
	}
	if !refdataSIC && refdataTaxonomy == "" {
		return fmt.Errorf("nothing to do: pass --sic and/or --taxonomy <url>")
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("scraper failed", "err", err)
		os.Exit(1)
	}
}
