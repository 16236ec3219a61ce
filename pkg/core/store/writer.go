package store

import (
	"context"

	"edgarscrape/pkg/core/edgar"
	"edgarscrape/pkg/core/scrape"
)

// RunWriter adapts a Store to the scraper's Sink interface, carrying the
// run's overwrite policy. Upserts for different accession numbers are
// independent; the store's key uniqueness serializes writes per key.
type RunWriter struct {
	store     *Store
	overwrite bool
}

// NewRunWriter builds a Sink that persists every record kind for a filing.
func NewRunWriter(s *Store, overwrite bool) *RunWriter {
	return &RunWriter{store: s, overwrite: overwrite}
}

// PersistFiling implements scrape.Sink.
func (w *RunWriter) PersistFiling(ctx context.Context, filing edgar.Filing, recs *scrape.Records) error {
	if _, err := w.store.UpsertFacts(ctx, filing.AccessionNumber, recs.Facts, w.overwrite); err != nil {
		return err
	}
	if _, err := w.store.UpsertContexts(ctx, filing.AccessionNumber, recs.Contexts, w.overwrite); err != nil {
		return err
	}
	if _, err := w.store.UpsertLabels(ctx, filing.AccessionNumber, recs.Labels, w.overwrite); err != nil {
		return err
	}
	if _, err := w.store.UpsertMetaTags(ctx, filing.AccessionNumber, recs.MetaTags, w.overwrite); err != nil {
		return err
	}
	return nil
}
