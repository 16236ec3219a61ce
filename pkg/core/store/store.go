// Package store persists extracted filing records into MongoDB with
// idempotent per-accession upsert semantics. Facts, contexts and labels
// are sharded into their own collections instead of being embedded in the
// filing document: one filing's fact set can exceed the store's maximum
// document size, so embedding risks write rejection.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"edgarscrape/pkg/core/edgar"
	"edgarscrape/pkg/core/refdata"
	"edgarscrape/pkg/core/scrape"
)

// Collection layout, partitioned by record role.
const (
	collCompanies = "TickerData"
	collFilings   = "TickerFilings"
	collFacts     = "Facts"
	collContexts  = "Contexts"
	collLabels    = "Labels"
	collMetaTags  = "MetaTags"
	collSIC       = "SICList"
	collRuns      = "ScrapeRuns"
)

// WriteError reports a rejected upsert with the offending key. Writes are
// never silently dropped.
type WriteError struct {
	Collection string
	Key        string
	Err        error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("store: write to %s rejected for key %q: %v", e.Collection, e.Key, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Summary reports the effect of one upsert batch.
type Summary struct {
	Matched  int64
	Modified int64
	Upserted int64
}

// Store owns the MongoDB connection and the collection handles.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open connects to the store, verifies reachability and ensures the
// uniqueness indexes that back idempotent upserts. An unreachable store is
// a configuration failure that aborts the run.
func Open(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("store: connecting: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("store: ping failed: %w", err)
	}

	s := &Store{client: client, db: client.Database(dbName)}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	slog.Info("store ready", "component", "store", "database", dbName)
	return s, nil
}

// Close releases the connection.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	asc := func(keys ...string) bson.D {
		d := bson.D{}
		for _, k := range keys {
			d = append(d, bson.E{Key: k, Value: 1})
		}
		return d
	}
	unique := options.Index().SetUnique(true)

	indexes := map[string][]mongo.IndexModel{
		collCompanies: {{Keys: asc("cik"), Options: unique}},
		collFilings: {
			{Keys: asc("accessionNumber"), Options: unique},
			{Keys: asc("form")},
		},
		collFacts:    {{Keys: asc("accessionNumber", "localKey"), Options: unique}},
		collContexts: {{Keys: asc("accessionNumber", "localKey"), Options: unique}},
		collLabels:   {{Keys: asc("accessionNumber", "localKey"), Options: unique}},
		collMetaTags: {{Keys: asc("accessionNumber", "localKey"), Options: unique}},
		collSIC:      {{Keys: asc("code"), Options: unique}},
	}
	for coll, models := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("store: creating indexes on %s: %w", coll, err)
		}
	}
	return nil
}

// upsertModel builds the write for one keyed document. overwrite=true
// replaces the document in place; overwrite=false only writes when the key
// does not exist yet, so a re-run is an exact no-op.
func upsertModel(filter bson.D, doc bson.M, overwrite bool) mongo.WriteModel {
	op := "$setOnInsert"
	if overwrite {
		op = "$set"
	}
	return mongo.NewUpdateOneModel().
		SetFilter(filter).
		SetUpdate(bson.D{{Key: op, Value: doc}}).
		SetUpsert(true)
}

// toDoc flattens a record into a bson document and stamps it.
func toDoc(record any, extra bson.M) (bson.M, error) {
	raw, err := bson.Marshal(record)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	for k, v := range extra {
		doc[k] = v
	}
	doc["lastUpdated"] = time.Now().UTC()
	return doc, nil
}

func (s *Store) bulkWrite(ctx context.Context, coll, key string, models []mongo.WriteModel) (Summary, error) {
	if len(models) == 0 {
		return Summary{}, nil
	}
	res, err := s.db.Collection(coll).BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return Summary{}, &WriteError{Collection: coll, Key: key, Err: err}
	}
	sum := Summary{Matched: res.MatchedCount, Modified: res.ModifiedCount, Upserted: res.UpsertedCount}
	slog.Debug("bulk upsert",
		"component", "store", "collection", coll, "key", key,
		"matched", sum.Matched, "modified", sum.Modified, "upserted", sum.Upserted)
	return sum, nil
}

// UpsertCompany writes the filer's identity record, keyed by CIK.
func (s *Store) UpsertCompany(ctx context.Context, company edgar.Company, overwrite bool) (Summary, error) {
	doc, err := toDoc(company, nil)
	if err != nil {
		return Summary{}, &WriteError{Collection: collCompanies, Key: company.CIK, Err: err}
	}
	filter := bson.D{{Key: "cik", Value: company.CIK}}
	return s.bulkWrite(ctx, collCompanies, company.CIK, []mongo.WriteModel{upsertModel(filter, doc, overwrite)})
}

// UpsertFilings writes filing metadata records, keyed by accession number.
// Re-running with identical input changes nothing either way: overwrite
// false skips existing keys, overwrite true replaces in place.
func (s *Store) UpsertFilings(ctx context.Context, cik string, filings []edgar.Filing, overwrite bool) (Summary, error) {
	models, err := filingModels(filings, overwrite)
	if err != nil {
		return Summary{}, &WriteError{Collection: collFilings, Key: cik, Err: err}
	}
	return s.bulkWrite(ctx, collFilings, cik, models)
}

func filingModels(filings []edgar.Filing, overwrite bool) ([]mongo.WriteModel, error) {
	models := make([]mongo.WriteModel, 0, len(filings))
	for _, f := range filings {
		doc, err := toDoc(f, nil)
		if err != nil {
			return nil, err
		}
		filter := bson.D{{Key: "accessionNumber", Value: f.AccessionNumber}}
		models = append(models, upsertModel(filter, doc, overwrite))
	}
	return models, nil
}

// keyedRecord is any extracted record with a record-local identity inside
// one accession number.
type keyedRecord interface {
	LocalKey() string
}

func recordModels[T keyedRecord](accession string, records []T, overwrite bool) ([]mongo.WriteModel, error) {
	models := make([]mongo.WriteModel, 0, len(records))
	for _, rec := range records {
		doc, err := toDoc(rec, bson.M{"localKey": rec.LocalKey()})
		if err != nil {
			return nil, err
		}
		filter := bson.D{
			{Key: "accessionNumber", Value: accession},
			{Key: "localKey", Value: rec.LocalKey()},
		}
		models = append(models, upsertModel(filter, doc, overwrite))
	}
	return models, nil
}

// UpsertFacts writes one filing's facts, keyed by (accession, fact identity).
func (s *Store) UpsertFacts(ctx context.Context, accession string, facts []scrape.Fact, overwrite bool) (Summary, error) {
	models, err := recordModels(accession, facts, overwrite)
	if err != nil {
		return Summary{}, &WriteError{Collection: collFacts, Key: accession, Err: err}
	}
	return s.bulkWrite(ctx, collFacts, accession, models)
}

// UpsertContexts writes one filing's contexts.
func (s *Store) UpsertContexts(ctx context.Context, accession string, contexts []scrape.Context, overwrite bool) (Summary, error) {
	models, err := recordModels(accession, contexts, overwrite)
	if err != nil {
		return Summary{}, &WriteError{Collection: collContexts, Key: accession, Err: err}
	}
	return s.bulkWrite(ctx, collContexts, accession, models)
}

// UpsertLabels writes one filing's link labels.
func (s *Store) UpsertLabels(ctx context.Context, accession string, labels []scrape.LinkLabel, overwrite bool) (Summary, error) {
	models, err := recordModels(accession, labels, overwrite)
	if err != nil {
		return Summary{}, &WriteError{Collection: collLabels, Key: accession, Err: err}
	}
	return s.bulkWrite(ctx, collLabels, accession, models)
}

// UpsertMetaTags writes one filing's MetaLinks tag dictionary.
func (s *Store) UpsertMetaTags(ctx context.Context, accession string, tags []scrape.MetaLinksTag, overwrite bool) (Summary, error) {
	models, err := recordModels(accession, tags, overwrite)
	if err != nil {
		return Summary{}, &WriteError{Collection: collMetaTags, Key: accession, Err: err}
	}
	return s.bulkWrite(ctx, collMetaTags, accession, models)
}

// UpsertSICCodes writes the industry classification reference list.
func (s *Store) UpsertSICCodes(ctx context.Context, codes []refdata.SICCode, overwrite bool) (Summary, error) {
	models := make([]mongo.WriteModel, 0, len(codes))
	for _, code := range codes {
		doc, err := toDoc(code, nil)
		if err != nil {
			return Summary{}, &WriteError{Collection: collSIC, Key: code.Code, Err: err}
		}
		filter := bson.D{{Key: "code", Value: code.Code}}
		models = append(models, upsertModel(filter, doc, overwrite))
	}
	return s.bulkWrite(ctx, collSIC, "sic", models)
}

// SaveRunSummary appends the run report; runs are never overwritten.
func (s *Store) SaveRunSummary(ctx context.Context, sum *scrape.RunSummary) error {
	if _, err := s.db.Collection(collRuns).InsertOne(ctx, sum); err != nil {
		return &WriteError{Collection: collRuns, Key: sum.RunID, Err: err}
	}
	return nil
}
