package mongostore

import (
	"context"
	"fmt"
	"time"

	"factored/internal/counter"
	"factored/internal/fact"
	"factored/internal/ingesterr"
	"factored/internal/store"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// InsertFact inserts fact-or-ignores on a duplicate id.
func (s *Store) InsertFact(ctx context.Context, f *fact.Fact) (store.InsertOutcome, error) {
	var outcome store.InsertOutcome
	err := s.withRetry(ctx, func() error {
		_, err := s.facts.InsertOne(ctx, f)
		if mongo.IsDuplicateKeyError(err) {
			outcome = store.AlreadyExisted
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: insert fact: %v", ingesterr.ErrTransientStore, err)
		}
		outcome = store.Inserted
		return nil
	})
	return outcome, err
}

// InsertIndexBatch performs an unordered bulk insert tolerant of
// duplicate (h, i) pairs; partial success is normal and is not an
// error on its own.
func (s *Store) InsertIndexBatch(ctx context.Context, entries []*fact.IndexEntry) (store.BatchResult, error) {
	if len(entries) == 0 {
		return store.BatchResult{}, nil
	}

	docs := make([]any, len(entries))
	for i, e := range entries {
		docs[i] = e
	}

	var result store.BatchResult
	err := s.withRetry(ctx, func() error {
		res, err := s.indexes.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
		if res != nil {
			result.Inserted = len(res.InsertedIDs)
		}
		if err == nil {
			return nil
		}
		bwe, ok := err.(mongo.BulkWriteException)
		if !ok {
			return fmt.Errorf("%w: insert index batch: %v", ingesterr.ErrTransientStore, err)
		}
		for _, we := range bwe.WriteErrors {
			if mongo.IsDuplicateKeyError(we) {
				result.DuplicatesIgnored++
				continue
			}
			result.Errors = append(result.Errors, we)
		}
		return nil
	})
	return result, err
}

// RunCounterFacet submits the compound $facet aggregation synthesized
// for a fact's applicable counters.
func (s *Store) RunCounterFacet(ctx context.Context, typeName string, spec counter.FacetSpec) (map[string][]map[string]any, error) {
	facetStage := bson.M{}
	for name, pipeline := range spec {
		stages := bson.A{}
		if pipeline.Match != nil {
			stages = append(stages, bson.M{"$match": pipeline.Match})
		}
		stages = append(stages, bson.M{"$group": pipeline.Group})
		facetStage[name] = stages
	}

	var raw []bson.M
	err := s.withRetry(ctx, func() error {
		cur, err := s.indexes.Aggregate(ctx, mongo.Pipeline{{{Key: "$facet", Value: facetStage}}})
		if err != nil {
			return fmt.Errorf("%w: run counter facet: %v", ingesterr.ErrTransientStore, err)
		}
		defer cur.Close(ctx)
		return cur.All(ctx, &raw)
	})
	if err != nil {
		return nil, err
	}
	if len(raw) != 1 {
		return nil, fmt.Errorf("%w: facet aggregation returned %d documents, want 1", ingesterr.ErrInternal, len(raw))
	}

	out := make(map[string][]map[string]any, len(spec))
	for name := range spec {
		rows, _ := raw[0][name].(bson.A)
		resultRows := make([]map[string]any, 0, len(rows))
		for _, r := range rows {
			if m, ok := r.(bson.M); ok {
				resultRows = append(resultRows, map[string]any(m))
			}
		}
		out[name] = resultRows
	}
	return out, nil
}

// EnsureIndexes idempotently creates the required indexes: a unique index
// on the fact collection's id (so InsertFact can detect a duplicate id),
// and on the index collection a unique (h, i) index plus helper indexes
// on (it, d), (t, d), and (i).
func (s *Store) EnsureIndexes(ctx context.Context) error {
	factID := mongo.IndexModel{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)}
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "h", Value: 1}, {Key: "i", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "it", Value: 1}, {Key: "d", Value: 1}}},
		{Keys: bson.D{{Key: "t", Value: 1}, {Key: "d", Value: 1}}},
		{Keys: bson.D{{Key: "i", Value: 1}}},
	}
	return s.withRetry(ctx, func() error {
		if _, err := s.facts.Indexes().CreateOne(ctx, factID); err != nil {
			return fmt.Errorf("%w: ensure indexes: %v", ingesterr.ErrTransientStore, err)
		}
		_, err := s.indexes.Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("%w: ensure indexes: %v", ingesterr.ErrTransientStore, err)
		}
		return nil
	})
}

// ProbeSchema samples the fact collection and summarizes, for
// diagnostics, the field names observed in the sampled facts' payload
// (d) with coarse type names. The facts' own top-level fields (id, t, c)
// are not summarized.
func (s *Store) ProbeSchema(ctx context.Context) (store.SchemaSummary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$sample", Value: bson.M{"size": 200}}},
		{{Key: "$project", Value: bson.M{"d": 1}}},
	}

	var docs []bson.M
	err := s.withRetry(ctx, func() error {
		cur, err := s.facts.Aggregate(ctx, pipeline)
		if err != nil {
			return fmt.Errorf("%w: probe schema: %v", ingesterr.ErrTransientStore, err)
		}
		defer cur.Close(ctx)
		return cur.All(ctx, &docs)
	})
	if err != nil {
		return store.SchemaSummary{}, err
	}

	fields := map[string][]string{}
	for _, doc := range docs {
		payload, ok := doc["d"].(bson.M)
		if !ok {
			continue
		}
		for k, v := range payload {
			fields[k] = appendUniqueType(fields[k], bsonTypeName(v))
		}
	}
	return store.SchemaSummary{SampledAt: time.Now().UTC(), Fields: fields}, nil
}

func appendUniqueType(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

func bsonTypeName(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case int32, int64, float64:
		return "number"
	case bool:
		return "bool"
	case bson.A:
		return "array"
	case bson.M:
		return "object"
	case nil:
		return "null"
	default:
		return "other"
	}
}
