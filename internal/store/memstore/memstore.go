// Package memstore is an in-memory Store Gateway test double: it
// implements internal/store.Gateway without a live MongoDB instance, so
// counter pipeline synthesis and orchestrator wiring can be unit tested
// deterministically.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"factored/internal/counter"
	"factored/internal/fact"
	"factored/internal/store"

	"github.com/google/uuid"
)

// Store is a Gateway backed by plain Go maps, guarded by a mutex. It
// does not attempt to model MongoDB's wire protocol; it implements just
// enough aggregation semantics ($match via internal/predicate, $group
// with $sum only) to exercise the counter pipelines built by
// internal/counter.
type Store struct {
	mu      sync.Mutex
	facts   map[uuid.UUID]*fact.Fact
	indexes map[string]*fact.IndexEntry // keyed by h+"|"+i

	insertFactCalls  int
	insertBatchCalls int
}

// New returns an empty in-memory Store.
func New() *Store {
	return &Store{
		facts:   make(map[uuid.UUID]*fact.Fact),
		indexes: make(map[string]*fact.IndexEntry),
	}
}

func (s *Store) InsertFact(_ context.Context, f *fact.Fact) (store.InsertOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertFactCalls++

	if _, exists := s.facts[f.ID]; exists {
		return store.AlreadyExisted, nil
	}
	cp := *f
	s.facts[f.ID] = &cp
	return store.Inserted, nil
}

func (s *Store) InsertIndexBatch(_ context.Context, entries []*fact.IndexEntry) (store.BatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertBatchCalls++

	result := store.BatchResult{}
	for _, e := range entries {
		key := e.H + "|" + e.I.String()
		if _, exists := s.indexes[key]; exists {
			result.DuplicatesIgnored++
			continue
		}
		cp := *e
		s.indexes[key] = &cp
		result.Inserted++
	}
	return result, nil
}

// RunCounterFacet evaluates every pipeline in spec against all stored
// index entries (typeName does not filter them), applying $match then a
// limited $group that understands only $sum.
func (s *Store) RunCounterFacet(_ context.Context, typeName string, spec counter.FacetSpec) (map[string][]map[string]any, error) {
	s.mu.Lock()
	rows := s.snapshotIndexRows()
	s.mu.Unlock()

	out := make(map[string][]map[string]any, len(spec))
	for name, pipeline := range spec {
		matched := rows
		if pipeline.Match != nil {
			matched = filterRows(rows, pipeline.Match)
		}
		group, err := groupRows(matched, pipeline.Group)
		if err != nil {
			return nil, fmt.Errorf("counter %q: %w", name, err)
		}
		out[name] = []map[string]any{group}
	}
	return out, nil
}

func (s *Store) snapshotIndexRows() []map[string]any {
	rows := make([]map[string]any, 0, len(s.indexes))
	for _, e := range s.indexes {
		rows = append(rows, map[string]any{
			"h":  e.H,
			"it": e.IT,
			"v":  e.V,
			"i":  e.I,
			"t":  e.T,
			"d":  e.D,
			"c":  e.C,
		})
	}
	// deterministic order for test assertions
	sort.Slice(rows, func(i, j int) bool {
		return fmt.Sprint(rows[i]["h"]) < fmt.Sprint(rows[j]["h"])
	})
	return rows
}

func (s *Store) EnsureIndexes(_ context.Context) error { return nil }

func (s *Store) ProbeSchema(_ context.Context) (store.SchemaSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fields := map[string][]string{}
	for _, f := range s.facts {
		for k, v := range f.D {
			fields[k] = appendUnique(fields[k], goTypeName(v))
		}
	}
	return store.SchemaSummary{SampledAt: time.Now().UTC(), Fields: fields}, nil
}

func (s *Store) PoolStats() store.PoolStats {
	return store.PoolStats{} // no real connection pool to report on
}

func (s *Store) Close(_ context.Context) error { return nil }

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

func goTypeName(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case float64, int, int64:
		return "number"
	case bool:
		return "bool"
	case nil:
		return "null"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return "unknown"
	}
}
