// Package store implements the Store Gateway: the sharded document
// store client used for fact and index persistence and counter
// aggregation. Gateway is the contract both the production MongoDB
// client (mongostore) and the in-memory test double (memstore)
// implement.
package store

import (
	"context"
	"time"

	"factored/internal/counter"
	"factored/internal/fact"
)

// InsertOutcome reports whether insertFact inserted a new document or
// found one already present under the same id.
type InsertOutcome int

const (
	Inserted InsertOutcome = iota
	AlreadyExisted
)

// BatchResult is the outcome of insertIndexBatch: an unordered bulk
// insert tolerant of duplicate (h, i) pairs.
type BatchResult struct {
	Inserted          int
	DuplicatesIgnored int
	Errors            []error
}

// SchemaSummary is probeSchema's diagnostic output: per payload (d)
// field of the sampled facts, the set of observed coarse type names
// ("string", "number", ...). Top-level fact fields are not included.
type SchemaSummary struct {
	SampledAt time.Time
	Fields    map[string][]string
}

// PoolStats is a point-in-time snapshot of connection-pool lifecycle
// counters, fed by the driver's pool-monitoring events and consumed by
// the orchestrator's backpressure gate.
type PoolStats struct {
	CheckedOut       int64
	PendingCheckouts int64
	Created          int64
	Ready            int64
	Cleared          int64
	Closed           int64
	CheckoutsFailed  int64
}

// Gateway is the Store Gateway contract. Every method except PoolStats
// takes the caller's context (for HTTP ingest, the inbound request's
// context, on which this service sets no deadline of its own);
// implementations must propagate cancellation to the underlying transport.
type Gateway interface {
	InsertFact(ctx context.Context, f *fact.Fact) (InsertOutcome, error)
	InsertIndexBatch(ctx context.Context, entries []*fact.IndexEntry) (BatchResult, error)
	RunCounterFacet(ctx context.Context, typeName string, spec counter.FacetSpec) (map[string][]map[string]any, error)
	EnsureIndexes(ctx context.Context) error
	ProbeSchema(ctx context.Context) (SchemaSummary, error)
	PoolStats() PoolStats
	Close(ctx context.Context) error
}
