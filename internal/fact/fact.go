// Package fact implements the Fact Normalizer & Indexer: turning a
// validated inbound message into a canonical fact document, and deriving
// the fact's secondary index entries from the Index Catalog.
//
// Package fact does not:
//   - Evaluate counter predicates (see internal/predicate, internal/counter)
//   - Talk to the store (see internal/store)
//   - Know about long/short field-name rewriting (internal/orchestrator
//     rewrites payload keys via internal/fieldmap before Normalize)
package fact

import (
	"time"

	"github.com/google/uuid"
)

// Fact is the unit of ingestion. T and ID are immutable once assigned;
// C is monotone non-decreasing per worker; D is always non-nil.
type Fact struct {
	ID uuid.UUID      `bson:"id"`
	T  int            `bson:"t"`
	C  time.Time      `bson:"c"`
	D  map[string]any `bson:"d"`
}

// IndexEntry is a derived secondary-lookup row. (H, I) is unique; exactly
// one entry exists per (fact, catalog rule) whose referenced value and
// date are both present and valid.
type IndexEntry struct {
	H  string    `bson:"h"`
	IT int       `bson:"it"`
	V  any       `bson:"v"`
	I  uuid.UUID `bson:"i"`
	T  int       `bson:"t"`
	D  time.Time `bson:"d"`
	C  time.Time `bson:"c"`
}

// Warning records a per-fact, per-rule condition that is not an error but
// prevented an index entry from being derived.
type Warning struct {
	FactID uuid.UUID
	Rule   string // IndexTypeName of the skipped rule
	Reason string
}

// InboundMessage is the raw shape accepted from a request or generator
// before normalization: a message type and a payload already keyed by
// canonical short field names.
type InboundMessage struct {
	T int
	D map[string]any
}
