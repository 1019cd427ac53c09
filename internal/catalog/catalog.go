// Package catalog loads and validates the three declarative catalogs that
// drive ingestion: the Field Catalog, the Index Catalog, and the Counter
// Catalog. Catalogs are loaded once at startup and are immutable for the
// process lifetime — nothing in this package mutates a Catalogs value after
// Load returns it.
//
// Catalogs does not:
//   - Watch for file changes or support hot reload
//   - Evaluate predicates or synthesize pipelines
//   - Know about the wire field-name mapping (see internal/fieldmap)
package catalog

import (
	"encoding/json"
	"fmt"
	"io"
)

// Catalogs bundles the three immutable catalog views consumed by the rest
// of the service. A zero Catalogs is not valid; always obtain one via Load.
type Catalogs struct {
	Fields   []FieldEntry
	Indexes  []IndexEntry
	Counters []CounterEntry

	// byDst indexes Fields by their long logical name for fast lookup.
	byDst map[string]*FieldEntry
}

// FieldByDst returns the Field Catalog entry for a long logical name, or
// nil if none exists.
func (c *Catalogs) FieldByDst(dst string) *FieldEntry {
	if c.byDst == nil {
		return nil
	}
	return c.byDst[dst]
}

// Load reads and validates all three catalogs from the given readers and
// returns an immutable Catalogs value. Any validation failure is returned
// as a *ConfigInvalidError and is fatal — catalogs are never partially
// loaded.
func Load(fields, indexes, counters io.Reader) (*Catalogs, error) {
	fieldEntries, err := LoadFieldCatalog(fields)
	if err != nil {
		return nil, err
	}
	indexEntries, err := LoadIndexCatalog(indexes)
	if err != nil {
		return nil, err
	}
	counterEntries, err := LoadCounterCatalog(counters)
	if err != nil {
		return nil, err
	}

	c := &Catalogs{
		Fields:   fieldEntries,
		Indexes:  indexEntries,
		Counters: counterEntries,
		byDst:    make(map[string]*FieldEntry, len(fieldEntries)),
	}
	for i := range fieldEntries {
		c.byDst[fieldEntries[i].Dst] = &fieldEntries[i]
	}
	return c, nil
}

// decodeJSON is a small helper shared by the three loaders; it rejects
// unknown fields so a typo in a catalog file fails loudly at startup
// instead of silently being ignored.
func decodeJSON(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode catalog: %w", err)
	}
	return nil
}
