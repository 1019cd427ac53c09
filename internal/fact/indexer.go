package fact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"factored/internal/catalog"
)

// DeriveIndexEntries implements the index-derivation algorithm: for each
// Index Catalog rule, if the fact's payload has the rule's
// field present and non-null, and the rule's date field parses, emit one
// IndexEntry. Entries are returned in catalog declaration order; callers
// must not rely on any other order.
//
// A rule whose date is missing or unparseable is skipped and recorded as
// a Warning, never as an error — only a missing top-level fact field
// (t, id, c) is a hard error, and those are enforced before this function
// is reached (see Normalize).
func DeriveIndexEntries(f *Fact, catalogs *catalog.Catalogs) ([]*IndexEntry, []Warning) {
	var entries []*IndexEntry
	var warnings []Warning

	for _, rule := range catalogs.Indexes {
		rawValue, present := f.D[rule.FieldName]
		if !present || rawValue == nil {
			continue
		}

		dateValue, ok := f.D[rule.DateName]
		if !ok || dateValue == nil {
			warnings = append(warnings, Warning{
				FactID: f.ID,
				Rule:   rule.IndexTypeName,
				Reason: fmt.Sprintf("date field %q missing", rule.DateName),
			})
			continue
		}
		indexDate, err := parseIndexDate(dateValue)
		if err != nil {
			warnings = append(warnings, Warning{
				FactID: f.ID,
				Rule:   rule.IndexTypeName,
				Reason: fmt.Sprintf("date field %q: %v", rule.DateName, err),
			})
			continue
		}

		h := ContentHash(rule.IndexTypeName, rawValue)
		var v any
		switch rule.IndexValue {
		case catalog.IndexValueHash:
			v = h
		case catalog.IndexValueRaw:
			v = rawValue
		}

		entries = append(entries, &IndexEntry{
			H:  h,
			IT: rule.IndexType,
			V:  v,
			I:  f.ID,
			T:  f.T,
			D:  indexDate,
			C:  f.C,
		})
	}

	return entries, warnings
}

// ContentHash computes SHA-256(indexTypeName + ":" + rawValue) lowercase
// hex-encoded. rawValue is formatted with
// fmt.Sprint, matching the "content hash of (indexTypeName, raw field
// value)" wording — the hash is stable for a given indexTypeName and
// value regardless of their Go representation (string, float64, etc.).
func ContentHash(indexTypeName string, rawValue any) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%v", indexTypeName, rawValue)))
	return hex.EncodeToString(sum[:])
}

// parseIndexDate accepts the date shapes a JSON-decoded payload plausibly
// carries: an RFC3339 string, a time.Time (already-parsed payloads), or a
// Unix timestamp in seconds or milliseconds.
func parseIndexDate(v any) (time.Time, error) {
	switch val := v.(type) {
	case time.Time:
		return val, nil
	case string:
		t, err := time.Parse(time.RFC3339, val)
		if err != nil {
			return time.Time{}, fmt.Errorf("not a valid RFC3339 timestamp: %w", err)
		}
		return t, nil
	case float64:
		return unixFromNumber(val), nil
	case int64:
		return unixFromNumber(float64(val)), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported date type %T", v)
	}
}

// unixFromNumber treats values above the start of year 3000 expressed in
// Unix seconds as milliseconds, otherwise as seconds.
func unixFromNumber(n float64) time.Time {
	const msThreshold = 32503680000 // seconds at year 3000
	if n > msThreshold {
		return time.UnixMilli(int64(n)).UTC()
	}
	return time.Unix(int64(n), 0).UTC()
}
