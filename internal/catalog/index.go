package catalog

import (
	"fmt"
	"io"
	"regexp"
)

var fieldNamePattern = regexp.MustCompile(`^f([1-9]|1[0-9]|2[0-3])$`)

// IndexValueKind selects what an Index Entry's v field holds.
type IndexValueKind int

const (
	// IndexValueHash means v is the content hash of the raw field value.
	IndexValueHash IndexValueKind = 1
	// IndexValueRaw means v is the raw payload field value itself.
	IndexValueRaw IndexValueKind = 2
)

// IndexEntry is one row of the Index Catalog: a rule that derives a
// secondary index entry from a fact's payload.
type IndexEntry struct {
	FieldName     string         `json:"fieldName"`
	DateName      string         `json:"dateName"`
	IndexTypeName string         `json:"indexTypeName"`
	IndexType     int            `json:"indexType"`
	IndexValue    IndexValueKind `json:"indexValue"`
}

// LoadIndexCatalog decodes and validates an Index Catalog from r.
func LoadIndexCatalog(r io.Reader) ([]IndexEntry, error) {
	var entries []IndexEntry
	if err := decodeJSON(r, &entries); err != nil {
		return nil, fmt.Errorf("index catalog: %w", err)
	}
	if err := validateIndexCatalog(entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func validateIndexCatalog(entries []IndexEntry) error {
	seenPair := make(map[[2]string]bool, len(entries))
	seenType := make(map[int]string, len(entries))

	for i := range entries {
		e := &entries[i]
		label := fmt.Sprintf("#%d (%s/%s)", i, e.FieldName, e.IndexTypeName)

		if !fieldNamePattern.MatchString(e.FieldName) {
			return invalidf("index", label, "fieldName %q does not match f1..f23", e.FieldName)
		}
		if e.DateName == "" {
			return invalidf("index", label, "dateName must be non-empty")
		}
		if e.IndexTypeName == "" {
			return invalidf("index", label, "indexTypeName must be non-empty")
		}
		if e.IndexType <= 0 {
			return invalidf("index", label, "indexType must be a positive integer, got %d", e.IndexType)
		}
		if e.IndexValue != IndexValueHash && e.IndexValue != IndexValueRaw {
			return invalidf("index", label, "indexValue must be 1 or 2, got %d", e.IndexValue)
		}

		pair := [2]string{e.FieldName, e.IndexTypeName}
		if seenPair[pair] {
			return invalidf("index", label, "duplicate (fieldName, indexTypeName) pair")
		}
		seenPair[pair] = true

		if other, ok := seenType[e.IndexType]; ok {
			return invalidf("index", label, "indexType %d already used by %s", e.IndexType, other)
		}
		seenType[e.IndexType] = label
	}
	return nil
}
