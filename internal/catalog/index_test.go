package catalog

import (
	"strings"
	"testing"
)

func TestLoadIndexCatalogValid(t *testing.T) {
	r := strings.NewReader(`[
		{"fieldName":"f1","dateName":"f2","indexTypeName":"n1","indexType":1,"indexValue":1},
		{"fieldName":"f3","dateName":"f2","indexTypeName":"n2","indexType":2,"indexValue":2}
	]`)
	entries, err := LoadIndexCatalog(r)
	if err != nil {
		t.Fatalf("LoadIndexCatalog: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
}

func TestLoadIndexCatalogBadFieldName(t *testing.T) {
	r := strings.NewReader(`[{"fieldName":"f24","dateName":"f2","indexTypeName":"n1","indexType":1,"indexValue":1}]`)
	if _, err := LoadIndexCatalog(r); err == nil {
		t.Fatal("expected error for out-of-range fieldName")
	}
}

func TestLoadIndexCatalogBadIndexValue(t *testing.T) {
	r := strings.NewReader(`[{"fieldName":"f1","dateName":"f2","indexTypeName":"n1","indexType":1,"indexValue":3}]`)
	if _, err := LoadIndexCatalog(r); err == nil {
		t.Fatal("expected error for indexValue outside {1,2}")
	}
}

func TestLoadIndexCatalogDuplicatePair(t *testing.T) {
	r := strings.NewReader(`[
		{"fieldName":"f1","dateName":"f2","indexTypeName":"n1","indexType":1,"indexValue":1},
		{"fieldName":"f1","dateName":"f2","indexTypeName":"n1","indexType":2,"indexValue":1}
	]`)
	if _, err := LoadIndexCatalog(r); err == nil {
		t.Fatal("expected error for duplicate (fieldName, indexTypeName)")
	}
}

func TestLoadIndexCatalogDuplicateIndexType(t *testing.T) {
	r := strings.NewReader(`[
		{"fieldName":"f1","dateName":"f2","indexTypeName":"n1","indexType":1,"indexValue":1},
		{"fieldName":"f3","dateName":"f2","indexTypeName":"n2","indexType":1,"indexValue":1}
	]`)
	if _, err := LoadIndexCatalog(r); err == nil {
		t.Fatal("expected error for duplicate indexType")
	}
}

func TestFieldNamePattern(t *testing.T) {
	valid := []string{"f1", "f9", "f10", "f19", "f20", "f23"}
	for _, s := range valid {
		if !fieldNamePattern.MatchString(s) {
			t.Errorf("%q should match f1..f23", s)
		}
	}
	invalid := []string{"f0", "f24", "f100", "g1", "f"}
	for _, s := range invalid {
		if fieldNamePattern.MatchString(s) {
			t.Errorf("%q should not match f1..f23", s)
		}
	}
}
