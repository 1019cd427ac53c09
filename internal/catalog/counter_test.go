package catalog

import (
	"strings"
	"testing"
)

func TestLoadCounterCatalogValid(t *testing.T) {
	r := strings.NewReader(`[{
		"name":"C",
		"computationConditions":{"t":61,"d.s":"CI"},
		"evaluationConditions":{"d.it":{"$in":[1,2]}},
		"attributes":{"cnt":{"$sum":1}}
	}]`)
	entries, err := LoadCounterCatalog(r)
	if err != nil {
		t.Fatalf("LoadCounterCatalog: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "C" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestLoadCounterCatalogDuplicateName(t *testing.T) {
	r := strings.NewReader(`[
		{"name":"C","computationConditions":{},"evaluationConditions":{},"attributes":{"a":1}},
		{"name":"C","computationConditions":{},"evaluationConditions":{},"attributes":{"a":1}}
	]`)
	if _, err := LoadCounterCatalog(r); err == nil {
		t.Fatal("expected error for duplicate counter name")
	}
}

func TestLoadCounterCatalogMissingAttributes(t *testing.T) {
	r := strings.NewReader(`[{"name":"C","computationConditions":{},"evaluationConditions":{}}]`)
	if _, err := LoadCounterCatalog(r); err == nil {
		t.Fatal("expected error for missing attributes")
	}
}
