// Package counter implements the Counter Producer: selecting, per fact,
// which counters in the Counter Catalog apply, and synthesizing the
// aggregation pipelines the Store Gateway runs against the index
// collection.
package counter

import (
	"sync"

	"factored/internal/catalog"
	"factored/internal/fact"
	"factored/internal/fieldmap"
	"factored/internal/predicate"
)

// BuildDoc assembles the composite document computationConditions and
// evaluationConditions are evaluated against: the fact's top-level
// fields alongside its payload under "d", matching the shape literal
// catalog examples address ("t", "id", "c", "d.<field>").
func BuildDoc(f *fact.Fact) predicate.Doc {
	return predicate.Doc{
		"t":  f.T,
		"id": f.ID,
		"c":  f.C,
		"d":  map[string]any(f.D),
	}
}

// Pipeline is a two-stage aggregation: an optional $match followed by a
// $group. Stages already have their field paths rewritten to wire
// (short) names via the supplied Mapper.
type Pipeline struct {
	Match map[string]any // nil when evaluationConditions is absent/empty
	Group map[string]any
}

// FacetSpec is the compound aggregation request for a single fact: one
// pipeline per applicable counter, keyed by counter name, ready for the
// Store Gateway's $facet runner.
type FacetSpec map[string]Pipeline

// Producer selects applicable counters and synthesizes their pipelines.
// A Producer is safe for concurrent use: its catalog is read-only and
// its per-type cache population is synchronized.
type Producer struct {
	catalogs *catalog.Catalogs
	mapper   *fieldmap.Mapper
	now      predicate.Clock

	mu        sync.RWMutex
	byMsgType map[int][]catalog.CounterEntry
}

// New builds a Producer over catalogs. mapper may be nil/disabled; now
// supplies $$NOW for computationConditions evaluation (nil uses
// time.Now).
func New(catalogs *catalog.Catalogs, mapper *fieldmap.Mapper, now predicate.Clock) *Producer {
	return &Producer{
		catalogs:  catalogs,
		mapper:    mapper,
		now:       now,
		byMsgType: make(map[int][]catalog.CounterEntry),
	}
}

// candidatesForType returns the counters whose type gate (see
// typeGateMatches) admits msgType, computed on first sight of a type by
// scanning the whole catalog and cached per message type. Callers still
// run Evaluate per fact; this cache only avoids rescanning the catalog's
// type gates on every fact of a type already seen.
func (p *Producer) candidatesForType(msgType int) []catalog.CounterEntry {
	p.mu.RLock()
	cached, ok := p.byMsgType[msgType]
	p.mu.RUnlock()
	if ok {
		return cached
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if cached, ok := p.byMsgType[msgType]; ok {
		return cached
	}

	var matched []catalog.CounterEntry
	for _, c := range p.catalogs.Counters {
		if typeGateMatches(c.ComputationConditions, msgType) {
			matched = append(matched, c)
		}
	}
	p.byMsgType[msgType] = matched
	return matched
}

// typeGateMatches reports whether cond's type-gate key (the literal "t"
// or "d.MessageTypeId" key; see findTypeGate) matches msgType. A counter
// with no type gate at all is treated as applicable to every type; a
// gate whose value is neither a number nor {"$eq": number} matches no
// type.
func typeGateMatches(cond map[string]any, msgType int) bool {
	gate, ok := findTypeGate(cond)
	if !ok {
		return true
	}
	n, ok := predicateOperandAsInt(gate)
	return ok && n == msgType
}

// findTypeGate looks for the conventional type-gate key in a
// computationConditions object: a direct top-level "t" match (as in
// {"t": 61, ...}), falling back to the equivalent nested
// "d.MessageTypeId" form some catalogs use instead.
func findTypeGate(cond map[string]any) (any, bool) {
	if v, ok := cond["t"]; ok {
		return v, true
	}
	if v, ok := cond["d.MessageTypeId"]; ok {
		return v, true
	}
	return nil, false
}

func predicateOperandAsInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case map[string]any:
		if eq, ok := n["$eq"]; ok {
			return predicateOperandAsInt(eq)
		}
	}
	return 0, false
}

// Select evaluates computationConditions for every candidate counter of
// fact.T against doc, returning the subset that matches. warnings
// aggregates every skipped-operator note across all evaluated counters.
func (p *Producer) Select(msgType int, doc predicate.Doc) (matched []catalog.CounterEntry, warnings []string) {
	for _, c := range p.candidatesForType(msgType) {
		ok, w := predicate.Evaluate(c.ComputationConditions, doc, p.now)
		warnings = append(warnings, w...)
		if ok {
			matched = append(matched, c)
		}
	}
	return matched, warnings
}

// BuildFacet synthesizes the compound facet specification for the
// counters that Select returned applicable, rewriting each counter's
// evaluationConditions and attributes to wire field names.
func (p *Producer) BuildFacet(counters []catalog.CounterEntry) FacetSpec {
	spec := make(FacetSpec, len(counters))
	for _, c := range counters {
		spec[c.Name] = p.synthesizePipeline(c)
	}
	return spec
}

func (p *Producer) synthesizePipeline(c catalog.CounterEntry) Pipeline {
	var match map[string]any
	if len(c.EvaluationConditions) > 0 {
		match = p.toWire(c.EvaluationConditions)
	}

	group := map[string]any{"_id": nil}
	attrs := c.Attributes
	if p.mapper != nil {
		attrs = p.mapper.TransformAttributesToShort(attrs)
	}
	for name, expr := range attrs {
		group[name] = expr
	}

	return Pipeline{Match: match, Group: group}
}

func (p *Producer) toWire(cond map[string]any) map[string]any {
	if p.mapper == nil {
		return cond
	}
	return p.mapper.ToShort(cond).(map[string]any)
}
