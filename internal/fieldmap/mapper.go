// Package fieldmap rewrites predicate trees, aggregation expressions, and
// attribute specs between long logical field names and short wire names.
//
// Mapper is pure: it performs no I/O and understands no operator's
// semantics, only the syntactic shapes documented below. Any value of an
// unrecognized shape is returned unchanged — mapping is the identity on
// everything it doesn't recognize.
//
// Mapper does not:
//   - Parse or validate predicates
//   - Evaluate expressions
//   - Mutate its input in place (all Transform* functions return new values)
package fieldmap

import "strings"

// Mapper holds the long<->short field-name table built from the Field
// Catalog. It is built once at startup and is safe for concurrent reads —
// it is never mutated after construction.
type Mapper struct {
	enabled    bool
	longToShort map[string]string
	shortToLong map[string]string
}

// New builds a Mapper from (long, short) pairs. If pairs is empty,
// short-name mode is considered off and every lookup is the identity.
func New(pairs map[string]string) *Mapper {
	m := &Mapper{
		enabled:     len(pairs) > 0,
		longToShort: make(map[string]string, len(pairs)),
		shortToLong: make(map[string]string, len(pairs)),
	}
	for long, short := range pairs {
		m.longToShort[long] = short
		m.shortToLong[short] = long
	}
	return m
}

// Enabled reports whether short-name mode is on.
func (m *Mapper) Enabled() bool {
	return m.enabled
}

// GetFieldName returns the short name for a long name when short-name
// mode is on and a mapping exists; otherwise it returns longName
// unchanged.
func (m *Mapper) GetFieldName(longName string) string {
	if !m.enabled {
		return longName
	}
	if short, ok := m.longToShort[longName]; ok {
		return short
	}
	return longName
}

// GetLongName is the inverse of GetFieldName.
func (m *Mapper) GetLongName(shortName string) string {
	if !m.enabled {
		return shortName
	}
	if long, ok := m.shortToLong[shortName]; ok {
		return long
	}
	return shortName
}

// RewritePayloadKeys rewrites the top-level keys of an inbound payload
// using dir, leaving values untouched. Unlike TransformCondition, a
// payload's keys are themselves field names, not "d."-prefixed paths
// inside a predicate tree.
func (m *Mapper) RewritePayloadKeys(d map[string]any, dir func(string) string) map[string]any {
	if !m.enabled || d == nil {
		return d
	}
	out := make(map[string]any, len(d))
	for k, v := range d {
		out[dir(k)] = v
	}
	return out
}

// TransformFieldPath rewrites "d.<long>" to "d.<short>". Any path not
// prefixed "d." is returned unchanged.
func (m *Mapper) TransformFieldPath(path string) string {
	rest, ok := strings.CutPrefix(path, "d.")
	if !ok {
		return path
	}
	return "d." + m.GetFieldName(rest)
}

// TransformMongoPath rewrites a string of shape "$d.<field>[.<suffix>]" by
// substituting the first segment after "d.". Arrays are mapped
// elementwise. Non-matching values are returned verbatim.
func (m *Mapper) TransformMongoPath(v any) any {
	switch val := v.(type) {
	case string:
		return m.transformMongoPathString(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = m.TransformMongoPath(item)
		}
		return out
	default:
		return v
	}
}

func (m *Mapper) transformMongoPathString(s string) string {
	rest, ok := strings.CutPrefix(s, "$d.")
	if !ok {
		return s
	}
	field, suffix, hasSuffix := strings.Cut(rest, ".")
	mapped := m.GetFieldName(field)
	if hasSuffix {
		return "$d." + mapped + "." + suffix
	}
	return "$d." + mapped
}
