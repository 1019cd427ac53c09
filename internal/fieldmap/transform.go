package fieldmap

import "strings"

// direction selects which lookup direction field-name rewriting uses; it
// lets the same recursive walk implement both ToShort and ToLong.
type direction func(name string) string

// ToShort rewrites a predicate tree, aggregation expression, or attribute
// spec from long names to short wire names.
func (m *Mapper) ToShort(v any) any {
	return m.transformCondition(v, m.GetFieldName)
}

// ToLong is the inverse of ToShort.
func (m *Mapper) ToLong(v any) any {
	return m.transformCondition(v, m.GetLongName)
}

// TransformCondition walks a predicate tree:
//   - keys starting "d." are rewritten via dir and their values recurse
//   - key "$expr" recurses via the expr sub-language
//   - any other key starting "$" is preserved; its value recurses
//   - arrays recurse elementwise
//
// TransformCondition is exported for callers that already have a
// direction-specific transform (see ToShort/ToLong) but want to expose
// the raw walk for testing or composition.
func (m *Mapper) TransformCondition(v any, toDst func(string) string) any {
	return m.transformCondition(v, toDst)
}

func (m *Mapper) transformCondition(v any, dir direction) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			switch {
			case strings.HasPrefix(k, "d."):
				newKey := "d." + dir(strings.TrimPrefix(k, "d."))
				out[newKey] = m.transformCondition(child, dir)
			case k == "$expr":
				out[k] = m.transformExprExpression(child, dir)
			case strings.HasPrefix(k, "$"):
				out[k] = m.transformCondition(child, dir)
			default:
				out[k] = m.transformCondition(child, dir)
			}
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = m.transformCondition(item, dir)
		}
		return out
	default:
		return v
	}
}

// transformExprExpression recurses through operator objects whose operand
// arrays may contain "$d.<field>" path strings (rewritten) or further
// nested operator objects (rewritten recursively).
func (m *Mapper) transformExprExpression(v any, dir direction) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[k] = m.transformExprExpression(child, dir)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = m.transformExprExpression(item, dir)
		}
		return out
	case string:
		return m.transformMongoPathStringDir(val, dir)
	default:
		return v
	}
}

func (m *Mapper) transformMongoPathStringDir(s string, dir direction) string {
	rest, ok := strings.CutPrefix(s, "$d.")
	if !ok {
		return s
	}
	field, suffix, hasSuffix := strings.Cut(rest, ".")
	mapped := dir(field)
	if hasSuffix {
		return "$d." + mapped + "." + suffix
	}
	return "$d." + mapped
}

// TransformAttributesToShort rewrites the argument of each aggregator in
// attrs whose argument is a "$d.<field>" path, recursing through nested
// maps. Long -> short direction.
func (m *Mapper) TransformAttributesToShort(attrs map[string]any) map[string]any {
	return m.transformAttributes(attrs, m.GetFieldName)
}

// TransformAttributesToLong is the inverse of TransformAttributesToShort.
func (m *Mapper) TransformAttributesToLong(attrs map[string]any) map[string]any {
	return m.transformAttributes(attrs, m.GetLongName)
}

func (m *Mapper) transformAttributes(attrs map[string]any, dir direction) map[string]any {
	out := make(map[string]any, len(attrs))
	for name, expr := range attrs {
		out[name] = m.transformAggregatorExpr(expr, dir)
	}
	return out
}

// transformAggregatorExpr has the same shape as transformExprExpression:
// both recurse through nested operator maps/arrays rewriting bare
// "$d.<field>" path strings. They are kept as separate entry points
// because they are distinct contracts even though the walk is identical.
func (m *Mapper) transformAggregatorExpr(v any, dir direction) any {
	return m.transformExprExpression(v, dir)
}
