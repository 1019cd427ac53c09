package memstore

import (
	"fmt"

	"factored/internal/predicate"
)

// filterRows applies a $match-shaped condition using the same predicate
// evaluator the counter producer uses for computationConditions; the
// match stage of a synthesized pipeline is itself a predicate tree.
func filterRows(rows []map[string]any, match map[string]any) []map[string]any {
	var out []map[string]any
	for _, row := range rows {
		ok, _ := predicate.Evaluate(match, predicate.Doc(row), nil)
		if ok {
			out = append(out, row)
		}
	}
	return out
}

// groupRows implements the $group stage for the two aggregators a
// synthesized counter pipeline can contain: {"$sum": <const|"$field">}
// and the literal {"$sum": 1} count form. Unsupported aggregator shapes
// return an error; this in-memory double intentionally covers only what
// internal/counter emits.
func groupRows(rows []map[string]any, group map[string]any) (map[string]any, error) {
	out := map[string]any{"_id": nil}
	for name, expr := range group {
		if name == "_id" {
			continue
		}
		agg, ok := expr.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("group field %q: unsupported aggregator shape %T", name, expr)
		}
		value, err := evalAggregator(rows, agg)
		if err != nil {
			return nil, fmt.Errorf("group field %q: %w", name, err)
		}
		out[name] = value
	}
	return out, nil
}

func evalAggregator(rows []map[string]any, agg map[string]any) (any, error) {
	if operand, ok := agg["$sum"]; ok {
		return evalSum(rows, operand)
	}
	return nil, fmt.Errorf("unsupported aggregator %v", agg)
}

func evalSum(rows []map[string]any, operand any) (float64, error) {
	switch op := operand.(type) {
	case float64:
		return op * float64(len(rows)), nil
	case int:
		return float64(op) * float64(len(rows)), nil
	case string:
		field, ok := stripFieldRef(op)
		if !ok {
			return 0, fmt.Errorf("unsupported $sum operand %q", op)
		}
		var total float64
		for _, row := range rows {
			if v, ok := row[field]; ok {
				total += toFloatOrZero(v)
			}
		}
		return total, nil
	default:
		return 0, fmt.Errorf("unsupported $sum operand %T", operand)
	}
}

func stripFieldRef(s string) (string, bool) {
	if len(s) > 1 && s[0] == '$' {
		return s[1:], true
	}
	return "", false
}

func toFloatOrZero(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
