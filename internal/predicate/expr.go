package predicate

import "strings"

// evalExprBool evaluates a top-level $expr tree. Its only legal shapes
// are the comparison operators with exactly two operands.
func (e *evaluator) evalExprBool(v any) bool {
	m, ok := v.(map[string]any)
	if !ok {
		e.warn("$expr operand is not an object")
		return false
	}
	for op, operand := range m {
		operands, ok := operand.([]any)
		if !ok || len(operands) != 2 {
			e.warn("$expr operator %q requires a two-element array", op)
			return false
		}
		left := e.evalExprOperand(operands[0])
		right := e.evalExprOperand(operands[1])
		switch op {
		case "$eq":
			return valuesEqual(left, right)
		case "$ne":
			return !valuesEqual(left, right)
		case "$gt", "$gte", "$lt", "$lte":
			return e.evalCompare(op, left, right)
		default:
			e.warn("unsupported $expr operator %q: %v", op, ErrUnsupported)
			return false
		}
	}
	return true
}

// evalExprOperand resolves one operand of an $expr comparison: a
// literal, a "$$NOW" sentinel, a "$d.<path>" document reference, or a
// nested date-arithmetic builder object. A "$d.<path>" reference resolves
// "d.<path>" when the document carries its payload under "d", and
// "<path>" from the root when the document is a bare payload.
func (e *evaluator) evalExprOperand(v any) any {
	switch val := v.(type) {
	case string:
		if val == "$$NOW" {
			return e.now()
		}
		if rest, ok := strings.CutPrefix(val, "$d."); ok {
			path := rest
			if _, wrapped := e.doc["d"].(map[string]any); wrapped {
				path = "d." + rest
			}
			value, present := e.resolvePath(path)
			if !present {
				return nil
			}
			return value
		}
		return val
	case map[string]any:
		if result, handled := e.evalDateArith(val); handled {
			return result
		}
		return val
	default:
		return v
	}
}
