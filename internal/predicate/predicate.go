// Package predicate implements a local, in-process evaluator for a subset
// of the MongoDB query operator language: the operator table plus the
// $expr mini-expression sub-language, evaluated directly against a fact
// document without a round trip to the store.
package predicate

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnsupported marks an operator this evaluator does not implement.
// Evaluate never returns it as an error: an unsupported operator makes
// the enclosing predicate evaluate to false, with the reason available
// to the caller via the Warnings return.
var ErrUnsupported = errors.New("predicate operator unsupported")

// Clock supplies the instant substituted for the $$NOW sentinel.
type Clock func() time.Time

// Doc is the document a predicate is evaluated against: either a bare
// payload or a fact-shaped document carrying the payload under "d" (as
// counter.BuildDoc builds it). Plain keys are dotted paths from its root.
type Doc map[string]any

// Evaluate reports whether doc satisfies cond. now supplies $$NOW; pass
// nil to use time.Now().UTC(). warnings collects one entry per skipped
// unsupported operator or malformed operand encountered while walking cond;
// these never turn Evaluate into an error, only into a false result for
// the sub-tree that triggered them.
func Evaluate(cond map[string]any, doc Doc, now Clock) (bool, []string) {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	e := &evaluator{doc: doc, now: now}
	result := e.evalObject(cond)
	return result, e.warnings
}

type evaluator struct {
	doc      Doc
	now      Clock
	warnings []string
}

func (e *evaluator) warn(format string, args ...any) {
	e.warnings = append(e.warnings, fmt.Sprintf(format, args...))
}

// evalObject evaluates a top-level (or $and/$or-nested) condition object:
// every key must hold, i.e. an implicit $and across its keys.
func (e *evaluator) evalObject(cond map[string]any) bool {
	for k, v := range cond {
		if k == "$expr" {
			if !e.evalExprBool(v) {
				return false
			}
			continue
		}
		if k == "$and" || k == "$or" {
			if !e.evalOperator(k, v, nil, false, nil) {
				return false
			}
			continue
		}
		if strings.HasPrefix(k, "$") {
			e.warn("unsupported operator %q: %v", k, ErrUnsupported)
			return false
		}
		if !e.evalField(k, v) {
			return false
		}
	}
	return true
}

// evalField evaluates the condition on the path named by key, whose
// value is either a scalar (equality), an array (membership), or an
// operator object.
func (e *evaluator) evalField(key string, cond any) bool {
	actual, present := e.resolvePath(key)

	switch c := cond.(type) {
	case map[string]any:
		return e.evalOperatorObject(c, actual, present)
	case []any:
		if !present {
			return false
		}
		return containsAny(actual, c)
	default:
		if !present {
			return false
		}
		return valuesEqual(actual, e.substituteNow(cond))
	}
}

func (e *evaluator) evalOperatorObject(ops map[string]any, actual any, present bool) bool {
	for op, operand := range ops {
		if !e.evalOperator(op, operand, actual, present, ops) {
			return false
		}
	}
	return true
}

// evalOperator applies one operator; ops is the enclosing operator object,
// which $regex consults for a sibling $options.
func (e *evaluator) evalOperator(op string, operand, actual any, present bool, ops map[string]any) bool {
	switch op {
	case "$eq":
		return present && valuesEqual(actual, e.resolveOperand(operand))
	case "$ne":
		return !present || !valuesEqual(actual, e.resolveOperand(operand))
	case "$gt", "$gte", "$lt", "$lte":
		if !present {
			return false
		}
		return e.evalCompare(op, actual, e.resolveOperand(operand))
	case "$in":
		arr, ok := operand.([]any)
		if !ok || !present {
			return false
		}
		return containsAny(actual, arr)
	case "$nin":
		arr, ok := operand.([]any)
		if !ok {
			return true
		}
		return !present || !containsAny(actual, arr)
	case "$all":
		arr, ok := operand.([]any)
		if !ok || !present {
			return false
		}
		return e.evalAll(actual, arr)
	case "$elemMatch":
		sub, ok := operand.(map[string]any)
		if !ok || !present {
			return false
		}
		return e.evalElemMatch(actual, sub)
	case "$size":
		return present && e.evalSize(actual, operand)
	case "$regex":
		return present && e.evalRegex(actual, operand, ops["$options"])
	case "$options":
		return true // consumed alongside $regex
	case "$not":
		return !e.evalNot(operand, actual, present)
	case "$and":
		arr, ok := operand.([]any)
		if !ok {
			e.warn("$and operand is not an array")
			return false
		}
		for _, sub := range arr {
			subCond, ok := sub.(map[string]any)
			if !ok || !e.evalObject(subCond) {
				return false
			}
		}
		return true
	case "$or":
		arr, ok := operand.([]any)
		if !ok {
			e.warn("$or operand is not an array")
			return false
		}
		for _, sub := range arr {
			subCond, ok := sub.(map[string]any)
			if ok && e.evalObject(subCond) {
				return true
			}
		}
		return false
	case "$exists":
		want, _ := operand.(bool)
		return present == want
	case "$type":
		return present && e.evalType(actual, operand)
	case "$mod":
		return present && e.evalMod(actual, operand)
	default:
		e.warn("unsupported operator %q: %v", op, ErrUnsupported)
		return false
	}
}

func (e *evaluator) evalNot(operand, actual any, present bool) bool {
	switch op := operand.(type) {
	case map[string]any:
		return e.evalOperatorObject(op, actual, present)
	default:
		return present && valuesEqual(actual, e.substituteNow(operand))
	}
}

func (e *evaluator) evalAll(actual any, want []any) bool {
	arr, ok := toSlice(actual)
	if !ok {
		return false
	}
	for _, w := range want {
		if !containsAny(arr, []any{w}) {
			return false
		}
	}
	return true
}

func (e *evaluator) evalElemMatch(actual any, sub map[string]any) bool {
	arr, ok := toSlice(actual)
	if !ok {
		return false
	}
	for _, item := range arr {
		itemDoc, ok := item.(map[string]any)
		if !ok {
			continue
		}
		nested := &evaluator{doc: itemDoc, now: e.now}
		if nested.evalObject(sub) {
			return true
		}
	}
	return false
}

func (e *evaluator) evalSize(actual any, operand any) bool {
	arr, ok := toSlice(actual)
	if !ok {
		return false
	}
	n, ok := toInt(operand)
	return ok && len(arr) == n
}

func (e *evaluator) evalType(actual any, operand any) bool {
	want, ok := operand.(string)
	if !ok {
		return false
	}
	return classOf(actual) == want
}

func (e *evaluator) evalMod(actual any, operand any) bool {
	arr, ok := operand.([]any)
	if !ok || len(arr) != 2 {
		e.warn("$mod requires a [divisor, remainder] array")
		return false
	}
	divisor, ok1 := toFloat(arr[0])
	remainder, ok2 := toFloat(arr[1])
	n, ok3 := toFloat(actual)
	if !ok1 || !ok2 || !ok3 || divisor == 0 {
		return false
	}
	return float64(int64(n)%int64(divisor)) == remainder
}

func (e *evaluator) evalRegex(actual any, pattern any, options any) bool {
	s, ok := actual.(string)
	if !ok {
		return false
	}
	pat, ok := pattern.(string)
	if !ok {
		return false
	}
	if opt, ok := options.(string); ok && strings.Contains(opt, "i") {
		pat = "(?i)" + pat
	}
	return matchRegex(pat, s)
}

// resolvePath splits key on "." and walks e.doc. A path through a
// missing intermediate key reports present=false.
func (e *evaluator) resolvePath(key string) (value any, present bool) {
	parts := strings.Split(key, ".")
	var cur any = map[string]any(e.doc)
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[p]
		if !ok {
			return nil, false
		}
		cur = v
	}
	if cur == nil {
		return nil, false
	}
	return cur, true
}

func (e *evaluator) substituteNow(v any) any {
	if s, ok := v.(string); ok && s == "$$NOW" {
		return e.now()
	}
	return v
}

// resolveOperand evaluates a comparison operand: a literal, the $$NOW
// sentinel, or a nested date-arithmetic builder.
func (e *evaluator) resolveOperand(v any) any {
	if m, ok := v.(map[string]any); ok {
		if result, handled := e.evalDateArith(m); handled {
			return result
		}
	}
	return e.substituteNow(v)
}
