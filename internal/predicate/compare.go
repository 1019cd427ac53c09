package predicate

import (
	"regexp"
	"strconv"
	"time"
)

func (e *evaluator) evalCompare(op string, a, b any) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return compareOrdered(op, af, bf)
	}

	at, atok := toTime(a)
	bt, btok := toTime(b)
	if atok && btok {
		return compareOrdered(op, float64(at.UnixNano()), float64(bt.UnixNano()))
	}

	as, asok := a.(string)
	bs, bsok := b.(string)
	if asok && bsok {
		return compareStrings(op, as, bs)
	}

	return false
}

func compareOrdered(op string, a, b float64) bool {
	switch op {
	case "$gt":
		return a > b
	case "$gte":
		return a >= b
	case "$lt":
		return a < b
	case "$lte":
		return a <= b
	default:
		return false
	}
}

func compareStrings(op string, a, b string) bool {
	switch op {
	case "$gt":
		return a > b
	case "$gte":
		return a >= b
	case "$lt":
		return a < b
	case "$lte":
		return a <= b
	default:
		return false
	}
}

// valuesEqual implements $eq/plain-key equality: strict equality, unlike
// the ordered operators. Numeric values compare by numeric value
// regardless of Go representation (float64 vs int), since that's just
// JSON/BSON decoding variance rather than a type difference a caller
// can observe. A numeric string never equals a number here: "5" and 5
// are different types to $eq, same as real MongoDB.
func valuesEqual(a, b any) bool {
	if an, aok := toNumeric(a); aok {
		if bn, bok := toNumeric(b); bok {
			return an == bn
		}
	}
	if at, aok := a.(time.Time); aok {
		if bt, bok := b.(time.Time); bok {
			return at.Equal(bt)
		}
	}
	return a == b
}

// toNumeric reports the float64 value of v if v is a Go numeric type.
// Unlike toFloat, it does not coerce numeric-looking strings.
func toNumeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func containsAny(actual any, candidates []any) bool {
	if arr, ok := toSlice(actual); ok {
		for _, item := range arr {
			for _, c := range candidates {
				if valuesEqual(item, c) {
					return true
				}
			}
		}
		return false
	}
	for _, c := range candidates {
		if valuesEqual(actual, c) {
			return true
		}
	}
	return false
}

func toSlice(v any) ([]any, bool) {
	arr, ok := v.([]any)
	return arr, ok
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func toInt(v any) (int, bool) {
	f, ok := toFloat(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	default:
		return time.Time{}, false
	}
}

// classOf maps a Go value (as decoded from JSON/BSON) onto the
// enumerated $type classes.
func classOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	case time.Time:
		return "date"
	case int, int32, int64:
		return "int"
	case float64, float32:
		return "double"
	default:
		return "undefined"
	}
}

func matchRegex(pattern, s string) bool {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(s)
}
