package predicate

import (
	"testing"
	"time"
)

func TestEvaluateScalarEquality(t *testing.T) {
	doc := Doc{"status": "active"}
	ok, warnings := Evaluate(map[string]any{"status": "active"}, doc, nil)
	if !ok || len(warnings) != 0 {
		t.Fatalf("ok=%v warnings=%v", ok, warnings)
	}
	ok, _ = Evaluate(map[string]any{"status": "inactive"}, doc, nil)
	if ok {
		t.Error("expected mismatch to fail")
	}
}

func TestEvaluateArrayMembership(t *testing.T) {
	doc := Doc{"status": "active"}
	ok, _ := Evaluate(map[string]any{"status": []any{"active", "pending"}}, doc, nil)
	if !ok {
		t.Error("expected membership match")
	}
}

func TestEvaluateNestedPath(t *testing.T) {
	doc := Doc{"customer": map[string]any{"tier": "gold"}}
	ok, _ := Evaluate(map[string]any{"customer.tier": "gold"}, doc, nil)
	if !ok {
		t.Error("expected dotted-path resolution to succeed")
	}
}

func TestEvaluateComparisonOperators(t *testing.T) {
	doc := Doc{"amount": float64(150)}
	cases := []struct {
		op   string
		want bool
	}{
		{"$gt", true}, {"$gte", true}, {"$lt", false}, {"$lte", false},
	}
	for _, c := range cases {
		ok, _ := Evaluate(map[string]any{"amount": map[string]any{c.op: float64(100)}}, doc, nil)
		if ok != c.want {
			t.Errorf("%s: got %v, want %v", c.op, ok, c.want)
		}
	}
}

func TestEvaluateStringCoercion(t *testing.T) {
	doc := Doc{"amount": "150"}
	ok, _ := Evaluate(map[string]any{"amount": map[string]any{"$gt": float64(100)}}, doc, nil)
	if !ok {
		t.Error("numeric string should coerce for ordered comparison")
	}
}

func TestEvaluateEqDoesNotCoerceNumericStrings(t *testing.T) {
	doc := Doc{"amount": "150"}
	ok, _ := Evaluate(map[string]any{"amount": map[string]any{"$eq": float64(150)}}, doc, nil)
	if ok {
		t.Error("$eq should not treat a numeric string as equal to its numeric value")
	}
	ok, _ = Evaluate(map[string]any{"amount": float64(150)}, doc, nil)
	if ok {
		t.Error("plain-key equality should not treat a numeric string as equal to its numeric value")
	}
	ok, _ = Evaluate(map[string]any{"amount": "150"}, doc, nil)
	if !ok {
		t.Error("plain-key equality should match when both sides are the same string")
	}
}

func TestEvaluateInNin(t *testing.T) {
	doc := Doc{"tier": "gold"}
	ok, _ := Evaluate(map[string]any{"tier": map[string]any{"$in": []any{"gold", "silver"}}}, doc, nil)
	if !ok {
		t.Error("$in should match")
	}
	ok, _ = Evaluate(map[string]any{"tier": map[string]any{"$nin": []any{"bronze"}}}, doc, nil)
	if !ok {
		t.Error("$nin should match when value absent from list")
	}
}

func TestEvaluateAllElemMatchSize(t *testing.T) {
	doc := Doc{"tags": []any{"a", "b", "c"}}
	ok, _ := Evaluate(map[string]any{"tags": map[string]any{"$all": []any{"a", "c"}}}, doc, nil)
	if !ok {
		t.Error("$all should match subset")
	}
	ok, _ = Evaluate(map[string]any{"tags": map[string]any{"$size": float64(3)}}, doc, nil)
	if !ok {
		t.Error("$size should match length")
	}

	elems := Doc{"items": []any{
		map[string]any{"sku": "x", "qty": float64(2)},
		map[string]any{"sku": "y", "qty": float64(5)},
	}}
	ok, _ = Evaluate(map[string]any{"items": map[string]any{
		"$elemMatch": map[string]any{"qty": map[string]any{"$gt": float64(4)}},
	}}, elems, nil)
	if !ok {
		t.Error("$elemMatch should find matching element")
	}
}

func TestEvaluateRegex(t *testing.T) {
	doc := Doc{"email": "user@example.com"}
	ok, _ := Evaluate(map[string]any{"email": map[string]any{"$regex": "^user@"}}, doc, nil)
	if !ok {
		t.Error("$regex should match prefix")
	}
	ok, _ = Evaluate(map[string]any{"email": map[string]any{"$regex": "^USER@", "$options": "i"}}, doc, nil)
	if !ok {
		t.Error("$options i should make regex case-insensitive")
	}
}

func TestEvaluateLogical(t *testing.T) {
	doc := Doc{"a": float64(1), "b": float64(2)}
	ok, _ := Evaluate(map[string]any{"$and": []any{
		map[string]any{"a": float64(1)},
		map[string]any{"b": float64(2)},
	}}, doc, nil)
	if !ok {
		t.Error("$and should match when both hold")
	}
	ok, _ = Evaluate(map[string]any{"$or": []any{
		map[string]any{"a": float64(99)},
		map[string]any{"b": float64(2)},
	}}, doc, nil)
	if !ok {
		t.Error("$or should match when one holds")
	}
	ok, _ = Evaluate(map[string]any{"a": map[string]any{"$not": map[string]any{"$eq": float64(99)}}}, doc, nil)
	if !ok {
		t.Error("$not should invert inner result")
	}
}

func TestEvaluateExistsAndType(t *testing.T) {
	doc := Doc{"present": "x"}
	ok, _ := Evaluate(map[string]any{"present": map[string]any{"$exists": true}}, doc, nil)
	if !ok {
		t.Error("$exists true should match present field")
	}
	ok, _ = Evaluate(map[string]any{"missing": map[string]any{"$exists": false}}, doc, nil)
	if !ok {
		t.Error("$exists false should match absent field")
	}
	ok, _ = Evaluate(map[string]any{"present": map[string]any{"$type": "string"}}, doc, nil)
	if !ok {
		t.Error("$type string should match")
	}
}

func TestEvaluateMod(t *testing.T) {
	doc := Doc{"n": float64(10)}
	ok, _ := Evaluate(map[string]any{"n": map[string]any{"$mod": []any{float64(3), float64(1)}}}, doc, nil)
	if !ok {
		t.Error("10 mod 3 == 1")
	}
}

func TestEvaluateUnsupportedOperatorIsWarningNotCrash(t *testing.T) {
	doc := Doc{"body": "hello"}
	ok, warnings := Evaluate(map[string]any{"body": map[string]any{"$text": map[string]any{"$search": "hello"}}}, doc, nil)
	if ok {
		t.Error("unsupported operator should evaluate to false")
	}
	if len(warnings) != 1 {
		t.Fatalf("expected one warning, got %v", warnings)
	}
}

func TestEvaluateNowSentinel(t *testing.T) {
	fixed := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return fixed }
	doc := Doc{"created": fixed}
	ok, _ := Evaluate(map[string]any{"created": map[string]any{"$eq": "$$NOW"}}, doc, clock)
	if !ok {
		t.Error("$$NOW should substitute the supplied clock")
	}
}

func TestEvaluateExprComparison(t *testing.T) {
	fixed := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return fixed }
	doc := Doc{"transaction_date": fixed.Add(-3 * 24 * time.Hour)}

	cond := map[string]any{
		"$expr": map[string]any{
			"$gte": []any{
				"$d.transaction_date",
				map[string]any{"$dateSubtract": map[string]any{"startDate": "$$NOW", "unit": "day", "amount": float64(7)}},
			},
		},
	}
	ok, warnings := Evaluate(cond, doc, clock)
	if !ok {
		t.Errorf("expected transaction 3 days ago to satisfy >= now-7d, warnings=%v", warnings)
	}
}

func TestEvaluateExprDateDiff(t *testing.T) {
	fixed := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return fixed }
	doc := Doc{"opened": fixed.Add(-10 * 24 * time.Hour)}

	cond := map[string]any{
		"$expr": map[string]any{
			"$gte": []any{
				map[string]any{"$dateDiff": map[string]any{"startDate": "$d.opened", "endDate": "$$NOW", "unit": "day"}},
				float64(5),
			},
		},
	}
	ok, _ := Evaluate(cond, doc, clock)
	if !ok {
		t.Error("expected date diff of 10 days to be >= 5")
	}
}

func TestAddMonthsClampsToLastDayOfTargetMonth(t *testing.T) {
	jan31 := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	got := addMonths(jan31, 1)
	want := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC) // 2024 is a leap year
	if !got.Equal(want) {
		t.Errorf("addMonths(jan31, 1) = %v, want %v", got, want)
	}
}

func TestMissingFieldFailsPlainEquality(t *testing.T) {
	doc := Doc{}
	ok, _ := Evaluate(map[string]any{"missing": "x"}, doc, nil)
	if ok {
		t.Error("missing field should not satisfy equality")
	}
}
