package predicate

import "time"

// evalDateArith recognizes and evaluates the three date-arithmetic
// operand builders. handled is false when m is not one of these
// shapes, letting the caller fall through to treating m as a plain
// operand.
func (e *evaluator) evalDateArith(m map[string]any) (result any, handled bool) {
	if spec, ok := m["$dateAdd"].(map[string]any); ok {
		return e.dateAdd(spec, 1), true
	}
	if spec, ok := m["$dateSubtract"].(map[string]any); ok {
		return e.dateAdd(spec, -1), true
	}
	if spec, ok := m["$dateDiff"].(map[string]any); ok {
		return e.dateDiff(spec), true
	}
	return nil, false
}

func (e *evaluator) dateAdd(spec map[string]any, sign int) any {
	start, ok := e.resolveDateOperand(spec["startDate"])
	if !ok {
		e.warn("dateAdd: startDate did not resolve to a date")
		return nil
	}
	unit, _ := spec["unit"].(string)
	amount, ok := toFloat(spec["amount"])
	if !ok {
		e.warn("dateAdd: amount is not numeric")
		return nil
	}
	return addUnit(start, unit, sign*int(amount))
}

func (e *evaluator) dateDiff(spec map[string]any) any {
	start, ok1 := e.resolveDateOperand(spec["startDate"])
	end, ok2 := e.resolveDateOperand(spec["endDate"])
	if !ok1 || !ok2 {
		e.warn("dateDiff: startDate/endDate did not resolve to dates")
		return nil
	}
	unit, _ := spec["unit"].(string)
	return diffUnit(start, end, unit)
}

func (e *evaluator) resolveDateOperand(v any) (time.Time, bool) {
	resolved := e.evalExprOperand(v)
	return toTime(resolved)
}

// addUnit implements the month/year-safe calendar addition: the
// day-of-month is preserved where the target month has that many days,
// otherwise clamped to the target month's last day.
func addUnit(t time.Time, unit string, amount int) time.Time {
	switch unit {
	case "year":
		return addMonths(t, amount*12)
	case "month":
		return addMonths(t, amount)
	case "day":
		return t.AddDate(0, 0, amount)
	case "hour":
		return t.Add(time.Duration(amount) * time.Hour)
	case "minute":
		return t.Add(time.Duration(amount) * time.Minute)
	case "second":
		return t.Add(time.Duration(amount) * time.Second)
	case "millisecond":
		return t.Add(time.Duration(amount) * time.Millisecond)
	default:
		return t
	}
}

func addMonths(t time.Time, months int) time.Time {
	day := t.Day()
	firstOfMonth := time.Date(t.Year(), t.Month(), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	target := firstOfMonth.AddDate(0, months, 0)
	lastDay := daysInMonth(target.Year(), target.Month())
	if day > lastDay {
		day = lastDay
	}
	return time.Date(target.Year(), target.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	firstOfNext := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC)
	lastOfThis := firstOfNext.AddDate(0, 0, -1)
	return lastOfThis.Day()
}

func diffUnit(start, end time.Time, unit string) float64 {
	d := end.Sub(start)
	switch unit {
	case "year":
		return monthsBetween(start, end) / 12
	case "month":
		return monthsBetween(start, end)
	case "day":
		return d.Hours() / 24
	case "hour":
		return d.Hours()
	case "minute":
		return d.Minutes()
	case "second":
		return d.Seconds()
	case "millisecond":
		return float64(d.Milliseconds())
	default:
		return d.Seconds()
	}
}

func monthsBetween(start, end time.Time) float64 {
	months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
	if end.Day() < start.Day() {
		months--
	}
	return float64(months)
}
