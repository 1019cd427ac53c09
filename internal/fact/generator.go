package fact

import (
	"fmt"
	"math/rand"
	"time"

	"factored/internal/catalog"
)

// GenerateSynthetic builds a preview payload for messageType from the
// Field Catalog's declared generators, keyed by long logical field name.
// Fields with no generator, or whose generator doesn't apply to
// messageType, are omitted.
func GenerateSynthetic(catalogs *catalog.Catalogs, messageType int, rnd *rand.Rand) (map[string]any, error) {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(1))
	}
	out := make(map[string]any)
	for _, f := range catalogs.Fields {
		if f.Generator == nil || !declaresType(f.MessageTypes, messageType) {
			continue
		}
		v, err := generateValue(f.Generator, rnd)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Dst, err)
		}
		out[f.Dst] = v
	}
	return out, nil
}

func declaresType(types []int, t int) bool {
	for _, mt := range types {
		if mt == t {
			return true
		}
	}
	return false
}

func generateValue(g *catalog.Generator, rnd *rand.Rand) (any, error) {
	if g.DefaultRandom != nil && rnd.Float64() < *g.DefaultRandom && g.DefaultValue != nil {
		return pickDefault(g.DefaultValue, rnd), nil
	}

	switch g.Type {
	case catalog.GenString:
		return fmt.Sprintf("sample-%d", rnd.Intn(1000)), nil
	case catalog.GenInteger:
		lo, hi := intBounds(g.Min, g.Max, 0, 1000)
		return lo + rnd.Intn(hi-lo+1), nil
	case catalog.GenFloat:
		lo, hi := floatBounds(g.Min, g.Max, 0, 1000)
		return lo + rnd.Float64()*(hi-lo), nil
	case catalog.GenDate:
		return time.Now().UTC().Add(-time.Duration(rnd.Intn(30*24)) * time.Hour).Format(time.RFC3339), nil
	case catalog.GenEnum:
		if len(g.Values) == 0 {
			return nil, fmt.Errorf("enum generator has no values")
		}
		return g.Values[rnd.Intn(len(g.Values))], nil
	case catalog.GenObjectID:
		return fmt.Sprintf("%024x", rnd.Int63()), nil
	case catalog.GenBoolean:
		return rnd.Intn(2) == 0, nil
	default:
		return nil, fmt.Errorf("unsupported generator type %q", g.Type)
	}
}

func pickDefault(v any, rnd *rand.Rand) any {
	if seq, ok := v.([]any); ok {
		return seq[rnd.Intn(len(seq))]
	}
	return v
}

func intBounds(min, max any, defaultLo, defaultHi int) (int, int) {
	lo, hi := defaultLo, defaultHi
	if v, ok := toInt(min); ok {
		lo = v
	}
	if v, ok := toInt(max); ok {
		hi = v
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

func floatBounds(min, max any, defaultLo, defaultHi float64) (float64, float64) {
	lo, hi := defaultLo, defaultHi
	if v, ok := toFloat(min); ok {
		lo = v
	}
	if v, ok := toFloat(max); ok {
		hi = v
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
