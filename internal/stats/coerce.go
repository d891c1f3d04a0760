// Package stats turns raw upstream shift records into the summaries and
// day groupings the dashboard renders. Upstream values arrive as
// whatever the suite stored: numbers, numeric strings, nulls, or
// free-text garbage, so every computation funnels through the coercion
// helpers here first.
package stats

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// timestampLayouts are tried in order when a timestamp arrives as a
// non-numeric string.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ToNumber coerces an arbitrary upstream value to a float64. Numbers
// pass through, numeric strings are parsed, everything else collapses
// to zero. Never panics.
func ToNumber(v any) float64 {
	switch n := v.(type) {
	case float64:
		return finite(n)
	case float32:
		return finite(float64(n))
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return finite(f)
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		return finite(f)
	}
	return 0
}

// ToNullableNumber preserves the distinction between an absent reading
// and a zero reading: nil in means nil out, anything else goes through
// ToNumber. A malformed string is a recorded-but-broken value and comes
// back as a zero pointer, not nil.
func ToNullableNumber(v any) *float64 {
	if v == nil {
		return nil
	}
	f := ToNumber(v)
	return &f
}

// ToTimestamp coerces a value to epoch milliseconds. Numbers and
// numeric strings are taken as already-epoch-millis; other strings are
// tried against the known date layouts. Unparseable values become zero,
// which naturally sorts as oldest.
func ToTimestamp(v any) float64 {
	switch n := v.(type) {
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return finite(f)
		}
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, n); err == nil {
				return float64(t.UnixMilli())
			}
		}
		return 0
	}
	return ToNumber(v)
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
