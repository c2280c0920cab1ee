package records

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Record is one loosely-typed JSON object as delivered by the backend.
// Values are whatever encoding/json produced (json.Number when the decoder
// was configured with UseNumber, float64 otherwise).
type Record map[string]any

// Get walks a dotted path ("account_id.id") and returns the value found.
// Missing keys, non-object intermediates and JSON nulls all report ok=false.
func (r Record) Get(path string) (any, bool) {
	var cur any = map[string]any(r)
	for _, key := range strings.Split(path, ".") {
		var obj map[string]any
		switch m := cur.(type) {
		case map[string]any:
			obj = m
		case Record:
			obj = m
		default:
			return nil, false
		}
		v, ok := obj[key]
		if !ok || v == nil {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// String returns the string at path, or fallback when the value is absent,
// not a string, or empty.
func (r Record) String(path, fallback string) string {
	v, ok := r.Get(path)
	if !ok {
		return fallback
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return fallback
	}
	return s
}

// ID returns the value at path rendered as an identifier string.
// Strings are returned as-is and numbers without exponent or trailing zeros.
func (r Record) ID(path string) string {
	v, ok := r.Get(path)
	if !ok {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return ""
	}
}

// Decimal parses the value at path as a decimal number. Missing or
// non-numeric values yield zero.
func (r Record) Decimal(path string) decimal.Decimal {
	v, ok := r.Get(path)
	if !ok {
		return decimal.Zero
	}
	switch val := v.(type) {
	case json.Number:
		if d, err := decimal.NewFromString(val.String()); err == nil {
			return d
		}
	case float64:
		if !math.IsNaN(val) && !math.IsInf(val, 0) {
			return decimal.NewFromFloat(val)
		}
	case int:
		return decimal.NewFromInt(int64(val))
	case int64:
		return decimal.NewFromInt(val)
	case string:
		if d, err := decimal.NewFromString(strings.TrimSpace(val)); err == nil {
			return d
		}
	}
	return decimal.Zero
}

// Number is Decimal converted to float64, with fallback used when the
// parsed value is zero.
func (r Record) Number(path string, fallback float64) float64 {
	f := r.Decimal(path).InexactFloat64()
	if f == 0 {
		return fallback
	}
	return f
}

// timestampLayouts are tried in order for string timestamps.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Time parses the value at path as a timestamp. Strings are tried against
// the RFC3339 family and zone-less layouts (interpreted in loc); numbers
// are Unix milliseconds.
func (r Record) Time(path string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	v, ok := r.Get(path)
	if !ok {
		return time.Time{}, false
	}
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		for _, layout := range timestampLayouts {
			if t, err := time.ParseInLocation(layout, s, loc); err == nil {
				return t.In(loc), true
			}
		}
	case json.Number:
		if ms, err := val.Int64(); err == nil {
			return time.UnixMilli(ms).In(loc), true
		}
		if f, err := val.Float64(); err == nil {
			return time.UnixMilli(int64(f)).In(loc), true
		}
	case float64:
		if !math.IsNaN(val) && !math.IsInf(val, 0) {
			return time.UnixMilli(int64(val)).In(loc), true
		}
	case time.Time:
		return val.In(loc), true
	}
	return time.Time{}, false
}

// FromJSON converts a decoded JSON value into records. Anything that is not
// an array yields an empty slice, and non-object array items are skipped.
func FromJSON(v any) []Record {
	items, ok := v.([]any)
	if !ok {
		return []Record{}
	}
	out := make([]Record, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, Record(obj))
		}
	}
	return out
}
