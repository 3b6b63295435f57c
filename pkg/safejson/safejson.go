// Package safejson decodes loosely typed record fields without ever failing the caller.
// Every helper returns a usable value: on malformed input it hands back the fallback and
// reports the problem as an error the caller may log or ignore.
package safejson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrEmpty = errors.New("safejson: empty input")

// Decode parses raw into a T. raw may be a JSON-encoded string, raw bytes, or a value the
// transport already decoded (a []any or map[string]any inside a JSON envelope).
func Decode[T any](raw any, fallback T) (T, error) {
	var data []byte
	switch v := raw.(type) {
	case nil:
		return fallback, ErrEmpty
	case string:
		data = []byte(v)
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fallback, fmt.Errorf("safejson: re-encode %T: %w", raw, err)
		}
		data = encoded
	}
	return Bytes(data, fallback)
}

// Bytes parses data into a T, returning fallback when data is blank or invalid.
func Bytes[T any](data []byte, fallback T) (T, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return fallback, ErrEmpty
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return fallback, fmt.Errorf("safejson: decode %T: %w", out, err)
	}
	return out, nil
}

// Int64 coerces numeric-ish values (JSON numbers, numeric strings) into an int64.
func Int64(raw any, fallback int64) int64 {
	switch v := raw.(type) {
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case uint:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		return int64(v)
	case float32:
		return int64(v)
	case float64:
		return int64(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		if f, err := v.Float64(); err == nil {
			return int64(f)
		}
	case string:
		s := strings.TrimSpace(v)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f)
		}
	}
	return fallback
}

// Float64 coerces numeric-ish values into a float64.
func Float64(raw any, fallback float64) float64 {
	if f, ok := Float64OK(raw); ok {
		return f
	}
	return fallback
}

// Float64OK is Float64 that reports whether raw was numeric at all.
func Float64OK(raw any) (float64, bool) {
	switch v := raw.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f, true
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// Bool accepts real booleans, "true"/"false"-style strings and 0/1 numbers (SQLite).
func Bool(raw any, fallback bool) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	case int, int32, int64, float32, float64, json.Number:
		return Int64(v, 0) != 0
	}
	return fallback
}

// String returns strings as-is and formats scalars; nil and composite values yield fallback.
func String(raw any, fallback string) string {
	switch v := raw.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case json.Number:
		return v.String()
	case int, int32, int64, float32, float64, bool:
		return fmt.Sprint(v)
	}
	return fallback
}
