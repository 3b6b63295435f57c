package recordstore

import "github.com/angelmondragon/storefront/pkg/safejson"

// Record is a raw row as the record store returns it. Field values are loosely typed;
// use the accessors instead of asserting on the map directly.
type Record map[string]any

// FieldID is the server-assigned identity column on every table.
const FieldID = "id"

func (r Record) ID() int64 {
	return safejson.Int64(r[FieldID], 0)
}

func (r Record) Int64(field string, fallback int64) int64 {
	return safejson.Int64(r[field], fallback)
}

func (r Record) Int(field string, fallback int) int {
	return int(safejson.Int64(r[field], int64(fallback)))
}

func (r Record) Float64(field string, fallback float64) float64 {
	return safejson.Float64(r[field], fallback)
}

// OptionalFloat64 returns nil when the field is absent, null or not numeric.
func (r Record) OptionalFloat64(field string) *float64 {
	value, ok := safejson.Float64OK(r[field])
	if !ok {
		return nil
	}
	return &value
}

func (r Record) Bool(field string, fallback bool) bool {
	return safejson.Bool(r[field], fallback)
}

func (r Record) String(field string) string {
	return safejson.String(r[field], "")
}

// Has reports whether the field is present with a non-nil value.
func (r Record) Has(field string) bool {
	v, ok := r[field]
	return ok && v != nil
}

// Clone returns a shallow copy, optionally restricted to fields. The id is always kept.
func (r Record) Clone(fields ...string) Record {
	if len(fields) == 0 {
		out := make(Record, len(r))
		for k, v := range r {
			out[k] = v
		}
		return out
	}
	out := make(Record, len(fields)+1)
	if v, ok := r[FieldID]; ok {
		out[FieldID] = v
	}
	for _, f := range fields {
		if v, ok := r[f]; ok {
			out[f] = v
		}
	}
	return out
}
