package recordstore

import (
	"fmt"
	"sort"
	"strings"

	"github.com/angelmondragon/storefront/pkg/safejson"
)

// Apply evaluates params against rows in memory. It returns the requested page and the
// number of rows that matched before paging. rows is never modified.
func Apply(rows []Record, params FetchParams) ([]Record, int) {
	matched := make([]Record, 0, len(rows))
	for _, row := range rows {
		if matchesAll(row, params.Where) {
			matched = append(matched, row)
		}
	}

	if len(params.OrderBy) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			return less(matched[i], matched[j], params.OrderBy)
		})
	}

	if len(params.GroupBy) > 0 {
		matched = groupFirst(matched, params.GroupBy)
	}

	total := len(matched)
	matched = page(matched, params.Paging)

	out := make([]Record, len(matched))
	for i, row := range matched {
		fields := params.Fields
		if len(params.GroupBy) > 0 && len(fields) == 0 {
			fields = params.GroupBy
		}
		out[i] = row.Clone(fields...)
	}
	return out, total
}

func matchesAll(row Record, where []Condition) bool {
	for _, cond := range where {
		if !matches(row, cond) {
			return false
		}
	}
	return true
}

func matches(row Record, cond Condition) bool {
	if len(cond.Values) == 0 {
		return true
	}
	value := row[cond.Field]
	switch cond.Operator {
	case OpContains:
		haystack := strings.ToLower(scalarString(value))
		for _, v := range cond.Values {
			if strings.Contains(haystack, strings.ToLower(scalarString(v))) {
				return true
			}
		}
		return false
	default:
		for _, v := range cond.Values {
			if equalValues(value, v) {
				return true
			}
		}
		return false
	}
}

func equalValues(a, b any) bool {
	af, aNum := safejson.Float64OK(a)
	bf, bNum := safejson.Float64OK(b)
	if aNum && bNum {
		return af == bf
	}
	if ab, ok := a.(bool); ok {
		return ab == safejson.Bool(b, !ab)
	}
	return scalarString(a) == scalarString(b)
}

func less(a, b Record, order []OrderBy) bool {
	for _, o := range order {
		cmp := compareValues(a[o.Field], b[o.Field])
		if cmp == 0 {
			continue
		}
		if o.Direction == Desc {
			return cmp > 0
		}
		return cmp < 0
	}
	return false
}

func compareValues(a, b any) int {
	af, aNum := safejson.Float64OK(a)
	bf, bNum := safejson.Float64OK(b)
	if aNum && bNum {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	return strings.Compare(scalarString(a), scalarString(b))
}

func groupFirst(rows []Record, fields []string) []Record {
	seen := make(map[string]struct{}, len(rows))
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		parts := make([]string, len(fields))
		for i, f := range fields {
			parts[i] = scalarString(row[f])
		}
		key := strings.Join(parts, "\x00")
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, row)
	}
	return out
}

func page(rows []Record, p Paging) []Record {
	offset := p.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(rows) {
		return nil
	}
	rows = rows[offset:]
	if p.Limit > 0 && p.Limit < len(rows) {
		rows = rows[:p.Limit]
	}
	return rows
}

func scalarString(v any) string {
	if v == nil {
		return ""
	}
	if s := safejson.String(v, ""); s != "" {
		return s
	}
	return fmt.Sprint(v)
}
