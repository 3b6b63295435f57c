package recordstore

// Operator is a where-clause comparison supported by the record store.
type Operator string

const (
	OpEqualTo  Operator = "EqualTo"
	OpContains Operator = "Contains"
)

// Direction orders a fetch.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// Condition matches when the field satisfies the operator against any of Values.
type Condition struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Values   []any    `json:"values"`
}

type OrderBy struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction"`
}

// Paging is offset pagination; a non-positive Limit leaves the page size to the store.
type Paging struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// FetchParams describes one fetch against a table.
type FetchParams struct {
	Fields  []string    `json:"fields,omitempty"`
	Where   []Condition `json:"where,omitempty"`
	GroupBy []string    `json:"groupBy,omitempty"`
	OrderBy []OrderBy   `json:"orderBy,omitempty"`
	Paging  Paging      `json:"paging"`
}

func Equal(field string, values ...any) Condition {
	return Condition{Field: field, Operator: OpEqualTo, Values: values}
}

func Contains(field string, value string) Condition {
	return Condition{Field: field, Operator: OpContains, Values: []any{value}}
}

func Ascending(field string) OrderBy {
	return OrderBy{Field: field, Direction: Asc}
}

func Descending(field string) OrderBy {
	return OrderBy{Field: field, Direction: Desc}
}
