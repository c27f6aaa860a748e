// Package query builds parameterized SQL from declarative filter and
// order specs, and discovers live column types of physical tables.
// Every identifier passes pkg/security validation before it reaches a
// statement, values only ever travel as placeholders.
package query

import (
	"fmt"
	"sort"

	sq "github.com/Masterminds/squirrel"

	"github.com/appforge/flowcore/pkg/runfail"
	"github.com/appforge/flowcore/pkg/security"
)

// Condition is one declarative filter term.
type Condition struct {
	Column   string `json:"column"   validate:"required"`
	Operator string `json:"operator" validate:"required"`
	Value    any    `json:"value"`
	// JSONPath addresses a key inside a JSONB column, e.g. column
	// "attrs" with path "color" compares attrs->>'color'.
	JSONPath string `json:"json_path,omitempty"`
}

// Order is one declarative sort term.
type Order struct {
	Column string `json:"column" validate:"required"`
	Desc   bool   `json:"desc"`
}

// Supported filter operators.
var operators = map[string]bool{
	"eq": true, "neq": true,
	"gt": true, "gte": true,
	"lt": true, "lte": true,
	"like": true, "ilike": true,
	"in":          true,
	"is_null":     true,
	"is_not_null": true,
	"contains":    true, // JSONB containment
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// BuildSelect produces a parameterized SELECT over the given table.
func BuildSelect(table string, columns []string, conds []Condition, orderBy []Order, limit, offset uint64) (string, []any, error) {
	safeTable, err := security.ValidateTableName(table)
	if err != nil {
		return "", nil, err
	}

	selected := []string{"*"}

	if len(columns) > 0 {
		selected = make([]string, 0, len(columns))

		for _, column := range columns {
			safe, err := security.ValidateColumnName(column)
			if err != nil {
				return "", nil, err
			}

			selected = append(selected, safe)
		}
	}

	builder := psql.Select(selected...).From(safeTable)

	builder, err = applyConditions(builder, conds)
	if err != nil {
		return "", nil, err
	}

	for _, order := range orderBy {
		safe, err := security.ValidateColumnName(order.Column)
		if err != nil {
			return "", nil, err
		}

		direction := "ASC"
		if order.Desc {
			direction = "DESC"
		}

		builder = builder.OrderBy(safe + " " + direction)
	}

	if limit > 0 {
		builder = builder.Limit(limit)
	}

	if offset > 0 {
		builder = builder.Offset(offset)
	}

	return builder.ToSql()
}

// BuildUpdate produces a parameterized UPDATE. It refuses to build a
// statement with no conditions: an unconditional mass update is never
// a valid block outcome.
func BuildUpdate(table string, set map[string]any, conds []Condition) (string, []any, error) {
	if len(conds) == 0 {
		return "", nil, runfail.New(runfail.CodeValidation, "update requires at least one condition")
	}

	if len(set) == 0 {
		return "", nil, runfail.New(runfail.CodeValidation, "update requires at least one column to set")
	}

	safeTable, err := security.ValidateTableName(table)
	if err != nil {
		return "", nil, err
	}

	builder := psql.Update(safeTable)

	for column, value := range set {
		safe, err := security.ValidateColumnName(column)
		if err != nil {
			return "", nil, err
		}

		builder = builder.Set(safe, value)
	}

	where, err := conditionsToSqlizer(conds)
	if err != nil {
		return "", nil, err
	}

	return builder.Where(where).ToSql()
}

// BuildInsert produces a parameterized single-row INSERT returning the
// new row id.
func BuildInsert(table string, row map[string]any) (string, []any, error) {
	if len(row) == 0 {
		return "", nil, runfail.New(runfail.CodeValidation, "insert requires at least one column")
	}

	safeTable, err := security.ValidateTableName(table)
	if err != nil {
		return "", nil, err
	}

	columns := make([]string, 0, len(row))
	values := make([]any, 0, len(row))

	for _, column := range sortedKeys(row) {
		safe, err := security.ValidateColumnName(column)
		if err != nil {
			return "", nil, err
		}

		columns = append(columns, safe)
		values = append(values, row[column])
	}

	return psql.Insert(safeTable).
		Columns(columns...).
		Values(values...).
		Suffix("RETURNING id").
		ToSql()
}

func applyConditions(builder sq.SelectBuilder, conds []Condition) (sq.SelectBuilder, error) {
	if len(conds) == 0 {
		return builder, nil
	}

	where, err := conditionsToSqlizer(conds)
	if err != nil {
		return builder, err
	}

	return builder.Where(where), nil
}

func conditionsToSqlizer(conds []Condition) (sq.Sqlizer, error) {
	terms := make(sq.And, 0, len(conds))

	for _, cond := range conds {
		term, err := conditionToSqlizer(cond)
		if err != nil {
			return nil, err
		}

		terms = append(terms, term)
	}

	return terms, nil
}

func conditionToSqlizer(cond Condition) (sq.Sqlizer, error) {
	if !operators[cond.Operator] {
		return nil, runfail.New(runfail.CodeValidation, fmt.Sprintf("unknown operator %q", cond.Operator))
	}

	column, err := security.ValidateColumnName(cond.Column)
	if err != nil {
		return nil, err
	}

	if cond.JSONPath != "" {
		path, err := security.ValidateColumnName(cond.JSONPath)
		if err != nil {
			return nil, err
		}

		column = fmt.Sprintf("%s->>'%s'", column, path)
	}

	switch cond.Operator {
	case "eq":
		return sq.Eq{column: cond.Value}, nil
	case "neq":
		return sq.NotEq{column: cond.Value}, nil
	case "gt":
		return sq.Gt{column: cond.Value}, nil
	case "gte":
		return sq.GtOrEq{column: cond.Value}, nil
	case "lt":
		return sq.Lt{column: cond.Value}, nil
	case "lte":
		return sq.LtOrEq{column: cond.Value}, nil
	case "like":
		return sq.Like{column: cond.Value}, nil
	case "ilike":
		return sq.ILike{column: cond.Value}, nil
	case "in":
		return sq.Eq{column: toSlice(cond.Value)}, nil
	case "is_null":
		return sq.Eq{column: nil}, nil
	case "is_not_null":
		return sq.NotEq{column: nil}, nil
	case "contains":
		return sq.Expr(column+" @> ?", cond.Value), nil
	default:
		return nil, runfail.New(runfail.CodeValidation, fmt.Sprintf("unknown operator %q", cond.Operator))
	}
}

func toSlice(value any) []any {
	if slice, ok := value.([]any); ok {
		return slice
	}

	return []any{value}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}
