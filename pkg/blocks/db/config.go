// Package db provides the data blocks: create, find, update and
// upsert over app-scoped user tables.
package db

import (
	"fmt"
	"strings"

	"github.com/appforge/flowcore/pkg/models"
	"github.com/appforge/flowcore/pkg/query"
	"github.com/appforge/flowcore/pkg/runfail"
	"github.com/appforge/flowcore/pkg/template"
)

// conditionSpec is one declared filter term before substitution.
type conditionSpec struct {
	Column   string
	Operator string
	Value    any
	JSONPath string
}

func (s conditionSpec) resolve(run *models.ExecutionContext) query.Condition {
	value := s.Value
	if text, ok := value.(string); ok {
		value = template.Render(text, run)
	}

	return query.Condition{
		Column:   s.Column,
		Operator: s.Operator,
		Value:    value,
		JSONPath: s.JSONPath,
	}
}

func parseConditions(raw any) ([]conditionSpec, error) {
	if raw == nil {
		return nil, nil
	}

	items, ok := raw.([]any)
	if !ok {
		return nil, runfail.New(runfail.CodeInvalidConfig, "conditions must be an array")
	}

	specs := make([]conditionSpec, 0, len(items))

	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, runfail.New(runfail.CodeInvalidConfig, fmt.Sprintf("condition %d must be an object", i))
		}

		column, _ := m["column"].(string)
		if column == "" {
			return nil, runfail.New(runfail.CodeInvalidConfig, fmt.Sprintf("condition %d missing 'column'", i))
		}

		operator, _ := m["operator"].(string)
		if operator == "" {
			operator = "eq"
		}

		jsonPath, _ := m["jsonPath"].(string)

		specs = append(specs, conditionSpec{
			Column:   column,
			Operator: operator,
			Value:    m["value"],
			JSONPath: jsonPath,
		})
	}

	return specs, nil
}

func parseOrder(raw any) ([]query.Order, error) {
	if raw == nil {
		return nil, nil
	}

	items, ok := raw.([]any)
	if !ok {
		return nil, runfail.New(runfail.CodeInvalidConfig, "orderBy must be an array")
	}

	orders := make([]query.Order, 0, len(items))

	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, runfail.New(runfail.CodeInvalidConfig, fmt.Sprintf("orderBy %d must be an object", i))
		}

		column, _ := m["column"].(string)
		if column == "" {
			return nil, runfail.New(runfail.CodeInvalidConfig, fmt.Sprintf("orderBy %d missing 'column'", i))
		}

		desc, _ := m["desc"].(bool)

		orders = append(orders, query.Order{Column: column, Desc: desc})
	}

	return orders, nil
}

func parseColumns(raw any) ([]models.ColumnSpec, error) {
	if raw == nil {
		return nil, nil
	}

	items, ok := raw.([]any)
	if !ok {
		return nil, runfail.New(runfail.CodeInvalidConfig, "columns must be an array")
	}

	columns := make([]models.ColumnSpec, 0, len(items))

	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, runfail.New(runfail.CodeInvalidConfig, fmt.Sprintf("column %d must be an object", i))
		}

		name, _ := m["name"].(string)
		if name == "" {
			return nil, runfail.New(runfail.CodeInvalidConfig, fmt.Sprintf("column %d missing 'name'", i))
		}

		kind, _ := m["type"].(string)
		if kind == "" {
			kind = string(models.FieldText)
		}

		required, _ := m["required"].(bool)
		elementID, _ := m["elementId"].(string)

		columns = append(columns, models.ColumnSpec{
			Name:      name,
			Kind:      models.FieldKind(kind),
			Required:  required,
			ElementID: elementID,
		})
	}

	return columns, nil
}

// inferColumns derives a schema from a row payload when the canvas
// supplied none. Everything non-numeric and non-boolean is text.
func inferColumns(row map[string]any) []models.ColumnSpec {
	columns := make([]models.ColumnSpec, 0, len(row))

	for name, value := range row {
		if models.ReservedColumns[name] {
			continue
		}

		kind := models.FieldText

		switch value.(type) {
		case float64, int, int64:
			kind = models.FieldNumber
		case bool:
			kind = models.FieldBoolean
		}

		columns = append(columns, models.ColumnSpec{Name: name, Kind: kind})
	}

	return columns
}

// splitUniqueField separates a "column.path" unique field into its
// column and JSON path. A plain column name passes through.
func splitUniqueField(field string) (column, jsonPath string) {
	if i := strings.Index(field, "."); i > 0 {
		return field[:i], field[i+1:]
	}

	return field, ""
}

func toUint(value any) uint64 {
	switch v := value.(type) {
	case float64:
		if v > 0 {
			return uint64(v)
		}
	case int:
		if v > 0 {
			return uint64(v)
		}
	case int64:
		if v > 0 {
			return uint64(v)
		}
	}

	return 0
}
