package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appforge/flowcore/pkg/models"
	"github.com/appforge/flowcore/pkg/runfail"
	"github.com/appforge/flowcore/pkg/security"
	"github.com/appforge/flowcore/pkg/tables"
)

func TestParseConditions(t *testing.T) {
	specs, err := parseConditions([]any{
		map[string]any{"column": "status", "operator": "eq", "value": "active"},
		map[string]any{"column": "attrs", "value": "red", "jsonPath": "color"},
	})
	require.NoError(t, err)
	require.Len(t, specs, 2)

	assert.Equal(t, "eq", specs[0].Operator)
	assert.Equal(t, "eq", specs[1].Operator, "operator defaults to eq")
	assert.Equal(t, "color", specs[1].JSONPath)

	_, err = parseConditions([]any{map[string]any{"operator": "eq"}})
	require.Error(t, err)
	assert.Equal(t, runfail.CodeInvalidConfig, runfail.CodeOf(err))
}

func TestConditionSpec_ResolveSubstitutes(t *testing.T) {
	run := models.NewExecutionContext("run-1", "app-1", "user-1")
	run.Form["status"] = "shipped"

	cond := conditionSpec{Column: "status", Operator: "eq", Value: "{{form.status}}"}.resolve(run)
	assert.Equal(t, "shipped", cond.Value)

	cond = conditionSpec{Column: "qty", Operator: "gte", Value: float64(3)}.resolve(run)
	assert.Equal(t, float64(3), cond.Value)
}

func TestParseColumns(t *testing.T) {
	columns, err := parseColumns([]any{
		map[string]any{"name": "title"},
		map[string]any{"name": "price", "type": "number", "required": true},
	})
	require.NoError(t, err)
	require.Len(t, columns, 2)

	assert.Equal(t, models.FieldText, columns[0].Kind, "type defaults to text")
	assert.Equal(t, models.FieldNumber, columns[1].Kind)
	assert.True(t, columns[1].Required)
}

func TestInferColumns(t *testing.T) {
	columns := inferColumns(map[string]any{
		"title":  "hello",
		"price":  float64(9.5),
		"active": true,
		"id":     int64(7),
	})

	kinds := make(map[string]models.FieldKind, len(columns))
	for _, c := range columns {
		kinds[c.Name] = c.Kind
	}

	assert.Equal(t, models.FieldText, kinds["title"])
	assert.Equal(t, models.FieldNumber, kinds["price"])
	assert.Equal(t, models.FieldBoolean, kinds["active"])
	assert.NotContains(t, kinds, "id", "reserved columns are never inferred")
}

func TestSplitUniqueField(t *testing.T) {
	column, path := splitUniqueField("email")
	assert.Equal(t, "email", column)
	assert.Empty(t, path)

	column, path = splitUniqueField("attrs.sku")
	assert.Equal(t, "attrs", column)
	assert.Equal(t, "sku", path)
}

func TestNewUpdateBlock_RefusesZeroConditions(t *testing.T) {
	svc := tables.NewServiceWithoutMigrations(nil, nil)

	_, err := NewUpdateBlock("n1", map[string]any{
		"tableName":       "orders",
		"updateData":      map[string]any{"status": "done"},
		"whereConditions": []any{},
	}, svc)
	require.Error(t, err)
	assert.Equal(t, runfail.CodeInvalidConfig, runfail.CodeOf(err))
}

func TestNewUpsertBlock_RequiresUniqueFields(t *testing.T) {
	svc := tables.NewServiceWithoutMigrations(nil, nil)
	limiter := security.NewMemoryRateLimiter(security.DefaultPolicies())

	_, err := NewUpsertBlock("n1", map[string]any{
		"tableName":  "orders",
		"insertData": map[string]any{"sku": "a-1"},
	}, svc, limiter)
	require.Error(t, err)

	block, err := NewUpsertBlock("n1", map[string]any{
		"tableName":    "orders",
		"uniqueFields": []any{"sku"},
		"insertData":   map[string]any{"sku": "a-1", "qty": float64(2)},
	}, svc, limiter)
	require.NoError(t, err)
	assert.Equal(t, block.updateData, block.insertData, "updateData defaults to insertData")
}

func TestUpsertBlock_UniqueConditions(t *testing.T) {
	svc := tables.NewServiceWithoutMigrations(nil, nil)
	limiter := security.NewMemoryRateLimiter(security.DefaultPolicies())

	block, err := NewUpsertBlock("n1", map[string]any{
		"tableName":    "orders",
		"uniqueFields": []any{"sku", "attrs.color"},
		"insertData":   map[string]any{"sku": "a-1", "attrs": map[string]any{"color": "red"}},
	}, svc, limiter)
	require.NoError(t, err)

	conds, err := block.uniqueConditions(map[string]any{
		"sku":   "a-1",
		"attrs": map[string]any{"color": "red"},
	})
	require.NoError(t, err)
	require.Len(t, conds, 2)

	assert.Equal(t, "sku", conds[0].Column)
	assert.Equal(t, "attrs", conds[1].Column)
	assert.Equal(t, "color", conds[1].JSONPath)
	assert.Equal(t, "red", conds[1].Value)

	_, err = block.uniqueConditions(map[string]any{"other": 1})
	require.Error(t, err)
	assert.Equal(t, runfail.CodeValidation, runfail.CodeOf(err))
}

func TestToUint(t *testing.T) {
	assert.Equal(t, uint64(25), toUint(float64(25)))
	assert.Equal(t, uint64(0), toUint(float64(-1)))
	assert.Equal(t, uint64(0), toUint("25"))
}
