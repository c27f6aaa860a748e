package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appforge/flowcore/pkg/runfail"
)

func TestBuildSelect_Basic(t *testing.T) {
	sql, args, err := BuildSelect("app_1_orders", nil, []Condition{
		{Column: "status", Operator: "eq", Value: "open"},
		{Column: "total", Operator: "gte", Value: 100},
	}, []Order{{Column: "created_at", Desc: true}}, 25, 50)

	require.NoError(t, err)
	assert.Equal(t,
		"SELECT * FROM app_1_orders WHERE (status = $1 AND total >= $2) ORDER BY created_at DESC LIMIT 25 OFFSET 50",
		sql)
	assert.Equal(t, []any{"open", 100}, args)
}

func TestBuildSelect_ColumnProjection(t *testing.T) {
	sql, _, err := BuildSelect("app_1_orders", []string{"id", "status"}, nil, nil, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, status FROM app_1_orders", sql)
}

func TestBuildSelect_RejectsUnknownOperator(t *testing.T) {
	_, _, err := BuildSelect("app_1_orders", nil, []Condition{
		{Column: "status", Operator: "sounds_like", Value: "open"},
	}, nil, 0, 0)

	require.Error(t, err)
	assert.True(t, runfail.IsValidation(err))
}

func TestBuildSelect_RejectsBadIdentifiers(t *testing.T) {
	_, _, err := BuildSelect("orders; DROP TABLE users", nil, nil, nil, 0, 0)
	assert.Error(t, err)

	_, _, err = BuildSelect("orders", nil, []Condition{
		{Column: "1; --", Operator: "eq", Value: 1},
	}, nil, 0, 0)
	assert.Error(t, err)
}

func TestBuildSelect_JSONPathCondition(t *testing.T) {
	sql, args, err := BuildSelect("app_1_items", nil, []Condition{
		{Column: "attrs", Operator: "eq", Value: "red", JSONPath: "color"},
	}, nil, 0, 0)

	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM app_1_items WHERE (attrs->>'color' = $1)", sql)
	assert.Equal(t, []any{"red"}, args)
}

func TestBuildUpdate_RefusesZeroConditions(t *testing.T) {
	_, _, err := BuildUpdate("app_1_orders", map[string]any{"status": "closed"}, nil)
	require.Error(t, err)
	assert.True(t, runfail.IsValidation(err))
}

func TestBuildUpdate_Basic(t *testing.T) {
	sql, args, err := BuildUpdate("app_1_orders",
		map[string]any{"status": "closed"},
		[]Condition{{Column: "id", Operator: "eq", Value: 7}})

	require.NoError(t, err)
	assert.Equal(t, "UPDATE app_1_orders SET status = $1 WHERE (id = $2)", sql)
	assert.Equal(t, []any{"closed", 7}, args)
}

func TestBuildInsert_ReturnsID(t *testing.T) {
	sql, args, err := BuildInsert("app_1_orders", map[string]any{
		"status": "open",
		"total":  42,
	})

	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO app_1_orders (status,total) VALUES ($1,$2) RETURNING id", sql)
	assert.Equal(t, []any{"open", 42}, args)
}

func TestBuildInsert_Empty(t *testing.T) {
	_, _, err := BuildInsert("app_1_orders", map[string]any{})
	assert.Error(t, err)
}

func TestCoerceToColumnType(t *testing.T) {
	assert.Equal(t, int64(5), CoerceToColumnType("5", ColumnType{DataType: "bigint"}))
	assert.Equal(t, 2.5, CoerceToColumnType("2.5", ColumnType{DataType: "numeric"}))
	assert.Equal(t, true, CoerceToColumnType("true", ColumnType{DataType: "boolean"}))
	assert.Equal(t, "42", CoerceToColumnType(42, ColumnType{DataType: "text"}))
	assert.Nil(t, CoerceToColumnType(nil, ColumnType{DataType: "text"}))

	// Unparseable values pass through untouched.
	assert.Equal(t, "abc", CoerceToColumnType("abc", ColumnType{DataType: "bigint"}))
}
