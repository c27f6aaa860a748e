package tables

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appforge/flowcore/pkg/models"
	"github.com/appforge/flowcore/pkg/runfail"
)

func TestPhysicalName(t *testing.T) {
	name, err := PhysicalName("42", "My Orders")
	require.NoError(t, err)
	assert.Equal(t, "app_t_42_my_orders", name)

	name, err = PhysicalName("acme", "customers")
	require.NoError(t, err)
	assert.Equal(t, "app_acme_customers", name)
}

func TestPhysicalName_RejectsGarbage(t *testing.T) {
	_, err := PhysicalName("acme", "!!!")
	assert.Error(t, err)
}

func TestValidateColumns(t *testing.T) {
	table := &models.UserTable{
		AppID:     "acme",
		TableName: "app_acme_orders",
		Columns: []models.ColumnSpec{
			{Name: "status", Kind: models.FieldText},
			{Name: "total", Kind: models.FieldNumber},
		},
	}

	require.NoError(t, validateColumns(table, map[string]any{"status": "open"}))
	require.NoError(t, validateColumns(table, map[string]any{"id": 1, "total": 5}))

	err := validateColumns(table, map[string]any{"rogue": true})
	require.Error(t, err)
	assert.True(t, runfail.IsValidation(err))
}

func TestFieldKindSQLTypes(t *testing.T) {
	assert.Equal(t, "TEXT", models.FieldText.SQLType())
	assert.Equal(t, "DECIMAL", models.FieldNumber.SQLType())
	assert.Equal(t, "BOOLEAN", models.FieldBoolean.SQLType())
	assert.Equal(t, "DATE", models.FieldDate.SQLType())
	assert.Equal(t, "TIMESTAMPTZ", models.FieldDateTime.SQLType())
	assert.Equal(t, "TEXT", models.FieldFile.SQLType())
	assert.Equal(t, "TEXT", models.FieldMedia.SQLType())
}

func TestNormalizeValue(t *testing.T) {
	assert.Equal(t, "plain", normalizeValue("plain"))
	assert.Equal(t, 5, normalizeValue(5))
	assert.JSONEq(t, `{"a":1}`, normalizeValue(map[string]any{"a": 1}).(string))
	assert.JSONEq(t, `[1,2]`, normalizeValue([]any{1, 2}).(string))
}
