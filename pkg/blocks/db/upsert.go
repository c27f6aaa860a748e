package db

import (
	"context"
	"errors"

	"github.com/appforge/flowcore/pkg/models"
	"github.com/appforge/flowcore/pkg/query"
	"github.com/appforge/flowcore/pkg/runfail"
	"github.com/appforge/flowcore/pkg/security"
	"github.com/appforge/flowcore/pkg/tables"
	"github.com/appforge/flowcore/pkg/template"
)

// UpsertBlock inserts or updates depending on whether a row matching
// the unique fields already exists. Unique fields may address a JSONB
// key with "column.path" notation; values are coerced to the live
// column types before the existence check so "5" matches an integer 5.
type UpsertBlock struct {
	id           string
	table        string
	uniqueFields []string
	insertData   map[string]any
	updateData   map[string]any
	columns      []models.ColumnSpec
	svc          *tables.Service
	limiter      security.RateLimiter
}

func NewUpsertBlock(id string, config map[string]any, svc *tables.Service, limiter security.RateLimiter) (*UpsertBlock, error) {
	table, ok := config["tableName"].(string)
	if !ok || table == "" {
		return nil, errors.New("missing required field 'tableName'")
	}

	rawFields, ok := config["uniqueFields"].([]any)
	if !ok || len(rawFields) == 0 {
		return nil, errors.New("missing required field 'uniqueFields'")
	}

	uniqueFields := make([]string, 0, len(rawFields))

	for _, raw := range rawFields {
		field, ok := raw.(string)
		if !ok || field == "" {
			return nil, errors.New("uniqueFields entries must be non-empty strings")
		}

		uniqueFields = append(uniqueFields, field)
	}

	insertData, _ := config["insertData"].(map[string]any)
	if len(insertData) == 0 {
		return nil, errors.New("missing required field 'insertData'")
	}

	updateData, _ := config["updateData"].(map[string]any)
	if len(updateData) == 0 {
		updateData = insertData
	}

	columns, err := parseColumns(config["columns"])
	if err != nil {
		return nil, err
	}

	return &UpsertBlock{
		id:           id,
		table:        table,
		uniqueFields: uniqueFields,
		insertData:   insertData,
		updateData:   updateData,
		columns:      columns,
		svc:          svc,
		limiter:      limiter,
	}, nil
}

func (b *UpsertBlock) ID() string {
	return b.id
}

func (b *UpsertBlock) Label() string {
	return models.LabelDBUpsert
}

func (b *UpsertBlock) Execute(ctx context.Context, run *models.ExecutionContext) (*models.BlockResult, error) {
	insert := template.RenderConfig(b.insertData, run)

	table, err := b.ensureTable(ctx, run, insert)
	if err != nil {
		return models.FailErr(err), nil
	}

	conds, err := b.uniqueConditions(insert)
	if err != nil {
		return models.FailErr(err), nil
	}

	exists, err := b.svc.Exists(ctx, table, conds)
	if err != nil {
		return models.FailErr(err), nil
	}

	if exists {
		set := template.RenderConfig(b.updateData, run)

		affected, err := b.svc.Update(ctx, table, set, conds)
		if err != nil {
			return models.FailErr(err), nil
		}

		run.Set("db", "last_update_count", affected)

		return models.OK(map[string]any{
			"action":    "updated",
			"affected":  affected,
			"tableName": table.TableName,
		}), nil
	}

	id, err := b.svc.Insert(ctx, table, insert)
	if err != nil {
		return models.FailErr(err), nil
	}

	run.Set("db", "last_insert_id", id)

	return models.OK(map[string]any{
		"action":    "created",
		"id":        id,
		"tableName": table.TableName,
	}), nil
}

// uniqueConditions builds the existence filter from the unique fields,
// taking each field's value from the substituted insert payload.
func (b *UpsertBlock) uniqueConditions(insert map[string]any) ([]query.Condition, error) {
	conds := make([]query.Condition, 0, len(b.uniqueFields))

	for _, field := range b.uniqueFields {
		column, jsonPath := splitUniqueField(field)

		value, ok := insert[field]
		if !ok && jsonPath != "" {
			nested, nestedOK := insert[column].(map[string]any)
			if nestedOK {
				value, ok = nested[jsonPath]
			}
		}

		if !ok {
			return nil, runfail.New(runfail.CodeValidation,
				"unique field '"+field+"' has no value in insertData")
		}

		conds = append(conds, query.Condition{
			Column:   column,
			Operator: "eq",
			Value:    value,
			JSONPath: jsonPath,
		})
	}

	return conds, nil
}

func (b *UpsertBlock) ensureTable(ctx context.Context, run *models.ExecutionContext, insert map[string]any) (*models.UserTable, error) {
	physical, err := tables.PhysicalName(run.AppID, b.table)
	if err != nil {
		return nil, err
	}

	table, err := b.svc.Lookup(ctx, run.AppID, physical)
	if err == nil {
		return table, nil
	}

	if !errors.Is(err, tables.ErrTableNotFound) {
		return nil, err
	}

	if err := b.limiter.Allow(ctx, run.UserID, security.ActionTableDDL); err != nil {
		return nil, err
	}

	columns := b.columns
	if len(columns) == 0 {
		columns = inferColumns(insert)
	}

	if len(columns) == 0 {
		return nil, runfail.New(runfail.CodeInvalidConfig, "cannot create a table without columns or insert data")
	}

	return b.svc.Materialize(ctx, run.AppID, b.table, columns)
}
