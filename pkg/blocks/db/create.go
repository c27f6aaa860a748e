package db

import (
	"context"
	"errors"

	"github.com/appforge/flowcore/pkg/models"
	"github.com/appforge/flowcore/pkg/runfail"
	"github.com/appforge/flowcore/pkg/security"
	"github.com/appforge/flowcore/pkg/tables"
	"github.com/appforge/flowcore/pkg/template"
)

// CreateBlock materializes the target table on first use and inserts
// one row. Table creation is rate limited separately from inserts.
type CreateBlock struct {
	id      string
	table   string
	columns []models.ColumnSpec
	rowData map[string]any
	svc     *tables.Service
	limiter security.RateLimiter
}

func NewCreateBlock(id string, config map[string]any, svc *tables.Service, limiter security.RateLimiter) (*CreateBlock, error) {
	table, ok := config["tableName"].(string)
	if !ok || table == "" {
		return nil, errors.New("missing required field 'tableName'")
	}

	columns, err := parseColumns(config["columns"])
	if err != nil {
		return nil, err
	}

	rowData, _ := config["rowData"].(map[string]any)

	return &CreateBlock{
		id:      id,
		table:   table,
		columns: columns,
		rowData: rowData,
		svc:     svc,
		limiter: limiter,
	}, nil
}

func (b *CreateBlock) ID() string {
	return b.id
}

func (b *CreateBlock) Label() string {
	return models.LabelDBCreate
}

func (b *CreateBlock) Execute(ctx context.Context, run *models.ExecutionContext) (*models.BlockResult, error) {
	row := template.RenderConfig(b.rowData, run)

	table, err := b.ensureTable(ctx, run, row)
	if err != nil {
		return models.FailErr(err), nil
	}

	id, err := b.svc.Insert(ctx, table, row)
	if err != nil {
		return models.FailErr(err), nil
	}

	run.Set("db", "last_insert_id", id)

	return models.OK(map[string]any{
		"id":        id,
		"tableName": table.TableName,
	}), nil
}

// ensureTable looks the schema up and lazily materializes it when the
// block runs for the first time. Declared columns win over inference.
func (b *CreateBlock) ensureTable(ctx context.Context, run *models.ExecutionContext, row map[string]any) (*models.UserTable, error) {
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
		columns = inferColumns(row)
	}

	if len(columns) == 0 {
		return nil, runfail.New(runfail.CodeInvalidConfig, "cannot create a table without columns or row data")
	}

	return b.svc.Materialize(ctx, run.AppID, b.table, columns)
}
