package db

import (
	"context"
	"errors"

	"github.com/appforge/flowcore/pkg/models"
	"github.com/appforge/flowcore/pkg/query"
	"github.com/appforge/flowcore/pkg/runfail"
	"github.com/appforge/flowcore/pkg/tables"
	"github.com/appforge/flowcore/pkg/template"
)

// UpdateBlock applies a conditional partial update. A configuration
// with no where conditions is rejected up front so the block can never
// mass-update a table.
type UpdateBlock struct {
	id         string
	table      string
	updateData map[string]any
	conds      []conditionSpec
	svc        *tables.Service
}

func NewUpdateBlock(id string, config map[string]any, svc *tables.Service) (*UpdateBlock, error) {
	table, ok := config["tableName"].(string)
	if !ok || table == "" {
		return nil, errors.New("missing required field 'tableName'")
	}

	updateData, _ := config["updateData"].(map[string]any)
	if len(updateData) == 0 {
		return nil, errors.New("missing required field 'updateData'")
	}

	conds, err := parseConditions(config["whereConditions"])
	if err != nil {
		return nil, err
	}

	if len(conds) == 0 {
		return nil, runfail.New(runfail.CodeInvalidConfig, "update requires at least one where condition")
	}

	return &UpdateBlock{
		id:         id,
		table:      table,
		updateData: updateData,
		conds:      conds,
		svc:        svc,
	}, nil
}

func (b *UpdateBlock) ID() string {
	return b.id
}

func (b *UpdateBlock) Label() string {
	return models.LabelDBUpdate
}

func (b *UpdateBlock) Execute(ctx context.Context, run *models.ExecutionContext) (*models.BlockResult, error) {
	physical, err := tables.PhysicalName(run.AppID, b.table)
	if err != nil {
		return models.FailErr(err), nil
	}

	table, err := b.svc.Lookup(ctx, run.AppID, physical)
	if err != nil {
		return models.FailErr(err), nil
	}

	set := template.RenderConfig(b.updateData, run)

	conds := make([]query.Condition, 0, len(b.conds))
	for _, spec := range b.conds {
		conds = append(conds, spec.resolve(run))
	}

	affected, err := b.svc.Update(ctx, table, set, conds)
	if err != nil {
		return models.FailErr(err), nil
	}

	run.Set("db", "last_update_count", affected)

	return models.OK(map[string]any{
		"affected":  affected,
		"tableName": table.TableName,
	}), nil
}
