package db

import (
	"context"
	"errors"

	"github.com/appforge/flowcore/pkg/models"
	"github.com/appforge/flowcore/pkg/query"
	"github.com/appforge/flowcore/pkg/tables"
)

const defaultFindLimit = 50

// FindBlock runs a declarative query over a user table and stores the
// rows under a named key in the db namespace.
type FindBlock struct {
	id        string
	table     string
	conds     []conditionSpec
	orderBy   []query.Order
	limit     uint64
	offset    uint64
	resultKey string
	svc       *tables.Service
}

func NewFindBlock(id string, config map[string]any, svc *tables.Service) (*FindBlock, error) {
	table, ok := config["tableName"].(string)
	if !ok || table == "" {
		return nil, errors.New("missing required field 'tableName'")
	}

	conds, err := parseConditions(config["conditions"])
	if err != nil {
		return nil, err
	}

	orderBy, err := parseOrder(config["orderBy"])
	if err != nil {
		return nil, err
	}

	limit := toUint(config["limit"])
	if limit == 0 {
		limit = defaultFindLimit
	}

	resultKey, _ := config["resultKey"].(string)
	if resultKey == "" {
		resultKey = "records"
	}

	return &FindBlock{
		id:        id,
		table:     table,
		conds:     conds,
		orderBy:   orderBy,
		limit:     limit,
		offset:    toUint(config["offset"]),
		resultKey: resultKey,
		svc:       svc,
	}, nil
}

func (b *FindBlock) ID() string {
	return b.id
}

func (b *FindBlock) Label() string {
	return models.LabelDBFind
}

func (b *FindBlock) Execute(ctx context.Context, run *models.ExecutionContext) (*models.BlockResult, error) {
	physical, err := tables.PhysicalName(run.AppID, b.table)
	if err != nil {
		return models.FailErr(err), nil
	}

	table, err := b.svc.Lookup(ctx, run.AppID, physical)
	if err != nil {
		return models.FailErr(err), nil
	}

	conds := make([]query.Condition, 0, len(b.conds))
	for _, spec := range b.conds {
		conds = append(conds, spec.resolve(run))
	}

	rows, err := b.svc.Find(ctx, table, conds, b.orderBy, b.limit, b.offset)
	if err != nil {
		return models.FailErr(err), nil
	}

	run.Set("db", b.resultKey, rows)

	return models.OK(map[string]any{
		"count":     len(rows),
		"resultKey": b.resultKey,
	}), nil
}
