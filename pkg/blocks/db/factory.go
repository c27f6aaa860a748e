package db

import (
	"context"

	"github.com/appforge/flowcore/pkg/models"
	"github.com/appforge/flowcore/pkg/protocol"
	"github.com/appforge/flowcore/pkg/security"
	"github.com/appforge/flowcore/pkg/tables"
)

var conditionSchema = map[string]any{
	"type": "array",
	"items": map[string]any{
		"type": "object",
		"properties": map[string]any{
			"column":   map[string]any{"type": "string"},
			"operator": map[string]any{"type": "string"},
			"value":    map[string]any{},
			"jsonPath": map[string]any{"type": "string"},
		},
		"required": []any{"column"},
	},
}

var columnSchema = map[string]any{
	"type": "array",
	"items": map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
			"type": map[string]any{
				"type": "string",
				"enum": []any{"text", "number", "boolean", "date", "datetime", "file", "media"},
			},
			"required":  map[string]any{"type": "boolean"},
			"elementId": map[string]any{"type": "string"},
		},
		"required": []any{"name"},
	},
}

// CreateFactory creates db.create blocks.
type CreateFactory struct {
	svc     *tables.Service
	limiter security.RateLimiter
}

func NewCreateFactory(svc *tables.Service, limiter security.RateLimiter) protocol.BlockFactory {
	return &CreateFactory{svc: svc, limiter: limiter}
}

func (f *CreateFactory) Create(_ context.Context, nodeID string, config map[string]any) (protocol.Block, error) {
	return NewCreateBlock(nodeID, config, f.svc, f.limiter)
}

func (f *CreateFactory) ID() string   { return models.LabelDBCreate }
func (f *CreateFactory) Name() string { return "Create Record" }

func (f *CreateFactory) Description() string {
	return "Creates the table on first use and inserts one row."
}

func (f *CreateFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"tableName": map[string]any{"type": "string"},
			"columns":   columnSchema,
			"rowData":   map[string]any{"type": "object"},
		},
		"required": []any{"tableName"},
	}
}

// FindFactory creates db.find blocks.
type FindFactory struct {
	svc *tables.Service
}

func NewFindFactory(svc *tables.Service) protocol.BlockFactory {
	return &FindFactory{svc: svc}
}

func (f *FindFactory) Create(_ context.Context, nodeID string, config map[string]any) (protocol.Block, error) {
	return NewFindBlock(nodeID, config, f.svc)
}

func (f *FindFactory) ID() string   { return models.LabelDBFind }
func (f *FindFactory) Name() string { return "Find Records" }

func (f *FindFactory) Description() string {
	return "Queries rows with declarative conditions, ordering and paging."
}

func (f *FindFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"tableName":  map[string]any{"type": "string"},
			"conditions": conditionSchema,
			"orderBy": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"column": map[string]any{"type": "string"},
						"desc":   map[string]any{"type": "boolean"},
					},
					"required": []any{"column"},
				},
			},
			"limit":     map[string]any{"type": "number"},
			"offset":    map[string]any{"type": "number"},
			"resultKey": map[string]any{"type": "string"},
		},
		"required": []any{"tableName"},
	}
}

// UpdateFactory creates db.update blocks.
type UpdateFactory struct {
	svc *tables.Service
}

func NewUpdateFactory(svc *tables.Service) protocol.BlockFactory {
	return &UpdateFactory{svc: svc}
}

func (f *UpdateFactory) Create(_ context.Context, nodeID string, config map[string]any) (protocol.Block, error) {
	return NewUpdateBlock(nodeID, config, f.svc)
}

func (f *UpdateFactory) ID() string   { return models.LabelDBUpdate }
func (f *UpdateFactory) Name() string { return "Update Records" }

func (f *UpdateFactory) Description() string {
	return "Updates matching rows. Requires at least one where condition."
}

func (f *UpdateFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"tableName":       map[string]any{"type": "string"},
			"updateData":      map[string]any{"type": "object"},
			"whereConditions": conditionSchema,
		},
		"required": []any{"tableName", "updateData", "whereConditions"},
	}
}

// UpsertFactory creates db.upsert blocks.
type UpsertFactory struct {
	svc     *tables.Service
	limiter security.RateLimiter
}

func NewUpsertFactory(svc *tables.Service, limiter security.RateLimiter) protocol.BlockFactory {
	return &UpsertFactory{svc: svc, limiter: limiter}
}

func (f *UpsertFactory) Create(_ context.Context, nodeID string, config map[string]any) (protocol.Block, error) {
	return NewUpsertBlock(nodeID, config, f.svc, f.limiter)
}

func (f *UpsertFactory) ID() string   { return models.LabelDBUpsert }
func (f *UpsertFactory) Name() string { return "Upsert Record" }

func (f *UpsertFactory) Description() string {
	return "Inserts or updates depending on whether the unique fields already match a row."
}

func (f *UpsertFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"tableName": map[string]any{"type": "string"},
			"uniqueFields": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"insertData": map[string]any{"type": "object"},
			"updateData": map[string]any{"type": "object"},
			"columns":    columnSchema,
		},
		"required": []any{"tableName", "uniqueFields", "insertData"},
	}
}
