// Package tables manages the dynamically created physical tables backing
// user-declared schemas, and the metadata registry mirroring them.
package tables

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/appforge/flowcore/pkg/models"
	"github.com/appforge/flowcore/pkg/query"
	"github.com/appforge/flowcore/pkg/runfail"
	"github.com/appforge/flowcore/pkg/security"
)

// ErrTableNotFound indicates no registered schema exists for the table.
var ErrTableNotFound = errors.New("user table not found")

// Service performs all physical-table work for the db.* blocks.
type Service struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewService(ctx context.Context, logger *slog.Logger, db *sql.DB) (*Service, error) {
	service := &Service{db: db, logger: logger}

	manager := NewMigrationManager(logger, db, migrations())
	if err := manager.RunMigrations(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return service, nil
}

// NewServiceWithoutMigrations wires a service over an existing schema.
func NewServiceWithoutMigrations(logger *slog.Logger, db *sql.DB) *Service {
	return &Service{db: db, logger: logger}
}

// PhysicalName computes the materialized table name for an app-scoped
// base name: always app_{appID}_{sanitizedBase}.
func PhysicalName(appID, baseName string) (string, error) {
	base, err := security.SanitizeBaseName(baseName)
	if err != nil {
		return "", err
	}

	safeApp, err := security.SanitizeBaseName(appID)
	if err != nil {
		return "", err
	}

	return security.ValidateTableName(fmt.Sprintf("app_%s_%s", safeApp, base))
}

// Lookup returns the registered schema for a physical table name.
func (s *Service) Lookup(ctx context.Context, appID, tableName string) (*models.UserTable, error) {
	var (
		columnsJSON          []byte
		createdAt, updatedAt time.Time
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT columns, created_at, updated_at
		FROM user_tables
		WHERE app_id = $1 AND table_name = $2
	`, appID, tableName).Scan(&columnsJSON, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTableNotFound
		}

		return nil, fmt.Errorf("failed to look up table %s: %w", tableName, err)
	}

	var columns []models.ColumnSpec
	if err := json.Unmarshal(columnsJSON, &columns); err != nil {
		return nil, fmt.Errorf("failed to decode columns for %s: %w", tableName, err)
	}

	return &models.UserTable{
		AppID:     appID,
		TableName: tableName,
		Columns:   columns,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

// Materialize creates the physical table and registers its metadata in
// one transaction. A table with only one of the two would be orphaned,
// so DDL and the metadata row commit together or not at all. Reserved
// columns (id, app_id, created_at, updated_at) are added implicitly.
func (s *Service) Materialize(ctx context.Context, appID, baseName string, columns []models.ColumnSpec) (*models.UserTable, error) {
	tableName, err := PhysicalName(appID, baseName)
	if err != nil {
		return nil, err
	}

	existing, err := s.Lookup(ctx, appID, tableName)
	if err == nil {
		return existing, nil
	}

	if !errors.Is(err, ErrTableNotFound) {
		return nil, err
	}

	safeColumns := make([]models.ColumnSpec, 0, len(columns))

	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n", tableName)
	ddl += "\tid BIGSERIAL PRIMARY KEY,\n"
	ddl += "\tapp_id VARCHAR(255) NOT NULL,\n"

	for _, column := range columns {
		safeName, err := security.ValidateColumnName(column.Name)
		if err != nil {
			return nil, err
		}

		if models.ReservedColumns[safeName] {
			continue
		}

		notNull := ""
		if column.Required {
			notNull = " NOT NULL"
		}

		ddl += fmt.Sprintf("\t%s %s%s,\n", safeName, column.Kind.SQLType(), notNull)

		safeColumns = append(safeColumns, models.ColumnSpec{
			Name:      safeName,
			Kind:      column.Kind,
			Required:  column.Required,
			ElementID: column.ElementID,
		})
	}

	ddl += "\tcreated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),\n"
	ddl += "\tupdated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()\n)"

	columnsJSON, err := json.Marshal(safeColumns)
	if err != nil {
		return nil, fmt.Errorf("failed to encode columns: %w", err)
	}

	transaction, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin materialization: %w", err)
	}

	if _, err = transaction.ExecContext(ctx, ddl); err != nil {
		_ = transaction.Rollback()

		return nil, fmt.Errorf("failed to create table %s: %w", tableName, err)
	}

	indexDDL := fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_app_id ON %s(app_id)", tableName, tableName)
	if _, err = transaction.ExecContext(ctx, indexDDL); err != nil {
		_ = transaction.Rollback()

		return nil, fmt.Errorf("failed to index table %s: %w", tableName, err)
	}

	_, err = transaction.ExecContext(ctx, `
		INSERT INTO user_tables (app_id, table_name, columns)
		VALUES ($1, $2, $3)
		ON CONFLICT (app_id, table_name) DO NOTHING
	`, appID, tableName, columnsJSON)
	if err != nil {
		_ = transaction.Rollback()

		return nil, fmt.Errorf("failed to register table %s: %w", tableName, err)
	}

	if err = transaction.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit materialization of %s: %w", tableName, err)
	}

	s.logger.InfoContext(ctx, "materialized user table", "app_id", appID, "table", tableName)

	return &models.UserTable{
		AppID:     appID,
		TableName: tableName,
		Columns:   safeColumns,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}, nil
}

// validateColumns rejects row payload keys absent from the registered
// schema. Reserved columns count as known but are stripped upstream.
func validateColumns(table *models.UserTable, row map[string]any) error {
	for column := range row {
		if models.ReservedColumns[column] {
			continue
		}

		if _, ok := table.Column(column); !ok {
			return runfail.New(runfail.CodeValidation,
				fmt.Sprintf("column %q is not declared on table %s", column, table.TableName))
		}
	}

	return nil
}

// Insert adds one row to a materialized table and returns the new id.
func (s *Service) Insert(ctx context.Context, table *models.UserTable, row map[string]any) (int64, error) {
	if err := validateColumns(table, row); err != nil {
		return 0, err
	}

	payload := make(map[string]any, len(row)+1)

	for column, value := range row {
		if models.ReservedColumns[column] {
			continue
		}

		payload[column] = normalizeValue(value)
	}

	payload["app_id"] = table.AppID

	statement, args, err := query.BuildInsert(table.TableName, payload)
	if err != nil {
		return 0, err
	}

	var id int64
	if err := s.db.QueryRowContext(ctx, statement, args...).Scan(&id); err != nil {
		return 0, runfail.Wrap(runfail.CodeExternalService, fmt.Errorf("insert into %s failed: %w", table.TableName, err))
	}

	return id, nil
}

// Find runs a declarative query over a materialized table. Conditions
// and order columns must be declared on the schema.
func (s *Service) Find(ctx context.Context, table *models.UserTable, conds []query.Condition, orderBy []query.Order, limit, offset uint64) ([]map[string]any, error) {
	for _, cond := range conds {
		if err := validateColumns(table, map[string]any{cond.Column: nil}); err != nil {
			return nil, err
		}
	}

	for _, order := range orderBy {
		if err := validateColumns(table, map[string]any{order.Column: nil}); err != nil {
			return nil, err
		}
	}

	scoped := append([]query.Condition{{Column: "app_id", Operator: "eq", Value: table.AppID}}, conds...)

	statement, args, err := query.BuildSelect(table.TableName, nil, scoped, orderBy, limit, offset)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, runfail.Wrap(runfail.CodeExternalService, fmt.Errorf("query on %s failed: %w", table.TableName, err))
	}

	defer func() { _ = rows.Close() }()

	return scanRows(rows)
}

// Update applies a partial update. Reserved columns are stripped from
// the payload, updated_at is stamped, and zero conditions are refused
// before any SQL executes.
func (s *Service) Update(ctx context.Context, table *models.UserTable, set map[string]any, conds []query.Condition) (int64, error) {
	if len(conds) == 0 {
		return 0, runfail.New(runfail.CodeValidation, "update requires at least one condition")
	}

	cleaned := make(map[string]any, len(set))

	for column, value := range set {
		if models.ReservedColumns[column] {
			continue
		}

		cleaned[column] = normalizeValue(value)
	}

	if err := validateColumns(table, cleaned); err != nil {
		return 0, err
	}

	cleaned["updated_at"] = time.Now().UTC()

	scoped := append([]query.Condition{{Column: "app_id", Operator: "eq", Value: table.AppID}}, conds...)

	statement, args, err := query.BuildUpdate(table.TableName, cleaned, scoped)
	if err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx, statement, args...)
	if err != nil {
		return 0, runfail.Wrap(runfail.CodeExternalService, fmt.Errorf("update on %s failed: %w", table.TableName, err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected, nil
}

// Exists checks whether a row matches the unique-field conditions,
// coercing each value to the live column type first.
func (s *Service) Exists(ctx context.Context, table *models.UserTable, conds []query.Condition) (bool, error) {
	live, err := query.Introspect(ctx, s.db, table.TableName)
	if err != nil {
		return false, err
	}

	coerced := make([]query.Condition, 0, len(conds)+1)
	coerced = append(coerced, query.Condition{Column: "app_id", Operator: "eq", Value: table.AppID})

	for _, cond := range conds {
		if column, ok := live[cond.Column]; ok && cond.JSONPath == "" {
			cond.Value = query.CoerceToColumnType(cond.Value, column)
		}

		coerced = append(coerced, cond)
	}

	statement, args, err := query.BuildSelect(table.TableName, []string{"id"}, coerced, nil, 1, 0)
	if err != nil {
		return false, err
	}

	var id int64

	err = s.db.QueryRowContext(ctx, statement, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}

	if err != nil {
		return false, runfail.Wrap(runfail.CodeExternalService, fmt.Errorf("existence check on %s failed: %w", table.TableName, err))
	}

	return true, nil
}

func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	results := make([]map[string]any, 0)

	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))

		for i := range values {
			pointers[i] = &values[i]
		}

		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(map[string]any, len(columns))

		for i, column := range columns {
			if b, ok := values[i].([]byte); ok {
				row[column] = string(b)

				continue
			}

			row[column] = values[i]
		}

		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return results, nil
}

// normalizeValue flattens composite values to JSON text so they fit
// TEXT columns without driver-specific handling.
func normalizeValue(value any) any {
	switch value.(type) {
	case map[string]any, []any:
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprintf("%v", value)
		}

		return string(encoded)
	default:
		return value
	}
}
