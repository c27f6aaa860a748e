package query

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/appforge/flowcore/pkg/security"
)

// Querier is the narrow database surface the introspector needs. Both
// *sql.DB and *sql.Tx satisfy it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// ColumnType is a live physical column discovered from the catalog.
type ColumnType struct {
	Name     string
	DataType string // information_schema data_type, lowercased
	Nullable bool
}

// Introspect reads the live column set of a physical table from
// information_schema. The declared metadata can drift from the physical
// table after manual migrations, handlers that type-coerce must trust
// the catalog, not the metadata row.
func Introspect(ctx context.Context, db Querier, table string) (map[string]ColumnType, error) {
	safeTable, err := security.ValidateTableName(table)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
		ORDER BY ordinal_position
	`, safeTable)
	if err != nil {
		return nil, fmt.Errorf("failed to introspect table %s: %w", safeTable, err)
	}

	defer func() { _ = rows.Close() }()

	columns := make(map[string]ColumnType)

	for rows.Next() {
		var name, dataType, nullable string

		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}

		columns[name] = ColumnType{
			Name:     name,
			DataType: strings.ToLower(dataType),
			Nullable: strings.EqualFold(nullable, "YES"),
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}

	return columns, nil
}

// CoerceToColumnType converts a supplied value to match a discovered
// column type. Without this an upsert existence check comparing the
// string "5" against an integer key silently finds nothing.
func CoerceToColumnType(value any, column ColumnType) any {
	if value == nil {
		return nil
	}

	switch {
	case strings.Contains(column.DataType, "int"):
		switch v := value.(type) {
		case string:
			if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
				return n
			}
		case float64:
			return int64(v)
		case int:
			return int64(v)
		}

	case strings.Contains(column.DataType, "numeric"),
		strings.Contains(column.DataType, "decimal"),
		strings.Contains(column.DataType, "double"),
		strings.Contains(column.DataType, "real"):
		switch v := value.(type) {
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f
			}
		case int:
			return float64(v)
		case int64:
			return float64(v)
		}

	case column.DataType == "boolean":
		switch v := value.(type) {
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				return b
			}
		case float64:
			return v != 0
		}

	case strings.Contains(column.DataType, "timestamp"), column.DataType == "date":
		if v, ok := value.(string); ok {
			for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
				if t, err := time.Parse(layout, strings.TrimSpace(v)); err == nil {
					return t
				}
			}
		}

	case strings.Contains(column.DataType, "char"), column.DataType == "text":
		switch value.(type) {
		case string:
			return value
		default:
			return fmt.Sprintf("%v", value)
		}
	}

	return value
}
