package models

import "time"

// FieldKind is the logical type of a user-declared column.
type FieldKind string

const (
	FieldText     FieldKind = "text"
	FieldNumber   FieldKind = "number"
	FieldBoolean  FieldKind = "boolean"
	FieldDate     FieldKind = "date"
	FieldDateTime FieldKind = "datetime"
	FieldFile     FieldKind = "file"
	FieldMedia    FieldKind = "media"
)

// SQLType maps a logical field kind to its physical column type.
func (k FieldKind) SQLType() string {
	switch k {
	case FieldNumber:
		return "DECIMAL"
	case FieldBoolean:
		return "BOOLEAN"
	case FieldDate:
		return "DATE"
	case FieldDateTime, FieldFile, FieldMedia:
		if k == FieldDateTime {
			return "TIMESTAMPTZ"
		}

		return "TEXT"
	default:
		return "TEXT"
	}
}

// ColumnSpec describes one declared column of a user table.
type ColumnSpec struct {
	Name      string    `json:"name"     validate:"required"`
	Kind      FieldKind `json:"kind"     validate:"required"`
	Required  bool      `json:"required"`
	ElementID string    `json:"element_id,omitempty"` // canvas element that feeds this column
}

// UserTable is the declared schema mirror of a dynamically created
// physical table. The metadata row and the physical table are created
// together, a table with only one of the two is considered orphaned.
type UserTable struct {
	AppID     string       `json:"app_id"`
	TableName string       `json:"table_name"` // always prefixed app_{appID}_ once materialized
	Columns   []ColumnSpec `json:"columns"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Column finds a declared column by name.
func (t *UserTable) Column(name string) (*ColumnSpec, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}

	return nil, false
}

// Reserved columns every materialized table carries. They are managed
// by the core and stripped from user-supplied payloads.
var ReservedColumns = map[string]bool{
	"id":         true,
	"app_id":     true,
	"created_at": true,
	"updated_at": true,
}
