package migration

import (
	"github.com/schemaflow/schemaflow/pkg/schema"
)

// columnTypes maps semantic field types to native column types per dialect.
// Kept as pure data so adding a dialect is a table entry, not new branching
// logic.
var columnTypes = map[schema.Dialect]map[schema.FieldType]string{
	schema.DialectPostgreSQL: {
		schema.FieldTypeString:    "TEXT",
		schema.FieldTypeInteger:   "BIGINT",
		schema.FieldTypeDecimal:   "NUMERIC(38,9)",
		schema.FieldTypeBoolean:   "BOOLEAN",
		schema.FieldTypeDateTime:  "TIMESTAMPTZ",
		schema.FieldTypeJson:      "JSONB",
		schema.FieldTypeComplex:   "JSONB",
		schema.FieldTypeBinary:    "BYTEA",
		schema.FieldTypeEnum:      "TEXT",
		schema.FieldTypeReference: "TEXT",
		schema.FieldTypeGeometry:  "GEOMETRY",
		schema.FieldTypeArray:     "JSONB",
		schema.FieldTypeMap:       "JSONB",
	},
	schema.DialectSQLServer: {
		schema.FieldTypeString:    "NVARCHAR(MAX)",
		schema.FieldTypeInteger:   "BIGINT",
		schema.FieldTypeDecimal:   "DECIMAL(38,9)",
		schema.FieldTypeBoolean:   "BIT",
		schema.FieldTypeDateTime:  "DATETIME2",
		schema.FieldTypeJson:      "NVARCHAR(MAX)",
		schema.FieldTypeComplex:   "NVARCHAR(MAX)",
		schema.FieldTypeBinary:    "VARBINARY(MAX)",
		schema.FieldTypeEnum:      "NVARCHAR(255)",
		schema.FieldTypeReference: "NVARCHAR(255)",
		schema.FieldTypeGeometry:  "GEOMETRY",
		schema.FieldTypeArray:     "NVARCHAR(MAX)",
		schema.FieldTypeMap:       "NVARCHAR(MAX)",
	},
	schema.DialectMySQL: {
		schema.FieldTypeString:    "LONGTEXT",
		schema.FieldTypeInteger:   "BIGINT",
		schema.FieldTypeDecimal:   "DECIMAL(38,9)",
		schema.FieldTypeBoolean:   "TINYINT(1)",
		schema.FieldTypeDateTime:  "DATETIME(6)",
		schema.FieldTypeJson:      "JSON",
		schema.FieldTypeComplex:   "JSON",
		schema.FieldTypeBinary:    "LONGBLOB",
		schema.FieldTypeEnum:      "VARCHAR(255)",
		schema.FieldTypeReference: "VARCHAR(255)",
		schema.FieldTypeGeometry:  "GEOMETRY",
		schema.FieldTypeArray:     "JSON",
		schema.FieldTypeMap:       "JSON",
	},
	schema.DialectSQLite: {
		schema.FieldTypeString:    "TEXT",
		schema.FieldTypeInteger:   "INTEGER",
		schema.FieldTypeDecimal:   "NUMERIC",
		schema.FieldTypeBoolean:   "INTEGER",
		schema.FieldTypeDateTime:  "TEXT",
		schema.FieldTypeJson:      "TEXT",
		schema.FieldTypeComplex:   "TEXT",
		schema.FieldTypeBinary:    "BLOB",
		schema.FieldTypeEnum:      "TEXT",
		schema.FieldTypeReference: "TEXT",
		schema.FieldTypeGeometry:  "BLOB",
		schema.FieldTypeArray:     "TEXT",
		schema.FieldTypeMap:       "TEXT",
	},
}

// columnType resolves a field type to the dialect's native column type,
// falling back to the dialect's string type.
func columnType(d schema.Dialect, t schema.FieldType) string {
	table, ok := columnTypes[d]
	if !ok {
		return "TEXT"
	}
	if native, ok := table[t]; ok {
		return native
	}
	return table[schema.FieldTypeString]
}

// castGuards holds per-dialect validity-check expressions used by guarded
// cast transformations. The placeholder %s receives the quoted column.
// Target types without a guard pass every value through unchanged.
var castGuards = map[schema.Dialect]map[schema.FieldType]string{
	schema.DialectPostgreSQL: {
		schema.FieldTypeInteger:  `%s::text ~ '^-?[0-9]+$'`,
		schema.FieldTypeDecimal:  `%s::text ~ '^-?[0-9]+(\.[0-9]+)?$'`,
		schema.FieldTypeBoolean:  `lower(%s::text) IN ('true','false','t','f','0','1')`,
		schema.FieldTypeDateTime: `%s::text ~ '^[0-9]{4}-[0-9]{2}-[0-9]{2}'`,
	},
	schema.DialectMySQL: {
		schema.FieldTypeInteger:  `%s REGEXP '^-?[0-9]+$'`,
		schema.FieldTypeDecimal:  `%s REGEXP '^-?[0-9]+(\\.[0-9]+)?$'`,
		schema.FieldTypeBoolean:  `LOWER(%s) IN ('true','false','0','1')`,
		schema.FieldTypeDateTime: `%s REGEXP '^[0-9]{4}-[0-9]{2}-[0-9]{2}'`,
	},
	schema.DialectSQLite: {
		schema.FieldTypeInteger:  `%s GLOB '-[0-9]*' OR %s GLOB '[0-9]*'`,
		schema.FieldTypeDecimal:  `typeof(%s) IN ('integer','real') OR %s GLOB '*[0-9]*'`,
		schema.FieldTypeBoolean:  `lower(CAST(%s AS TEXT)) IN ('true','false','0','1')`,
		schema.FieldTypeDateTime: `%s GLOB '[0-9][0-9][0-9][0-9]-[0-9][0-9]-[0-9][0-9]*'`,
	},
}
