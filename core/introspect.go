package core

import (
	"context"
	"database/sql"

	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core/internal/sdata"
)

type (
	DBColumn  = sdata.DBColumn
	TableDef  = sdata.TableDef
	ColumnDef = sdata.ColumnDef
)

// Introspect reads the columns of table from db. An empty schema uses the
// connection's current schema.
func Introspect(ctx context.Context, db *sql.DB, d Dialect, schema, table string) ([]DBColumn, error) {
	return sdata.Introspect(ctx, db, d, schema, table)
}

// Tables lists the tables of the connection's current schema
func Tables(ctx context.Context, db *sql.DB, d Dialect) ([]string, error) {
	return sdata.Tables(ctx, db, d)
}

// ModelFromColumns builds a single table model from introspected columns
func ModelFromColumns(table string, cols []DBColumn) *Model {
	td, defs := sdata.CatalogTableFromColumns(table, cols)
	return &Model{
		Name:    table,
		From:    table,
		Tables:  []TableDef{td},
		Columns: defs,
	}
}
