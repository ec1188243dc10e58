package sdata

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gobuffalo/flect"

	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core/internal/dialect"
)

// DBColumn is a physical column as reported by the database
type DBColumn struct {
	Name       string
	Length     int64
	PrimaryKey bool
	Type       string
}

// CurrentSchema returns the default schema of the connection
func CurrentSchema(ctx context.Context, db *sql.DB, p dialect.Provider) (string, error) {
	var schema string
	err := db.QueryRowContext(ctx, "SELECT "+p.CurrentSchemaSQL()).Scan(&schema)
	if err != nil {
		return "", fmt.Errorf("failed to read current schema: %w", err)
	}
	return schema, nil
}

// Tables lists the tables of the current schema
func Tables(ctx context.Context, db *sql.DB, p dialect.Provider) ([]string, error) {
	rows, err := db.QueryContext(ctx, p.TablesSQL())
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

// Introspect reads the columns of table. An empty schema uses the current one.
func Introspect(ctx context.Context, db *sql.DB, p dialect.Provider, schema, table string) ([]DBColumn, error) {
	var err error

	if schema == "" {
		if schema, err = CurrentSchema(ctx, db, p); err != nil {
			return nil, err
		}
	}

	rows, err := db.QueryContext(ctx, dialect.Rebind(p, p.ColumnMetadataSQL()), table, schema)
	if err != nil {
		return nil, fmt.Errorf("error fetching columns of %s.%s: %w", schema, table, err)
	}
	defer rows.Close()

	var cols []DBColumn
	for rows.Next() {
		var c DBColumn
		var length sql.NullInt64
		var key, typ sql.NullString

		if err := rows.Scan(&c.Name, &length, &key, &typ); err != nil {
			return nil, err
		}
		c.Length = length.Int64
		c.PrimaryKey = strings.EqualFold(key.String, "PRI")
		c.Type = typ.String
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(cols) == 0 {
		return nil, &NotFoundError{Kind: "table", Name: table}
	}
	return cols, nil
}

// CatalogTableFromColumns builds the model fragment of an introspected table.
// Column names are camel cased, numeric non key columns aggregate with SUM.
func CatalogTableFromColumns(table string, cols []DBColumn) (TableDef, []ColumnDef) {
	td := TableDef{Name: table}
	defs := make([]ColumnDef, 0, len(cols))

	for _, c := range cols {
		typ := ColumnTypeOf(c.Type)
		cd := ColumnDef{
			Name:   flect.Camelize(c.Name),
			Table:  table,
			Column: c.Name,
			Type:   typ.String(),
		}
		if typ == TypeUnknown {
			cd.Type = ""
		}

		switch {
		case c.PrimaryKey:
			td.PrimaryKey = c.Name
			cd.Aggregation = string(AggPK)
		case (typ == TypeNumber || typ == TypeMoney) && !strings.HasSuffix(strings.ToLower(c.Name), "_id"):
			cd.Aggregation = string(AggSum)
		}
		defs = append(defs, cd)
	}
	return td, defs
}
