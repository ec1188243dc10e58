package dialect

import "strconv"

type PostgresDialect struct{}

func (d *PostgresDialect) Name() string {
	return "postgres"
}

func (d *PostgresDialect) DriverName() string {
	return "pgx"
}

func (d *PostgresDialect) QuoteOpen() string {
	return `"`
}

func (d *PostgresDialect) QuoteClose() string {
	return `"`
}

func (d *PostgresDialect) Quote(identifier string) string {
	return quoteWith(`"`, `"`, identifier)
}

func (d *PostgresDialect) BindVar(i int) string {
	return "$" + strconv.Itoa(i)
}

func (d *PostgresDialect) PageSQL(sql string, start, limit int) string {
	return limitOffset(sql, start, limit)
}

func (d *PostgresDialect) NullOrderClause(expr, dir string, nullsFirst bool) string {
	if nullsFirst {
		return withDir(expr, dir) + " NULLS FIRST"
	}
	return withDir(expr, dir) + " NULLS LAST"
}

func (d *PostgresDialect) SupportsNativeNullsOrdering() bool {
	return true
}

func (d *PostgresDialect) DateFormatFunc(expr string) string {
	return "TO_CHAR(" + expr + ", 'YYYY-MM-DD')"
}

func (d *PostgresDialect) StringAggFunc(expr, sep string) string {
	return "STRING_AGG(" + expr + "::text, '" + sep + "')"
}

func (d *PostgresDialect) ColumnMetadataSQL() string {
	return postgresColumnsStmt
}

func (d *PostgresDialect) TablesSQL() string {
	return postgresTablesStmt
}

func (d *PostgresDialect) CurrentSchemaSQL() string {
	return "current_schema()"
}

func (d *PostgresDialect) ValidationQuery() string {
	return "SELECT 1"
}
