package dialect

type SQLiteDialect struct{}

func (d *SQLiteDialect) Name() string {
	return "sqlite"
}

func (d *SQLiteDialect) DriverName() string {
	return "sqlite3"
}

func (d *SQLiteDialect) QuoteOpen() string {
	return `"`
}

func (d *SQLiteDialect) QuoteClose() string {
	return `"`
}

func (d *SQLiteDialect) Quote(identifier string) string {
	return quoteWith(`"`, `"`, identifier)
}

func (d *SQLiteDialect) BindVar(i int) string {
	return "?"
}

func (d *SQLiteDialect) PageSQL(sql string, start, limit int) string {
	return limitOffset(sql, start, limit)
}

// NullOrderClause uses the native syntax available since SQLite 3.30.
func (d *SQLiteDialect) NullOrderClause(expr, dir string, nullsFirst bool) string {
	if nullsFirst {
		return withDir(expr, dir) + " NULLS FIRST"
	}
	return withDir(expr, dir) + " NULLS LAST"
}

func (d *SQLiteDialect) SupportsNativeNullsOrdering() bool {
	return true
}

func (d *SQLiteDialect) DateFormatFunc(expr string) string {
	return "strftime('%Y-%m-%d', " + expr + ")"
}

func (d *SQLiteDialect) StringAggFunc(expr, sep string) string {
	return "GROUP_CONCAT(" + expr + ", '" + sep + "')"
}

// ColumnMetadataSQL takes the table name and the schema ("main") as arguments.
func (d *SQLiteDialect) ColumnMetadataSQL() string {
	return sqliteColumnsStmt
}

func (d *SQLiteDialect) TablesSQL() string {
	return sqliteTablesStmt
}

func (d *SQLiteDialect) CurrentSchemaSQL() string {
	return "'main'"
}

func (d *SQLiteDialect) ValidationQuery() string {
	return "SELECT 1"
}
