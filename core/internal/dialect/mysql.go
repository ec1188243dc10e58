package dialect

import "fmt"

type MySQLDialect struct{}

func (d *MySQLDialect) Name() string {
	return "mysql"
}

func (d *MySQLDialect) DriverName() string {
	return "mysql"
}

func (d *MySQLDialect) QuoteOpen() string {
	return "`"
}

func (d *MySQLDialect) QuoteClose() string {
	return "`"
}

func (d *MySQLDialect) Quote(identifier string) string {
	return quoteWith("`", "`", identifier)
}

func (d *MySQLDialect) BindVar(i int) string {
	return "?"
}

func (d *MySQLDialect) PageSQL(sql string, start, limit int) string {
	if start > 0 {
		return fmt.Sprintf("%s LIMIT %d,%d", sql, start, limit)
	}
	return fmt.Sprintf("%s LIMIT %d", sql, limit)
}

// NullOrderClause emulates NULLS FIRST / LAST. MySQL sorts NULL as the
// smallest value so a leading "IS NOT NULL" key decides the placement.
func (d *MySQLDialect) NullOrderClause(expr, dir string, nullsFirst bool) string {
	if nullsFirst {
		return "(" + expr + ") IS NOT NULL, " + withDir(expr, dir)
	}
	return "(" + expr + ") IS NOT NULL DESC, " + withDir(expr, dir)
}

func (d *MySQLDialect) SupportsNativeNullsOrdering() bool {
	return false
}

func (d *MySQLDialect) DateFormatFunc(expr string) string {
	return "DATE_FORMAT(" + expr + ",'%Y-%m-%d')"
}

func (d *MySQLDialect) StringAggFunc(expr, sep string) string {
	return "GROUP_CONCAT(" + expr + " SEPARATOR '" + sep + "')"
}

func (d *MySQLDialect) ColumnMetadataSQL() string {
	return mysqlColumnsStmt
}

func (d *MySQLDialect) TablesSQL() string {
	return mysqlTablesStmt
}

func (d *MySQLDialect) CurrentSchemaSQL() string {
	return "DATABASE()"
}

func (d *MySQLDialect) ValidationQuery() string {
	return "select 1"
}
