package dialect

import (
	"strconv"
	"strings"
)

type MSSQLDialect struct{}

func (d *MSSQLDialect) Name() string {
	return "mssql"
}

func (d *MSSQLDialect) DriverName() string {
	return "sqlserver"
}

func (d *MSSQLDialect) QuoteOpen() string {
	return "["
}

func (d *MSSQLDialect) QuoteClose() string {
	return "]"
}

func (d *MSSQLDialect) Quote(identifier string) string {
	return quoteWith("[", "]", identifier)
}

func (d *MSSQLDialect) BindVar(i int) string {
	return "@p" + strconv.Itoa(i)
}

// PageSQL uses OFFSET ... FETCH which requires an ORDER BY clause, a neutral
// one is injected when the statement has none.
func (d *MSSQLDialect) PageSQL(sql string, start, limit int) string {
	var sb strings.Builder
	sb.Grow(len(sql) + 60)
	sb.WriteString(sql)
	if !hasOrderBy(sql) {
		sb.WriteString(" ORDER BY (SELECT NULL)")
	}
	sb.WriteString(" OFFSET ")
	sb.WriteString(strconv.Itoa(start))
	sb.WriteString(" ROWS FETCH NEXT ")
	sb.WriteString(strconv.Itoa(limit))
	sb.WriteString(" ROWS ONLY")
	return sb.String()
}

// NullOrderClause emulates NULLS FIRST / LAST with a CASE tie-break key.
func (d *MSSQLDialect) NullOrderClause(expr, dir string, nullsFirst bool) string {
	if nullsFirst {
		return "CASE WHEN " + expr + " IS NULL THEN 0 ELSE 1 END, " + withDir(expr, dir)
	}
	return "CASE WHEN " + expr + " IS NULL THEN 1 ELSE 0 END, " + withDir(expr, dir)
}

func (d *MSSQLDialect) SupportsNativeNullsOrdering() bool {
	return false
}

func (d *MSSQLDialect) DateFormatFunc(expr string) string {
	return "CONVERT(VARCHAR(10), " + expr + ", 23)"
}

func (d *MSSQLDialect) StringAggFunc(expr, sep string) string {
	return "STRING_AGG(" + expr + ", '" + sep + "')"
}

func (d *MSSQLDialect) ColumnMetadataSQL() string {
	return mssqlColumnsStmt
}

func (d *MSSQLDialect) TablesSQL() string {
	return mssqlTablesStmt
}

func (d *MSSQLDialect) CurrentSchemaSQL() string {
	return "SCHEMA_NAME()"
}

func (d *MSSQLDialect) ValidationQuery() string {
	return "SELECT 1"
}
