package dialect

import _ "embed"

//go:embed sql/mysql_columns.sql
var mysqlColumnsStmt string

//go:embed sql/mysql_tables.sql
var mysqlTablesStmt string

//go:embed sql/postgres_columns.sql
var postgresColumnsStmt string

//go:embed sql/postgres_tables.sql
var postgresTablesStmt string

//go:embed sql/mssql_columns.sql
var mssqlColumnsStmt string

//go:embed sql/mssql_tables.sql
var mssqlTablesStmt string

//go:embed sql/sqlite_columns.sql
var sqliteColumnsStmt string

//go:embed sql/sqlite_tables.sql
var sqliteTablesStmt string
