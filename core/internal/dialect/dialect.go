package dialect

import (
	"fmt"
	"strings"
)

// Provider is the per-database strategy used by the SQL compiler.
// Implementations carry no mutable state and are safe to share between
// compilations running on different goroutines.
type Provider interface {
	Name() string

	// DriverName is the database/sql driver used to open connections
	DriverName() string

	// Identifier quoting
	QuoteOpen() string
	QuoteClose() string
	Quote(identifier string) string

	// BindVar returns the placeholder for the i-th (1 based) parameter
	BindVar(i int) string

	PageSQL(sql string, start, limit int) string

	// NullOrderClause renders an ORDER BY entry for expr with the given
	// direction placing NULL values first or last
	NullOrderClause(expr, dir string, nullsFirst bool) string
	SupportsNativeNullsOrdering() bool

	// DateFormatFunc formats expr as yyyy-MM-dd
	DateFormatFunc(expr string) string
	StringAggFunc(expr, sep string) string

	// Introspection
	ColumnMetadataSQL() string
	TablesSQL() string
	CurrentSchemaSQL() string
	ValidationQuery() string
}

// Supported lists the dialect names accepted by New
var Supported = []string{"mysql", "mariadb", "postgres", "mssql", "sqlite"}

// New returns the provider registered under name. An empty name selects postgres.
func New(name string) (Provider, error) {
	switch strings.ToLower(name) {
	case "mysql":
		return &MySQLDialect{}, nil
	case "mariadb":
		return &MariaDBDialect{}, nil
	case "", "postgres", "postgresql", "pgx":
		return &PostgresDialect{}, nil
	case "mssql", "sqlserver":
		return &MSSQLDialect{}, nil
	case "sqlite", "sqlite3":
		return &SQLiteDialect{}, nil
	}
	return nil, fmt.Errorf("unsupported dialect %q: supported dialects are %s",
		name, strings.Join(Supported, ", "))
}

// Rebind rewrites the ? placeholders in sql into the bind variables of the
// provider. Question marks inside single quoted literals are left alone.
func Rebind(p Provider, sql string) string {
	if p.BindVar(1) == "?" {
		return sql
	}

	var sb strings.Builder
	sb.Grow(len(sql) + 8)

	n := 0
	inStr := false
	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		switch {
		case ch == '\'':
			inStr = !inStr
			sb.WriteByte(ch)
		case ch == '?' && !inStr:
			n++
			sb.WriteString(p.BindVar(n))
		default:
			sb.WriteByte(ch)
		}
	}
	return sb.String()
}

func quoteWith(open, close, s string) string {
	return open + strings.ReplaceAll(s, close, close+close) + close
}

// hasOrderBy reports whether the outer statement of sql ends with an ORDER
// BY clause. Parenthesized subqueries, quoted identifiers and string
// literals are skipped.
func hasOrderBy(sql string) bool {
	depth := 0
	for i := 0; i < len(sql); i++ {
		switch ch := sql[i]; ch {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case '\'', '"', '`':
			i = skipQuoted(sql, i, ch)
		case '[':
			i = skipQuoted(sql, i, ']')
		case 'O', 'o':
			if depth == 0 && isKeywordAt(sql, i, "ORDER") {
				rest := strings.TrimLeft(sql[i+len("ORDER"):], " \t\r\n")
				if isKeywordAt(rest, 0, "BY") {
					return true
				}
			}
		}
	}
	return false
}

// skipQuoted returns the index of the quote closing the one at i. A doubled
// closing quote is an escape.
func skipQuoted(sql string, i int, closing byte) int {
	for j := i + 1; j < len(sql); j++ {
		if sql[j] != closing {
			continue
		}
		if j+1 < len(sql) && sql[j+1] == closing {
			j++
			continue
		}
		return j
	}
	return len(sql)
}

func isKeywordAt(s string, i int, kw string) bool {
	if len(s)-i < len(kw) || !strings.EqualFold(s[i:i+len(kw)], kw) {
		return false
	}
	if i > 0 && isIdentChar(s[i-1]) {
		return false
	}
	end := i + len(kw)
	return end == len(s) || !isIdentChar(s[end])
}

func isIdentChar(ch byte) bool {
	return ch == '_' || ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9'
}

func limitOffset(sql string, start, limit int) string {
	var sb strings.Builder
	sb.Grow(len(sql) + 30)
	sb.WriteString(sql)
	sb.WriteString(" LIMIT ")
	sb.WriteString(fmt.Sprintf("%d", limit))
	if start > 0 {
		sb.WriteString(" OFFSET ")
		sb.WriteString(fmt.Sprintf("%d", start))
	}
	return sb.String()
}

func withDir(expr, dir string) string {
	if dir == "" {
		return expr
	}
	return expr + " " + dir
}
