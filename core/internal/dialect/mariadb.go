package dialect

// MariaDBDialect embeds MySQLDialect. MariaDB is a fork of MySQL and shares
// its quoting, paging and introspection SQL; it is registered separately so
// configs can name it and so it can diverge later.
type MariaDBDialect struct {
	MySQLDialect
}

func (d *MariaDBDialect) Name() string {
	return "mariadb"
}
