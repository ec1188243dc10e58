package serv

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/microsoft/go-mssqldb"
)

// pingTimeout is used when the config leaves ping_timeout unset
const pingTimeout = 5 * time.Second

type dbConf struct {
	driverName string
	connString string
}

// NewDB opens a database handle for the configured database and checks it
// with the dialect's validation query. openDB selects the configured
// database name, otherwise the server default is used.
func NewDB(ctx context.Context, conf *Config, openDB bool, log *zap.Logger) (*sql.DB, error) {
	d, err := conf.DatabaseDialect()
	if err != nil {
		return nil, err
	}

	dc, err := initDBDriver(conf, d, openDB)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dc.driverName, dc.connString)
	if err != nil {
		return nil, errors.Wrap(err, "database open")
	}

	db.SetMaxIdleConns(conf.DB.PoolSize)
	db.SetMaxOpenConns(conf.DB.MaxConnections)
	db.SetConnMaxLifetime(conf.DB.MaxConnLifeTime)

	timeout := conf.DB.PingTimeout
	if timeout <= 0 {
		timeout = pingTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := db.ExecContext(ctx, d.ValidationQuery()); err != nil {
		db.Close() //nolint:errcheck
		return nil, errors.Wrapf(err, "database ping (%s)", d.Name())
	}

	log.Debug("database connected",
		zap.String("type", d.Name()),
		zap.String("driver", dc.driverName))

	return db, nil
}

// DatabaseDialect returns the dialect of the configured database, detected
// from the connection string when the type is not set explicitly
func (c *Config) DatabaseDialect() (core.Dialect, error) {
	return core.NewDialect(detectDBType(c.DB))
}

// detectDBType detects the database type from the connection string
func detectDBType(db Database) string {
	cs := db.ConnString
	switch {
	case strings.HasPrefix(cs, "postgres://"), strings.HasPrefix(cs, "postgresql://"):
		return "postgres"
	case strings.HasPrefix(cs, "mysql://"):
		return "mysql"
	case strings.HasPrefix(cs, "sqlserver://"):
		return "mssql"
	case strings.HasPrefix(cs, "file:"):
		return "sqlite"
	}
	return strings.ToLower(db.Type)
}

// initDBDriver builds the driver name and connection string for d
func initDBDriver(conf *Config, d core.Dialect, openDB bool) (*dbConf, error) {
	var dc *dbConf
	var err error

	switch d.Name() {
	case "postgres":
		dc, err = initPostgres(conf, openDB)
	case "mysql", "mariadb":
		dc = initMysql(conf, openDB)
	case "mssql":
		dc = initMssql(conf, openDB)
	case "sqlite":
		dc, err = initSqlite(conf)
	default:
		return nil, fmt.Errorf("unsupported database type %q", d.Name())
	}

	if err != nil {
		return nil, errors.Wrap(err, "database init")
	}
	dc.driverName = d.DriverName()
	return dc, nil
}

// initPostgres registers a pgx connection config and returns its name
func initPostgres(conf *Config, openDB bool) (*dbConf, error) {
	c := conf.DB
	config, err := pgx.ParseConfig(c.ConnString)
	if err != nil {
		return nil, err
	}

	// Check if the connection string is empty, if it, look at the other fields
	if c.ConnString == "" {
		if c.Host != "" {
			config.Host = c.Host
		}
		if c.Port != 0 {
			config.Port = c.Port
		}
		if c.User != "" {
			config.User = c.User
		}
		if c.Password != "" {
			config.Password = c.Password
		}
	}

	if config.RuntimeParams == nil {
		config.RuntimeParams = map[string]string{}
	}

	if c.Schema != "" {
		config.RuntimeParams["search_path"] = c.Schema
	}

	if conf.AppName != "" {
		config.RuntimeParams["application_name"] = conf.AppName
	}

	if openDB && c.DBName != "" {
		config.Database = c.DBName
	}

	return &dbConf{connString: stdlib.RegisterConnConfig(config)}, nil
}

// initMysql builds a go-sql-driver DSN
func initMysql(conf *Config, openDB bool) *dbConf {
	c := conf.DB
	var connString string

	if c.ConnString == "" {
		port := c.Port
		if port == 0 || port == 5432 {
			port = 3306
		}
		connString = fmt.Sprintf("%s:%s@tcp(%s:%d)/", c.User, c.Password, c.Host, port)
	} else {
		connString = strings.TrimPrefix(c.ConnString, "mysql://")
	}

	if openDB && strings.HasSuffix(connString, "/") {
		connString += c.DBName
	}

	return &dbConf{connString: connString}
}

// initMssql builds a sqlserver URL
func initMssql(conf *Config, openDB bool) *dbConf {
	c := conf.DB
	var connString string

	if c.ConnString == "" {
		port := c.Port
		if port == 0 || port == 5432 {
			port = 1433
		}
		connString = fmt.Sprintf("sqlserver://%s:%s@%s:%d",
			url.PathEscape(c.User), url.PathEscape(c.Password), c.Host, port)
	} else {
		connString = c.ConnString
	}

	if openDB && c.DBName != "" {
		connString += queryParamSep(connString) + "database=" + url.QueryEscape(c.DBName)
	}

	if c.Encrypt != nil {
		if *c.Encrypt {
			connString += queryParamSep(connString) + "encrypt=true"
		} else {
			connString += queryParamSep(connString) + "encrypt=disable"
		}
	}

	return &dbConf{connString: connString}
}

// queryParamSep returns "?" if no query params exist yet, otherwise "&"
func queryParamSep(s string) string {
	if strings.Contains(s, "?") {
		return "&"
	}
	return "?"
}

func initSqlite(conf *Config) (*dbConf, error) {
	connString := conf.DB.ConnString
	if connString == "" {
		connString = conf.DB.Path
	}
	if connString == "" {
		return nil, fmt.Errorf("sqlite requires a connection string or path")
	}
	if !strings.HasPrefix(connString, "file:") && connString != ":memory:" {
		connString = conf.AbsolutePath(connString)
	}
	return &dbConf{connString: connString}, nil
}
