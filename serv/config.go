package serv

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core"
	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/serv/internal/util"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

type Core = core.Config

// Configuration for the query compiler service
type Config struct {
	// Configuration for the compiler core
	Core `mapstructure:",squash" jsonschema:"title=Compiler Configuration"`

	// Configuration for the service
	Serv `mapstructure:",squash" jsonschema:"title=Service Configuration"`

	viper *viper.Viper
}

// Configuration for the service
type Serv struct {
	// Application name is used in log messages and as the database
	// application name
	AppName string `mapstructure:"app_name" jsonschema:"title=Application Name"`

	// When enabled logs default to JSON
	Production bool `jsonschema:"title=Production Mode,default=false"`

	// The default path to find the catalog and request files
	ConfigPath string `mapstructure:"config_path" jsonschema:"title=Config Path"`

	// Logging level must be one of debug, error, warn, info
	LogLevel string `mapstructure:"log_level" validate:"omitempty,oneof=debug error warn info" jsonschema:"title=Log Level,enum=debug,enum=error,enum=warn,enum=info"`

	// Logging Format: "auto" (JSON in production, console otherwise),
	// "json" or "simple"
	LogFormat string `mapstructure:"log_format" validate:"omitempty,oneof=auto json simple" jsonschema:"title=Logging Format,enum=auto,enum=json,enum=simple"`

	// Path of the YAML query model, relative to the config path
	CatalogPath string `mapstructure:"catalog" jsonschema:"title=Catalog File"`

	// Database used for introspection
	DB Database `mapstructure:"database" jsonschema:"title=Database"`
}

// Database config
type Database struct {
	ConnString string `mapstructure:"connection_string" jsonschema:"title=Connection String"`
	Type       string `validate:"omitempty,oneof=postgres mysql mariadb mssql sqlite" jsonschema:"title=Type,enum=postgres,enum=mysql,enum=mariadb,enum=mssql,enum=sqlite"`
	Host       string `jsonschema:"title=Host"`
	Port       uint16 `jsonschema:"title=Port"`
	DBName     string `jsonschema:"title=Database Name"`
	User       string `jsonschema:"title=User"`
	Password   string `jsonschema:"title=Password"`
	Schema     string `jsonschema:"title=Schema"`

	// Path of the database file for sqlite
	Path string `jsonschema:"title=SQLite File"`

	// Size of database connection pool
	PoolSize int `mapstructure:"pool_size" validate:"gte=0" jsonschema:"title=Connection Pool Size"`

	// Max number of active database connections allowed
	MaxConnections int `mapstructure:"max_connections" validate:"gte=0" jsonschema:"title=Maximum Connections"`

	// Max time after which database connections are not reused
	MaxConnLifeTime time.Duration `mapstructure:"max_connection_life_time" jsonschema:"title=Connection Life Time"`

	// Database ping timeout
	PingTimeout time.Duration `mapstructure:"ping_timeout" jsonschema:"title=Ping Timeout"`

	// SQL Server connection encryption, unset leaves the driver default
	Encrypt *bool `mapstructure:"encrypt" jsonschema:"title=Encrypt"`
}

// ReadInConfig function reads in the config file for the environment specified in the GO_ENV
// environment variable. This is the best way to create a new config.
func ReadInConfig(configFile string) (*Config, error) {
	return readInConfig(configFile, nil)
}

// ReadInConfigFS is the same as ReadInConfig but it also takes a filesytem as an argument
func ReadInConfigFS(configFile string, fs afero.Fs) (*Config, error) {
	return readInConfig(configFile, fs)
}

func readInConfig(configFile string, fs afero.Fs) (*Config, error) {
	cp := filepath.Dir(configFile)
	viper := newViper(cp, filepath.Base(configFile))

	if fs != nil {
		viper.SetFs(fs)
	}

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	if pcf := viper.GetString("inherits"); pcf != "" {
		cf := viper.ConfigFileUsed()
		viper = newViper(cp, pcf)
		if fs != nil {
			viper.SetFs(fs)
		}

		if err := viper.ReadInConfig(); err != nil {
			return nil, err
		}

		if value := viper.GetString("inherits"); value != "" {
			return nil, fmt.Errorf("inherited config '%s' cannot itself inherit '%s'", pcf, value)
		}

		viper.SetConfigFile(cf)

		if err := viper.MergeInConfig(); err != nil {
			return nil, err
		}
	}

	setFromEnv(viper)

	config := &Config{viper: viper}

	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config, %v", err)
	}
	if config.ConfigPath == "" {
		config.ConfigPath = cp
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// NewConfig function creates a new configuration from the provided config string
func NewConfig(config, format string) (*Config, error) {
	if format == "" {
		format = "yaml"
	}

	viper := newViperWithDefaults()
	viper.SetConfigType(format)

	if err := viper.ReadConfig(strings.NewReader(config)); err != nil {
		return nil, err
	}

	setFromEnv(viper)

	c := &Config{viper: viper}

	if err := viper.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to decode config, %v", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func setFromEnv(vi *viper.Viper) {
	for _, e := range os.Environ() {
		if strings.HasPrefix(e, util.EnvPrefix) {
			kv := strings.SplitN(e, "=", 2)
			util.SetKeyValue(vi, kv[0], kv[1])
		}
	}
}

// newViperWithDefaults returns a new viper instance with the default settings
func newViperWithDefaults() *viper.Viper {
	vi := viper.New()

	vi.SetDefault("app_name", "foggy")
	vi.SetDefault("production", false)
	vi.SetDefault("log_level", "info")
	vi.SetDefault("log_format", "auto")
	vi.SetDefault("catalog", "catalog.yml")

	vi.SetDefault("dialect", "")
	vi.SetDefault("enable_cache", false)
	vi.SetDefault("cache_size", 0)
	vi.SetDefault("expression_cache_size", 0)
	vi.SetDefault("optimize_aggregation", false)
	vi.SetDefault("default_limit", 0)
	vi.SetDefault("auto_group_by", false)

	vi.SetDefault("database.connection_string", "")
	vi.SetDefault("database.type", "postgres")
	vi.SetDefault("database.host", "localhost")
	vi.SetDefault("database.port", 5432)
	vi.SetDefault("database.dbname", "")
	vi.SetDefault("database.user", "postgres")
	vi.SetDefault("database.password", "")
	vi.SetDefault("database.schema", "")
	vi.SetDefault("database.path", "")
	vi.SetDefault("database.pool_size", 4)
	vi.SetDefault("database.ping_timeout", 5*time.Second)

	vi.SetDefault("env", "development")
	vi.BindEnv("env", "GO_ENV") //nolint:errcheck

	return vi
}

// newViper returns a new viper instance with the default settings
func newViper(configPath, configFile string) *viper.Viper {
	vi := newViperWithDefaults()
	vi.SetConfigName(strings.TrimSuffix(configFile, filepath.Ext(configFile)))

	if configPath == "" {
		vi.AddConfigPath("./config")
	} else {
		vi.AddConfigPath(configPath)
	}

	return vi
}

// Validate checks the compiler and service settings
func (c *Config) Validate() error {
	if err := c.Core.Validate(); err != nil {
		return err
	}
	if err := validator.New().Struct(c.Serv); err != nil {
		return fmt.Errorf("invalid service config: %w", err)
	}
	return nil
}

// AbsolutePath returns the absolute path of the file
func (c *Config) AbsolutePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.ConfigPath, p)
}

// ShouldUseJSONLogs returns true if logs should be in JSON format.
// Returns true if log_format is "json" OR if log_format is "auto" and production mode is enabled.
func (c *Config) ShouldUseJSONLogs() bool {
	if c.LogFormat == "json" {
		return true
	}
	if c.LogFormat == "auto" && c.Serv.Production {
		return true
	}
	return false
}

// GetConfigName returns the name of the configuration
func GetConfigName() string {
	goEnv := strings.TrimSpace(strings.ToLower(os.Getenv("GO_ENV")))

	switch goEnv {
	case "production", "prod":
		return "prod"

	case "staging", "stage":
		return "stage"

	case "testing", "test":
		return "test"

	case "development", "dev", "":
		return "dev"

	default:
		return goEnv
	}
}
