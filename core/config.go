package core

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core/internal/dialect"
)

const (
	defaultCacheSize     = 5000
	defaultExprCacheSize = 1000
)

var validate = validator.New()

// SupportedDialects lists the SQL dialects the compiler renders
var SupportedDialects = dialect.Supported

// Configuration for the query compiler core
type Config struct {
	// SQL dialect of the generated queries. Defaults to the catalog's dialect
	Dialect string `mapstructure:"dialect" json:"dialect" yaml:"dialect" jsonschema:"title=SQL Dialect,enum=mysql,enum=mariadb,enum=postgres,enum=mssql,enum=sqlite"`

	// Cache compiled results keyed by the request
	EnableCache bool `mapstructure:"enable_cache" json:"enable_cache" yaml:"enable_cache" jsonschema:"title=Enable Result Cache,default=false"`

	// Maximum number of cached results
	CacheSize int `mapstructure:"cache_size" json:"cache_size" yaml:"cache_size" jsonschema:"title=Result Cache Size,default=5000" validate:"gte=0"`

	// Maximum number of cached expression trees
	ExprCacheSize int `mapstructure:"expression_cache_size" json:"expression_cache_size" yaml:"expression_cache_size" jsonschema:"title=Expression Cache Size,default=1000" validate:"gte=0"`

	// Prune the inner query of the aggregation SQL down to the columns the
	// summary needs
	OptimizeAggregation bool `mapstructure:"optimize_aggregation" json:"optimize_aggregation" yaml:"optimize_aggregation" jsonschema:"title=Optimize Aggregation,default=false"`

	// Page size used when a request sets no limit. Zero disables paging
	DefaultLimit int `mapstructure:"default_limit" json:"default_limit" yaml:"default_limit" jsonschema:"title=Default Row Limit,default=0" validate:"gte=0"`

	// Group selected columns whenever a model measure is selected, not only
	// when an expression aggregates
	AutoGroupBy bool `mapstructure:"auto_group_by" json:"auto_group_by" yaml:"auto_group_by" jsonschema:"title=Auto Group By,default=false"`
}

// ValidateDialect checks if the given dialect is supported
func ValidateDialect(name string) error {
	if name == "" {
		return nil // Empty falls back to the catalog's dialect
	}
	for _, d := range SupportedDialects {
		if strings.EqualFold(name, d) {
			return nil
		}
	}
	return fmt.Errorf("unsupported dialect %q: supported dialects are %s",
		name, strings.Join(SupportedDialects, ", "))
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if err := ValidateDialect(c.Dialect); err != nil {
		return err
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) cacheSize() int {
	if c.CacheSize > 0 {
		return c.CacheSize
	}
	return defaultCacheSize
}

func (c *Config) exprCacheSize() int {
	if c.ExprCacheSize > 0 {
		return c.ExprCacheSize
	}
	return defaultExprCacheSize
}
