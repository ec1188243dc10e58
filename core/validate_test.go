package core

import (
	"strings"
	"testing"
)

func TestValidateDialect(t *testing.T) {
	tests := []struct {
		name    string
		dialect string
		wantErr bool
	}{
		{"empty string uses the catalog", "", false},
		{"postgres is valid", "postgres", false},
		{"mysql is valid", "mysql", false},
		{"mariadb is valid", "mariadb", false},
		{"sqlite is valid", "sqlite", false},
		{"mssql is valid", "mssql", false},
		{"case insensitive", "PostgreS", false},
		{"oracle is not supported", "oracle", true},
		{"invalid dialect", "invalid", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDialect(tt.dialect)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDialect(%q) error = %v, wantErr %v", tt.dialect, err, tt.wantErr)
			}
			if err != nil && !strings.Contains(err.Error(), "supported dialects are") {
				t.Errorf("error should list supported dialects: %v", err)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		conf    Config
		wantErr bool
	}{
		{"zero config", Config{}, false},
		{"full config", Config{Dialect: "mssql", EnableCache: true, CacheSize: 10, DefaultLimit: 50}, false},
		{"bad dialect", Config{Dialect: "db2"}, true},
		{"negative cache size", Config{CacheSize: -1}, true},
		{"negative default limit", Config{DefaultLimit: -5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.conf.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	var c Config
	if c.cacheSize() != defaultCacheSize {
		t.Errorf("cacheSize() = %d, want %d", c.cacheSize(), defaultCacheSize)
	}
	if c.exprCacheSize() != defaultExprCacheSize {
		t.Errorf("exprCacheSize() = %d, want %d", c.exprCacheSize(), defaultExprCacheSize)
	}

	c.CacheSize = 7
	if c.cacheSize() != 7 {
		t.Errorf("cacheSize() = %d, want 7", c.cacheSize())
	}
}
