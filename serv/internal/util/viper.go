package util

import (
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix marks environment variables that override config values
const EnvPrefix = "FOGGY_"

// SetKeyValue sets a config value from an environment variable name such as
// FOGGY_DATABASE_CONNECTION_STRING. Underscores are tried as key separators
// from the left until a known key is found. It returns false when no key
// matches.
func SetKeyValue(vi *viper.Viper, key string, value interface{}) bool {
	key = strings.TrimPrefix(key, EnvPrefix)
	k := strings.ToLower(key)

	if vi.IsSet(k) {
		vi.Set(k, value)
		return true
	}

	for i, n := 0, strings.Count(k, "_"); i < n; i++ {
		k = strings.Replace(k, "_", ".", 1)
		if vi.IsSet(k) {
			vi.Set(k, value)
			return true
		}
	}
	return false
}
