package serv

import (
	"os"

	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/core"
	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/serv/internal/util"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// NewLogger builds the service logger from the log level and format
// settings. Logs are written to stderr.
func NewLogger(conf *Config) *zap.Logger {
	log := util.NewLoggerTo(os.Stderr, conf.ShouldUseJSONLogs(), util.ParseLevel(conf.LogLevel))
	if conf.AppName != "" {
		log = log.Named(conf.AppName)
	}
	return log
}

// NewEngine loads the configured catalog from fs and creates a compiler
// engine for it. A nil fs reads from the os filesystem.
func NewEngine(conf *Config, fs afero.Fs, log *zap.Logger) (*core.Engine, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if log == nil {
		log = zap.NewNop()
	}

	d, err := core.NewDialect(conf.Dialect)
	if err != nil {
		return nil, err
	}

	path := conf.AbsolutePath(conf.CatalogPath)
	cat, err := core.LoadCatalog(fs, path, d)
	if err != nil {
		return nil, errors.Wrapf(err, "catalog %s", path)
	}

	log.Debug("catalog loaded",
		zap.String("path", path),
		zap.String("dialect", d.Name()))

	return core.New(conf.Core, cat, core.WithLogger(log), core.WithDialect(d))
}
