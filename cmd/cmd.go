package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"runtime"

	"github.com/foggy-projects/foggy-data-mcp-bridge-sub003/serv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// These variables are set using -ldflags
	version string
	commit  string
	date    string
)

var (
	log   *zap.SugaredLogger
	db    *sql.DB
	conf  *serv.Config
	cpath string
)

// Cmd is the entry point for the CLI
func Cmd() {
	log = newLogger(false).Sugar()

	rootCmd := newRootCmd()

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("%s", err)
	}
}

func newRootCmd() *cobra.Command {
	cobra.EnableCommandSorting = false
	rootCmd := &cobra.Command{
		Use:          "foggy",
		Short:        BuildDetails(),
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cpath,
		"path", "./config", "path to config files")

	rootCmd.AddCommand(compileCmd())
	rootCmd.AddCommand(introspectCmd())
	rootCmd.AddCommand(dialectsCmd())
	rootCmd.AddCommand(schemaCmd())
	rootCmd.AddCommand(versionCmd())
	return rootCmd
}

// setup reads the config file for the current environment and replaces
// the startup logger with the configured one
func setup(cpath string) error {
	if conf != nil {
		return nil
	}

	cp, err := filepath.Abs(cpath)
	if err != nil {
		return err
	}

	if conf, err = serv.ReadInConfig(path.Join(cp, serv.GetConfigName())); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log = serv.NewLogger(conf).Sugar()
	return nil
}

// initDB opens the configured database
func initDB(ctx context.Context) error {
	var err error

	if db != nil {
		return nil
	}
	if db, err = serv.NewDB(ctx, conf, true, log.Desugar()); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	return nil
}

// newLogger creates the logger used before the config is read
func newLogger(json bool) *zap.Logger {
	return newLoggerWithOutput(json, os.Stderr)
}

// newLoggerWithOutput creates a new logger with a custom output
func newLoggerWithOutput(json bool, output zapcore.WriteSyncer) *zap.Logger {
	econf := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		NameKey:        "logger",
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	var core zapcore.Core

	if json {
		core = zapcore.NewCore(zapcore.NewJSONEncoder(econf), output, zap.InfoLevel)
	} else {
		econf.EncodeLevel = zapcore.CapitalColorLevelEncoder
		core = zapcore.NewCore(zapcore.NewConsoleEncoder(econf), output, zap.InfoLevel)
	}
	return zap.New(core)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), BuildDetails())
		},
	}
}

// BuildDetails returns the version, commit and build date of the binary
func BuildDetails() string {
	if version == "" {
		return "foggy (unknown version) " + runtime.Version()
	}
	return fmt.Sprintf(`foggy %s
For documentation, visit https://github.com/foggy-projects/foggy-data-mcp-bridge

Commit SHA-1          : %s
Commit timestamp      : %s
Go version            : %s`,
		version, commit, date, runtime.Version())
}
