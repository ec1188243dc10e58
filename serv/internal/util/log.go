package util

import (
	"io"
	"os"
	"time"

	"github.com/thessem/zap-prettyconsole"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// shortTimeEncoder encodes time in HH:MM:SS format for cleaner console output
func shortTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("15:04:05"))
}

// NewLogger creates a new zap logger writing to stderr at debug level
// json - if true logs are in json format
func NewLogger(json bool) *zap.Logger {
	return NewLoggerTo(os.Stderr, json, zap.DebugLevel)
}

// NewLoggerTo creates a zap logger writing to w at the given level. The
// compile output of the CLI goes to stdout so logs never share it.
func NewLoggerTo(w io.Writer, json bool, level zapcore.LevelEnabler) *zap.Logger {
	econf := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "logger",
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	var core zapcore.Core
	ws := zapcore.AddSync(w)

	if json {
		core = zapcore.NewCore(zapcore.NewJSONEncoder(econf), ws, level)
	} else {
		// Use prettyconsole for human-readable key=value output
		pcfg := prettyconsole.NewEncoderConfig()
		pcfg.EncodeTime = shortTimeEncoder
		core = zapcore.NewCore(prettyconsole.NewEncoder(pcfg), ws, level)
	}
	return zap.New(core)
}

// ParseLevel maps a configured log level to a zap level. Unknown and empty
// values mean info.
func ParseLevel(s string) zapcore.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return zapcore.InfoLevel
	}
	return l
}
