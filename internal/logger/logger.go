// Package logger builds the zap logger used for diagnostics. User-facing
// progress is printed by the CLI directly; the logger goes to stderr so it
// never mixes with a document written to stdout.
package logger

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a SugaredLogger at the given level ("debug", "info", "warn",
// "error"; empty means "warn"). json selects the production JSON encoder,
// otherwise a compact console encoder is used.
func New(level string, json bool) (*zap.SugaredLogger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}

	if json {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(lvl)
		config.OutputPaths = []string{"stderr"}
		config.ErrorOutputPaths = []string{"stderr"}
		zapLogger, err := config.Build()
		if err != nil {
			return nil, errors.Wrap(err, "build json logger")
		}
		return zapLogger.Sugar(), nil
	}

	zapLogger := zap.New(
		zapcore.NewCore(
			newConsoleEncoder(),
			zapcore.AddSync(os.Stderr),
			lvl,
		),
	)
	return zapLogger.Sugar(), nil
}

func parseLevel(level string) (zapcore.Level, error) {
	if strings.TrimSpace(level) == "" {
		return zapcore.WarnLevel, nil
	}
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return lvl, errors.WithHint(
			errors.Wrapf(err, "invalid log level %q", level),
			"use one of: debug, info, warn, error")
	}
	return lvl, nil
}

// newConsoleEncoder drops the caller and stacktrace noise and keeps a short
// timestamp.
func newConsoleEncoder() zapcore.Encoder {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.CallerKey = ""
	cfg.StacktraceKey = ""
	return zapcore.NewConsoleEncoder(cfg)
}
