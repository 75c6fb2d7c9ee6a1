package main

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lexandro/contentsieve/config"
	"github.com/lexandro/contentsieve/metrics"
)

// newLogger builds the process logger. It writes to stderr or a file, never
// stdout, which belongs to summaries and the MCP stdio transport.
func newLogger(options config.LogConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(strings.ToLower(options.Level))
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", options.Level, err)
	}

	var zapConfig zap.Config
	switch options.Format {
	case "", "json":
		zapConfig = zap.NewProductionConfig()
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	case "console":
		zapConfig = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", options.Format)
	}
	zapConfig.Level = level

	output := "stderr"
	if options.File != "" {
		output = options.File
	}
	zapConfig.OutputPaths = []string{output}
	zapConfig.ErrorOutputPaths = []string{"stderr"}

	return zapConfig.Build()
}

// progressLogger logs pipeline progress events at debug level.
func progressLogger(logger *zap.Logger) metrics.ProgressFunc {
	return func(e metrics.Event) {
		if ce := logger.Check(zapcore.DebugLevel, "progress"); ce != nil {
			ce.Write(
				zap.String("phase", e.Phase),
				zap.Int("done", e.Done),
				zap.Int("total", e.Total),
				zap.String("ref", e.Ref),
			)
		}
	}
}
