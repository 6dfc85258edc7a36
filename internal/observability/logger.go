package observability

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the process logger. Prefer GetLogger so trace ids are attached.
var Log *zap.Logger

var logMu sync.Mutex

// InitLogger builds the production JSON logger tagged with serviceName.
// Calling it again replaces the logger.
func InitLogger(serviceName string) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		logger = zap.NewNop()
	}

	logMu.Lock()
	Log = logger.With(zap.String("service", serviceName))
	logMu.Unlock()
}

// GetLogger returns the process logger with trace_id and span_id from the
// active span in ctx, if any.
func GetLogger(ctx context.Context) *zap.Logger {
	logMu.Lock()
	logger := Log
	logMu.Unlock()
	if logger == nil {
		InitLogger("rooms")
		return GetLogger(ctx)
	}

	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return logger
	}
	return logger.With(
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	)
}
