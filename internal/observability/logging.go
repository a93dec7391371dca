// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"maps"
	"os"
	"slices"
)

// Logger wraps slog.Logger to provide specialized logging methods.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is used by repository, service and async logging. It logs
// JSON to stdout until SetLogger installs the request-aware logger.
var GlobalLogger = &Logger{Logger: slog.New(slog.NewJSONHandler(os.Stdout, nil))}

// SetLogger replaces GlobalLogger. A nil logger is ignored.
func SetLogger(l *slog.Logger) {
	if l != nil {
		GlobalLogger = &Logger{Logger: l}
	}
}

// LoggingConfig switches the automatic repository and service records.
type LoggingConfig struct {
	EnableRepoLogging    bool
	EnableServiceLogging bool
}

// Config holds the current logging configuration.
var Config = LoggingConfig{
	EnableRepoLogging:    true,
	EnableServiceLogging: true,
}

// fieldAttrs turns fields into attrs in key order, after the given prefix.
func fieldAttrs(fields map[string]any, prefix ...slog.Attr) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(prefix)+len(fields))
	attrs = append(attrs, prefix...)
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		attrs = append(attrs, slog.Any(k, fields[k]))
	}
	return attrs
}

// RepoLogger logs writes against one table at debug level.
type RepoLogger struct {
	table string
}

// NewRepoLogger creates a new RepoLogger for the given table.
func NewRepoLogger(table string) *RepoLogger {
	return &RepoLogger{table: table}
}

func (l *RepoLogger) write(ctx context.Context, level slog.Level, msg string, attrs []slog.Attr) {
	if !Config.EnableRepoLogging {
		return
	}
	GlobalLogger.LogAttrs(ctx, level, msg, attrs...)
}

func (l *RepoLogger) op(ctx context.Context, operation string, fields map[string]any) {
	l.write(ctx, slog.LevelDebug, "repository "+operation, fieldAttrs(fields,
		slog.String("table", l.table),
		slog.String("operation", operation),
	))
}

func (l *RepoLogger) LogCreate(ctx context.Context, fields map[string]any) { l.op(ctx, "create", fields) }
func (l *RepoLogger) LogUpdate(ctx context.Context, fields map[string]any) { l.op(ctx, "update", fields) }
func (l *RepoLogger) LogDelete(ctx context.Context, fields map[string]any) { l.op(ctx, "delete", fields) }

// LogError logs a failed repository operation. A nil err is ignored.
func (l *RepoLogger) LogError(ctx context.Context, err error, operation string) {
	if err == nil {
		return
	}
	l.write(ctx, slog.LevelError, "repository error", []slog.Attr{
		slog.String("table", l.table),
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	})
}

// LogServiceEvent logs a notable domain event such as a block or an admin change.
func LogServiceEvent(ctx context.Context, service, event string, fields map[string]any) {
	if !Config.EnableServiceLogging {
		return
	}
	GlobalLogger.LogAttrs(ctx, slog.LevelInfo, "service event", fieldAttrs(fields,
		slog.String("service", service),
		slog.String("event", event),
	)...)
}

// LogAsyncOperationError logs a failed best-effort operation such as a cache
// write or a metric publish.
func LogAsyncOperationError(ctx context.Context, operation string, err error, fields map[string]any) {
	GlobalLogger.LogAttrs(ctx, slog.LevelWarn, "async operation failed", fieldAttrs(fields,
		slog.String("operation", operation),
		slog.String("type", "async_error"),
		slog.String("error", err.Error()),
	)...)
}
