package logger

import (
	"log/slog"
	"time"
)

// LogRequest logs a remote API call.
func LogRequest(method, path string, status int, attempt int, duration time.Duration, err error) {
	attrs := []any{
		slog.String("type", "api"),
		slog.String("operation", method+" "+path),
		slog.Int("status", status),
		slog.Int("attempt", attempt),
		slog.Duration("took", duration),
	}

	if err != nil {
		slog.Warn("Request failed", append(attrs, slog.Any("error", err))...)
	} else {
		slog.Debug("Request completed", attrs...)
	}
}

// LogRepository logs a repository operation and which data source served it.
func LogRepository(entity, operation, source string, duration time.Duration, err error) {
	attrs := []any{
		slog.String("type", "repo"),
		slog.String("operation", entity+"."+operation),
		slog.String("source", source),
		slog.Duration("took", duration),
	}

	if err != nil {
		slog.Error("Repository call failed", append(attrs, slog.Any("error", err))...)
	} else {
		slog.Debug("Repository call served", attrs...)
	}
}

func LogCache(msg string, key string, attrs ...any) {
	baseAttrs := []any{
		slog.String("type", "cache"),
		slog.String("key", key),
	}
	slog.Debug(msg, append(baseAttrs, attrs...)...)
}

func LogSystem(msg string, attrs ...any) {
	baseAttrs := []any{slog.String("type", "sys")}
	slog.Info(msg, append(baseAttrs, attrs...)...)
}

func LogError(msg string, err error, attrs ...any) {
	baseAttrs := []any{
		slog.String("type", "error"),
		slog.Any("error", err),
	}
	slog.Error(msg, append(baseAttrs, attrs...)...)
}
