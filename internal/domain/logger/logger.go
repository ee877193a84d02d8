package logger

import (
	"database/sql"
	"log/slog"
	"time"
)

// QueryLogger times one local store statement.
type QueryLogger struct {
	Operation string
	Key       string
	StartTime time.Time
}

func NewQueryLogger(operation, key string) *QueryLogger {
	return &QueryLogger{
		Operation: operation,
		Key:       key,
		StartTime: time.Now(),
	}
}

// Log records the statement outcome. res may be nil for reads.
func (l *QueryLogger) Log(err error, res sql.Result) {
	duration := time.Since(l.StartTime)

	if err != nil {
		slog.Error("Query failed",
			slog.String("type", "db"),
			slog.String("operation", l.Operation),
			slog.String("key", l.Key),
			slog.Duration("took", duration),
			slog.Any("error", err),
		)
		return
	}

	var affected int64
	if res != nil {
		affected, _ = res.RowsAffected()
	}
	slog.Debug("Query executed",
		slog.String("type", "db"),
		slog.String("operation", l.Operation),
		slog.String("key", l.Key),
		slog.Duration("took", duration),
		slog.Int64("affected_rows", affected),
	)
}
