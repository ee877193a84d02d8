package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"

	dblogger "github.com/hobbyhunter/storefront/internal/domain/logger"
)

type entry struct {
	bun.BaseModel `bun:"table:local_storage,alias:ls"`

	Key       string    `bun:"storage_key,pk"`
	Value     string    `bun:"value,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// SQLiteStore persists local state in a single SQLite file.
type SQLiteStore struct {
	db *bun.DB
}

// OpenSQLite opens (creating if needed) the store at path. Use ":memory:" for
// a throwaway database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	sqldb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	// a single connection keeps ":memory:" databases alive and serializes writes
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	if _, err := db.NewCreateTable().
		Model((*entry)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create local_storage table: %w", err)
	}

	slog.Debug("Local store opened",
		slog.String("type", "sys"),
		slog.String("path", path))

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	ql := dblogger.NewQueryLogger("get", key)
	e := new(entry)
	err := s.db.NewSelect().
		Model(e).
		Where("storage_key = ?", key).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			ql.Log(nil, nil)
			return "", false, nil
		}
		ql.Log(err, nil)
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	ql.Log(nil, nil)
	return e.Value, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	ql := dblogger.NewQueryLogger("set", key)
	res, err := s.db.NewInsert().
		Model(&entry{Key: key, Value: value, UpdatedAt: time.Now()}).
		On("CONFLICT (storage_key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	ql.Log(err, res)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	ql := dblogger.NewQueryLogger("delete", key)
	res, err := s.db.NewDelete().
		Model((*entry)(nil)).
		Where("storage_key = ?", key).
		Exec(ctx)
	ql.Log(err, res)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
