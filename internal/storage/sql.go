package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

const kvTable = "fadem_kv"

// SQLKV stores values in a single table in SQLite or Postgres.
type SQLKV struct {
	db      *sql.DB
	dialect string
}

// NewSQLKV creates a SQLKV. dialectName is an ent dialect name
// ("sqlite3" or "postgres").
func NewSQLKV(db *sql.DB, dialectName string) *SQLKV {
	return &SQLKV{db: db, dialect: dialectName}
}

// Migrate creates the key-value table.
func (s *SQLKV) Migrate(ctx context.Context) error {
	const stmt = `CREATE TABLE IF NOT EXISTS fadem_kv (
		"key"      TEXT PRIMARY KEY,
		"value"    TEXT NOT NULL,
		updated_at BIGINT NOT NULL
	)`
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("migrating %s: %w", kvTable, err)
	}
	return nil
}

func (s *SQLKV) Load(ctx context.Context, key string) ([]byte, error) {
	b := entsql.Dialect(s.dialect)
	query, args := b.Select("value").
		From(b.Table(kvTable)).
		Where(entsql.EQ("key", key)).
		Query()
	var value string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", key, err)
	}
	return []byte(value), nil
}

func (s *SQLKV) Save(ctx context.Context, key string, value []byte) error {
	query, args := entsql.Dialect(s.dialect).
		Insert(kvTable).
		Columns("key", "value", "updated_at").
		Values(key, string(value), time.Now().UTC().UnixNano()).
		OnConflict(entsql.ConflictColumns("key"), entsql.ResolveWithNewValues()).
		Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("saving %s: %w", key, err)
	}
	return nil
}

func (s *SQLKV) Delete(ctx context.Context, key string) error {
	query, args := entsql.Dialect(s.dialect).
		Delete(kvTable).
		Where(entsql.EQ("key", key)).
		Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// Keys selects keys at or after prefix and keeps those that start with it.
// Collation order is not relied on, so LIKE escaping stays out of the query.
func (s *SQLKV) Keys(ctx context.Context, prefix string) ([]string, error) {
	b := entsql.Dialect(s.dialect)
	query, args := b.Select("key").
		From(b.Table(kvTable)).
		Where(entsql.GTE("key", prefix)).
		OrderBy("key").
		Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scanning key: %w", err)
		}
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
