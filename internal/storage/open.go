package storage

import (
	"context"
	"database/sql"
	"fmt"

	"entgo.io/ent/dialect"
	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Drivers accepted by Open.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Driver        string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Backend is an opened store. DB and Dialect are set for the SQL drivers so
// other tables can share the connection.
type Backend struct {
	KV      KV
	DB      *sql.DB
	Dialect string
	close   func() error
}

func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// Open connects to the configured backend and prepares its schema.
func Open(ctx context.Context, opts Options, logger *zap.Logger) (*Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch opts.Driver {
	case "", DriverMemory:
		logger.Warn("using in-memory storage, data is lost on exit")
		return &Backend{KV: NewMemoryKV()}, nil

	case DriverSQLite, DriverPostgres:
		driverName, dialectName := "sqlite", dialect.SQLite
		if opts.Driver == DriverPostgres {
			driverName, dialectName = "postgres", dialect.Postgres
		}
		db, err := sql.Open(driverName, opts.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", opts.Driver, err)
		}
		if opts.Driver == DriverSQLite {
			db.SetMaxOpenConns(1)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("connecting to %s: %w", opts.Driver, err)
		}
		kv := NewSQLKV(db, dialectName)
		if err := kv.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		logger.Info("connected to database", zap.String("driver", opts.Driver))
		return &Backend{KV: kv, DB: db, Dialect: dialectName, close: db.Close}, nil

	case DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("connecting to redis at %s: %w", opts.RedisAddr, err)
		}
		logger.Info("connected to redis", zap.String("addr", opts.RedisAddr), zap.Int("db", opts.RedisDB))
		return &Backend{KV: NewRedisKV(client), close: client.Close}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
}
