package storage

import (
	"context"
	"database/sql"
	"testing"

	"entgo.io/ent/dialect"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kvContract(t *testing.T, newKV func(t *testing.T) KV) {
	ctx := context.Background()

	t.Run("miss", func(t *testing.T) {
		kv := newKV(t)
		_, err := kv.Load(ctx, "fadem_nothing")
		assert.ErrorIs(t, err, ErrMiss)
	})

	t.Run("save load overwrite", func(t *testing.T) {
		kv := newKV(t)
		require.NoError(t, kv.Save(ctx, "fadem_immobilier", []byte(`{"v":1}`)))
		got, err := kv.Load(ctx, "fadem_immobilier")
		require.NoError(t, err)
		assert.Equal(t, `{"v":1}`, string(got))

		require.NoError(t, kv.Save(ctx, "fadem_immobilier", []byte(`{"v":2}`)))
		got, err = kv.Load(ctx, "fadem_immobilier")
		require.NoError(t, err)
		assert.Equal(t, `{"v":2}`, string(got))
	})

	t.Run("delete", func(t *testing.T) {
		kv := newKV(t)
		require.NoError(t, kv.Save(ctx, "fadem_x", []byte("x")))
		require.NoError(t, kv.Delete(ctx, "fadem_x"))
		_, err := kv.Load(ctx, "fadem_x")
		assert.ErrorIs(t, err, ErrMiss)
		require.NoError(t, kv.Delete(ctx, "fadem_x"), "deleting a missing key is not an error")
	})

	t.Run("keys by prefix", func(t *testing.T) {
		kv := newKV(t)
		for _, k := range []string{"fadem_vehicules", "other", "fadem_backup_immobilier", "fadem_immobilier", "zeta"} {
			require.NoError(t, kv.Save(ctx, k, []byte("1")))
		}
		keys, err := kv.Keys(ctx, "fadem_")
		require.NoError(t, err)
		assert.Equal(t, []string{"fadem_backup_immobilier", "fadem_immobilier", "fadem_vehicules"}, keys)

		keys, err = kv.Keys(ctx, "nope")
		require.NoError(t, err)
		assert.Empty(t, keys)
	})
}

func TestMemoryKV(t *testing.T) {
	kvContract(t, func(*testing.T) KV { return NewMemoryKV() })
}

func TestMemoryKV_CopiesValues(t *testing.T) {
	kv := NewMemoryKV()
	v := []byte("abc")
	require.NoError(t, kv.Save(context.Background(), "k", v))
	v[0] = 'z'
	got, _ := kv.Load(context.Background(), "k")
	assert.Equal(t, "abc", string(got))
}

func newSQLiteKV(t *testing.T) KV {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	kv := NewSQLKV(db, dialect.SQLite)
	require.NoError(t, kv.Migrate(context.Background()))
	return kv
}

func TestSQLKV_SQLite(t *testing.T) {
	kvContract(t, newSQLiteKV)
}

func newRedisKV(t *testing.T) KV {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisKV(client)
}

func TestRedisKV(t *testing.T) {
	kvContract(t, newRedisKV)
}
