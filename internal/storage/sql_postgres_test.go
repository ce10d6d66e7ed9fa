package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"entgo.io/ent/dialect"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockPostgresKV(t *testing.T) (sqlmock.Sqlmock, *SQLKV) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return mock, NewSQLKV(db, dialect.Postgres)
}

func TestSQLKV_Postgres_Load(t *testing.T) {
	mock, kv := setupMockPostgresKV(t)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT "value" FROM "fadem_kv" WHERE "key" = \$1`).
		WithArgs("fadem_immobilier").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(`{"version":"2.0.0"}`))
	got, err := kv.Load(ctx, "fadem_immobilier")
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"2.0.0"}`, string(got))

	mock.ExpectQuery(`SELECT "value" FROM "fadem_kv"`).
		WithArgs("fadem_missing").
		WillReturnError(sql.ErrNoRows)
	_, err = kv.Load(ctx, "fadem_missing")
	assert.ErrorIs(t, err, ErrMiss)

	mock.ExpectQuery(`SELECT "value" FROM "fadem_kv"`).
		WithArgs("fadem_immobilier").
		WillReturnError(errors.New("connection reset"))
	_, err = kv.Load(ctx, "fadem_immobilier")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMiss)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLKV_Postgres_SaveUpserts(t *testing.T) {
	mock, kv := setupMockPostgresKV(t)

	mock.ExpectExec(`INSERT INTO "fadem_kv" .* ON CONFLICT`).
		WithArgs("fadem_immobilier", `{"tenants":[]}`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, kv.Save(context.Background(), "fadem_immobilier", []byte(`{"tenants":[]}`)))

	mock.ExpectExec(`INSERT INTO "fadem_kv"`).
		WillReturnError(errors.New("disk full"))
	err := kv.Save(context.Background(), "fadem_immobilier", []byte(`{}`))
	assert.ErrorContains(t, err, "disk full")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLKV_Postgres_DeleteAndKeys(t *testing.T) {
	mock, kv := setupMockPostgresKV(t)
	ctx := context.Background()

	mock.ExpectExec(`DELETE FROM "fadem_kv" WHERE "key" = \$1`).
		WithArgs("fadem_immobilier").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, kv.Delete(ctx, "fadem_immobilier"))

	mock.ExpectQuery(`SELECT "key" FROM "fadem_kv" WHERE "key" >= \$1`).
		WithArgs("fadem_").
		WillReturnRows(sqlmock.NewRows([]string{"key"}).
			AddRow("fadem_backup_immobilier").
			AddRow("fademarchive").
			AddRow("fadem_immobilier").
			AddRow("other"))
	keys, err := kv.Keys(ctx, "fadem_")
	require.NoError(t, err)
	// Linguistic collations interleave keys that do not share the prefix.
	assert.Equal(t, []string{"fadem_backup_immobilier", "fadem_immobilier"}, keys)

	assert.NoError(t, mock.ExpectationsWereMet())
}
