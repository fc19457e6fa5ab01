package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sqliteDSN(t *testing.T) string {
	t.Helper()
	return "file:" + filepath.Join(t.TempDir(), "shortlink.db") + "?_foreign_keys=on"
}

func tableExists(t *testing.T, db *sqlx.DB, name string) bool {
	t.Helper()

	var count int
	err := db.GetContext(context.Background(), &count,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name)
	require.NoError(t, err)

	return count == 1
}

func TestNew(t *testing.T) {
	t.Run("unsupported driver", func(t *testing.T) {
		db, err := New(context.Background(), "mysql", "root@/shortlink")

		assert.ErrorContains(t, err, "unsupported driver")
		assert.Nil(t, db)
	})

	t.Run("sqlite", func(t *testing.T) {
		db, err := New(context.Background(), DriverSQLite, sqliteDSN(t),
			WithConnMaxIdleTime(time.Minute),
			WithMaxIdleConns(1),
		)
		require.NoError(t, err)
		defer db.Close()

		assert.Equal(t, DriverSQLite, db.DriverName())
		assert.Equal(t, 1, db.Stats().MaxOpenConnections)
	})

	t.Run("options override defaults", func(t *testing.T) {
		db, err := New(context.Background(), DriverSQLite, sqliteDSN(t), WithMaxOpenConns(2))
		require.NoError(t, err)
		defer db.Close()

		assert.Equal(t, 2, db.Stats().MaxOpenConnections)
	})
}

func TestMigrations(t *testing.T) {
	db, err := New(context.Background(), DriverSQLite, sqliteDSN(t))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, RunMigrations(db))
	assert.True(t, tableExists(t, db, "url_mappings"))
	assert.True(t, tableExists(t, db, "click_events"))

	// Applying twice is a no-op.
	require.NoError(t, RunMigrations(db))

	require.NoError(t, RollbackMigrations(db))
	assert.False(t, tableExists(t, db, "url_mappings"))
	assert.False(t, tableExists(t, db, "click_events"))
}
