package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/fwojciec/siteqa"
	"github.com/fwojciec/siteqa/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates an in-memory database for testing.
func setupTestDB(t *testing.T) *sqlite.DB {
	t.Helper()

	db := sqlite.NewDB(":memory:")
	require.NoError(t, db.Open())
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDB_Open(t *testing.T) {
	t.Parallel()

	t.Run("migrates a new database", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()

		var version int
		require.NoError(t, db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version))
		assert.Equal(t, sqlite.SchemaVersion, version)

		for _, table := range []string{"urls", "edges", "index_meta", "index_entries"} {
			var n int
			require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n), table)
		}
	})

	t.Run("reopening keeps data and journal mode", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "linkgraph.db")
		db := sqlite.NewDB(path)
		require.NoError(t, db.Open())
		_, err := db.ExecContext(ctx, "INSERT INTO urls (url, status) VALUES ('https://example.edu/', 'pending')")
		require.NoError(t, err)
		require.NoError(t, db.Close())

		db = sqlite.NewDB(path)
		require.NoError(t, db.Open())
		defer db.Close()

		var n int
		require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM urls").Scan(&n))
		assert.Equal(t, 1, n)

		var mode string
		require.NoError(t, db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode))
		assert.Equal(t, "wal", mode)
	})

	t.Run("refuses a newer schema", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "future.db")
		db := sqlite.NewDB(path)
		require.NoError(t, db.Open())
		_, err := db.ExecContext(context.Background(), "PRAGMA user_version = 99")
		require.NoError(t, err)
		require.NoError(t, db.Close())

		err = sqlite.NewDB(path).Open()
		require.Error(t, err)
		assert.Equal(t, siteqa.ESTORE, siteqa.ErrorCode(err))
		assert.Contains(t, siteqa.ErrorMessage(err), "newer")
	})

	t.Run("fails in a missing directory", func(t *testing.T) {
		t.Parallel()

		err := sqlite.NewDB(filepath.Join(t.TempDir(), "missing", "db.sqlite")).Open()
		require.Error(t, err)
		assert.Equal(t, siteqa.ESTORE, siteqa.ErrorCode(err))
	})
}
