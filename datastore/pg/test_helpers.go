package pg

import (
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"

	_ "github.com/proullon/ramsql/driver"
	"github.com/rubenv/pgtest"
	"github.com/stretchr/testify/require"
)

var ramDBCounter atomic.Int64

// openRamDBForTest opens a hermetic in-process SQL engine. Each call gets an
// isolated database.
func openRamDBForTest(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("ramsql", fmt.Sprintf("catalog-test-%d", ramDBCounter.Add(1)))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	return db
}

// openPostgresForTest starts an in-process postgres. It requires a local
// postgres installation and is used by the tests that exercise the real
// dialect.
func openPostgresForTest(t *testing.T) *sql.DB {
	t.Helper()

	pg, err := pgtest.Start()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, pg.Stop())
	})

	return pg.DB
}
