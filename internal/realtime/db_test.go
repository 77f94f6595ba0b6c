package realtime

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	d, err := Open(context.Background(), Config{DSN: path})
	require.NoError(t, err)
	defer d.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file was not created")
	assert.Equal(t, DriverSQLite, d.Driver())
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		d, err := Open(context.Background(), Config{DSN: path})
		require.NoError(t, err, "open iteration %d", i)
		d.Close()
	}

	d, err := Open(context.Background(), Config{DSN: path})
	require.NoError(t, err)
	defer d.Close()

	var version int
	require.NoError(t, d.SQL().QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)

	var count int
	require.NoError(t, d.SQL().QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestOpen_ResumesRevision(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	d, err := Open(ctx, Config{DSN: path})
	require.NoError(t, err)
	require.NoError(t, d.Set(ctx, "/a", 1))
	require.NoError(t, d.Set(ctx, "/b", 2))
	assert.Equal(t, int64(2), d.Revision())
	d.Close()

	d, err = Open(ctx, Config{DSN: path})
	require.NoError(t, err)
	defer d.Close()

	assert.Equal(t, int64(2), d.Revision())
	require.NoError(t, d.Set(ctx, "/c", 3))
	assert.Equal(t, int64(3), d.Revision())
}

func TestRevisions_SharedAcrossHandles(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	first, err := Open(ctx, Config{DSN: path})
	require.NoError(t, err)
	defer first.Close()
	second, err := Open(ctx, Config{DSN: path})
	require.NoError(t, err)
	defer second.Close()

	require.NoError(t, first.Set(ctx, "/a", 1))
	require.NoError(t, second.Set(ctx, "/b", 2))
	require.NoError(t, first.Set(ctx, "/c", 3))

	revs := make([]int64, 0, 3)
	for _, p := range []string{"/a", "/b", "/c"} {
		snap, err := first.Get(ctx, p)
		require.NoError(t, err)
		revs = append(revs, snap.Rev)
	}
	assert.Equal(t, []int64{1, 2, 3}, revs)
	assert.Equal(t, int64(3), first.Revision())
	assert.Equal(t, int64(2), second.Revision())
}

func TestRevisions_SurviveRemovingEverything(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	d, err := Open(ctx, Config{DSN: path})
	require.NoError(t, err)
	require.NoError(t, d.Set(ctx, "/a", 1))
	require.NoError(t, d.Remove(ctx, "/"))
	d.Close()

	d, err = Open(ctx, Config{DSN: path})
	require.NoError(t, err)
	defer d.Close()

	assert.Equal(t, int64(2), d.Revision())
	require.NoError(t, d.Set(ctx, "/a", 1))
	snap, err := d.Get(ctx, "/a")
	require.NoError(t, err)
	assert.Equal(t, int64(3), snap.Rev)
}

func TestOpen_MigratesRevisionFromNodes(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	d, err := Open(ctx, Config{DSN: path})
	require.NoError(t, err)
	require.NoError(t, d.Set(ctx, "/a", 1))
	require.NoError(t, d.Set(ctx, "/b", 2))

	// Roll the file back to a v2 database without the counter row.
	_, err = d.SQL().Exec("DELETE FROM revision")
	require.NoError(t, err)
	_, err = d.SQL().Exec("UPDATE schema_version SET version = 2")
	require.NoError(t, err)
	d.Close()

	d, err = Open(ctx, Config{DSN: path})
	require.NoError(t, err)
	defer d.Close()

	assert.Equal(t, int64(2), d.Revision())
	require.NoError(t, d.Set(ctx, "/c", 3))
	assert.Equal(t, int64(3), d.Revision())
}

func TestOpen_Pragmas(t *testing.T) {
	d := createTestDB(t)

	tests := []struct {
		name     string
		expected string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"},
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var value string
			require.NoError(t, d.SQL().QueryRow("PRAGMA "+tt.name).Scan(&value))
			assert.Equal(t, tt.expected, value)
		})
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "mysql", DSN: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported driver")
}

func TestOpen_EmptyDSN(t *testing.T) {
	_, err := Open(context.Background(), Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty dsn")
}

func TestRebind(t *testing.T) {
	q := "SELECT * FROM nodes WHERE path = ? OR path LIKE ?"

	assert.Equal(t, q, Rebind(DriverSQLite, q))
	assert.Equal(t, "SELECT * FROM nodes WHERE path = $1 OR path LIKE $2", Rebind(DriverPostgres, q))
}

func TestPostgres_SetGet(t *testing.T) {
	dsn := postgresDSN(t)
	ctx := context.Background()

	d, err := Open(ctx, Config{Driver: DriverPostgres, DSN: dsn})
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, d.Remove(ctx, "/roster-test"))
	require.NoError(t, d.Set(ctx, "/roster-test/a", map[string]any{"name": "Taylor"}))

	snap, err := d.Get(ctx, "/roster-test")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":{"name":"Taylor"}}`, string(snap.Raw))
	require.NoError(t, d.Remove(ctx, "/roster-test"))
}

func TestPostgres_RevisionsSharedAcrossHandles(t *testing.T) {
	dsn := postgresDSN(t)
	ctx := context.Background()

	first, err := Open(ctx, Config{Driver: DriverPostgres, DSN: dsn})
	require.NoError(t, err)
	defer first.Close()
	second, err := Open(ctx, Config{Driver: DriverPostgres, DSN: dsn})
	require.NoError(t, err)
	defer second.Close()

	require.NoError(t, first.Set(ctx, "/roster-rev/a", 1))
	require.NoError(t, second.Set(ctx, "/roster-rev/b", 2))

	a, err := first.Get(ctx, "/roster-rev/a")
	require.NoError(t, err)
	b, err := first.Get(ctx, "/roster-rev/b")
	require.NoError(t, err)
	assert.Greater(t, b.Rev, a.Rev)
	require.NoError(t, first.Remove(ctx, "/roster-rev"))
}
