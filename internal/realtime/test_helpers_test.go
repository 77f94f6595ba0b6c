package realtime

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// createTestDB opens a fresh SQLite database in the test's temp dir.
func createTestDB(t *testing.T, opts ...Option) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	d, err := Open(context.Background(), Config{DSN: path}, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

// postgresDSN returns the test Postgres DSN or skips the test.
func postgresDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("ROSTER_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ROSTER_TEST_POSTGRES_DSN not set")
	}
	return dsn
}

// recorder collects snapshots delivered to a listener.
type recorder struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (r *recorder) handle(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
}

func (r *recorder) all() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Snapshot(nil), r.snaps...)
}

func (r *recorder) waitLen(t *testing.T, n int) []Snapshot {
	t.Helper()
	require.Eventually(t, func() bool { return len(r.all()) >= n }, 2*time.Second, 5*time.Millisecond,
		"expected at least %d deliveries", n)
	return r.all()
}
