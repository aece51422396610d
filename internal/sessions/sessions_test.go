package sessions

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"orchestrator/internal/store"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "jobqueue.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(store.New(db), "", time.Second)
}

func TestCreateActivatesNewSession(t *testing.T) {
	r := newTestRegistry(t)
	rec, created, err := r.Create("my-session")
	require.NoError(t, err)
	require.True(t, created)
	require.True(t, r.IsActive(rec.Name))
}

func TestCreateIsNoOpWhenAlreadyActive(t *testing.T) {
	r := newTestRegistry(t)
	_, created1, err := r.Create("my-session")
	require.NoError(t, err)
	require.True(t, created1)

	_, created2, err := r.Create("my-session")
	require.NoError(t, err)
	require.False(t, created2)
}

func TestStopDeactivatesSession(t *testing.T) {
	r := newTestRegistry(t)
	_, _, err := r.Create("my-session")
	require.NoError(t, err)

	rec, err := r.Stop("my-session")
	require.NoError(t, err)
	require.False(t, r.IsActive(rec.Name))
}

func TestIsActiveFalseForUnknownSession(t *testing.T) {
	r := newTestRegistry(t)
	require.False(t, r.IsActive("nonexistent"))
}
