package orchestrator

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orchestrator/internal/apierr"
	"orchestrator/internal/store"
)

func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "jobqueue.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(store.New(db), nil, nil, nil, nil)
}

func TestAuthorizeRejectsUnknownCaller(t *testing.T) {
	o := newTestOrchestrator(t)
	err := o.Authorize(1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apierr.Unauthorized))
}

func TestAuthorizeRejectsSecondUserOnceOwnerRegistered(t *testing.T) {
	o := newTestOrchestrator(t)
	require.NoError(t, o.store.EnsureUser(1, true))

	require.NoError(t, o.Authorize(1))

	err := o.Authorize(2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apierr.Unauthorized))
}
