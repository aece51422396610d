package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"orchestrator/internal/jobmodel"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "jobqueue.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db)
}

func TestCreateJobQueuedWhenApprovalNotNeeded(t *testing.T) {
	s := newTestStore(t)
	job, err := s.CreateJob("list files", jobmodel.ModeEphemeral, "", jobmodel.RiskLow, false)
	require.NoError(t, err)
	require.Equal(t, jobmodel.StatusQueued, job.Status)
	require.False(t, job.NeedsApproval)
	require.Nil(t, job.ApprovedBy)
}

func TestCreateJobAwaitingApprovalWhenNeeded(t *testing.T) {
	s := newTestStore(t)
	job, err := s.CreateJob("rm -rf /", jobmodel.ModeEphemeral, "", jobmodel.RiskHigh, true)
	require.NoError(t, err)
	require.Equal(t, jobmodel.StatusAwaitingApproval, job.Status)
}

func TestReserveNextRunnableJobSkipsUnapprovedGatedJob(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateJob("rm -rf /", jobmodel.ModeEphemeral, "", jobmodel.RiskHigh, true)
	require.NoError(t, err)

	_, ok, err := s.ReserveNextRunnableJob()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestReserveNextRunnableJobPicksLowestIDQueuedJob(t *testing.T) {
	s := newTestStore(t)
	first, err := s.CreateJob("first", jobmodel.ModeEphemeral, "", jobmodel.RiskLow, false)
	require.NoError(t, err)
	_, err = s.CreateJob("second", jobmodel.ModeEphemeral, "", jobmodel.RiskLow, false)
	require.NoError(t, err)

	job, ok, err := s.ReserveNextRunnableJob()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, first.ID, job.ID)
	require.Equal(t, jobmodel.StatusRunning, job.Status)
	require.NotNil(t, job.StartedAt)
}

func TestReserveNextRunnableJobIsAtMostOnceAcrossRepeatedCalls(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateJob("only job", jobmodel.ModeEphemeral, "", jobmodel.RiskLow, false)
	require.NoError(t, err)

	_, ok1, err := s.ReserveNextRunnableJob()
	require.NoError(t, err)
	require.True(t, ok1)

	_, ok2, err := s.ReserveNextRunnableJob()
	require.NoError(t, err)
	require.False(t, ok2, "a second reservation attempt must not pick up the already-running job")
}

func TestApproveJobMovesAwaitingApprovalToQueued(t *testing.T) {
	s := newTestStore(t)
	job, err := s.CreateJob("sudo reboot", jobmodel.ModeEphemeral, "", jobmodel.RiskHigh, true)
	require.NoError(t, err)

	require.NoError(t, s.ApproveJob(job.ID, 42))

	got, err := s.GetJob(job.ID)
	require.NoError(t, err)
	require.Equal(t, jobmodel.StatusQueued, got.Status)
	require.NotNil(t, got.ApprovedBy)
	require.Equal(t, int64(42), *got.ApprovedBy)
}

func TestRejectJobRecordsApprovedByOnRejection(t *testing.T) {
	s := newTestStore(t)
	job, err := s.CreateJob("sudo reboot", jobmodel.ModeEphemeral, "", jobmodel.RiskHigh, true)
	require.NoError(t, err)

	require.NoError(t, s.RejectJob(job.ID, 7))

	got, err := s.GetJob(job.ID)
	require.NoError(t, err)
	require.Equal(t, jobmodel.StatusRejected, got.Status)
	require.NotNil(t, got.ApprovedBy)
	require.Equal(t, int64(7), *got.ApprovedBy)
}

func TestCancelJobIsIdempotentOnTerminalJob(t *testing.T) {
	s := newTestStore(t)
	job, err := s.CreateJob("ok", jobmodel.ModeEphemeral, "", jobmodel.RiskLow, false)
	require.NoError(t, err)
	require.NoError(t, s.SetJobStatus(job.ID, JobStatusUpdate{Status: jobmodel.StatusSucceeded, Finished: true}))

	require.NoError(t, s.CancelJob(job.ID))

	got, err := s.GetJob(job.ID)
	require.NoError(t, err)
	require.Equal(t, jobmodel.StatusSucceeded, got.Status)
}

func TestAppendAndListEventsPreservesOrder(t *testing.T) {
	s := newTestStore(t)
	job, err := s.CreateJob("ok", jobmodel.ModeEphemeral, "", jobmodel.RiskLow, false)
	require.NoError(t, err)

	require.NoError(t, s.AppendEvent(job.ID, jobmodel.EventJobSubmitted, nil))
	require.NoError(t, s.AppendEvent(job.ID, jobmodel.EventJobStarted, nil))

	events, err := s.ListEvents(job.ID, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, jobmodel.EventJobSubmitted, events[0].Type)
	require.Equal(t, jobmodel.EventJobStarted, events[1].Type)
}

func TestUpsertSessionPreservesStartedAtAcrossReactivation(t *testing.T) {
	s := newTestStore(t)
	first, err := s.UpsertSession("work", jobmodel.SessionActive, nil, "")
	require.NoError(t, err)
	require.NotNil(t, first.StartedAt)

	_, err = s.UpsertSession("work", jobmodel.SessionInactive, nil, "")
	require.NoError(t, err)
	second, err := s.UpsertSession("work", jobmodel.SessionActive, nil, "")
	require.NoError(t, err)

	require.Equal(t, first.StartedAt.Unix(), second.StartedAt.Unix())
}

func TestActiveSessionForChatRoundTrips(t *testing.T) {
	s := newTestStore(t)
	name, err := s.GetActiveSessionForChat(1)
	require.NoError(t, err)
	require.Empty(t, name)

	require.NoError(t, s.SetActiveSessionForChat(1, "work"))
	name, err = s.GetActiveSessionForChat(1)
	require.NoError(t, err)
	require.Equal(t, "work", name)
}

func TestIsOwnerFalseForUnknownUser(t *testing.T) {
	s := newTestStore(t)
	owner, err := s.IsOwner(42)
	require.NoError(t, err)
	require.False(t, owner)
}

func TestEnsureUserRecordsOwnerOnce(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.EnsureUser(42, true))
	owner, err := s.IsOwner(42)
	require.NoError(t, err)
	require.True(t, owner)

	// A second EnsureUser call for a different caller must not flip the
	// already-recorded owner's flag or register the new id as owner.
	require.NoError(t, s.EnsureUser(99, false))
	owner, err = s.IsOwner(99)
	require.NoError(t, err)
	require.False(t, owner)

	owner, err = s.IsOwner(42)
	require.NoError(t, err)
	require.True(t, owner)
}
