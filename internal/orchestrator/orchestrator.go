// Package orchestrator provides the façade the chat front end drives:
// submit/approve/reject/cancel plus read-through getters, gluing the risk
// classifier, store, dispatcher, and notifier together.
package orchestrator

import (
	"orchestrator/internal/apierr"
	"orchestrator/internal/dispatch"
	"orchestrator/internal/jobmodel"
	"orchestrator/internal/logx"
	"orchestrator/internal/notifier"
	"orchestrator/internal/profile"
	"orchestrator/internal/risk"
	"orchestrator/internal/sessions"
	"orchestrator/internal/store"
)

// Orchestrator is the single entry point the ingress surface (chat
// front end, HTTP handlers, CLI) calls into.
type Orchestrator struct {
	store      *store.Store
	dispatcher *dispatch.Dispatcher
	sessions   *sessions.Registry
	profile    *profile.Profile
	notify     notifier.Notifier
	log        *logx.Logger
}

func New(st *store.Store, d *dispatch.Dispatcher, sess *sessions.Registry, prof *profile.Profile, notify notifier.Notifier) *Orchestrator {
	return &Orchestrator{store: st, dispatcher: d, sessions: sess, profile: prof, notify: notify, log: logx.NewLogger("orchestrator")}
}

// Authorize rejects any caller other than the single registered owner.
// The ingress surface calls this before every mutating command so a second
// chat user's submit/approve/reject/cancel is refused rather than silently
// acted on.
func (o *Orchestrator) Authorize(callerID int64) error {
	ok, err := o.store.IsOwner(callerID)
	if err != nil {
		return err
	}
	if !ok {
		return apierr.New(apierr.KindUnauthorized, "caller %d is not the registered owner", callerID)
	}
	return nil
}

// Submit classifies prompt's risk, persists the job as queued or
// awaiting_approval, appends job_submitted (and approval_required plus an
// approval-request notification when gated), and returns the created job.
func (o *Orchestrator) Submit(prompt string, mode jobmodel.JobMode, sessionName string) (jobmodel.Job, error) {
	decision := risk.Classify(prompt)
	job, err := o.store.CreateJob(prompt, mode, sessionName, decision.Level, decision.NeedsApproval)
	if err != nil {
		return jobmodel.Job{}, err
	}
	if err := o.store.AppendEvent(job.ID, jobmodel.EventJobSubmitted, map[string]string{"risk": string(decision.Level)}); err != nil {
		o.log.Warn("append job_submitted for %d: %v", job.ID, err)
	}
	if decision.NeedsApproval {
		if err := o.store.AppendEvent(job.ID, jobmodel.EventApprovalRequired, map[string]string{"reason": decision.Reason}); err != nil {
			o.log.Warn("append approval_required for %d: %v", job.ID, err)
		}
		o.notify.SendApprovalRequest(job, decision.Reason)
	}
	return job, nil
}

// Approve moves a job from awaiting_approval to queued, recording ownerID.
func (o *Orchestrator) Approve(jobID, ownerID int64) error {
	if err := o.store.ApproveJob(jobID, ownerID); err != nil {
		return err
	}
	if err := o.store.AppendEvent(jobID, jobmodel.EventJobApproved, nil); err != nil {
		o.log.Warn("append job_approved for %d: %v", jobID, err)
	}
	job, err := o.store.GetJob(jobID)
	if err == nil {
		o.notify.SendJobStatus(job, "Job approved")
	}
	return nil
}

// Reject moves a job from awaiting_approval to rejected.
func (o *Orchestrator) Reject(jobID, ownerID int64) error {
	if err := o.store.RejectJob(jobID, ownerID); err != nil {
		return err
	}
	if err := o.store.AppendEvent(jobID, jobmodel.EventJobRejected, nil); err != nil {
		o.log.Warn("append job_rejected for %d: %v", jobID, err)
	}
	job, err := o.store.GetJob(jobID)
	if err == nil {
		o.notify.SendJobStatus(job, "Job rejected")
	}
	return nil
}

// Cancel requests cancellation of jobID's worker (if running) and updates
// the store. Idempotent on terminal jobs.
func (o *Orchestrator) Cancel(jobID int64) error {
	if before, err := o.store.GetJob(jobID); err == nil && before.Status.IsTerminal() {
		return nil
	}
	o.dispatcher.Cancel(jobID)
	if err := o.store.CancelJob(jobID); err != nil {
		return err
	}
	job, err := o.store.GetJob(jobID)
	if err == nil && job.Status == jobmodel.StatusCanceled {
		if appendErr := o.store.AppendEvent(jobID, jobmodel.EventJobCanceled, nil); appendErr != nil {
			o.log.Warn("append job_canceled for %d: %v", jobID, appendErr)
		}
		o.notify.SendJobStatus(job, "Job canceled")
	}
	return nil
}

func (o *Orchestrator) GetJob(id int64) (jobmodel.Job, error)         { return o.store.GetJob(id) }
func (o *Orchestrator) ListJobs(limit int) ([]jobmodel.Job, error)     { return o.store.ListJobs(limit) }
func (o *Orchestrator) CountJobsByStatus() (map[jobmodel.JobStatus]int, error) {
	return o.store.CountJobsByStatus()
}
func (o *Orchestrator) ListJobArtifacts(id int64) ([]jobmodel.Artifact, error) {
	return o.store.ListArtifacts(id)
}
func (o *Orchestrator) ListJobEvents(id int64, limit int) ([]jobmodel.JobEvent, error) {
	return o.store.ListEvents(id, limit)
}

func (o *Orchestrator) GetActiveSessionForChat(chatID int64) (string, error) {
	return o.store.GetActiveSessionForChat(chatID)
}
func (o *Orchestrator) SetActiveSessionForChat(chatID int64, name string) error {
	return o.store.SetActiveSessionForChat(chatID, name)
}

// Profile returns the process-wide RuntimeProfile, for getters/setters the
// ingress surface delegates directly.
func (o *Orchestrator) Profile() *profile.Profile { return o.profile }

func (o *Orchestrator) CreateSession(name string) (jobmodel.SessionRecord, bool, error) {
	return o.sessions.Create(name)
}
func (o *Orchestrator) StopSession(name string) (jobmodel.SessionRecord, error) {
	return o.sessions.Stop(name)
}
func (o *Orchestrator) ListSessions() ([]jobmodel.SessionRecord, error) { return o.sessions.List() }
