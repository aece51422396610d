// Package jobmodel defines the persisted entities shared by every component
// of the job orchestration subsystem.
package jobmodel

import "time"

// JobStatus is the closed set of states a Job may occupy.
type JobStatus string

const (
	StatusQueued           JobStatus = "queued"
	StatusRunning          JobStatus = "running"
	StatusAwaitingApproval JobStatus = "awaiting_approval"
	StatusSucceeded        JobStatus = "succeeded"
	StatusFailed           JobStatus = "failed"
	StatusCanceled         JobStatus = "canceled"
	StatusRejected         JobStatus = "rejected"
)

// IsTerminal reports whether status is one of the terminal states.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusCanceled, StatusRejected:
		return true
	default:
		return false
	}
}

// JobMode selects whether a job runs ephemerally or against a named session.
type JobMode string

const (
	ModeEphemeral JobMode = "ephemeral"
	ModeSession   JobMode = "session"
)

// RiskLevel is the outcome of the risk classifier.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// JobEventType enumerates the append-only audit-log event kinds.
type JobEventType string

const (
	EventJobSubmitted           JobEventType = "job_submitted"
	EventApprovalRequired       JobEventType = "approval_required"
	EventJobApproved            JobEventType = "job_approved"
	EventJobRejected            JobEventType = "job_rejected"
	EventJobStarted             JobEventType = "job_started"
	EventJobSucceeded           JobEventType = "job_succeeded"
	EventJobFailed              JobEventType = "job_failed"
	EventJobCanceled            JobEventType = "job_canceled"
	EventJobCanceledWhileRun    JobEventType = "job_canceled_while_running"
)

// SessionStatus is the lifecycle state of a named long-lived session.
type SessionStatus string

const (
	SessionActive   SessionStatus = "active"
	SessionInactive SessionStatus = "inactive"
)

// ArtifactKind classifies a collected artifact by extension.
type ArtifactKind string

const (
	ArtifactImage    ArtifactKind = "image"
	ArtifactVideo    ArtifactKind = "video"
	ArtifactLog      ArtifactKind = "log"
	ArtifactDocument ArtifactKind = "document"
	ArtifactFile     ArtifactKind = "file"
)

// Job is the central entity of the job orchestration subsystem.
type Job struct {
	ID             int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Status         JobStatus
	Mode           JobMode
	SessionName    string // required iff Mode == ModeSession
	Prompt         string
	RiskLevel      RiskLevel
	NeedsApproval  bool
	ApprovedBy     *int64
	StartedAt      *time.Time
	FinishedAt     *time.Time
	ExitCode       *int
	SummaryText    *string
	ErrorText      *string
}

// JobEvent is one append-only entry in a job's audit log.
type JobEvent struct {
	ID        int64
	JobID     int64
	Timestamp time.Time
	Type      JobEventType
	Payload   string // JSON, empty when absent
}

// Artifact is a file produced by, or referenced by, a job run.
type Artifact struct {
	ID       int64
	JobID    int64
	Kind     ArtifactKind
	Path     string // absolute, resolved
	SizeBytes int64
	SHA256   string
}

// SessionRecord is a named long-lived agent session.
type SessionRecord struct {
	Name       string
	Status     SessionStatus
	PID        *int
	StartedAt  *time.Time
	LastSeenAt *time.Time
	Metadata   string // JSON, empty when absent
}

// ApprovalSurface distinguishes the two UI surfaces pending approval tokens
// may be registered against.
type ApprovalSurface string

const (
	SurfaceChecklist ApprovalSurface = "checklist"
	SurfacePoll      ApprovalSurface = "poll"
)

// PendingApprovalToken maps a UI-surface identifier to a job awaiting a
// decision; it must survive process restart so approvals persist.
type PendingApprovalToken struct {
	Surface   ApprovalSurface
	TokenID   string // (chat_id,message_id) or poll_id, caller-encoded
	JobID     int64
	CreatedAt time.Time
}
