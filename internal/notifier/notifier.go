// Package notifier defines the egress capability the orchestrator uses to
// reach the chat-protocol front end, plus a logging-only implementation for
// standalone running and tests.
package notifier

import (
	"orchestrator/internal/jobmodel"
	"orchestrator/internal/logx"
)

// Notifier is implemented by the chat front end. Every method is best
// effort: implementations must not propagate errors back into the
// orchestrator; they should log and swallow.
type Notifier interface {
	SendText(text string)
	SendJobStatus(job jobmodel.Job, heading string)
	SendArtifacts(artifacts []jobmodel.Artifact)
	SendApprovalRequest(job jobmodel.Job, reason string)
}

// LoggingNotifier logs every notification instead of delivering it
// anywhere; it is the default wired by cmd/jobqueued when no richer chat
// front end is configured.
type LoggingNotifier struct {
	log *logx.Logger
}

func NewLoggingNotifier() *LoggingNotifier {
	return &LoggingNotifier{log: logx.NewLogger("notifier")}
}

func (n *LoggingNotifier) SendText(text string) {
	n.log.Info("text: %s", text)
}

func (n *LoggingNotifier) SendJobStatus(job jobmodel.Job, heading string) {
	n.log.Info("job %d status %s: %s", job.ID, job.Status, heading)
}

func (n *LoggingNotifier) SendArtifacts(artifacts []jobmodel.Artifact) {
	for _, a := range artifacts {
		n.log.Info("artifact job=%d kind=%s path=%s", a.JobID, a.Kind, a.Path)
	}
}

func (n *LoggingNotifier) SendApprovalRequest(job jobmodel.Job, reason string) {
	n.log.Info("job %d approval required: %s", job.ID, reason)
}
