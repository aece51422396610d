package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"orchestrator/internal/apierr"
	"orchestrator/internal/jobmodel"
)

const timeLayout = "2006-01-02T15:04:05.000Z"

// Store is the durable state for jobs, events, artifacts, sessions, chat
// pointers, and pending approval UI tokens. All mutation methods are
// serialized behind mu so callers observe a consistent snapshot; this
// mirrors the Python original's single sqlite3.Connection guarded by an
// RLock rather than relying on SQLite's own locking for cross-statement
// atomicity.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// New wraps an already-opened, schema-initialized database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func now() string { return time.Now().UTC().Format(timeLayout) }

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

func nullableTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

// --- Jobs ---------------------------------------------------------------

// CreateJob persists a new job in queued or awaiting_approval status.
func (s *Store) CreateJob(prompt string, mode jobmodel.JobMode, sessionName string, risk jobmodel.RiskLevel, needsApproval bool) (jobmodel.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := jobmodel.StatusQueued
	if needsApproval {
		status = jobmodel.StatusAwaitingApproval
	}
	ts := now()
	var sessionArg any
	if sessionName != "" {
		sessionArg = sessionName
	}
	res, err := s.db.Exec(
		`INSERT INTO jobs (created_at, updated_at, status, mode, session_name, prompt, risk_level, needs_approval)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ts, ts, string(status), string(mode), sessionArg, prompt, string(risk), boolToInt(needsApproval),
	)
	if err != nil {
		return jobmodel.Job{}, fmt.Errorf("create job: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return jobmodel.Job{}, fmt.Errorf("create job: %w", err)
	}
	return s.getJobLocked(id)
}

// GetJob returns a job by id, or apierr.NotFound if it does not exist.
func (s *Store) GetJob(id int64) (jobmodel.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getJobLocked(id)
}

func (s *Store) getJobLocked(id int64) (jobmodel.Job, error) {
	row := s.db.QueryRow(
		`SELECT id, created_at, updated_at, status, mode, COALESCE(session_name,''), prompt,
		        risk_level, needs_approval, approved_by, started_at, finished_at, exit_code,
		        summary_text, error_text
		 FROM jobs WHERE id = ?`, id)
	return scanJob(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (jobmodel.Job, error) {
	var (
		j                                       jobmodel.Job
		createdAt, updatedAt, status, mode      string
		sessionName, prompt, risk               string
		needsApproval                           int
		approvedBy                              sql.NullInt64
		startedAt, finishedAt                    sql.NullString
		exitCode                                sql.NullInt64
		summaryText, errorText                  sql.NullString
	)
	err := row.Scan(&j.ID, &createdAt, &updatedAt, &status, &mode, &sessionName, &prompt,
		&risk, &needsApproval, &approvedBy, &startedAt, &finishedAt, &exitCode, &summaryText, &errorText)
	if errors.Is(err, sql.ErrNoRows) {
		return jobmodel.Job{}, apierr.New(apierr.KindNotFound, "job not found")
	}
	if err != nil {
		return jobmodel.Job{}, fmt.Errorf("scan job: %w", err)
	}
	j.CreatedAt = parseTime(createdAt)
	j.UpdatedAt = parseTime(updatedAt)
	j.Status = jobmodel.JobStatus(status)
	j.Mode = jobmodel.JobMode(mode)
	j.SessionName = sessionName
	j.Prompt = prompt
	j.RiskLevel = jobmodel.RiskLevel(risk)
	j.NeedsApproval = needsApproval != 0
	if approvedBy.Valid {
		v := approvedBy.Int64
		j.ApprovedBy = &v
	}
	j.StartedAt = nullableTime(startedAt)
	j.FinishedAt = nullableTime(finishedAt)
	if exitCode.Valid {
		v := int(exitCode.Int64)
		j.ExitCode = &v
	}
	if summaryText.Valid {
		v := summaryText.String
		j.SummaryText = &v
	}
	if errorText.Valid {
		v := errorText.String
		j.ErrorText = &v
	}
	return j, nil
}

// ListJobs returns up to limit jobs, most-recent-first.
func (s *Store) ListJobs(limit int) ([]jobmodel.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(
		`SELECT id, created_at, updated_at, status, mode, COALESCE(session_name,''), prompt,
		        risk_level, needs_approval, approved_by, started_at, finished_at, exit_code,
		        summary_text, error_text
		 FROM jobs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()
	var out []jobmodel.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// CountJobsByStatus returns the number of jobs in each status.
func (s *Store) CountJobsByStatus() (map[jobmodel.JobStatus]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(`SELECT status, count(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}
	defer rows.Close()
	out := make(map[jobmodel.JobStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		out[jobmodel.JobStatus(status)] = count
	}
	return out, rows.Err()
}

// ReserveNextRunnableJob atomically selects the lowest-id queued job whose
// approval gate is satisfied, transitions it to running, and returns it.
// It returns (Job{}, false, nil) when no job is runnable. This is the sole
// entry into the running status: two concurrent callers never both succeed
// for the same job, because the select and update run inside one
// transaction under the Store mutex and the UPDATE's WHERE clause is
// guarded by the row's still-queued status.
func (s *Store) ReserveNextRunnableJob() (jobmodel.Job, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return jobmodel.Job{}, false, fmt.Errorf("reserve: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op once committed

	var id int64
	err = tx.QueryRow(
		`SELECT id FROM jobs
		 WHERE status = ? AND (needs_approval = 0 OR approved_by IS NOT NULL)
		 ORDER BY id ASC LIMIT 1`, string(jobmodel.StatusQueued)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return jobmodel.Job{}, false, nil
	}
	if err != nil {
		return jobmodel.Job{}, false, fmt.Errorf("reserve: select: %w", err)
	}

	ts := now()
	res, err := tx.Exec(
		`UPDATE jobs SET status = ?, updated_at = ?, started_at = COALESCE(started_at, ?)
		 WHERE id = ? AND status = ?`,
		string(jobmodel.StatusRunning), ts, ts, id, string(jobmodel.StatusQueued))
	if err != nil {
		return jobmodel.Job{}, false, fmt.Errorf("reserve: update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return jobmodel.Job{}, false, fmt.Errorf("reserve: rows affected: %w", err)
	}
	if n == 0 {
		// Lost a race to another reservation between the select and the
		// update; nothing to return this iteration.
		return jobmodel.Job{}, false, tx.Commit()
	}
	if err := tx.Commit(); err != nil {
		return jobmodel.Job{}, false, fmt.Errorf("reserve: commit: %w", err)
	}
	job, err := s.getJobLocked(id)
	return job, true, err
}

// JobStatusUpdate carries the optional fields SetJobStatus may fill in.
// Only non-nil fields are written; finished_at/approved_by are write-once
// (COALESCE'd against the existing column), matching the original's
// terminal-state semantics.
type JobStatusUpdate struct {
	Status      jobmodel.JobStatus
	Summary     *string
	Error       *string
	ExitCode    *int
	ApprovedBy  *int64
	Finished    bool
}

// SetJobStatus applies u to job id. It does not itself enforce from-state
// transition legality; callers (Dispatcher, Orchestrator) uphold that.
func (s *Store) SetJobStatus(id int64, u JobStatusUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var finishedArg any
	if u.Finished {
		finishedArg = now()
	}
	_, err := s.db.Exec(
		`UPDATE jobs SET
			status = ?,
			updated_at = ?,
			summary_text = COALESCE(?, summary_text),
			error_text = COALESCE(?, error_text),
			exit_code = COALESCE(?, exit_code),
			approved_by = COALESCE(approved_by, ?),
			finished_at = COALESCE(finished_at, ?)
		 WHERE id = ?`,
		string(u.Status), now(), nullableString(u.Summary), nullableString(u.Error),
		nullableInt(u.ExitCode), nullableInt64(u.ApprovedBy), finishedArg, id,
	)
	if err != nil {
		return fmt.Errorf("set job status: %w", err)
	}
	return nil
}

// CancelJob transitions id to canceled, but only from queued, running, or
// awaiting_approval; a job already terminal is left untouched (idempotent).
func (s *Store) CancelJob(id int64) error {
	return s.guardedTransition(id, jobmodel.StatusCanceled,
		[]jobmodel.JobStatus{jobmodel.StatusQueued, jobmodel.StatusRunning, jobmodel.StatusAwaitingApproval},
		true)
}

// ApproveJob transitions id from awaiting_approval to queued, recording
// approvedBy. A second approval of the same job is a no-op.
func (s *Store) ApproveJob(id int64, approvedBy int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := now()
	_, err := s.db.Exec(
		`UPDATE jobs SET status = ?, updated_at = ?, approved_by = COALESCE(approved_by, ?)
		 WHERE id = ? AND status = ?`,
		string(jobmodel.StatusQueued), ts, approvedBy, id, string(jobmodel.StatusAwaitingApproval))
	if err != nil {
		return fmt.Errorf("approve job: %w", err)
	}
	return nil
}

// RejectJob transitions id from awaiting_approval to rejected, recording
// rejectedBy in the same approved_by column the spec uses for "the user who
// moved the job out of awaiting_approval", whichever direction that was.
func (s *Store) RejectJob(id int64, rejectedBy int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := now()
	_, err := s.db.Exec(
		`UPDATE jobs SET status = ?, updated_at = ?, approved_by = COALESCE(approved_by, ?)
		 WHERE id = ? AND status = ?`,
		string(jobmodel.StatusRejected), ts, rejectedBy, id, string(jobmodel.StatusAwaitingApproval))
	if err != nil {
		return fmt.Errorf("reject job: %w", err)
	}
	return nil
}

func (s *Store) guardedTransition(id int64, to jobmodel.JobStatus, from []jobmodel.JobStatus, finished bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	placeholders := ""
	args := []any{string(to), now()}
	if finished {
		args = append(args, now())
	}
	for i, f := range from {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
		args = append(args, string(f))
	}
	args = append(args, id)

	query := `UPDATE jobs SET status = ?, updated_at = ?`
	if finished {
		query += `, finished_at = COALESCE(finished_at, ?)`
	}
	query += fmt.Sprintf(` WHERE status IN (%s) AND id = ?`, placeholders)

	_, err := s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("transition job: %w", err)
	}
	return nil
}

// --- Events ---------------------------------------------------------------

// AppendEvent appends an immutable audit-log entry for jobID.
func (s *Store) AppendEvent(jobID int64, eventType jobmodel.JobEventType, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var payloadJSON any
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("append event: marshal payload: %w", err)
		}
		payloadJSON = string(b)
	}
	_, err := s.db.Exec(
		`INSERT INTO job_events (job_id, timestamp, event_type, payload_json) VALUES (?, ?, ?, ?)`,
		jobID, now(), string(eventType), payloadJSON)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// ListEvents returns up to limit events for jobID, oldest first.
func (s *Store) ListEvents(jobID int64, limit int) ([]jobmodel.JobEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(
		`SELECT id, job_id, timestamp, event_type, COALESCE(payload_json,'')
		 FROM job_events WHERE job_id = ? ORDER BY id ASC LIMIT ?`, jobID, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()
	var out []jobmodel.JobEvent
	for rows.Next() {
		var e jobmodel.JobEvent
		var ts, eventType string
		if err := rows.Scan(&e.ID, &e.JobID, &ts, &eventType, &e.Payload); err != nil {
			return nil, err
		}
		e.Timestamp = parseTime(ts)
		e.Type = jobmodel.JobEventType(eventType)
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- Artifacts --------------------------------------------------------------

// AddArtifact persists a newly collected artifact.
func (s *Store) AddArtifact(jobID int64, kind jobmodel.ArtifactKind, path string, size int64, sha256 string) (jobmodel.Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(
		`INSERT INTO artifacts (job_id, kind, path, size_bytes, sha256) VALUES (?, ?, ?, ?, ?)`,
		jobID, string(kind), path, size, sha256)
	if err != nil {
		return jobmodel.Artifact{}, fmt.Errorf("add artifact: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return jobmodel.Artifact{}, fmt.Errorf("add artifact: %w", err)
	}
	return jobmodel.Artifact{ID: id, JobID: jobID, Kind: kind, Path: path, SizeBytes: size, SHA256: sha256}, nil
}

// ListArtifacts returns every artifact recorded for jobID.
func (s *Store) ListArtifacts(jobID int64) ([]jobmodel.Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(
		`SELECT id, job_id, kind, path, size_bytes, sha256 FROM artifacts WHERE job_id = ? ORDER BY id ASC`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()
	var out []jobmodel.Artifact
	for rows.Next() {
		var a jobmodel.Artifact
		var kind string
		if err := rows.Scan(&a.ID, &a.JobID, &kind, &a.Path, &a.SizeBytes, &a.SHA256); err != nil {
			return nil, err
		}
		a.Kind = jobmodel.ArtifactKind(kind)
		out = append(out, a)
	}
	return out, rows.Err()
}

// --- Sessions ---------------------------------------------------------------

// UpsertSession creates or reactivates a named session, preserving the
// original StartedAt across re-activation (COALESCE'd against the existing
// row), matching the original's ON CONFLICT ... DO UPDATE behavior.
func (s *Store) UpsertSession(name string, status jobmodel.SessionStatus, pid *int, metadata string) (jobmodel.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := now()
	_, err := s.db.Exec(
		`INSERT INTO sessions (name, status, pid, started_at, last_seen_at, metadata_json)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
			status = excluded.status,
			pid = excluded.pid,
			started_at = COALESCE(sessions.started_at, excluded.started_at),
			last_seen_at = excluded.last_seen_at,
			metadata_json = excluded.metadata_json`,
		name, string(status), nullableInt(pid), ts, ts, nullEmptyString(metadata))
	if err != nil {
		return jobmodel.SessionRecord{}, fmt.Errorf("upsert session: %w", err)
	}
	return s.getSessionLocked(name)
}

// GetSession returns a session record by name, or apierr.NotFound.
func (s *Store) GetSession(name string) (jobmodel.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getSessionLocked(name)
}

func (s *Store) getSessionLocked(name string) (jobmodel.SessionRecord, error) {
	row := s.db.QueryRow(
		`SELECT name, status, pid, started_at, last_seen_at, COALESCE(metadata_json,'')
		 FROM sessions WHERE name = ?`, name)
	return scanSession(row)
}

func scanSession(row rowScanner) (jobmodel.SessionRecord, error) {
	var (
		rec                        jobmodel.SessionRecord
		status                     string
		pid                        sql.NullInt64
		startedAt, lastSeenAt      sql.NullString
	)
	err := row.Scan(&rec.Name, &status, &pid, &startedAt, &lastSeenAt, &rec.Metadata)
	if errors.Is(err, sql.ErrNoRows) {
		return jobmodel.SessionRecord{}, apierr.New(apierr.KindNotFound, "session not found")
	}
	if err != nil {
		return jobmodel.SessionRecord{}, fmt.Errorf("scan session: %w", err)
	}
	rec.Status = jobmodel.SessionStatus(status)
	if pid.Valid {
		v := int(pid.Int64)
		rec.PID = &v
	}
	rec.StartedAt = nullableTime(startedAt)
	rec.LastSeenAt = nullableTime(lastSeenAt)
	return rec, nil
}

// ListSessions returns every known session.
func (s *Store) ListSessions() ([]jobmodel.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(`SELECT name, status, pid, started_at, last_seen_at, COALESCE(metadata_json,'') FROM sessions ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()
	var out []jobmodel.SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// --- Chat pointer -----------------------------------------------------------

// SetActiveSessionForChat records chatID's active session (last-writer-wins).
func (s *Store) SetActiveSessionForChat(chatID int64, sessionName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO chat_state (chat_id, active_session_name, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(chat_id) DO UPDATE SET active_session_name = excluded.active_session_name, updated_at = excluded.updated_at`,
		chatID, nullEmptyString(sessionName), now())
	if err != nil {
		return fmt.Errorf("set chat pointer: %w", err)
	}
	return nil
}

// GetActiveSessionForChat returns chatID's active session name, or "" if unset.
func (s *Store) GetActiveSessionForChat(chatID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var name sql.NullString
	err := s.db.QueryRow(`SELECT active_session_name FROM chat_state WHERE chat_id = ?`, chatID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get chat pointer: %w", err)
	}
	if !name.Valid {
		return "", nil
	}
	return name.String, nil
}

// --- Pending approval tokens -------------------------------------------------

// SavePendingApproval registers a UI-surface token for jobID.
func (s *Store) SavePendingApproval(surface jobmodel.ApprovalSurface, tokenID string, jobID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	switch surface {
	case jobmodel.SurfaceChecklist:
		var chatID, msgID int64
		if _, scanErr := fmt.Sscanf(tokenID, "%d:%d", &chatID, &msgID); scanErr != nil {
			return fmt.Errorf("save pending approval: malformed checklist token %q: %w", tokenID, scanErr)
		}
		_, err = s.db.Exec(`INSERT INTO pending_approval_checklist (chat_id, message_id, job_id) VALUES (?, ?, ?)`, chatID, msgID, jobID)
	case jobmodel.SurfacePoll:
		_, err = s.db.Exec(`INSERT INTO pending_approval_poll (poll_id, job_id) VALUES (?, ?)`, tokenID, jobID)
	default:
		return fmt.Errorf("save pending approval: unknown surface %q", surface)
	}
	if err != nil {
		return fmt.Errorf("save pending approval: %w", err)
	}
	return nil
}

// DeletePendingApproval removes a previously saved token.
func (s *Store) DeletePendingApproval(surface jobmodel.ApprovalSurface, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	switch surface {
	case jobmodel.SurfaceChecklist:
		var chatID, msgID int64
		if _, scanErr := fmt.Sscanf(tokenID, "%d:%d", &chatID, &msgID); scanErr != nil {
			return fmt.Errorf("delete pending approval: malformed checklist token %q: %w", tokenID, scanErr)
		}
		_, err = s.db.Exec(`DELETE FROM pending_approval_checklist WHERE chat_id = ? AND message_id = ?`, chatID, msgID)
	case jobmodel.SurfacePoll:
		_, err = s.db.Exec(`DELETE FROM pending_approval_poll WHERE poll_id = ?`, tokenID)
	default:
		return fmt.Errorf("delete pending approval: unknown surface %q", surface)
	}
	if err != nil {
		return fmt.Errorf("delete pending approval: %w", err)
	}
	return nil
}

// ListPendingApprovals returns every saved token for surface.
func (s *Store) ListPendingApprovals(surface jobmodel.ApprovalSurface) ([]jobmodel.PendingApprovalToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows *sql.Rows
	var err error
	switch surface {
	case jobmodel.SurfaceChecklist:
		rows, err = s.db.Query(`SELECT chat_id, message_id, job_id, created_at FROM pending_approval_checklist`)
	case jobmodel.SurfacePoll:
		rows, err = s.db.Query(`SELECT poll_id, job_id, created_at FROM pending_approval_poll`)
	default:
		return nil, fmt.Errorf("list pending approvals: unknown surface %q", surface)
	}
	if err != nil {
		return nil, fmt.Errorf("list pending approvals: %w", err)
	}
	defer rows.Close()

	var out []jobmodel.PendingApprovalToken
	for rows.Next() {
		var tok jobmodel.PendingApprovalToken
		tok.Surface = surface
		var ts string
		if surface == jobmodel.SurfaceChecklist {
			var chatID, msgID int64
			if err := rows.Scan(&chatID, &msgID, &tok.JobID, &ts); err != nil {
				return nil, err
			}
			tok.TokenID = fmt.Sprintf("%d:%d", chatID, msgID)
		} else {
			if err := rows.Scan(&tok.TokenID, &tok.JobID, &ts); err != nil {
				return nil, err
			}
		}
		tok.CreatedAt = parseTime(ts)
		out = append(out, tok)
	}
	return out, rows.Err()
}

// --- Users --------------------------------------------------------------

// EnsureUser records telegramUserID if not already known.
func (s *Store) EnsureUser(telegramUserID int64, isOwner bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO users (telegram_user_id, is_owner) VALUES (?, ?)
		 ON CONFLICT(telegram_user_id) DO NOTHING`,
		telegramUserID, boolToInt(isOwner))
	if err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	return nil
}

// IsOwner reports whether telegramUserID is flagged as the owner.
func (s *Store) IsOwner(telegramUserID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var isOwner int
	err := s.db.QueryRow(`SELECT is_owner FROM users WHERE telegram_user_id = ?`, telegramUserID).Scan(&isOwner)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("is owner: %w", err)
	}
	return isOwner != 0, nil
}

// --- helpers --------------------------------------------------------------

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullableInt(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}

func nullableInt64(i *int64) any {
	if i == nil {
		return nil
	}
	return *i
}

func nullEmptyString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
