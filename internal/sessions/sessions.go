// Package sessions manages named long-lived agent-CLI sessions: an
// active/inactive lifecycle, optionally backed by a detached boot process.
package sessions

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"orchestrator/internal/jobmodel"
	"orchestrator/internal/logx"
)

// SessionStore is the subset of Store session persistence needs.
type SessionStore interface {
	UpsertSession(name string, status jobmodel.SessionStatus, pid *int, metadata string) (jobmodel.SessionRecord, error)
	GetSession(name string) (jobmodel.SessionRecord, error)
	ListSessions() ([]jobmodel.SessionRecord, error)
}

// Registry tracks live boot-command child processes by session name so
// Stop can terminate them directly, falling back to an OS-level signal by
// recorded pid when this process isn't the one that spawned it (e.g. after
// a restart).
type Registry struct {
	mu        sync.Mutex
	processes map[string]*os.Process

	store             SessionStore
	bootCommand       string // run verbatim by /bin/sh with SESSION_NAME and BOOT_ID set; empty disables spawning
	stopTimeout       time.Duration
	log               *logx.Logger
}

func New(store SessionStore, bootCommand string, stopTimeout time.Duration) *Registry {
	if stopTimeout <= 0 {
		stopTimeout = 10 * time.Second
	}
	return &Registry{
		processes:   make(map[string]*os.Process),
		store:       store,
		bootCommand: bootCommand,
		stopTimeout: stopTimeout,
		log:         logx.NewLogger("sessions"),
	}
}

// Create activates name. If it is already active, it returns the existing
// record with created=false. Otherwise, if a boot command template is
// configured, it is spawned detached (its own process group) and its pid
// recorded; the record is upserted to active either way.
func (r *Registry) Create(name string) (jobmodel.SessionRecord, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.store.GetSession(name)
	if err == nil && existing.Status == jobmodel.SessionActive {
		return existing, false, nil
	}

	var pid *int
	bootID := uuid.NewString()
	if r.bootCommand != "" {
		cmd := exec.Command("/bin/sh", "-c", r.bootCommand)
		cmd.Env = append(os.Environ(), "SESSION_NAME="+name, "BOOT_ID="+bootID)
		cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
		if startErr := cmd.Start(); startErr != nil {
			return jobmodel.SessionRecord{}, false, fmt.Errorf("sessions: spawn boot command for %q: %w", name, startErr)
		}
		p := cmd.Process.Pid
		pid = &p
		r.processes[name] = cmd.Process
	}

	metadata := fmt.Sprintf(`{"boot_id":%q}`, bootID)
	rec, err := r.store.UpsertSession(name, jobmodel.SessionActive, pid, metadata)
	if err != nil {
		return jobmodel.SessionRecord{}, false, err
	}
	r.log.Info("session %q activated (pid=%v)", name, pid)
	return rec, true, nil
}

// Stop terminates name's process (if tracked, waiting up to stopTimeout
// before killing; otherwise by recorded pid, ignoring "process missing")
// and transitions the record to inactive.
func (r *Registry) Stop(name string) (jobmodel.SessionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if proc, ok := r.processes[name]; ok {
		r.terminateTracked(proc)
		delete(r.processes, name)
	} else if rec, err := r.store.GetSession(name); err == nil && rec.PID != nil {
		if p, findErr := os.FindProcess(*rec.PID); findErr == nil {
			_ = p.Signal(syscall.SIGTERM) // ignore ESRCH-equivalent: process already gone
		}
	}

	return r.store.UpsertSession(name, jobmodel.SessionInactive, nil, "")
}

func (r *Registry) terminateTracked(proc *os.Process) {
	done := make(chan struct{})
	go func() {
		_, _ = proc.Wait()
		close(done)
	}()

	_ = proc.Signal(syscall.SIGTERM)
	select {
	case <-done:
	case <-time.After(r.stopTimeout):
		_ = proc.Kill()
		<-done
	}
}

// IsActive reports whether name is currently active.
func (r *Registry) IsActive(name string) bool {
	rec, err := r.store.GetSession(name)
	if err != nil {
		return false
	}
	return rec.Status == jobmodel.SessionActive
}

// List returns every known session.
func (r *Registry) List() ([]jobmodel.SessionRecord, error) {
	return r.store.ListSessions()
}
