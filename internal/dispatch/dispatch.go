// Package dispatch implements the single asynchronous dispatch loop: it
// pulls runnable jobs from the Store, spawns bounded worker goroutines,
// tracks per-job cancellation, and records lifecycle events.
package dispatch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"orchestrator/internal/artifacts"
	"orchestrator/internal/executor"
	"orchestrator/internal/jobmodel"
	"orchestrator/internal/logx"
	"orchestrator/internal/notifier"
	"orchestrator/internal/profile"
	"orchestrator/internal/sessions"
	"orchestrator/internal/store"
)

var (
	jobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "jobqueue_jobs_total",
		Help: "Jobs reaching a terminal status, by status.",
	}, []string{"status"})
	runningJobs = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "jobqueue_running_jobs",
		Help: "Number of jobs currently running.",
	})
	reservationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "jobqueue_dispatch_reservations_total",
		Help: "Number of successful ReserveNextRunnableJob reservations.",
	})
	executorDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "jobqueue_executor_duration_seconds",
		Help: "Wall-clock duration of Executor.Execute calls.",
	})
)

func init() { //nolint:gochecknoinits // standard prometheus registration idiom
	prometheus.MustRegister(jobsTotal, runningJobs, reservationsTotal, executorDuration)
}

// SessionChecker is the subset of the session registry the dispatcher
// consults before starting a mode=session job.
type SessionChecker interface {
	IsActive(name string) bool
}

// Dispatcher is the single control loop described in the component design.
type Dispatcher struct {
	store          *store.Store
	exec           *executor.Executor
	collector      *artifacts.Collector
	sessionChecker SessionChecker
	profile        *profile.Profile
	notify         notifier.Notifier
	log            *logx.Logger

	maxParallel  int
	pollInterval time.Duration
	templates    executor.Templates
	allowedRoots []string

	mu          sync.Mutex
	running     map[int64]context.CancelFunc
	wg          sync.WaitGroup
	shutdown    chan struct{}
}

// Config bundles the Dispatcher's fixed configuration.
type Config struct {
	MaxParallelJobs int
	PollInterval    time.Duration
	Templates       executor.Templates
	AllowedRoots    []string
}

func New(st *store.Store, exec *executor.Executor, collector *artifacts.Collector, sessionChecker SessionChecker, prof *profile.Profile, notify notifier.Notifier, cfg Config) *Dispatcher {
	return &Dispatcher{
		store:          st,
		exec:           exec,
		collector:      collector,
		sessionChecker: sessionChecker,
		profile:        prof,
		notify:         notify,
		log:            logx.NewLogger("dispatcher"),
		maxParallel:    cfg.MaxParallelJobs,
		pollInterval:   cfg.PollInterval,
		templates:      cfg.Templates,
		allowedRoots:   cfg.AllowedRoots,
		running:        make(map[int64]context.CancelFunc),
		shutdown:       make(chan struct{}),
	}
}

// Start runs the poll loop until ctx is done or Stop is called. It blocks
// the calling goroutine; run it in its own goroutine.
func (d *Dispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			d.wg.Wait()
			return
		case <-d.shutdown:
			d.wg.Wait()
			return
		case <-ticker.C:
			d.fillSlots(ctx)
		}
	}
}

// Stop signals the loop to exit and returns at once; it is Start that waits
// for in-flight workers to finish before returning.
func (d *Dispatcher) Stop() {
	close(d.shutdown)
}

func (d *Dispatcher) fillSlots(ctx context.Context) {
	for {
		d.mu.Lock()
		slotsFree := d.maxParallel - len(d.running)
		d.mu.Unlock()
		if slotsFree <= 0 {
			return
		}

		job, ok, err := d.store.ReserveNextRunnableJob()
		if err != nil {
			d.log.Error("reserve next runnable job: %v", err)
			return
		}
		if !ok {
			return
		}
		reservationsTotal.Inc()
		runningJobs.Inc()

		workerCtx, cancel := context.WithCancel(ctx)
		d.mu.Lock()
		d.running[job.ID] = cancel
		d.mu.Unlock()

		d.wg.Add(1)
		go func(j jobmodel.Job) {
			defer d.wg.Done()
			defer runningJobs.Dec()
			defer func() {
				d.mu.Lock()
				delete(d.running, j.ID)
				d.mu.Unlock()
			}()
			d.runWorker(workerCtx, j)
		}(job)
	}
}

// Cancel requests cancellation of job id's worker, if one is running.
// Returns true if a running worker was signaled.
func (d *Dispatcher) Cancel(id int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	cancel, ok := d.running[id]
	if ok {
		cancel()
	}
	return ok
}

// runWorker implements the worker-task logic from the component design:
// session pre-check, job_started event, Executor invocation, and terminal
// status handling split across cancellation / failure / success.
func (d *Dispatcher) runWorker(ctx context.Context, job jobmodel.Job) {
	if job.Mode == jobmodel.ModeSession && !d.sessionChecker.IsActive(job.SessionName) {
		exitCode := 2
		errText := "Session '" + job.SessionName + "' is inactive"
		_ = d.store.SetJobStatus(job.ID, store.JobStatusUpdate{
			Status: jobmodel.StatusFailed, Error: &errText, ExitCode: &exitCode, Finished: true,
		})
		_ = d.store.AppendEvent(job.ID, jobmodel.EventJobFailed, map[string]string{"error": errText})
		jobsTotal.WithLabelValues(string(jobmodel.StatusFailed)).Inc()
		job.Status = jobmodel.StatusFailed
		d.notify.SendJobStatus(job, "Job failed")
		return
	}

	_ = d.store.AppendEvent(job.ID, jobmodel.EventJobStarted, nil)

	lastMessagePath := filepath.Join(d.exec.RunDir(job.ID), "assistant_last_message.txt")
	plan := executor.BuildPlan(executor.Context{
		JobID:                job.ID,
		Prompt:               job.Prompt,
		SessionName:          job.SessionName,
		Approved:             job.ApprovedBy != nil || !job.NeedsApproval,
		Profile:              d.profile.Snapshot(),
		Templates:            d.templates,
		SkipGitRepoCheck:     true,
		SafeApprovalDefault:  d.profile.EffectiveApprovalPolicy(),
		OutputLastMessagePath: lastMessagePath,
	}, job.Mode == jobmodel.ModeSession)

	workdir := d.profile.Snapshot().WorkdirOverride
	if workdir == "" && len(d.allowedRoots) > 0 {
		workdir = d.allowedRoots[0]
	}

	start := time.Now()
	result, err := d.exec.Execute(ctx, job.ID, job.Prompt, plan, workdir)
	executorDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == executor.ErrCanceled:
		canceledExit := 130
		summary := "Job canceled while running"
		_ = d.store.SetJobStatus(job.ID, store.JobStatusUpdate{
			Status: jobmodel.StatusCanceled, Summary: &summary, ExitCode: &canceledExit, Finished: true,
		})
		_ = d.store.AppendEvent(job.ID, jobmodel.EventJobCanceledWhileRun, nil)
		jobsTotal.WithLabelValues(string(jobmodel.StatusCanceled)).Inc()
		job.Status = jobmodel.StatusCanceled
		d.notify.SendJobStatus(job, "Job canceled")
		return
	case err != nil:
		failExit := 1
		errText := err.Error()
		_ = d.store.SetJobStatus(job.ID, store.JobStatusUpdate{
			Status: jobmodel.StatusFailed, Error: &errText, ExitCode: &failExit, Finished: true,
		})
		_ = d.store.AppendEvent(job.ID, jobmodel.EventJobFailed, map[string]string{"error": errText})
		jobsTotal.WithLabelValues(string(jobmodel.StatusFailed)).Inc()
		job.Status = jobmodel.StatusFailed
		d.notify.SendJobStatus(job, "Job failed")
		return
	}

	collected, _ := d.collector.CollectFromRunDir(job.ID, d.exec.RunDir(job.ID))
	texts := []string{
		result.Summary, result.ErrorText,
		executor.ReadOutputTail(result.StdoutPath), executor.ReadOutputTail(result.StderrPath),
	}
	roots := append(append([]string{}, d.allowedRoots...), d.exec.RunsDir)
	fromText, _ := d.collector.CollectFromOutputTexts(job.ID, texts, result.ExecCWD, roots)
	collected = append(collected, fromText...)

	finalStatus := jobmodel.StatusSucceeded
	eventType := jobmodel.EventJobSucceeded
	if result.ExitCode != 0 {
		finalStatus = jobmodel.StatusFailed
		eventType = jobmodel.EventJobFailed
	}
	exitCode := result.ExitCode
	var errPtr *string
	if result.ErrorText != "" {
		errPtr = &result.ErrorText
	}
	_ = d.store.SetJobStatus(job.ID, store.JobStatusUpdate{
		Status: finalStatus, Summary: &result.Summary, Error: errPtr, ExitCode: &exitCode, Finished: true,
	})
	_ = d.store.AppendEvent(job.ID, eventType, nil)
	jobsTotal.WithLabelValues(string(finalStatus)).Inc()

	job.Status = finalStatus
	heading := "Job succeeded"
	if finalStatus == jobmodel.StatusFailed {
		heading = "Job failed"
	}
	d.notify.SendJobStatus(job, heading)
	if len(collected) > 0 {
		d.notify.SendArtifacts(collected)
	}
}
