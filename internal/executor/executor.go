package executor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tiktoken-go/tokenizer"

	"orchestrator/internal/apierr"
	"orchestrator/internal/logx"
)

// summaryCapBytes bounds summary/error_text by bytes as a floor; tokenCap
// additionally bounds them by token count so a dense non-ASCII tail doesn't
// blow past a reasonable budget once replayed into a chat message.
const (
	summaryCapBytes = 3200
	tokenCap        = 1024
)

// Result is what Execute returns for one run.
type Result struct {
	ExitCode   int
	StdoutPath string
	StderrPath string
	Summary    string
	ErrorText  string
	ExecCWD    string
	RunID      string
}

// ErrCanceled is returned by Execute when ctx is canceled mid-run, after the
// child process has been killed.
var ErrCanceled = errors.New("execution canceled")

// Executor runs agent-CLI invocations built by BuildPlan.
type Executor struct {
	RunsDir string
	Timeout time.Duration
	log     *logx.Logger
	tokEnc  tokenizer.Codec
}

// New constructs an Executor. runsDir is the root under which per-job run
// directories are created, resolved to an absolute path; timeout is the hard
// wall-clock ceiling.
func New(runsDir string, timeout time.Duration) (*Executor, error) {
	absRunsDir, err := filepath.Abs(runsDir)
	if err != nil {
		return nil, fmt.Errorf("executor: resolve runs dir: %w", err)
	}
	enc, err := tokenizer.ForModel(tokenizer.GPT4)
	if err != nil {
		return nil, fmt.Errorf("executor: load tokenizer: %w", err)
	}
	return &Executor{
		RunsDir: absRunsDir,
		Timeout: timeout,
		log:     logx.NewLogger("executor"),
		tokEnc:  enc,
	}, nil
}

// RunDir returns the absolute per-job directory Execute creates and reads
// assistant_last_message.txt from. Callers building a Plan must inject this
// same path as the --output-last-message target — the agent CLI runs with
// its working directory set to the job's workdir, not this run directory, so
// a bare relative filename would be written and read in different places.
func (e *Executor) RunDir(jobID int64) string {
	return filepath.Join(e.RunsDir, fmt.Sprintf("%d", jobID))
}

// Execute creates the run directory, persists the prompt, spawns the
// command under plan via a shell, captures stdout/stderr to files, enforces
// Timeout, and honors ctx cancellation by killing the child before
// returning ErrCanceled.
func (e *Executor) Execute(ctx context.Context, jobID int64, rawPrompt string, plan Plan, workdir string) (Result, error) {
	runDir := e.RunDir(jobID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("executor: create run dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(runDir, "prompt.txt"), []byte(rawPrompt), 0o644); err != nil {
		return Result{}, fmt.Errorf("executor: write prompt: %w", err)
	}

	stdoutPath := filepath.Join(runDir, "stdout.log")
	stderrPath := filepath.Join(runDir, "stderr.log")
	stdoutFile, err := os.Create(stdoutPath)
	if err != nil {
		return Result{}, fmt.Errorf("executor: open stdout.log: %w", err)
	}
	defer stdoutFile.Close()
	stderrFile, err := os.Create(stderrPath)
	if err != nil {
		return Result{}, fmt.Errorf("executor: open stderr.log: %w", err)
	}
	defer stderrFile.Close()

	runID := uuid.NewString()
	timeoutCtx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	cmd := exec.CommandContext(timeoutCtx, "/bin/sh", "-c", plan.CommandLine)
	cmd.Dir = workdir
	cmd.Env = append(os.Environ(), fmt.Sprintf("JOB_ID=%d", jobID))
	cmd.Stdout = stdoutFile
	cmd.Stderr = stderrFile

	e.log.Debug("job %d: starting run %s: %s", jobID, runID, plan.CommandLine)

	runErr := cmd.Run()

	result := Result{ExecCWD: workdir, StdoutPath: stdoutPath, StderrPath: stderrPath, RunID: runID}

	if ctx.Err() != nil {
		// Caller's context (not just the timeout) was canceled: the
		// Dispatcher requested cancellation of this worker's job.
		return result, ErrCanceled
	}
	if errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
		result.ExitCode = 124
		result.Summary = "Timed out after " + e.Timeout.String()
		return result, nil
	}

	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return result, apierr.New(apierr.KindExecutorFailure, "executor: run: %v", runErr)
		}
	}
	result.ExitCode = exitCode

	lastMsgPath := filepath.Join(runDir, "assistant_last_message.txt")
	if data, readErr := os.ReadFile(lastMsgPath); readErr == nil {
		result.Summary = e.cap(string(data))
	} else {
		result.Summary = e.cap(tailFile(stdoutPath, summaryCapBytes))
	}
	if exitCode != 0 {
		result.ErrorText = e.cap(tailFile(stderrPath, summaryCapBytes))
		if result.ErrorText == "" {
			result.ErrorText = e.cap(tailFile(stdoutPath, summaryCapBytes))
		}
	}
	return result, nil
}

// cap bounds s by both a byte ceiling and a token ceiling, trimming from the
// front so the retained text is the tail (the most recent output).
func (e *Executor) cap(s string) string {
	if len(s) > summaryCapBytes {
		s = s[len(s)-summaryCapBytes:]
	}
	if e.tokEnc == nil {
		return s
	}
	count, err := e.tokEnc.Count(s)
	if err != nil || count <= tokenCap {
		return s
	}
	// Over budget: proportionally trim the byte tail further rather than
	// risk re-encoding/decoding boundaries; this keeps the result a valid
	// suffix of the original text.
	keepFraction := float64(tokenCap) / float64(count)
	keepBytes := int(float64(len(s)) * keepFraction)
	if keepBytes <= 0 || keepBytes >= len(s) {
		return s
	}
	return s[len(s)-keepBytes:]
}

// ReadOutputTail returns up to summaryCapBytes from the end of a captured
// stdout/stderr file, for callers (the dispatcher's artifact text-reference
// pass) that need to scan captured output without duplicating the cap.
func ReadOutputTail(path string) string {
	return tailFile(path, summaryCapBytes)
}

// tailFile reads up to maxBytes from the end of path; missing files yield "".
func tailFile(path string, maxBytes int64) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return ""
	}
	start := int64(0)
	if info.Size() > maxBytes {
		start = info.Size() - maxBytes
	}
	if _, err := f.Seek(start, 0); err != nil {
		return ""
	}
	r := bufio.NewReader(f)
	var b strings.Builder
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			b.Write(buf[:n])
		}
		if err != nil {
			break
		}
	}
	return b.String()
}
