// Command jobqueued runs the job orchestration service: it loads
// configuration, opens the store, wires the dispatcher and orchestrator
// façade, and serves a metrics/health endpoint.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/term"

	"orchestrator/internal/artifacts"
	"orchestrator/internal/config"
	"orchestrator/internal/dispatch"
	"orchestrator/internal/executor"
	"orchestrator/internal/logx"
	"orchestrator/internal/notifier"
	"orchestrator/internal/orchestrator"
	"orchestrator/internal/profile"
	"orchestrator/internal/sessions"
	"orchestrator/internal/store"
)

func main() {
	configPath := flag.String("config", "jobqueue.yaml", "path to the job queue YAML config file")
	addr := flag.String("addr", ":8099", "address to serve /metrics and /healthz on")
	flag.Parse()

	log := logx.NewLogger("main")

	if _, err := os.Stat(*configPath); os.IsNotExist(err) && term.IsTerminal(int(os.Stdin.Fd())) {
		if err := runInteractiveBootstrap(*configPath); err != nil {
			log.Error("interactive bootstrap: %v", err)
			os.Exit(1)
		}
	}

	settings, err := config.Load(*configPath)
	if err != nil {
		log.Error("load config: %v", err)
		os.Exit(1)
	}

	db, err := store.Open(settings.DatabasePath)
	if err != nil {
		log.Error("open store: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	st := store.New(db)
	roots, err := settings.AbsRoots()
	if err != nil {
		log.Error("resolve allowed roots: %v", err)
		os.Exit(1)
	}
	if err := st.EnsureUser(settings.OwnerChatID, true); err != nil {
		log.Error("register owner: %v", err)
		os.Exit(1)
	}

	prof := profile.New(roots, settings.SafeDefaultApprovalPolicy)
	sessionRegistry := sessions.New(st, settings.SessionBootCommand, time.Duration(settings.SessionStopTimeoutSeconds)*time.Second)
	collector := artifacts.New(st, artifacts.Settings{
		AllowedExtensions: settings.AllowedExtensionSet(),
		MaxBytes:          settings.MaxArtifactBytes,
	})
	exec, err := executor.New(settings.RunsDir, settings.JobTimeout)
	if err != nil {
		log.Error("construct executor: %v", err)
		os.Exit(1)
	}
	notify := notifier.NewLoggingNotifier()

	dispatcher := dispatch.New(st, exec, collector, sessionRegistry, prof, notify, dispatch.Config{
		MaxParallelJobs: settings.MaxParallelJobs,
		PollInterval:    settings.PollInterval,
		Templates: executor.Templates{
			Ephemeral: settings.EphemeralCommandTemplate,
			Session:   settings.SessionCommandTemplate,
		},
		AllowedRoots: roots,
	})
	orch := orchestrator.New(st, dispatcher, sessionRegistry, prof, notify)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go dispatcher.Start(ctx)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "ok")
	})
	registerIngress(mux, orch, settings.OwnerChatID)
	server := &http.Server{Addr: *addr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server: %v", err)
		}
	}()

	log.Info("job queue running, serving %s", *addr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("shutting down")
	dispatcher.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
}

// runInteractiveBootstrap prompts for the handful of required settings on
// first run and writes a minimal config file, mirroring the base
// repository's raw-terminal first-run setup idiom.
func runInteractiveBootstrap(path string) error {
	fmt.Println("No config file found; running first-time setup.")
	reader := bufio.NewReader(os.Stdin)

	prompt := func(label, def string) string {
		fmt.Printf("%s [%s]: ", label, def)
		line, _ := reader.ReadString('\n')
		line = trimNewline(line)
		if line == "" {
			return def
		}
		return line
	}

	workdir := prompt("Allowed workdir root", "./workspace")
	runsDir := prompt("Runs directory", "./runs")
	dbPath := prompt("Database path", "./jobqueue.db")
	agentCLI := prompt("Agent CLI command", "codex")

	contents := fmt.Sprintf(`database_path: %q
runs_dir: %q
agent_cli: %q
allowed_workdirs: [%q]
`, dbPath, runsDir, agentCLI, workdir)

	return os.WriteFile(path, []byte(contents), 0o644)
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
