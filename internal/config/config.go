// Package config loads and validates the job queue's settings from a YAML
// file with environment-variable overrides, mirroring the original's
// typed-getter/validate-first approach.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/nacl/secretbox"
	"gopkg.in/yaml.v3"
)

// Settings is the fully validated configuration for one job queue process.
type Settings struct {
	OwnerChatID int64  `yaml:"owner_chat_id"`
	AgentCLI    string `yaml:"agent_cli"`

	DatabasePath string `yaml:"database_path"`
	RunsDir      string `yaml:"runs_dir"`

	AllowedWorkdirs []string `yaml:"allowed_workdirs"`
	AllowedArtifactExtensions []string `yaml:"allowed_artifact_extensions"`
	MaxArtifactBytes int64   `yaml:"max_artifact_bytes"`

	MaxParallelJobs int           `yaml:"max_parallel_jobs"`
	JobTimeout      time.Duration `yaml:"-"`
	JobTimeoutSeconds int         `yaml:"job_timeout_seconds"`
	PollInterval    time.Duration `yaml:"-"`
	PollIntervalMillis int       `yaml:"poll_interval_millis"`

	SafeDefaultApprovalPolicy string `yaml:"safe_default_approval_policy"`
	SessionBootCommand        string `yaml:"session_boot_command"`
	SessionStopTimeoutSeconds int    `yaml:"session_stop_timeout_seconds"`

	EphemeralCommandTemplate string `yaml:"ephemeral_command_template"`
	SessionCommandTemplate   string `yaml:"session_command_template"`

	// EncryptedAPIKey, if set, is decrypted with the local key file rather
	// than read as plaintext, matching the original's NaCl secretbox idiom
	// for secrets stored in a config file instead of the environment.
	EncryptedAPIKey string `yaml:"encrypted_api_key"`
	SecretKeyFile   string `yaml:"secret_key_file"`
}

const (
	defaultMaxParallelJobs   = 1
	defaultJobTimeoutSeconds = 3600
	defaultPollIntervalMS    = 500
	defaultMaxArtifactBytes  = 50_000_000
	defaultSessionStopTimeoutSeconds = 10
)

var defaultAllowedExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".mp4", ".webm", ".log", ".txt", ".json", ".pdf"}

// Load reads path (a YAML file) and applies environment-variable overrides
// with the setdefault semantics the original's .env loader uses: real
// environment variables always win over the file.
func Load(path string) (Settings, error) {
	s := Settings{
		MaxParallelJobs:           defaultMaxParallelJobs,
		JobTimeoutSeconds:         defaultJobTimeoutSeconds,
		PollIntervalMillis:        defaultPollIntervalMS,
		MaxArtifactBytes:          defaultMaxArtifactBytes,
		AllowedArtifactExtensions: defaultAllowedExtensions,
		SafeDefaultApprovalPolicy: "on-request",
		SessionStopTimeoutSeconds: defaultSessionStopTimeoutSeconds,
		EphemeralCommandTemplate:  "codex exec {prompt}",
		SessionCommandTemplate:    "codex exec --session {session_name} {prompt}",
	}

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &s); err != nil {
			return Settings{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return Settings{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	applyEnvOverrides(&s)

	if err := s.validate(); err != nil {
		return Settings{}, err
	}

	s.JobTimeout = time.Duration(s.JobTimeoutSeconds) * time.Second
	s.PollInterval = time.Duration(s.PollIntervalMillis) * time.Millisecond

	for _, dir := range append(append([]string{}, s.AllowedWorkdirs...), s.RunsDir) {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Settings{}, fmt.Errorf("config: create directory %s: %w", dir, err)
		}
	}

	return s, nil
}

func applyEnvOverrides(s *Settings) {
	if v := os.Getenv("JOBQ_OWNER_CHAT_ID"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			s.OwnerChatID = n
		}
	}
	if v := os.Getenv("JOBQ_AGENT_CLI"); v != "" {
		s.AgentCLI = v
	}
	if v := os.Getenv("JOBQ_DATABASE_PATH"); v != "" {
		s.DatabasePath = v
	}
	if v := os.Getenv("JOBQ_RUNS_DIR"); v != "" {
		s.RunsDir = v
	}
	if v := os.Getenv("JOBQ_MAX_PARALLEL_JOBS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.MaxParallelJobs = n
		}
	}
	if v := os.Getenv("JOBQ_JOB_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.JobTimeoutSeconds = n
		}
	}
}

func (s Settings) validate() error {
	if s.DatabasePath == "" {
		return fmt.Errorf("config: database_path is required")
	}
	if s.RunsDir == "" {
		return fmt.Errorf("config: runs_dir is required")
	}
	if len(s.AllowedWorkdirs) == 0 {
		return fmt.Errorf("config: allowed_workdirs must list at least one directory")
	}
	switch s.SafeDefaultApprovalPolicy {
	case "untrusted", "on-failure", "on-request", "never":
	default:
		return fmt.Errorf("config: invalid safe_default_approval_policy %q", s.SafeDefaultApprovalPolicy)
	}
	if s.MaxParallelJobs < 1 {
		return fmt.Errorf("config: max_parallel_jobs must be >= 1")
	}
	return nil
}

// AllowedExtensionSet returns the configured extensions as a lookup set,
// normalized to lowercase with a leading dot.
func (s Settings) AllowedExtensionSet() map[string]bool {
	out := make(map[string]bool, len(s.AllowedArtifactExtensions))
	for _, ext := range s.AllowedArtifactExtensions {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out[ext] = true
	}
	return out
}

// DecryptAPIKey decrypts EncryptedAPIKey using the 24-byte nonce-prefixed
// NaCl secretbox format and the 32-byte key stored at SecretKeyFile.
func (s Settings) DecryptAPIKey() (string, error) {
	if s.EncryptedAPIKey == "" {
		return "", nil
	}
	keyData, err := os.ReadFile(s.SecretKeyFile)
	if err != nil {
		return "", fmt.Errorf("config: read secret key file: %w", err)
	}
	if len(keyData) < 32 {
		return "", fmt.Errorf("config: secret key file must contain at least 32 bytes")
	}
	var key [32]byte
	copy(key[:], keyData[:32])

	raw := []byte(s.EncryptedAPIKey)
	if len(raw) < 24 {
		return "", fmt.Errorf("config: encrypted_api_key too short")
	}
	var nonce [24]byte
	copy(nonce[:], raw[:24])

	decrypted, ok := secretbox.Open(nil, raw[24:], &nonce, &key)
	if !ok {
		return "", fmt.Errorf("config: decrypt encrypted_api_key: authentication failed")
	}
	return string(decrypted), nil
}

// AbsRoots resolves AllowedWorkdirs and RunsDir to absolute paths.
func (s Settings) AbsRoots() ([]string, error) {
	roots := append(append([]string{}, s.AllowedWorkdirs...), s.RunsDir)
	out := make([]string, 0, len(roots))
	for _, r := range roots {
		abs, err := filepath.Abs(r)
		if err != nil {
			return nil, err
		}
		out = append(out, abs)
	}
	return out, nil
}
