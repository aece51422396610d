package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jobqueue.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadAppliesDefaultsForUnsetFields(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
database_path: `+filepath.Join(dir, "jobqueue.db")+`
runs_dir: `+filepath.Join(dir, "runs")+`
allowed_workdirs: ["`+filepath.Join(dir, "workspace")+`"]
`)
	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, defaultMaxParallelJobs, s.MaxParallelJobs)
	assert.Equal(t, "on-request", s.SafeDefaultApprovalPolicy)
	assert.Contains(t, s.AllowedExtensionSet(), ".png")
}

func TestLoadRejectsMissingAllowedWorkdirs(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
database_path: `+filepath.Join(dir, "jobqueue.db")+`
runs_dir: `+filepath.Join(dir, "runs")+`
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsInvalidApprovalPolicy(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
database_path: `+filepath.Join(dir, "jobqueue.db")+`
runs_dir: `+filepath.Join(dir, "runs")+`
allowed_workdirs: ["`+filepath.Join(dir, "workspace")+`"]
safe_default_approval_policy: not-a-real-policy
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestEnvOverrideWinsOverFileValue(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
database_path: `+filepath.Join(dir, "jobqueue.db")+`
runs_dir: `+filepath.Join(dir, "runs")+`
allowed_workdirs: ["`+filepath.Join(dir, "workspace")+`"]
agent_cli: codex
`)
	t.Setenv("JOBQ_AGENT_CLI", "claude")
	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "claude", s.AgentCLI)
}

func TestAllowedExtensionSetNormalizesCaseAndLeadingDot(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
database_path: `+filepath.Join(dir, "jobqueue.db")+`
runs_dir: `+filepath.Join(dir, "runs")+`
allowed_workdirs: ["`+filepath.Join(dir, "workspace")+`"]
allowed_artifact_extensions: ["PNG", "log"]
`)
	s, err := Load(path)
	require.NoError(t, err)
	set := s.AllowedExtensionSet()
	assert.True(t, set[".png"])
	assert.True(t, set[".log"])
}

func TestDecryptAPIKeyReturnsEmptyWhenUnset(t *testing.T) {
	s := Settings{}
	key, err := s.DecryptAPIKey()
	require.NoError(t, err)
	assert.Empty(t, key)
}
