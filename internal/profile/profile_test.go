package profile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orchestrator/internal/apierr"
)

func TestSetReasoningEffortRejectsUnknownValue(t *testing.T) {
	p := New([]string{"/tmp"}, "on-request")
	err := p.SetReasoningEffort("ludicrous")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apierr.InvalidProfile))
	assert.Empty(t, p.Snapshot().ReasoningEffort)
}

func TestSetReasoningEffortAcceptsKnownValue(t *testing.T) {
	p := New([]string{"/tmp"}, "on-request")
	require.NoError(t, p.SetReasoningEffort("high"))
	assert.Equal(t, "high", p.Snapshot().ReasoningEffort)
}

func TestEffectiveApprovalPolicyFallsBackToSafeDefault(t *testing.T) {
	p := New([]string{"/tmp"}, "on-request")
	assert.Equal(t, "on-request", p.EffectiveApprovalPolicy())

	require.NoError(t, p.SetApprovalPolicy("never"))
	assert.Equal(t, "never", p.EffectiveApprovalPolicy())
}

func TestSetPersonalityAliasResolvesToCanonical(t *testing.T) {
	p := New([]string{"/tmp"}, "on-request")
	require.NoError(t, p.SetPersonality("warm", ""))
	assert.Equal(t, "friendly", p.Snapshot().Personality)
}

func TestSetPersonalityCustomRequiresInstruction(t *testing.T) {
	p := New([]string{"/tmp"}, "on-request")
	err := p.SetPersonality("custom", "  ")
	require.Error(t, err)
}

func TestSetWorkdirRejectsPathOutsideAllowedRoots(t *testing.T) {
	root, err := filepath.Abs("/tmp/allowed-root")
	require.NoError(t, err)
	p := New([]string{root}, "on-request")
	err = p.SetWorkdir("/etc")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apierr.InvalidProfile))
}

func TestSetWorkdirAcceptsPathInsideAllowedRoot(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "sub", "dir")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	p := New([]string{root}, "on-request")
	require.NoError(t, p.SetWorkdir(sub))
	assert.Equal(t, sub, p.Snapshot().WorkdirOverride)
}

func TestSetWorkdirRejectsNonexistentPath(t *testing.T) {
	root := t.TempDir()
	p := New([]string{root}, "on-request")
	err := p.SetWorkdir(filepath.Join(root, "does-not-exist"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apierr.InvalidProfile))
}

func TestSetWorkdirRejectsRegularFile(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "not-a-dir.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	p := New([]string{root}, "on-request")
	err := p.SetWorkdir(file)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apierr.InvalidProfile))
}

func TestPersonalityInstructionForPresets(t *testing.T) {
	none := Snapshot{Personality: "none"}
	assert.Empty(t, none.PersonalityInstruction())

	custom := Snapshot{Personality: "custom", PersonalityCustom: "be extra careful"}
	assert.Equal(t, "be extra careful", custom.PersonalityInstruction())
}

func TestClearExperimentalEmptiesFeatureSet(t *testing.T) {
	p := New([]string{"/tmp"}, "on-request")
	p.SetExperimental("foo", true)
	p.SetExperimental("bar", true)
	require.Len(t, p.Snapshot().ExperimentalFeatures, 2)

	p.ClearExperimental()
	assert.Empty(t, p.Snapshot().ExperimentalFeatures)
}
