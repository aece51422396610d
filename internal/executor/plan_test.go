package executor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"orchestrator/internal/profile"
)

func TestBuildPlanEphemeralQuotesPrompt(t *testing.T) {
	ctx := Context{
		Prompt:    "list files",
		Templates: DefaultTemplates,
	}
	plan := BuildPlan(ctx, false)
	assert.Contains(t, plan.CommandLine, "'list files'")
	assert.True(t, strings.HasPrefix(plan.CommandLine, "codex exec "))
}

func TestBuildPlanSessionUsesSessionTemplate(t *testing.T) {
	ctx := Context{
		Prompt:      "continue",
		SessionName: "work-session",
		Templates:   DefaultTemplates,
	}
	plan := BuildPlan(ctx, true)
	assert.Contains(t, plan.CommandLine, "--session")
	assert.Contains(t, plan.CommandLine, "'work-session'")
}

func TestBuildPlanInjectsSkipGitRepoCheckOnce(t *testing.T) {
	ctx := Context{
		Prompt:           "do it",
		Templates:        DefaultTemplates,
		SkipGitRepoCheck: true,
	}
	plan := BuildPlan(ctx, false)
	assert.Equal(t, 1, strings.Count(plan.CommandLine, gitCheckFlag))
}

func TestBuildPlanInjectsRuntimeFlagsInStableOrder(t *testing.T) {
	ctx := Context{
		Prompt:    "do it",
		Templates: DefaultTemplates,
		Profile: profile.Snapshot{
			Model:                "o3",
			ReasoningEffort:      "high",
			SandboxMode:          "read-only",
			ExperimentalFeatures: []string{"zeta", "alpha"},
		},
	}
	plan := BuildPlan(ctx, false)
	modelIdx := strings.Index(plan.CommandLine, "-m 'o3'")
	effortIdx := strings.Index(plan.CommandLine, "model_reasoning_effort=high")
	sandboxIdx := strings.Index(plan.CommandLine, "-s 'read-only'")
	alphaIdx := strings.Index(plan.CommandLine, "--enable 'alpha'")
	zetaIdx := strings.Index(plan.CommandLine, "--enable 'zeta'")

	assert.True(t, modelIdx >= 0 && modelIdx < effortIdx)
	assert.True(t, effortIdx < sandboxIdx)
	assert.True(t, alphaIdx >= 0 && zetaIdx >= 0 && alphaIdx < zetaIdx)
}

func TestBuildPlanApprovalPolicyFallsBackToSafeDefault(t *testing.T) {
	ctx := Context{
		Prompt:              "do it",
		Templates:           DefaultTemplates,
		SafeApprovalDefault: "on-request",
	}
	plan := BuildPlan(ctx, false)
	assert.Contains(t, plan.CommandLine, "approval_policy=on-request")
}

func TestBuildPlanPrependsPersonalityInstruction(t *testing.T) {
	ctx := Context{
		Prompt:    "ship it",
		Templates: DefaultTemplates,
		Profile:   profile.Snapshot{Personality: "pragmatic"},
	}
	plan := BuildPlan(ctx, false)
	assert.Contains(t, plan.CommandLine, "Be terse and get straight to the point.")
}

func TestBuildPlanOutputLastMessageNotDuplicatedWhenAlreadyPresent(t *testing.T) {
	ctx := Context{
		Prompt:                "do it",
		Templates:             Templates{Ephemeral: "codex exec --output-last-message /tmp/x {prompt}"},
		OutputLastMessagePath: "/tmp/other",
	}
	plan := BuildPlan(ctx, false)
	assert.Equal(t, 1, strings.Count(plan.CommandLine, "--output-last-message"))
}

func TestHasFlagIgnoresFlagTextInsideQuotedPrompt(t *testing.T) {
	cmd := `codex exec 'please do not use --skip-git-repo-check here'`
	assert.False(t, hasFlag(cmd, "--skip-git-repo-check"))
}
