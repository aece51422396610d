package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"orchestrator/internal/jobmodel"
)

func TestClassifyEmptyPrompt(t *testing.T) {
	d := Classify("   ")
	assert.Equal(t, jobmodel.RiskLow, d.Level)
	assert.False(t, d.NeedsApproval)
}

func TestClassifyHighRiskDominatesMedium(t *testing.T) {
	// "sudo" is medium, "rm -rf" is high: high must win regardless of order.
	d := Classify("please run sudo rm -rf /tmp/x")
	assert.Equal(t, jobmodel.RiskHigh, d.Level)
	assert.True(t, d.NeedsApproval)
}

func TestClassifyBareRmIsMedium(t *testing.T) {
	d := Classify("rm old_file.txt")
	assert.Equal(t, jobmodel.RiskMedium, d.Level)
	assert.True(t, d.NeedsApproval)
}

func TestClassifyLowRisk(t *testing.T) {
	d := Classify("summarize this file")
	assert.Equal(t, jobmodel.RiskLow, d.Level)
	assert.False(t, d.NeedsApproval)
}

func TestClassifyGitPush(t *testing.T) {
	d := Classify("git push origin main")
	assert.Equal(t, jobmodel.RiskMedium, d.Level)
}
