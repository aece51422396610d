// Package risk classifies a prompt's risk level from fixed textual patterns.
// It is a pure function: no I/O, no shared state beyond precompiled regexes.
package risk

import (
	"regexp"
	"strings"

	"orchestrator/internal/jobmodel"
)

// Decision is the outcome of Classify.
type Decision struct {
	Level         jobmodel.RiskLevel
	NeedsApproval bool
	Reason        string
}

// pattern pairs a compiled case-insensitive regex with its original source
// text, so a match reason can report the bare pattern rather than the
// "(?i)"-prefixed form regexp.Regexp.String() would otherwise yield.
type pattern struct {
	re  *regexp.Regexp
	src string
}

var highPatterns = compileAll(
	`\brm\s+-rf\b`,
	`\bmkfs\b`,
	`\bdd\s+if=`,
	`\bshutdown\b`,
	`\breboot\b`,
	`\buserdel\b`,
	`\bchown\s+-R\s+/`,
	`\bchmod\s+777\s+/`,
	`\b:\(\)\{:\|:&\};:\b`,
)

// medium risk patterns, in order. Note \brm\b is bare-word (not flag-aware):
// this follows the original implementation literally rather than spec.md's
// looser "non-flag rm" prose.
var mediumPatterns = compileAll(
	`\bsudo\b`,
	`\brm\b`,
	`\bgit\s+push\b`,
	`\bdocker\s+(run|compose|rm|rmi|exec)\b`,
	`\bsystemctl\b`,
	`\bapt(-get)?\s+`,
	`\byum\s+`,
	`\bpacman\s+`,
	`\bpip\s+install\b`,
	`\bnpm\s+install\b`,
	`\bcargo\s+install\b`,
	`\bkubectl\s+`,
)

func compileAll(patterns ...string) []pattern {
	out := make([]pattern, len(patterns))
	for i, p := range patterns {
		out[i] = pattern{re: regexp.MustCompile(`(?i)` + p), src: p}
	}
	return out
}

// Classify returns the risk decision for prompt. High-risk patterns are
// checked first and dominate; first match wins within each tier.
func Classify(prompt string) Decision {
	normalized := strings.TrimSpace(prompt)
	if normalized == "" {
		return Decision{Level: jobmodel.RiskLow, NeedsApproval: false, Reason: "empty prompt"}
	}

	for _, p := range highPatterns {
		if p.re.MatchString(normalized) {
			return Decision{
				Level:         jobmodel.RiskHigh,
				NeedsApproval: true,
				Reason:        "matches high-risk pattern: " + p.src,
			}
		}
	}
	for _, p := range mediumPatterns {
		if p.re.MatchString(normalized) {
			return Decision{
				Level:         jobmodel.RiskMedium,
				NeedsApproval: true,
				Reason:        "matches medium-risk pattern: " + p.src,
			}
		}
	}
	return Decision{Level: jobmodel.RiskLow, NeedsApproval: false, Reason: "no risky patterns detected"}
}
