// Package executor builds and runs agent-CLI invocations from a Job and the
// current RuntimeProfile, capturing output to files and enforcing timeout
// and cancellation.
package executor

import (
	"sort"
	"strings"

	"orchestrator/internal/profile"
)

// Templates holds the two command templates the Plan builder selects
// between. Each contains the literal marker "codex exec " the injection
// helpers key off of, matching the original's default
// `"codex exec {prompt_quoted}"` ephemeral template.
type Templates struct {
	Ephemeral string // uses {prompt}
	Session   string // uses {prompt}, {session_name}
}

// DefaultTemplates mirrors the original's configured defaults.
var DefaultTemplates = Templates{
	Ephemeral: `codex exec {prompt}`,
	Session:   `codex exec --session {session_name} {prompt}`,
}

// Context is the input to BuildPlan.
type Context struct {
	JobID            int64
	Prompt           string
	SessionName      string
	Approved         bool
	Profile          profile.Snapshot
	Templates        Templates
	SkipGitRepoCheck bool
	SafeApprovalDefault string
	OutputLastMessagePath string
}

// Plan is a concrete, ready-to-run agent-CLI invocation.
type Plan struct {
	CommandLine string
}

const gitCheckFlag = "--skip-git-repo-check"

// BuildPlan renders the template for ctx and idempotently injects the four
// pieces of generated argv the spec requires: the skip-git-repo-check flag,
// runtime-profile flags in stable order, the output-last-message flag, and
// the personality instruction prepended to the prompt.
func BuildPlan(ctx Context, isSession bool) Plan {
	prompt := ctx.Prompt
	if instr := ctx.Profile.PersonalityInstruction(); instr != "" {
		prompt = instr + "\n\n" + prompt
	}

	tmpl := ctx.Templates.Ephemeral
	if isSession {
		tmpl = ctx.Templates.Session
	}

	rendered := strings.NewReplacer(
		"{prompt}", shellQuote(prompt),
		"{session_name}", shellQuote(ctx.SessionName),
	).Replace(tmpl)

	rendered = injectRuntimeFlags(rendered, ctx)
	rendered = ensureSkipGitRepoCheck(rendered, ctx.SkipGitRepoCheck)
	rendered = injectOutputLastMessage(rendered, ctx.OutputLastMessagePath)

	return Plan{CommandLine: rendered}
}

// runtimeCLIFlags renders the profile's settings as CLI flags in a stable
// order: model, reasoning effort, sandbox mode, approval policy (falling
// back to the safe default only when unset), web search, then one --enable
// flag per enabled experimental feature in sorted order.
func runtimeCLIFlags(ctx Context) []string {
	var flags []string
	p := ctx.Profile
	if p.Model != "" {
		flags = append(flags, "-m", shellQuote(p.Model))
	}
	if p.ReasoningEffort != "" {
		flags = append(flags, "-c", shellQuote("model_reasoning_effort="+p.ReasoningEffort))
	}
	if p.SandboxMode != "" {
		flags = append(flags, "-s", shellQuote(p.SandboxMode))
	}
	approval := p.ApprovalPolicy
	if approval == "" {
		approval = ctx.SafeApprovalDefault
	}
	if approval != "" {
		flags = append(flags, "-c", shellQuote("approval_policy="+approval))
	}
	if p.WebSearch != "" {
		flags = append(flags, "-c", shellQuote("web_search="+p.WebSearch))
	}
	features := append([]string(nil), p.ExperimentalFeatures...)
	sort.Strings(features)
	for _, f := range features {
		flags = append(flags, "--enable", shellQuote(f))
	}
	return flags
}

// injectRuntimeFlags inserts the stable-order runtime flags right after the
// "codex exec " marker, before the positional prompt, matching the
// original's marker-based injection.
func injectRuntimeFlags(cmd string, ctx Context) string {
	flags := runtimeCLIFlags(ctx)
	if len(flags) == 0 {
		return cmd
	}
	return insertAfterMarker(cmd, "codex exec ", strings.Join(flags, " ")+" ")
}

// ensureSkipGitRepoCheck idempotently ensures the flag is present exactly
// once when enabled is true.
func ensureSkipGitRepoCheck(cmd string, enabled bool) string {
	if !enabled || hasFlag(cmd, gitCheckFlag) {
		return cmd
	}
	return insertAfterMarker(cmd, "codex exec ", gitCheckFlag+" ")
}

// injectOutputLastMessage idempotently inserts the output-last-message flag
// right after the "codex exec " marker unless the template already specifies
// one, tolerating a pre-existing flag that appears after positional
// arguments.
func injectOutputLastMessage(cmd, path string) string {
	if path == "" || hasFlag(cmd, "--output-last-message") {
		return cmd
	}
	return insertAfterMarker(cmd, "codex exec ", "--output-last-message "+shellQuote(path)+" ")
}

// hasFlag does a shell-metacharacter-boundary-aware search for flag as a
// whole token, so it is not fooled by the flag text appearing inside a
// quoted prompt.
func hasFlag(cmd, flag string) bool {
	for _, tok := range tokenize(cmd) {
		if tok == flag {
			return true
		}
	}
	return false
}

// insertAfterMarker inserts insertion immediately after the first
// occurrence of marker in cmd.
func insertAfterMarker(cmd, marker, insertion string) string {
	idx := strings.Index(cmd, marker)
	if idx < 0 {
		return insertion + cmd
	}
	at := idx + len(marker)
	return cmd[:at] + insertion + cmd[at:]
}

// shellQuote renders s as a single POSIX shell-safe single-quoted token.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// tokenize is a minimal shell-metacharacter-boundary tokenizer: it splits
// on unquoted whitespace, treating single- and double-quoted spans as
// single tokens, without fully interpreting escapes — sufficient for flag
// presence checks, which is all it is used for.
func tokenize(s string) []string {
	var tokens []string
	var cur strings.Builder
	inSingle, inDouble := false, false
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case r == '\'' && !inDouble:
			inSingle = !inSingle
			cur.WriteRune(r)
		case r == '"' && !inSingle:
			inDouble = !inDouble
			cur.WriteRune(r)
		case r == ' ' && !inSingle && !inDouble:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}
