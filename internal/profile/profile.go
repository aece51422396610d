// Package profile holds the process-wide RuntimeProfile: the mutable
// settings that shape every agent-CLI invocation the Executor builds.
package profile

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"orchestrator/internal/apierr"
)

// Snapshot is an immutable copy of the current profile, safe to hand to
// readers without risk of aliasing the live singleton.
type Snapshot struct {
	Model                string
	ReasoningEffort      string
	SandboxMode          string
	ApprovalPolicy       string
	WebSearch            string
	ExperimentalFeatures []string // sorted
	Personality          string
	PersonalityCustom    string
	WorkdirOverride      string
}

var (
	reasoningEfforts = set("minimal", "low", "medium", "high", "xhigh")
	sandboxModes     = set("read-only", "workspace-write", "danger-full-access")
	approvalPolicies = set("untrusted", "on-failure", "on-request", "never")
	webSearchModes   = set("live", "cached", "disabled")

	// personalityAliases maps legacy client-supplied names onto the
	// canonical preset, matching the original's PERSONALITY_PRESETS alias
	// table so profile values set by an older client keep working.
	personalityAliases = map[string]string{
		"none":     "none",
		"friendly": "friendly",
		"pragmatic": "pragmatic",
		"concise":  "pragmatic",
		"terse":    "pragmatic",
		"warm":     "friendly",
	}
)

func set(vals ...string) map[string]bool {
	m := make(map[string]bool, len(vals))
	for _, v := range vals {
		m[v] = true
	}
	return m
}

// Profile is the process-wide singleton, guarded by mu. Every setter of an
// enumerated field validates its argument against the fixed enumerations
// above and returns apierr.InvalidProfile on a bad value (SetModel and
// SetExperimental accept any value); every reader returns a defensive
// Snapshot copy.
type Profile struct {
	mu sync.RWMutex

	model             string
	reasoningEffort   string
	sandboxMode       string
	approvalPolicy    string
	webSearch         string
	experimental      map[string]bool
	personality       string
	personalityCustom string
	workdirOverride   string

	allowedRoots []string
	safeDefaultApproval string
}

// New constructs a Profile. allowedRoots bounds WorkdirOverride; safeDefaultApproval
// is the approval policy the Executor injects when the field is unset (see
// EffectiveApprovalPolicy).
func New(allowedRoots []string, safeDefaultApproval string) *Profile {
	return &Profile{
		experimental:        make(map[string]bool),
		allowedRoots:        allowedRoots,
		safeDefaultApproval: safeDefaultApproval,
		personality:         "none",
	}
}

func (p *Profile) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	features := make([]string, 0, len(p.experimental))
	for f, on := range p.experimental {
		if on {
			features = append(features, f)
		}
	}
	sort.Strings(features)
	return Snapshot{
		Model:                p.model,
		ReasoningEffort:      p.reasoningEffort,
		SandboxMode:          p.sandboxMode,
		ApprovalPolicy:       p.approvalPolicy,
		WebSearch:            p.webSearch,
		ExperimentalFeatures: features,
		Personality:          p.personality,
		PersonalityCustom:    p.personalityCustom,
		WorkdirOverride:      p.workdirOverride,
	}
}

// EffectiveApprovalPolicy returns the configured policy, falling back to the
// safe default ONLY when the field is unset — an explicit "never" or
// "on-failure" is never overridden.
func (p *Profile) EffectiveApprovalPolicy() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.approvalPolicy == "" {
		return p.safeDefaultApproval
	}
	return p.approvalPolicy
}

func invalid(field, value string, allowed map[string]bool) error {
	names := make([]string, 0, len(allowed))
	for k := range allowed {
		names = append(names, k)
	}
	sort.Strings(names)
	return apierr.New(apierr.KindInvalidProfile, "invalid %s %q, allowed values: %s", field, value, strings.Join(names, ", "))
}

func (p *Profile) SetModel(model string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.model = model
}

func (p *Profile) SetReasoningEffort(v string) error {
	if v != "" && !reasoningEfforts[v] {
		return invalid("reasoning_effort", v, reasoningEfforts)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reasoningEffort = v
	return nil
}

func (p *Profile) SetSandboxMode(v string) error {
	if v != "" && !sandboxModes[v] {
		return invalid("sandbox_mode", v, sandboxModes)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sandboxMode = v
	return nil
}

func (p *Profile) SetApprovalPolicy(v string) error {
	if v != "" && !approvalPolicies[v] {
		return invalid("approval_policy", v, approvalPolicies)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.approvalPolicy = v
	return nil
}

func (p *Profile) SetWebSearch(v string) error {
	if v != "" && !webSearchModes[v] {
		return invalid("web_search", v, webSearchModes)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.webSearch = v
	return nil
}

func (p *Profile) SetExperimental(feature string, on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if on {
		p.experimental[feature] = true
	} else {
		delete(p.experimental, feature)
	}
}

func (p *Profile) ClearExperimental() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.experimental = make(map[string]bool)
}

// SetPersonality accepts either a canonical preset name or a recognized
// legacy alias; "custom" additionally requires instruction text.
func (p *Profile) SetPersonality(name, customInstruction string) error {
	canonical, ok := personalityAliases[strings.ToLower(name)]
	if !ok {
		if strings.ToLower(name) == "custom" {
			canonical = "custom"
		} else {
			return apierr.New(apierr.KindInvalidProfile, "invalid personality %q", name)
		}
	}
	if canonical == "custom" && strings.TrimSpace(customInstruction) == "" {
		return apierr.New(apierr.KindInvalidProfile, "custom personality requires instruction text")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.personality = canonical
	p.personalityCustom = customInstruction
	return nil
}

// SetWorkdir validates path exists, is a directory, and resolves inside one
// of the configured allowed roots before accepting it as an override.
func (p *Profile) SetWorkdir(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return apierr.New(apierr.KindInvalidProfile, "invalid workdir %q: %v", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return apierr.New(apierr.KindInvalidProfile, "workdir %q does not exist", path)
	}
	if !info.IsDir() {
		return apierr.New(apierr.KindInvalidProfile, "workdir %q is not a directory", path)
	}
	p.mu.RLock()
	roots := p.allowedRoots
	p.mu.RUnlock()
	ok := false
	for _, root := range roots {
		if isWithin(root, abs) {
			ok = true
			break
		}
	}
	if !ok {
		return apierr.New(apierr.KindInvalidProfile, "workdir %q is outside the allowed roots", path)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.workdirOverride = abs
	return nil
}

func isWithin(root, candidate string) bool {
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel))
}

// PersonalityInstruction renders the prepend text for the current
// personality, or "" for "none".
func (s Snapshot) PersonalityInstruction() string {
	switch s.Personality {
	case "", "none":
		return ""
	case "friendly":
		return "Respond warmly and encourage the user along the way."
	case "pragmatic":
		return "Be terse and get straight to the point."
	case "custom":
		return s.PersonalityCustom
	default:
		return ""
	}
}
