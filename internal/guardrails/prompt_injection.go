package guardrails

import "strings"

type injectionPattern struct {
	pattern string
	weight  float64
	flag    string
}

// Known injection phrasings, matched case-insensitively.
var injectionPatterns = []injectionPattern{
	{"ignore previous instructions", 0.9, "override_attempt"},
	{"ignore all previous", 0.9, "override_attempt"},
	{"disregard your instructions", 0.9, "override_attempt"},
	{"forget your instructions", 0.85, "override_attempt"},
	{"you are now", 0.7, "role_hijack"},
	{"pretend you are", 0.7, "role_hijack"},
	{"act as if you", 0.6, "role_hijack"},
	{"system prompt:", 0.8, "system_leak"},
	{"reveal your system", 0.8, "system_leak"},
	{"show me your prompt", 0.8, "system_leak"},
	{"what are your instructions", 0.7, "system_leak"},
	{"jailbreak", 0.9, "jailbreak"},
	{"do anything now", 0.85, "jailbreak"},
	{"</system>", 0.8, "tag_injection"},
	{"<system>", 0.8, "tag_injection"},
	{"[system]", 0.7, "tag_injection"},
	{"```system", 0.7, "format_injection"},
}

// InjectionGuard blocks text that tries to override the assistant's framing.
// Inputs scoring at or above the threshold are refused; weaker matches are
// only flagged.
type InjectionGuard struct {
	threshold float64
}

func NewInjectionGuard(threshold float64) *InjectionGuard {
	return &InjectionGuard{threshold: threshold}
}

func (g *InjectionGuard) Name() string { return "prompt_injection" }

func (g *InjectionGuard) Check(text string) Result {
	score, flags := injectionScore(text)
	if score >= g.threshold {
		return Result{Reason: "potential prompt injection detected", Flags: flags}
	}
	return Result{Allowed: true, Flags: flags}
}

func injectionScore(text string) (float64, []string) {
	lower := strings.ToLower(text)
	var flags []string
	score := 0.0
	for _, p := range injectionPatterns {
		if strings.Contains(lower, p.pattern) {
			score = max(score, p.weight)
			flags = append(flags, p.flag)
		}
	}
	return score, flags
}
