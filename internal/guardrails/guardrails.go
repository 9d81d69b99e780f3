// Package guardrails screens free text typed by clinic staff before it is
// folded into a prompt.
package guardrails

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Result holds the outcome of a screen.
type Result struct {
	Allowed bool     `json:"allowed"`
	Flags   []string `json:"flags,omitempty"`
	Reason  string   `json:"reason,omitempty"`
}

// Guard is a single check applied to input text.
type Guard interface {
	Check(text string) Result
	Name() string
}

// Pipeline runs guards in order and blocks on the first refusal.
type Pipeline struct {
	guards []Guard
}

func NewPipeline(guards ...Guard) *Pipeline {
	return &Pipeline{guards: guards}
}

// DefaultInput screens assistant questions.
func DefaultInput() *Pipeline {
	return NewPipeline(
		NewLengthGuard(4000),
		NewInjectionGuard(0.7),
	)
}

func (p *Pipeline) Check(text string) Result {
	combined := Result{Allowed: true}
	for _, g := range p.guards {
		r := g.Check(text)
		combined.Flags = append(combined.Flags, r.Flags...)
		if !r.Allowed {
			combined.Allowed = false
			combined.Reason = fmt.Sprintf("blocked by %s: %s", g.Name(), r.Reason)
			return combined
		}
	}
	return combined
}

// LengthGuard rejects inputs longer than a number of characters.
type LengthGuard struct {
	maxChars int
}

func NewLengthGuard(maxChars int) *LengthGuard {
	return &LengthGuard{maxChars: maxChars}
}

func (g *LengthGuard) Name() string { return "input_length" }

func (g *LengthGuard) Check(text string) Result {
	if n := utf8.RuneCountInString(strings.TrimSpace(text)); n > g.maxChars {
		return Result{
			Reason: fmt.Sprintf("input exceeds %d characters", g.maxChars),
			Flags:  []string{"input_too_long"},
		}
	}
	return Result{Allowed: true}
}
