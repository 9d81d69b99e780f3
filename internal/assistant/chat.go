// Package assistant is the clinic owner's chat helper. Each question is one
// completion request; answers accumulate in a transcript that clears itself
// after a period of inactivity.
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nikhilbhutani/clinicfeedback/internal/completion"
	"github.com/nikhilbhutani/clinicfeedback/internal/config"
	"github.com/nikhilbhutani/clinicfeedback/internal/guardrails"
	"github.com/nikhilbhutani/clinicfeedback/internal/memory"
	"github.com/nikhilbhutani/clinicfeedback/internal/prompt"
)

const SlotName = "assistant"

// Apology is recorded in the transcript when a question could not be answered.
const Apology = "I apologize, but I encountered an error while processing your request. Please try again."

const maxEntries = 200

// ClinicNamer reports the clinic's current name; it is read on every question.
type ClinicNamer interface {
	Name() string
}

type Chat struct {
	clinic        ClinicNamer
	historyTokens int
	slot          *completion.Slot[prompt.AssistantInput]
	transcript    *memory.Transcript
	guard         *guardrails.Pipeline

	mu sync.Mutex
}

func NewChat(c completion.Completer, cfg config.CompletionConfig, clinic ClinicNamer) *Chat {
	return &Chat{
		clinic:        clinic,
		historyTokens: cfg.AssistantHistory,
		slot:          completion.NewSlot(SlotName, prompt.Assistant, c, cfg.Timeout),
		transcript:    memory.NewTranscript(maxEntries, cfg.AssistantIdleTimeout),
		guard:         guardrails.DefaultInput(),
	}
}

// Send asks question. The user entry is recorded only once the request is
// pending; rejected questions leave the transcript untouched.
func (c *Chat) Send(question string) (completion.Handle, error) {
	if r := c.guard.Check(question); !r.Allowed {
		slog.Warn("assistant question blocked", "flags", r.Flags)
		return "", fmt.Errorf("%w: %s", completion.ErrInvalidInput, r.Reason)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	h, err := c.slot.Submit(prompt.AssistantInput{
		Clinic:   c.clinic.Name(),
		Question: question,
		History:  c.transcript.Window(c.historyTokens),
	})
	if err != nil {
		return "", err
	}

	c.transcript.Add(memory.Entry{Role: memory.RoleUser, Content: question})
	if err := c.slot.OnCompletion(h, c.record); err != nil {
		return "", err
	}
	return h, nil
}

// Retry re-asks the last question.
func (c *Chat) Retry() (completion.Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	h, err := c.slot.Retry(c.slot.Snapshot().RequestID)
	if err != nil {
		return "", err
	}
	if err := c.slot.OnCompletion(h, c.record); err != nil {
		return "", err
	}
	return h, nil
}

func (c *Chat) Cancel() error {
	return c.slot.Cancel(c.slot.Snapshot().RequestID)
}

func (c *Chat) State() completion.Snapshot {
	return c.slot.Snapshot()
}

func (c *Chat) Transcript() []memory.Entry {
	return c.transcript.Get(0)
}

// Reset clears the conversation. A pending answer still lands in the new one.
func (c *Chat) Reset() {
	c.transcript.Clear()
}

func (c *Chat) Await(ctx context.Context, h completion.Handle) (completion.Outcome, error) {
	return c.slot.Await(ctx, h)
}

func (c *Chat) Subscribe(fn func(completion.Snapshot)) func() {
	return c.slot.Subscribe(fn)
}

func (c *Chat) Close() {
	c.transcript.Close()
}

func (c *Chat) record(o completion.Outcome) {
	if o.Succeeded() {
		c.transcript.Add(memory.Entry{Role: memory.RoleAssistant, Content: o.Text})
		return
	}
	c.transcript.Add(memory.Entry{Role: memory.RoleAssistant, Content: Apology, Failed: true})
}
