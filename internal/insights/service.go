// Package insights summarises the whole review catalog into themes,
// sentiment and suggestions.
package insights

import (
	"context"
	"log/slog"
	"time"

	"github.com/nikhilbhutani/clinicfeedback/internal/completion"
	"github.com/nikhilbhutani/clinicfeedback/internal/prompt"
	"github.com/nikhilbhutani/clinicfeedback/internal/review"
)

const SlotName = "insights"

// invalidator is implemented by caching completers.
type invalidator interface {
	Invalidate(ctx context.Context, prompt string) error
}

type Service struct {
	reviews   *review.Store
	completer completion.Completer
	slot      *completion.Slot[prompt.InsightsInput]
}

func NewService(reviews *review.Store, c completion.Completer, timeout time.Duration) *Service {
	return &Service{
		reviews:   reviews,
		completer: c,
		slot:      completion.NewSlot(SlotName, prompt.Insights, c, timeout),
	}
}

// Input is the prompt input for the current catalog.
func (s *Service) Input() prompt.InsightsInput {
	return prompt.InsightsInput{Reviews: s.reviews.Comments()}
}

// Generate starts a summary of every review comment.
func (s *Service) Generate() (completion.Handle, error) {
	return s.slot.Submit(s.Input())
}

// Retry re-runs the last summary. A cached answer for a succeeded summary is
// dropped first so the retry produces fresh text.
func (s *Service) Retry(ctx context.Context) (completion.Handle, error) {
	snap := s.slot.Snapshot()
	if inv, ok := s.completer.(invalidator); ok && snap.Status == completion.StatusSucceeded {
		if err := inv.Invalidate(ctx, snap.Prompt); err != nil {
			slog.Warn("dropping cached insights failed", "error", err)
		}
	}
	return s.slot.Retry(snap.RequestID)
}

func (s *Service) Cancel() error {
	return s.slot.Cancel(s.slot.Snapshot().RequestID)
}

func (s *Service) State() completion.Snapshot {
	return s.slot.Snapshot()
}

func (s *Service) Await(ctx context.Context, h completion.Handle) (completion.Outcome, error) {
	return s.slot.Await(ctx, h)
}

func (s *Service) Subscribe(fn func(completion.Snapshot)) func() {
	return s.slot.Subscribe(fn)
}
