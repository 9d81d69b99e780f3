// Package reply drafts suggested responses to individual reviews and stores
// the replies clinic staff send.
package reply

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nikhilbhutani/clinicfeedback/internal/completion"
	"github.com/nikhilbhutani/clinicfeedback/internal/prompt"
	"github.com/nikhilbhutani/clinicfeedback/internal/review"
)

// Drafter keeps one completion slot per review, created on first use.
type Drafter struct {
	reviews   *review.Store
	completer completion.Completer
	timeout   time.Duration

	mu    sync.Mutex
	slots map[int]*completion.Slot[prompt.ReplyInput]
}

func NewDrafter(reviews *review.Store, c completion.Completer, timeout time.Duration) *Drafter {
	return &Drafter{
		reviews:   reviews,
		completer: c,
		timeout:   timeout,
		slots:     make(map[int]*completion.Slot[prompt.ReplyInput]),
	}
}

func SlotName(reviewID int) string {
	return "reply:" + strconv.Itoa(reviewID)
}

// Draft asks for a suggested reply to review id.
func (d *Drafter) Draft(id int) (completion.Handle, error) {
	r, err := d.reviews.Get(id)
	if err != nil {
		return "", err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.slotLocked(id).Submit(prompt.ReplyInputFor(r))
}

// Retry re-drafts review id. It holds the drafter lock so a concurrent
// Submit sees either the saved reply or the pending draft.
func (d *Drafter) Retry(id int) (completion.Handle, error) {
	if _, err := d.reviews.Get(id); err != nil {
		return "", err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.slots[id]
	if !ok {
		return "", fmt.Errorf("%w: review %d has no draft", completion.ErrInvalidState, id)
	}
	return s.Retry(s.Snapshot().RequestID)
}

func (d *Drafter) Cancel(id int) error {
	s, err := d.existing(id)
	if err != nil {
		return err
	}
	return s.Cancel(s.Snapshot().RequestID)
}

// State reports the draft for review id; a review never drafted is idle.
func (d *Drafter) State(id int) (completion.Snapshot, error) {
	if _, err := d.reviews.Get(id); err != nil {
		return completion.Snapshot{}, err
	}

	d.mu.Lock()
	s, ok := d.slots[id]
	d.mu.Unlock()
	if !ok {
		return completion.Snapshot{Slot: SlotName(id), Status: completion.StatusIdle}, nil
	}
	return s.Snapshot(), nil
}

func (d *Drafter) Await(ctx context.Context, id int, h completion.Handle) (completion.Outcome, error) {
	s, err := d.existing(id)
	if err != nil {
		return completion.Outcome{}, err
	}
	return s.Await(ctx, h)
}

// Submit stores text as the reply to review id. It is rejected while a
// draft for the same review is pending.
func (d *Drafter) Submit(id int, text string) (review.Review, error) {
	if strings.TrimSpace(text) == "" {
		return review.Review{}, fmt.Errorf("%w: reply text is empty", completion.ErrInvalidInput)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if s, ok := d.slots[id]; ok && s.Snapshot().Status == completion.StatusPending {
		return review.Review{}, fmt.Errorf("%w: a draft for review %d is pending", completion.ErrInvalidState, id)
	}
	return d.reviews.SaveReply(id, text)
}

func (d *Drafter) existing(id int) (*completion.Slot[prompt.ReplyInput], error) {
	if _, err := d.reviews.Get(id); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.slots[id]
	if !ok {
		return nil, fmt.Errorf("%w: review %d has no draft", completion.ErrInvalidState, id)
	}
	return s, nil
}

func (d *Drafter) slotLocked(id int) *completion.Slot[prompt.ReplyInput] {
	s, ok := d.slots[id]
	if !ok {
		s = completion.NewSlot(SlotName(id), prompt.Reply, d.completer, d.timeout)
		d.slots[id] = s
	}
	return s
}
