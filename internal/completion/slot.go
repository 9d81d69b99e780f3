package completion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout bounds how long a request may stay pending.
const DefaultTimeout = 30 * time.Second

// Slot owns at most one in-flight request at a time. A slot is safe for
// concurrent use; callbacks and subscribers run outside its lock.
// Subscribers see transitions in order. Neither subscribers nor completion
// callbacks may call the slot's Submit, Retry or Cancel.
type Slot[T any] struct {
	name      string
	template  Template[T]
	completer Completer
	timeout   time.Duration

	// notifyMu orders snapshot delivery; it is taken before mu.
	notifyMu sync.Mutex

	mu          sync.Mutex
	current     *request
	subscribers map[int]func(Snapshot)
	nextSub     int
}

type request struct {
	id          Handle
	prompt      string
	status      Status
	outcome     Outcome
	issuedAt    time.Time
	completedAt time.Time
	callbacks   []func(Outcome)
	cancel      context.CancelFunc
	timer       *time.Timer
}

// NewSlot creates an idle slot. A non-positive timeout falls back to DefaultTimeout.
func NewSlot[T any](name string, tmpl Template[T], c Completer, timeout time.Duration) *Slot[T] {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Slot[T]{
		name:        name,
		template:    tmpl,
		completer:   c,
		timeout:     timeout,
		subscribers: make(map[int]func(Snapshot)),
	}
}

func (s *Slot[T]) Name() string { return s.name }

// Submit builds the prompt for input and issues it. It returns as soon as the
// request is pending; the remote call runs in the background.
func (s *Slot[T]) Submit(input T) (Handle, error) {
	prompt, err := s.template(input)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: empty prompt", ErrInvalidInput)
	}
	return s.issue(prompt, "")
}

// Retry re-issues the prompt of h, which must be the slot's current, terminal request.
func (s *Slot[T]) Retry(h Handle) (Handle, error) {
	s.mu.Lock()
	req := s.current
	if req == nil || req.id != h || !req.status.Terminal() {
		s.mu.Unlock()
		return "", fmt.Errorf("%w: retry of %s in slot %s", ErrInvalidState, h, s.name)
	}
	prompt := req.prompt
	s.mu.Unlock()

	return s.issue(prompt, h)
}

// Cancel fails the pending request h with CancelledError. The remote call is
// told to stop but may still finish; its result is dropped.
func (s *Slot[T]) Cancel(h Handle) error {
	if !s.finish(h, Failure(KindCancelled)) {
		return fmt.Errorf("%w: cancel of %s in slot %s", ErrInvalidState, h, s.name)
	}
	return nil
}

// OnCompletion registers fn to run once with the terminal outcome of h.
// If h already finished, fn runs immediately.
func (s *Slot[T]) OnCompletion(h Handle, fn func(Outcome)) error {
	s.mu.Lock()
	req := s.current
	if req == nil || req.id != h {
		s.mu.Unlock()
		return fmt.Errorf("%w: unknown request %s in slot %s", ErrInvalidState, h, s.name)
	}
	if req.status == StatusPending {
		req.callbacks = append(req.callbacks, fn)
		s.mu.Unlock()
		return nil
	}
	outcome := req.outcome
	s.mu.Unlock()

	fn(outcome)
	return nil
}

// Await blocks until h finishes or ctx is done.
func (s *Slot[T]) Await(ctx context.Context, h Handle) (Outcome, error) {
	done := make(chan Outcome, 1)
	if err := s.OnCompletion(h, func(o Outcome) { done <- o }); err != nil {
		return Outcome{}, err
	}
	select {
	case o := <-done:
		return o, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Subscribe registers fn for every state change of the slot.
func (s *Slot[T]) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

func (s *Slot[T]) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Slot[T]) issue(prompt string, expect Handle) (Handle, error) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if s.current != nil {
		if s.current.status == StatusPending {
			s.mu.Unlock()
			return "", fmt.Errorf("%w: slot %s has a pending request", ErrInvalidState, s.name)
		}
		if expect != "" && s.current.id != expect {
			s.mu.Unlock()
			return "", fmt.Errorf("%w: request %s was superseded in slot %s", ErrInvalidState, expect, s.name)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	req := &request{
		id:       Handle(uuid.NewString()),
		prompt:   prompt,
		status:   StatusPending,
		issuedAt: time.Now(),
		cancel:   cancel,
	}
	s.current = req
	req.timer = time.AfterFunc(s.timeout, func() {
		if s.finish(req.id, Failure(KindTimeout)) {
			slog.Warn("completion timed out", "slot", s.name, "request_id", req.id, "timeout", s.timeout)
		}
	})
	snap := s.snapshotLocked()
	subs := s.subscriberList()
	s.mu.Unlock()

	slog.Info("completion issued", "slot", s.name, "request_id", req.id, "retry_of", expect)
	// A cancel or timeout racing this call waits on notifyMu, so pending is
	// always delivered before the terminal snapshot.
	notify(subs, snap)

	go s.run(ctx, req.id, prompt)
	return req.id, nil
}

func (s *Slot[T]) run(ctx context.Context, id Handle, prompt string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("completer panicked", "slot", s.name, "request_id", id, "panic", r)
			s.finish(id, Failure(KindUnknown))
		}
	}()

	text, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		slog.Warn("completion failed", "slot", s.name, "request_id", id, "error", err)
	}
	if !s.finish(id, Normalize(text, err)) {
		slog.Debug("discarding late completion", "slot", s.name, "request_id", id)
	}
}

// finish moves request id into its terminal state. It reports false when id is
// no longer the slot's pending request, in which case nothing changes.
func (s *Slot[T]) finish(id Handle, outcome Outcome) bool {
	s.notifyMu.Lock()
	s.mu.Lock()
	req := s.current
	if req == nil || req.id != id || req.status != StatusPending {
		s.mu.Unlock()
		s.notifyMu.Unlock()
		return false
	}

	req.outcome = outcome
	req.status = StatusSucceeded
	if !outcome.Succeeded() {
		req.status = StatusFailed
	}
	req.completedAt = time.Now()
	if req.timer != nil {
		req.timer.Stop()
	}
	req.cancel()

	callbacks := req.callbacks
	req.callbacks = nil
	snap := s.snapshotLocked()
	subs := s.subscriberList()
	s.mu.Unlock()

	for _, fn := range callbacks {
		fn(outcome)
	}
	notify(subs, snap)
	s.notifyMu.Unlock()
	return true
}

func (s *Slot[T]) snapshotLocked() Snapshot {
	req := s.current
	if req == nil {
		return Snapshot{Slot: s.name, Status: StatusIdle}
	}

	issued := req.issuedAt
	snap := Snapshot{
		Slot:      s.name,
		RequestID: req.id,
		Status:    req.status,
		Prompt:    req.prompt,
		IssuedAt:  &issued,
	}
	if req.status.Terminal() {
		completed := req.completedAt
		snap.CompletedAt = &completed
		snap.Text = req.outcome.Text
		snap.ErrorKind = req.outcome.Kind
		snap.Message = req.outcome.Message
		snap.Retryable = true
	}
	return snap
}

func (s *Slot[T]) subscriberList() []func(Snapshot) {
	subs := make([]func(Snapshot), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	return subs
}

func notify(subs []func(Snapshot), snap Snapshot) {
	for _, fn := range subs {
		fn(snap)
	}
}
