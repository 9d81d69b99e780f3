// Package completion drives requests to an external text-completion capability
// through per-slot state machines: idle, pending, then succeeded or failed.
package completion

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInvalidInput is returned before any call is issued when the input cannot produce a prompt.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidState is returned when an operation is not allowed in the slot's current state.
	ErrInvalidState = errors.New("invalid state")
)

type Status string

const (
	StatusIdle      Status = "idle"
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transition happens without a new submit or retry.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

type ErrorKind string

const (
	KindNetwork        ErrorKind = "NetworkError"
	KindEmptyResponse  ErrorKind = "EmptyResponse"
	KindRemoteRejected ErrorKind = "RemoteRejected"
	KindTimeout        ErrorKind = "TimeoutError"
	KindCancelled      ErrorKind = "CancelledError"
	KindUnknown        ErrorKind = "Unknown"
)

// Completer is the remote capability: one prompt in, one text out.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type CompleterFunc func(ctx context.Context, prompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Template builds the prompt for one input record. It must be pure.
type Template[T any] func(T) (string, error)

// Handle is the correlation id of one request.
type Handle string

func (h Handle) String() string { return string(h) }

// Outcome is the normalized terminal result of a request.
// Exactly one of Text or Kind is set.
type Outcome struct {
	Text    string    `json:"text,omitempty"`
	Kind    ErrorKind `json:"error_kind,omitempty"`
	Message string    `json:"message,omitempty"`
}

func (o Outcome) Succeeded() bool { return o.Kind == "" }

// Snapshot is a point-in-time view of a slot's current request.
type Snapshot struct {
	Slot        string     `json:"slot"`
	RequestID   Handle     `json:"request_id,omitempty"`
	Status      Status     `json:"status"`
	Prompt      string     `json:"-"`
	Text        string     `json:"text,omitempty"`
	ErrorKind   ErrorKind  `json:"error_kind,omitempty"`
	Message     string     `json:"message,omitempty"`
	Retryable   bool       `json:"retryable"`
	IssuedAt    *time.Time `json:"issued_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Outcome returns the terminal outcome, or false while idle or pending.
func (s Snapshot) Outcome() (Outcome, bool) {
	if !s.Status.Terminal() {
		return Outcome{}, false
	}
	return Outcome{Text: s.Text, Kind: s.ErrorKind, Message: s.Message}, true
}
