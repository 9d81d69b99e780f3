package memory

import (
	"slices"
	"sync"
	"time"

	"github.com/nikhilbhutani/clinicfeedback/pkg/tokenizer"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Entry is a single item in conversation memory.
type Entry struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Failed    bool      `json:"failed,omitempty"`
}

// Transcript stores the last N messages of a conversation in-memory and
// clears itself after a period without new messages.
type Transcript struct {
	mu      sync.RWMutex
	entries []Entry
	maxSize int

	idle  time.Duration
	timer *time.Timer
	gen   uint64
}

// NewTranscript keeps at most maxSize entries. An idle duration of zero disables auto-clear.
func NewTranscript(maxSize int, idle time.Duration) *Transcript {
	if maxSize <= 0 {
		maxSize = 50
	}
	return &Transcript{
		entries: make([]Entry, 0, maxSize),
		maxSize: maxSize,
		idle:    idle,
	}
}

func (t *Transcript) Add(entry Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	t.entries = append(t.entries, entry)

	// Evict oldest if over capacity
	if len(t.entries) > t.maxSize {
		t.entries = t.entries[len(t.entries)-t.maxSize:]
	}
	t.resetIdleLocked()
}

// Get returns the most recent limit entries, or all of them when limit <= 0.
func (t *Transcript) Get(limit int) []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if limit <= 0 || limit > len(t.entries) {
		limit = len(t.entries)
	}

	start := len(t.entries) - limit
	result := make([]Entry, limit)
	copy(result, t.entries[start:])
	return result
}

// Window returns the most recent answered history whose estimated token
// count fits in maxTokens. Failed entries are skipped and cost nothing.
func (t *Transcript) Window(maxTokens int) []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var result []Entry
	used := 0
	for i := len(t.entries) - 1; i >= 0; i-- {
		e := t.entries[i]
		if e.Failed {
			continue
		}
		n := tokenizer.CountTokens(e.Content)
		if used+n > maxTokens {
			break
		}
		used += n
		result = append(result, e)
	}
	slices.Reverse(result)
	return result
}

func (t *Transcript) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clearLocked()
}

func (t *Transcript) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Close stops the idle timer. The transcript stays readable.
func (t *Transcript) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *Transcript) clearLocked() {
	t.entries = t.entries[:0]
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *Transcript) resetIdleLocked() {
	if t.idle <= 0 {
		return
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	t.gen++
	gen := t.gen
	t.timer = time.AfterFunc(t.idle, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		// A newer message or a manual clear invalidates this timer.
		if t.gen == gen {
			t.clearLocked()
		}
	})
}
