package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nikhilbhutani/clinicfeedback/internal/completion"
	"github.com/nikhilbhutani/clinicfeedback/internal/config"
)

// Store is the subset of Cache the completer needs.
type Store interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type entry struct {
	Text     string    `json:"text"`
	Model    string    `json:"model"`
	CachedAt time.Time `json:"cached_at"`
}

// Completer answers repeated prompts from the store and collapses
// concurrent identical prompts into one upstream call.
type Completer struct {
	next        completion.Completer
	store       Store
	ttl         time.Duration
	prefix      string
	model       string
	callTimeout time.Duration

	group singleflight.Group
}

// NewCompleter wraps next. Cached texts are keyed by model and prompt hash.
// callTimeout bounds a shared upstream call, which outlives any single caller.
func NewCompleter(next completion.Completer, store Store, cfg config.CacheConfig, model string, callTimeout time.Duration) *Completer {
	if callTimeout <= 0 {
		callTimeout = completion.DefaultTimeout
	}
	return &Completer{
		next:        next,
		store:       store,
		ttl:         cfg.TTL,
		prefix:      cfg.Prefix,
		model:       model,
		callTimeout: callTimeout,
	}
}

func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	key := c.Key(prompt)

	var hit entry
	switch err := c.store.Get(ctx, key, &hit); {
	case err == nil && hit.Text != "":
		slog.Debug("completion cache hit", "key", key, "cached_at", hit.CachedAt)
		return hit.Text, nil
	case err != nil && !errors.Is(err, ErrMiss):
		slog.Warn("completion cache read failed", "key", key, "error", err)
	}

	ch := c.group.DoChan(key, func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.callTimeout)
		defer cancel()

		text, err := c.next.Complete(callCtx, prompt)
		if err != nil {
			return "", err
		}
		if err := c.store.Set(callCtx, key, entry{Text: text, Model: c.model, CachedAt: time.Now().UTC()}, c.ttl); err != nil {
			slog.Warn("completion cache write failed", "key", key, "error", err)
		}
		return text, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		if res.Shared {
			slog.Debug("completion shared with concurrent caller", "key", key)
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Invalidate drops the cached text for prompt.
func (c *Completer) Invalidate(ctx context.Context, prompt string) error {
	return c.store.Delete(ctx, c.Key(prompt))
}

func (c *Completer) Key(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return c.prefix + c.model + ":" + hex.EncodeToString(sum[:])
}
