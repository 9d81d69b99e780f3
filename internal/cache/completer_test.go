package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nikhilbhutani/clinicfeedback/internal/completion"
	"github.com/nikhilbhutani/clinicfeedback/internal/config"
)

type memStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (s *memStore) Get(_ context.Context, key string, dest any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return s.getErr
	}
	b, ok := s.data[key]
	if !ok {
		return ErrMiss
	}
	return json.Unmarshal(b, dest)
}

func (s *memStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = b
	return nil
}

func (s *memStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

var testCacheConfig = config.CacheConfig{Enabled: true, TTL: time.Hour, Prefix: "test:"}

func TestCompleter_CachesText(t *testing.T) {
	var calls atomic.Int32
	upstream := completion.CompleterFunc(func(_ context.Context, prompt string) (string, error) {
		calls.Add(1)
		return "summary of " + prompt, nil
	})
	c := NewCompleter(upstream, newMemStore(), testCacheConfig, "gemini-2.5-flash", time.Second)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := c.Complete(ctx, "reviews")
		if err != nil {
			t.Fatalf("Complete() error = %v", err)
		}
		if got != "summary of reviews" {
			t.Errorf("Complete() = %q", got)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("upstream called %d times, want 1", n)
	}

	if err := c.Invalidate(ctx, "reviews"); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	c.Complete(ctx, "reviews")
	if n := calls.Load(); n != 2 {
		t.Errorf("upstream called %d times after invalidate, want 2", n)
	}
}

func TestCompleter_ErrorsAreNotCached(t *testing.T) {
	var calls atomic.Int32
	upstream := completion.CompleterFunc(func(context.Context, string) (string, error) {
		if calls.Add(1) == 1 {
			return "", errors.New("unavailable")
		}
		return "ok", nil
	})
	c := NewCompleter(upstream, newMemStore(), testCacheConfig, "m", time.Second)

	if _, err := c.Complete(context.Background(), "p"); err == nil {
		t.Fatal("expected upstream error")
	}
	got, err := c.Complete(context.Background(), "p")
	if err != nil || got != "ok" {
		t.Errorf("Complete() = %q, %v", got, err)
	}
}

func TestCompleter_StoreFailureFallsThrough(t *testing.T) {
	store := newMemStore()
	store.getErr = errors.New("connection refused")
	upstream := completion.CompleterFunc(func(context.Context, string) (string, error) {
		return "fresh", nil
	})
	c := NewCompleter(upstream, store, testCacheConfig, "m", time.Second)

	got, err := c.Complete(context.Background(), "p")
	if err != nil || got != "fresh" {
		t.Errorf("Complete() = %q, %v", got, err)
	}
}

func TestCompleter_CollapsesConcurrentPrompts(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	upstream := completion.CompleterFunc(func(context.Context, string) (string, error) {
		calls.Add(1)
		<-release
		return "shared", nil
	})
	c := NewCompleter(upstream, newMemStore(), testCacheConfig, "m", time.Second)

	var wg sync.WaitGroup
	results := make([]string, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = c.Complete(context.Background(), "same prompt")
		}(i)
	}
	time.Sleep(30 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("upstream called %d times, want 1", n)
	}
	for i, r := range results {
		if r != "shared" {
			t.Errorf("result[%d] = %q", i, r)
		}
	}
}

func TestCompleter_CallerCancellation(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	upstream := completion.CompleterFunc(func(context.Context, string) (string, error) {
		<-release
		return "late", nil
	})
	c := NewCompleter(upstream, newMemStore(), testCacheConfig, "m", time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Complete(ctx, "p"); !errors.Is(err, context.Canceled) {
		t.Errorf("Complete() error = %v, want context.Canceled", err)
	}
}

func TestCompleter_Key(t *testing.T) {
	c := NewCompleter(nil, newMemStore(), testCacheConfig, "gpt-4o", time.Second)
	k1, k2 := c.Key("a"), c.Key("b")
	if k1 == k2 {
		t.Error("distinct prompts share a key")
	}
	if !strings.HasPrefix(k1, "test:gpt-4o:") || k1 != c.Key("a") {
		t.Errorf("Key() = %q", k1)
	}
}
