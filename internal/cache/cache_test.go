package cache

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type stubStore struct {
	entries map[string]string
	sets    []string
	getErr  error
}

func (s *stubStore) Get(_ context.Context, key string) (string, bool, error) {
	if s.getErr != nil {
		return "", false, s.getErr
	}
	v, ok := s.entries[key]
	return v, ok, nil
}

func (s *stubStore) SetWithTTL(_ context.Context, key, value string, _ time.Duration) error {
	if s.entries == nil {
		s.entries = map[string]string{}
	}
	s.entries[key] = value
	s.sets = append(s.sets, key)
	return nil
}

func newTestCache(store Store, opts Options) *Cache {
	opts.Enabled = true
	return New(store, opts, zerolog.Nop())
}

func TestLRUEviction(t *testing.T) {
	t.Parallel()

	c := newLRU(2)
	c.set("a", "1")
	c.set("b", "2")
	if _, ok := c.get("a"); !ok {
		t.Fatal("a should be present")
	}
	// a was just touched, so b is least recently used.
	c.set("c", "3")
	if _, ok := c.get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if _, ok := c.get("a"); !ok {
		t.Fatal("a should survive")
	}
	if _, ok := c.get("c"); !ok {
		t.Fatal("c should be present")
	}
}

func TestGetPromotesSharedHit(t *testing.T) {
	t.Parallel()

	store := &stubStore{entries: map[string]string{
		Key("deepl", "zh", "en", "你好"): "hello",
	}}
	c := newTestCache(store, Options{})

	got, ok := c.Get(context.Background(), "deepl", "zh", "en", "你好")
	if !ok || got != "hello" {
		t.Fatalf("expected shared hit, got %q %v", got, ok)
	}

	// Poison the store to prove the second lookup comes from memory.
	store.entries = nil
	got, ok = c.Get(context.Background(), "deepl", "zh", "en", "你好")
	if !ok || got != "hello" {
		t.Fatalf("expected memory hit, got %q %v", got, ok)
	}
}

func TestCrossProviderHitFillsMemoryOnly(t *testing.T) {
	t.Parallel()

	store := &stubStore{entries: map[string]string{
		Key("niutrans", "zh", "en", "你好"): "hello",
	}}
	c := newTestCache(store, Options{
		CrossProvider: true,
		Providers:     []string{"tencent", "deepl", "niutrans"},
	})

	got, ok := c.Get(context.Background(), "deepl", "zh", "en", "你好")
	if !ok || got != "hello" {
		t.Fatalf("expected cross-provider hit, got %q %v", got, ok)
	}

	if len(store.sets) != 0 {
		t.Fatalf("cross-provider hit must not write the shared tier: %v", store.sets)
	}
	if _, found := store.entries[Key("deepl", "zh", "en", "你好")]; found {
		t.Fatal("requesting provider's shared key must stay absent")
	}
	if c.MemoryLen() != 1 {
		t.Fatalf("expected one memory entry, got %d", c.MemoryLen())
	}
}

func TestSetWritesBothTiers(t *testing.T) {
	t.Parallel()

	store := &stubStore{}
	c := newTestCache(store, Options{})
	c.Set(context.Background(), "tencent", "zh", "en", "你好", "hello")

	key := Key("tencent", "zh", "en", "你好")
	if store.entries[key] != "hello" {
		t.Fatal("shared tier not written")
	}
	if c.MemoryLen() != 1 {
		t.Fatal("memory tier not written")
	}
}

func TestMinTextLengthGate(t *testing.T) {
	t.Parallel()

	store := &stubStore{}
	c := newTestCache(store, Options{MinTextLength: 4})
	c.Set(context.Background(), "deepl", "zh", "en", "你好", "hello")
	if len(store.sets) != 0 || c.MemoryLen() != 0 {
		t.Fatal("short text must not be cached")
	}

	c.Set(context.Background(), "deepl", "zh", "en", "你好世界", "hello world")
	if c.MemoryLen() != 1 {
		t.Fatal("text at the length gate must be cached")
	}
}

func TestDisabledCache(t *testing.T) {
	t.Parallel()

	c := New(&stubStore{}, Options{Enabled: false}, zerolog.Nop())
	c.Set(context.Background(), "deepl", "zh", "en", "你好", "hello")
	if _, ok := c.Get(context.Background(), "deepl", "zh", "en", "你好"); ok {
		t.Fatal("disabled cache must always miss")
	}
}

func TestStoreErrorIsSwallowed(t *testing.T) {
	t.Parallel()

	store := &stubStore{getErr: context.DeadlineExceeded}
	c := newTestCache(store, Options{})
	if _, ok := c.Get(context.Background(), "deepl", "zh", "en", "你好"); ok {
		t.Fatal("store error must surface as a miss")
	}
}
