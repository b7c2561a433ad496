// Package cache is the two-tier translation cache: a bounded in-process
// LRU in front of a shared TTL-backed store.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Store is the shared cache backing store contract. Get returns
// ("", false, nil) on a miss.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error
}

// Options configures cache behavior.
type Options struct {
	Enabled       bool
	Capacity      int
	TTL           time.Duration
	MinTextLength int
	// CrossProvider retries a full miss against every other provider's key
	// for the same (source, target, hash).
	CrossProvider bool
	// Providers is the set of provider names considered for cross-provider
	// lookups.
	Providers []string
}

// Cache is a two-tier translation cache shared across concurrent requests.
// The in-process tier is internally synchronized; the shared tier is
// best-effort and never fails a translation.
type Cache struct {
	mu     sync.Mutex
	memory *lru
	store  Store
	opts   Options
	logger zerolog.Logger
}

func New(store Store, opts Options, logger zerolog.Logger) *Cache {
	if opts.Capacity <= 0 {
		opts.Capacity = 1000
	}
	if opts.TTL <= 0 {
		opts.TTL = 7 * 24 * time.Hour
	}
	return &Cache{
		memory: newLRU(opts.Capacity),
		store:  store,
		opts:   opts,
		logger: logger,
	}
}

// KeyNamespace is the shared-store prefix covering every translation
// entry, across all providers.
const KeyNamespace = "translate:"

// Key builds the shared-store cache key for one translation.
func Key(provider, sourceLang, targetLang, text string) string {
	hash := md5.Sum([]byte(text))
	return fmt.Sprintf("%s%s:%s:%s:%s", KeyNamespace, provider, sourceLang, targetLang, hex.EncodeToString(hash[:]))
}

// KeyPrefix is the shared-store prefix covering every key of one provider.
func KeyPrefix(provider string) string {
	return KeyNamespace + provider + ":"
}

// Get looks up a translation: in-process tier, then the shared tier, then
// (when enabled) every other provider's shared key. A shared-tier hit
// promotes into memory; a cross-provider hit populates only the in-process
// tier under the requesting provider's key.
func (c *Cache) Get(ctx context.Context, provider, sourceLang, targetLang, text string) (string, bool) {
	if !c.enabled(text) {
		return "", false
	}

	key := Key(provider, sourceLang, targetLang, text)

	c.mu.Lock()
	value, ok := c.memory.get(key)
	c.mu.Unlock()
	if ok {
		return value, true
	}

	if c.store != nil {
		value, ok, err := c.store.Get(ctx, key)
		if err != nil {
			c.logger.Error().Err(err).Str("key", key).Msg("cache store read failed")
		} else if ok {
			c.fillMemory(key, value)
			return value, true
		}
	}

	if c.opts.CrossProvider && c.store != nil {
		for _, other := range c.opts.Providers {
			if other == provider {
				continue
			}
			fallbackKey := Key(other, sourceLang, targetLang, text)
			value, ok, err := c.store.Get(ctx, fallbackKey)
			if err != nil {
				c.logger.Error().Err(err).Str("key", fallbackKey).Msg("cross-provider cache read failed")
				continue
			}
			if ok {
				c.logger.Debug().Str("from", other).Str("to", provider).Msg("cross-provider cache hit")
				// Memory tier only, under the requesting provider's key;
				// never copied into the shared tier.
				c.fillMemory(key, value)
				return value, true
			}
		}
	}

	return "", false
}

// Set writes both tiers under the requesting provider's own key.
func (c *Cache) Set(ctx context.Context, provider, sourceLang, targetLang, text, translated string) {
	if !c.enabled(text) {
		return
	}

	key := Key(provider, sourceLang, targetLang, text)
	c.fillMemory(key, translated)

	if c.store == nil {
		return
	}
	if err := c.store.SetWithTTL(ctx, key, translated, c.opts.TTL); err != nil {
		c.logger.Error().Err(err).Str("key", key).Msg("cache store write failed")
	}
}

// ClearMemory drops the whole in-process tier.
func (c *Cache) ClearMemory() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.memory.clear()
}

// MemoryLen reports the in-process tier size.
func (c *Cache) MemoryLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.memory.len()
}

func (c *Cache) fillMemory(key, value string) {
	c.mu.Lock()
	c.memory.set(key, value)
	c.mu.Unlock()
}

func (c *Cache) enabled(text string) bool {
	if c == nil || !c.opts.Enabled {
		return false
	}
	return len([]rune(text)) >= c.opts.MinTextLength
}

// ProviderView scopes a cache to one request's provider and language pair,
// matching the per-segment view the translation pipeline consumes.
type ProviderView struct {
	Cache      *Cache
	Provider   string
	SourceLang string
	TargetLang string
}

func (v ProviderView) Get(ctx context.Context, text string) (string, bool) {
	if v.Cache == nil {
		return "", false
	}
	return v.Cache.Get(ctx, v.Provider, v.SourceLang, v.TargetLang, text)
}

func (v ProviderView) Set(ctx context.Context, text, translated string) {
	if v.Cache == nil {
		return
	}
	v.Cache.Set(ctx, v.Provider, v.SourceLang, v.TargetLang, text, translated)
}
