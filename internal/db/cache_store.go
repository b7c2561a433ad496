package db

import (
	"context"
	"fmt"
	"time"
)

// CacheStore implements cache.Store on the pool.
type CacheStore struct {
	pool *Pool
}

func NewCacheStore(pool *Pool) *CacheStore {
	return &CacheStore{pool: pool}
}

func (s *CacheStore) Get(ctx context.Context, key string) (string, bool, error) {
	const q = `
SELECT value
FROM babel.cache_entries
WHERE cache_key = $1 AND expires_at > now()`

	var value string
	err := s.pool.QueryRow(ctx, q, key).Scan(&value)
	if IsNoRows(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *CacheStore) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	const q = `
INSERT INTO babel.cache_entries (cache_key, value, expires_at, created_at)
VALUES ($1, $2, now() + $3 * interval '1 second', now())
ON CONFLICT (cache_key)
DO UPDATE SET
	value = EXCLUDED.value,
	expires_at = EXCLUDED.expires_at`

	_, err := s.pool.Exec(ctx, q, key, value, int64(ttl.Seconds()))
	if err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// DeleteByPrefix removes shared entries under a key prefix, e.g. all of
// one provider's entries. Returns the number of rows removed.
func (s *CacheStore) DeleteByPrefix(ctx context.Context, prefix string) (int64, error) {
	const q = `DELETE FROM babel.cache_entries WHERE cache_key LIKE $1 || '%'`

	tag, err := s.pool.Exec(ctx, q, prefix)
	if err != nil {
		return 0, fmt.Errorf("cache delete by prefix %s: %w", prefix, err)
	}
	return tag.RowsAffected(), nil
}

// Count reports live shared entries for the admin stats surface.
func (s *CacheStore) Count(ctx context.Context) (int64, error) {
	const q = `SELECT COUNT(*) FROM babel.cache_entries WHERE expires_at > now()`

	var count int64
	if err := s.pool.QueryRow(ctx, q).Scan(&count); err != nil {
		return 0, fmt.Errorf("cache count: %w", err)
	}
	return count, nil
}
