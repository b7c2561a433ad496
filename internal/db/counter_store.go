package db

import (
	"context"
	"fmt"
	"time"

	"horse.fit/babel/internal/ledger"
)

// CounterStore implements ledger.CounterStore on the pool.
type CounterStore struct {
	pool *Pool
}

func NewCounterStore(pool *Pool) *CounterStore {
	return &CounterStore{pool: pool}
}

func (s *CounterStore) IncrUsage(ctx context.Context, provider, accountID string, day time.Time, chars int64, ttl time.Duration) error {
	const q = `
INSERT INTO babel.usage_days (provider, account_id, day, chars, calls, expires_at, updated_at)
VALUES ($1, $2, $3, $4, 1, $5, now())
ON CONFLICT (provider, account_id, day)
DO UPDATE SET
	chars = babel.usage_days.chars + EXCLUDED.chars,
	calls = babel.usage_days.calls + 1,
	updated_at = now()`

	_, err := s.pool.Exec(ctx, q, provider, accountID, day, chars, day.Add(ttl))
	if err != nil {
		return fmt.Errorf("increment usage %s/%s: %w", provider, accountID, err)
	}
	return nil
}

func (s *CounterStore) SumUsage(ctx context.Context, provider, accountID string, from, to time.Time) (ledger.Usage, error) {
	const q = `
SELECT COALESCE(SUM(chars), 0), COALESCE(SUM(calls), 0)
FROM babel.usage_days
WHERE provider = $1 AND account_id = $2
  AND day BETWEEN $3 AND $4
  AND expires_at > now()`

	var usage ledger.Usage
	if err := s.pool.QueryRow(ctx, q, provider, accountID, from, to).Scan(&usage.Chars, &usage.Calls); err != nil {
		return ledger.Usage{}, fmt.Errorf("sum usage %s/%s: %w", provider, accountID, err)
	}
	return usage, nil
}

// UsageByDay aggregates daily counters. An empty provider or accountID
// widens the aggregation: provider-wide with accountID empty, global
// with both empty.
func (s *CounterStore) UsageByDay(ctx context.Context, provider, accountID string, from, to time.Time) ([]ledger.DayUsage, error) {
	const q = `
SELECT day, COALESCE(SUM(chars), 0), COALESCE(SUM(calls), 0)
FROM babel.usage_days
WHERE ($1 = '' OR provider = $1)
  AND ($2 = '' OR account_id = $2)
  AND day BETWEEN $3 AND $4
  AND expires_at > now()
GROUP BY day
ORDER BY day`

	rows, err := s.pool.Query(ctx, q, provider, accountID, from, to)
	if err != nil {
		return nil, fmt.Errorf("usage by day %s/%s: %w", provider, accountID, err)
	}
	defer rows.Close()

	var days []ledger.DayUsage
	for rows.Next() {
		var day ledger.DayUsage
		if err := rows.Scan(&day.Day, &day.Chars, &day.Calls); err != nil {
			return nil, fmt.Errorf("scan day usage: %w", err)
		}
		day.Day = day.Day.UTC()
		days = append(days, day)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate day usage: %w", err)
	}
	return days, nil
}

// AdmitRate counts recent admitted calls and inserts one more only when
// the window still has room, all in a single statement so that concurrent
// callers cannot both slip under the ceiling.
func (s *CounterStore) AdmitRate(ctx context.Context, provider, accountID string, windowStart, now time.Time, ttl time.Duration, maxRPS int) (bool, error) {
	const q = `
WITH recent AS (
	SELECT COUNT(*) AS n
	FROM babel.rate_hits
	WHERE provider = $1 AND account_id = $2 AND hit_at > $3
),
admitted AS (
	INSERT INTO babel.rate_hits (provider, account_id, hit_at, expires_at)
	SELECT $1, $2, $4, $5
	FROM recent
	WHERE recent.n < $6
	RETURNING 1
)
SELECT EXISTS (SELECT 1 FROM admitted)`

	var admitted bool
	err := s.pool.QueryRow(ctx, q, provider, accountID, windowStart, now, now.Add(ttl), maxRPS).Scan(&admitted)
	if err != nil {
		return false, fmt.Errorf("admit rate %s/%s: %w", provider, accountID, err)
	}
	return admitted, nil
}

// PurgeExpired deletes expired counter, rate, cache, and log rows. Called
// periodically from the server maintenance loop.
func (p *Pool) PurgeExpired(ctx context.Context) (int64, error) {
	queries := []string{
		`DELETE FROM babel.usage_days WHERE expires_at <= now()`,
		`DELETE FROM babel.rate_hits WHERE expires_at <= now()`,
		`DELETE FROM babel.cache_entries WHERE expires_at <= now()`,
		`DELETE FROM babel.translation_logs WHERE expires_at <= now()`,
	}

	tx, err := p.BeginTx(ctx, TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("purge expired rows: %w", err)
	}

	var total int64
	for _, q := range queries {
		tag, err := tx.Exec(ctx, q)
		if err != nil {
			_ = tx.Rollback(ctx)
			return 0, fmt.Errorf("purge expired rows: %w", err)
		}
		total += tag.RowsAffected()
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("purge expired rows: %w", err)
	}
	return total, nil
}
