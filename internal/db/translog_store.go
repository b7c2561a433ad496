package db

import (
	"context"
	"fmt"
	"time"

	"horse.fit/babel/internal/translog"
)

// TranslogStore implements translog.Store on the pool.
type TranslogStore struct {
	pool *Pool
}

func NewTranslogStore(pool *Pool) *TranslogStore {
	return &TranslogStore{pool: pool}
}

func (s *TranslogStore) InsertEntry(ctx context.Context, entry *translog.Entry, ttl time.Duration) error {
	const q = `
INSERT INTO babel.translation_logs (
	provider, account_id, source_lang, target_lang,
	source_text, translated_text, char_count, latency_ms, cache_hit,
	expires_at, created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING log_id`

	err := s.pool.QueryRow(ctx, q,
		entry.Provider, entry.AccountID, entry.SourceLang, entry.TargetLang,
		entry.SourceText, entry.TranslatedText, entry.CharCount, entry.LatencyMs, entry.CacheHit,
		entry.CreatedAt.Add(ttl), entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("insert translation log: %w", err)
	}
	return nil
}

func (s *TranslogStore) ListEntries(ctx context.Context, opts translog.ListOptions) ([]translog.Entry, int64, error) {
	const countQ = `
SELECT COUNT(*)
FROM babel.translation_logs
WHERE expires_at > now()
  AND ($1 = '' OR provider = $1)
  AND ($2 = '' OR account_id = $2)`

	var total int64
	if err := s.pool.QueryRow(ctx, countQ, opts.Provider, opts.AccountID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count translation logs: %w", err)
	}

	const q = `
SELECT
	log_id, provider, account_id, source_lang, target_lang,
	source_text, translated_text, char_count, latency_ms, cache_hit,
	created_at
FROM babel.translation_logs
WHERE expires_at > now()
  AND ($1 = '' OR provider = $1)
  AND ($2 = '' OR account_id = $2)
ORDER BY created_at DESC, log_id DESC
LIMIT $3 OFFSET $4`

	rows, err := s.pool.Query(ctx, q, opts.Provider, opts.AccountID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list translation logs: %w", err)
	}
	defer rows.Close()

	var entries []translog.Entry
	for rows.Next() {
		var entry translog.Entry
		if err := rows.Scan(
			&entry.ID, &entry.Provider, &entry.AccountID, &entry.SourceLang, &entry.TargetLang,
			&entry.SourceText, &entry.TranslatedText, &entry.CharCount, &entry.LatencyMs, &entry.CacheHit,
			&entry.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan translation log: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate translation logs: %w", err)
	}
	return entries, total, nil
}

func (s *TranslogStore) GetEntry(ctx context.Context, id int64) (*translog.Entry, error) {
	const q = `
SELECT
	log_id, provider, account_id, source_lang, target_lang,
	source_text, translated_text, char_count, latency_ms, cache_hit,
	created_at
FROM babel.translation_logs
WHERE log_id = $1 AND expires_at > now()`

	var entry translog.Entry
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&entry.ID, &entry.Provider, &entry.AccountID, &entry.SourceLang, &entry.TargetLang,
		&entry.SourceText, &entry.TranslatedText, &entry.CharCount, &entry.LatencyMs, &entry.CacheHit,
		&entry.CreatedAt,
	)
	if IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get translation log %d: %w", id, err)
	}
	return &entry, nil
}

func (s *TranslogStore) DeleteEntry(ctx context.Context, id int64) (bool, error) {
	const q = `DELETE FROM babel.translation_logs WHERE log_id = $1`

	tag, err := s.pool.Exec(ctx, q, id)
	if err != nil {
		return false, fmt.Errorf("delete translation log %d: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *TranslogStore) DeleteAllEntries(ctx context.Context) (int64, error) {
	const q = `DELETE FROM babel.translation_logs`

	tag, err := s.pool.Exec(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("delete translation logs: %w", err)
	}
	return tag.RowsAffected(), nil
}
