package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"horse.fit/babel/internal/account"
	"horse.fit/babel/internal/cycle"
)

// AccountStore implements account.Store on the pool.
type AccountStore struct {
	pool *Pool
}

func NewAccountStore(pool *Pool) *AccountStore {
	return &AccountStore{pool: pool}
}

func (s *AccountStore) Get(ctx context.Context, provider, id string) (*account.Account, error) {
	const q = `
SELECT
	provider,
	external_id,
	name,
	credentials,
	enabled,
	status,
	consecutive_errors,
	disabled_reason,
	quota,
	period,
	cycle_start_day,
	cycle_end_day,
	cycle_start,
	cycle_end,
	rps,
	source_lang,
	target_lang,
	last_success_at,
	created_at,
	updated_at
FROM babel.translation_accounts
WHERE provider = $1 AND external_id = $2`

	acct, err := scanAccount(s.pool.QueryRow(ctx, q, provider, id))
	if IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get account %s/%s: %w", provider, id, err)
	}
	return acct, nil
}

func (s *AccountStore) Put(ctx context.Context, acct *account.Account) error {
	credentials, err := json.Marshal(acct.Credentials)
	if err != nil {
		return fmt.Errorf("encode credentials for %s/%s: %w", acct.Provider, acct.ID, err)
	}
	if acct.Credentials == nil {
		credentials = []byte("{}")
	}

	const q = `
INSERT INTO babel.translation_accounts (
	provider, external_id, name, credentials,
	enabled, status, consecutive_errors, disabled_reason,
	quota, period, cycle_start_day, cycle_end_day, cycle_start, cycle_end,
	rps, source_lang, target_lang, last_success_at, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, now(), now())
ON CONFLICT (provider, external_id)
DO UPDATE SET
	name = EXCLUDED.name,
	credentials = EXCLUDED.credentials,
	enabled = EXCLUDED.enabled,
	status = EXCLUDED.status,
	consecutive_errors = EXCLUDED.consecutive_errors,
	disabled_reason = EXCLUDED.disabled_reason,
	quota = EXCLUDED.quota,
	period = EXCLUDED.period,
	cycle_start_day = EXCLUDED.cycle_start_day,
	cycle_end_day = EXCLUDED.cycle_end_day,
	cycle_start = EXCLUDED.cycle_start,
	cycle_end = EXCLUDED.cycle_end,
	rps = EXCLUDED.rps,
	source_lang = EXCLUDED.source_lang,
	target_lang = EXCLUDED.target_lang,
	last_success_at = EXCLUDED.last_success_at,
	updated_at = now()`

	_, err = s.pool.Exec(ctx, q,
		acct.Provider, acct.ID, acct.Name, string(credentials),
		acct.Enabled, string(acct.Status), acct.ConsecutiveErrors, acct.DisabledReason,
		acct.Quota, string(acct.Period), acct.CycleStartDay, acct.CycleEndDay,
		nullableTime(acct.CycleStart), nullableTime(acct.CycleEnd),
		acct.RPS, acct.SourceLang, acct.TargetLang, acct.LastSuccessAt)
	if err != nil {
		return fmt.Errorf("store account %s/%s: %w", acct.Provider, acct.ID, err)
	}
	return nil
}

func (s *AccountStore) ListIDs(ctx context.Context, provider string) ([]string, error) {
	const q = `
SELECT external_id
FROM babel.translation_accounts
WHERE provider = $1
ORDER BY external_id`

	rows, err := s.pool.Query(ctx, q, provider)
	if err != nil {
		return nil, fmt.Errorf("list accounts for %s: %w", provider, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan account id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate account ids: %w", err)
	}
	return ids, nil
}

// ListAccounts returns all accounts, optionally filtered by provider, for
// the admin surface.
func (s *AccountStore) ListAccounts(ctx context.Context, provider string) ([]*account.Account, error) {
	const q = `
SELECT
	provider,
	external_id,
	name,
	credentials,
	enabled,
	status,
	consecutive_errors,
	disabled_reason,
	quota,
	period,
	cycle_start_day,
	cycle_end_day,
	cycle_start,
	cycle_end,
	rps,
	source_lang,
	target_lang,
	last_success_at,
	created_at,
	updated_at
FROM babel.translation_accounts
WHERE ($1 = '' OR provider = $1)
ORDER BY provider, external_id`

	rows, err := s.pool.Query(ctx, q, provider)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*account.Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, acct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, nil
}

// Delete removes one account. The arbiter never deletes; this is the
// operator surface only.
func (s *AccountStore) Delete(ctx context.Context, provider, id string) (bool, error) {
	const q = `DELETE FROM babel.translation_accounts WHERE provider = $1 AND external_id = $2`

	tag, err := s.pool.Exec(ctx, q, provider, id)
	if err != nil {
		return false, fmt.Errorf("delete account %s/%s: %w", provider, id, err)
	}
	return tag.RowsAffected() > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*account.Account, error) {
	var (
		acct        account.Account
		credentials []byte
		status      string
		period      string
		cycleStart  *time.Time
		cycleEnd    *time.Time
	)
	err := row.Scan(
		&acct.Provider,
		&acct.ID,
		&acct.Name,
		&credentials,
		&acct.Enabled,
		&status,
		&acct.ConsecutiveErrors,
		&acct.DisabledReason,
		&acct.Quota,
		&period,
		&acct.CycleStartDay,
		&acct.CycleEndDay,
		&cycleStart,
		&cycleEnd,
		&acct.RPS,
		&acct.SourceLang,
		&acct.TargetLang,
		&acct.LastSuccessAt,
		&acct.CreatedAt,
		&acct.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	acct.Status = account.Status(status)
	acct.Period = cycle.Period(period)
	if cycleStart != nil {
		acct.CycleStart = *cycleStart
	}
	if cycleEnd != nil {
		acct.CycleEnd = *cycleEnd
	}
	if len(credentials) > 0 {
		if err := json.Unmarshal(credentials, &acct.Credentials); err != nil {
			return nil, fmt.Errorf("decode credentials: %w", err)
		}
	}
	return &acct, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	utc := t.UTC()
	return &utc
}
