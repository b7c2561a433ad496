// Package ledger tracks cumulative per-account usage over billing cycles
// and enforces a per-second call-rate ceiling.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/babel/internal/account"
	"horse.fit/babel/internal/cycle"
	"horse.fit/babel/internal/globaltime"
)

var (
	ErrQuotaExceeded = errors.New("quota exceeded")
	ErrRateExceeded  = errors.New("rate exceeded")
)

const (
	// Daily usage rows are retained long enough to serve any cycle window
	// plus the admin stats surface.
	usageRetention = 365 * 24 * time.Hour
	// Rate window entries only need to outlive the 1-second window.
	rateEntryTTL = 2 * time.Second
)

// Usage is the accumulated counters for an account over some range.
type Usage struct {
	Chars int64 `json:"chars"`
	Calls int64 `json:"calls"`
}

// DayUsage is one day's counters.
type DayUsage struct {
	Day   time.Time `json:"day"`
	Chars int64     `json:"chars"`
	Calls int64     `json:"calls"`
}

// CounterStore is the counter-store contract backing usage records and
// rate windows. Implementations must make IncrUsage an atomic
// read-modify-write per (provider, account, day) key, and AdmitRate a
// single atomic prune+count+conditional-insert round trip. UsageByDay
// treats an empty provider or accountID as a wildcard, summing across
// the omitted dimension.
type CounterStore interface {
	IncrUsage(ctx context.Context, provider, accountID string, day time.Time, chars int64, ttl time.Duration) error
	SumUsage(ctx context.Context, provider, accountID string, from, to time.Time) (Usage, error)
	UsageByDay(ctx context.Context, provider, accountID string, from, to time.Time) ([]DayUsage, error)
	AdmitRate(ctx context.Context, provider, accountID string, windowStart, now time.Time, ttl time.Duration, maxRPS int) (bool, error)
}

// Ledger enforces quota and rate limits against a counter store.
type Ledger struct {
	store  CounterStore
	logger zerolog.Logger
}

func New(store CounterStore, logger zerolog.Logger) *Ledger {
	return &Ledger{store: store, logger: logger}
}

// RecordUsage adds charCount to today's usage record for the account and
// bumps its call counter. Two calls in the same day accumulate.
func (l *Ledger) RecordUsage(ctx context.Context, provider, accountID string, chars int64) error {
	day := cycle.DateOf(globaltime.UTC())
	if err := l.store.IncrUsage(ctx, provider, accountID, day, chars, usageRetention); err != nil {
		return fmt.Errorf("record usage %s/%s: %w", provider, accountID, err)
	}
	return nil
}

// UsageForWindow sums daily records across every date in the window,
// inclusive. Days without a record count as zero.
func (l *Ledger) UsageForWindow(ctx context.Context, provider, accountID string, w cycle.Window) (Usage, error) {
	usage, err := l.store.SumUsage(ctx, provider, accountID, w.Start, w.End)
	if err != nil {
		return Usage{}, fmt.Errorf("sum usage %s/%s %s: %w", provider, accountID, w, err)
	}
	return usage, nil
}

// UsageForAccount resolves the account's current cycle window and sums it.
func (l *Ledger) UsageForAccount(ctx context.Context, acct *account.Account) (Usage, cycle.Window, error) {
	w := cycle.Resolve(acct.CycleConfig(), globaltime.UTC())
	usage, err := l.UsageForWindow(ctx, acct.Provider, acct.ID, w)
	return usage, w, err
}

// CheckQuota fails with ErrQuotaExceeded when the pending charCount would
// push current-window usage past the account's quota. Usage exactly at the
// quota boundary passes.
//
// This check and the subsequent RecordUsage are not atomic with respect to
// concurrent callers: requests in flight at once can all pass before any
// records, so the quota is a soft limit with overshoot bounded by in-flight
// concurrency.
func (l *Ledger) CheckQuota(ctx context.Context, acct *account.Account, chars int64) error {
	usage, _, err := l.UsageForAccount(ctx, acct)
	if err != nil {
		return err
	}
	if usage.Chars+chars > acct.Quota {
		return fmt.Errorf("%w: %d+%d/%d chars for %s/%s",
			ErrQuotaExceeded, usage.Chars, chars, acct.Quota, acct.Provider, acct.ID)
	}
	return nil
}

// CheckRate admits one call inside a rolling 1-second window of at most
// maxRPS calls, recording the admitted timestamp with a short expiry.
// maxRPS <= 0 disables the check.
func (l *Ledger) CheckRate(ctx context.Context, provider, accountID string, maxRPS int) error {
	if maxRPS <= 0 {
		return nil
	}
	now := globaltime.UTC()
	admitted, err := l.store.AdmitRate(ctx, provider, accountID, now.Add(-time.Second), now, rateEntryTTL, maxRPS)
	if err != nil {
		return fmt.Errorf("admit rate %s/%s: %w", provider, accountID, err)
	}
	if !admitted {
		return fmt.Errorf("%w: %d rps ceiling for %s/%s", ErrRateExceeded, maxRPS, provider, accountID)
	}
	return nil
}

// RangeStats lists per-day usage for the admin stats surface. An empty
// provider or accountID widens the aggregation: all of a provider's
// accounts when accountID is empty, the whole gateway when both are.
func (l *Ledger) RangeStats(ctx context.Context, provider, accountID string, from, to time.Time) ([]DayUsage, error) {
	days, err := l.store.UsageByDay(ctx, provider, accountID, cycle.DateOf(from), cycle.DateOf(to))
	if err != nil {
		return nil, fmt.Errorf("range stats %s/%s: %w", provider, accountID, err)
	}
	return days, nil
}
