// Package arbiter selects an eligible account for a provider and tracks
// per-account failure state.
package arbiter

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/rs/zerolog"

	"horse.fit/babel/internal/account"
	"horse.fit/babel/internal/globaltime"
	"horse.fit/babel/internal/ledger"
)

// ErrNoAccountAvailable means no enabled account with quota headroom
// exists for the provider. Callers treat this as "provider unavailable",
// not a transient error.
var ErrNoAccountAvailable = errors.New("no available account")

// MaxConsecutiveErrors is the auto-disable threshold.
const MaxConsecutiveErrors = 3

// Cause classifies a failed provider call for failure accounting.
type Cause int

const (
	// CauseOther is any failure without special handling.
	CauseOther Cause = iota
	// CauseTransient is a network/5xx-class failure.
	CauseTransient
	// CauseQuotaExhausted is a provider-reported quota/balance exhaustion;
	// it moves the account to quota-exceeded immediately, bypassing the
	// consecutive-error counter.
	CauseQuotaExhausted
)

// Arbiter arbitrates between the accounts of one or more providers.
type Arbiter struct {
	accounts account.Store
	ledger   *ledger.Ledger
	logger   zerolog.Logger

	// pick chooses an index in [0, n); replaced in tests.
	pick func(n int) int
}

func New(accounts account.Store, l *ledger.Ledger, logger zerolog.Logger) *Arbiter {
	return &Arbiter{
		accounts: accounts,
		ledger:   l,
		logger:   logger,
		pick:     rand.Intn,
	}
}

// Select returns an enabled account with current-cycle usage below quota,
// chosen uniformly at random among survivors so load spreads regardless of
// store iteration order. Returns ErrNoAccountAvailable when none qualify.
func (a *Arbiter) Select(ctx context.Context, provider string) (*account.Account, error) {
	ids, err := a.accounts.ListIDs(ctx, provider)
	if err != nil {
		return nil, fmt.Errorf("list accounts for %s: %w", provider, err)
	}

	var eligible []*account.Account
	for _, id := range ids {
		acct, err := a.accounts.Get(ctx, provider, id)
		if err != nil {
			return nil, fmt.Errorf("get account %s/%s: %w", provider, id, err)
		}
		if acct == nil || !acct.Enabled {
			continue
		}
		usage, _, err := a.ledger.UsageForAccount(ctx, acct)
		if err != nil {
			return nil, err
		}
		if usage.Chars >= acct.Quota {
			continue
		}
		eligible = append(eligible, acct)
	}

	if len(eligible) == 0 {
		return nil, fmt.Errorf("%w for provider %s", ErrNoAccountAvailable, provider)
	}
	return eligible[a.pick(len(eligible))], nil
}

// OnSuccess resets the consecutive-error counter and stamps last success.
func (a *Arbiter) OnSuccess(ctx context.Context, acct *account.Account) error {
	fresh, err := a.load(ctx, acct.Provider, acct.ID)
	if err != nil {
		return err
	}
	now := globaltime.UTC()
	fresh.ConsecutiveErrors = 0
	fresh.LastSuccessAt = &now
	if err := a.accounts.Put(ctx, fresh); err != nil {
		return fmt.Errorf("store account %s/%s: %w", fresh.Provider, fresh.ID, err)
	}
	return nil
}

// OnFailure records one failed call. CauseQuotaExhausted transitions the
// account straight to quota-exceeded; any other cause increments the
// consecutive-error counter and disables the account at the threshold.
// Both terminal states persist until an operator re-enables the account.
func (a *Arbiter) OnFailure(ctx context.Context, acct *account.Account, cause Cause, detail string) error {
	fresh, err := a.load(ctx, acct.Provider, acct.ID)
	if err != nil {
		return err
	}

	if cause == CauseQuotaExhausted {
		fresh.Enabled = false
		fresh.Status = account.StatusQuotaExceeded
		fresh.DisabledReason = "provider reported quota or balance exhausted"
		a.logger.Warn().
			Str("provider", fresh.Provider).
			Str("account", fresh.ID).
			Str("detail", detail).
			Msg("account quota exhausted at provider")
		if err := a.accounts.Put(ctx, fresh); err != nil {
			return fmt.Errorf("store account %s/%s: %w", fresh.Provider, fresh.ID, err)
		}
		return nil
	}

	fresh.ConsecutiveErrors++
	if fresh.ConsecutiveErrors >= MaxConsecutiveErrors {
		fresh.Enabled = false
		fresh.Status = account.StatusDisabled
		fresh.DisabledReason = fmt.Sprintf("auto-disabled after %d consecutive call errors", MaxConsecutiveErrors)
		a.logger.Warn().
			Str("provider", fresh.Provider).
			Str("account", fresh.ID).
			Int("consecutive_errors", fresh.ConsecutiveErrors).
			Str("detail", detail).
			Msg("account auto-disabled")
	}
	if err := a.accounts.Put(ctx, fresh); err != nil {
		return fmt.Errorf("store account %s/%s: %w", fresh.Provider, fresh.ID, err)
	}
	return nil
}

// SetStatus is the operator surface: re-enabling an account resets its
// consecutive-error counter and clears the disabled reason.
func (a *Arbiter) SetStatus(ctx context.Context, provider, id string, enabled bool, reason string) (*account.Account, error) {
	fresh, err := a.load(ctx, provider, id)
	if err != nil {
		return nil, err
	}

	fresh.Enabled = enabled
	fresh.DisabledReason = reason
	if enabled {
		fresh.Status = account.StatusNormal
		fresh.ConsecutiveErrors = 0
		fresh.DisabledReason = ""
	} else if fresh.Status == account.StatusNormal {
		fresh.Status = account.StatusDisabled
	}
	if err := a.accounts.Put(ctx, fresh); err != nil {
		return nil, fmt.Errorf("store account %s/%s: %w", provider, id, err)
	}
	return fresh, nil
}

func (a *Arbiter) load(ctx context.Context, provider, id string) (*account.Account, error) {
	acct, err := a.accounts.Get(ctx, provider, id)
	if err != nil {
		return nil, fmt.Errorf("get account %s/%s: %w", provider, id, err)
	}
	if acct == nil {
		return nil, fmt.Errorf("account %s/%s not found", provider, id)
	}
	return acct, nil
}
