package account

import (
	"context"
	"time"

	"horse.fit/babel/internal/cycle"
)

// Status is the lifecycle state of an account.
type Status string

const (
	StatusNormal        Status = "normal"
	StatusQuotaExceeded Status = "quota-exceeded"
	StatusDisabled      Status = "disabled"
)

// Account is one credential set plus quota/rate configuration for a
// translation provider. Credential fields are opaque to everything except
// the provider client that consumes them.
type Account struct {
	Provider string `json:"provider"`
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`

	Credentials map[string]string `json:"credentials,omitempty"`

	Enabled           bool   `json:"enabled"`
	Status            Status `json:"status"`
	ConsecutiveErrors int    `json:"consecutive_errors"`
	DisabledReason    string `json:"disabled_reason,omitempty"`

	Quota         int64        `json:"quota"`
	Period        cycle.Period `json:"period"`
	CycleStartDay int          `json:"cycle_start_day,omitempty"`
	CycleEndDay   int          `json:"cycle_end_day,omitempty"`
	CycleStart    time.Time    `json:"cycle_start,omitempty"`
	CycleEnd      time.Time    `json:"cycle_end,omitempty"`

	RPS int `json:"rps"`

	SourceLang string `json:"source_lang,omitempty"`
	TargetLang string `json:"target_lang,omitempty"`

	LastSuccessAt *time.Time `json:"last_success_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at,omitempty"`
}

// CycleConfig projects the account's billing-period fields for the cycle
// calculator.
func (a *Account) CycleConfig() cycle.Config {
	period := a.Period
	if period == "" {
		period = cycle.PeriodMonth
	}
	return cycle.Config{
		Period:   period,
		StartDay: a.CycleStartDay,
		EndDay:   a.CycleEndDay,
		Start:    a.CycleStart,
		End:      a.CycleEnd,
	}
}

// Credential returns a named credential field, empty when absent.
func (a *Account) Credential(name string) string {
	if a == nil || a.Credentials == nil {
		return ""
	}
	return a.Credentials[name]
}

// Store is the external account store contract. Get returns (nil, nil)
// when the account does not exist. The core never deletes accounts.
type Store interface {
	Get(ctx context.Context, provider, id string) (*Account, error)
	Put(ctx context.Context, acct *Account) error
	ListIDs(ctx context.Context, provider string) ([]string, error)
}
