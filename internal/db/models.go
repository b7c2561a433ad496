package db

import (
	"encoding/json"
	"time"
)

// TranslationAccount maps babel.translation_accounts.
type TranslationAccount struct {
	AccountID         int64           `gorm:"column:account_id;primaryKey;autoIncrement"`
	Provider          string          `gorm:"column:provider;type:text;not null;uniqueIndex:idx_accounts_provider_external"`
	ExternalID        string          `gorm:"column:external_id;type:text;not null;uniqueIndex:idx_accounts_provider_external"`
	Name              string          `gorm:"column:name;type:text;not null;default:''"`
	Credentials       json.RawMessage `gorm:"column:credentials;type:jsonb;not null;default:'{}'"`
	Enabled           bool            `gorm:"column:enabled;not null;default:true"`
	Status            string          `gorm:"column:status;type:text;not null;default:normal"`
	ConsecutiveErrors int             `gorm:"column:consecutive_errors;type:integer;not null;default:0"`
	DisabledReason    string          `gorm:"column:disabled_reason;type:text;not null;default:''"`
	Quota             int64           `gorm:"column:quota;type:bigint;not null;default:0"`
	Period            string          `gorm:"column:period;type:text;not null;default:month"`
	CycleStartDay     int             `gorm:"column:cycle_start_day;type:integer;not null;default:0"`
	CycleEndDay       int             `gorm:"column:cycle_end_day;type:integer;not null;default:0"`
	CycleStart        *time.Time      `gorm:"column:cycle_start;type:timestamptz"`
	CycleEnd          *time.Time      `gorm:"column:cycle_end;type:timestamptz"`
	RPS               int             `gorm:"column:rps;type:integer;not null;default:0"`
	SourceLang        string          `gorm:"column:source_lang;type:text;not null;default:''"`
	TargetLang        string          `gorm:"column:target_lang;type:text;not null;default:''"`
	LastSuccessAt     *time.Time      `gorm:"column:last_success_at;type:timestamptz"`
	CreatedAt         time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (TranslationAccount) TableName() string { return "babel.translation_accounts" }

// UsageDay maps babel.usage_days, one row per account per UTC day.
type UsageDay struct {
	UsageDayID int64     `gorm:"column:usage_day_id;primaryKey;autoIncrement"`
	Provider   string    `gorm:"column:provider;type:text;not null;uniqueIndex:idx_usage_days_key"`
	AccountID  string    `gorm:"column:account_id;type:text;not null;uniqueIndex:idx_usage_days_key"`
	Day        time.Time `gorm:"column:day;type:date;not null;uniqueIndex:idx_usage_days_key"`
	Chars      int64     `gorm:"column:chars;type:bigint;not null;default:0"`
	Calls      int64     `gorm:"column:calls;type:bigint;not null;default:0"`
	ExpiresAt  time.Time `gorm:"column:expires_at;type:timestamptz;not null"`
	UpdatedAt  time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (UsageDay) TableName() string { return "babel.usage_days" }

// RateHit maps babel.rate_hits, one row per admitted provider call.
type RateHit struct {
	RateHitID int64     `gorm:"column:rate_hit_id;primaryKey;autoIncrement"`
	Provider  string    `gorm:"column:provider;type:text;not null;index:idx_rate_hits_key"`
	AccountID string    `gorm:"column:account_id;type:text;not null;index:idx_rate_hits_key"`
	HitAt     time.Time `gorm:"column:hit_at;type:timestamptz;not null;index:idx_rate_hits_key"`
	ExpiresAt time.Time `gorm:"column:expires_at;type:timestamptz;not null;index"`
}

func (RateHit) TableName() string { return "babel.rate_hits" }

// CacheEntry maps babel.cache_entries, the shared translation cache tier.
type CacheEntry struct {
	CacheKey  string    `gorm:"column:cache_key;type:text;primaryKey"`
	Value     string    `gorm:"column:value;type:text;not null"`
	ExpiresAt time.Time `gorm:"column:expires_at;type:timestamptz;not null;index"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (CacheEntry) TableName() string { return "babel.cache_entries" }

// TranslationLog maps babel.translation_logs.
type TranslationLog struct {
	LogID          int64     `gorm:"column:log_id;primaryKey;autoIncrement"`
	Provider       string    `gorm:"column:provider;type:text;not null;index"`
	AccountID      string    `gorm:"column:account_id;type:text;not null;index"`
	SourceLang     string    `gorm:"column:source_lang;type:text;not null;default:''"`
	TargetLang     string    `gorm:"column:target_lang;type:text;not null;default:''"`
	SourceText     string    `gorm:"column:source_text;type:text;not null"`
	TranslatedText string    `gorm:"column:translated_text;type:text;not null"`
	CharCount      int64     `gorm:"column:char_count;type:bigint;not null;default:0"`
	LatencyMs      int64     `gorm:"column:latency_ms;type:bigint;not null;default:0"`
	CacheHit       bool      `gorm:"column:cache_hit;not null;default:false"`
	ExpiresAt      time.Time `gorm:"column:expires_at;type:timestamptz;not null;index"`
	CreatedAt      time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (TranslationLog) TableName() string { return "babel.translation_logs" }

// AdminUser maps babel.admin_users.
type AdminUser struct {
	UserID       int64      `gorm:"column:user_id;primaryKey;autoIncrement"`
	Username     string     `gorm:"column:username;type:text;not null;unique"`
	PasswordHash string     `gorm:"column:password_hash;type:text;not null"`
	CreatedAt    time.Time  `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at;type:timestamptz"`
}

func (AdminUser) TableName() string { return "babel.admin_users" }

func autoMigrateModels() []any {
	return []any{
		&TranslationAccount{},
		&UsageDay{},
		&RateHit{},
		&CacheEntry{},
		&TranslationLog{},
		&AdminUser{},
	}
}
