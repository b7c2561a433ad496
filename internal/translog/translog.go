// Package translog persists a record of completed translations for the
// admin surface. Writes are best-effort: a failed insert is logged and
// never fails the translation that produced it.
package translog

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/babel/internal/globaltime"
)

// Retention bounds how long log rows are kept before cleanup.
const Retention = 30 * 24 * time.Hour

type Entry struct {
	ID             int64     `json:"id"`
	Provider       string    `json:"provider"`
	AccountID      string    `json:"accountId"`
	SourceLang     string    `json:"sourceLang"`
	TargetLang     string    `json:"targetLang"`
	SourceText     string    `json:"sourceText"`
	TranslatedText string    `json:"translatedText"`
	CharCount      int64     `json:"charCount"`
	LatencyMs      int64     `json:"latencyMs"`
	CacheHit       bool      `json:"cacheHit"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ListOptions filters and pages a log listing. Zero values mean no
// filter and default paging.
type ListOptions struct {
	Provider  string
	AccountID string
	Limit     int
	Offset    int
}

type Store interface {
	InsertEntry(ctx context.Context, entry *Entry, ttl time.Duration) error
	ListEntries(ctx context.Context, opts ListOptions) ([]Entry, int64, error)
	GetEntry(ctx context.Context, id int64) (*Entry, error)
	DeleteEntry(ctx context.Context, id int64) (bool, error)
	DeleteAllEntries(ctx context.Context) (int64, error)
}

type Recorder struct {
	store  Store
	logger zerolog.Logger
}

func NewRecorder(store Store, logger zerolog.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// Record persists one entry. Errors are swallowed after logging.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	if r == nil || r.store == nil {
		return
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = globaltime.UTC()
	}
	if err := r.store.InsertEntry(ctx, &entry, Retention); err != nil {
		r.logger.Warn().Err(err).
			Str("provider", entry.Provider).
			Str("account_id", entry.AccountID).
			Msg("translation log insert failed")
	}
}

func (r *Recorder) List(ctx context.Context, opts ListOptions) ([]Entry, int64, error) {
	if opts.Limit <= 0 || opts.Limit > 200 {
		opts.Limit = 50
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	return r.store.ListEntries(ctx, opts)
}

// Get returns one entry, or nil when the id is unknown or expired.
func (r *Recorder) Get(ctx context.Context, id int64) (*Entry, error) {
	return r.store.GetEntry(ctx, id)
}

// Delete removes one entry, reporting whether it existed.
func (r *Recorder) Delete(ctx context.Context, id int64) (bool, error) {
	return r.store.DeleteEntry(ctx, id)
}

// DeleteAll clears the log, returning the number of entries removed.
func (r *Recorder) DeleteAll(ctx context.Context) (int64, error) {
	return r.store.DeleteAllEntries(ctx)
}
