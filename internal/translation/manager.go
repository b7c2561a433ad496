package translation

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"horse.fit/babel/internal/account"
	"horse.fit/babel/internal/arbiter"
	"horse.fit/babel/internal/cache"
	"horse.fit/babel/internal/langdetect"
	"horse.fit/babel/internal/ledger"
	"horse.fit/babel/internal/segment"
	"horse.fit/babel/internal/translog"
)

// DefaultProviderPriority orders providers by cost and quality. The
// first provider with an eligible account serves the request.
var DefaultProviderPriority = []string{"tencent", "deepl", "niutrans"}

var ErrNoProviderAvailable = errors.New("no provider available")

// Options tune the request pipeline.
type Options struct {
	ProviderPriority []string
	BatchCeiling     int
}

func (o Options) withDefaults() Options {
	if len(o.ProviderPriority) == 0 {
		o.ProviderPriority = DefaultProviderPriority
	}
	if o.BatchCeiling <= 0 {
		o.BatchCeiling = segment.DefaultBatchCeiling
	}
	return o
}

// Manager drives one translation request end to end: provider choice,
// account arbitration, quota and rate admission, the segment pipeline,
// usage recording, and health bookkeeping.
type Manager struct {
	registry *Registry
	arbiter  *arbiter.Arbiter
	ledger   *ledger.Ledger
	cache    *cache.Cache
	recorder *translog.Recorder
	opts     Options
	logger   zerolog.Logger

	// detect resolves an "auto" source language; replaced in tests.
	detect func(text string) string
}

func NewManager(registry *Registry, arb *arbiter.Arbiter, led *ledger.Ledger, c *cache.Cache, recorder *translog.Recorder, opts Options, logger zerolog.Logger) *Manager {
	return &Manager{
		registry: registry,
		arbiter:  arb,
		ledger:   led,
		cache:    c,
		recorder: recorder,
		opts:     opts.withDefaults(),
		logger:   logger,
		detect:   langdetect.DetectISO6391,
	}
}

// Result reports one completed request.
type Result struct {
	Text          string `json:"text"`
	Provider      string `json:"provider,omitempty"`
	AccountID     string `json:"accountId,omitempty"`
	SourceLang    string `json:"sourceLang,omitempty"`
	TargetLang    string `json:"targetLang,omitempty"`
	ProviderChars int64  `json:"providerChars"`
	LatencyMs     int64  `json:"latencyMs"`
	CacheOnly     bool   `json:"cacheOnly"`
}

// Translate runs text through the pipeline. Providers are tried in
// priority order; a provider with no eligible account, or whose chosen
// account turns out to be over quota, is skipped. Provider call
// failures are terminal for the request after health bookkeeping, so a
// half-translated batch is never silently retried elsewhere.
func (m *Manager) Translate(ctx context.Context, text, sourceLang, targetLang string) (*Result, error) {
	if !segment.ContainsTranslatable(text) {
		return &Result{Text: text, CacheOnly: true}, nil
	}

	var lastErr error
	for _, name := range m.opts.ProviderPriority {
		provider, err := m.registry.Provider(name)
		if err != nil {
			m.logger.Warn().Str("provider", name).Msg("unknown provider in priority list")
			continue
		}

		acct, err := m.arbiter.Select(ctx, provider.Name())
		if err != nil {
			if errors.Is(err, arbiter.ErrNoAccountAvailable) {
				lastErr = err
				continue
			}
			return nil, err
		}

		result, err := m.translateWith(ctx, provider, acct, text, sourceLang, targetLang)
		if err != nil {
			if errors.Is(err, ledger.ErrQuotaExceeded) {
				lastErr = err
				continue
			}
			return nil, err
		}
		return result, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoProviderAvailable, lastErr)
	}
	return nil, ErrNoProviderAvailable
}

func (m *Manager) translateWith(ctx context.Context, provider Provider, acct *account.Account, text, sourceLang, targetLang string) (*Result, error) {
	source, target := m.resolveLangs(provider.Name(), acct, sourceLang, targetLang, text)

	var view segment.Cache
	if m.cache != nil {
		view = cache.ProviderView{
			Cache:      m.cache,
			Provider:   provider.Name(),
			SourceLang: source,
			TargetLang: target,
		}
	}

	var providerChars, latencyMs int64
	batchFn := func(ctx context.Context, batchText string) (string, error) {
		chars := int64(utf8.RuneCountInString(batchText))
		if err := m.ledger.CheckQuota(ctx, acct, chars); err != nil {
			if errors.Is(err, ledger.ErrQuotaExceeded) {
				if ferr := m.arbiter.OnFailure(ctx, acct, arbiter.CauseQuotaExhausted, "quota window exhausted"); ferr != nil {
					m.logger.Warn().Err(ferr).Msg("account status update failed")
				}
			}
			return "", err
		}
		if err := m.ledger.CheckRate(ctx, provider.Name(), acct.ID, acct.RPS); err != nil {
			return "", err
		}

		resp, err := provider.Translate(ctx, Request{
			Text:       batchText,
			Account:    acct,
			SourceLang: source,
			TargetLang: target,
		})
		if err != nil {
			cause := causeFor(Classify(err))
			if ferr := m.arbiter.OnFailure(ctx, acct, cause, err.Error()); ferr != nil {
				m.logger.Warn().Err(ferr).Msg("account status update failed")
			}
			return "", err
		}

		// Spend is recorded even if the request is later cancelled;
		// the provider already charged for it.
		if err := m.ledger.RecordUsage(ctx, provider.Name(), acct.ID, chars); err != nil {
			m.logger.Warn().Err(err).Msg("usage record failed")
		}
		if err := m.arbiter.OnSuccess(ctx, acct); err != nil {
			m.logger.Warn().Err(err).Msg("account status update failed")
		}
		providerChars += chars
		latencyMs += resp.LatencyMs
		return resp.Text, nil
	}

	translated, err := segment.SmartTranslate(ctx, text, batchFn, view, m.opts.BatchCeiling)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Text:          translated,
		Provider:      provider.Name(),
		AccountID:     acct.ID,
		SourceLang:    source,
		TargetLang:    target,
		ProviderChars: providerChars,
		LatencyMs:     latencyMs,
		CacheOnly:     providerChars == 0,
	}
	m.record(ctx, result, text)
	return result, nil
}

// resolveLangs applies account overrides and resolves "auto". DeepL
// detects the source itself, so auto passes through for it.
func (m *Manager) resolveLangs(providerName string, acct *account.Account, source, target, text string) (string, string) {
	if acct.SourceLang != "" {
		source = acct.SourceLang
	}
	if acct.TargetLang != "" {
		target = acct.TargetLang
	}
	if source == "" {
		source = "auto"
	}
	if target == "" {
		target = "en"
	}
	if source == "auto" && providerName != "deepl" {
		if detected := m.detect(text); detected != "" {
			source = detected
		} else {
			source = "zh"
		}
	}
	return source, target
}

func (m *Manager) record(ctx context.Context, result *Result, original string) {
	if m.recorder == nil {
		return
	}
	m.recorder.Record(ctx, translog.Entry{
		Provider:       result.Provider,
		AccountID:      result.AccountID,
		SourceLang:     result.SourceLang,
		TargetLang:     result.TargetLang,
		SourceText:     original,
		TranslatedText: result.Text,
		CharCount:      result.ProviderChars,
		LatencyMs:      result.LatencyMs,
		CacheHit:       result.CacheOnly,
	})
}

func causeFor(class Class) arbiter.Cause {
	switch class {
	case ClassQuotaExhausted:
		return arbiter.CauseQuotaExhausted
	case ClassTransient:
		return arbiter.CauseTransient
	default:
		return arbiter.CauseOther
	}
}
