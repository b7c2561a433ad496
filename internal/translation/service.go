package translation

import (
	"context"

	"horse.fit/babel/internal/account"
)

// Provider calls one third-party translation vendor. Implementations own
// the wire protocol; batch semantics (newline record separation) are owned
// by the caller.
type Provider interface {
	Translate(ctx context.Context, req Request) (*Response, error)
	Name() string
}

// Request describes one provider call against a specific account.
type Request struct {
	Text       string
	Account    *account.Account
	SourceLang string // ISO 639-1, or "auto" where the provider supports it
	TargetLang string
}

// Response contains the translated text and call metadata.
type Response struct {
	Text      string
	LatencyMs int64
}
