package translation

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrCredentialsMissing is a configuration fault on the account. It is
// fatal for that account and never retried.
var ErrCredentialsMissing = errors.New("credentials missing")

// Class partitions provider call failures for the arbiter.
type Class int

const (
	// ClassOther is any failure without dedicated handling.
	ClassOther Class = iota
	// ClassTransient covers network and 5xx-style failures.
	ClassTransient
	// ClassQuotaExhausted is a provider-reported quota/balance exhaustion.
	ClassQuotaExhausted
)

func (c Class) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassQuotaExhausted:
		return "quota-exhausted"
	default:
		return "other"
	}
}

// ProviderError is a classified failure reported by a provider API.
type ProviderError struct {
	Provider string
	Class    Class
	Code     string
	Message  string
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s error %s: %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Provider, e.Message)
}

// Classify maps an arbitrary provider call failure onto a Class. Network
// errors and context deadlines count as transient.
func Classify(err error) Class {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Class
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ClassTransient
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTransient
	}
	return ClassOther
}
