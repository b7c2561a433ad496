package translation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want Class
	}{
		{"provider quota", &ProviderError{Class: ClassQuotaExhausted}, ClassQuotaExhausted},
		{"provider transient", &ProviderError{Class: ClassTransient}, ClassTransient},
		{"wrapped provider error", fmt.Errorf("call: %w", &ProviderError{Class: ClassQuotaExhausted}), ClassQuotaExhausted},
		{"net timeout", timeoutErr{}, ClassTransient},
		{"deadline", context.DeadlineExceeded, ClassTransient},
		{"plain", errors.New("boom"), ClassOther},
	}
	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestNiutransAuthStrSortsParams(t *testing.T) {
	t.Parallel()

	a := niutransAuthStr(map[string]string{"b": "2", "a": "1"})
	b := niutransAuthStr(map[string]string{"a": "1", "b": "2"})
	if a != b {
		t.Fatalf("digest must not depend on map order: %s vs %s", a, b)
	}
	if len(a) != 32 {
		t.Fatalf("expected md5 hex digest, got %q", a)
	}
}

func TestSplitRunes(t *testing.T) {
	t.Parallel()

	chunks := splitRunes("一二三四五", 2)
	want := []string{"一二", "三四", "五"}
	if len(chunks) != len(want) {
		t.Fatalf("got %d chunks, want %d", len(chunks), len(want))
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Fatalf("chunk %d: got %q, want %q", i, chunks[i], want[i])
		}
	}
}

func TestTencentSignIsDeterministic(t *testing.T) {
	t.Parallel()

	payload := []byte(`{"SourceText":"测试"}`)
	now := time.Unix(1700000000, 0)
	first := tencentSign("id", "key", payload, now)
	second := tencentSign("id", "key", payload, now)
	if first != second {
		t.Fatal("signature must be deterministic for fixed inputs")
	}
	if !strings.HasPrefix(first, "TC3-HMAC-SHA256 Credential=id/") {
		t.Fatalf("unexpected authorization header %q", first)
	}
}
