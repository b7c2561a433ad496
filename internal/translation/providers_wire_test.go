package translation

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"horse.fit/babel/internal/account"
)

func niutransTestAccount() *account.Account {
	return &account.Account{
		Provider:    "niutrans",
		ID:          "n1",
		Credentials: map[string]string{"appId": "app-1", "apiKey": "key-1"},
	}
}

func deeplTestAccount(authKey string) *account.Account {
	return &account.Account{
		Provider:    "deepl",
		ID:          "d1",
		Credentials: map[string]string{"authKey": authKey},
	}
}

func tencentTestAccount() *account.Account {
	return &account.Account{
		Provider:    "tencent",
		ID:          "t1",
		Credentials: map[string]string{"secretId": "sid", "secretKey": "skey"},
	}
}

func classOf(t *testing.T, err error) Class {
	t.Helper()
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %T: %v", err, err)
	}
	return pe.Class
}

func TestNiutransQuotaErrorCode(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("apikey") != "" {
			t.Error("apikey must never be sent on the wire")
		}
		if r.FormValue("authStr") == "" {
			t.Error("authStr missing from request")
		}
		w.Write([]byte(`{"errorCode":"10003","errorMsg":"balance depleted"}`))
	}))
	defer server.Close()

	p := NewNiutransProvider()
	p.endpoint = server.URL

	_, err := p.Translate(context.Background(), Request{
		Text:       "你好",
		Account:    niutransTestAccount(),
		SourceLang: "zh",
		TargetLang: "en",
	})
	if got := classOf(t, err); got != ClassQuotaExhausted {
		t.Fatalf("expected ClassQuotaExhausted, got %v", got)
	}
	if got := Classify(err); got != ClassQuotaExhausted {
		t.Fatalf("Classify: expected ClassQuotaExhausted, got %v", got)
	}
}

func TestNiutransServerErrorIsTransient(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	p := NewNiutransProvider()
	p.endpoint = server.URL

	_, err := p.Translate(context.Background(), Request{
		Text:       "你好",
		Account:    niutransTestAccount(),
		SourceLang: "zh",
		TargetLang: "en",
	})
	if got := classOf(t, err); got != ClassTransient {
		t.Fatalf("expected ClassTransient, got %v", got)
	}
}

func TestNiutransSuccess(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"errorCode":"0","tgtText":"hello"}`))
	}))
	defer server.Close()

	p := NewNiutransProvider()
	p.endpoint = server.URL

	resp, err := p.Translate(context.Background(), Request{
		Text:       "你好",
		Account:    niutransTestAccount(),
		SourceLang: "zh",
		TargetLang: "en",
	})
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if resp.Text != "hello" {
		t.Fatalf("unexpected translation: %q", resp.Text)
	}
}

func TestDeepLQuotaStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "DeepL-Auth-Key test-key" {
			t.Errorf("unexpected auth header: %q", r.Header.Get("Authorization"))
		}
		// 456 is DeepL's quota-exceeded status.
		w.WriteHeader(456)
	}))
	defer server.Close()

	p := NewDeepLProvider()
	p.proHost = server.URL
	p.freeHost = server.URL

	_, err := p.Translate(context.Background(), Request{
		Text:       "你好",
		Account:    deeplTestAccount("test-key"),
		SourceLang: "zh",
		TargetLang: "en",
	})
	if got := classOf(t, err); got != ClassQuotaExhausted {
		t.Fatalf("expected ClassQuotaExhausted, got %v", got)
	}
}

func TestDeepLServerErrorIsTransient(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	p := NewDeepLProvider()
	p.proHost = server.URL
	p.freeHost = server.URL

	_, err := p.Translate(context.Background(), Request{
		Text:       "你好",
		Account:    deeplTestAccount("test-key"),
		SourceLang: "zh",
		TargetLang: "en",
	})
	if got := classOf(t, err); got != ClassTransient {
		t.Fatalf("expected ClassTransient, got %v", got)
	}
}

func TestDeepLFreeKeyRoutesToFreeHost(t *testing.T) {
	t.Parallel()

	var freeCalls int
	free := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		freeCalls++
		w.Write([]byte(`{"translations":[{"detected_source_language":"ZH","text":"hello"}]}`))
	}))
	defer free.Close()
	pro := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("free-tier key must not reach the pro host")
	}))
	defer pro.Close()

	p := NewDeepLProvider()
	p.proHost = pro.URL
	p.freeHost = free.URL

	resp, err := p.Translate(context.Background(), Request{
		Text:       "你好",
		Account:    deeplTestAccount("test-key:fx"),
		SourceLang: "auto",
		TargetLang: "en",
	})
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if resp.Text != "hello" || freeCalls != 1 {
		t.Fatalf("unexpected result %q after %d free-host calls", resp.Text, freeCalls)
	}
}

func TestTencentQuotaErrorCodes(t *testing.T) {
	t.Parallel()

	for _, code := range []string{"FailedOperation.NoFreeAmount", "FailedOperation.ServiceIsolate"} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-TC-Action") != "TextTranslate" {
				t.Errorf("unexpected action header: %q", r.Header.Get("X-TC-Action"))
			}
			w.Write([]byte(`{"Response":{"Error":{"Code":"` + code + `","Message":"quota"}}}`))
		}))

		p := NewTencentProvider()
		p.endpoint = server.URL

		_, err := p.Translate(context.Background(), Request{
			Text:       "你好",
			Account:    tencentTestAccount(),
			SourceLang: "zh",
			TargetLang: "en",
		})
		if got := classOf(t, err); got != ClassQuotaExhausted {
			t.Fatalf("code %s: expected ClassQuotaExhausted, got %v", code, got)
		}
		server.Close()
	}
}

func TestTencentTransientErrorCodes(t *testing.T) {
	t.Parallel()

	for _, code := range []string{"RequestLimitExceeded", "InternalError"} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"Response":{"Error":{"Code":"` + code + `","Message":"retry"}}}`))
		}))

		p := NewTencentProvider()
		p.endpoint = server.URL

		_, err := p.Translate(context.Background(), Request{
			Text:       "你好",
			Account:    tencentTestAccount(),
			SourceLang: "zh",
			TargetLang: "en",
		})
		if got := classOf(t, err); got != ClassTransient {
			t.Fatalf("code %s: expected ClassTransient, got %v", code, got)
		}
		server.Close()
	}
}

func TestTencentServerErrorIsTransient(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	p := NewTencentProvider()
	p.endpoint = server.URL

	_, err := p.Translate(context.Background(), Request{
		Text:       "你好",
		Account:    tencentTestAccount(),
		SourceLang: "zh",
		TargetLang: "en",
	})
	if got := classOf(t, err); got != ClassTransient {
		t.Fatalf("expected ClassTransient, got %v", got)
	}
}

func TestTencentSuccess(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"Response":{"TargetText":"hello","Source":"zh","Target":"en","RequestId":"rid"}}`))
	}))
	defer server.Close()

	p := NewTencentProvider()
	p.endpoint = server.URL

	resp, err := p.Translate(context.Background(), Request{
		Text:       "你好",
		Account:    tencentTestAccount(),
		SourceLang: "zh",
		TargetLang: "en",
	})
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if resp.Text != "hello" {
		t.Fatalf("unexpected translation: %q", resp.Text)
	}
	if resp.LatencyMs < 0 {
		t.Fatalf("negative latency: %d", resp.LatencyMs)
	}
}
