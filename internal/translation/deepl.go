package translation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	deeplProHost  = "https://api.deepl.com"
	deeplFreeHost = "https://api-free.deepl.com"
)

// DeepLProvider calls the DeepL v2 text translation API. Keys ending in
// ":fx" belong to the free tier and are routed to the free host.
type DeepLProvider struct {
	proHost  string
	freeHost string
	client   *http.Client
}

func NewDeepLProvider() *DeepLProvider {
	return &DeepLProvider{
		proHost:  deeplProHost,
		freeHost: deeplFreeHost,
		client:   &http.Client{Timeout: 150 * time.Second},
	}
}

func (p *DeepLProvider) Name() string {
	return "deepl"
}

func (p *DeepLProvider) Translate(ctx context.Context, req Request) (*Response, error) {
	authKey := req.Account.Credential("authKey")
	if authKey == "" {
		return nil, fmt.Errorf("deepl %s: %w", req.Account.ID, ErrCredentialsMissing)
	}

	host := p.proHost
	if strings.HasSuffix(authKey, ":fx") {
		host = p.freeHost
	}

	form := url.Values{}
	form.Set("text", req.Text)
	form.Set("target_lang", strings.ToUpper(req.TargetLang))
	// DeepL detects the source language itself when none is given.
	if req.SourceLang != "" && req.SourceLang != "auto" {
		form.Set("source_lang", strings.ToUpper(req.SourceLang))
	}

	started := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, host+"/v2/translate", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build deepl request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Authorization", "DeepL-Auth-Key "+authKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send deepl request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read deepl response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		class := ClassOther
		switch {
		case resp.StatusCode == 456:
			// 456 is DeepL's "quota exceeded" status.
			class = ClassQuotaExhausted
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			class = ClassTransient
		}
		return nil, &ProviderError{
			Provider: "deepl",
			Class:    class,
			Code:     fmt.Sprintf("%d", resp.StatusCode),
			Message:  strings.TrimSpace(string(body)),
		}
	}

	var parsed deeplResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode deepl response: %w", err)
	}
	if len(parsed.Translations) == 0 {
		return nil, &ProviderError{
			Provider: "deepl",
			Class:    ClassOther,
			Message:  "empty translations in response",
		}
	}

	return &Response{
		Text:      parsed.Translations[0].Text,
		LatencyMs: time.Since(started).Milliseconds(),
	}, nil
}

type deeplResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}
