package translation

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	niutransEndpoint = "https://api.niutrans.com/v2/text/translate"
	// Niutrans rejects requests past 5000 characters; longer texts are
	// chunked and the results concatenated.
	niutransMaxTextLength = 5000
	// Provider-side quota exhausted or balance depleted.
	niutransQuotaErrorCode = "10003"
)

// NiutransProvider calls the Niutrans v2 text translation API. Requests
// are signed with an MD5 digest over the sorted request parameters.
type NiutransProvider struct {
	endpoint string
	client   *http.Client
}

func NewNiutransProvider() *NiutransProvider {
	return &NiutransProvider{
		endpoint: niutransEndpoint,
		client:   &http.Client{Timeout: 150 * time.Second},
	}
}

func (p *NiutransProvider) Name() string {
	return "niutrans"
}

func (p *NiutransProvider) Translate(ctx context.Context, req Request) (*Response, error) {
	appID := req.Account.Credential("appId")
	apiKey := req.Account.Credential("apiKey")
	if appID == "" || apiKey == "" {
		return nil, fmt.Errorf("niutrans %s: %w", req.Account.ID, ErrCredentialsMissing)
	}

	started := time.Now()
	var parts []string
	for _, chunk := range splitRunes(req.Text, niutransMaxTextLength) {
		translated, err := p.translateChunk(ctx, appID, apiKey, req.SourceLang, req.TargetLang, chunk)
		if err != nil {
			return nil, err
		}
		parts = append(parts, translated)
	}

	return &Response{
		Text:      strings.Join(parts, ""),
		LatencyMs: time.Since(started).Milliseconds(),
	}, nil
}

func (p *NiutransProvider) translateChunk(ctx context.Context, appID, apiKey, from, to, text string) (string, error) {
	params := map[string]string{
		"apikey":    apiKey,
		"appId":     appID,
		"from":      from,
		"to":        to,
		"srcText":   text,
		"timestamp": fmt.Sprintf("%d", time.Now().UnixMilli()),
	}
	authStr := niutransAuthStr(params)

	form := url.Values{}
	for key, value := range params {
		if key == "apikey" {
			// The key participates in the signature but is never sent.
			continue
		}
		form.Set(key, value)
	}
	form.Set("authStr", authStr)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build niutrans request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send niutrans request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read niutrans response: %w", err)
	}
	if resp.StatusCode >= 500 {
		return "", &ProviderError{
			Provider: "niutrans",
			Class:    ClassTransient,
			Code:     fmt.Sprintf("%d", resp.StatusCode),
			Message:  strings.TrimSpace(string(body)),
		}
	}

	var parsed niutransResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode niutrans response: %w", err)
	}
	if code := parsed.ErrorCode.String(); code != "" && code != "0" {
		class := ClassOther
		if code == niutransQuotaErrorCode {
			class = ClassQuotaExhausted
		}
		return "", &ProviderError{
			Provider: "niutrans",
			Class:    class,
			Code:     code,
			Message:  parsed.ErrorMsg,
		}
	}
	return parsed.TgtText, nil
}

// niutransAuthStr is the MD5 hex digest over "k=v&k=v" with keys sorted.
func niutransAuthStr(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+params[key])
	}
	digest := md5.Sum([]byte(strings.Join(pairs, "&")))
	return hex.EncodeToString(digest[:])
}

type niutransResponse struct {
	ErrorCode json.Number `json:"errorCode"`
	ErrorMsg  string      `json:"errorMsg"`
	TgtText   string      `json:"tgtText"`
}

func splitRunes(text string, maxLen int) []string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return []string{text}
	}
	var chunks []string
	for start := 0; start < len(runes); start += maxLen {
		end := start + maxLen
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
