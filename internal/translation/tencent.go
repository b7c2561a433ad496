package translation

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	tencentHost    = "tmt.tencentcloudapi.com"
	tencentService = "tmt"
	tencentAction  = "TextTranslate"
	tencentVersion = "2018-03-21"
	tencentRegion  = "ap-guangzhou"
)

// TencentProvider calls the Tencent Cloud TMT TextTranslate API using
// the TC3-HMAC-SHA256 request signature.
type TencentProvider struct {
	endpoint string
	client   *http.Client
}

func NewTencentProvider() *TencentProvider {
	return &TencentProvider{
		endpoint: "https://" + tencentHost,
		client:   &http.Client{Timeout: 150 * time.Second},
	}
}

func (p *TencentProvider) Name() string {
	return "tencent"
}

func (p *TencentProvider) Translate(ctx context.Context, req Request) (*Response, error) {
	secretID := req.Account.Credential("secretId")
	secretKey := req.Account.Credential("secretKey")
	if secretID == "" || secretKey == "" {
		return nil, fmt.Errorf("tencent %s: %w", req.Account.ID, ErrCredentialsMissing)
	}

	payload, err := json.Marshal(tencentRequest{
		SourceText: req.Text,
		Source:     req.SourceLang,
		Target:     req.TargetLang,
		ProjectId:  0,
	})
	if err != nil {
		return nil, fmt.Errorf("encode tencent request: %w", err)
	}

	started := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build tencent request: %w", err)
	}
	now := time.Now()
	authorization := tencentSign(secretID, secretKey, payload, now)
	httpReq.Header.Set("Content-Type", "application/json; charset=utf-8")
	httpReq.Header.Set("Host", tencentHost)
	httpReq.Header.Set("Authorization", authorization)
	httpReq.Header.Set("X-TC-Action", tencentAction)
	httpReq.Header.Set("X-TC-Version", tencentVersion)
	httpReq.Header.Set("X-TC-Region", tencentRegion)
	httpReq.Header.Set("X-TC-Timestamp", fmt.Sprintf("%d", now.Unix()))

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send tencent request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read tencent response: %w", err)
	}
	if resp.StatusCode >= 500 {
		return nil, &ProviderError{
			Provider: "tencent",
			Class:    ClassTransient,
			Code:     fmt.Sprintf("%d", resp.StatusCode),
			Message:  strings.TrimSpace(string(body)),
		}
	}

	var parsed tencentResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode tencent response: %w", err)
	}
	if parsed.Response.Error != nil {
		code := parsed.Response.Error.Code
		class := ClassOther
		switch code {
		case "FailedOperation.NoFreeAmount", "FailedOperation.ServiceIsolate":
			class = ClassQuotaExhausted
		case "RequestLimitExceeded", "InternalError":
			class = ClassTransient
		}
		return nil, &ProviderError{
			Provider: "tencent",
			Class:    class,
			Code:     code,
			Message:  parsed.Response.Error.Message,
		}
	}

	return &Response{
		Text:      parsed.Response.TargetText,
		LatencyMs: time.Since(started).Milliseconds(),
	}, nil
}

// tencentSign builds the TC3-HMAC-SHA256 Authorization header value.
func tencentSign(secretID, secretKey string, payload []byte, now time.Time) string {
	date := now.UTC().Format("2006-01-02")
	timestamp := now.Unix()

	canonicalHeaders := "content-type:application/json; charset=utf-8\nhost:" + tencentHost + "\n"
	signedHeaders := "content-type;host"
	payloadHash := sha256Hex(payload)
	canonicalRequest := strings.Join([]string{
		http.MethodPost,
		"/",
		"",
		canonicalHeaders,
		signedHeaders,
		payloadHash,
	}, "\n")

	credentialScope := date + "/" + tencentService + "/tc3_request"
	stringToSign := strings.Join([]string{
		"TC3-HMAC-SHA256",
		fmt.Sprintf("%d", timestamp),
		credentialScope,
		sha256Hex([]byte(canonicalRequest)),
	}, "\n")

	secretDate := hmacSHA256([]byte("TC3"+secretKey), date)
	secretService := hmacSHA256(secretDate, tencentService)
	secretSigning := hmacSHA256(secretService, "tc3_request")
	signature := hex.EncodeToString(hmacSHA256(secretSigning, stringToSign))

	return fmt.Sprintf("TC3-HMAC-SHA256 Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		secretID, credentialScope, signedHeaders, signature)
}

func sha256Hex(data []byte) string {
	digest := sha256.Sum256(data)
	return hex.EncodeToString(digest[:])
}

func hmacSHA256(key []byte, message string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(message))
	return mac.Sum(nil)
}

type tencentRequest struct {
	SourceText string `json:"SourceText"`
	Source     string `json:"Source"`
	Target     string `json:"Target"`
	ProjectId  int64  `json:"ProjectId"`
}

type tencentResponse struct {
	Response struct {
		TargetText string `json:"TargetText"`
		Source     string `json:"Source"`
		Target     string `json:"Target"`
		RequestId  string `json:"RequestId"`
		Error      *struct {
			Code    string `json:"Code"`
			Message string `json:"Message"`
		} `json:"Error"`
	} `json:"Response"`
}
