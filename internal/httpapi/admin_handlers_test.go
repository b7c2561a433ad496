package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"horse.fit/babel/internal/ledger"
	"horse.fit/babel/internal/translog"
)

type fakeCacheStore struct {
	prefixes []string
	deleted  int64
	count    int64
}

func (s *fakeCacheStore) DeleteByPrefix(_ context.Context, prefix string) (int64, error) {
	s.prefixes = append(s.prefixes, prefix)
	return s.deleted, nil
}

func (s *fakeCacheStore) Count(context.Context) (int64, error) {
	return s.count, nil
}

type fakeLogStore struct {
	entries []translog.Entry
}

func (s *fakeLogStore) InsertEntry(_ context.Context, entry *translog.Entry, _ time.Duration) error {
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *fakeLogStore) ListEntries(_ context.Context, _ translog.ListOptions) ([]translog.Entry, int64, error) {
	return s.entries, int64(len(s.entries)), nil
}

func (s *fakeLogStore) GetEntry(_ context.Context, id int64) (*translog.Entry, error) {
	for _, entry := range s.entries {
		if entry.ID == id {
			found := entry
			return &found, nil
		}
	}
	return nil, nil
}

func (s *fakeLogStore) DeleteEntry(_ context.Context, id int64) (bool, error) {
	for i, entry := range s.entries {
		if entry.ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeLogStore) DeleteAllEntries(context.Context) (int64, error) {
	removed := int64(len(s.entries))
	s.entries = nil
	return removed, nil
}

// statsCounterStore records the provider and account filters UsageByDay
// receives.
type statsCounterStore struct {
	zeroCounterStore
	provider  string
	accountID string
}

func (s *statsCounterStore) UsageByDay(_ context.Context, provider, accountID string, from, _ time.Time) ([]ledger.DayUsage, error) {
	s.provider = provider
	s.accountID = accountID
	return []ledger.DayUsage{{Day: from, Chars: 42, Calls: 2}}, nil
}

func adminRequest(server *Server, method, target, body string, handler echo.HandlerFunc, params ...string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	for i := 0; i+1 < len(params); i += 2 {
		c.SetParamNames(params[i])
		c.SetParamValues(params[i+1])
	}
	_ = handler(c)
	return rec
}

func TestHandleCacheClearWholeNamespace(t *testing.T) {
	t.Parallel()

	store := &fakeCacheStore{deleted: 7}
	server := &Server{cacheStore: store, logger: zerolog.Nop()}

	rec := adminRequest(server, http.MethodPost, "/api/v1/admin/cache/clear", "", server.handleCacheClear)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(store.prefixes) != 1 || store.prefixes[0] != "translate:" {
		t.Fatalf("expected whole-namespace prefix, got %v", store.prefixes)
	}
	if !strings.Contains(rec.Body.String(), `"shared_deleted":7`) {
		t.Fatalf("deleted count missing from response: %s", rec.Body.String())
	}
}

func TestHandleCacheClearSingleProvider(t *testing.T) {
	t.Parallel()

	store := &fakeCacheStore{}
	server := &Server{cacheStore: store, logger: zerolog.Nop()}

	rec := adminRequest(server, http.MethodPost, "/api/v1/admin/cache/clear",
		`{"provider":"DeepL"}`, server.handleCacheClear)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(store.prefixes) != 1 || store.prefixes[0] != "translate:deepl:" {
		t.Fatalf("expected provider prefix, got %v", store.prefixes)
	}
}

func TestHandleUsageStatsFilters(t *testing.T) {
	t.Parallel()

	store := &statsCounterStore{}
	server := &Server{ledger: ledger.New(store, zerolog.Nop()), logger: zerolog.Nop()}

	rec := adminRequest(server, http.MethodGet, "/api/v1/admin/stats?provider=DeepL", "", server.handleUsageStats)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if store.provider != "deepl" || store.accountID != "" {
		t.Fatalf("unexpected filters %q/%q", store.provider, store.accountID)
	}

	rec = adminRequest(server, http.MethodGet, "/api/v1/admin/stats", "", server.handleUsageStats)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for global stats, got %d", rec.Code)
	}
	if store.provider != "" || store.accountID != "" {
		t.Fatalf("global stats must pass empty filters, got %q/%q", store.provider, store.accountID)
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.OK {
		t.Fatal("expected success envelope")
	}
}

func TestHandleUsageStatsAccountNeedsProvider(t *testing.T) {
	t.Parallel()

	server := &Server{ledger: ledger.New(&statsCounterStore{}, zerolog.Nop()), logger: zerolog.Nop()}

	rec := adminRequest(server, http.MethodGet, "/api/v1/admin/stats?account_id=a1", "", server.handleUsageStats)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleGetTranslationLog(t *testing.T) {
	t.Parallel()

	store := &fakeLogStore{entries: []translog.Entry{{ID: 3, Provider: "tencent", SourceText: "你好"}}}
	server := &Server{recorder: translog.NewRecorder(store, zerolog.Nop()), logger: zerolog.Nop()}

	rec := adminRequest(server, http.MethodGet, "/api/v1/admin/logs/3", "",
		server.handleGetTranslationLog, "id", "3")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"provider":"tencent"`) {
		t.Fatalf("entry missing from response: %s", rec.Body.String())
	}

	rec = adminRequest(server, http.MethodGet, "/api/v1/admin/logs/9", "",
		server.handleGetTranslationLog, "id", "9")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown id, got %d", rec.Code)
	}

	rec = adminRequest(server, http.MethodGet, "/api/v1/admin/logs/x", "",
		server.handleGetTranslationLog, "id", "x")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", rec.Code)
	}
}

func TestHandleDeleteTranslationLogs(t *testing.T) {
	t.Parallel()

	store := &fakeLogStore{entries: []translog.Entry{{ID: 1}, {ID: 2}}}
	server := &Server{recorder: translog.NewRecorder(store, zerolog.Nop()), logger: zerolog.Nop()}

	rec := adminRequest(server, http.MethodDelete, "/api/v1/admin/logs/1", "",
		server.handleDeleteTranslationLog, "id", "1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = adminRequest(server, http.MethodDelete, "/api/v1/admin/logs/1", "",
		server.handleDeleteTranslationLog, "id", "1")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}

	rec = adminRequest(server, http.MethodDelete, "/api/v1/admin/logs", "",
		server.handleDeleteAllTranslationLogs)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"deleted":1`) {
		t.Fatalf("expected 1 remaining entry deleted: %s", rec.Body.String())
	}
	if len(store.entries) != 0 {
		t.Fatalf("expected empty store, got %d entries", len(store.entries))
	}
}
